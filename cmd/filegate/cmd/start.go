package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/filegate/internal/adapter/inbound/http"
	"github.com/Sentinel-Gate/filegate/internal/adapter/inbound/tcp"
	"github.com/Sentinel-Gate/filegate/internal/adapter/outbound/memory"
	"github.com/Sentinel-Gate/filegate/internal/adapter/outbound/repo"
	"github.com/Sentinel-Gate/filegate/internal/config"
	"github.com/Sentinel-Gate/filegate/internal/port/outbound"
	"github.com/Sentinel-Gate/filegate/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the file server",
	Long: `Start the filegate server.

The server listens on server.host:server.port and serves the files in
repository.dir (created if missing). At most server.max_clients clients are
served at once; further connections receive a BUSY notice.

Examples:
  # Start with config file settings
  filegate start

  # Override listener and capacity
  filegate start --host 0.0.0.0 --port 6000 --max-clients 10

  # Serve another directory with debug logging
  filegate start --repo /srv/files --dev`,
	RunE: runStart,
}

var (
	devMode        bool
	flagHost       string
	flagPort       int
	flagMaxClients int
	flagRepo       string
)

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging)")
	startCmd.Flags().StringVar(&flagHost, "host", "", "interface to bind (overrides server.host)")
	startCmd.Flags().IntVar(&flagPort, "port", 0, "TCP port (overrides server.port)")
	startCmd.Flags().IntVar(&flagMaxClients, "max-clients", 0, "concurrent client slots, 1-99 (overrides server.max_clients)")
	startCmd.Flags().StringVar(&flagRepo, "repo", "", "repository directory (overrides repository.dir)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	// Load without validation so CLI flags can override first.
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStartFlags(cmd, cfg)

	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logger := newLogger(cfg)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("filegate stopped")
	return nil
}

// applyStartFlags copies explicitly set flags over the loaded config.
func applyStartFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = flagHost
	}
	if flags.Changed("port") {
		cfg.Server.Port = flagPort
	}
	if flags.Changed("max-clients") {
		cfg.Server.MaxClients = flagMaxClients
	}
	if flags.Changed("repo") {
		cfg.Repository.Dir = flagRepo
	}
	if devMode {
		cfg.DevMode = true
	}
}

// newLogger builds the stderr text logger.
// DevMode=true forces debug; otherwise the configured log_level applies.
func newLogger(cfg *config.Config) *slog.Logger {
	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())
	return logger
}

// run wires all components together and blocks until ctx is cancelled
// and active sessions have drained.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.DevMode {
		logger.Warn("development mode enabled: debug logging is on")
	}

	// Repository
	files := repo.New(cfg.Repository.Dir)
	if err := files.Ensure(); err != nil {
		return fmt.Errorf("failed to prepare repository: %w", err)
	}
	if names, err := files.List(); err == nil {
		logger.Info("repository ready", "dir", files.Dir(), "files", len(names))
	}

	// Identity slots and session history
	allocator := memory.NewSlotAllocator(cfg.Server.MaxClients)
	registry := memory.NewSessionRegistry()

	// Optional observability endpoint
	var recorder outbound.MetricsRecorder
	adminDone := make(chan error, 1)
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = http.NewMetrics(reg)
		http.RegisterOccupancy(reg, allocator)

		admin := http.NewAdminServer(reg,
			http.WithAddr(cfg.Metrics.Addr),
			http.WithLogger(logger),
			http.WithHealthChecker(http.NewHealthChecker(allocator, registry, Version)),
		)
		go func() { adminDone <- admin.Start(ctx) }()
	} else {
		close(adminDone)
	}

	handler := service.NewConnectionHandler(allocator, registry, files, recorder, logger,
		service.HandlerConfig{
			IdleTimeout:  cfg.Server.IdleTimeoutDuration(),
			MaxLineBytes: cfg.Server.MaxLineBytes,
			ChunkSize:    cfg.Repository.ChunkSize,
		},
	)

	listener := tcp.NewListener(cfg.Server.ListenAddr(), handler, tcp.WithLogger(logger))
	logger.Info("filegate starting",
		"addr", cfg.Server.ListenAddr(),
		"max_clients", allocator.Capacity(),
		"repository", files.Dir(),
	)

	serveErr := listener.Serve(ctx)

	drain := cfg.Server.DrainTimeoutDuration()
	logger.Info("shutting down, draining sessions",
		"active", listener.ActiveConnections(),
		"timeout", drain,
	)
	drainCtx, drainCancel := context.WithTimeout(context.Background(), drain)
	defer drainCancel()
	if err := listener.Shutdown(drainCtx); err != nil {
		logger.Warn("sessions did not drain in time", "error", err)
	}

	// Serve can fail without ctx being cancelled; stop the admin server too.
	cancel()
	if err := <-adminDone; err != nil {
		logger.Error("admin server failed", "error", err)
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	return nil
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
