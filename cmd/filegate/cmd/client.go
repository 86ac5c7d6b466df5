package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/filegate/internal/config"
	"github.com/Sentinel-Gate/filegate/pkg/client"
)

// Flags shared by the commands that talk to a running server.
var (
	clientAddr    string
	clientTimeout time.Duration
	statusJSON    bool
	fetchOutput   string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server's session table",
	Long: `Connect to a running server and print every session it has seen,
active and finished, ordered by identity.

Examples:
  filegate status
  filegate status --addr 10.0.0.5:5000 --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files offered by the server",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <name>",
	Short: "Download a file from the server",
	Long: `Download a file from the server's repository.

By default the file is written to the current directory under its own name.
Use -o - to write to stdout.

Examples:
  filegate fetch report.txt
  filegate fetch report.txt -o /tmp/report.txt
  filegate fetch notes.md -o - | less`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, listCmd, fetchCmd} {
		c.Flags().StringVar(&clientAddr, "addr", "", "server address (default: server.host:server.port from config)")
		c.Flags().DurationVar(&clientTimeout, "timeout", 10*time.Second, "per-request timeout")
		rootCmd.AddCommand(c)
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the raw status document")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output file, or - for stdout")
}

// connect dials the server named by --addr, falling back to the configured
// listen address.
func connect(ctx context.Context) (*client.Client, error) {
	addr := clientAddr
	if addr == "" {
		cfg, err := config.LoadConfigRaw()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		addr = cfg.Server.ListenAddr()
	}

	c, err := client.Dial(ctx, addr, client.WithTimeout(clientTimeout))
	if errors.Is(err, client.ErrBusy) {
		return nil, fmt.Errorf("server at %s is full, try again later: %w", addr, err)
	}
	return c, err
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	report, err := c.Status()
	if err != nil {
		_ = c.Close()
		return err
	}
	if err := c.Exit(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "    ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "%d of %d slots in use\n\n", report.Active, report.Capacity)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tCONNECTED\tDISCONNECTED")
	for _, cs := range report.Clients {
		disconnected := "-"
		if cs.DisconnectedAt != nil {
			disconnected = *cs.DisconnectedAt
		}
		fmt.Fprintf(tw, "%s\t%s:%d\t%s\t%s\n", cs.Name, cs.Address.Host, cs.Address.Port, cs.ConnectedAt, disconnected)
	}
	return tw.Flush()
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	names, err := c.List()
	if err != nil {
		_ = c.Close()
		return err
	}
	if err := c.Exit(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "repository is empty")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	name := args[0]

	var dst io.Writer
	var file *os.File
	switch fetchOutput {
	case "-":
		dst = cmd.OutOrStdout()
	default:
		path := fetchOutput
		if path == "" {
			path = filepath.Base(name)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		file, dst = f, f
	}

	c, err := connect(cmd.Context())
	if err != nil {
		discard(file)
		return err
	}

	res, err := c.Fetch(name, dst)
	if err != nil {
		_ = c.Close()
		discard(file)
		return err
	}
	if err := c.Exit(); err != nil {
		discard(file)
		return err
	}

	if file != nil {
		if err := file.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d bytes, xxh64 %016x -> %s\n", res.Name, res.Size, res.XXH64, file.Name())
	}
	return nil
}

// discard closes and removes a partially written output file.
func discard(f *os.File) {
	if f == nil {
		return
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
}
