package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// These tests mutate viper's global state and process env, so none run in parallel.

func TestLoadConfig_FileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "filegate.yaml")
	content := `
server:
  host: 0.0.0.0
  port: 6000
  max_clients: 5
  idle_timeout: 10m
repository:
  dir: /srv/repo
metrics:
  addr: 127.0.0.1:9090
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FILEGATE_SERVER_PORT", "7000")

	InitViper(path)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want 7000 (env override)", cfg.Server.Port)
	}
	if cfg.Server.MaxClients != 5 {
		t.Errorf("MaxClients = %d, want 5", cfg.Server.MaxClients)
	}
	if cfg.Server.IdleTimeout != "10m" {
		t.Errorf("IdleTimeout = %q, want 10m", cfg.Server.IdleTimeout)
	}
	if cfg.Repository.Dir != "/srv/repo" {
		t.Errorf("Repository.Dir = %q", cfg.Repository.Dir)
	}
	if cfg.Repository.ChunkSize != 65536 {
		t.Errorf("ChunkSize = %d, want default 65536", cfg.Repository.ChunkSize)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9090" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
	if ConfigFileUsed() != path {
		t.Errorf("ConfigFileUsed = %q, want %q", ConfigFileUsed(), path)
	}
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("FILEGATE_SERVER_MAX_CLIENTS", "7")
	t.Setenv("FILEGATE_DEV_MODE", "true")

	viper.SetConfigName("filegate-test-nonexistent")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("FILEGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	bindNestedEnvKeys()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.MaxClients != 7 {
		t.Errorf("MaxClients = %d, want 7", cfg.Server.MaxClients)
	}
	if !cfg.DevMode || cfg.Server.LogLevel != "debug" {
		t.Errorf("dev mode = %v, log level = %q; want true, debug", cfg.DevMode, cfg.Server.LogLevel)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Port = %d, want default 5000", cfg.Server.Port)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "filegate.yaml")
	if err := os.WriteFile(path, []byte("server:\n  max_clients: 150\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	InitViper(path)
	_, err := LoadConfig()
	if err == nil {
		t.Fatal("LoadConfig should reject max_clients=150")
	}
	if !strings.Contains(err.Error(), "MaxClients must be at most 99") {
		t.Errorf("error = %v, want max_clients message", err)
	}
}

func TestLoadConfigRaw_SkipsValidation(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "filegate.yaml")
	if err := os.WriteFile(path, []byte("server:\n  idle_timeout: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	InitViper(path)
	cfg, err := LoadConfigRaw()
	if err != nil {
		t.Fatalf("LoadConfigRaw: %v", err)
	}
	if cfg.Server.IdleTimeout != "soon" {
		t.Errorf("IdleTimeout = %q, want raw value", cfg.Server.IdleTimeout)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject idle_timeout=soon")
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "filegate.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	InitViper(path)
	if _, err := LoadConfigRaw(); err == nil {
		t.Fatal("LoadConfigRaw should fail on malformed YAML")
	}
}
