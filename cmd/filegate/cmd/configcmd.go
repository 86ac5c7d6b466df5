package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sentinel-Gate/filegate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration the server would start with, after defaults,
the config file and FILEGATE_* environment overrides are merged. The result is
validated; invalid settings are reported instead of printed.

Examples:
  filegate config
  FILEGATE_SERVER_MAX_CLIENTS=10 filegate config`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	w := cmd.OutOrStdout()
	if used := config.ConfigFileUsed(); used != "" {
		fmt.Fprintf(w, "# loaded from %s\n", used)
	} else {
		fmt.Fprintln(w, "# no config file found, using defaults")
	}
	_, err = w.Write(out)
	return err
}
