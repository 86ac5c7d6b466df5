// Package cmd provides the CLI commands for filegate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/filegate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "filegate",
	Short: "filegate - multi-client TCP file server",
	Long: `filegate serves the files of one directory to a bounded number of
concurrent TCP clients. Each client is assigned an identity (Client01,
Client02, ...) on connect and can list files, fetch them, and query the
server's session history.

Quick start:
  1. Put some files in ./repo
  2. Run: filegate start
  3. In another terminal: filegate list

Configuration:
  Config is loaded from filegate.yaml in the current directory,
  $HOME/.filegate/, or /etc/filegate/.

  Environment variables can override config values with the FILEGATE_ prefix.
  Example: FILEGATE_SERVER_PORT=6000

Commands:
  start       Start the server
  stop        Stop the running server
  status      Show the server's session table
  list        List files offered by the server
  fetch       Download a file from the server
  config      Print the effective configuration
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./filegate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
