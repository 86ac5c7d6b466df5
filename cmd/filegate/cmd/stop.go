package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	stopPollInterval = 200 * time.Millisecond
	stopWaitTimeout  = 10 * time.Second
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running filegate server",
	Long: `Stop a running filegate server by reading its PID file and asking it
to shut down. Active sessions get server.drain_timeout to finish.

The PID file is located at ~/.filegate/server.pid.

Examples:
  filegate stop`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	return stopServer(pidFilePath(), cmd.ErrOrStderr())
}

func stopServer(pidPath string, out io.Writer) error {
	pid := readPIDFile(pidPath)
	if pid == 0 {
		return fmt.Errorf("no server PID file found at %s\nIs the server running?", pidPath)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		_ = os.Remove(pidPath)
		return fmt.Errorf("invalid PID %d: %w", pid, err)
	}
	if !processIsAlive(proc) {
		_ = os.Remove(pidPath)
		return fmt.Errorf("server process %d is not running (stale PID file removed)", pid)
	}

	fmt.Fprintf(out, "Stopping filegate server (PID %d)...\n", pid)
	if err := sendGracefulStop(proc); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	deadline := time.Now().Add(stopWaitTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(stopPollInterval)
		if !processIsAlive(proc) {
			_ = os.Remove(pidPath)
			fmt.Fprintln(out, "Server stopped.")
			return nil
		}
	}

	fmt.Fprintln(out, "Server did not stop in time, killing it...")
	_ = proc.Kill()
	_ = os.Remove(pidPath)
	fmt.Fprintln(out, "Server killed.")
	return nil
}
