package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"jobtrail/internal/daemonctl"
	"jobtrail/internal/ipc"
	"jobtrail/internal/preflight"
	"jobtrail/internal/stage"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon if needed and begin polling the mailbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath()},
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Monitor started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Monitor already running")
			case daemonctl.StartStateAwaitingAuth:
				fmt.Fprintln(stdout, result.Message)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop polling the mailbox (the daemon keeps running)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Monitor stopped")
				return nil
			})
		},
	}

	shutdownCmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Terminate the daemon process",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.Shutdown(cfg, 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, monitor, and application status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var status *ipc.StatusResponse
			if client, dialErr := ipc.Dial(ctx.socketPath()); dialErr == nil {
				status, _ = client.Status()
				client.Close()
			}
			if statusJSON {
				if status == nil {
					status = &ipc.StatusResponse{}
				}
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			running := status != nil && status.Running

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			monitorRunning := running && status.Monitor.IsRunning
			for _, line := range preflight.SystemChecks(cfg, running, monitorRunning) {
				fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}
			if !running {
				return nil
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Monitor", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range monitorLines(status, colorize) {
				fmt.Fprintln(stdout, line)
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Applications", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := make([][]string, 0, len(stage.All()))
			for _, s := range stage.All() {
				rows = append(rows, []string{s.String(), strconv.Itoa(status.Counts[s.String()])})
			}
			fmt.Fprint(stdout, renderTable("", []string{"Stage", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")

	return []*cobra.Command{startCmd, stopCmd, shutdownCmd, statusCmd}
}

func monitorLines(status *ipc.StatusResponse, colorize bool) []string {
	m := status.Monitor
	lines := make([]string, 0, 6)

	account := "not connected"
	accountKind := statusWarn
	if m.MailboxConnected {
		account = m.ConnectedAccount
		accountKind = statusOK
	}
	lines = append(lines, renderStatusLine("Mailbox", accountKind, account, colorize))
	lines = append(lines, renderStatusLine("Classifier", statusInfo, m.Classifier, colorize))
	lines = append(lines, renderStatusLine("Processed", statusInfo,
		fmt.Sprintf("%d messages, %d merged", m.ProcessedCount, m.MergedCount), colorize))

	lastScan := "never"
	if !m.LastScan.IsZero() {
		lastScan = m.LastScan.Local().Format(time.DateTime)
	}
	lines = append(lines, renderStatusLine("Last scan", statusInfo, lastScan, colorize))
	if m.ConsecutiveFailures > 0 {
		lines = append(lines, renderStatusLine("Failures", statusError,
			fmt.Sprintf("%d consecutive (%s)", m.ConsecutiveFailures, m.LastError), colorize))
	}
	if status.APIAddress != "" {
		lines = append(lines, renderStatusLine("HTTP API", statusInfo, status.APIAddress, colorize))
	}
	return lines
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one mailbox poll immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Scan()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d, classified %d, merged %d (tracking %d applications)\n",
					resp.Fetched, resp.Classified, resp.Merged, resp.Total)
				return nil
			})
		},
	}
}
