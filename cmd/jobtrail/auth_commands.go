package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jobtrail/internal/ipc"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Connect the mailbox account",
	}

	urlCmd := &cobra.Command{
		Use:   "url",
		Short: "Print the mailbox sign-in URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AuthStart()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Open this URL to sign in:")
				fmt.Fprintln(out, resp.AuthorizationURL)
				fmt.Fprintln(out)
				fmt.Fprintf(out, "If the browser cannot reach the callback, run: jobtrail auth complete <code> --state %s\n", resp.State)
				return nil
			})
		},
	}

	var state string
	completeCmd := &cobra.Command{
		Use:   "complete <code>",
		Short: "Exchange an authorization code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AuthComplete(ipc.AuthCompleteRequest{
					Code:  strings.TrimSpace(args[0]),
					State: strings.TrimSpace(state),
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Connected %s (%d applications restored)\n", resp.Account, resp.Restored)
				fmt.Fprintf(out, "Monitor running: %s\n", yesNo(resp.MonitorRunning))
				return nil
			})
		},
	}
	completeCmd.Flags().StringVar(&state, "state", "", "State value printed by `jobtrail auth url`")

	authCmd.AddCommand(urlCmd, completeCmd)
	return authCmd
}
