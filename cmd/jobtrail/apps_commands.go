package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jobtrail/internal/ipc"
)

func newAppsCommand(ctx *commandContext) *cobra.Command {
	appsCmd := &cobra.Command{
		Use:     "apps",
		Aliases: []string{"applications"},
		Short:   "List and edit tracked applications",
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List applications grouped by stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Applications()
				if err != nil {
					return err
				}
				if listJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.Total == 0 {
					fmt.Fprintln(out, "No applications tracked yet")
					return nil
				}
				for _, group := range resp.Groups {
					if len(group.Applications) == 0 {
						continue
					}
					fmt.Fprint(out, renderTable(
						fmt.Sprintf("%s (%d)", group.Stage, len(group.Applications)),
						[]string{"ID", "Company", "Position", "Updated"},
						applicationRows(group.Applications),
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
					))
				}
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output applications as JSON")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseApplicationID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				app, err := client.Application(id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, app)
			})
		},
	}

	var addStage string
	addCmd := &cobra.Command{
		Use:   "add <company> <position>",
		Short: "Track an application manually",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				app, err := client.AddApplication(ipc.AddApplicationRequest{
					Company:  args[0],
					Position: args[1],
					Stage:    addStage,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tracking #%d %s at %s (%s)\n", app.ID, app.Position, app.Company, app.Stage)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&addStage, "stage", "", "Initial stage (Applied, Interview, Offer, Rejected)")

	setCmd := &cobra.Command{
		Use:   "set <id> <stage>",
		Short: "Override an application's stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseApplicationID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				app, err := client.SetStage(id, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d %s at %s is now %s\n", app.ID, app.Position, app.Company, app.Stage)
				return nil
			})
		},
	}

	rmCmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Stop tracking an application",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseApplicationID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.DeleteApplication(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed application #%d\n", id)
				return nil
			})
		},
	}

	appsCmd.AddCommand(listCmd, showCmd, addCmd, setCmd, rmCmd)
	return appsCmd
}

func applicationRows(apps []ipc.Application) [][]string {
	rows := make([][]string, 0, len(apps))
	for _, app := range apps {
		updated := app.LastUpdated
		if len(updated) >= len("2006-01-02T15:04") {
			updated = strings.Replace(updated[:len("2006-01-02T15:04")], "T", " ", 1)
		}
		rows = append(rows, []string{strconv.FormatInt(app.ID, 10), app.Company, app.Position, updated})
	}
	return rows
}

func parseApplicationID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid application id %q", raw)
	}
	return id, nil
}
