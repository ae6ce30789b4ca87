package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bizdash/internal/cli/formatter"
	"bizdash/internal/services"
)

func newDealsCmd(app *App) *cobra.Command {
	var leads bool
	pipeline := func() *services.PipelineService {
		if leads {
			return app.Leads
		}
		return app.Deals
	}

	cmd := &cobra.Command{
		Use:   "deals",
		Short: "Move deals (or leads) through the sales pipeline",
	}
	cmd.PersistentFlags().BoolVar(&leads, "leads", false, "work on leads instead of deals")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the pipeline",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				deals, err := pipeline().List(cmd.Context())
				if err != nil {
					return userError("list pipeline", err)
				}
				rows := make([][]string, 0, len(deals))
				for _, d := range deals {
					rows = append(rows, []string{d.ID, d.Title, d.Stage, d.Value.FormatEuros(), d.Owner})
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable(
					[]string{"ID", "TITLE", "STAGE", "VALUE", "OWNER"}, rows))
				return nil
			},
		},
		&cobra.Command{
			Use:   "stage <id> <stage>",
			Short: "Move an entry to another stage",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				outcome, err := pipeline().ChangeStage(cmd.Context(), args[0], args[1])
				return report(cmd, args[0]+" stage "+args[1], outcome, err)
			},
		},
	)
	return cmd
}

func newTimeLogsCmd(app *App) *cobra.Command {
	var employeeID string
	cmd := &cobra.Command{
		Use:   "timelogs",
		Short: "Review and approve an employee's time logs",
	}
	cmd.PersistentFlags().StringVar(&employeeID, "employee", "", "employee ID")
	_ = cmd.MarkPersistentFlagRequired("employee")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List time logs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				logs, err := app.TimeLogs.ListByEmployee(cmd.Context(), employeeID)
				if err != nil {
					return userError("list time logs", err)
				}
				rows := make([][]string, 0, len(logs))
				for _, l := range logs {
					rows = append(rows, []string{
						l.ID, date(l.Date), l.ProjectID,
						strconv.FormatFloat(l.Hours, 'f', -1, 64), formatter.Check(l.Approved),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable(
					[]string{"ID", "DATE", "PROJECT", "HOURS", "APPROVED"}, rows))
				return nil
			},
		},
		&cobra.Command{
			Use:   "approve <id>",
			Short: "Approve a time log",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				outcome, err := app.TimeLogs.Approve(cmd.Context(), employeeID, args[0])
				return report(cmd, "time log "+args[0]+" approve", outcome, err)
			},
		},
	)
	return cmd
}
