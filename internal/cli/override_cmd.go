package cli

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"bizdash/internal/cli/formatter"
)

func newOverridesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Inspect locally pinned values that have not been confirmed yet",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List pinned values",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				ids := app.Overrides.IDs(ctx)
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No pending overrides."))
					return nil
				}
				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					v, _ := app.Overrides.Get(ctx, id)
					rows = append(rows, []string{id, app.Overrides.Field(), cast.ToString(v)})
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"ID", "FIELD", "VALUE"}, rows))
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear [id]",
			Short: "Drop one pinned value, or all of them",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if len(args) == 1 {
					if err := app.Overrides.Clear(ctx, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared override for %s.\n", args[0])
					return nil
				}
				if err := app.Overrides.ClearAll(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cleared all overrides.")
				return nil
			},
		},
	)
	return cmd
}
