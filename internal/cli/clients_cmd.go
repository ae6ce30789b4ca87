package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bizdash/internal/cli/formatter"
)

func newClientsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clients, err := app.Clients.List(cmd.Context())
			if err != nil {
				return userError("list clients", err)
			}
			if len(clients) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No clients."))
				return nil
			}
			rows := make([][]string, 0, len(clients))
			for _, c := range clients {
				rows = append(rows, []string{c.ID, c.Name, c.Email})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"ID", "NAME", "EMAIL"}, rows))
			return nil
		},
	}
}
