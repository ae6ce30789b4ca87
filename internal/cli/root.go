package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bizdash/internal/cli/formatter"
	"bizdash/internal/optimistic"
	"bizdash/internal/remote"
)

// NewRootCmd creates the top-level "bizdash" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "bizdash",
		Short:         "Business dashboard client with optimistic local edits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(app),
		newLogoutCmd(app),
		newClientsCmd(app),
		newProjectsCmd(app),
		newInvoicesCmd(app),
		newDealsCmd(app),
		newTimeLogsCmd(app),
		newOverridesCmd(app),
		newWatchCmd(app),
	)

	return root
}

// report prints a settled mutation or turns its failure into the message the
// user should see.
func report(cmd *cobra.Command, what string, outcome optimistic.Outcome, err error) error {
	if err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", what, formatter.Outcome(outcome))
		return nil
	}
	return userError(what, err)
}

func userError(what string, err error) error {
	var oerr *optimistic.Error
	switch {
	case errors.Is(err, optimistic.ErrSessionExpired), remote.IsAuthFailure(err):
		return fmt.Errorf("%s: session expired, run `bizdash login` again", what)
	case errors.As(err, &oerr):
		return fmt.Errorf("%s failed: %s", what, oerr.Message())
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
