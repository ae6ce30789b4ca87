package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bizdash/internal/cli/formatter"
	"bizdash/internal/remote"
)

func newProjectsCmd(app *App) *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List and edit projects",
	}
	cmd.PersistentFlags().StringVar(&clientID, "client", "", "client ID whose projects to use (all projects when empty)")

	cmd.AddCommand(
		newProjectListCmd(app, &clientID),
		newProjectGetCmd(app),
		newProjectStatusCmd(app, &clientID),
		newProjectProgressCmd(app, &clientID),
		newProjectToggleCmd(app, &clientID, "pin", "Pin or unpin a project"),
		newProjectToggleCmd(app, &clientID, "archive", "Archive or restore a project"),
		newProjectDeleteCmd(app, &clientID),
		newProjectUploadCmd(app),
	)
	return cmd
}

func newProjectListCmd(app *App, clientID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, err := app.Projects.List(cmd.Context(), *clientID)
			if err != nil {
				return userError("list projects", err)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No projects."))
				return nil
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{
					p.ID, p.Name, p.Status, strconv.Itoa(p.Progress) + "%",
					formatter.Check(p.Pinned), formatter.Check(p.Archived), date(p.EndDate),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable(
				[]string{"ID", "NAME", "STATUS", "PROGRESS", "PINNED", "ARCHIVED", "DUE"}, rows))
			return nil
		},
	}
}

func newProjectGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Projects.Get(cmd.Context(), args[0])
			if err != nil {
				return userError("get project", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", p.ID, p.Name)
			fmt.Fprintf(out, "status:   %s\n", p.Status)
			fmt.Fprintf(out, "progress: %d%%\n", p.Progress)
			fmt.Fprintf(out, "client:   %s\n", p.ClientID)
			return nil
		},
	}
}

func newProjectStatusCmd(app *App, clientID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change a project's status (NOT_STARTED, IN_PROGRESS, ON_HOLD, COMPLETED, CANCELLED)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := strings.ToUpper(args[1])
			outcome, err := app.Projects.ChangeStatus(cmd.Context(), *clientID, args[0], status)
			return report(cmd, "project "+args[0]+" status "+status, outcome, err)
		},
	}
}

func newProjectProgressCmd(app *App, clientID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id> <percent>",
		Short: "Set a project's progress; values are clamped to 0-100",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(strings.TrimSuffix(args[1], "%"), 64)
			if err != nil {
				return fmt.Errorf("invalid percent %q", args[1])
			}
			outcome, err := app.Projects.SetProgress(cmd.Context(), *clientID, args[0], v)
			return report(cmd, "project "+args[0]+" progress", outcome, err)
		},
	}
}

func newProjectToggleCmd(app *App, clientID *string, name, short string) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toggle := app.Projects.Pin
			if name == "archive" {
				toggle = app.Projects.Archive
			}
			outcome, err := toggle(cmd.Context(), *clientID, args[0], !off)
			what := "project " + args[0] + " " + name
			if off {
				what = "project " + args[0] + " un" + name
			}
			return report(cmd, what, outcome, err)
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "undo instead")
	return cmd
}

func newProjectDeleteCmd(app *App, clientID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := app.Projects.Delete(cmd.Context(), *clientID, args[0])
			return report(cmd, "project "+args[0]+" delete", outcome, err)
		},
	}
}

func newProjectUploadCmd(app *App) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "upload <id> <file>",
		Short: "Attach a file to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := parseFields(fields)
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := app.Projects.UploadFile(cmd.Context(), args[0], remote.Upload{
				Filename: filepath.Base(args[1]),
				Content:  f,
				Fields:   meta,
			})
			if err != nil {
				return userError("upload", err)
			}
			if res.URL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Uploaded.")
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&fields, "field", nil, "extra form field as key=value (repeatable)")
	return cmd
}

func parseFields(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q, want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
