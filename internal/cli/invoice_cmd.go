package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bizdash/internal/cli/formatter"
	"bizdash/internal/core"
)

func newInvoicesCmd(app *App) *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:     "invoices",
		Aliases: []string{"invoice"},
		Short:   "List invoices, record payments and issue credit notes",
	}
	cmd.PersistentFlags().StringVar(&clientID, "client", "", "client ID whose invoices to use")

	cmd.AddCommand(
		newInvoiceListCmd(app, &clientID),
		newInvoiceStatsCmd(app, &clientID),
		newInvoiceMarkPaidCmd(app, &clientID),
		newInvoiceRemindCmd(app),
		newInvoicePayCmd(app, &clientID),
		newInvoicePaymentsCmd(app),
		newInvoiceCreditNoteCmd(app, &clientID),
		newCreditNotesCmd(app, &clientID),
		newInvoiceDeleteCmd(app, &clientID),
		newInvoiceExportCmd(app, &clientID),
	)
	return cmd
}

func newInvoiceListCmd(app *App, clientID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List a client's invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			invoices, err := app.Invoices.ListByClient(cmd.Context(), *clientID)
			if err != nil {
				return userError("list invoices", err)
			}
			if len(invoices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No invoices."))
				return nil
			}
			rows := make([][]string, 0, len(invoices))
			for _, inv := range invoices {
				rows = append(rows, []string{
					inv.ID, inv.Number, inv.Status, date(inv.DueDate),
					inv.Total.FormatEuros(), inv.Paid.FormatEuros(), inv.Balance().FormatEuros(),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable(
				[]string{"ID", "NUMBER", "STATUS", "DUE", "TOTAL", "PAID", "BALANCE"}, rows))
			return nil
		},
	}
}

func newInvoiceStatsCmd(app *App, clientID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show invoicing totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.Invoices.Stats(cmd.Context(), *clientID)
			if err != nil {
				return userError("invoice stats", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "invoiced:    %s\n", s.TotalInvoiced.FormatEuros())
			fmt.Fprintf(out, "paid:        %s\n", s.TotalPaid.FormatEuros())
			fmt.Fprintf(out, "outstanding: %s\n", s.Outstanding.FormatEuros())
			fmt.Fprintf(out, "overdue:     %d\n", s.Overdue)
			return nil
		},
	}
}

func newInvoiceMarkPaidCmd(app *App, clientID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-paid <id>",
		Short: "Mark an invoice as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := app.Invoices.MarkPaid(cmd.Context(), *clientID, args[0])
			return report(cmd, "invoice "+args[0]+" mark-paid", outcome, err)
		},
	}
}

func newInvoiceRemindCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remind <id>",
		Short: "Send a payment reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Invoices.SendReminder(cmd.Context(), args[0]); err != nil {
				return userError("send reminder", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reminder sent for invoice %s.\n", args[0])
			return nil
		},
	}
}

func newInvoicePayCmd(app *App, clientID *string) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "pay <id> <amount>",
		Short: "Record a payment (amount in euros, 12.34 or 12,34)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := core.ParseDecimalToCents(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			outcome, err := app.Invoices.RecordPayment(cmd.Context(), *clientID, args[0], core.Money{Cents: cents}, method)
			return report(cmd, "invoice "+args[0]+" payment "+core.Money{Cents: cents}.FormatEuros(), outcome, err)
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "payment method, e.g. bank or card")
	return cmd
}

func newInvoicePaymentsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "payments <id>",
		Short: "List the payments recorded against an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payments, err := app.Invoices.Payments(cmd.Context(), args[0])
			if err != nil {
				return userError("list payments", err)
			}
			rows := make([][]string, 0, len(payments))
			for _, p := range payments {
				rows = append(rows, []string{p.ID, date(p.PaidAt), p.Amount.FormatEuros(), p.Method})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable(
				[]string{"ID", "PAID", "AMOUNT", "METHOD"}, rows))
			return nil
		},
	}
}

func newInvoiceCreditNoteCmd(app *App, clientID *string) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "credit-note <id> <amount>",
		Short: "Issue a credit note against an invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := core.ParseDecimalToCents(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			outcome, err := app.Invoices.IssueCreditNote(cmd.Context(), *clientID, args[0], core.Money{Cents: cents}, reason)
			return report(cmd, "invoice "+args[0]+" credit note", outcome, err)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason shown on the credit note")
	return cmd
}

func newCreditNotesCmd(app *App, clientID *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credit-notes",
		Short: "List a client's credit notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notes, err := app.CreditNotes.ListByClient(cmd.Context(), *clientID)
			if err != nil {
				return userError("list credit notes", err)
			}
			rows := make([][]string, 0, len(notes))
			for _, n := range notes {
				rows = append(rows, []string{n.ID, n.Number, n.InvoiceID, n.Amount.FormatEuros(), n.Reason})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable(
				[]string{"ID", "NUMBER", "INVOICE", "AMOUNT", "REASON"}, rows))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a credit note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := app.CreditNotes.Delete(cmd.Context(), *clientID, args[0])
			return report(cmd, "credit note "+args[0]+" delete", outcome, err)
		},
	})
	return cmd
}

func newInvoiceDeleteCmd(app *App, clientID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := app.Invoices.Delete(cmd.Context(), *clientID, args[0])
			return report(cmd, "invoice "+args[0]+" delete", outcome, err)
		},
	}
}

func newInvoiceExportCmd(app *App, clientID *string) *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a client's invoices to the configured spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.Sheets == nil {
				return ErrExportDisabled
			}
			if sheet == "" {
				sheet = app.Config.GoogleSheetName
			}
			ref, err := app.Invoices.ExportInvoices(cmd.Context(), app.Sheets, sheet, *clientID)
			if err != nil {
				return userError("export invoices", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s.\n", ref)
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name (default GOOGLE_SHEET_NAME)")
	return cmd
}
