package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/optimistic"
	"bizdash/internal/remote"
	"bizdash/internal/sheets"
)

// InvoiceService handles a client's invoices and the credit notes and payments
// hanging off them.
type InvoiceService struct {
	base
}

func NewInvoiceService(d Deps) *InvoiceService {
	return &InvoiceService{base: newBase(d)}
}

func (s *InvoiceService) Scope(clientID string) core.Scope {
	return scopeFor(core.Invoices, "client", clientID)
}

func (s *InvoiceService) ListByClient(ctx context.Context, clientID string) ([]core.Invoice, error) {
	list, err := s.list(ctx, s.Scope(clientID))
	if err != nil {
		return nil, err
	}
	out := make([]core.Invoice, 0, len(list))
	for _, e := range list {
		out = append(out, core.InvoiceFromEntity(e))
	}
	return out, nil
}

// MarkPaid shows the invoice as paid right away and confirms with
// POST /invoices/{id}/mark-paid.
func (s *InvoiceService) MarkPaid(ctx context.Context, clientID, id string) (optimistic.Outcome, error) {
	scope := s.Scope(clientID)
	return s.mutate(ctx, optimistic.Mutation{
		Scope:   scope,
		ID:      id,
		Patch:   map[string]any{core.FieldInvoiceStatus: core.InvoiceStatusPaid},
		Request: action(scope, http.MethodPost, id, "mark-paid", nil),
	})
}

// SendReminder asks the backend to email the client. Local state is untouched.
func (s *InvoiceService) SendReminder(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	path := core.MustResource(core.Invoices).ActionPath(id, "reminder")
	if _, err := s.client.Do(ctx, remote.Request{Method: http.MethodPost, Path: path}); err != nil {
		return wrap("send reminder for invoice", id, err)
	}
	s.logger.InfoContext(ctx, "Reminder sent", log.FieldEntityID, id)
	return nil
}

// RecordPayment registers amount against the invoice. The paid amount grows
// locally; the backend's recomputed invoice wins once it answers.
func (s *InvoiceService) RecordPayment(ctx context.Context, clientID, id string, amount core.Money, method string) (optimistic.Outcome, error) {
	if err := amount.Validate(); err != nil {
		return optimistic.RolledBack, wrap("record payment for invoice", id, err)
	}
	scope := s.Scope(clientID)
	if _, err := s.sync.Ensure(ctx, scope); err != nil {
		return optimistic.RolledBack, err
	}

	patch := map[string]any{}
	if cur, err := s.ctrl.State().Get(scope, id); err == nil {
		inv := core.InvoiceFromEntity(cur)
		paid := core.Money{Cents: inv.Paid.Cents + amount.Cents}
		patch[core.FieldPaidAmount] = paid.Euros()
		if paid.Cents >= inv.Total.Cents && inv.Total.Cents > 0 {
			patch[core.FieldInvoiceStatus] = core.InvoiceStatusPaid
		}
	}

	body := map[string]any{"amount": amount.Euros()}
	if method = strings.TrimSpace(method); method != "" {
		body["method"] = method
	}
	outcome, err := s.ctrl.Run(ctx, optimistic.Mutation{
		Scope:   scope,
		ID:      id,
		Patch:   patch,
		Request: action(scope, http.MethodPost, id, "payments", body),
	})
	if err != nil || !outcome.Success() {
		return outcome, err
	}
	s.refreshIfLoaded(ctx, s.PaymentsScope(id))
	return outcome, nil
}

func (s *InvoiceService) PaymentsScope(invoiceID string) core.Scope {
	return scopeFor(core.Payments, "invoice", invoiceID)
}

// Payments lists the payments recorded against one invoice.
func (s *InvoiceService) Payments(ctx context.Context, invoiceID string) ([]core.Payment, error) {
	if err := requireID(invoiceID); err != nil {
		return nil, err
	}
	list, err := s.list(ctx, s.PaymentsScope(invoiceID))
	if err != nil {
		return nil, err
	}
	out := make([]core.Payment, 0, len(list))
	for _, e := range list {
		out = append(out, core.PaymentFromEntity(e))
	}
	return out, nil
}

func (s *InvoiceService) refreshIfLoaded(ctx context.Context, scope core.Scope) {
	if !s.ctrl.State().Loaded(scope) {
		return
	}
	if err := s.sync.Refresh(ctx, scope); err != nil {
		s.logger.WarnContext(ctx, "Failed to reload related list", log.FieldScope, scope.Key(), log.FieldError, err.Error())
	}
}

// IssueCreditNote creates a credit note against the invoice. The invoice list is
// reloaded from the backend, as is the client's credit note list when held.
func (s *InvoiceService) IssueCreditNote(ctx context.Context, clientID, id string, amount core.Money, reason string) (optimistic.Outcome, error) {
	if err := amount.Validate(); err != nil {
		return optimistic.RolledBack, wrap("issue credit note for invoice", id, err)
	}
	scope := s.Scope(clientID)
	body := map[string]any{"amount": amount.Euros()}
	if reason = strings.TrimSpace(reason); reason != "" {
		body["reason"] = reason
	}

	outcome, err := s.mutate(ctx, optimistic.Mutation{
		Scope:   scope,
		ID:      id,
		Patch:   map[string]any{},
		Request: action(scope, http.MethodPost, id, "credit-note", body),
	})
	if err != nil || !outcome.Success() {
		return outcome, err
	}

	s.refreshIfLoaded(ctx, scopeFor(core.CreditNotes, "client", clientID))
	return outcome, nil
}

func (s *InvoiceService) Delete(ctx context.Context, clientID, id string) (optimistic.Outcome, error) {
	scope := s.Scope(clientID)
	return s.mutate(ctx, optimistic.Mutation{
		Scope:   scope,
		ID:      id,
		Remove:  true,
		Request: remote.Request{Method: http.MethodDelete, Path: scope.Resource.EntityPath(id)},
	})
}

// Stats reads GET /invoices/stats. A reply without any stats field reads as zeros.
func (s *InvoiceService) Stats(ctx context.Context, clientID string) (core.InvoiceStats, error) {
	var q url.Values
	if clientID != "" {
		q = url.Values{"clientId": {clientID}}
	}
	obj, err := s.sync.Object(ctx, core.MustResource(core.Invoices).Path+"/stats", q, core.InvoiceStatsFields...)
	if err != nil {
		return core.InvoiceStats{}, err
	}
	return core.InvoiceStatsFromObject(obj), nil
}

// InvoiceExportHeader is the first row ExportInvoices writes.
var InvoiceExportHeader = []string{"Number", "Client", "Status", "Issued", "Due", "Total", "Paid", "Balance"}

// ExportInvoices writes the client's invoices to sheet and returns the writer's
// reference for the written range.
func (s *InvoiceService) ExportInvoices(ctx context.Context, w sheets.RowWriter, sheet, clientID string) (string, error) {
	invoices, err := s.ListByClient(ctx, clientID)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, invoiceRow(inv))
	}
	ref, err := w.WriteRows(ctx, sheet, InvoiceExportHeader, rows)
	if err != nil {
		return "", fmt.Errorf("export invoices: %w", err)
	}
	return ref, nil
}

func invoiceRow(inv core.Invoice) []string {
	number := inv.Number
	if number == "" {
		number = inv.ID
	}
	return []string{
		number,
		inv.ClientID,
		inv.Status,
		formatDate(inv.Issued),
		formatDate(inv.DueDate),
		amount(inv.Total),
		amount(inv.Paid),
		amount(inv.Balance()),
	}
}

// CreditNoteService lists and deletes a client's credit notes.
type CreditNoteService struct {
	base
}

func NewCreditNoteService(d Deps) *CreditNoteService {
	return &CreditNoteService{base: newBase(d)}
}

func (s *CreditNoteService) Scope(clientID string) core.Scope {
	return scopeFor(core.CreditNotes, "client", clientID)
}

func (s *CreditNoteService) ListByClient(ctx context.Context, clientID string) ([]core.CreditNote, error) {
	list, err := s.list(ctx, s.Scope(clientID))
	if err != nil {
		return nil, err
	}
	out := make([]core.CreditNote, 0, len(list))
	for _, e := range list {
		out = append(out, core.CreditNoteFromEntity(e))
	}
	return out, nil
}

func (s *CreditNoteService) Delete(ctx context.Context, clientID, id string) (optimistic.Outcome, error) {
	scope := s.Scope(clientID)
	return s.mutate(ctx, optimistic.Mutation{
		Scope:   scope,
		ID:      id,
		Remove:  true,
		Request: remote.Request{Method: http.MethodDelete, Path: scope.Resource.EntityPath(id)},
	})
}
