package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdash/internal/core"
	"bizdash/internal/optimistic"
	"bizdash/internal/remote/remotetest"
	"bizdash/internal/services"
	"bizdash/internal/sheets/memory"
)

const clientInvoices = `[
	{"id":"INV-1","invoiceNumber":"2024-001","clientId":"42","status":"SENT","total":"120.50","paidAmount":20,"issueDate":"2024-03-01","dueDate":"2024-03-31"},
	{"id":"INV-2","invoiceNumber":"2024-002","clientId":"42","status":"PAID","total":80,"paidAmount":80}
]`

func invoiceFixture(t *testing.T) (*fixture, *services.InvoiceService) {
	t.Helper()
	f := newFixture(t)
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/invoices/client/42"),
		httpmock.NewStringResponder(http.StatusOK, clientInvoices))
	return f, services.NewInvoiceService(f.deps)
}

func TestInvoiceService_ListByClient(t *testing.T) {
	_, svc := invoiceFixture(t)

	got, err := svc.ListByClient(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(12050), got[0].Total.Cents)
	assert.Equal(t, int64(10050), got[0].Balance().Cents)
	assert.Equal(t, int64(0), got[1].Balance().Cents)
}

func TestInvoiceService_MarkPaid(t *testing.T) {
	f, svc := invoiceFixture(t)
	f.env.Mock.RegisterResponder(http.MethodPost, remotetest.URL("/invoices/INV-1/mark-paid"),
		f.capture(http.StatusOK, `{"data":{"id":"INV-1","status":"PAID","paidAmount":120.5}}`))

	outcome, err := svc.MarkPaid(context.Background(), "42", "INV-1")
	require.NoError(t, err)
	assert.Equal(t, optimistic.Merged, outcome)

	inv := core.InvoiceFromEntity(f.list(t, svc.Scope("42"))[0])
	assert.Equal(t, core.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, int64(12050), inv.Paid.Cents)
	assert.Nil(t, f.body(http.MethodPost, "/invoices/INV-1/mark-paid"))
}

func TestInvoiceService_MarkPaidRollsBack(t *testing.T) {
	f, svc := invoiceFixture(t)
	f.env.Mock.RegisterResponder(http.MethodPost, remotetest.URL("/invoices/INV-1/mark-paid"),
		httpmock.NewErrorResponder(errors.New("connection reset")))

	_, err := svc.ListByClient(context.Background(), "42")
	require.NoError(t, err)
	before := f.list(t, svc.Scope("42"))

	outcome, err := svc.MarkPaid(context.Background(), "42", "INV-1")
	assert.Equal(t, optimistic.RolledBack, outcome)
	var oerr *optimistic.Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, "could not reach the server", oerr.Message())

	if diff := cmp.Diff(before, f.list(t, svc.Scope("42"))); diff != "" {
		t.Errorf("state not restored (-want +got):\n%s", diff)
	}
}

func TestInvoiceService_RecordPayment(t *testing.T) {
	f, svc := invoiceFixture(t)
	f.env.Mock.RegisterResponder(http.MethodPost, remotetest.URL("/invoices/INV-1/payments"),
		f.capture(http.StatusCreated, `{"id":"PAY-9","invoiceId":"INV-1","amount":100.5}`))

	outcome, err := svc.RecordPayment(context.Background(), "42", "INV-1", core.Money{Cents: 10050}, " bank ")
	require.NoError(t, err)
	// the reply is a payment, not the invoice, so the list is reloaded
	assert.Equal(t, optimistic.Refetched, outcome)
	assert.Equal(t, map[string]any{"amount": 100.5, "method": "bank"}, f.body(http.MethodPost, "/invoices/INV-1/payments"))
	assert.Equal(t, 2, f.env.Calls(http.MethodGet, "/invoices/client/42"))

	_, err = svc.RecordPayment(context.Background(), "42", "INV-1", core.Money{}, "")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestInvoiceService_RecordPaymentOptimisticValue(t *testing.T) {
	f, svc := invoiceFixture(t)
	f.env.Mock.RegisterResponder(http.MethodPost, remotetest.URL("/invoices/INV-1/payments"),
		f.capture(http.StatusNoContent, ""))
	// the refetch fails, so the optimistic value is what remains
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/invoices/client/42"),
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			httpmock.NewStringResponse(http.StatusOK, clientInvoices),
			httpmock.NewStringResponse(http.StatusBadGateway, ""),
		}))

	outcome, err := svc.RecordPayment(context.Background(), "42", "INV-1", core.Money{Cents: 10050}, "")
	require.NoError(t, err)
	assert.Equal(t, optimistic.Committed, outcome)

	inv := core.InvoiceFromEntity(f.list(t, svc.Scope("42"))[0])
	assert.Equal(t, int64(12050), inv.Paid.Cents)
	assert.Equal(t, core.InvoiceStatusPaid, inv.Status)
}

func TestInvoiceService_PaymentsReloadAfterPayment(t *testing.T) {
	f, svc := invoiceFixture(t)
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/payments/invoice/INV-1"),
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			httpmock.NewStringResponse(http.StatusOK, `{"payments":[{"id":"PAY-1","invoiceId":"INV-1","amount":"20","method":"card","paidAt":"2024-03-05"}]}`),
			httpmock.NewStringResponse(http.StatusOK, `{"payments":[{"id":"PAY-1","amount":20},{"id":"PAY-2","amount":5}]}`),
		}))
	f.env.Mock.RegisterResponder(http.MethodPost, remotetest.URL("/invoices/INV-1/payments"),
		f.capture(http.StatusCreated, `{"id":"PAY-2","amount":5}`))

	ctx := context.Background()
	got, err := svc.Payments(ctx, "INV-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.Payment{
		ID: "PAY-1", InvoiceID: "INV-1", Amount: core.Money{Cents: 2000}, Method: "card",
		PaidAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}, got[0])

	_, err = svc.RecordPayment(ctx, "42", "INV-1", core.Money{Cents: 500}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, f.env.Calls(http.MethodGet, "/payments/invoice/INV-1"))
	assert.Len(t, f.list(t, svc.PaymentsScope("INV-1")), 2)

	_, err = svc.Payments(ctx, "")
	assert.ErrorIs(t, err, core.ErrEmptyID)
}

func TestInvoiceService_IssueCreditNote(t *testing.T) {
	f, svc := invoiceFixture(t)
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/credit-notes/client/42"),
		httpmock.NewStringResponder(http.StatusOK, `{"creditNotes":[{"id":"CN-1","invoiceId":"INV-1","amount":10}]}`))
	f.env.Mock.RegisterResponder(http.MethodPost, remotetest.URL("/invoices/INV-1/credit-note"),
		f.capture(http.StatusCreated, `{"id":"CN-2","invoiceId":"INV-1","amount":20}`))

	ctx := context.Background()
	notes := services.NewCreditNoteService(f.deps)
	_, err := notes.ListByClient(ctx, "42")
	require.NoError(t, err)

	outcome, err := svc.IssueCreditNote(ctx, "42", "INV-1", core.Money{Cents: 2000}, "discount")
	require.NoError(t, err)
	assert.Equal(t, optimistic.Refetched, outcome)
	assert.Equal(t, map[string]any{"amount": float64(20), "reason": "discount"}, f.body(http.MethodPost, "/invoices/INV-1/credit-note"))
	assert.Equal(t, 2, f.env.Calls(http.MethodGet, "/credit-notes/client/42"))
}

func TestInvoiceService_SendReminder(t *testing.T) {
	f, svc := invoiceFixture(t)
	f.env.Mock.RegisterResponder(http.MethodPost, remotetest.URL("/invoices/INV-1/reminder"),
		httpmock.NewStringResponder(http.StatusAccepted, ""))

	require.NoError(t, svc.SendReminder(context.Background(), "INV-1"))
	assert.Equal(t, 1, f.env.Calls(http.MethodPost, "/invoices/INV-1/reminder"))
	assert.ErrorIs(t, svc.SendReminder(context.Background(), ""), core.ErrEmptyID)
}

func TestInvoiceService_Stats(t *testing.T) {
	tests := []struct {
		name string
		body string
		want core.InvoiceStats
	}{
		{
			name: "plain object",
			body: `{"totalInvoiced":200.5,"totalPaid":100,"outstanding":100.5,"overdueCount":2}`,
			want: core.InvoiceStats{
				TotalInvoiced: core.Money{Cents: 20050},
				TotalPaid:     core.Money{Cents: 10000},
				Outstanding:   core.Money{Cents: 10050},
				Overdue:       2,
			},
		},
		{
			name: "wrapped in data",
			body: `{"data":{"total_invoiced":"10","overdue":"1"}}`,
			want: core.InvoiceStats{TotalInvoiced: core.Money{Cents: 1000}, Overdue: 1},
		},
		{
			name: "unrelated object",
			body: `{"ok":true}`,
			want: core.InvoiceStats{},
		},
		{
			name: "garbage",
			body: `<html>oops</html>`,
			want: core.InvoiceStats{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/invoices/stats"),
				httpmock.NewStringResponder(http.StatusOK, tt.body))

			got, err := services.NewInvoiceService(f.deps).Stats(context.Background(), "42")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoiceService_DeleteAndCreditNoteDelete(t *testing.T) {
	f, svc := invoiceFixture(t)
	f.env.Mock.RegisterResponder(http.MethodDelete, remotetest.URL("/invoices/INV-2"),
		httpmock.NewStringResponder(http.StatusForbidden, `{"error":"paid invoices cannot be deleted"}`))
	f.env.Mock.RegisterResponder(http.MethodGet, remotetest.URL("/credit-notes/client/42"),
		httpmock.NewStringResponder(http.StatusOK, `[{"id":"CN-1"},{"id":"CN-2"}]`))
	f.env.Mock.RegisterResponder(http.MethodDelete, remotetest.URL("/credit-notes/CN-1"),
		httpmock.NewStringResponder(http.StatusOK, `{"id":"CN-1","deleted":true}`))

	ctx := context.Background()
	outcome, err := svc.Delete(ctx, "42", "INV-2")
	assert.Equal(t, optimistic.RolledBack, outcome)
	require.Error(t, err)
	ids := []string{}
	for _, e := range f.list(t, svc.Scope("42")) {
		ids = append(ids, e.ID())
	}
	assert.Equal(t, []string{"INV-1", "INV-2"}, ids)

	notes := services.NewCreditNoteService(f.deps)
	outcome, err = notes.Delete(ctx, "42", "CN-1")
	require.NoError(t, err)
	assert.Equal(t, optimistic.Committed, outcome)
	list := f.list(t, notes.Scope("42"))
	require.Len(t, list, 1)
	assert.Equal(t, "CN-2", list[0].ID())
}

func TestInvoiceService_ExportInvoices(t *testing.T) {
	_, svc := invoiceFixture(t)
	w := memory.New()

	ref, err := svc.ExportInvoices(context.Background(), w, "Invoices", "42")
	require.NoError(t, err)
	assert.Equal(t, "mem:Invoices!3", ref)

	want := [][]string{
		services.InvoiceExportHeader,
		{"2024-001", "42", "SENT", "2024-03-01", "2024-03-31", "120.50", "20.00", "100.50"},
		{"2024-002", "42", "PAID", "", "", "80.00", "80.00", "0.00"},
	}
	if diff := cmp.Diff(want, w.Sheet("Invoices")); diff != "" {
		t.Errorf("exported rows mismatch (-want +got):\n%s", diff)
	}
}
