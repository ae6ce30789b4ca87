package core

import (
	"errors"
	"time"

	"bizdash/internal/normalize"
)

// Project statuses accepted by the status sub-resource.
const (
	StatusNotStarted = "NOT_STARTED"
	StatusInProgress = "IN_PROGRESS"
	StatusOnHold     = "ON_HOLD"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// Invoice statuses set locally before the backend confirms.
const (
	InvoiceStatusPaid = "PAID"
	InvoiceStatusSent = "SENT"
)

// Field names the mutation paths write.
const (
	FieldProgress      = "progressPercent"
	FieldProjectStatus = "projectStatus"
	FieldPinned        = "pinned"
	FieldArchived      = "archived"
	FieldInvoiceStatus = "status"
	FieldStage         = "stage"
	FieldApproved      = "approved"
	FieldPaidAmount    = "paidAmount"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrEmptyID         = errors.New("empty id")
	ErrUnknownResource = errors.New("unknown resource")
	ErrInvalidScope    = errors.New("invalid scope")
)

var projectStatuses = map[string]bool{
	StatusNotStarted: true,
	StatusInProgress: true,
	StatusOnHold:     true,
	StatusCompleted:  true,
	StatusCancelled:  true,
}

// ValidateProjectStatus rejects statuses the backend does not know.
func ValidateProjectStatus(s string) error {
	if !projectStatuses[s] {
		return ErrInvalidStatus
	}
	return nil
}

type (
	Client struct {
		ID    string
		Name  string
		Email string
	}

	Project struct {
		ID        string
		ClientID  string
		Name      string
		Status    string
		Progress  int
		Pinned    bool
		Archived  bool
		StartDate time.Time
		EndDate   time.Time
	}

	Invoice struct {
		ID       string
		Number   string
		ClientID string
		Status   string
		Total    Money
		Paid     Money
		DueDate  time.Time
		Issued   time.Time
	}

	CreditNote struct {
		ID        string
		Number    string
		InvoiceID string
		Amount    Money
		Reason    string
		Issued    time.Time
	}

	Payment struct {
		ID        string
		InvoiceID string
		Amount    Money
		Method    string
		PaidAt    time.Time
	}

	Deal struct {
		ID    string
		Title string
		Stage string
		Value Money
		Owner string
	}

	TimeLog struct {
		ID         string
		EmployeeID string
		ProjectID  string
		Date       time.Time
		Hours      float64
		Approved   bool
	}

	InvoiceStats struct {
		TotalInvoiced Money
		TotalPaid     Money
		Outstanding   Money
		Overdue       int
	}
)

// InvoiceStatsFields are the field names that mark an object as invoice stats.
var InvoiceStatsFields = []string{"totalInvoiced", "total_invoiced", "totalPaid", "outstanding", "overdueCount"}

func ClientFromEntity(e Entity) Client {
	return Client{
		ID:    e.ID(registry[Clients].IDKeys...),
		Name:  normalize.String(e, "name", "companyName", "clientName"),
		Email: normalize.String(e, "email", "contactEmail"),
	}
}

func ProjectFromEntity(e Entity) Project {
	return Project{
		ID:        e.ID(registry[Projects].IDKeys...),
		ClientID:  normalize.String(e, "clientId", "client_id", "client"),
		Name:      normalize.String(e, "name", "projectName", "title"),
		Status:    normalize.String(e, FieldProjectStatus, "status", "state"),
		Progress:  normalize.Percent(e, FieldProgress, "progress", "percentComplete"),
		Pinned:    normalize.Bool(e, FieldPinned, "isPinned"),
		Archived:  normalize.Bool(e, FieldArchived, "isArchived"),
		StartDate: normalize.Time(e, "startDate", "start_date", "start"),
		EndDate:   normalize.Time(e, "endDate", "end_date", "deadline", "end"),
	}
}

func InvoiceFromEntity(e Entity) Invoice {
	return Invoice{
		ID:       e.ID(registry[Invoices].IDKeys...),
		Number:   normalize.String(e, "invoiceNumber", "number", "invoice_number"),
		ClientID: normalize.String(e, "clientId", "client_id"),
		Status:   normalize.String(e, FieldInvoiceStatus, "invoiceStatus", "state"),
		Total:    MoneyFromAmount(normalize.Number(e, "total", "totalAmount", "amount")),
		Paid:     MoneyFromAmount(normalize.Number(e, "paidAmount", "amountPaid", "paid")),
		DueDate:  normalize.Time(e, "dueDate", "due_date", "due"),
		Issued:   normalize.Time(e, "issueDate", "issuedAt", "date"),
	}
}

// Balance is what is still owed on the invoice.
func (i Invoice) Balance() Money {
	if i.Paid.Cents >= i.Total.Cents {
		return Money{}
	}
	return Money{Cents: i.Total.Cents - i.Paid.Cents}
}

func CreditNoteFromEntity(e Entity) CreditNote {
	return CreditNote{
		ID:        e.ID(registry[CreditNotes].IDKeys...),
		Number:    normalize.String(e, "creditNoteNumber", "number"),
		InvoiceID: normalize.String(e, "invoiceId", "invoice_id", "invoice"),
		Amount:    MoneyFromAmount(normalize.Number(e, "amount", "total")),
		Reason:    normalize.String(e, "reason", "description", "note"),
		Issued:    normalize.Time(e, "issueDate", "createdAt", "date"),
	}
}

func PaymentFromEntity(e Entity) Payment {
	return Payment{
		ID:        e.ID(registry[Payments].IDKeys...),
		InvoiceID: normalize.String(e, "invoiceId", "invoice_id"),
		Amount:    MoneyFromAmount(normalize.Number(e, "amount", "paidAmount")),
		Method:    normalize.String(e, "method", "paymentMethod"),
		PaidAt:    normalize.Time(e, "paidAt", "paymentDate", "date"),
	}
}

func DealFromEntity(e Entity) Deal {
	return Deal{
		ID:    e.ID(registry[Deals].IDKeys...),
		Title: normalize.String(e, "title", "name", "dealName"),
		Stage: normalize.String(e, FieldStage, "status", "pipelineStage"),
		Value: MoneyFromAmount(normalize.Number(e, "value", "amount", "dealValue")),
		Owner: normalize.String(e, "owner", "ownerName", "assignee"),
	}
}

func TimeLogFromEntity(e Entity) TimeLog {
	return TimeLog{
		ID:         e.ID(registry[TimeLogs].IDKeys...),
		EmployeeID: normalize.String(e, "employeeId", "employee_id", "employee"),
		ProjectID:  normalize.String(e, "projectId", "project_id", "project"),
		Date:       normalize.Time(e, "date", "workDate", "day"),
		Hours:      normalize.Number(e, "hours", "duration", "hoursWorked"),
		Approved:   normalize.Bool(e, FieldApproved, "isApproved"),
	}
}

func InvoiceStatsFromObject(obj map[string]any) InvoiceStats {
	return InvoiceStats{
		TotalInvoiced: MoneyFromAmount(normalize.Number(obj, "totalInvoiced", "total_invoiced", "invoiced")),
		TotalPaid:     MoneyFromAmount(normalize.Number(obj, "totalPaid", "total_paid", "paid")),
		Outstanding:   MoneyFromAmount(normalize.Number(obj, "outstanding", "totalOutstanding", "due")),
		Overdue:       normalize.Int(obj, "overdueCount", "overdue"),
	}
}
