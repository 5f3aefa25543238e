package log

import (
	"errors"
	"sort"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
	FieldProjectID     = "project_id"
	FieldPaymentID     = "payment_id"
	FieldInstallmentID = "installment_id"
	FieldQuoteID       = "quote_id"
	FieldItemID        = "item_id"
	FieldOwnerID       = "owner_id"
	FieldAmountCents   = "amount_cents"
	FieldInstallments  = "installments"
	FieldEventType     = "event_type"
	FieldSheetsRef     = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentScheduler = "scheduler"
	ComponentSummary   = "summary"
	ComponentQuotes    = "quotes"
	ComponentPayments  = "payments"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpList     = "list"
	OpSchedule = "schedule"
	OpSummary  = "summary"
	OpSelect   = "select"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// ErrorTypeOf classifies err by its core error kind.
func ErrorTypeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrStore):
		return ErrorTypeDatabase
	default:
		return ErrorTypeInternal
	}
}

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error and error type fields
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = ErrorTypeOf(err)
	}
	return f
}

// WithProject adds the project id
func (f LogFields) WithProject(projectID string) LogFields {
	f[FieldProjectID] = projectID
	return f
}

// WithPayment adds payment-related fields
func (f LogFields) WithPayment(p core.Payment) LogFields {
	f[FieldPaymentID] = p.ID
	f[FieldProjectID] = p.ProjectID
	f[FieldAmountCents] = p.PayableAmount().Cents
	f[FieldInstallments] = p.NumInstallments
	return f
}

// ToSlice converts LogFields to a slice for slog, sorted by key.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
