// Package ledger declares the Ledger Store collaborator consumed by the
// reconciliation engine. Implementations live in ledger/memory and storage.
package ledger

import (
	"context"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
)

// Ordering for installment queries.
const (
	OrderByNumber  = "installment_number"
	OrderByDueDate = "due_date"
)

type (
	// Range is an optional offset/limit window; a zero Limit means no limit.
	Range struct {
		Offset int
		Limit  int
	}

	PaymentFilter struct {
		ProjectID string
		ItemID    string
		// WithItemOnly restricts the result to payments linked to an item.
		WithItemOnly bool
		Range        Range
	}

	InstallmentFilter struct {
		// ProjectID selects installments transitively through their payments.
		ProjectID  string
		PaymentIDs []string
		Status     core.InstallmentStatus
		OrderBy    string
		Range      Range
	}

	InstallmentPatch struct {
		Status        *core.InstallmentStatus
		PaidDate      *core.Date
		ClearPaidDate bool
		PaymentMethod *string
	}
)

// Ports for the ledger store.
type (
	PaymentStore interface {
		InsertPayment(ctx context.Context, p core.Payment) (core.Payment, error)
		GetPayment(ctx context.Context, id string) (core.Payment, error)
		ListPayments(ctx context.Context, f PaymentFilter) ([]core.Payment, error)
	}

	InstallmentStore interface {
		// InsertInstallments stores the whole batch or nothing.
		InsertInstallments(ctx context.Context, in []core.Installment) ([]core.Installment, error)
		GetInstallment(ctx context.Context, id string) (core.Installment, error)
		ListInstallments(ctx context.Context, f InstallmentFilter) ([]core.Installment, error)
		UpdateInstallment(ctx context.Context, id string, patch InstallmentPatch) (core.Installment, error)
	}

	ItemStore interface {
		InsertItem(ctx context.Context, it core.Item) (core.Item, error)
		ListItems(ctx context.Context, projectID string) ([]core.Item, error)
	}

	QuoteStore interface {
		InsertQuote(ctx context.Context, q core.Quote) (core.Quote, error)
		GetQuote(ctx context.Context, id string) (core.Quote, error)
		ListQuotes(ctx context.Context, projectID string) ([]core.Quote, error)
		// SelectQuote marks quoteID chosen and every other quote of the
		// project not chosen, as one atomic store-side operation.
		SelectQuote(ctx context.Context, quoteID, projectID string) (core.Quote, error)
	}

	// Store is the full ledger.
	Store interface {
		PaymentStore
		InstallmentStore
		ItemStore
		QuoteStore
		Close() error
	}
)

// Apply returns in with patch applied.
func (p InstallmentPatch) Apply(in core.Installment) core.Installment {
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.ClearPaidDate {
		in.PaidDate = nil
	}
	if p.PaidDate != nil {
		d := *p.PaidDate
		in.PaidDate = &d
	}
	if p.PaymentMethod != nil {
		in.PaymentMethod = *p.PaymentMethod
	}
	return in
}

// Window applies r to a slice length, returning the [lo, hi) bounds.
func (r Range) Window(n int) (int, int) {
	lo := r.Offset
	if lo < 0 {
		lo = 0
	}
	if lo > n {
		lo = n
	}
	hi := n
	if r.Limit > 0 && lo+r.Limit < n {
		hi = lo + r.Limit
	}
	return lo, hi
}
