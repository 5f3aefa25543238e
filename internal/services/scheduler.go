// Package services provides the reconciliation engine: installment
// scheduling, project financial summaries, per-item payment summaries and
// exclusive quote selection.
package services

import (
	"fmt"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
)

// GenerateInstallments splits the payment's payable amount into
// NumInstallments monthly installments starting at firstDueDate.
//
// The base amount is payable/N rounded half-up to the cent. Installments
// 1..N-1 carry the base amount and the last one carries whatever balance is
// left, so the schedule sums to the payable amount exactly. Due dates keep
// the first due date's day of month, clamped to the end of shorter months.
//
// The function has no side effects; calling it twice yields two schedules,
// so callers own create-once semantics.
func GenerateInstallments(p core.Payment, firstDueDate core.Date, ownerID string) ([]core.Installment, error) {
	n := p.NumInstallments
	if n < 1 {
		return nil, core.NewValidationError("num_installments", fmt.Sprintf("must be at least 1, got %d", n))
	}
	payable := p.PayableAmount().Cents
	if payable < 0 {
		return nil, core.NewValidationError("amount", "payable amount must not be negative")
	}
	if firstDueDate.IsZero() {
		return nil, core.NewValidationError("first_due_date", "first due date is required")
	}

	base := divRoundHalfUp(payable, int64(n))
	last := payable - base*int64(n-1)
	// A positive payable must give every installment a positive amount.
	if last < 0 || (payable > 0 && (base <= 0 || last <= 0)) {
		return nil, core.NewValidationError("amount",
			fmt.Sprintf("%s cannot be split into %d installments", p.PayableAmount(), n))
	}

	out := make([]core.Installment, n)
	remaining := payable
	for i := 0; i < n; i++ {
		amount := base
		if i == n-1 {
			amount = remaining
		}
		remaining -= amount
		out[i] = core.Installment{
			PaymentID: p.ID,
			OwnerID:   ownerID,
			Number:    i + 1,
			Amount:    core.Money{Cents: amount},
			DueDate:   firstDueDate.AddMonthsClamped(i),
			Status:    core.InstallmentPending,
		}
	}
	return out, nil
}

// divRoundHalfUp divides non-negative a by positive b, rounding halves up.
func divRoundHalfUp(a, b int64) int64 {
	q, r := a/b, a%b
	if 2*r >= b {
		q++
	}
	return q
}
