package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/log"
)

// Aggregator computes project-wide financial summaries.
type Aggregator struct {
	payments     ledger.PaymentStore
	installments ledger.InstallmentStore
	items        ledger.ItemStore
	now          func() time.Time
	logger       *log.Logger
}

func NewAggregator(payments ledger.PaymentStore, installments ledger.InstallmentStore, items ledger.ItemStore, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		payments:     payments,
		installments: installments,
		items:        items,
		now:          time.Now,
		logger:       logger.WithComponent(log.ComponentSummary),
	}
}

// WithClock replaces the time source used for overdue and horizon math.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// GetFinancialSummary loads the project ledger and summarizes it. A failed
// read aborts the whole computation.
func (a *Aggregator) GetFinancialSummary(ctx context.Context, projectID string) (core.FinancialSummary, error) {
	if projectID == "" {
		return core.FinancialSummary{}, core.NewValidationError("project_id", "project id is required")
	}

	var (
		payments     []core.Payment
		installments []core.Installment
		items        []core.Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		payments, err = a.payments.ListPayments(gctx, ledger.PaymentFilter{ProjectID: projectID})
		if err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		installments, err = a.installments.ListInstallments(gctx, ledger.InstallmentFilter{ProjectID: projectID})
		if err != nil {
			return fmt.Errorf("load installments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = a.items.ListItems(gctx, projectID)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.ErrorContextErr(ctx, "Financial summary failed", err, log.FieldProjectID, projectID)
		return core.FinancialSummary{}, err
	}

	summary := Summarize(projectID, payments, installments, items, a.now())
	a.logger.DebugContext(ctx, "Financial summary computed",
		log.FieldProjectID, projectID,
		"total_cost_cents", summary.TotalCost.Cents,
		"total_paid_cents", summary.TotalPaid.Cents,
		"overdue_count", summary.OverdueCount)
	return summary, nil
}

// Summarize is the pure aggregation behind GetFinancialSummary.
//
// Items already referenced by a payment are left out of the cost so a
// linked payment and its item are not counted twice. Overdue is a derived
// count of pending installments due before today; no status is changed.
func Summarize(projectID string, payments []core.Payment, installments []core.Installment, items []core.Item, now time.Time) core.FinancialSummary {
	linked := make(map[string]struct{}, len(payments))
	var paymentsCost int64
	for _, p := range payments {
		paymentsCost += p.PayableAmount().Cents
		if p.ItemID != "" {
			linked[p.ItemID] = struct{}{}
		}
	}

	var unbilled int64
	for _, it := range items {
		if _, ok := linked[it.ID]; ok {
			continue
		}
		unbilled += it.EstimatedTotal.Cents
	}

	today := core.DateOf(now)
	var (
		paid    int64
		overdue int
		nextDue *core.Date
		lastDue *core.Date
	)
	for _, inst := range installments {
		due := inst.DueDate
		if inst.Status == core.InstallmentPaid {
			paid += inst.Amount.Cents
		}
		if inst.Status == core.InstallmentPending {
			if nextDue == nil || due.IsBefore(*nextDue) {
				d := due
				nextDue = &d
			}
			if due.IsBefore(today) {
				overdue++
			}
		}
		if lastDue == nil || lastDue.IsBefore(due) {
			d := due
			lastDue = &d
		}
	}

	totalCost := core.Money{Cents: paymentsCost + unbilled}
	totalPaid := core.Money{Cents: paid}
	remaining := totalCost.Sub(totalPaid)
	if remaining.Cents < 0 {
		remaining = core.Money{}
	}

	months := 0
	if lastDue != nil {
		months = (lastDue.Year()*12 + int(lastDue.Month())) - (today.Year()*12 + int(today.Month()))
		if months < 0 {
			months = 0
		}
	}

	return core.FinancialSummary{
		ProjectID:       projectID,
		TotalCost:       totalCost,
		TotalPaid:       totalPaid,
		TotalRemaining:  remaining,
		PercentPaid:     core.Percent(totalPaid, totalCost),
		NextDueDate:     nextDue,
		OverdueCount:    overdue,
		MonthsRemaining: months,
		LastDueDate:     lastDue,
	}
}
