package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/log"
)

// ItemSummarizer reports, per item, how much of its payments has been paid.
type ItemSummarizer struct {
	payments     ledger.PaymentStore
	installments ledger.InstallmentStore
	items        ledger.ItemStore
	logger       *log.Logger
}

func NewItemSummarizer(payments ledger.PaymentStore, installments ledger.InstallmentStore, items ledger.ItemStore, logger *log.Logger) *ItemSummarizer {
	if logger == nil {
		logger = log.Default()
	}
	return &ItemSummarizer{
		payments:     payments,
		installments: installments,
		items:        items,
		logger:       logger.WithComponent(log.ComponentSummary),
	}
}

// GetItemsWithPaymentSummary returns one entry per project item, in store
// order, including items no payment references.
func (s *ItemSummarizer) GetItemsWithPaymentSummary(ctx context.Context, projectID string) ([]core.ItemPaymentSummary, error) {
	if projectID == "" {
		return nil, core.NewValidationError("project_id", "project id is required")
	}

	var (
		items    []core.Item
		payments []core.Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.items.ListItems(gctx, projectID)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		payments, err = s.payments.ListPayments(gctx, ledger.PaymentFilter{ProjectID: projectID, WithItemOnly: true})
		if err != nil {
			return fmt.Errorf("load item payments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContextErr(ctx, "Item payment summary failed", err, log.FieldProjectID, projectID)
		return nil, err
	}

	var paid []core.Installment
	if len(payments) > 0 {
		ids := make([]string, len(payments))
		for i, p := range payments {
			ids[i] = p.ID
		}
		var err error
		paid, err = s.installments.ListInstallments(ctx, ledger.InstallmentFilter{
			ProjectID:  projectID,
			PaymentIDs: ids,
			Status:     core.InstallmentPaid,
		})
		if err != nil {
			err = fmt.Errorf("load paid installments: %w", err)
			s.logger.ErrorContextErr(ctx, "Item payment summary failed", err, log.FieldProjectID, projectID)
			return nil, err
		}
	}

	return SummarizeItems(items, payments, paid), nil
}

// SummarizeItems groups payments by item and paid installments by payment.
// Installments that are not paid are ignored.
func SummarizeItems(items []core.Item, payments []core.Payment, installments []core.Installment) []core.ItemPaymentSummary {
	paidByPayment := make(map[string]int64)
	for _, inst := range installments {
		if inst.Status == core.InstallmentPaid {
			paidByPayment[inst.PaymentID] += inst.Amount.Cents
		}
	}
	byItem := make(map[string][]core.Payment)
	for _, p := range payments {
		if p.ItemID != "" {
			byItem[p.ItemID] = append(byItem[p.ItemID], p)
		}
	}

	out := make([]core.ItemPaymentSummary, 0, len(items))
	for _, it := range items {
		var total, paid int64
		linked := byItem[it.ID]
		for _, p := range linked {
			total += p.PayableAmount().Cents
			paid += paidByPayment[p.ID]
		}
		out = append(out, core.ItemPaymentSummary{
			Item:               it,
			EstimatedTotal:     it.EstimatedTotal,
			PaymentCount:       len(linked),
			TotalPaymentAmount: core.Money{Cents: total},
			TotalPaid:          core.Money{Cents: paid},
			PaymentStatus:      itemStatus(len(linked), total, paid),
		})
	}
	return out
}

func itemStatus(count int, total, paid int64) core.ItemPaymentStatus {
	switch {
	case count == 0 || paid == 0:
		return core.ItemUnpaid
	case paid >= total:
		return core.ItemPaid
	default:
		return core.ItemPartial
	}
}
