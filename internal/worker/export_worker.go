// Package worker turns ledger events into spreadsheet exports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/amqp"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/cache"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/log"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/services"
)

// Exporter is where schedules and summaries are mirrored.
type Exporter interface {
	ExportSchedule(ctx context.Context, p core.Payment, installments []core.Installment) (string, error)
	ExportSummary(ctx context.Context, s core.FinancialSummary, asOf core.Date) (string, error)
}

// SummaryProvider computes a project's financial summary.
type SummaryProvider interface {
	GetFinancialSummary(ctx context.Context, projectID string) (core.FinancialSummary, error)
}

// ExportWorker handles payment.created events by exporting the payment's
// schedule and the refreshed project summary.
type ExportWorker struct {
	store     services.PaymentStore
	summaries SummaryProvider
	exporter  Exporter
	exported  cache.Cache[struct{}] // payment ids whose schedule is already exported
	now       func() time.Time
	logger    *log.Logger
}

func NewExportWorker(store services.PaymentStore, summaries SummaryProvider, exporter Exporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &ExportWorker{
		store:     store,
		summaries: summaries,
		exporter:  exporter,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// WithDedupe records exported schedules in c so that a redelivered event
// only refreshes the summary.
func (w *ExportWorker) WithDedupe(c cache.Cache[struct{}]) *ExportWorker {
	w.exported = c
	return w
}

// HandleEvent processes one ledger event. A returned error requeues it.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	ctx = log.NewContext(ctx, w.logger.With(log.FieldEventType, ev.Type, "event_id", ev.ID))
	switch ev.Type {
	case amqp.EventPaymentCreated:
		return w.exportPayment(ctx, ev.ID)
	default:
		log.FromContext(ctx).InfoContext(ctx, "Skipping ledger event")
		return nil
	}
}

func (w *ExportWorker) exportPayment(ctx context.Context, paymentID string) error {
	start := time.Now()
	logger := log.FromContext(ctx)

	p, err := w.store.GetPayment(ctx, paymentID)
	if errors.Is(err, core.ErrNotFound) {
		// Redelivery cannot make the payment appear.
		logger.WarnContext(ctx, "Payment of event no longer exists", log.FieldPaymentID, paymentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get payment: %w", err)
	}

	installments, err := w.store.ListInstallments(ctx, ledger.InstallmentFilter{
		PaymentIDs: []string{p.ID},
		OrderBy:    ledger.OrderByNumber,
	})
	if err != nil {
		return fmt.Errorf("list installments: %w", err)
	}

	ref := ""
	if w.alreadyExported(p.ID) {
		logger.InfoContext(ctx, "Schedule already exported, refreshing summary only", log.FieldPaymentID, p.ID)
	} else {
		ref, err = w.exporter.ExportSchedule(ctx, p, installments)
		if err != nil {
			logger.ErrorContextErr(ctx, "Schedule export failed", err, log.FieldPaymentID, p.ID)
			return err
		}
		if w.exported != nil {
			w.exported.Set(p.ID, struct{}{})
		}
	}

	summary, err := w.summaries.GetFinancialSummary(ctx, p.ProjectID)
	if err != nil {
		return fmt.Errorf("financial summary: %w", err)
	}
	if _, err := w.exporter.ExportSummary(ctx, summary, core.DateOf(w.now())); err != nil {
		logger.ErrorContextErr(ctx, "Summary export failed", err, log.FieldProjectID, p.ProjectID)
		return err
	}

	logger.InfoContext(ctx, "Payment exported",
		log.FieldPaymentID, p.ID,
		log.FieldProjectID, p.ProjectID,
		log.FieldInstallments, len(installments),
		log.FieldSheetsRef, ref,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (w *ExportWorker) alreadyExported(paymentID string) bool {
	if w.exported == nil {
		return false
	}
	_, ok := w.exported.Get(paymentID)
	return ok
}
