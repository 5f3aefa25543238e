package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/log"
)

// PaymentStore is the slice of the ledger PaymentService writes to.
type PaymentStore interface {
	ledger.PaymentStore
	ledger.InstallmentStore
}

// PaymentService creates payments together with their schedules and
// records installment settlements.
type PaymentService struct {
	store     PaymentStore
	publisher EventPublisher
	logger    *log.Logger
}

func NewPaymentService(store PaymentStore, publisher EventPublisher, logger *log.Logger) *PaymentService {
	if logger == nil {
		logger = log.Default()
	}
	return &PaymentService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentPayments),
	}
}

// CreatePaymentRequest carries a new payment and where its schedule starts.
type CreatePaymentRequest struct {
	Payment      core.Payment
	FirstDueDate core.Date
	OwnerID      string
}

// CreatePayment stores the payment, then generates and bulk inserts its
// installments. When interest applies and no total is given, the total is
// derived from the interest rate.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (core.Payment, []core.Installment, error) {
	p := req.Payment
	if p.OwnerID == "" {
		p.OwnerID = req.OwnerID
	}
	if p.HasInterest && p.TotalWithInterest == nil {
		total := core.InterestTotal(p.TotalAmount, p.InterestRate)
		p.TotalWithInterest = &total
	}
	if !p.HasInterest {
		p.TotalWithInterest = nil
		p.InterestRate = 0
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, nil, err
	}
	// Fail before inserting anything when the schedule cannot be built.
	if _, err := GenerateInstallments(p, req.FirstDueDate, req.OwnerID); err != nil {
		return core.Payment{}, nil, err
	}

	created, err := s.store.InsertPayment(ctx, p)
	if err != nil {
		return core.Payment{}, nil, fmt.Errorf("insert payment: %w", err)
	}
	installments, err := s.scheduleOnce(ctx, created, req.FirstDueDate, req.OwnerID)
	if err != nil {
		return created, nil, err
	}

	s.logger.WithFields(log.NewFields().WithPayment(created).WithOperation(log.OpCreate)).
		InfoContext(ctx, "Payment created with schedule")

	if s.publisher != nil {
		if err := s.publisher.PublishPaymentCreated(ctx, created.ID, created.ProjectID); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish payment created event",
				log.FieldPaymentID, created.ID, log.FieldError, err)
		}
	}
	return created, installments, nil
}

// ScheduleInstallments materializes the schedule of an existing payment.
// A payment is scheduled once; a second call fails with a validation error.
func (s *PaymentService) ScheduleInstallments(ctx context.Context, paymentID string, firstDueDate core.Date, ownerID string) ([]core.Installment, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return s.scheduleOnce(ctx, p, firstDueDate, ownerID)
}

func (s *PaymentService) scheduleOnce(ctx context.Context, p core.Payment, firstDueDate core.Date, ownerID string) ([]core.Installment, error) {
	existing, err := s.store.ListInstallments(ctx, ledger.InstallmentFilter{
		PaymentIDs: []string{p.ID},
		Range:      ledger.Range{Limit: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("check existing installments: %w", err)
	}
	if len(existing) > 0 {
		return nil, core.NewValidationError("payment_id", fmt.Sprintf("payment %q already has installments", p.ID))
	}

	schedule, err := GenerateInstallments(p, firstDueDate, ownerID)
	if err != nil {
		return nil, err
	}
	// The store's unique (payment, number) rule rejects a concurrent
	// duplicate batch as a whole.
	inserted, err := s.store.InsertInstallments(ctx, schedule)
	if err != nil {
		s.logger.ErrorContextErr(ctx, "Failed to insert installments", err, log.FieldPaymentID, p.ID)
		return nil, fmt.Errorf("insert installments: %w", err)
	}
	s.logger.InfoContext(ctx, "Installments scheduled",
		log.FieldPaymentID, p.ID,
		log.FieldInstallments, len(inserted),
		"first_due_date", firstDueDate.String())
	return inserted, nil
}

// MarkInstallmentPaid settles a pending or overdue installment.
func (s *PaymentService) MarkInstallmentPaid(ctx context.Context, installmentID string, paidDate core.Date, method string) (core.Installment, error) {
	if paidDate.IsZero() {
		return core.Installment{}, core.NewValidationError("paid_date", "paid date is required")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return core.Installment{}, core.NewValidationError("payment_method", "payment method is required")
	}
	inst, err := s.store.GetInstallment(ctx, installmentID)
	if err != nil {
		return core.Installment{}, fmt.Errorf("get installment: %w", err)
	}
	switch inst.Status {
	case core.InstallmentPaid, core.InstallmentCancelled:
		return core.Installment{}, core.NewValidationError("status",
			fmt.Sprintf("installment %q is %s", installmentID, inst.Status))
	}

	status := core.InstallmentPaid
	updated, err := s.store.UpdateInstallment(ctx, installmentID, ledger.InstallmentPatch{
		Status:        &status,
		PaidDate:      &paidDate,
		PaymentMethod: &method,
	})
	if err != nil {
		return core.Installment{}, fmt.Errorf("update installment: %w", err)
	}
	s.logger.InfoContext(ctx, "Installment paid",
		log.FieldInstallmentID, installmentID,
		log.FieldPaymentID, updated.PaymentID,
		log.FieldAmountCents, updated.Amount.Cents)
	return updated, nil
}

// CancelInstallment cancels an installment that has not been paid.
func (s *PaymentService) CancelInstallment(ctx context.Context, installmentID string) (core.Installment, error) {
	inst, err := s.store.GetInstallment(ctx, installmentID)
	if err != nil {
		return core.Installment{}, fmt.Errorf("get installment: %w", err)
	}
	if inst.Status == core.InstallmentPaid {
		return core.Installment{}, core.NewValidationError("status",
			fmt.Sprintf("installment %q is already paid", installmentID))
	}
	status := core.InstallmentCancelled
	updated, err := s.store.UpdateInstallment(ctx, installmentID, ledger.InstallmentPatch{Status: &status})
	if err != nil {
		return core.Installment{}, fmt.Errorf("update installment: %w", err)
	}
	s.logger.InfoContext(ctx, "Installment cancelled", log.FieldInstallmentID, installmentID)
	return updated, nil
}
