package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger/memory"
)

var errDiskFull = errors.New("disk full")

// failingStore wraps the memory store and fails selected operations.
type failingStore struct {
	*memory.Store
	failPayments     bool
	failInstallments bool
	failItems        bool
	failSelect       bool
	failInsert       bool
}

func (f *failingStore) InsertInstallments(ctx context.Context, in []core.Installment) ([]core.Installment, error) {
	if f.failInsert {
		return nil, core.NewStoreError("insert installments", errDiskFull)
	}
	return f.Store.InsertInstallments(ctx, in)
}

func (f *failingStore) ListPayments(ctx context.Context, flt ledger.PaymentFilter) ([]core.Payment, error) {
	if f.failPayments {
		return nil, core.NewStoreError("list payments", errDiskFull)
	}
	return f.Store.ListPayments(ctx, flt)
}

func (f *failingStore) ListInstallments(ctx context.Context, flt ledger.InstallmentFilter) ([]core.Installment, error) {
	if f.failInstallments {
		return nil, core.NewStoreError("list installments", errDiskFull)
	}
	return f.Store.ListInstallments(ctx, flt)
}

func (f *failingStore) ListItems(ctx context.Context, projectID string) ([]core.Item, error) {
	if f.failItems {
		return nil, core.NewStoreError("list items", errDiskFull)
	}
	return f.Store.ListItems(ctx, projectID)
}

func (f *failingStore) SelectQuote(ctx context.Context, quoteID, projectID string) (core.Quote, error) {
	if f.failSelect {
		return core.Quote{}, errors.New("procedure choose_quote does not exist")
	}
	return f.Store.SelectQuote(ctx, quoteID, projectID)
}

type recordedEvent struct {
	kind, id, projectID string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (r *recordingPublisher) PublishPaymentCreated(_ context.Context, paymentID, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{"payment.created", paymentID, projectID})
	return r.err
}

func (r *recordingPublisher) PublishQuoteChosen(_ context.Context, quoteID, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{"quote.chosen", quoteID, projectID})
	return r.err
}

func fixedClock(y, m, d int) func() time.Time {
	return func() time.Time { return time.Date(y, time.Month(m), d, 15, 30, 0, 0, time.UTC) }
}

func mustCreatePayment(t *testing.T, svc *PaymentService, p core.Payment, first core.Date) (core.Payment, []core.Installment) {
	t.Helper()
	created, insts, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{Payment: p, FirstDueDate: first, OwnerID: "owner-1"})
	require.NoError(t, err)
	return created, insts
}

func mustPay(t *testing.T, svc *PaymentService, inst core.Installment) {
	t.Helper()
	_, err := svc.MarkInstallmentPaid(context.Background(), inst.ID, inst.DueDate, "transfer")
	require.NoError(t, err)
}

func mustItem(t *testing.T, s *memory.Store, projectID string, cents int64) core.Item {
	t.Helper()
	it, err := s.InsertItem(context.Background(), core.Item{ProjectID: projectID, Name: "item", EstimatedTotal: core.Money{Cents: cents}})
	require.NoError(t, err)
	return it
}
