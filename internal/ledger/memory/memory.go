package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger"
)

// Store is an in-memory ledger. Every operation runs under one mutex, which
// makes SelectQuote and InsertInstallments trivially atomic.
type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	payments     []core.Payment
	installments []core.Installment
	items        []core.Item
	quotes       []core.Quote
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

func (s *Store) Close() error { return nil }

func (s *Store) InsertPayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if s.paymentIndex(p.ID) >= 0 {
		return core.Payment{}, core.NewValidationError("id", fmt.Sprintf("payment %q already exists", p.ID))
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.payments = append(s.payments, clonePayment(p))
	return clonePayment(p), nil
}

func (s *Store) GetPayment(_ context.Context, id string) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.paymentIndex(id)
	if i < 0 {
		return core.Payment{}, core.NewNotFoundError("payment", id)
	}
	return clonePayment(s.payments[i]), nil
}

func (s *Store) ListPayments(_ context.Context, f ledger.PaymentFilter) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Payment
	for _, p := range s.payments {
		if f.ProjectID != "" && p.ProjectID != f.ProjectID {
			continue
		}
		if f.ItemID != "" && p.ItemID != f.ItemID {
			continue
		}
		if f.WithItemOnly && p.ItemID == "" {
			continue
		}
		out = append(out, clonePayment(p))
	}
	lo, hi := f.Range.Window(len(out))
	return out[lo:hi], nil
}

func (s *Store) InsertInstallments(_ context.Context, in []core.Installment) ([]core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching state.
	seen := make(map[string]struct{}, len(in))
	for _, existing := range s.installments {
		seen[installmentKey(existing.PaymentID, existing.Number)] = struct{}{}
	}
	out := make([]core.Installment, len(in))
	for i, inst := range in {
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		if s.paymentIndex(inst.PaymentID) < 0 {
			return nil, core.NewNotFoundError("payment", inst.PaymentID)
		}
		key := installmentKey(inst.PaymentID, inst.Number)
		if _, dup := seen[key]; dup {
			return nil, core.NewValidationError("installment_number",
				fmt.Sprintf("payment %q already has installment %d", inst.PaymentID, inst.Number))
		}
		seen[key] = struct{}{}
		if inst.ID == "" {
			inst.ID = uuid.NewString()
		}
		out[i] = cloneInstallment(inst)
	}
	for _, inst := range out {
		s.installments = append(s.installments, cloneInstallment(inst))
	}
	return out, nil
}

func (s *Store) GetInstallment(_ context.Context, id string) (core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.installments {
		if inst.ID == id {
			return cloneInstallment(inst), nil
		}
	}
	return core.Installment{}, core.NewNotFoundError("installment", id)
}

func (s *Store) ListInstallments(_ context.Context, f ledger.InstallmentFilter) ([]core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var byPayment map[string]struct{}
	if len(f.PaymentIDs) > 0 {
		byPayment = make(map[string]struct{}, len(f.PaymentIDs))
		for _, id := range f.PaymentIDs {
			byPayment[id] = struct{}{}
		}
	}
	var out []core.Installment
	for _, inst := range s.installments {
		if byPayment != nil {
			if _, ok := byPayment[inst.PaymentID]; !ok {
				continue
			}
		}
		if f.ProjectID != "" {
			i := s.paymentIndex(inst.PaymentID)
			if i < 0 || s.payments[i].ProjectID != f.ProjectID {
				continue
			}
		}
		if f.Status != "" && inst.Status != f.Status {
			continue
		}
		out = append(out, cloneInstallment(inst))
	}
	switch f.OrderBy {
	case ledger.OrderByDueDate:
		sort.SliceStable(out, func(a, b int) bool {
			if !out[a].DueDate.Equal(out[b].DueDate.Time) {
				return out[a].DueDate.IsBefore(out[b].DueDate)
			}
			return out[a].Number < out[b].Number
		})
	case ledger.OrderByNumber:
		sort.SliceStable(out, func(a, b int) bool {
			if out[a].PaymentID != out[b].PaymentID {
				return out[a].PaymentID < out[b].PaymentID
			}
			return out[a].Number < out[b].Number
		})
	}
	lo, hi := f.Range.Window(len(out))
	return out[lo:hi], nil
}

func (s *Store) UpdateInstallment(_ context.Context, id string, patch ledger.InstallmentPatch) (core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.installments {
		if s.installments[i].ID != id {
			continue
		}
		updated := patch.Apply(cloneInstallment(s.installments[i]))
		if err := updated.Validate(); err != nil {
			return core.Installment{}, err
		}
		s.installments[i] = updated
		return cloneInstallment(updated), nil
	}
	return core.Installment{}, core.NewNotFoundError("installment", id)
}

func (s *Store) InsertItem(_ context.Context, it core.Item) (core.Item, error) {
	if it.ProjectID == "" {
		return core.Item{}, core.NewValidationError("project_id", "project id is required")
	}
	if it.EstimatedTotal.Cents < 0 {
		return core.Item{}, core.NewValidationError("estimated_total", "must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	s.items = append(s.items, it)
	return it, nil
}

func (s *Store) ListItems(_ context.Context, projectID string) ([]core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Item
	for _, it := range s.items {
		if it.ProjectID == projectID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Store) InsertQuote(_ context.Context, q core.Quote) (core.Quote, error) {
	if q.ProjectID == "" {
		return core.Quote{}, core.NewValidationError("project_id", "project id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	// A quote is only ever chosen through SelectQuote.
	q.Chosen = false
	q.UpdatedAt = s.now()
	s.quotes = append(s.quotes, q)
	return q, nil
}

func (s *Store) GetQuote(_ context.Context, id string) (core.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.quotes {
		if q.ID == id {
			return q, nil
		}
	}
	return core.Quote{}, core.NewNotFoundError("quote", id)
}

func (s *Store) ListQuotes(_ context.Context, projectID string) ([]core.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Quote
	for _, q := range s.quotes {
		if q.ProjectID == projectID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Store) SelectQuote(_ context.Context, quoteID, projectID string) (core.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := -1
	for i, q := range s.quotes {
		if q.ID == quoteID {
			target = i
			break
		}
	}
	if target < 0 {
		return core.Quote{}, core.NewNotFoundError("quote", quoteID)
	}
	if s.quotes[target].ProjectID != projectID {
		return core.Quote{}, core.NewValidationError("quote_id",
			fmt.Sprintf("quote %q does not belong to project %q", quoteID, projectID))
	}
	now := s.now()
	for i := range s.quotes {
		if s.quotes[i].ProjectID != projectID {
			continue
		}
		chosen := i == target
		if s.quotes[i].Chosen != chosen {
			s.quotes[i].Chosen = chosen
			s.quotes[i].UpdatedAt = now
		}
	}
	return s.quotes[target], nil
}

func (s *Store) paymentIndex(id string) int {
	for i, p := range s.payments {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func installmentKey(paymentID string, number int) string {
	return fmt.Sprintf("%s#%d", paymentID, number)
}

func clonePayment(p core.Payment) core.Payment {
	if p.TotalWithInterest != nil {
		v := *p.TotalWithInterest
		p.TotalWithInterest = &v
	}
	return p
}

func cloneInstallment(in core.Installment) core.Installment {
	if in.PaidDate != nil {
		d := *in.PaidDate
		in.PaidDate = &d
	}
	return in
}
