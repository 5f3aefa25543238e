package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger"
)

// SQLiteStore is the durable ledger. Writers take the database lock at
// BEGIN so that SelectQuote and batch inserts serialize across processes.
type SQLiteStore struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ledger.Store = (*SQLiteStore)(nil)

// DSN returns the connection string used for dbPath.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) InsertPayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if err := s.queries.CreatePayment(ctx, p); err != nil {
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
			return core.Payment{}, core.NewValidationError("id", fmt.Sprintf("payment %q already exists", p.ID))
		}
		return core.Payment{}, core.NewStoreError("create payment", err)
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"payment_id", p.ID,
		"project_id", p.ProjectID,
		"amount_cents", p.TotalAmount.Cents,
		"installments", p.NumInstallments)
	return p, nil
}

func (s *SQLiteStore) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	p, err := s.queries.GetPayment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, core.NewNotFoundError("payment", id)
	}
	if err != nil {
		return core.Payment{}, core.NewStoreError("get payment", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListPayments(ctx context.Context, f ledger.PaymentFilter) ([]core.Payment, error) {
	out, err := s.queries.ListPayments(ctx, f)
	if err != nil {
		return nil, core.NewStoreError("list payments", err)
	}
	return out, nil
}

// InsertInstallments writes the batch in one transaction. Any failure,
// including a duplicate (payment, number), rolls back the whole batch.
func (s *SQLiteStore) InsertInstallments(ctx context.Context, in []core.Installment) ([]core.Installment, error) {
	out := make([]core.Installment, len(in))
	for i, inst := range in {
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		if inst.ID == "" {
			inst.ID = uuid.NewString()
		}
		out[i] = inst
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.NewStoreError("begin installments", err)
	}
	defer tx.Rollback()
	qtx := s.queries.WithTx(tx)

	checked := make(map[string]bool)
	for _, inst := range out {
		if !checked[inst.PaymentID] {
			ok, err := qtx.PaymentExists(ctx, inst.PaymentID)
			if err != nil {
				return nil, core.NewStoreError("check payment", err)
			}
			if !ok {
				return nil, core.NewNotFoundError("payment", inst.PaymentID)
			}
			checked[inst.PaymentID] = true
		}
		if err := qtx.CreateInstallment(ctx, inst); err != nil {
			if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE) {
				return nil, core.NewValidationError("installment_number",
					fmt.Sprintf("payment %q already has installment %d", inst.PaymentID, inst.Number))
			}
			return nil, core.NewStoreError("create installment", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, core.NewStoreError("commit installments", err)
	}

	slog.InfoContext(ctx, "Installments saved to SQLite", "count", len(out))
	return out, nil
}

func (s *SQLiteStore) GetInstallment(ctx context.Context, id string) (core.Installment, error) {
	inst, err := s.queries.GetInstallment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Installment{}, core.NewNotFoundError("installment", id)
	}
	if err != nil {
		return core.Installment{}, core.NewStoreError("get installment", err)
	}
	return inst, nil
}

func (s *SQLiteStore) ListInstallments(ctx context.Context, f ledger.InstallmentFilter) ([]core.Installment, error) {
	out, err := s.queries.ListInstallments(ctx, f)
	if err != nil {
		return nil, core.NewStoreError("list installments", err)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateInstallment(ctx context.Context, id string, patch ledger.InstallmentPatch) (core.Installment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Installment{}, core.NewStoreError("begin update installment", err)
	}
	defer tx.Rollback()
	qtx := s.queries.WithTx(tx)

	current, err := qtx.GetInstallment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Installment{}, core.NewNotFoundError("installment", id)
	}
	if err != nil {
		return core.Installment{}, core.NewStoreError("get installment", err)
	}
	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return core.Installment{}, err
	}
	if err := qtx.UpdateInstallment(ctx, updated); err != nil {
		return core.Installment{}, core.NewStoreError("update installment", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Installment{}, core.NewStoreError("commit update installment", err)
	}

	slog.InfoContext(ctx, "Installment updated", "installment_id", id, "status", updated.Status)
	return updated, nil
}

func (s *SQLiteStore) InsertItem(ctx context.Context, it core.Item) (core.Item, error) {
	if it.ProjectID == "" {
		return core.Item{}, core.NewValidationError("project_id", "project id is required")
	}
	if it.EstimatedTotal.Cents < 0 {
		return core.Item{}, core.NewValidationError("estimated_total", "must not be negative")
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if err := s.queries.CreateItem(ctx, it, s.now()); err != nil {
		return core.Item{}, core.NewStoreError("create item", err)
	}
	return it, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, projectID string) ([]core.Item, error) {
	out, err := s.queries.ListItems(ctx, projectID)
	if err != nil {
		return nil, core.NewStoreError("list items", err)
	}
	return out, nil
}

func (s *SQLiteStore) InsertQuote(ctx context.Context, q core.Quote) (core.Quote, error) {
	if q.ProjectID == "" {
		return core.Quote{}, core.NewValidationError("project_id", "project id is required")
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.Chosen = false
	q.UpdatedAt = s.now()
	if err := s.queries.CreateQuote(ctx, q); err != nil {
		return core.Quote{}, core.NewStoreError("create quote", err)
	}
	return q, nil
}

func (s *SQLiteStore) GetQuote(ctx context.Context, id string) (core.Quote, error) {
	q, err := s.queries.GetQuote(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Quote{}, core.NewNotFoundError("quote", id)
	}
	if err != nil {
		return core.Quote{}, core.NewStoreError("get quote", err)
	}
	return q, nil
}

func (s *SQLiteStore) ListQuotes(ctx context.Context, projectID string) ([]core.Quote, error) {
	out, err := s.queries.ListQuotes(ctx, projectID)
	if err != nil {
		return nil, core.NewStoreError("list quotes", err)
	}
	return out, nil
}

// SelectQuote clears and sets the chosen flag inside one immediate
// transaction; concurrent callers queue on the write lock.
func (s *SQLiteStore) SelectQuote(ctx context.Context, quoteID, projectID string) (core.Quote, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Quote{}, core.NewStoreError("begin select quote", err)
	}
	defer tx.Rollback()
	qtx := s.queries.WithTx(tx)

	owner, err := qtx.GetQuoteProject(ctx, quoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Quote{}, core.NewNotFoundError("quote", quoteID)
	}
	if err != nil {
		return core.Quote{}, core.NewStoreError("get quote project", err)
	}
	if owner != projectID {
		return core.Quote{}, core.NewValidationError("quote_id",
			fmt.Sprintf("quote %q does not belong to project %q", quoteID, projectID))
	}

	if err := qtx.ChooseQuote(ctx, quoteID, projectID, s.now()); err != nil {
		return core.Quote{}, core.NewStoreError("choose quote", err)
	}
	chosen, err := qtx.GetQuote(ctx, quoteID)
	if err != nil {
		return core.Quote{}, core.NewStoreError("get chosen quote", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Quote{}, core.NewStoreError("commit select quote", err)
	}

	slog.InfoContext(ctx, "Quote selection committed", "quote_id", quoteID, "project_id", projectID)
	return chosen, nil
}

// isConstraint reports whether err is the given extended constraint code.
// A bare SQLITE_CONSTRAINT naming a UNIQUE violation also matches.
func isConstraint(err error, code int) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	if serr.Code() == code {
		return true
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT && strings.Contains(serr.Error(), "UNIQUE")
}
