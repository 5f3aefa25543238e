package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger"
)

const timeLayout = time.RFC3339Nano

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

const paymentColumns = `id, project_id, item_id, supplier_id, quote_id, owner_id, description, category,
	total_amount_cents, has_interest, interest_rate, total_with_interest_cents, num_installments, created_at`

const createPayment = `INSERT INTO payments (` + paymentColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreatePayment(ctx context.Context, p core.Payment) error {
	var withInterest sql.NullInt64
	if p.TotalWithInterest != nil {
		withInterest = sql.NullInt64{Int64: p.TotalWithInterest.Cents, Valid: true}
	}
	_, err := q.db.ExecContext(ctx, createPayment,
		p.ID, p.ProjectID, p.ItemID, p.SupplierID, p.QuoteID, p.OwnerID, p.Description, p.Category,
		p.TotalAmount.Cents, p.HasInterest, p.InterestRate, withInterest, p.NumInstallments,
		p.CreatedAt.UTC().Format(timeLayout))
	return err
}

const getPayment = `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`

func (q *Queries) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	return scanPayment(q.db.QueryRowContext(ctx, getPayment, id))
}

func (q *Queries) ListPayments(ctx context.Context, f ledger.PaymentFilter) ([]core.Payment, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.ItemID != "" {
		where = append(where, "item_id = ?")
		args = append(args, f.ItemID)
	}
	if f.WithItemOnly {
		where = append(where, "item_id <> ''")
	}
	query := `SELECT ` + paymentColumns + ` FROM payments` + whereClause(where) + ` ORDER BY rowid` + limitClause(f.Range, &args)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) PaymentExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM payments WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

func scanPayment(row scanner) (core.Payment, error) {
	var (
		p            core.Payment
		total        int64
		withInterest sql.NullInt64
		createdAt    string
	)
	err := row.Scan(&p.ID, &p.ProjectID, &p.ItemID, &p.SupplierID, &p.QuoteID, &p.OwnerID,
		&p.Description, &p.Category, &total, &p.HasInterest, &p.InterestRate, &withInterest,
		&p.NumInstallments, &createdAt)
	if err != nil {
		return core.Payment{}, err
	}
	p.TotalAmount = core.Money{Cents: total}
	if withInterest.Valid {
		p.TotalWithInterest = &core.Money{Cents: withInterest.Int64}
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

const installmentColumns = `i.id, i.payment_id, i.owner_id, i.installment_number, i.amount_cents,
	i.due_date, i.paid_date, i.status, i.payment_method`

const createInstallment = `INSERT INTO installments
(id, payment_id, owner_id, installment_number, amount_cents, due_date, paid_date, status, payment_method)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateInstallment(ctx context.Context, in core.Installment) error {
	_, err := q.db.ExecContext(ctx, createInstallment,
		in.ID, in.PaymentID, in.OwnerID, in.Number, in.Amount.Cents,
		in.DueDate.String(), nullDate(in.PaidDate), string(in.Status), in.PaymentMethod)
	return err
}

const getInstallment = `SELECT ` + installmentColumns + ` FROM installments i WHERE i.id = ?`

func (q *Queries) GetInstallment(ctx context.Context, id string) (core.Installment, error) {
	return scanInstallment(q.db.QueryRowContext(ctx, getInstallment, id))
}

func (q *Queries) ListInstallments(ctx context.Context, f ledger.InstallmentFilter) ([]core.Installment, error) {
	var (
		where []string
		args  []interface{}
	)
	from := ` FROM installments i`
	if f.ProjectID != "" {
		from += ` JOIN payments p ON p.id = i.payment_id`
		where = append(where, "p.project_id = ?")
		args = append(args, f.ProjectID)
	}
	if len(f.PaymentIDs) > 0 {
		marks := make([]string, len(f.PaymentIDs))
		for i, id := range f.PaymentIDs {
			marks[i] = "?"
			args = append(args, id)
		}
		where = append(where, "i.payment_id IN ("+strings.Join(marks, ", ")+")")
	}
	if f.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, string(f.Status))
	}

	order := ` ORDER BY i.rowid`
	switch f.OrderBy {
	case ledger.OrderByDueDate:
		order = ` ORDER BY i.due_date, i.installment_number, i.rowid`
	case ledger.OrderByNumber:
		order = ` ORDER BY i.payment_id, i.installment_number`
	}
	query := `SELECT ` + installmentColumns + from + whereClause(where) + order + limitClause(f.Range, &args)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Installment
	for rows.Next() {
		in, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

const updateInstallment = `UPDATE installments SET status = ?, paid_date = ?, payment_method = ? WHERE id = ?`

func (q *Queries) UpdateInstallment(ctx context.Context, in core.Installment) error {
	_, err := q.db.ExecContext(ctx, updateInstallment,
		string(in.Status), nullDate(in.PaidDate), in.PaymentMethod, in.ID)
	return err
}

func scanInstallment(row scanner) (core.Installment, error) {
	var (
		in     core.Installment
		amount int64
		due    string
		paid   sql.NullString
		status string
	)
	err := row.Scan(&in.ID, &in.PaymentID, &in.OwnerID, &in.Number, &amount, &due, &paid, &status, &in.PaymentMethod)
	if err != nil {
		return core.Installment{}, err
	}
	in.Amount = core.Money{Cents: amount}
	in.Status = core.InstallmentStatus(status)
	if in.DueDate, err = core.ParseDate(due); err != nil {
		return core.Installment{}, err
	}
	if paid.Valid && paid.String != "" {
		d, err := core.ParseDate(paid.String)
		if err != nil {
			return core.Installment{}, err
		}
		in.PaidDate = &d
	}
	return in, nil
}

const createItem = `INSERT INTO items (id, project_id, name, estimated_total_cents, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateItem(ctx context.Context, it core.Item, now time.Time) error {
	_, err := q.db.ExecContext(ctx, createItem, it.ID, it.ProjectID, it.Name, it.EstimatedTotal.Cents, now.UTC().Format(timeLayout))
	return err
}

const listItems = `SELECT id, project_id, name, estimated_total_cents FROM items WHERE project_id = ? ORDER BY rowid`

func (q *Queries) ListItems(ctx context.Context, projectID string) ([]core.Item, error) {
	rows, err := q.db.QueryContext(ctx, listItems, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Item
	for rows.Next() {
		var (
			it    core.Item
			cents int64
		)
		if err := rows.Scan(&it.ID, &it.ProjectID, &it.Name, &cents); err != nil {
			return nil, err
		}
		it.EstimatedTotal = core.Money{Cents: cents}
		out = append(out, it)
	}
	return out, rows.Err()
}

const quoteColumns = `id, project_id, supplier_id, amount_cents, chosen, updated_at`

const createQuote = `INSERT INTO quotes (id, project_id, supplier_id, amount_cents, chosen, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, ?, ?)`

func (q *Queries) CreateQuote(ctx context.Context, qt core.Quote) error {
	ts := qt.UpdatedAt.UTC().Format(timeLayout)
	_, err := q.db.ExecContext(ctx, createQuote, qt.ID, qt.ProjectID, qt.SupplierID, qt.Amount.Cents, ts, ts)
	return err
}

func (q *Queries) GetQuote(ctx context.Context, id string) (core.Quote, error) {
	return scanQuote(q.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id))
}

func (q *Queries) ListQuotes(ctx context.Context, projectID string) ([]core.Quote, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE project_id = ? ORDER BY rowid`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Quote
	for rows.Next() {
		qt, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qt)
	}
	return out, rows.Err()
}

func (q *Queries) GetQuoteProject(ctx context.Context, id string) (string, error) {
	var projectID string
	err := q.db.QueryRowContext(ctx, `SELECT project_id FROM quotes WHERE id = ?`, id).Scan(&projectID)
	return projectID, err
}

// The clear runs before the set so the one-chosen index never sees two rows.
const (
	clearChosenQuotes = `UPDATE quotes SET chosen = 0, updated_at = ? WHERE project_id = ? AND id <> ? AND chosen = 1`
	setChosenQuote    = `UPDATE quotes SET chosen = 1, updated_at = ? WHERE id = ? AND chosen = 0`
)

func (q *Queries) ChooseQuote(ctx context.Context, quoteID, projectID string, now time.Time) error {
	ts := now.UTC().Format(timeLayout)
	if _, err := q.db.ExecContext(ctx, clearChosenQuotes, ts, projectID, quoteID); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, setChosenQuote, ts, quoteID)
	return err
}

func scanQuote(row scanner) (core.Quote, error) {
	var (
		qt        core.Quote
		amount    int64
		updatedAt string
	)
	if err := row.Scan(&qt.ID, &qt.ProjectID, &qt.SupplierID, &amount, &qt.Chosen, &updatedAt); err != nil {
		return core.Quote{}, err
	}
	qt.Amount = core.Money{Cents: amount}
	qt.UpdatedAt = parseTime(updatedAt)
	return qt, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// limitClause appends LIMIT/OFFSET arguments for r. SQLite needs a LIMIT
// whenever OFFSET is present, -1 meaning unbounded.
func limitClause(r ledger.Range, args *[]interface{}) string {
	if r.Limit <= 0 && r.Offset <= 0 {
		return ""
	}
	limit := r.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := r.Offset
	if offset < 0 {
		offset = 0
	}
	*args = append(*args, limit, offset)
	return " LIMIT ? OFFSET ?"
}

func nullDate(d *core.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
