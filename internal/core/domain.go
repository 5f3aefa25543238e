package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentPaid      InstallmentStatus = "paid"
	InstallmentOverdue   InstallmentStatus = "overdue"
	InstallmentCancelled InstallmentStatus = "cancelled"
)

const (
	ItemUnpaid  ItemPaymentStatus = "unpaid"
	ItemPartial ItemPaymentStatus = "partial"
	ItemPaid    ItemPaymentStatus = "paid"
)

type (
	InstallmentStatus string
	ItemPaymentStatus string

	// Date is a calendar date stored at UTC midnight.
	Date struct {
		time.Time
	}

	Payment struct {
		ID                string    `json:"id"`
		ProjectID         string    `json:"project_id"`
		ItemID            string    `json:"item_id,omitempty"`             // optional
		SupplierID        string    `json:"supplier_id,omitempty"`         // optional
		QuoteID           string    `json:"quote_id,omitempty"`            // optional
		OwnerID           string    `json:"owner_id"`
		Description       string    `json:"description"`
		Category          string    `json:"category"`
		TotalAmount       Money     `json:"total_amount"`
		HasInterest       bool      `json:"has_interest"`
		InterestRate      float64   `json:"interest_rate"`                 // percent, e.g. 2.5
		TotalWithInterest *Money    `json:"total_with_interest,omitempty"` // nil means no interest
		NumInstallments   int       `json:"num_installments"`
		CreatedAt         time.Time `json:"created_at"`
	}

	Installment struct {
		ID            string            `json:"id"`
		PaymentID     string            `json:"payment_id"`
		OwnerID       string            `json:"owner_id"`
		Number        int               `json:"number"`
		Amount        Money             `json:"amount"`
		DueDate       Date              `json:"due_date"`
		PaidDate      *Date             `json:"paid_date,omitempty"`
		Status        InstallmentStatus `json:"status"`
		PaymentMethod string            `json:"payment_method,omitempty"`
	}

	Item struct {
		ID             string `json:"id"`
		ProjectID      string `json:"project_id"`
		Name           string `json:"name"`
		EstimatedTotal Money  `json:"estimated_total"`
	}

	Quote struct {
		ID         string    `json:"id"`
		ProjectID  string    `json:"project_id"`
		SupplierID string    `json:"supplier_id,omitempty"`
		Amount     Money     `json:"amount"`
		Chosen     bool      `json:"chosen"`
		UpdatedAt  time.Time `json:"updated_at"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, NewValidationError("date", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// IsBefore reports whether d is a strictly earlier calendar day than o.
func (d Date) IsBefore(o Date) bool {
	return d.String() < o.String()
}

// AddMonthsClamped moves the date n calendar months forward keeping the
// day of month, clamped to the last day of the target month.
func (d Date) AddMonthsClamped(n int) Date {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PayableAmount is the total with interest when interest applies and the
// total is known, the principal otherwise.
func (p Payment) PayableAmount() Money {
	if p.HasInterest && p.TotalWithInterest != nil {
		return *p.TotalWithInterest
	}
	return p.TotalAmount
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.ProjectID) == "" {
		return NewValidationError("project_id", "project id is required")
	}
	if p.NumInstallments < 1 {
		return NewValidationError("num_installments", fmt.Sprintf("must be at least 1, got %d", p.NumInstallments))
	}
	if p.TotalAmount.Cents < 0 {
		return NewValidationError("total_amount", "must not be negative")
	}
	if p.HasInterest {
		if p.InterestRate < 0 {
			return NewValidationError("interest_rate", "must not be negative")
		}
		if p.TotalWithInterest != nil && p.TotalWithInterest.Cents < 0 {
			return NewValidationError("total_with_interest", "must not be negative")
		}
	}
	if len(p.Description) > 200 {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	return nil
}

func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentPending, InstallmentPaid, InstallmentOverdue, InstallmentCancelled:
		return true
	default:
		return false
	}
}

func (i Installment) Validate() error {
	if strings.TrimSpace(i.PaymentID) == "" {
		return NewValidationError("payment_id", "payment id is required")
	}
	if i.Number < 1 {
		return NewValidationError("installment_number", fmt.Sprintf("must be at least 1, got %d", i.Number))
	}
	if i.Amount.Cents < 0 {
		return NewValidationError("amount", "must not be negative")
	}
	if i.DueDate.IsZero() {
		return NewValidationError("due_date", "due date is required")
	}
	if !i.Status.IsValid() {
		return NewValidationError("status", fmt.Sprintf("unknown status %q", i.Status))
	}
	return nil
}
