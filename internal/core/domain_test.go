package core

import (
	"errors"
	"testing"
)

func TestAddMonthsClamped(t *testing.T) {
	cases := []struct {
		start Date
		n     int
		want  string
	}{
		{NewDate(2026, 1, 15), 0, "2026-01-15"},
		{NewDate(2026, 1, 15), 1, "2026-02-15"},
		{NewDate(2026, 1, 31), 1, "2026-02-28"},
		{NewDate(2028, 1, 31), 1, "2028-02-29"}, // leap year
		{NewDate(2026, 1, 31), 2, "2026-03-31"},
		{NewDate(2026, 1, 31), 3, "2026-04-30"},
		{NewDate(2026, 11, 30), 3, "2027-02-28"},
		{NewDate(2026, 12, 15), 13, "2028-01-15"},
	}
	for i, tc := range cases {
		got := tc.start.AddMonthsClamped(tc.n).String()
		if got != tc.want {
			t.Fatalf("case %d: %s + %d months = %s, want %s", i, tc.start, tc.n, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-03-15 ")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d != NewDate(2026, 3, 15) {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := ParseDate("15/03/2026"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDateIsBefore(t *testing.T) {
	if !NewDate(2026, 1, 14).IsBefore(NewDate(2026, 1, 15)) {
		t.Fatal("expected earlier day to be before")
	}
	if NewDate(2026, 1, 15).IsBefore(NewDate(2026, 1, 15)) {
		t.Fatal("same day must not be before")
	}
}

func TestPaymentPayableAmount(t *testing.T) {
	withInterest := Money{Cents: 110000}
	cases := []struct {
		name string
		p    Payment
		want int64
	}{
		{"principal only", Payment{TotalAmount: Money{Cents: 100000}}, 100000},
		{"interest applies", Payment{TotalAmount: Money{Cents: 100000}, HasInterest: true, TotalWithInterest: &withInterest}, 110000},
		{"interest flag off ignores total", Payment{TotalAmount: Money{Cents: 100000}, TotalWithInterest: &withInterest}, 100000},
		{"interest without total", Payment{TotalAmount: Money{Cents: 100000}, HasInterest: true}, 100000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.PayableAmount().Cents; got != tc.want {
				t.Errorf("PayableAmount() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestPaymentValidate(t *testing.T) {
	good := Payment{ProjectID: "p1", TotalAmount: Money{Cents: 100}, NumInstallments: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	negative := Money{Cents: -1}
	bads := []Payment{
		{TotalAmount: Money{Cents: 100}, NumInstallments: 1},
		{ProjectID: "p1", TotalAmount: Money{Cents: 100}, NumInstallments: 0},
		{ProjectID: "p1", TotalAmount: Money{Cents: -100}, NumInstallments: 1},
		{ProjectID: "p1", TotalAmount: Money{Cents: 100}, NumInstallments: 1, HasInterest: true, InterestRate: -1},
		{ProjectID: "p1", TotalAmount: Money{Cents: 100}, NumInstallments: 1, HasInterest: true, TotalWithInterest: &negative},
	}
	for i, p := range bads {
		err := p.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d expected *ValidationError, got %T", i, err)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := NewStoreError("list payments", errors.New("disk I/O error"))
	if !errors.Is(wrapped, ErrStore) {
		t.Fatal("store error should match ErrStore")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Fatal("store error must not match ErrNotFound")
	}
	if got := NewNotFoundError("quote", "q1").Error(); got != `quote "q1" not found` {
		t.Fatalf("unexpected message %q", got)
	}
}
