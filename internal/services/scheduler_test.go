package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
)

func TestGenerateInstallments_ThreeWaySplit(t *testing.T) {
	p := core.Payment{ID: "pay-1", TotalAmount: core.Money{Cents: 100000}, NumInstallments: 3}

	got, err := GenerateInstallments(p, core.NewDate(2026, 1, 15), "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := []struct {
		amount string
		due    string
	}{
		{"333.33", "2026-01-15"},
		{"333.33", "2026-02-15"},
		{"333.34", "2026-03-15"},
	}
	for i, w := range want {
		assert.Equal(t, i+1, got[i].Number)
		assert.Equal(t, w.amount, got[i].Amount.String())
		assert.Equal(t, w.due, got[i].DueDate.String())
		assert.Equal(t, core.InstallmentPending, got[i].Status)
		assert.Nil(t, got[i].PaidDate)
		assert.Equal(t, "pay-1", got[i].PaymentID)
		assert.Equal(t, "owner-1", got[i].OwnerID)
	}
}

func TestGenerateInstallments_SumsExactlyToPayable(t *testing.T) {
	amounts := []int64{0, 1, 99, 100, 1000, 12345, 99999, 100000, 123456789}
	for _, cents := range amounts {
		for n := 1; n <= 36; n++ {
			p := core.Payment{ID: "p", TotalAmount: core.Money{Cents: cents}, NumInstallments: n}
			got, err := GenerateInstallments(p, core.NewDate(2026, 1, 31), "")
			if err != nil {
				// Only tiny amounts spread thin may be rejected.
				require.True(t, errors.Is(err, core.ErrValidation), "cents=%d n=%d: %v", cents, n, err)
				require.Less(t, cents, int64(n*n), "cents=%d n=%d rejected unexpectedly", cents, n)
				continue
			}
			require.Len(t, got, n)
			var sum int64
			for i, inst := range got {
				require.Equal(t, i+1, inst.Number)
				require.GreaterOrEqual(t, inst.Amount.Cents, int64(0))
				sum += inst.Amount.Cents
				if i > 0 {
					require.True(t, got[i-1].DueDate.IsBefore(inst.DueDate), "due dates must increase")
					require.Equal(t, got[i-1].Amount, got[0].Amount, "only the last installment may differ")
				}
			}
			require.Equal(t, cents, sum, "cents=%d n=%d", cents, n)
		}
	}
}

func TestGenerateInstallments_UsesTotalWithInterest(t *testing.T) {
	total := core.Money{Cents: 110000}
	p := core.Payment{ID: "p", TotalAmount: core.Money{Cents: 100000}, HasInterest: true, TotalWithInterest: &total, NumInstallments: 4}

	got, err := GenerateInstallments(p, core.NewDate(2026, 5, 10), "")
	require.NoError(t, err)

	var sum int64
	for _, inst := range got {
		sum += inst.Amount.Cents
	}
	assert.Equal(t, int64(110000), sum)
	assert.Equal(t, "275.00", got[0].Amount.String())
}

func TestGenerateInstallments_IgnoresTotalWithoutInterestFlag(t *testing.T) {
	total := core.Money{Cents: 110000}
	p := core.Payment{ID: "p", TotalAmount: core.Money{Cents: 100000}, TotalWithInterest: &total, NumInstallments: 1}

	got, err := GenerateInstallments(p, core.NewDate(2026, 5, 10), "")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), got[0].Amount.Cents)
}

func TestGenerateInstallments_ClampsMonthEnd(t *testing.T) {
	p := core.Payment{ID: "p", TotalAmount: core.Money{Cents: 40000}, NumInstallments: 4}

	got, err := GenerateInstallments(p, core.NewDate(2026, 1, 31), "")
	require.NoError(t, err)

	dues := make([]string, len(got))
	for i, inst := range got {
		dues[i] = inst.DueDate.String()
	}
	assert.Equal(t, []string{"2026-01-31", "2026-02-28", "2026-03-31", "2026-04-30"}, dues)
}

func TestGenerateInstallments_HalfUpBase(t *testing.T) {
	// 10.05 / 2 = 5.025 -> base 5.03, last 5.02
	p := core.Payment{ID: "p", TotalAmount: core.Money{Cents: 1005}, NumInstallments: 2}

	got, err := GenerateInstallments(p, core.NewDate(2026, 1, 1), "")
	require.NoError(t, err)
	assert.Equal(t, int64(503), got[0].Amount.Cents)
	assert.Equal(t, int64(502), got[1].Amount.Cents)
}

func TestGenerateInstallments_ZeroPayable(t *testing.T) {
	p := core.Payment{ID: "p", NumInstallments: 3}

	got, err := GenerateInstallments(p, core.NewDate(2026, 1, 1), "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, inst := range got {
		assert.True(t, inst.Amount.IsZero())
	}
}

func TestGenerateInstallments_SmallestPositiveSplit(t *testing.T) {
	p := core.Payment{ID: "p", TotalAmount: core.Money{Cents: 3}, NumInstallments: 3}

	got, err := GenerateInstallments(p, core.NewDate(2026, 1, 1), "")
	require.NoError(t, err)
	for _, inst := range got {
		assert.Equal(t, int64(1), inst.Amount.Cents)
	}
}

func TestGenerateInstallments_Errors(t *testing.T) {
	tests := []struct {
		name string
		p    core.Payment
		due  core.Date
	}{
		{"zero installments", core.Payment{TotalAmount: core.Money{Cents: 100}, NumInstallments: 0}, core.NewDate(2026, 1, 1)},
		{"negative installments", core.Payment{TotalAmount: core.Money{Cents: 100}, NumInstallments: -2}, core.NewDate(2026, 1, 1)},
		{"negative payable", core.Payment{TotalAmount: core.Money{Cents: -100}, NumInstallments: 2}, core.NewDate(2026, 1, 1)},
		{"missing first due date", core.Payment{TotalAmount: core.Money{Cents: 100}, NumInstallments: 2}, core.Date{}},
		{"last installment would go negative", core.Payment{TotalAmount: core.Money{Cents: 15}, NumInstallments: 10}, core.NewDate(2026, 1, 1)},
		{"last installment would be zero", core.Payment{TotalAmount: core.Money{Cents: 2}, NumInstallments: 3}, core.NewDate(2026, 1, 1)},
		{"base installment would be zero", core.Payment{TotalAmount: core.Money{Cents: 2}, NumInstallments: 5}, core.NewDate(2026, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateInstallments(tt.p, tt.due, "")
			require.Error(t, err)
			assert.Nil(t, got)
			var ve *core.ValidationError
			assert.True(t, errors.As(err, &ve), "expected ValidationError, got %T", err)
		})
	}
}

func TestGenerateInstallments_IsPure(t *testing.T) {
	p := core.Payment{ID: "p", TotalAmount: core.Money{Cents: 100000}, NumInstallments: 3}
	a, err := GenerateInstallments(p, core.NewDate(2026, 1, 15), "o")
	require.NoError(t, err)
	b, err := GenerateInstallments(p, core.NewDate(2026, 1, 15), "o")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
