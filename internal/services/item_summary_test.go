package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger/memory"
)

func TestItemSummary_StatusPerItem(t *testing.T) {
	s := memory.New()
	svc := NewPaymentService(s, nil, nil)
	ctx := context.Background()

	paidItem := mustItem(t, s, "proj", 60000)
	partialItem := mustItem(t, s, "proj", 30000)
	untouched := mustItem(t, s, "proj", 5000)
	mustItem(t, s, "other", 1)

	_, paidInsts := mustCreatePayment(t, svc, core.Payment{ProjectID: "proj", ItemID: paidItem.ID, TotalAmount: core.Money{Cents: 60000}, NumInstallments: 2}, core.NewDate(2026, 1, 5))
	for _, inst := range paidInsts {
		mustPay(t, svc, inst)
	}
	_, partialInsts := mustCreatePayment(t, svc, core.Payment{ProjectID: "proj", ItemID: partialItem.ID, TotalAmount: core.Money{Cents: 30000}, NumInstallments: 3}, core.NewDate(2026, 1, 5))
	mustPay(t, svc, partialInsts[0])
	// Unlinked payments are ignored by the item view.
	mustCreatePayment(t, svc, core.Payment{ProjectID: "proj", TotalAmount: core.Money{Cents: 999}, NumInstallments: 1}, core.NewDate(2026, 1, 5))

	got, err := NewItemSummarizer(s, s, s, nil).GetItemsWithPaymentSummary(ctx, "proj")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, paidItem.ID, got[0].Item.ID)
	assert.Equal(t, core.ItemPaid, got[0].PaymentStatus)
	assert.Equal(t, 1, got[0].PaymentCount)
	assert.Equal(t, int64(60000), got[0].TotalPaid.Cents)
	assert.Equal(t, got[0].TotalPaymentAmount, got[0].TotalPaid)

	assert.Equal(t, core.ItemPartial, got[1].PaymentStatus)
	assert.Equal(t, int64(10000), got[1].TotalPaid.Cents)
	assert.Equal(t, int64(30000), got[1].TotalPaymentAmount.Cents)

	assert.Equal(t, untouched.ID, got[2].Item.ID)
	assert.Equal(t, core.ItemUnpaid, got[2].PaymentStatus)
	assert.Equal(t, 0, got[2].PaymentCount)
	assert.True(t, got[2].TotalPaid.IsZero())
	assert.True(t, got[2].TotalPaymentAmount.IsZero())
	assert.Equal(t, int64(5000), got[2].EstimatedTotal.Cents)
}

func TestSummarizeItems_MultiplePaymentsPerItem(t *testing.T) {
	items := []core.Item{{ID: "i1", EstimatedTotal: core.Money{Cents: 1000}}}
	withInterest := core.Money{Cents: 700}
	payments := []core.Payment{
		{ID: "a", ItemID: "i1", TotalAmount: core.Money{Cents: 500}},
		{ID: "b", ItemID: "i1", TotalAmount: core.Money{Cents: 600}, HasInterest: true, TotalWithInterest: &withInterest},
	}
	installments := []core.Installment{
		{PaymentID: "a", Amount: core.Money{Cents: 500}, Status: core.InstallmentPaid},
		{PaymentID: "b", Amount: core.Money{Cents: 300}, Status: core.InstallmentPaid},
		{PaymentID: "b", Amount: core.Money{Cents: 400}, Status: core.InstallmentPending},
	}

	got := SummarizeItems(items, payments, installments)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].PaymentCount)
	assert.Equal(t, int64(1200), got[0].TotalPaymentAmount.Cents)
	assert.Equal(t, int64(800), got[0].TotalPaid.Cents)
	assert.Equal(t, core.ItemPartial, got[0].PaymentStatus)
}

func TestItemStatus(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		total, paid int64
		want        core.ItemPaymentStatus
	}{
		{"no payments", 0, 0, 0, core.ItemUnpaid},
		{"nothing paid", 1, 100, 0, core.ItemUnpaid},
		{"zero total nothing paid", 1, 0, 0, core.ItemUnpaid},
		{"partial", 1, 100, 40, core.ItemPartial},
		{"exact", 2, 100, 100, core.ItemPaid},
		{"overpaid", 1, 100, 140, core.ItemPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, itemStatus(tt.count, tt.total, tt.paid))
		})
	}
}

func TestItemSummary_ReadFailureAborts(t *testing.T) {
	fs := &failingStore{Store: memory.New(), failInstallments: true}
	svc := NewPaymentService(fs.Store, nil, nil)
	it := mustItem(t, fs.Store, "proj", 100)
	mustCreatePayment(t, svc, core.Payment{ProjectID: "proj", ItemID: it.ID, TotalAmount: core.Money{Cents: 100}, NumInstallments: 1}, core.NewDate(2026, 1, 1))

	got, err := NewItemSummarizer(fs, fs, fs, nil).GetItemsWithPaymentSummary(context.Background(), "proj")
	assert.ErrorIs(t, err, core.ErrStore)
	assert.Nil(t, got)
}
