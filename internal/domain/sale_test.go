package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/X-culture24/my-farm/pkg/errors"
)

var saleTime = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newSale(status SaleStatus) *Sale {
	s := &Sale{
		ID:     "sale-1",
		FarmID: "farm-1",
		Items: []SaleItem{
			{ProductID: "p-1", ProductType: ItemAnimal, Name: "Eggs", Quantity: d("2"), UnitPrice: d("5")},
			{ProductID: "p-2", ProductType: ItemFarm, Name: "Corn", Quantity: d("3"), UnitPrice: d("2"), Discount: d("1")},
		},
		Totals: Totals{Tax: d("1.50"), Shipping: d("2")},
		Status: status,
	}
	s.Recalculate()
	return s
}

func TestComputeTotals(t *testing.T) {
	items := []SaleItem{
		{Quantity: d("2"), UnitPrice: d("5"), Discount: d("0.5")},
		{Quantity: d("1.5"), UnitPrice: d("4"), Discount: d("1")},
	}
	got := ComputeTotals(items, d("2"), d("3"), "")

	assert.True(t, got.Subtotal.Equal(d("16")))
	assert.True(t, got.Discount.Equal(d("1.5")))
	assert.True(t, got.Total.Equal(d("19.5")))
	assert.Equal(t, "USD", got.Currency)
}

func TestComputeTotals_RoundsLinesToCents(t *testing.T) {
	items := []SaleItem{
		{Quantity: d("0.333"), UnitPrice: d("2.50")},
		{Quantity: d("1.125"), UnitPrice: d("0.99")},
	}
	got := ComputeTotals(items, decimal.Zero, decimal.Zero, "")

	// 0.8325 -> 0.83, 1.11375 -> 1.11
	assert.True(t, got.Subtotal.Equal(d("1.94")), got.Subtotal.String())

	s := &Sale{Items: items}
	s.Recalculate()
	assert.True(t, s.Items[0].TotalPrice.Equal(d("0.83")))
	assert.True(t, s.Items[1].TotalPrice.Equal(d("1.11")))
	assert.True(t, s.Totals.Total.Equal(s.Items[0].TotalPrice.Add(s.Items[1].TotalPrice)))
}

func TestSale_RecalculateIsIdempotent(t *testing.T) {
	s := newSale(SalePending)
	s.Payment.PaidAmount = d("4")
	s.Recalculate()
	first, err := json.Marshal(s)
	require.NoError(t, err)

	s.Recalculate()

	second, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
	assert.True(t, s.Items[0].TotalPrice.Equal(d("10")))
	assert.True(t, s.Totals.Total.Equal(d("18.5")))
	assert.True(t, s.Payment.Amount.Equal(s.Totals.Total))
	assert.True(t, s.Payment.DueAmount.Equal(d("14.5")))
	assert.Equal(t, PaymentPartial, s.Payment.Status)
}

func TestSale_RecalculateIgnoresClientTotals(t *testing.T) {
	s := newSale(SalePending)
	s.Items[0].TotalPrice = d("9999")
	s.Totals.Total = d("1")
	s.Recalculate()

	assert.True(t, s.Items[0].TotalPrice.Equal(d("10")))
	assert.True(t, s.Totals.Total.Equal(d("18.5")))
}

func TestDerivePaymentStatus(t *testing.T) {
	assert.Equal(t, PaymentPending, DerivePaymentStatus(decimal.Zero, d("10")))
	assert.Equal(t, PaymentPartial, DerivePaymentStatus(d("3"), d("10")))
	assert.Equal(t, PaymentPaid, DerivePaymentStatus(d("10"), d("10")))
	assert.Equal(t, PaymentPending, DerivePaymentStatus(decimal.Zero, decimal.Zero))
}

func TestSale_ValidateTotals(t *testing.T) {
	s := newSale(SalePending)
	assert.NoError(t, s.ValidateTotals())

	s.Payment.PaidAmount = d("18.51")
	assert.ErrorIs(t, s.ValidateTotals(), apperrors.ErrInvalidPayment)

	s = newSale(SalePending)
	s.Items[1].Discount = d("100")
	s.Recalculate()
	assert.ErrorIs(t, s.ValidateTotals(), apperrors.ErrInvalidInput)
}

func TestSale_AddPayment(t *testing.T) {
	s := newSale(SalePending)

	require.NoError(t, s.AddPayment(d("8.5"), PaymentCash, "", saleTime))
	assert.Equal(t, PaymentPartial, s.Payment.Status)
	assert.Equal(t, SalePending, s.Status)
	assert.True(t, s.Payment.DueAmount.Equal(d("10")))
	require.NotNil(t, s.Payment.PaymentDate)

	require.NoError(t, s.AddPayment(d("10"), PaymentBankTransfer, "tx-77", saleTime.Add(time.Hour)))
	assert.Equal(t, PaymentPaid, s.Payment.Status)
	assert.Equal(t, SaleConfirmed, s.Status)
	assert.True(t, s.Payment.DueAmount.IsZero())
	assert.Equal(t, PaymentBankTransfer, s.Payment.Method)
	assert.Equal(t, "tx-77", s.Payment.TransactionID)
}

func TestSale_AddPayment_KeepsLaterStatus(t *testing.T) {
	s := newSale(SaleShipped)
	require.NoError(t, s.AddPayment(s.Totals.Total, PaymentCash, "", saleTime))
	assert.Equal(t, SaleShipped, s.Status)
	assert.Equal(t, PaymentPaid, s.Payment.Status)
}

func TestSale_AddPayment_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		status   SaleStatus
		paid     string
		amount   string
		sentinel error
	}{
		{"zero amount", SalePending, "0", "0", apperrors.ErrInvalidInput},
		{"negative amount", SalePending, "0", "-2", apperrors.ErrInvalidInput},
		{"exceeds total", SalePending, "0", "18.51", apperrors.ErrInvalidPayment},
		{"exceeds remaining", SalePending, "10", "9", apperrors.ErrInvalidPayment},
		{"cancelled", SaleCancelled, "0", "1", apperrors.ErrInvalidPayment},
		{"refunded", SaleRefunded, "0", "1", apperrors.ErrInvalidPayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSale(tt.status)
			s.Payment.PaidAmount = d(tt.paid)
			s.Recalculate()
			before := s.Payment

			err := s.AddPayment(d(tt.amount), PaymentCash, "", saleTime)

			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, before, s.Payment)
			assert.Equal(t, tt.status, s.Status)
		})
	}
}

func TestSale_PaidNeverExceedsTotal(t *testing.T) {
	s := newSale(SalePending)
	for _, amt := range []string{"5", "7", "9", "3", "3.5", "0.01"} {
		_ = s.AddPayment(d(amt), PaymentCash, "", saleTime)
		require.True(t, s.Payment.PaidAmount.LessThanOrEqual(s.Totals.Total))
	}
	assert.True(t, s.Payment.PaidAmount.Equal(s.Totals.Total))
}

func TestCanTransition(t *testing.T) {
	all := []SaleStatus{SalePending, SaleConfirmed, SaleProcessing, SaleShipped, SaleDelivered, SaleCancelled, SaleRefunded}
	allowed := map[SaleStatus][]SaleStatus{
		SalePending:    {SaleConfirmed, SaleCancelled, SaleRefunded},
		SaleConfirmed:  {SaleProcessing, SaleCancelled, SaleRefunded},
		SaleProcessing: {SaleShipped, SaleCancelled, SaleRefunded},
		SaleShipped:    {SaleDelivered, SaleRefunded},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	assert.False(t, CanTransition("bogus", SaleConfirmed))
	assert.True(t, SaleDelivered.IsTerminal())
	assert.False(t, SaleShipped.IsTerminal())
	assert.False(t, SaleStatus("bogus").IsTerminal())
}

func TestSale_TransitionTo(t *testing.T) {
	s := newSale(SaleShipped)
	s.Notes = "leave at gate"

	require.NoError(t, s.TransitionTo(SaleDelivered, "", saleTime))
	assert.Equal(t, SaleDelivered, s.Status)
	require.NotNil(t, s.OrderDetails.DeliveryDate)
	assert.Equal(t, saleTime, *s.OrderDetails.DeliveryDate)
	assert.Equal(t, "leave at gate", s.Notes)

	err := s.TransitionTo(SalePending, "", saleTime)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, SaleDelivered, s.Status)
}

func TestSale_TransitionTo_SameStatusRejected(t *testing.T) {
	s := newSale(SaleConfirmed)
	assert.ErrorIs(t, s.TransitionTo(SaleConfirmed, "", saleTime), apperrors.ErrInvalidTransition)
}

func TestSale_TransitionTo_ReplacesNotes(t *testing.T) {
	s := newSale(SalePending)
	s.Notes = "old"
	require.NoError(t, s.TransitionTo(SaleConfirmed, "called customer", saleTime))
	assert.Equal(t, "called customer", s.Notes)
}

func TestSale_Cancel(t *testing.T) {
	for _, st := range []SaleStatus{SalePending, SaleConfirmed, SaleProcessing} {
		s := newSale(st)
		s.Notes = "original"
		require.NoError(t, s.Cancel("customer changed mind", saleTime), st)
		assert.Equal(t, SaleCancelled, s.Status)
		assert.Equal(t, "customer changed mind", s.Notes)
	}
}

func TestSale_Cancel_Rejected(t *testing.T) {
	for _, st := range []SaleStatus{SaleShipped, SaleDelivered, SaleCancelled, SaleRefunded} {
		s := newSale(st)
		s.Notes = "keep"
		err := s.Cancel("nope", saleTime)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, st)
		assert.Equal(t, st, s.Status)
		assert.Equal(t, "keep", s.Notes)
	}

	err := newSale(SaleShipped).Cancel("x", saleTime)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "cannot cancel a shipped or delivered sale", appErr.Message)
}

func TestSale_AnimalItems(t *testing.T) {
	items := newSale(SalePending).AnimalItems()
	require.Len(t, items, 1)
	assert.Equal(t, "p-1", items[0].ProductID)
}
