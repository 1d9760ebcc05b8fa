package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/X-culture24/my-farm/pkg/errors"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newMilk(available string) *Product {
	p := &Product{
		ID:          "prod-1",
		FarmID:      "farm-1",
		Name:        "Raw milk",
		ProductType: ProductMilk,
		Pricing:     Pricing{CostPrice: d("1.20"), SellingPrice: d("2.00")},
		Inventory:   Inventory{Available: d(available)},
	}
	p.ApplyDefaults()
	return p
}

func TestProduct_ApplyDefaults(t *testing.T) {
	p := &Product{}
	p.ApplyDefaults()

	assert.Equal(t, "USD", p.Pricing.Currency)
	assert.True(t, p.Inventory.MinimumStock.Equal(d("10")))
	assert.True(t, p.Inventory.ReorderPoint.Equal(d("5")))
	assert.Equal(t, ProductAvailable, p.Status)

	custom := &Product{Inventory: Inventory{MinimumStock: d("3"), ReorderPoint: d("1")}}
	custom.ApplyDefaults()
	assert.True(t, custom.Inventory.MinimumStock.Equal(d("3")))
}

func TestProduct_Validate(t *testing.T) {
	prod := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	before := prod.Add(-time.Hour)
	after := prod.AddDate(0, 0, 7)

	tests := []struct {
		name    string
		edit    func(*Product)
		wantErr bool
	}{
		{"valid", func(*Product) {}, false},
		{"selling equals cost", func(p *Product) { p.Pricing.SellingPrice = p.Pricing.CostPrice }, false},
		{"selling below cost", func(p *Product) { p.Pricing.SellingPrice = d("1") }, true},
		{"expiry after production", func(p *Product) { p.ExpiryDate = &after }, false},
		{"expiry before production", func(p *Product) { p.ExpiryDate = &before }, true},
		{"expiry equals production", func(p *Product) { p.ExpiryDate = &prod }, true},
		{"negative available", func(p *Product) { p.Inventory.Available = d("-1") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMilk("20")
			p.ProductionDate = prod
			tt.edit(p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProduct_StockStatus(t *testing.T) {
	tests := []struct {
		available string
		want      StockStatus
	}{
		{"0", StockLow},
		{"5", StockLow},
		{"5.5", StockCritical},
		{"10", StockCritical},
		{"10.01", StockHealthy},
		{"250", StockHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.available, func(t *testing.T) {
			assert.Equal(t, tt.want, newMilk(tt.available).StockStatus())
		})
	}
}

func TestProduct_ProfitMargin(t *testing.T) {
	assert.True(t, newMilk("1").ProfitMargin().Equal(d("66.67")))

	p := newMilk("1")
	p.Pricing = Pricing{CostPrice: d("2"), SellingPrice: d("3")}
	assert.True(t, p.ProfitMargin().Equal(d("50")))

	gift := newMilk("1")
	gift.Pricing = Pricing{SellingPrice: d("3")}
	assert.True(t, gift.ProfitMargin().IsZero())
}

func TestProduct_ApplySale(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	p := newMilk("10")

	require.NoError(t, p.ApplySale(d("4"), d("2.50"), now))

	assert.True(t, p.Inventory.Available.Equal(d("6")))
	assert.True(t, p.Inventory.Sold.Equal(d("4")))
	assert.True(t, p.SalesStats.TotalSold.Equal(d("4")))
	assert.True(t, p.SalesStats.TotalRevenue.Equal(d("10")))
	assert.True(t, p.SalesStats.AveragePrice.Equal(d("2.5")))
	require.NotNil(t, p.SalesStats.LastSaleDate)
	assert.Equal(t, now, *p.SalesStats.LastSaleDate)
	assert.Equal(t, ProductAvailable, p.Status)

	require.NoError(t, p.ApplySale(d("6"), d("1.50"), now.Add(time.Hour)))
	assert.True(t, p.Inventory.Available.IsZero())
	assert.True(t, p.SalesStats.TotalRevenue.Equal(d("19")))
	assert.True(t, p.SalesStats.AveragePrice.Equal(d("1.9")))
	assert.Equal(t, ProductSold, p.Status)
}

func TestProduct_ApplySale_InsufficientLeavesProductUntouched(t *testing.T) {
	p := newMilk("3")
	before := *p

	err := p.ApplySale(d("5"), d("2"), time.Now())

	assert.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
	assert.Equal(t, before, *p)
}

func TestProduct_ApplySale_RejectsNonPositiveQuantity(t *testing.T) {
	p := newMilk("3")
	assert.ErrorIs(t, p.ApplySale(d("0"), d("2"), time.Now()), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, p.ApplySale(d("-1"), d("2"), time.Now()), apperrors.ErrInvalidInput)
}

func TestProduct_ApplySale_AvailableNeverNegative(t *testing.T) {
	p := newMilk("7")
	for _, q := range []string{"2", "3", "4", "1", "2", "1"} {
		_ = p.ApplySale(d(q), d("1"), time.Now())
		require.False(t, p.Inventory.Available.IsNegative())
	}
	assert.True(t, p.Inventory.Available.IsZero())
	assert.True(t, p.Inventory.Sold.Equal(d("7")))
}

func TestAveragePrice_ZeroSold(t *testing.T) {
	assert.True(t, AveragePrice(d("10"), decimal.Zero).IsZero())
}
