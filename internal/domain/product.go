package domain

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/X-culture24/my-farm/pkg/errors"
)

// ProductType is the kind of animal product.
type ProductType string

const (
	ProductMilk   ProductType = "milk"
	ProductEggs   ProductType = "eggs"
	ProductMeat   ProductType = "meat"
	ProductWool   ProductType = "wool"
	ProductHoney  ProductType = "honey"
	ProductCheese ProductType = "cheese"
	ProductYogurt ProductType = "yogurt"
	ProductButter ProductType = "butter"
	ProductOther  ProductType = "other"
)

// Unit measures a product quantity.
type Unit string

const (
	UnitKg      Unit = "kg"
	UnitLbs     Unit = "lbs"
	UnitLiters  Unit = "liters"
	UnitGallons Unit = "gallons"
	UnitPieces  Unit = "pieces"
	UnitDozens  Unit = "dozens"
)

// ProductStatus is the sellability of a product.
type ProductStatus string

const (
	ProductAvailable ProductStatus = "available"
	ProductReserved  ProductStatus = "reserved"
	ProductSold      ProductStatus = "sold"
	ProductExpired   ProductStatus = "expired"
	ProductRecalled  ProductStatus = "recalled"
)

// StockStatus summarizes how close a product is to running out.
type StockStatus string

const (
	StockHealthy  StockStatus = "healthy"
	StockLow      StockStatus = "low"
	StockCritical StockStatus = "critical"
)

// DefaultCurrency applies when a price or sale omits one.
const DefaultCurrency = "USD"

var (
	defaultMinimumStock = decimal.NewFromInt(10)
	defaultReorderPoint = decimal.NewFromInt(5)
)

// Quantity is a produced amount in a unit.
type Quantity struct {
	Amount decimal.Decimal `json:"amount"`
	Unit   Unit            `json:"unit"`
}

// Pricing holds per-unit cost and selling price.
type Pricing struct {
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	Currency     string          `json:"currency"`
}

// Inventory tracks what is left to sell.
type Inventory struct {
	Available    decimal.Decimal `json:"available"`
	Reserved     decimal.Decimal `json:"reserved"`
	Sold         decimal.Decimal `json:"sold"`
	MinimumStock decimal.Decimal `json:"minimumStock"`
	ReorderPoint decimal.Decimal `json:"reorderPoint"`
}

// SalesStats are cumulative over every sale of the product.
type SalesStats struct {
	TotalSold    decimal.Decimal `json:"totalSold"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	LastSaleDate *time.Time      `json:"lastSaleDate,omitempty"`
}

// Product is an animal product a farm sells from inventory.
type Product struct {
	ID             string        `json:"id"`
	FarmID         string        `json:"farmId"`
	Name           string        `json:"name"`
	ProductType    ProductType   `json:"productType"`
	Description    string        `json:"description,omitempty"`
	Quantity       Quantity      `json:"quantity"`
	Pricing        Pricing       `json:"pricing"`
	Inventory      Inventory     `json:"inventory"`
	SalesStats     SalesStats    `json:"salesStats"`
	Status         ProductStatus `json:"status"`
	ProductionDate time.Time     `json:"productionDate"`
	ExpiryDate     *time.Time    `json:"expiryDate,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ApplyDefaults fills currency, stock thresholds and status when unset.
func (p *Product) ApplyDefaults() {
	if p.Pricing.Currency == "" {
		p.Pricing.Currency = DefaultCurrency
	}
	if p.Inventory.MinimumStock.IsZero() {
		p.Inventory.MinimumStock = defaultMinimumStock
	}
	if p.Inventory.ReorderPoint.IsZero() {
		p.Inventory.ReorderPoint = defaultReorderPoint
	}
	if p.Status == "" {
		p.Status = ProductAvailable
	}
}

// Validate checks the product's cross-field rules.
func (p *Product) Validate() error {
	if p.Pricing.SellingPrice.LessThan(p.Pricing.CostPrice) {
		return apperrors.InvalidInput("selling price must be greater than or equal to cost price")
	}
	if p.ExpiryDate != nil && !p.ExpiryDate.After(p.ProductionDate) {
		return apperrors.InvalidInput("expiry date must be after production date")
	}
	inv := p.Inventory
	for _, v := range []decimal.Decimal{inv.Available, inv.Reserved, inv.Sold} {
		if v.IsNegative() {
			return apperrors.InvalidInput("inventory quantities cannot be negative")
		}
	}
	return nil
}

// StockStatus reports low at or under the reorder point, critical at or under
// the minimum stock, healthy otherwise. The reorder point is checked first.
func (p *Product) StockStatus() StockStatus {
	available := p.Inventory.Available
	switch {
	case available.LessThanOrEqual(p.Inventory.ReorderPoint):
		return StockLow
	case available.LessThanOrEqual(p.Inventory.MinimumStock):
		return StockCritical
	default:
		return StockHealthy
	}
}

// ProfitMargin is the markup over cost, (selling - cost) / cost as a
// percentage. It is zero when the cost price is zero.
func (p *Product) ProfitMargin() decimal.Decimal {
	cost := p.Pricing.CostPrice
	if cost.IsZero() {
		return decimal.Zero
	}
	return p.Pricing.SellingPrice.Sub(cost).Div(cost).Mul(decimal.NewFromInt(100)).Round(2)
}

// ApplySale moves quantity from available to sold and folds the sale into
// the product's stats. On failure the product is left untouched.
func (p *Product) ApplySale(quantity, unitPrice decimal.Decimal, now time.Time) error {
	if !quantity.IsPositive() {
		return apperrors.InvalidInput("sale quantity must be greater than zero")
	}
	if p.Inventory.Available.LessThan(quantity) {
		return apperrors.InsufficientInventory(p.ID, quantity.String(), p.Inventory.Available.String())
	}

	p.Inventory.Available = p.Inventory.Available.Sub(quantity)
	p.Inventory.Sold = p.Inventory.Sold.Add(quantity)

	stats := &p.SalesStats
	stats.TotalSold = stats.TotalSold.Add(quantity)
	stats.TotalRevenue = stats.TotalRevenue.Add(LineTotal(quantity, unitPrice))
	stats.AveragePrice = AveragePrice(stats.TotalRevenue, stats.TotalSold)
	at := now.UTC()
	stats.LastSaleDate = &at

	if p.Inventory.Available.IsZero() {
		p.Status = ProductSold
	}
	p.UpdatedAt = at
	return nil
}

// AveragePrice is revenue / sold to four places, or zero when nothing has
// been sold.
func AveragePrice(revenue, sold decimal.Decimal) decimal.Decimal {
	if sold.IsZero() {
		return decimal.Zero
	}
	return revenue.Div(sold).Round(4)
}

// ProductView is a product plus its derived figures, as served over the API.
type ProductView struct {
	*Product
	StockStatus  StockStatus     `json:"stockStatus"`
	ProfitMargin decimal.Decimal `json:"profitMargin"`
}

// View attaches derived figures to p.
func (p *Product) View() ProductView {
	return ProductView{Product: p, StockStatus: p.StockStatus(), ProfitMargin: p.ProfitMargin()}
}
