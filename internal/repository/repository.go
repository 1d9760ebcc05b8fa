package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/X-culture24/my-farm/internal/domain"
)

// SaleFilter narrows a farm's sale listing. Zero values are ignored.
type SaleFilter struct {
	FarmID       string
	Status       domain.SaleStatus
	CustomerType domain.CustomerType
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}

// SaleRepository persists sales and their items.
type SaleRepository interface {
	// Insert stores a new sale and its items. It returns false without error
	// when the order number is already taken.
	Insert(ctx context.Context, sale *domain.Sale) (bool, error)

	// GetByID loads a sale with its items.
	GetByID(ctx context.Context, id string) (*domain.Sale, error)

	// GetForUpdate loads a sale and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Sale, error)

	// Update writes the mutable fields: status, payment, delivery date and notes.
	Update(ctx context.Context, sale *domain.Sale) error

	// List returns matching sales newest first, plus the total match count.
	List(ctx context.Context, filter SaleFilter) ([]domain.Sale, int, error)

	// Summary aggregates sales ordered in [from, to].
	Summary(ctx context.Context, farmID string, from, to time.Time) (domain.SalesSummary, error)

	// TopProducts groups items by name and ranks them by quantity sold.
	TopProducts(ctx context.Context, farmID string, from, to time.Time, limit int) ([]domain.ProductSales, error)

	// CountByStatus counts sales per status.
	CountByStatus(ctx context.Context, farmID string, from, to time.Time) ([]domain.StatusCount, error)
}

// ProductRepository persists animal products and runs the inventory ledger.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)

	// ListByFarm returns every product of a farm ordered by name.
	ListByFarm(ctx context.Context, farmID string) ([]domain.Product, error)

	// ApplySale atomically moves quantity from available to sold. It returns
	// an InsufficientInventory error when available < quantity and NotFound
	// when the product does not exist in farmID; in both cases nothing changes.
	ApplySale(ctx context.Context, farmID, productID string, quantity, unitPrice decimal.Decimal, at time.Time) (*domain.Product, error)
}

// Store hands out repositories bound to one connection or transaction.
type Store interface {
	Sales() SaleRepository
	Products() ProductRepository

	// WithinTx runs fn against repositories sharing one transaction. fn's
	// error rolls everything back.
	WithinTx(ctx context.Context, fn func(Store) error) error
}
