package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/X-culture24/my-farm/internal/domain"
	"github.com/X-culture24/my-farm/pkg/database"
	apperrors "github.com/X-culture24/my-farm/pkg/errors"
)

const productColumns = `id, farm_id, name, product_type, description, quantity_amount, quantity_unit,
	cost_price, selling_price, currency, available, reserved, sold, minimum_stock, reorder_point,
	total_sold, total_revenue, average_price, last_sale_date, status, production_date, expiry_date,
	created_at, updated_at`

// productNameConstraint keeps product names unique within a farm.
const productNameConstraint = "animal_products_farm_id_name_key"

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{pool: db}
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.FarmID,
		&p.Name,
		&p.ProductType,
		&p.Description,
		&p.Quantity.Amount,
		&p.Quantity.Unit,
		&p.Pricing.CostPrice,
		&p.Pricing.SellingPrice,
		&p.Pricing.Currency,
		&p.Inventory.Available,
		&p.Inventory.Reserved,
		&p.Inventory.Sold,
		&p.Inventory.MinimumStock,
		&p.Inventory.ReorderPoint,
		&p.SalesStats.TotalSold,
		&p.SalesStats.TotalRevenue,
		&p.SalesStats.AveragePrice,
		&p.SalesStats.LastSaleDate,
		&p.Status,
		&p.ProductionDate,
		&p.ExpiryDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO animal_products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.FarmID,
		p.Name,
		p.ProductType,
		p.Description,
		p.Quantity.Amount,
		p.Quantity.Unit,
		p.Pricing.CostPrice,
		p.Pricing.SellingPrice,
		p.Pricing.Currency,
		p.Inventory.Available,
		p.Inventory.Reserved,
		p.Inventory.Sold,
		p.Inventory.MinimumStock,
		p.Inventory.ReorderPoint,
		p.SalesStats.TotalSold,
		p.SalesStats.TotalRevenue,
		p.SalesStats.AveragePrice,
		p.SalesStats.LastSaleDate,
		p.Status,
		p.ProductionDate,
		p.ExpiryDate,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, productNameConstraint) {
			return apperrors.Conflict(fmt.Sprintf("product %q already exists on this farm", p.Name))
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM animal_products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByIDs retrieves the products that exist among ids, in no particular order.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	query := `SELECT ` + productColumns + ` FROM animal_products WHERE id = ANY($1)`
	return r.list(ctx, "get products", query, ids)
}

// ListByFarm returns a farm's products ordered by name.
func (r *ProductRepository) ListByFarm(ctx context.Context, farmID string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM animal_products WHERE farm_id = $1 ORDER BY name`
	return r.list(ctx, "list farm products", query, farmID)
}

func (r *ProductRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return products, nil
}

const applySaleSQL = `
	UPDATE animal_products SET
		available      = available - $2,
		sold           = sold + $2,
		total_sold     = total_sold + $2,
		total_revenue  = total_revenue + ROUND($2 * $3, 2),
		average_price  = CASE WHEN total_sold + $2 = 0 THEN 0
		                      ELSE (total_revenue + ROUND($2 * $3, 2)) / (total_sold + $2) END,
		last_sale_date = $4,
		status         = CASE WHEN available - $2 = 0 THEN 'sold' ELSE status END,
		updated_at     = $4
	WHERE id = $1 AND farm_id = $5 AND $2 > 0 AND available >= $2
	RETURNING ` + productColumns

// ApplySale decrements inventory with a single guarded UPDATE so concurrent
// sales of the same product can never drive available below zero.
func (r *ProductRepository) ApplySale(ctx context.Context, farmID, productID string, quantity, unitPrice decimal.Decimal, at time.Time) (p *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "ApplySale", applySaleSQL)
	defer func() { end(err) }()

	p, err = scanProduct(r.pool.QueryRow(ctx, applySaleSQL, productID, quantity, unitPrice, at.UTC(), farmID))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("apply sale to product %s: %w", productID, err)
	}

	var available decimal.Decimal
	err = r.pool.QueryRow(ctx,
		`SELECT available FROM animal_products WHERE id = $1 AND farm_id = $2`, productID, farmID).Scan(&available)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NotFound("product", productID)
	case err != nil:
		return nil, fmt.Errorf("read available for product %s: %w", productID, err)
	}
	if !quantity.IsPositive() {
		return nil, apperrors.InvalidInput("sale quantity must be greater than zero")
	}
	return nil, apperrors.InsufficientInventory(productID, quantity.String(), available.String())
}
