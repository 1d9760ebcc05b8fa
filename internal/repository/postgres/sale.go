package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/X-culture24/my-farm/internal/domain"
	"github.com/X-culture24/my-farm/internal/repository"
	"github.com/X-culture24/my-farm/pkg/database"
	apperrors "github.com/X-culture24/my-farm/pkg/errors"
)

const saleColumns = `s.id, s.order_number, s.farm_id, s.customer_name, s.customer_email, s.customer_phone,
	s.customer_address, s.customer_type, s.order_date, s.delivery_method, s.delivery_date,
	s.delivery_address, s.delivery_notes, s.payment_method, s.payment_status, s.paid_amount,
	s.payment_date, s.transaction_id, s.subtotal, s.discount, s.tax, s.shipping, s.total,
	s.currency, s.status, s.notes, s.created_by, s.created_at, s.updated_at`

// saleItemsJSON aggregates a sale's items in position order. Keys match the
// JSON tags of domain.SaleItem.
const saleItemsJSON = `COALESCE((
		SELECT JSONB_AGG(
			JSONB_BUILD_OBJECT(
				'productId', i.product_id,
				'productType', i.product_type,
				'name', i.name,
				'quantity', i.quantity,
				'unit', i.unit,
				'unitPrice', i.unit_price,
				'totalPrice', i.total_price,
				'discount', i.discount,
				'notes', i.notes
			) ORDER BY i.position
		)
		FROM sale_items i
		WHERE i.sale_id = s.id
	), '[]'::jsonb) AS items`

// SaleRepository implements repository.SaleRepository using PostgreSQL.
type SaleRepository struct {
	pool database.DBTX
}

// NewSaleRepository creates a PostgreSQL-backed sale repository.
func NewSaleRepository(pool database.DBTX) *SaleRepository {
	return &SaleRepository{pool: pool}
}

// saleDest returns scan targets for saleColumns in order.
func saleDest(s *domain.Sale) []any {
	return []any{
		&s.ID,
		&s.OrderNumber,
		&s.FarmID,
		&s.Customer.Name,
		&s.Customer.Email,
		&s.Customer.Phone,
		&s.Customer.Address,
		&s.Customer.Type,
		&s.OrderDetails.OrderDate,
		&s.OrderDetails.DeliveryMethod,
		&s.OrderDetails.DeliveryDate,
		&s.OrderDetails.DeliveryAddress,
		&s.OrderDetails.DeliveryNotes,
		&s.Payment.Method,
		&s.Payment.Status,
		&s.Payment.PaidAmount,
		&s.Payment.PaymentDate,
		&s.Payment.TransactionID,
		&s.Totals.Subtotal,
		&s.Totals.Discount,
		&s.Totals.Tax,
		&s.Totals.Shipping,
		&s.Totals.Total,
		&s.Totals.Currency,
		&s.Status,
		&s.Notes,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	}
}

// fillPayment derives the payment fields that are not stored.
func fillPayment(s *domain.Sale) {
	s.Payment.Amount = s.Totals.Total
	s.Payment.DueAmount = s.Totals.Total.Sub(s.Payment.PaidAmount)
}

func unmarshalItems(raw []byte) ([]domain.SaleItem, error) {
	items := []domain.SaleItem{}
	if len(raw) == 0 || string(raw) == "null" {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unmarshal sale items: %w", err)
	}
	return items, nil
}

const insertSaleSQL = `
	INSERT INTO sales (id, order_number, farm_id, customer_name, customer_email, customer_phone,
		customer_address, customer_type, order_date, delivery_method, delivery_date,
		delivery_address, delivery_notes, payment_method, payment_status, paid_amount,
		payment_date, transaction_id, subtotal, discount, tax, shipping, total,
		currency, status, notes, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		$21, $22, $23, $24, $25, $26, $27, $28, $29)
	ON CONFLICT (order_number) DO NOTHING
	RETURNING id`

// Insert stores the sale row and then its items. Callers run it inside a
// transaction so a failed item insert leaves nothing behind.
func (r *SaleRepository) Insert(ctx context.Context, s *domain.Sale) (inserted bool, err error) {
	ctx, end := database.TraceQuery(ctx, "InsertSale", insertSaleSQL)
	defer func() { end(err) }()

	var id string
	err = r.pool.QueryRow(ctx, insertSaleSQL,
		s.ID,
		s.OrderNumber,
		s.FarmID,
		s.Customer.Name,
		s.Customer.Email,
		s.Customer.Phone,
		s.Customer.Address,
		s.Customer.Type,
		s.OrderDetails.OrderDate,
		s.OrderDetails.DeliveryMethod,
		s.OrderDetails.DeliveryDate,
		s.OrderDetails.DeliveryAddress,
		s.OrderDetails.DeliveryNotes,
		s.Payment.Method,
		s.Payment.Status,
		s.Payment.PaidAmount,
		s.Payment.PaymentDate,
		s.Payment.TransactionID,
		s.Totals.Subtotal,
		s.Totals.Discount,
		s.Totals.Tax,
		s.Totals.Shipping,
		s.Totals.Total,
		s.Totals.Currency,
		s.Status,
		s.Notes,
		s.CreatedBy,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert sale: %w", err)
	}

	itemQuery := `
		INSERT INTO sale_items (sale_id, position, product_id, product_type, name, quantity, unit,
			unit_price, total_price, discount, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for i, item := range s.Items {
		_, err = r.pool.Exec(ctx, itemQuery,
			s.ID,
			i,
			item.ProductID,
			item.ProductType,
			item.Name,
			item.Quantity,
			item.Unit,
			item.UnitPrice,
			item.TotalPrice,
			item.Discount,
			item.Notes,
		)
		if err != nil {
			return false, fmt.Errorf("insert sale item %d: %w", i, err)
		}
	}

	return true, nil
}

// GetByID retrieves a sale by its ID with its items.
func (r *SaleRepository) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate retrieves a sale and locks its row for the rest of the
// enclosing transaction.
func (r *SaleRepository) GetForUpdate(ctx context.Context, id string) (*domain.Sale, error) {
	return r.get(ctx, id, "FOR UPDATE OF s")
}

func (r *SaleRepository) get(ctx context.Context, id, lock string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + `, ` + saleItemsJSON + `
		FROM sales s
		WHERE s.id = $1 ` + lock

	var (
		s         domain.Sale
		itemsJSON []byte
	)
	dest := append(saleDest(&s), &itemsJSON)
	if err := r.pool.QueryRow(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("sale", id)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	items, err := unmarshalItems(itemsJSON)
	if err != nil {
		return nil, err
	}
	s.Items = items
	fillPayment(&s)
	return &s, nil
}

// Update writes a sale's mutable fields.
func (r *SaleRepository) Update(ctx context.Context, s *domain.Sale) error {
	query := `
		UPDATE sales SET
			status = $2,
			payment_method = $3,
			payment_status = $4,
			paid_amount = $5,
			payment_date = $6,
			transaction_id = $7,
			delivery_date = $8,
			notes = $9,
			updated_at = $10
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Status,
		s.Payment.Method,
		s.Payment.Status,
		s.Payment.PaidAmount,
		s.Payment.PaymentDate,
		s.Payment.TransactionID,
		s.OrderDetails.DeliveryDate,
		s.Notes,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("sale", s.ID)
	}
	return nil
}

// List returns a farm's sales matching the filter, newest order date first.
func (r *SaleRepository) List(ctx context.Context, filter repository.SaleFilter) ([]domain.Sale, int, error) {
	conditions := []string{"s.farm_id = $1"}
	args := []any{filter.FarmID}
	argIndex := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.CustomerType != "" {
		conditions = append(conditions, fmt.Sprintf("s.customer_type = $%d", argIndex))
		args = append(args, filter.CustomerType)
		argIndex++
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("s.order_date >= $%d", argIndex))
		args = append(args, *filter.StartDate)
		argIndex++
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("s.order_date <= $%d", argIndex))
		args = append(args, *filter.EndDate)
		argIndex++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM sales s
		WHERE %s
		ORDER BY s.order_date DESC, s.id
		LIMIT $%d OFFSET $%d`,
		saleColumns, strings.Join(conditions, " AND "), argIndex, argIndex+1,
	)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var total int
	sales := make([]domain.Sale, 0)
	for rows.Next() {
		var s domain.Sale
		dest := append(saleDest(&s), &total)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan sale: %w", err)
		}
		s.Items = []domain.SaleItem{}
		fillPayment(&s)
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sales: %w", err)
	}

	if len(sales) == 0 {
		return sales, total, nil
	}
	if err := r.loadItems(ctx, sales); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// loadItems fills in the items of every sale with one query.
func (r *SaleRepository) loadItems(ctx context.Context, sales []domain.Sale) error {
	ids := make([]string, len(sales))
	index := make(map[string]int, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
		index[s.ID] = i
	}

	query := `
		SELECT sale_id, product_id, product_type, name, quantity, unit, unit_price, total_price, discount, notes
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			saleID string
			item   domain.SaleItem
		)
		if err := rows.Scan(
			&saleID,
			&item.ProductID,
			&item.ProductType,
			&item.Name,
			&item.Quantity,
			&item.Unit,
			&item.UnitPrice,
			&item.TotalPrice,
			&item.Discount,
			&item.Notes,
		); err != nil {
			return fmt.Errorf("scan sale item: %w", err)
		}
		if i, ok := index[saleID]; ok {
			sales[i].Items = append(sales[i].Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sale items: %w", err)
	}
	return nil
}

// Summary aggregates the farm's sales ordered in [from, to]. TotalItems
// counts line items, not quantities.
func (r *SaleRepository) Summary(ctx context.Context, farmID string, from, to time.Time) (domain.SalesSummary, error) {
	query := `
		SELECT
			COUNT(*)::int,
			COALESCE(SUM(s.total), 0),
			COALESCE(AVG(s.total), 0),
			COALESCE(SUM(s.item_count), 0)::int
		FROM (
			SELECT total, (SELECT COUNT(*) FROM sale_items i WHERE i.sale_id = sales.id) AS item_count
			FROM sales
			WHERE farm_id = $1 AND order_date >= $2 AND order_date <= $3
		) s`

	var sum domain.SalesSummary
	err := r.pool.QueryRow(ctx, query, farmID, from, to).Scan(
		&sum.TotalSales,
		&sum.TotalRevenue,
		&sum.AverageOrderValue,
		&sum.TotalItems,
	)
	if err != nil {
		return domain.SalesSummary{}, fmt.Errorf("summarize sales: %w", err)
	}
	sum.AverageOrderValue = sum.AverageOrderValue.Round(2)
	return sum, nil
}

// TopProducts ranks item names by total quantity sold.
func (r *SaleRepository) TopProducts(ctx context.Context, farmID string, from, to time.Time, limit int) ([]domain.ProductSales, error) {
	query := `
		SELECT i.name, SUM(i.quantity) AS total_quantity, SUM(i.total_price) AS total_revenue
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		WHERE s.farm_id = $1 AND s.order_date >= $2 AND s.order_date <= $3
		GROUP BY i.name
		ORDER BY total_quantity DESC, i.name
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, farmID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.ProductSales, 0)
	for rows.Next() {
		var p domain.ProductSales
		if err := rows.Scan(&p.Name, &p.TotalQuantity, &p.TotalRevenue); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top products: %w", err)
	}
	return products, nil
}

// CountByStatus counts the farm's sales per status.
func (r *SaleRepository) CountByStatus(ctx context.Context, farmID string, from, to time.Time) ([]domain.StatusCount, error) {
	query := `
		SELECT status, COUNT(*)::int
		FROM sales
		WHERE farm_id = $1 AND order_date >= $2 AND order_date <= $3
		GROUP BY status
		ORDER BY status`

	rows, err := r.pool.Query(ctx, query, farmID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count sales by status: %w", err)
	}
	defer rows.Close()

	counts := make([]domain.StatusCount, 0)
	for rows.Next() {
		var c domain.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}
