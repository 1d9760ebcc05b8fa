package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/X-culture24/my-farm/internal/domain"
	"github.com/X-culture24/my-farm/internal/repository"
	"github.com/X-culture24/my-farm/pkg/validator"
)

// ProductService manages animal products and their stock alerts.
type ProductService struct {
	store  repository.Store
	access AccessChecker
	events StockEvents
	logger *slog.Logger
	opts   options
}

// NewProductService creates a product service.
func NewProductService(store repository.Store, access AccessChecker, events StockEvents, logger *slog.Logger, opts ...Option) *ProductService {
	return &ProductService{
		store:  store,
		access: access,
		events: events,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// RegisterProductInput holds the parameters for a new animal product.
type RegisterProductInput struct {
	FarmID         string             `json:"farmId" validate:"required"`
	Name           string             `json:"name" validate:"required,max=200"`
	ProductType    domain.ProductType `json:"productType" validate:"required,oneof=milk eggs meat wool honey cheese yogurt butter other"`
	Description    string             `json:"description" validate:"max=1000"`
	Amount         decimal.Decimal    `json:"amount" validate:"gte=0,maxscale=3"`
	Unit           domain.Unit        `json:"unit" validate:"required,oneof=kg lbs liters gallons pieces dozens"`
	CostPrice      decimal.Decimal    `json:"costPrice" validate:"gte=0,maxscale=2"`
	SellingPrice   decimal.Decimal    `json:"sellingPrice" validate:"gte=0,maxscale=2"`
	Currency       string             `json:"currency" validate:"omitempty,len=3"`
	Available      decimal.Decimal    `json:"available" validate:"gte=0,maxscale=3"`
	MinimumStock   decimal.Decimal    `json:"minimumStock" validate:"gte=0,maxscale=3"`
	ReorderPoint   decimal.Decimal    `json:"reorderPoint" validate:"gte=0,maxscale=3"`
	ProductionDate *time.Time         `json:"productionDate"`
	ExpiryDate     *time.Time         `json:"expiryDate"`
}

// RegisterProduct creates an animal product with its opening stock.
func (s *ProductService) RegisterProduct(ctx context.Context, in RegisterProductInput) (*domain.Product, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	if err := s.access.CheckFarm(ctx, in.FarmID); err != nil {
		return nil, err
	}

	now := s.opts.now().UTC()
	produced := now
	if in.ProductionDate != nil {
		produced = in.ProductionDate.UTC()
	}

	p := &domain.Product{
		ID:          s.opts.newID(),
		FarmID:      in.FarmID,
		Name:        strings.TrimSpace(in.Name),
		ProductType: in.ProductType,
		Description: in.Description,
		Quantity:    domain.Quantity{Amount: in.Amount, Unit: in.Unit},
		Pricing: domain.Pricing{
			CostPrice:    in.CostPrice,
			SellingPrice: in.SellingPrice,
			Currency:     strings.ToUpper(in.Currency),
		},
		Inventory: domain.Inventory{
			Available:    in.Available,
			MinimumStock: in.MinimumStock,
			ReorderPoint: in.ReorderPoint,
		},
		ProductionDate: produced,
		ExpiryDate:     in.ExpiryDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Products().Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product registered",
		slog.String("product_id", p.ID),
		slog.String("farm_id", p.FarmID),
		slog.String("product_type", string(p.ProductType)),
		slog.String("available", p.Inventory.Available.String()),
	)
	return p, nil
}

// GetProduct returns a product the caller may see.
func (s *ProductService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.access.CheckFarm(ctx, p.FarmID); err != nil {
		return nil, err
	}
	return p, nil
}

// ListLowStock returns the farm's products that are low or critical.
func (s *ProductService) ListLowStock(ctx context.Context, farmID string) ([]domain.Product, error) {
	if err := s.access.CheckFarm(ctx, farmID); err != nil {
		return nil, err
	}
	products, err := s.store.Products().ListByFarm(ctx, farmID)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	low := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.StockStatus() != domain.StockHealthy {
			low = append(low, p)
		}
	}
	return low, nil
}

// CheckStockLevels publishes a stock alert for every listed product that is
// no longer healthy and returns how many alerts went out. Products that no
// longer exist are skipped.
func (s *ProductService) CheckStockLevels(ctx context.Context, productIDs []string) (int, error) {
	products, err := s.store.Products().GetByIDs(ctx, productIDs)
	if err != nil {
		return 0, fmt.Errorf("load products for stock check: %w", err)
	}

	alerts := 0
	for i := range products {
		p := &products[i]
		status := p.StockStatus()
		if status == domain.StockHealthy {
			continue
		}
		if err := s.events.PublishStockAlert(ctx, p); err != nil {
			return alerts, fmt.Errorf("publish stock alert for %s: %w", p.ID, err)
		}
		stockAlerts.WithLabelValues(string(status)).Inc()
		alerts++

		s.logger.WarnContext(ctx, "product stock below threshold",
			slog.String("product_id", p.ID),
			slog.String("farm_id", p.FarmID),
			slog.String("available", p.Inventory.Available.String()),
			slog.String("stock_status", string(status)),
		)
	}
	return alerts, nil
}
