package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/X-culture24/my-farm/internal/domain"
	"github.com/X-culture24/my-farm/internal/lock"
	"github.com/X-culture24/my-farm/internal/repository"
	apperrors "github.com/X-culture24/my-farm/pkg/errors"
	"github.com/X-culture24/my-farm/pkg/middleware"
	"github.com/X-culture24/my-farm/pkg/pagination"
	"github.com/X-culture24/my-farm/pkg/validator"
)

// maxOrderNumberAttempts bounds regeneration after order number collisions.
const maxOrderNumberAttempts = 10

// SaleService implements the sale lifecycle.
type SaleService struct {
	store  repository.Store
	access AccessChecker
	locker Locker
	cache  AnalyticsCache
	events SaleEvents
	logger *slog.Logger
	opts   options
}

// NewSaleService creates a sale service. locker and cache may be nil, in
// which case mutations rely on row locks alone and analytics are computed
// on every call.
func NewSaleService(
	store repository.Store,
	access AccessChecker,
	locker Locker,
	cache AnalyticsCache,
	events SaleEvents,
	logger *slog.Logger,
	opts ...Option,
) *SaleService {
	return &SaleService{
		store:  store,
		access: access,
		locker: locker,
		cache:  cache,
		events: events,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// CustomerInput describes the buyer.
type CustomerInput struct {
	Name    string              `json:"name" validate:"required,max=200"`
	Email   string              `json:"email" validate:"omitempty,email"`
	Phone   string              `json:"phone" validate:"max=50"`
	Address string              `json:"address" validate:"max=500"`
	Type    domain.CustomerType `json:"customerType" validate:"omitempty,oneof=individual business wholesale retail"`
}

// SaleItemInput is one requested line.
type SaleItemInput struct {
	ProductID   string            `json:"productId" validate:"required"`
	ProductType domain.ItemSource `json:"productType" validate:"required,oneof=farm animal"`
	Name        string            `json:"name" validate:"required,max=200"`
	Quantity    decimal.Decimal   `json:"quantity" validate:"gt=0,maxscale=3"`
	Unit        string            `json:"unit" validate:"max=20"`
	UnitPrice   decimal.Decimal   `json:"unitPrice" validate:"gte=0,maxscale=2"`
	Discount    decimal.Decimal   `json:"discount" validate:"gte=0,maxscale=2"`
	Notes       string            `json:"notes" validate:"max=500"`
}

// OrderDetailsInput carries ordering and delivery data.
type OrderDetailsInput struct {
	OrderDate       *time.Time            `json:"orderDate"`
	DeliveryMethod  domain.DeliveryMethod `json:"deliveryMethod" validate:"omitempty,oneof=pickup delivery shipping"`
	DeliveryDate    *time.Time            `json:"deliveryDate"`
	DeliveryAddress string                `json:"deliveryAddress" validate:"max=500"`
	DeliveryNotes   string                `json:"deliveryNotes" validate:"max=500"`
}

// PaymentInput is the payment taken when the sale is created.
type PaymentInput struct {
	Method        domain.PaymentMethod `json:"method" validate:"omitempty,oneof=cash credit_card bank_transfer check digital_wallet"`
	PaidAmount    decimal.Decimal      `json:"paidAmount" validate:"gte=0,maxscale=2"`
	TransactionID string               `json:"transactionId" validate:"max=100"`
}

// CreateSaleInput holds the parameters for creating a sale.
type CreateSaleInput struct {
	FarmID       string            `json:"farmId" validate:"required"`
	Customer     CustomerInput     `json:"customer"`
	Items        []SaleItemInput   `json:"items" validate:"min=1,dive"`
	OrderDetails OrderDetailsInput `json:"orderDetails"`
	Payment      PaymentInput      `json:"payment"`
	Tax          decimal.Decimal   `json:"tax" validate:"gte=0,maxscale=2"`
	Shipping     decimal.Decimal   `json:"shipping" validate:"gte=0,maxscale=2"`
	Currency     string            `json:"currency" validate:"omitempty,len=3"`
	Notes        string            `json:"notes" validate:"max=1000"`
}

// AddPaymentInput holds one payment against a sale.
type AddPaymentInput struct {
	Amount        decimal.Decimal      `json:"amount" validate:"gt=0,maxscale=2"`
	Method        domain.PaymentMethod `json:"method" validate:"omitempty,oneof=cash credit_card bank_transfer check digital_wallet"`
	TransactionID string               `json:"transactionId" validate:"max=100"`
}

// UpdateStatusInput moves a sale through its lifecycle.
type UpdateStatusInput struct {
	Status domain.SaleStatus `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled refunded"`
	Notes  string            `json:"notes" validate:"max=1000"`
}

// CancelSaleInput cancels a sale.
type CancelSaleInput struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// ListSalesFilter narrows a farm's sales listing.
type ListSalesFilter struct {
	Status       domain.SaleStatus
	CustomerType domain.CustomerType
	StartDate    *time.Time
	EndDate      *time.Time
}

func (s *SaleService) newSale(in CreateSaleInput, now time.Time, createdBy string) *domain.Sale {
	items := make([]domain.SaleItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = domain.SaleItem{
			ProductID:   it.ProductID,
			ProductType: it.ProductType,
			Name:        strings.TrimSpace(it.Name),
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Notes:       it.Notes,
		}
	}

	customerType := in.Customer.Type
	if customerType == "" {
		customerType = domain.CustomerIndividual
	}
	deliveryMethod := in.OrderDetails.DeliveryMethod
	if deliveryMethod == "" {
		deliveryMethod = domain.DeliveryPickup
	}
	paymentMethod := in.Payment.Method
	if paymentMethod == "" {
		paymentMethod = domain.PaymentCash
	}
	orderDate := now
	if in.OrderDetails.OrderDate != nil {
		orderDate = in.OrderDetails.OrderDate.UTC()
	}

	sale := &domain.Sale{
		ID:     s.opts.newID(),
		FarmID: in.FarmID,
		Customer: domain.Customer{
			Name:    strings.TrimSpace(in.Customer.Name),
			Email:   strings.ToLower(strings.TrimSpace(in.Customer.Email)),
			Phone:   in.Customer.Phone,
			Address: in.Customer.Address,
			Type:    customerType,
		},
		Items: items,
		OrderDetails: domain.OrderDetails{
			OrderDate:       orderDate,
			DeliveryMethod:  deliveryMethod,
			DeliveryDate:    in.OrderDetails.DeliveryDate,
			DeliveryAddress: in.OrderDetails.DeliveryAddress,
			DeliveryNotes:   in.OrderDetails.DeliveryNotes,
		},
		Payment: domain.Payment{
			Method:        paymentMethod,
			PaidAmount:    in.Payment.PaidAmount,
			TransactionID: in.Payment.TransactionID,
		},
		Totals: domain.Totals{
			Tax:      in.Tax,
			Shipping: in.Shipping,
			Currency: strings.ToUpper(in.Currency),
		},
		Status:    domain.SalePending,
		Notes:     in.Notes,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Payment.PaidAmount.IsPositive() {
		paidAt := now
		sale.Payment.PaymentDate = &paidAt
	}
	sale.Recalculate()
	return sale
}

// CreateSale records a sale and draws its animal items down from inventory.
// The sale row, its items and every inventory decrement commit together or
// not at all.
func (s *SaleService) CreateSale(ctx context.Context, in CreateSaleInput) (*domain.Sale, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	if err := s.access.CheckFarm(ctx, in.FarmID); err != nil {
		return nil, err
	}

	now := s.opts.now().UTC()
	sale := s.newSale(in, now, middleware.UserIDFromContext(ctx))
	if err := sale.ValidateTotals(); err != nil {
		return nil, err
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := s.insertWithOrderNumber(ctx, tx.Sales(), sale); err != nil {
			return err
		}
		for _, item := range sale.AnimalItems() {
			if _, err := tx.Products().ApplySale(ctx, sale.FarmID, item.ProductID, item.Quantity, item.UnitPrice, now); err != nil {
				return fmt.Errorf("apply sale of product %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInsufficientInventory):
			inventoryRejections.WithLabelValues("insufficient").Inc()
		case errors.Is(err, apperrors.ErrNotFound):
			inventoryRejections.WithLabelValues("unknown_product").Inc()
		}
		return nil, err
	}

	salesCreated.WithLabelValues(string(sale.Customer.Type)).Inc()
	revenue, _ := sale.Totals.Total.Float64()
	salesRevenue.WithLabelValues(sale.Totals.Currency).Add(revenue)

	if err := s.events.PublishSaleCreated(ctx, sale); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish sale.created event",
			slog.String("sale_id", sale.ID),
			slog.String("error", err.Error()),
		)
	}
	s.invalidateAnalytics(ctx, sale.FarmID)

	s.logger.InfoContext(ctx, "sale created",
		slog.String("sale_id", sale.ID),
		slog.String("order_number", sale.OrderNumber),
		slog.String("farm_id", sale.FarmID),
		slog.String("total", sale.Totals.Total.String()),
		slog.Int("items", len(sale.Items)),
	)

	return sale, nil
}

func (s *SaleService) insertWithOrderNumber(ctx context.Context, sales repository.SaleRepository, sale *domain.Sale) error {
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		sale.OrderNumber = s.opts.orderNumbers.Next()
		inserted, err := sales.Insert(ctx, sale)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		if inserted {
			return nil
		}
		orderNumberCollisions.Inc()
		s.logger.DebugContext(ctx, "order number taken, regenerating",
			slog.String("order_number", sale.OrderNumber),
			slog.Int("attempt", attempt),
		)
	}
	return apperrors.Unavailable("could not allocate a unique order number, retry later")
}

// GetSale returns a sale the caller may see.
func (s *SaleService) GetSale(ctx context.Context, saleID string) (*domain.Sale, error) {
	return s.visibleSale(ctx, saleID)
}

// visibleSale loads a sale and checks farm access. A sale on a farm the
// caller cannot access is reported as not found, the same as a missing one.
func (s *SaleService) visibleSale(ctx context.Context, saleID string) (*domain.Sale, error) {
	sale, err := s.store.Sales().GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if err := s.access.CheckFarm(ctx, sale.FarmID); err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			return nil, apperrors.NotFound("sale", saleID)
		}
		return nil, err
	}
	return sale, nil
}

// ListFarmSales returns a page of a farm's sales, newest first.
func (s *SaleService) ListFarmSales(ctx context.Context, farmID string, filter ListSalesFilter, page pagination.Params) (pagination.Result[domain.Sale], error) {
	if err := s.access.CheckFarm(ctx, farmID); err != nil {
		return pagination.Result[domain.Sale]{}, err
	}
	if filter.Status != "" && !domain.IsValidSaleStatus(filter.Status) {
		return pagination.Result[domain.Sale]{}, apperrors.InvalidInput(fmt.Sprintf("unknown sale status %q", filter.Status))
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return pagination.Result[domain.Sale]{}, apperrors.InvalidInput("endDate must not be before startDate")
	}

	sales, total, err := s.store.Sales().List(ctx, repository.SaleFilter{
		FarmID:       farmID,
		Status:       filter.Status,
		CustomerType: filter.CustomerType,
		StartDate:    filter.StartDate,
		EndDate:      filter.EndDate,
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		return pagination.Result[domain.Sale]{}, fmt.Errorf("list farm sales: %w", err)
	}
	return pagination.NewResult(sales, total, page), nil
}

// mutate checks access, then loads the sale under both the distributed lock
// and a row lock, applies fn and writes the result back in one transaction.
func (s *SaleService) mutate(ctx context.Context, saleID string, fn func(*domain.Sale) error) (*domain.Sale, error) {
	if _, err := s.visibleSale(ctx, saleID); err != nil {
		return nil, err
	}
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, lock.SaleKey(saleID))
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var sale *domain.Sale
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Sales().GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if err := fn(current); err != nil {
			return err
		}
		if err := tx.Sales().Update(ctx, current); err != nil {
			return err
		}
		sale = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAnalytics(ctx, sale.FarmID)
	return sale, nil
}

// AddPayment records a payment. The running total paid can never exceed the
// sale total.
func (s *SaleService) AddPayment(ctx context.Context, saleID string, in AddPaymentInput) (*domain.Sale, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	now := s.opts.now()
	sale, err := s.mutate(ctx, saleID, func(sale *domain.Sale) error {
		return sale.AddPayment(in.Amount, in.Method, in.TransactionID, now)
	})
	if err != nil {
		return nil, err
	}

	paymentsRecorded.WithLabelValues(string(sale.Payment.Status)).Inc()
	if err := s.events.PublishPaymentAdded(ctx, sale, in.Amount); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish sale.payment_added event",
			slog.String("sale_id", sale.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment added",
		slog.String("sale_id", sale.ID),
		slog.String("amount", in.Amount.String()),
		slog.String("paid_amount", sale.Payment.PaidAmount.String()),
		slog.String("payment_status", string(sale.Payment.Status)),
	)
	return sale, nil
}

// UpdateStatus moves a sale along the status table.
func (s *SaleService) UpdateStatus(ctx context.Context, saleID string, in UpdateStatusInput) (*domain.Sale, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	now := s.opts.now()
	var oldStatus domain.SaleStatus
	sale, err := s.mutate(ctx, saleID, func(sale *domain.Sale) error {
		oldStatus = sale.Status
		return sale.TransitionTo(in.Status, in.Notes, now)
	})
	if err != nil {
		return nil, err
	}

	statusTransitions.WithLabelValues(string(sale.Status)).Inc()
	if err := s.events.PublishStatusUpdated(ctx, sale, oldStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish sale.status_updated event",
			slog.String("sale_id", sale.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "sale status updated",
		slog.String("sale_id", sale.ID),
		slog.String("old_status", string(oldStatus)),
		slog.String("new_status", string(sale.Status)),
	)
	return sale, nil
}

// CancelSale cancels a sale that has not shipped. Inventory drawn by the sale
// is not returned.
func (s *SaleService) CancelSale(ctx context.Context, saleID string, in CancelSaleInput) (*domain.Sale, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	now := s.opts.now()
	sale, err := s.mutate(ctx, saleID, func(sale *domain.Sale) error {
		return sale.Cancel(in.Reason, now)
	})
	if err != nil {
		return nil, err
	}

	statusTransitions.WithLabelValues(string(domain.SaleCancelled)).Inc()
	if err := s.events.PublishSaleCancelled(ctx, sale, in.Reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish sale.cancelled event",
			slog.String("sale_id", sale.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "sale cancelled",
		slog.String("sale_id", sale.ID),
		slog.String("reason", in.Reason),
	)
	return sale, nil
}

// GetSalesAnalytics reports a farm's sales from the start of period until now.
func (s *SaleService) GetSalesAnalytics(ctx context.Context, farmID, period string) (*domain.SalesAnalytics, error) {
	if err := s.access.CheckFarm(ctx, farmID); err != nil {
		return nil, err
	}

	p := domain.ParsePeriod(period)
	if s.cache == nil {
		return s.computeAnalytics(ctx, farmID, p)
	}

	var out domain.SalesAnalytics
	load := func(ctx context.Context) (any, error) {
		return s.computeAnalytics(ctx, farmID, p)
	}
	if err := s.cache.Fetch(ctx, farmID, []string{string(p)}, &out, load); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SaleService) computeAnalytics(ctx context.Context, farmID string, p domain.Period) (*domain.SalesAnalytics, error) {
	end := s.opts.now().UTC()
	start := p.Start(end)
	sales := s.store.Sales()

	var (
		summary  domain.SalesSummary
		top      []domain.ProductSales
		byStatus []domain.StatusCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = sales.Summary(gctx, farmID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = sales.TopProducts(gctx, farmID, start, end, domain.TopProductsLimit)
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = sales.CountByStatus(gctx, farmID, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute sales analytics: %w", err)
	}

	return &domain.SalesAnalytics{
		FarmID:        farmID,
		Period:        p,
		StartDate:     start,
		EndDate:       end,
		Summary:       summary,
		TopProducts:   top,
		SalesByStatus: byStatus,
	}, nil
}

func (s *SaleService) invalidateAnalytics(ctx context.Context, farmID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, farmID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate analytics cache",
			slog.String("farm_id", farmID),
			slog.String("error", err.Error()),
		)
	}
}
