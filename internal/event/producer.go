package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/X-culture24/my-farm/internal/domain"
	pkgkafka "github.com/X-culture24/my-farm/pkg/kafka"
	"github.com/X-culture24/my-farm/pkg/logger"
)

// Kafka topics for sale and product events.
var (
	TopicSaleCreated       = pkgkafka.Topic("sale", "created")
	TopicSaleStatusUpdated = pkgkafka.Topic("sale", "status_updated")
	TopicSalePaymentAdded  = pkgkafka.Topic("sale", "payment_added")
	TopicSaleCancelled     = pkgkafka.Topic("sale", "cancelled")
	TopicProductStockAlert = pkgkafka.Topic("product", "stock_alert")
)

// Aggregate types.
const (
	AggregateTypeSale    = "sale"
	AggregateTypeProduct = "animal_product"
)

// SourceSalesService identifies events originating from this service.
const SourceSalesService = "farm-sales-service"

// FarmPartitionKey keys every event of a farm to the same partition so
// consumers see one farm's changes in order.
func FarmPartitionKey(farmID string) string {
	return "farm-" + farmID
}

// SaleItemData is the event payload for one sale line.
type SaleItemData struct {
	ProductID   string          `json:"product_id"`
	ProductType string          `json:"product_type"`
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// SaleCreatedData is the payload for a sale.created event.
type SaleCreatedData struct {
	SaleID      string          `json:"sale_id"`
	OrderNumber string          `json:"order_number"`
	FarmID      string          `json:"farm_id"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Items       []SaleItemData  `json:"items"`
}

// SaleStatusUpdatedData is the payload for a sale.status_updated event.
type SaleStatusUpdatedData struct {
	SaleID      string `json:"sale_id"`
	OrderNumber string `json:"order_number"`
	FarmID      string `json:"farm_id"`
	OldStatus   string `json:"old_status"`
	Status      string `json:"status"`
}

// SalePaymentAddedData is the payload for a sale.payment_added event.
type SalePaymentAddedData struct {
	SaleID        string          `json:"sale_id"`
	FarmID        string          `json:"farm_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentStatus string          `json:"payment_status"`
}

// SaleCancelledData is the payload for a sale.cancelled event.
type SaleCancelledData struct {
	SaleID      string `json:"sale_id"`
	OrderNumber string `json:"order_number"`
	FarmID      string `json:"farm_id"`
	Reason      string `json:"reason"`
}

// StockAlertData is the payload for a product.stock_alert event.
type StockAlertData struct {
	ProductID   string          `json:"product_id"`
	FarmID      string          `json:"farm_id"`
	Name        string          `json:"name"`
	Available   decimal.Decimal `json:"available"`
	StockStatus string          `json:"stock_status"`
}

// Producer publishes sale and product events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	now    func() time.Time
	logger *slog.Logger
}

// NewProducer creates an event producer. A nil clock means time.Now.
func NewProducer(kafka *pkgkafka.Producer, now func() time.Time, logger *slog.Logger) *Producer {
	if now == nil {
		now = time.Now
	}
	return &Producer{kafka: kafka, now: now, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType, farmID string, data any) error {
	event, err := pkgkafka.NewEventAt(topic, aggregateID, aggregateType, SourceSalesService, data, p.now())
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithPartitionKey(FarmPartitionKey(farmID)).
		WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("farm_id", farmID),
	)
	return nil
}

// PublishSaleCreated publishes a sale.created event.
func (p *Producer) PublishSaleCreated(ctx context.Context, sale *domain.Sale) error {
	items := make([]SaleItemData, len(sale.Items))
	for i, item := range sale.Items {
		items[i] = SaleItemData{
			ProductID:   item.ProductID,
			ProductType: string(item.ProductType),
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	data := SaleCreatedData{
		SaleID:      sale.ID,
		OrderNumber: sale.OrderNumber,
		FarmID:      sale.FarmID,
		Total:       sale.Totals.Total,
		Currency:    sale.Totals.Currency,
		Items:       items,
	}
	return p.publish(ctx, TopicSaleCreated, sale.ID, AggregateTypeSale, sale.FarmID, data)
}

// PublishStatusUpdated publishes a sale.status_updated event.
func (p *Producer) PublishStatusUpdated(ctx context.Context, sale *domain.Sale, oldStatus domain.SaleStatus) error {
	data := SaleStatusUpdatedData{
		SaleID:      sale.ID,
		OrderNumber: sale.OrderNumber,
		FarmID:      sale.FarmID,
		OldStatus:   string(oldStatus),
		Status:      string(sale.Status),
	}
	return p.publish(ctx, TopicSaleStatusUpdated, sale.ID, AggregateTypeSale, sale.FarmID, data)
}

// PublishPaymentAdded publishes a sale.payment_added event.
func (p *Producer) PublishPaymentAdded(ctx context.Context, sale *domain.Sale, amount decimal.Decimal) error {
	data := SalePaymentAddedData{
		SaleID:        sale.ID,
		FarmID:        sale.FarmID,
		Amount:        amount,
		PaidAmount:    sale.Payment.PaidAmount,
		PaymentStatus: string(sale.Payment.Status),
	}
	return p.publish(ctx, TopicSalePaymentAdded, sale.ID, AggregateTypeSale, sale.FarmID, data)
}

// PublishSaleCancelled publishes a sale.cancelled event.
func (p *Producer) PublishSaleCancelled(ctx context.Context, sale *domain.Sale, reason string) error {
	data := SaleCancelledData{
		SaleID:      sale.ID,
		OrderNumber: sale.OrderNumber,
		FarmID:      sale.FarmID,
		Reason:      reason,
	}
	return p.publish(ctx, TopicSaleCancelled, sale.ID, AggregateTypeSale, sale.FarmID, data)
}

// PublishStockAlert publishes a product.stock_alert event.
func (p *Producer) PublishStockAlert(ctx context.Context, product *domain.Product) error {
	data := StockAlertData{
		ProductID:   product.ID,
		FarmID:      product.FarmID,
		Name:        product.Name,
		Available:   product.Inventory.Available,
		StockStatus: string(product.StockStatus()),
	}
	return p.publish(ctx, TopicProductStockAlert, product.ID, AggregateTypeProduct, product.FarmID, data)
}
