package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/X-culture24/my-farm/internal/domain"
	pkgkafka "github.com/X-culture24/my-farm/pkg/kafka"
)

// StockService is what the consumer needs from the product service.
type StockService interface {
	CheckStockLevels(ctx context.Context, productIDs []string) (int, error)
}

// Consumer processes sale events to raise stock alerts.
type Consumer struct {
	logger  *slog.Logger
	service StockService
}

// NewConsumer creates a new event consumer.
func NewConsumer(service StockService, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// HandleSaleCreated checks the stock of every animal product the sale drew
// from.
func (c *Consumer) HandleSaleCreated(ctx context.Context, event *pkgkafka.Event) error {
	var data SaleCreatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal sale.created data: %w", err)
	}

	seen := make(map[string]struct{}, len(data.Items))
	ids := make([]string, 0, len(data.Items))
	for _, item := range data.Items {
		if item.ProductType != string(domain.ItemAnimal) || item.ProductID == "" {
			continue
		}
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	if len(ids) == 0 {
		return nil
	}

	alerts, err := c.service.CheckStockLevels(ctx, ids)
	if err != nil {
		return fmt.Errorf("check stock for sale %s: %w", data.SaleID, err)
	}

	c.logger.InfoContext(ctx, "processed sale.created event",
		slog.String("sale_id", data.SaleID),
		slog.String("farm_id", data.FarmID),
		slog.Int("products_checked", len(ids)),
		slog.Int("alerts", alerts),
	)
	return nil
}
