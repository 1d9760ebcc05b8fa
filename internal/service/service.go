// Package service implements the sale lifecycle and the animal product
// inventory on top of the repository store.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/X-culture24/my-farm/internal/domain"
)

// AccessChecker decides whether the caller may act on a farm.
type AccessChecker interface {
	CheckFarm(ctx context.Context, farmID string) error
}

// Locker serializes work on one key across replicas. The returned function
// releases the lock.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// AnalyticsCache memoizes analytics per farm.
type AnalyticsCache interface {
	Fetch(ctx context.Context, farmID string, parts []string, dest any, load func(context.Context) (any, error)) error
	Invalidate(ctx context.Context, farmID string) error
}

// SaleEvents publishes sale lifecycle events.
type SaleEvents interface {
	PublishSaleCreated(ctx context.Context, sale *domain.Sale) error
	PublishStatusUpdated(ctx context.Context, sale *domain.Sale, oldStatus domain.SaleStatus) error
	PublishPaymentAdded(ctx context.Context, sale *domain.Sale, amount decimal.Decimal) error
	PublishSaleCancelled(ctx context.Context, sale *domain.Sale, reason string) error
}

// StockEvents publishes inventory alerts.
type StockEvents interface {
	PublishStockAlert(ctx context.Context, product *domain.Product) error
}

type options struct {
	now          func() time.Time
	newID        func() string
	orderNumbers *domain.OrderNumberGenerator
}

// Option customizes a service.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// WithOrderNumberGenerator replaces the default order number generator.
func WithOrderNumberGenerator(g *domain.OrderNumberGenerator) Option {
	return func(o *options) { o.orderNumbers = g }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	if o.orderNumbers == nil {
		o.orderNumbers = domain.NewOrderNumberGenerator(o.now, nil)
	}
	return o
}
