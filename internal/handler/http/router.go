package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/X-culture24/my-farm/pkg/health"
	"github.com/X-culture24/my-farm/pkg/middleware"
)

// ServiceName labels metrics and spans.
const ServiceName = "farm-sales"

// RouterConfig holds everything the router mounts.
type RouterConfig struct {
	Sales        SaleService
	Products     ProductService
	Health       *health.Handler
	Authenticate middleware.TokenValidator
	CORS         middleware.CORSConfig
	// RateLimitRPS disables rate limiting when zero.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all sales service routes registered.
// ctx bounds background work started by middleware.
func NewRouter(ctx context.Context, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	sales := NewSaleHandler(cfg.Sales, logger)
	products := NewProductHandler(cfg.Products, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(cfg.Authenticate))
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		}

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", sales.CreateSale)
			r.Get("/farm/{farmId}", sales.ListFarmSales)
			r.Get("/farm/{farmId}/analytics", sales.GetSalesAnalytics)
			r.Get("/{saleId}", sales.GetSale)
			r.Patch("/{saleId}/status", sales.UpdateStatus)
			r.Post("/{saleId}/payment", sales.AddPayment)
			r.Patch("/{saleId}/cancel", sales.CancelSale)
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", products.RegisterProduct)
			r.Get("/farm/{farmId}/low-stock", products.ListLowStock)
			r.Get("/{productId}", products.GetProduct)
		})
	})

	return r
}
