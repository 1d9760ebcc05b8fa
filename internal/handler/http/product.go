package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/X-culture24/my-farm/internal/domain"
	"github.com/X-culture24/my-farm/internal/service"
	"github.com/X-culture24/my-farm/pkg/httputil"
)

// ProductService is the animal product inventory as seen by the HTTP layer.
type ProductService interface {
	RegisterProduct(ctx context.Context, in service.RegisterProductInput) (*domain.Product, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListLowStock(ctx context.Context, farmID string) ([]domain.Product, error)
}

// ProductHandler serves /api/v1/products.
type ProductHandler struct {
	service ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a product handler.
func NewProductHandler(svc ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// RegisterProduct handles POST /api/v1/products
func (h *ProductHandler) RegisterProduct(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterProductInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	p, err := h.service.RegisterProduct(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, p.View(), "product registered")
}

// GetProduct handles GET /api/v1/products/{productId}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p.View(), "")
}

// ListLowStock handles GET /api/v1/products/farm/{farmId}/low-stock
func (h *ProductHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListLowStock(r.Context(), chi.URLParam(r, "farmId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	views := make([]domain.ProductView, len(products))
	for i := range products {
		views[i] = products[i].View()
	}
	httputil.WriteData(w, http.StatusOK, views, "")
}
