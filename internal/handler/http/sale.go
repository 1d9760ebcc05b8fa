package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/X-culture24/my-farm/internal/domain"
	"github.com/X-culture24/my-farm/internal/service"
	"github.com/X-culture24/my-farm/pkg/httputil"
	"github.com/X-culture24/my-farm/pkg/pagination"
)

// SaleService is the sale lifecycle as seen by the HTTP layer.
type SaleService interface {
	CreateSale(ctx context.Context, in service.CreateSaleInput) (*domain.Sale, error)
	GetSale(ctx context.Context, saleID string) (*domain.Sale, error)
	ListFarmSales(ctx context.Context, farmID string, filter service.ListSalesFilter, page pagination.Params) (pagination.Result[domain.Sale], error)
	AddPayment(ctx context.Context, saleID string, in service.AddPaymentInput) (*domain.Sale, error)
	UpdateStatus(ctx context.Context, saleID string, in service.UpdateStatusInput) (*domain.Sale, error)
	CancelSale(ctx context.Context, saleID string, in service.CancelSaleInput) (*domain.Sale, error)
	GetSalesAnalytics(ctx context.Context, farmID, period string) (*domain.SalesAnalytics, error)
}

// SaleHandler serves /api/v1/sales.
type SaleHandler struct {
	service SaleService
	logger  *slog.Logger
}

// NewSaleHandler creates a sale handler.
func NewSaleHandler(svc SaleService, logger *slog.Logger) *SaleHandler {
	return &SaleHandler{service: svc, logger: logger}
}

// CreateSale handles POST /api/v1/sales
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var in service.CreateSaleInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sale, err := h.service.CreateSale(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, sale, "sale created")
}

// GetSale handles GET /api/v1/sales/{saleId}
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "saleId", chi.URLParam(r, "saleId"))
	if !ok {
		return
	}

	sale, err := h.service.GetSale(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sale, "")
}

// ListFarmSales handles GET /api/v1/sales/farm/{farmId}
func (h *SaleHandler) ListFarmSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.ListSalesFilter{
		Status:       domain.SaleStatus(q.Get("status")),
		CustomerType: domain.CustomerType(q.Get("customerType")),
	}
	var err error
	if filter.StartDate, err = parseDateParam(q.Get("startDate"), false); err != nil {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "startDate must be RFC 3339 or YYYY-MM-DD")
		return
	}
	if filter.EndDate, err = parseDateParam(q.Get("endDate"), true); err != nil {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "endDate must be RFC 3339 or YYYY-MM-DD")
		return
	}

	page, err := h.service.ListFarmSales(r.Context(), chi.URLParam(r, "farmId"), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page, "")
}

// parseDateParam accepts a timestamp or a bare date. A bare end date covers
// the whole day.
func parseDateParam(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// GetSalesAnalytics handles GET /api/v1/sales/farm/{farmId}/analytics
func (h *SaleHandler) GetSalesAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetSalesAnalytics(r.Context(), chi.URLParam(r, "farmId"), r.URL.Query().Get("period"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, report, "")
}

// UpdateStatus handles PATCH /api/v1/sales/{saleId}/status
func (h *SaleHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "saleId", chi.URLParam(r, "saleId"))
	if !ok {
		return
	}

	var in service.UpdateStatusInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sale, err := h.service.UpdateStatus(r.Context(), id.String(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sale, "sale status updated")
}

// AddPayment handles POST /api/v1/sales/{saleId}/payment
func (h *SaleHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "saleId", chi.URLParam(r, "saleId"))
	if !ok {
		return
	}

	var in service.AddPaymentInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sale, err := h.service.AddPayment(r.Context(), id.String(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sale, "payment added")
}

// CancelSale handles PATCH /api/v1/sales/{saleId}/cancel. The body is optional.
func (h *SaleHandler) CancelSale(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "saleId", chi.URLParam(r, "saleId"))
	if !ok {
		return
	}

	var in service.CancelSaleInput
	if err := httputil.DecodeOptionalJSON(w, r, &in); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sale, err := h.service.CancelSale(r.Context(), id.String(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, sale, "sale cancelled")
}
