package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/internal/service"
	"github.com/fieldmarket/marketplace/pkg/httputil"
	"github.com/fieldmarket/marketplace/pkg/validator"
)

// OrderHandler handles HTTP requests for the order lifecycle.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates an order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// PlaceOrderRequest is the JSON body for placing the cart as an order.
type PlaceOrderRequest struct {
	FullName    string `json:"full_name" validate:"required,min=1,max=200"`
	AddressLine string `json:"address_line" validate:"required,min=1,max=500"`
	City        string `json:"city" validate:"required,min=1,max=200"`
	PostalCode  string `json:"postal_code" validate:"required,min=1,max=20"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
}

// Place handles POST /api/v1/orders
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var req PlaceOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.Place(r.Context(), actor, &domain.Shipping{
		FullName:    req.FullName,
		AddressLine: req.AddressLine,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Phone:       req.Phone,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// Get handles GET /api/v1/orders/{orderID}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	orderID := chi.URLParam(r, "orderID")
	if _, ok := httputil.ParseUUID(w, orderID); !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// List handles GET /api/v1/orders?status=&page=&per_page=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var status *string
	if raw := r.URL.Query().Get("status"); raw != "" {
		if !domain.IsValidStatus(raw) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "unknown order status: " + raw},
			})
			return
		}
		status = &raw
	}

	page, perPage := parsePagination(r)
	orders, total, err := h.service.ListOrders(r.Context(), actor, status, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(orders, total, page, perPage))
}

// MarkDelivered handles POST /api/v1/orders/{orderID}/delivered
func (h *OrderHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	orderID := chi.URLParam(r, "orderID")
	if _, ok := httputil.ParseUUID(w, orderID); !ok {
		return
	}

	order, err := h.service.MarkDelivered(r.Context(), actor, orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// ConfirmReceipt handles POST /api/v1/orders/{orderID}/receipt
func (h *OrderHandler) ConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	orderID := chi.URLParam(r, "orderID")
	if _, ok := httputil.ParseUUID(w, orderID); !ok {
		return
	}

	order, err := h.service.ConfirmReceipt(r.Context(), actor, orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// parsePagination reads page and per_page query parameters, falling back to
// the service defaults on absent or malformed values.
func parsePagination(r *http.Request) (int, int) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}

	perPage := 20
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			perPage = v
		}
	}

	return page, perPage
}
