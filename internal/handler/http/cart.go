package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fieldmarket/marketplace/internal/service"
	"github.com/fieldmarket/marketplace/pkg/httputil"
	"github.com/fieldmarket/marketplace/pkg/validator"
)

// CartHandler handles HTTP requests for the consumer's cart.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// AddItemRequest is the JSON body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	cart, err := h.service.GetCart(r.Context(), actor.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), actor.ID, req.ProductID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/cart/items/{lineItemID}?quantity=n.
// Without a quantity the whole line is removed; removing the last line
// destroys the cart and the response data is null.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	lineItemID := chi.URLParam(r, "lineItemID")
	if _, ok := httputil.ParseUUID(w, lineItemID); !ok {
		return
	}

	quantity := math.MaxInt
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q <= 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "INVALID_INPUT",
					Message: "quantity must be a positive integer",
				},
			})
			return
		}
		quantity = q
	}

	cart, err := h.service.RemoveItem(r.Context(), actor.ID, lineItemID, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// AcknowledgeChanges handles POST /api/v1/cart/acknowledge
func (h *CartHandler) AcknowledgeChanges(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	if err := h.service.AcknowledgeChanges(r.Context(), actor.ID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "acknowledged"}})
}
