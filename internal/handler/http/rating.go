package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldmarket/marketplace/internal/service"
	"github.com/fieldmarket/marketplace/pkg/httputil"
	"github.com/fieldmarket/marketplace/pkg/validator"
)

// RatingHandler handles HTTP requests for post-purchase ratings.
type RatingHandler struct {
	service *service.RatingService
	logger  *slog.Logger
}

// NewRatingHandler creates a rating HTTP handler.
func NewRatingHandler(svc *service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{service: svc, logger: logger}
}

// AddRatingRequest is the JSON body for rating a purchased product.
type AddRatingRequest struct {
	LineItemID string `json:"line_item_id" validate:"required,uuid"`
	ProductID  string `json:"product_id" validate:"required,uuid"`
	Score      int    `json:"score" validate:"required,min=1,max=5"`
	Comment    string `json:"comment" validate:"max=2000"`
}

// UpdateRatingRequest is the JSON body for revising a rating.
type UpdateRatingRequest struct {
	Score   int    `json:"score" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// Add handles POST /api/v1/ratings
func (h *RatingHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var req AddRatingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	rating, err := h.service.Add(r.Context(), actor, service.AddRatingInput{
		LineItemID: req.LineItemID,
		ProductID:  req.ProductID,
		Score:      req.Score,
		Comment:    req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: rating})
}

// Get handles GET /api/v1/ratings/{ratingID}
func (h *RatingHandler) Get(w http.ResponseWriter, r *http.Request) {
	ratingID := chi.URLParam(r, "ratingID")
	if _, ok := httputil.ParseUUID(w, ratingID); !ok {
		return
	}

	rating, err := h.service.Get(r.Context(), ratingID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rating})
}

// Update handles PUT /api/v1/ratings/{ratingID}
func (h *RatingHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	ratingID := chi.URLParam(r, "ratingID")
	if _, ok := httputil.ParseUUID(w, ratingID); !ok {
		return
	}

	var req UpdateRatingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	rating, err := h.service.Update(r.Context(), actor, ratingID, req.Score, req.Comment)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rating})
}

// Delete handles DELETE /api/v1/ratings/{ratingID}
func (h *RatingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	ratingID := chi.URLParam(r, "ratingID")
	if _, ok := httputil.ParseUUID(w, ratingID); !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, ratingID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "deleted"}})
}

// ListByProduct handles GET /api/v1/products/{productID}/ratings
func (h *RatingHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if _, ok := httputil.ParseUUID(w, productID); !ok {
		return
	}

	page, perPage := parsePagination(r)
	ratings, total, err := h.service.ListByProduct(r.Context(), productID, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(ratings, total, page, perPage))
}

// ListMine handles GET /api/v1/ratings for the acting consumer.
func (h *RatingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	page, perPage := parsePagination(r)
	ratings, total, err := h.service.ListByConsumer(r.Context(), actor, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(ratings, total, page, perPage))
}

// CanRate handles GET /api/v1/ratings/can-rate/{lineItemID}
func (h *RatingHandler) CanRate(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	lineItemID := chi.URLParam(r, "lineItemID")
	if _, ok := httputil.ParseUUID(w, lineItemID); !ok {
		return
	}

	canRate, err := h.service.CanRate(r.Context(), actor, lineItemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]bool{"can_rate": canRate}})
}
