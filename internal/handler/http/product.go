package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldmarket/marketplace/internal/service"
	"github.com/fieldmarket/marketplace/pkg/httputil"
	"github.com/fieldmarket/marketplace/pkg/validator"
)

// ProductHandler handles HTTP requests for seller listings.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// CreateProductRequest is the JSON body for listing a new product.
type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=500"`
	Description string `json:"description" validate:"max=5000"`
	Price       int64  `json:"price" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

// UpdateProductRequest is the JSON body for editing a listing.
type UpdateProductRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=500"`
	Description string `json:"description" validate:"max=5000"`
	Price       int64  `json:"price" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

// RestockRequest is the JSON body for adding stock.
type RestockRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var req CreateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), actor, service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// Get handles GET /api/v1/products/{productID}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if _, ok := httputil.ParseUUID(w, productID); !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// ListMine handles GET /api/v1/products for the acting seller.
func (h *ProductHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	page, perPage := parsePagination(r)
	products, total, err := h.service.ListSellerProducts(r.Context(), actor.ID, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, page, perPage))
}

// updateProductResponse reports the updated listing plus how many open cart
// lines the synchronizer rewrote as a consequence.
type updateProductResponse struct {
	Product any `json:"product"`
	// CartLinesAdjusted counts the open cart lines rewritten by this edit.
	CartLinesAdjusted int `json:"cart_lines_adjusted"`
}

// Update handles PUT /api/v1/products/{productID}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	productID := chi.URLParam(r, "productID")
	if _, ok := httputil.ParseUUID(w, productID); !ok {
		return
	}

	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, adjusted, err := h.service.UpdateProduct(r.Context(), actor, productID, service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: updateProductResponse{
		Product:           product,
		CartLinesAdjusted: adjusted,
	}})
}

// Restock handles POST /api/v1/products/{productID}/restock
func (h *ProductHandler) Restock(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	productID := chi.URLParam(r, "productID")
	if _, ok := httputil.ParseUUID(w, productID); !ok {
		return
	}

	var req RestockRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.Restock(r.Context(), actor, productID, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "restocked"}})
}

// Delete handles DELETE /api/v1/products/{productID}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	productID := chi.URLParam(r, "productID")
	if _, ok := httputil.ParseUUID(w, productID); !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), actor, productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "deleted"}})
}
