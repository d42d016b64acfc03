package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldmarket/marketplace/internal/service"
	"github.com/fieldmarket/marketplace/pkg/health"
	"github.com/fieldmarket/marketplace/pkg/middleware"
)

// Services bundles the service layer the router exposes.
type Services struct {
	Cart    *service.CartService
	Order   *service.OrderService
	Product *service.ProductService
	Rating  *service.RatingService
}

// NewRouter creates a chi router with all marketplace routes registered.
func NewRouter(services Services, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("marketplace"))
	r.Use(middleware.Tracing("marketplace"))
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	cartHandler := NewCartHandler(services.Cart, logger)
	orderHandler := NewOrderHandler(services.Order, logger)
	productHandler := NewProductHandler(services.Product, logger)
	ratingHandler := NewRatingHandler(services.Rating, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/cart", func(r chi.Router) {
			r.Use(RequireConsumer)

			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{lineItemID}", cartHandler.RemoveItem)
			r.Post("/acknowledge", cartHandler.AcknowledgeChanges)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(RequireActor)

			r.Post("/", orderHandler.Place)
			r.Get("/", orderHandler.List)
			r.Get("/{orderID}", orderHandler.Get)
			r.Post("/{orderID}/delivered", orderHandler.MarkDelivered)
			r.Post("/{orderID}/receipt", orderHandler.ConfirmReceipt)
		})

		r.Route("/products", func(r chi.Router) {
			// Catalog reads are open; listing management needs a seller.
			r.Get("/{productID}", productHandler.Get)
			r.Get("/{productID}/ratings", ratingHandler.ListByProduct)

			r.Group(func(r chi.Router) {
				r.Use(RequireSeller)

				r.Post("/", productHandler.Create)
				r.Get("/", productHandler.ListMine)
				r.Put("/{productID}", productHandler.Update)
				r.Post("/{productID}/restock", productHandler.Restock)
				r.Delete("/{productID}", productHandler.Delete)
			})
		})

		r.Route("/ratings", func(r chi.Router) {
			r.Get("/{ratingID}", ratingHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(RequireConsumer)

				r.Post("/", ratingHandler.Add)
				r.Get("/", ratingHandler.ListMine)
				r.Put("/{ratingID}", ratingHandler.Update)
				r.Delete("/{ratingID}", ratingHandler.Delete)
				r.Get("/can-rate/{lineItemID}", ratingHandler.CanRate)
			})
		})
	})

	return r
}
