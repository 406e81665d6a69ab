package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fjod/go_shop/internal/service"
)

// NewRouter wires the shop API: catalog browsing, cart editing, and
// order placement, all scoped to the authenticated user.
func NewRouter(catalog *service.CatalogService, cart *service.CartService, orders *service.OrderService, requestTimeout time.Duration) http.Handler {
	productHandler := NewProductHandler(catalog, requestTimeout)
	cartHandler := NewCartHandler(cart, requestTimeout)
	ordersHandler := NewOrdersHandler(orders, requestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(AuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{productID}", productHandler.GetProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{lineID}", cartHandler.UpdateQuantity)
			r.Delete("/items/{lineID}", cartHandler.RemoveLine)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordersHandler.PlaceOrder)
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{orderID}", ordersHandler.GetOrder)
			r.Delete("/{orderID}", ordersHandler.DeleteOrder)
		})
	})

	return r
}
