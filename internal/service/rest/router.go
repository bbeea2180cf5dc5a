package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/checkout/internal/health"
)

const defaultRequestTimeout = 30 * time.Second

// NewRouter собирает HTTP-роутер сервиса.
func NewRouter(checkoutHandler *CheckoutHandler, ordersHandler *OrdersHandler, probes *health.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	if probes != nil {
		r.Get("/healthz", probes.ServeHTTP)
		r.Get("/readyz", probes.ReadinessHandler)
		r.Get("/livez", health.LivenessHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", checkoutHandler.PlaceOrder)
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.List)
			r.Get("/{orderID}", ordersHandler.Get)
			r.Get("/{orderID}/timeline", ordersHandler.Timeline)
		})
	})

	return r
}
