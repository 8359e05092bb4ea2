package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/bus-reservations-and-sales/internal/idempotency"
	"github.com/robertarktes/bus-reservations-and-sales/internal/observability"
	"github.com/robertarktes/bus-reservations-and-sales/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(TracingMiddleware)
	r.Use(JWTMiddleware(jwtSecret))
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyMiddleware(idemp))

	r.Get("/v1/trips/{id}", h.GetTrip)
	r.Post("/v1/reservations", h.CreateReservation)
	r.Get("/v1/reservations/{id}/passengers", h.ListPassengers)
	r.Post("/v1/reservations/{id}/passengers", h.AddPassenger)
	r.Put("/v1/passengers/{id}", h.UpdatePassenger)
	r.Delete("/v1/passengers/{id}", h.RemovePassenger)
	r.Get("/v1/sales/exists-for-reservation/{id}", h.SaleExistsForReservation)
	r.Get("/v1/sales/exists-for-passenger/{id}", h.SaleExistsForPassenger)
	r.Post("/v1/sales", h.CreateSale)
	r.Get("/v1/receipts/{id}", h.GetReceipt)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
