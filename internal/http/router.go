package http

import (
	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/idempotency"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/Unify-India/ekaant-sub000/internal/rateLimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(TracingMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(JWTMiddleware(jwtSecret, logger))
		r.Use(RateLimitMiddleware(rl))
		r.Use(IdempotencyMiddleware(idemp, logger))

		r.Get("/v1/libraries/{libraryID}/config", h.GetLibraryConfig)
		r.Get("/v1/libraries/{libraryID}/slots", h.GetAvailableSlots)
		r.Get("/v1/bookings", h.ListBookings)
		r.Post("/v1/bookings", h.AllocateSeat)
		r.Post("/v1/bookings/{bookingID}/cancel", h.CancelBooking)
		r.Post("/v1/subscriptions", h.CreateSubscription)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(domain.RoleManager, logger))
			r.Post("/v1/applications/{applicationID}/approve", h.ManagerApproveSeat)
			r.Put("/v1/libraries/{libraryID}/config", h.UpdateLibraryConfig)
		})
	})

	return r
}
