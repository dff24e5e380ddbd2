// Package router wires every HTTP surface of the garage platform into a
// single chi router: the public booking and estimator endpoints, the
// chat widget, and the JWT-protected back office.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ashdownmotors/garage-platform/internal/dvla"
	"github.com/ashdownmotors/garage-platform/internal/export"
	"github.com/ashdownmotors/garage-platform/internal/followup"
	httpmiddleware "github.com/ashdownmotors/garage-platform/internal/http/middleware"
	"github.com/ashdownmotors/garage-platform/internal/intake"
	"github.com/ashdownmotors/garage-platform/internal/ledger"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// Config holds router configuration. Optional handlers may be nil; their
// routes are simply not mounted.
type Config struct {
	Logger          *logging.Logger
	BookingHandler  *ledger.Handler
	LookupHandler   *dvla.Handler
	IntakeHandler   *intake.Handler
	FollowUpHandler *followup.Handler
	ExportHandler   *export.Handler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP limit applied to the public lookup and booking routes.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	var publicLimit func(http.Handler) http.Handler
	if cfg.RateLimitPerSecond > 0 {
		publicLimit = httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if publicLimit != nil {
			public = public.With(publicLimit)
		}
		if cfg.BookingHandler != nil {
			public.Post("/bookings", cfg.BookingHandler.CreateBooking)
		}
		if cfg.LookupHandler != nil {
			public.Get("/vehicles/lookup", cfg.LookupHandler.Lookup)
		}
		if cfg.IntakeHandler != nil {
			public.Get("/widget.js", cfg.IntakeHandler.HandleWidgetJS)
			public.Route("/chat", func(chat chi.Router) {
				chat.Get("/ws", cfg.IntakeHandler.HandleWebSocket)
				chat.Post("/message", cfg.IntakeHandler.HandleMessage)
				chat.Get("/history", cfg.IntakeHandler.HandleHistory)
			})
			public.Route("/estimator", func(est chi.Router) {
				est.Post("/lookup", cfg.IntakeHandler.HandleEstimatorLookup)
				est.Post("/confirm", cfg.IntakeHandler.HandleEstimatorConfirm)
				est.Post("/quote", cfg.IntakeHandler.HandleEstimatorQuote)
			})
		}
	})

	// Admin routes (protected by HMAC JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

			if cfg.BookingHandler != nil {
				admin.Get("/bookings", cfg.BookingHandler.ListBookings)
				admin.Patch("/bookings/{id}/status", cfg.BookingHandler.UpdateStatus)
				admin.Delete("/bookings/{id}", cfg.BookingHandler.DeleteBooking)
			}
			if cfg.ExportHandler != nil {
				admin.Get("/bookings/export", cfg.ExportHandler.Download)
				admin.Post("/bookings/export/archive", cfg.ExportHandler.Archive)
			}
			if cfg.FollowUpHandler != nil {
				admin.Get("/followups", cfg.FollowUpHandler.ListPending)
			}
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
