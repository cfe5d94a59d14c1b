package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/iho/cashledger/internal/adapter/http/handler"
	"github.com/iho/cashledger/internal/adapter/http/middleware"
	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/metrics"
	"github.com/iho/cashledger/internal/usecase"
)

// RouterConfig holds dependencies for the routers. Optional parts are
// skipped when nil.
type RouterConfig struct {
	LedgerHandler    *handler.LedgerHandler
	ReceiptHandler   *handler.ReceiptHandler
	InventoryHandler *handler.InventoryHandler
	ReportHandler    *handler.ReportHandler
	SettingsHandler  *handler.SettingsHandler
	HealthHandler    *handler.HealthHandler
	AuthHandler      *handler.AuthHandler

	// TokenVerifier enables bearer authentication and role checks.
	TokenVerifier middleware.TokenVerifier

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
	AllowedOrigins   []string
}

var (
	readers   = []domain.Role{domain.RoleAdmin, domain.RoleOperator, domain.RoleViewer}
	recorders = []domain.Role{domain.RoleAdmin, domain.RoleOperator}
	editors   = []domain.Role{domain.RoleAdmin}
	executors = []domain.Role{domain.RoleAdmin, domain.RoleOperator, domain.RoleExecutor}
	reporters = []domain.Role{domain.RoleAdmin, domain.RoleOperator, domain.RoleViewer, domain.RoleExecutor}
)

// NewRouter creates the sync API router used by the register UI and CLI.
func NewRouter(cfg RouterConfig) http.Handler {
	r := newBaseRouter(cfg)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthHandler != nil {
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		r.Group(func(r chi.Router) {
			useAuth(r, cfg)
			useIdempotency(r, cfg)
			allow := roleGuard(cfg)

			if cfg.AuthHandler != nil {
				r.Get("/auth/me", cfg.AuthHandler.Me)
			}

			r.With(allow(readers...)).Get("/balances", cfg.LedgerHandler.Balances)
			r.With(allow(readers...)).Get("/consistency", cfg.LedgerHandler.Consistency)
			r.With(allow(editors...)).Post("/reconcile", cfg.LedgerHandler.Reconcile)

			r.Route("/entries", func(r chi.Router) {
				r.With(allow(readers...)).Get("/", cfg.LedgerHandler.ListEntries)
				r.With(allow(recorders...)).Post("/", cfg.LedgerHandler.CreateEntry)
				r.With(allow(readers...)).Get("/{id}", cfg.LedgerHandler.GetEntry)
				r.With(allow(editors...)).Delete("/{id}", cfg.LedgerHandler.DeleteEntry)
			})

			r.Route("/receipts/{id}", func(r chi.Router) {
				r.With(allow(readers...)).Get("/entries", cfg.ReceiptHandler.Entries)
				r.With(allow(recorders...)).Post("/transition", cfg.ReceiptHandler.Transition)
				r.With(allow(recorders...)).Post("/refund", cfg.ReceiptHandler.Refund)
				r.With(allow(recorders...)).Delete("/", cfg.ReceiptHandler.Delete)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Use(allow(recorders...))
				r.Post("/purchases", cfg.InventoryHandler.Purchase)
				r.Post("/removals", cfg.InventoryHandler.Removal)
			})

			r.With(allow(reporters...)).Get("/reports/executors/{name}", cfg.ReportHandler.ExecutorTotals)

			r.Route("/settings", func(r chi.Router) {
				r.With(allow(readers...)).Get("/", cfg.SettingsHandler.Get)
				r.With(allow(editors...)).Put("/", cfg.SettingsHandler.Update)
			})
		})
	})

	return r
}

// NewExecutorRouter creates the executor-facing API: receipt transitions,
// receipt entries and the executor's own report.
func NewExecutorRouter(cfg RouterConfig) http.Handler {
	r := newBaseRouter(cfg)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthHandler != nil {
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		r.Group(func(r chi.Router) {
			useAuth(r, cfg)
			useIdempotency(r, cfg)
			r.Use(roleGuard(cfg)(executors...))

			r.Get("/receipts/{id}/entries", cfg.ReceiptHandler.Entries)
			r.Post("/receipts/{id}/transition", cfg.ReceiptHandler.Transition)
			r.Get("/reports/executors/{name}", cfg.ReportHandler.ExecutorTotals)
		})
	})

	return r
}

func newBaseRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestMeta)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyKeyHeader},
			ExposedHeaders: []string{"X-Idempotency-Replay", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	// Health endpoints
	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Liveness)
		r.Get("/ready", cfg.HealthHandler.Readiness)
	}

	return r
}

func useAuth(r chi.Router, cfg RouterConfig) {
	if cfg.TokenVerifier != nil {
		r.Use(middleware.AuthMiddleware(cfg.TokenVerifier))
	}
}

func useIdempotency(r chi.Router, cfg RouterConfig) {
	if cfg.IdempotencyStore != nil {
		r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
	}
}

// roleGuard returns RequireRole when authentication is enabled and a
// pass-through otherwise.
func roleGuard(cfg RouterConfig) func(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(roles ...domain.Role) func(http.Handler) http.Handler {
		if cfg.TokenVerifier == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RequireRole(roles...)
	}
}
