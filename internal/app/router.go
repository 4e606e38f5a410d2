package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cargofol/cargofol/internal/audit"
	"github.com/cargofol/cargofol/internal/auth"
	"github.com/cargofol/cargofol/internal/fx"
	"github.com/cargofol/cargofol/internal/observability"
	"github.com/cargofol/cargofol/internal/products"
	"github.com/cargofol/cargofol/internal/settings"
	"github.com/cargofol/cargofol/internal/shared"
	"github.com/cargofol/cargofol/internal/upload"
	"github.com/cargofol/cargofol/internal/users"
	"github.com/cargofol/cargofol/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthService *auth.Service

	AuthHandler     *auth.Handler
	ProductsHandler *products.Handler
	SettingsHandler *settings.Handler
	AuditHandler    *audit.Handler
	FXHandler       *fx.Handler
	UploadHandler   *upload.Handler
	UsersHandler    *users.Handler
	JobsHandler     *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with the full API surface.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/token", params.AuthHandler.Token)
		r.Group(func(r chi.Router) {
			r.Use(params.AuthService.Middleware)
			r.Get("/me", params.AuthHandler.Me)
		})
	})

	// Everything below requires a valid bearer token. Write access to
	// records is restricted per method; Admin passes every check.
	r.Group(func(r chi.Router) {
		r.Use(params.AuthService.Middleware)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", params.ProductsHandler.List)
			r.Get("/export", params.ProductsHandler.ExportCSV)
			r.Post("/preview", params.ProductsHandler.Preview)
			r.Get("/{id}", params.ProductsHandler.Get)
			r.Get("/{id}/audit", params.ProductsHandler.Audit)

			r.Post("/", params.ProductsHandler.Create)
			r.Patch("/{id}", params.ProductsHandler.Update)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRoles(shared.RoleManager))
				r.Delete("/{id}", params.ProductsHandler.Delete)
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Use(auth.RequireRoles(shared.RoleAdmin))
			r.Get("/", params.SettingsHandler.List)
			r.Post("/", params.SettingsHandler.Update)
			r.Get("/audit", params.AuditHandler.List)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(auth.RequireRoles(shared.RoleManager, shared.RoleAccountant))
			r.Get("/", params.AuditHandler.List)
		})

		r.Route("/exchange-rates", func(r chi.Router) {
			r.Get("/", params.FXHandler.List)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRoles(shared.RoleAccountant))
				r.Post("/", params.FXHandler.Record)
				r.Post("/sync", params.FXHandler.Sync)
			})
		})

		r.Route("/upload", func(r chi.Router) {
			r.Post("/media", params.UploadHandler.Media)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(auth.RequireRoles(shared.RoleAdmin))
			r.Get("/", params.UsersHandler.List)
		})

		if params.JobsHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(auth.RequireRoles(shared.RoleAdmin))
				params.JobsHandler.MountRoutes(r)
			})
		}
	})

	return r
}
