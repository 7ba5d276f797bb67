package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-wms/meridian-wms/internal/auth"
	"github.com/meridian-wms/meridian-wms/internal/catalog"
	"github.com/meridian-wms/meridian-wms/internal/invoices"
	"github.com/meridian-wms/meridian-wms/internal/locations"
	"github.com/meridian-wms/meridian-wms/internal/observability"
	"github.com/meridian-wms/meridian-wms/internal/orders"
	"github.com/meridian-wms/meridian-wms/internal/stock"
	"github.com/meridian-wms/meridian-wms/internal/tracking"
	"github.com/meridian-wms/meridian-wms/internal/users"
)

// RouterParams aggregates the handlers mounted on the API router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	AuthMiddleware auth.Middleware
	Auth           *auth.Handler
	Users          *users.Handler
	Catalog        *catalog.Handler
	Locations      *locations.Handler
	Stock          *stock.Handler
	Orders         *orders.Handler
	Invoices       *invoices.Handler
	Tracking       *tracking.Handler
}

// NewRouter assembles the HTTP router. Login, health and metrics are
// public; everything else sits behind bearer-token authentication.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config, Metrics: p.Metrics}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if p.Auth != nil {
				p.Auth.MountPublicRoutes(r)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(p.AuthMiddleware.RequireAuth)
			if p.Auth != nil {
				p.Auth.MountRoutes(r)
			}
			if p.Users != nil {
				p.Users.MountRoutes(r)
			}
			if p.Catalog != nil {
				p.Catalog.MountRoutes(r)
			}
			if p.Locations != nil {
				p.Locations.MountRoutes(r)
			}
			if p.Stock != nil {
				p.Stock.MountRoutes(r)
			}
			if p.Orders != nil {
				p.Orders.MountRoutes(r)
			}
			if p.Invoices != nil {
				p.Invoices.MountRoutes(r)
			}
			if p.Tracking != nil {
				p.Tracking.MountRoutes(r)
			}
		})
	})

	return r
}
