package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/kompihq/kompi-engine/pkg/config"
	"github.com/kompihq/kompi-engine/pkg/metrics"
	"github.com/kompihq/kompi-engine/pkg/ports"
)

// Services bundles what the router wires up.
type Services struct {
	Links     ports.LinkService
	Codes     ports.CodeService
	Resolver  ports.Resolver
	Analytics ports.AnalyticsService
}

// NewRouter configures the public resolution surface and the
// workspace-scoped management API.
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	lh := NewLinkHandler(svc.Links, svc.Analytics)
	ch := NewCodeHandler(svc.Codes, svc.Links, svc.Analytics)
	rh := NewRedirectHandler(svc.Resolver)
	qh := NewRenderHandler(svc.Codes)
	mw := NewMiddleware(cfg)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	// Public, unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/r/{code}", rh.ResolveLink)
	r.Get("/c/{id}", rh.ResolveCode)

	// Management API, workspace-bound.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth)

		r.Route("/links", func(r chi.Router) {
			r.Post("/", lh.Create)
			r.Get("/", lh.List)
			r.Get("/{id}", lh.Get)
			r.Put("/{id}", lh.Update)
			r.Delete("/{id}", lh.Delete)
			r.Get("/{id}/analytics", lh.Analytics)
		})

		r.Route("/codes", func(r chi.Router) {
			r.Post("/", ch.Create)
			r.Get("/", ch.List)
			r.Get("/{id}", ch.Get)
			r.Put("/{id}", ch.Update)
			r.Delete("/{id}", ch.Delete)
			r.Get("/{id}/analytics", ch.Analytics)
			r.Get("/{id}/png", qh.PNG)
			r.Get("/{id}/svg", qh.SVG)
		})
	})

	return r
}
