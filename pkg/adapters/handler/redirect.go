package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kompihq/kompi-engine/pkg/ports"
)

// RedirectHandler serves the unauthenticated resolution endpoints. Every
// failure collapses to a plain 404 so unknown, disabled, and deleted codes
// are indistinguishable from outside.
type RedirectHandler struct {
	resolver ports.Resolver
}

func NewRedirectHandler(resolver ports.Resolver) *RedirectHandler {
	return &RedirectHandler{resolver: resolver}
}

// ResolveLink handles GET /r/{code}.
func (h *RedirectHandler) ResolveLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		http.NotFound(w, r)
		return
	}

	target, err := h.resolver.ResolveLink(r.Context(), code, r.Header.Get("Referer"), r.UserAgent())
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// ResolveCode handles GET /c/{id} for Kompi Code scans.
func (h *RedirectHandler) ResolveCode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	target, err := h.resolver.ResolveKompiCode(r.Context(), id, r.Header.Get("Referer"), r.UserAgent())
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
