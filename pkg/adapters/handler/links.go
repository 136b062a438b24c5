package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
	"github.com/kompihq/kompi-engine/pkg/ports"
)

// LinkHandler serves the workspace-scoped link CRUD and analytics API.
type LinkHandler struct {
	links     ports.LinkService
	analytics ports.AnalyticsService
}

func NewLinkHandler(links ports.LinkService, analytics ports.AnalyticsService) *LinkHandler {
	return &LinkHandler{links: links, analytics: analytics}
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	TargetURL string `json:"target_url"`
	Code      string `json:"code,omitempty"`
	Title     string `json:"title,omitempty"`
}

// UpdateLinkRequest payload
type UpdateLinkRequest struct {
	TargetURL string `json:"target_url,omitempty"`
	Title     string `json:"title,omitempty"`
}

func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", "")
		return
	}

	link, err := h.links.CreateLink(r.Context(), WorkspaceID(r), req.TargetURL, req.Code, req.Title)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	links, err := h.links.ListLinks(r.Context(), WorkspaceID(r), page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if links == nil {
		links = []domain.Link{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": links, "page": page, "limit": limit})
}

func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.GetLink(r.Context(), WorkspaceID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", "")
		return
	}

	link, err := h.links.UpdateLink(r.Context(), WorkspaceID(r), chi.URLParam(r, "id"), req.TargetURL, req.Title)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.links.DeleteLink(r.Context(), WorkspaceID(r), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics serves the composed per-link dashboard view.
func (h *LinkHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Ownership check before touching the event log.
	link, err := h.links.GetLink(r.Context(), WorkspaceID(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summary, err := h.analytics.Summary(r.Context(), domain.ResourceLink, link.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"link":      link,
		"analytics": summary,
	})
}
