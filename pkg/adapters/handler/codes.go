package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
	"github.com/kompihq/kompi-engine/pkg/ports"
)

// CodeHandler serves the workspace-scoped Kompi Code CRUD and analytics API.
type CodeHandler struct {
	codes     ports.CodeService
	links     ports.LinkService
	analytics ports.AnalyticsService
}

func NewCodeHandler(codes ports.CodeService, links ports.LinkService, analytics ports.AnalyticsService) *CodeHandler {
	return &CodeHandler{codes: codes, links: links, analytics: analytics}
}

// CreateCodeRequest payload. Destination is ignored when LinkID is set;
// the registry computes the short-link path itself.
type CreateCodeRequest struct {
	Destination string `json:"destination,omitempty"`
	Title       string `json:"title,omitempty"`
	Type        string `json:"type,omitempty"`
	LinkID      string `json:"link_id,omitempty"`
}

// UpdateCodeRequest payload
type UpdateCodeRequest struct {
	Destination string `json:"destination,omitempty"`
	Title       string `json:"title,omitempty"`
	Type        string `json:"type,omitempty"`
}

func (h *CodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", "")
		return
	}

	code, err := h.codes.CreateCode(r.Context(), WorkspaceID(r), req.Destination, req.Title, req.Type, req.LinkID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

func (h *CodeHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	codes, err := h.codes.ListCodes(r.Context(), WorkspaceID(r), page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if codes == nil {
		codes = []domain.KompiCode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": codes, "page": page, "limit": limit})
}

func (h *CodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, err := h.codes.GetCode(r.Context(), WorkspaceID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, code)
}

func (h *CodeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", "")
		return
	}

	code, err := h.codes.UpdateCode(r.Context(), WorkspaceID(r), chi.URLParam(r, "id"), req.Destination, req.Title, req.Type)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, code)
}

func (h *CodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.codes.DeleteCode(r.Context(), WorkspaceID(r), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics serves the per-code dashboard view: the code's own scans, and,
// for chained codes, a snapshot of the linked link so the "final
// destination" stays visible after target edits.
func (h *CodeHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	code, err := h.codes.GetCode(r.Context(), WorkspaceID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summary, err := h.analytics.Summary(r.Context(), domain.ResourceCode, code.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{
		"code":      code,
		"analytics": summary,
	}
	if code.Chained() {
		if link, err := h.links.GetLink(r.Context(), WorkspaceID(r), code.LinkID); err == nil {
			resp["link"] = link
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
