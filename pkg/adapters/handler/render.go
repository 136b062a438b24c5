package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/kompihq/kompi-engine/pkg/ports"
)

const (
	defaultRenderSize = 512
	minRenderSize     = 120
	maxRenderSize     = 1024
)

// RenderHandler rasterizes a Kompi Code's destination string. Rendering is
// a pure transform of the stored destination: no analytics, no state.
type RenderHandler struct {
	codes ports.CodeService
}

func NewRenderHandler(codes ports.CodeService) *RenderHandler {
	return &RenderHandler{codes: codes}
}

// PNG handles GET /api/v1/codes/{id}/png.
func (h *RenderHandler) PNG(w http.ResponseWriter, r *http.Request) {
	code, err := h.codes.GetCode(r.Context(), WorkspaceID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	png, err := qrcode.Encode(code.Destination, qrcode.Medium, renderSize(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "RENDER_FAILED", "could not encode QR image", "")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(png)
}

// SVG handles GET /api/v1/codes/{id}/svg. The library only encodes PNG, so
// the vector output is built from its module bitmap.
func (h *RenderHandler) SVG(w http.ResponseWriter, r *http.Request) {
	code, err := h.codes.GetCode(r.Context(), WorkspaceID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	q, err := qrcode.New(code.Destination, qrcode.Medium)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "RENDER_FAILED", "could not encode QR image", "")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write([]byte(bitmapToSVG(q.Bitmap(), renderSize(r))))
}

// bitmapToSVG emits one rect per dark module over a white background.
// The bitmap from go-qrcode already includes the quiet zone.
func bitmapToSVG(bitmap [][]bool, size int) string {
	modules := len(bitmap)
	var b strings.Builder
	fmt.Fprintf(&b,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		size, size, modules, modules,
	)
	b.WriteString(`<rect width="100%" height="100%" fill="#ffffff"/>`)
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="1" height="1" fill="#000000"/>`, x, y)
			}
		}
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func renderSize(r *http.Request) int {
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size == 0 {
		return defaultRenderSize
	}
	if size < minRenderSize {
		return minRenderSize
	}
	if size > maxRenderSize {
		return maxRenderSize
	}
	return size
}
