package handlers

import (
	"io/fs"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// UIHandler serves the single-page UI. Unknown paths get index.html so the
// page can route client-side; unknown /api paths get a JSON 404.
type UIHandler struct {
	fsys   fs.FS
	files  http.Handler
	logger *zap.Logger
}

// NewUIHandler creates a UIHandler over fsys, which must contain index.html.
func NewUIHandler(fsys fs.FS, logger *zap.Logger) *UIHandler {
	return &UIHandler{fsys: fsys, files: http.FileServerFS(fsys), logger: logger}
}

// RegisterRoutes registers the catch-all route on the given mux.
func (h *UIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /", h)
}

func (h *UIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")

	if strings.HasPrefix(name, "api/") {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Unknown API endpoint"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if name != "" {
		if info, err := fs.Stat(h.fsys, name); err == nil && !info.IsDir() {
			h.files.ServeHTTP(w, r)
			return
		}
	}
	http.ServeFileFS(w, r, h.fsys, "index.html")
}
