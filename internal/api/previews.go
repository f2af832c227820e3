package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync/atomic"

	"github.com/starford/pageindex/internal/preview"
	"github.com/starford/pageindex/internal/storage"
)

// PreviewsPath is where preview files are served, relative to the API mount.
const PreviewsPath = "/previews"

// PreviewHandler serves workspace files referenced by page previews.
type PreviewHandler struct {
	ws *storage.Workspace
}

// NewPreviewHandler creates a handler serving files under the workspace root.
func NewPreviewHandler(ws *storage.Workspace) *PreviewHandler {
	return &PreviewHandler{ws: ws}
}

// ServeFile handles GET /api/previews/*.
func (h *PreviewHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel := wildcardPath(r)
	if rel == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	abs, err := h.ws.SafePath(rel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, err := h.ws.Fs().Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "failed to open file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// PreviewSurface addresses workspace files through the preview route. It is
// the active surface while the HTTP server runs; after Dispose it reports
// itself as disposed.
type PreviewSurface struct {
	ws       *storage.Workspace
	base     string
	disposed atomic.Bool
}

// NewPreviewSurface creates a surface producing URIs under base, for example
// "/api/previews".
func NewPreviewSurface(ws *storage.Workspace, base string) *PreviewSurface {
	return &PreviewSurface{ws: ws, base: strings.TrimSuffix(base, "/")}
}

// ActiveSurface returns s until it is disposed.
func (s *PreviewSurface) ActiveSurface() preview.Surface {
	if s.disposed.Load() {
		return nil
	}
	return s
}

// AsWebviewURI maps a local file to its preview URL.
func (s *PreviewSurface) AsWebviewURI(localPath string) (string, error) {
	if s.disposed.Load() {
		return "", preview.ErrSurfaceDisposed
	}
	if !s.ws.Contains(localPath) {
		return "", fmt.Errorf("api: %s is outside the workspace", localPath)
	}
	u := url.URL{Path: path.Join(s.base, s.ws.RelPath(localPath))}
	return u.String(), nil
}

// Dispose retires the surface. Rebuilds still holding it get
// preview.ErrSurfaceDisposed.
func (s *PreviewSurface) Dispose() {
	s.disposed.Store(true)
}
