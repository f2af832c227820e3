// Package preview resolves the preview image of a page to an address a UI
// can load.
package preview

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/starford/pageindex/internal/metadata"
)

// HexoPostAssetFolder is the static folder placeholder for sites that keep
// assets in a folder named after each post.
const HexoPostAssetFolder = "hexo:post_asset_folder"

// fallbackAuthority is the host suffix used when no surface is active.
const fallbackAuthority = "vscode-resource.vscode-cdn.net"

// ErrSurfaceDisposed is returned by a Surface that was closed while a
// rebuild still held it.
var ErrSurfaceDisposed = errors.New("webview is disposed")

// IsSurfaceDisposed reports whether err, or any error it wraps, is the
// transient disposed-surface error, by identity or by its well-known message.
func IsSurfaceDisposed(err error) bool {
	if errors.Is(err, ErrSurfaceDisposed) {
		return true
	}
	for ; err != nil; err = errors.Unwrap(err) {
		if strings.EqualFold(err.Error(), ErrSurfaceDisposed.Error()) {
			return true
		}
	}
	return false
}

// Surface is a live UI able to address local files.
type Surface interface {
	AsWebviewURI(localPath string) (string, error)
}

// SurfaceProvider returns the active surface, or nil when none is active.
type SurfaceProvider interface {
	ActiveSurface() Surface
}

// Resolver turns preview field values into URIs.
type Resolver struct {
	fs           afero.Fs
	root         string
	staticFolder string
	surfaces     SurfaceProvider
	logger       *slog.Logger
}

// NewResolver creates a Resolver. surfaces may be nil.
func NewResolver(fs afero.Fs, root, staticFolder string, surfaces SurfaceProvider, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{fs: fs, root: root, staticFolder: staticFolder, surfaces: surfaces, logger: logger}
}

// Resolve reads the preview value at fieldPath in md and resolves it for the
// content file at filePath. Any miss yields "" without an error; errors come
// only from the active surface.
func (r *Resolver) Resolve(md metadata.Map, fieldPath []string, filePath string) (string, error) {
	if len(fieldPath) == 0 {
		return "", nil
	}
	v, ok := md.Find(fieldPath)
	if !ok {
		return "", nil
	}
	if items, ok := v.List(); ok {
		if len(items) == 0 {
			return "", nil
		}
		v = items[0]
	}
	value, ok := v.Str()
	if !ok || value == "" {
		return "", nil
	}
	if strings.HasPrefix(value, "http") {
		return value, nil
	}

	local, ok := r.locate(value, filePath)
	if !ok {
		return "", nil
	}
	return r.uri(local)
}

// Candidates returns the local paths checked for value, in order.
func (r *Resolver) Candidates(value, filePath string) []string {
	static := filepath.Join(r.root, r.staticFolder, value)
	if r.staticFolder == HexoPostAssetFolder {
		p := strings.ReplaceAll(filePath, `\`, "/")
		static = filepath.Join(strings.TrimSuffix(p, filepath.Ext(p)), value)
	}
	return []string{static, filepath.Join(filepath.Dir(filePath), value)}
}

func (r *Resolver) locate(value, filePath string) (string, bool) {
	for _, c := range r.Candidates(value, filePath) {
		ok, err := afero.Exists(r.fs, c)
		if err != nil {
			r.logger.Debug("preview: stat failed",
				slog.String("path", c),
				slog.String("error", err.Error()))
			continue
		}
		if ok {
			return c, true
		}
	}
	return "", false
}

func (r *Resolver) uri(local string) (string, error) {
	if r.surfaces != nil {
		if s := r.surfaces.ActiveSurface(); s != nil {
			u, err := s.AsWebviewURI(local)
			if err != nil {
				return "", fmt.Errorf("preview: %w", err)
			}
			return u, nil
		}
	}
	return FallbackURI(local), nil
}

// FallbackURI addresses a local file through the webview resource host
// convention: https://file+.vscode-resource.vscode-cdn.net/<path>.
func FallbackURI(localPath string) string {
	p := strings.ReplaceAll(localPath, `\`, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{
		Scheme: "https",
		Host:   "file+." + fallbackAuthority,
		Path:   p,
	}
	return u.String()
}
