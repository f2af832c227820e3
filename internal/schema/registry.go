package schema

import (
	"log/slog"

	"github.com/starford/pageindex/internal/metadata"
)

// TypeKey is the front matter key that selects a content type.
const TypeKey = "type"

// Registry resolves content types by name.
type Registry struct {
	types       []ContentType
	defaultName string
	logger      *slog.Logger
}

// NewRegistry creates a Registry. When defaultName is empty or unknown the
// built-in default content type is used as fallback.
func NewRegistry(types []ContentType, defaultName string, logger *slog.Logger) *Registry {
	if defaultName == "" {
		defaultName = DefaultContentTypeName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{types: types, defaultName: defaultName, logger: logger}
}

// ContentTypes returns the configured content types followed by the default
// one when it is not configured explicitly.
func (r *Registry) ContentTypes() []ContentType {
	out := make([]ContentType, 0, len(r.types)+1)
	out = append(out, r.types...)
	if _, ok := r.Lookup(r.defaultName); !ok {
		out = append(out, DefaultContentType())
	}
	return out
}

// Lookup returns the configured content type called name.
func (r *Registry) Lookup(name string) (ContentType, bool) {
	for _, ct := range r.types {
		if ct.Name == name {
			return ct, true
		}
	}
	return ContentType{}, false
}

// Resolve returns the content type declared by md, falling back to the default.
func (r *Registry) Resolve(md metadata.Map) ContentType {
	if v, ok := md.Get(TypeKey); ok {
		if name := v.Text(); name != "" {
			if ct, ok := r.Lookup(name); ok {
				return ct
			}
			r.logger.Debug("schema: unknown content type, using default",
				slog.String("type", name),
				slog.String("default", r.defaultName))
		}
	}
	return r.Default()
}

// Default returns the default content type.
func (r *Registry) Default() ContentType {
	if ct, ok := r.Lookup(r.defaultName); ok {
		return ct
	}
	return DefaultContentType()
}
