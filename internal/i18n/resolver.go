// Package i18n maps content files to their locale and to the same content in
// other locales.
//
// Every locale owns a content root. A file's translations are the files with
// the same path relative to the other locale roots.
package i18n

import (
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/starford/pageindex/internal/models"
)

// Locale is a configured content locale.
type Locale struct {
	Code    string
	Title   string
	Path    string // slash-separated absolute root
	Default bool
}

type entry struct {
	locale       *Locale
	translations []models.Translation
}

// Resolver answers locale questions for content files. Results are cached
// per file until ClearCache.
type Resolver struct {
	fs      afero.Fs
	locales []Locale // configuration order
	byRoot  []Locale // longest root first
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]entry
}

// NewResolver creates a Resolver. Locale paths are normalized to slash form.
func NewResolver(fs afero.Fs, locales []Locale, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	ls := make([]Locale, len(locales))
	for i, l := range locales {
		l.Path = strings.TrimSuffix(normalize(l.Path), "/")
		ls[i] = l
	}
	byRoot := make([]Locale, len(ls))
	copy(byRoot, ls)
	sort.SliceStable(byRoot, func(i, j int) bool { return len(byRoot[i].Path) > len(byRoot[j].Path) })
	return &Resolver{fs: fs, locales: ls, byRoot: byRoot, logger: logger, cache: make(map[string]entry)}
}

// IsDefaultLocale reports whether filePath belongs to the default locale.
// Files outside every locale root count as default content.
func (r *Resolver) IsDefaultLocale(filePath string) bool {
	e := r.lookup(filePath)
	return e.locale == nil || e.locale.Default
}

// Locale returns the locale code of filePath, or the default locale's code
// when the file is outside every locale root.
func (r *Resolver) Locale(filePath string) string {
	if e := r.lookup(filePath); e.locale != nil {
		return e.locale.Code
	}
	for _, l := range r.locales {
		if l.Default {
			return l.Code
		}
	}
	return ""
}

// Translations returns the existing counterparts of filePath in the other
// locales, in configuration order.
func (r *Resolver) Translations(filePath string) []models.Translation {
	e := r.lookup(filePath)
	out := make([]models.Translation, len(e.translations))
	copy(out, e.translations)
	return out
}

// ClearCache forgets cached answers so the next lookup re-reads the disk.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	r.cache = make(map[string]entry)
	r.mu.Unlock()
}

func (r *Resolver) lookup(filePath string) entry {
	p := normalize(filePath)

	r.mu.Lock()
	e, ok := r.cache[p]
	r.mu.Unlock()
	if ok {
		return e
	}

	e = r.resolve(p)

	r.mu.Lock()
	r.cache[p] = e
	r.mu.Unlock()
	return e
}

func (r *Resolver) resolve(p string) entry {
	var e entry
	for i := range r.byRoot {
		if strings.HasPrefix(p, r.byRoot[i].Path+"/") {
			e.locale = &r.byRoot[i]
			break
		}
	}
	if e.locale == nil {
		return e
	}

	rel := strings.TrimPrefix(p, e.locale.Path)
	for _, l := range r.locales {
		if l.Code == e.locale.Code {
			continue
		}
		candidate := path.Join(l.Path, rel)
		exists, err := afero.Exists(r.fs, candidate)
		if err != nil {
			r.logger.Warn("i18n: stat failed",
				slog.String("path", candidate),
				slog.String("error", err.Error()))
			continue
		}
		if exists {
			e.translations = append(e.translations, models.Translation{
				Locale: l.Code,
				Title:  l.Title,
				Path:   candidate,
			})
		}
	}
	return e
}

func normalize(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
