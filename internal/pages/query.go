package pages

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/pageindex/internal/apperr"
	"github.com/starford/pageindex/internal/models"
	"github.com/starford/pageindex/internal/storage"
)

// Sort orders accepted by Filter.
const (
	SortIndex     = ""
	SortTitle     = "title"
	SortPublished = "published"
	SortModified  = "modified"
)

// Filter selects pages from the index. Zero fields match everything.
type Filter struct {
	Folder   string
	Tag      string
	Category string
	Locale   string
	Draft    *bool
	Sort     string
	Limit    int
	Offset   int
}

// Match reports whether p passes every set criterion.
func (f Filter) Match(p models.Page) bool {
	if f.Folder != "" && !strings.EqualFold(p.FolderTitle, f.Folder) {
		return false
	}
	if f.Tag != "" && !slices.Contains(p.Tags, f.Tag) {
		return false
	}
	if f.Category != "" && !slices.Contains(p.Categories, f.Category) {
		return false
	}
	if f.Locale != "" && p.Locale != f.Locale {
		return false
	}
	if f.Draft != nil && p.Draft != *f.Draft {
		return false
	}
	return true
}

// Pages returns the pages matching f and the number of matches before
// pagination. The index is built first when needed.
func (s *Service) Pages(ctx context.Context, f Filter) ([]models.Page, int, error) {
	all, err := s.Index(ctx)
	if err != nil {
		return nil, 0, err
	}

	out := make([]models.Page, 0, len(all))
	for _, p := range all {
		if f.Match(p) {
			out = append(out, p)
		}
	}

	switch f.Sort {
	case SortIndex:
	case SortTitle:
		slices.SortStableFunc(out, func(a, b models.Page) int {
			return cmp.Compare(strings.ToLower(a.Title.String()), strings.ToLower(b.Title.String()))
		})
	case SortPublished:
		slices.SortStableFunc(out, func(a, b models.Page) int {
			return cmp.Compare(published(b), published(a))
		})
	case SortModified:
		slices.SortStableFunc(out, func(a, b models.Page) int {
			return cmp.Compare(b.ModifiedTime, a.ModifiedTime)
		})
	default:
		return nil, 0, fmt.Errorf("pages: unknown sort %q", f.Sort)
	}

	total := len(out)
	if f.Offset > 0 {
		out = out[min(f.Offset, len(out)):]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, total, nil
}

// Page returns the page at relPath, relative to the workspace root.
func (s *Service) Page(ctx context.Context, relPath string) (models.Page, error) {
	rel := strings.TrimPrefix(storage.NormalizePath(relPath), "/")
	if rel == "" {
		return models.Page{}, fmt.Errorf("pages: empty path: %w", apperr.ErrInvalidPath)
	}
	all, err := s.Index(ctx)
	if err != nil {
		return models.Page{}, err
	}
	for _, p := range all {
		if p.RelativeWorkspacePath == rel {
			return p, nil
		}
	}
	return models.Page{}, fmt.Errorf("pages: %s: %w", rel, apperr.ErrNotFound)
}

func published(p models.Page) int64 {
	if p.PublishedTime == nil {
		return 0
	}
	return *p.PublishedTime
}
