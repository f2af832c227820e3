package api

import (
	"context"

	"github.com/starford/pageindex/internal/models"
	"github.com/starford/pageindex/internal/pages"
)

// PageIndex is the part of the page index the API serves.
type PageIndex interface {
	Pages(ctx context.Context, f pages.Filter) ([]models.Page, int, error)
	Page(ctx context.Context, relPath string) (models.Page, error)
	StartRebuild(ctx context.Context)
	Reset(ctx context.Context) error
	Status() models.IndexStatus
}
