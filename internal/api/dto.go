package api

import (
	"github.com/starford/pageindex/internal/models"
)

// PageListResponse wraps filtered page listings.
type PageListResponse struct {
	Pages []models.Page `json:"pages" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// RebuildResponse is returned when a rebuild is accepted.
type RebuildResponse struct {
	Status models.IndexStatus `json:"status" validate:"required"`
}
