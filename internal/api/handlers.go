package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pageindex/internal/apperr"
	"github.com/starford/pageindex/internal/pages"
)

// Handler holds API route handlers.
type Handler struct {
	index PageIndex
}

// NewHandler creates a new Handler.
func NewHandler(index PageIndex) *Handler {
	return &Handler{index: index}
}

// wildcardPath extracts the path after the route prefix.
// Supports encoded slashes from OpenAPI clients (e.g. posts%2Fhello.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// parseFilter reads list query parameters.
func parseFilter(q url.Values) (pages.Filter, error) {
	f := pages.Filter{
		Folder:   q.Get("folder"),
		Tag:      q.Get("tag"),
		Category: q.Get("category"),
		Locale:   q.Get("locale"),
		Sort:     q.Get("sort"),
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	if raw := q.Get("draft"); raw != "" {
		draft, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errors.New("draft must be a boolean")
		}
		f.Draft = &draft
	}
	return f, f.Validate()
}

// ListPages handles GET /api/pages.
//
//	@Summary		List indexed pages with optional filtering and pagination
//	@Tags			pages
//	@Produce		json
//	@Param			folder		query		string	false	"Folder title"
//	@Param			tag			query		string	false	"Filter by tag"
//	@Param			category	query		string	false	"Filter by category"
//	@Param			locale		query		string	false	"Filter by locale code"
//	@Param			draft		query		bool	false	"Filter by draft status"
//	@Param			sort		query		string	false	"Sort order"	Enums(title, published, modified)
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	PageListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	items, total, err := h.index.Pages(r.Context(), f)
	if err != nil {
		slog.Error("api: list pages failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PageListResponse{Pages: items, Total: total})
}

// GetPage handles GET /api/pages/*.
//
//	@Summary		Get a single page by workspace-relative path
//	@Tags			pages
//	@Produce		json
//	@Param			path	path		string	true	"Page path"
//	@Success		200		{object}	models.Page
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{path} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	page, err := h.index.Page(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("api: get page failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Rebuild handles POST /api/pages/rebuild.
//
//	@Summary		Start a rebuild unless one is running
//	@Tags			pages
//	@Produce		json
//	@Success		202	{object}	RebuildResponse
//	@Security		BearerAuth
//	@Router			/pages/rebuild [post]
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	h.index.StartRebuild(r.Context())
	writeJSON(w, http.StatusAccepted, RebuildResponse{Status: h.index.Status()})
}

// ResetCache handles DELETE /api/pages/cache.
//
//	@Summary		Drop the in-memory index and the durable cache
//	@Tags			pages
//	@Success		204	"Cache cleared"
//	@Security		BearerAuth
//	@Router			/pages/cache [delete]
func (h *Handler) ResetCache(w http.ResponseWriter, r *http.Request) {
	if err := h.index.Reset(r.Context()); err != nil {
		slog.Error("api: reset cache failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/status.
//
//	@Summary		Report index state and the last rebuild
//	@Tags			pages
//	@Produce		json
//	@Success		200	{object}	models.IndexStatus
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.index.Status())
}
