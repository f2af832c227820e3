package pages

import (
	"context"
	"log/slog"

	"github.com/starford/pageindex/internal/models"
	"github.com/starford/pageindex/internal/storage"
)

const snapshotKey = "snapshot"

// ResolveCachedPage returns the cached page for filePath when its stored
// modification time equals modifiedTime exactly.
func (s *Service) ResolveCachedPage(ctx context.Context, filePath string, modifiedTime int64) (models.Page, bool) {
	cachePath := storage.NormalizePath(filePath)
	for _, p := range s.loadSnapshot(ctx) {
		if p.CachePath == cachePath && p.CacheModifiedTime == modifiedTime {
			return p, true
		}
	}
	return models.Page{}, false
}

// loadSnapshot reads the durable snapshot once per rebuild cycle. A read
// failure is logged and treated as an empty snapshot.
func (s *Service) loadSnapshot(ctx context.Context) []models.Page {
	s.snapMu.Lock()
	if s.snapLoaded {
		snap := s.snap
		s.snapMu.Unlock()
		return snap
	}
	s.snapMu.Unlock()

	v, _, _ := s.loader.Do(snapshotKey, func() (any, error) {
		pages, err := s.deps.Snapshot.Load(ctx)
		if err != nil {
			s.logger.Warn("lookup: load snapshot failed", slog.String("error", err.Error()))
			pages = nil
		}
		s.snapMu.Lock()
		s.snap = pages
		s.snapLoaded = true
		s.snapMu.Unlock()
		return pages, nil
	})
	pages, _ := v.([]models.Page)
	return pages
}

// discardSnapshot forces the next lookup to reload from the durable store.
func (s *Service) discardSnapshot() {
	s.snapMu.Lock()
	s.snap = nil
	s.snapLoaded = false
	s.snapMu.Unlock()
}
