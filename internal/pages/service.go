// Package pages builds and serves the page index.
//
// The Service scans the workspace, reuses cached pages whose file did not
// change and enriches the rest. At most one rebuild runs at a time; callers
// asking for the index while a rebuild is in flight wait for that rebuild.
package pages

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/starford/pageindex/internal/metadata"
	"github.com/starford/pageindex/internal/models"
	"github.com/starford/pageindex/internal/parser"
	"github.com/starford/pageindex/internal/preview"
	"github.com/starford/pageindex/internal/schema"
	"github.com/starford/pageindex/internal/slug"
)

// Workspace enumerates content folders.
type Workspace interface {
	Root() string
	ListFolders(ctx context.Context) ([]models.Folder, error)
	IsEligible(fileName string) bool
	ClearCached()
}

// DocumentParser splits a file into front matter and body. It returns a nil
// document when the file has no front matter.
type DocumentParser interface {
	ParseFile(path string) (*parser.Document, error)
}

// SchemaRegistry resolves the content type of parsed front matter.
type SchemaRegistry interface {
	Resolve(md metadata.Map) schema.ContentType
}

// LocaleResolver annotates files with locale information.
type LocaleResolver interface {
	IsDefaultLocale(filePath string) bool
	Locale(filePath string) string
	Translations(filePath string) []models.Translation
	ClearCache()
}

// SlugGenerator builds slugs for pages without an explicit one.
type SlugGenerator interface {
	Generate(title string, md metadata.Map, template string) slug.Result
}

// PreviewResolver resolves the preview image at a field path.
type PreviewResolver interface {
	Resolve(md metadata.Map, fieldPath []string, filePath string) (string, error)
}

// Snapshot is the durable copy of the index.
type Snapshot interface {
	Load(ctx context.Context) ([]models.Page, error)
	Save(ctx context.Context, pages []models.Page) error
	Clear(ctx context.Context) error
}

// Notifier surfaces per-file failures to the user.
type Notifier interface {
	ReportError(msg string)
}

// Progress brackets every rebuild.
type Progress interface {
	Start(rebuildID string)
	Stop(summary models.RebuildSummary)
}

// Deps are the collaborators of a Service. Notifier and Progress are optional.
type Deps struct {
	Workspace Workspace
	Parser    DocumentParser
	Schemas   SchemaRegistry
	Locales   LocaleResolver
	Slugs     SlugGenerator
	Previews  PreviewResolver
	Snapshot  Snapshot
	Notifier  Notifier
	Progress  Progress
}

// Settings are the global content defaults.
type Settings struct {
	DateFormat        string
	TitleField        string
	DescriptionField  string
	PublishDateField  string
	ModifiedDateField string
}

// DefaultSettings returns the field names used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		TitleField:        "title",
		DescriptionField:  "description",
		PublishDateField:  "date",
		ModifiedDateField: "lastmod",
	}
}

// Option configures a Service.
type Option func(*Service)

// WithSettings overrides the content defaults. Empty field names keep their
// defaults.
func WithSettings(st Settings) Option {
	return func(s *Service) {
		def := DefaultSettings()
		if st.TitleField == "" {
			st.TitleField = def.TitleField
		}
		if st.DescriptionField == "" {
			st.DescriptionField = def.DescriptionField
		}
		if st.PublishDateField == "" {
			st.PublishDateField = def.PublishDateField
		}
		if st.ModifiedDateField == "" {
			st.ModifiedDateField = def.ModifiedDateField
		}
		s.settings = st
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// rebuild is the in-flight rebuild handle. pages and err are written before
// done is closed.
type rebuild struct {
	id    string
	done  chan struct{}
	pages []models.Page
	err   error
}

// Service owns the page index.
type Service struct {
	deps     Deps
	settings Settings
	logger   *slog.Logger

	mu          sync.Mutex
	pages       []models.Page
	initialized bool
	pending     *rebuild
	running     map[*rebuild]struct{}
	last        *models.RebuildSummary

	snapMu     sync.Mutex
	snap       []models.Page
	snapLoaded bool
	loader     singleflight.Group
}

// NewService creates a Service.
func NewService(deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Workspace == nil:
		return nil, fmt.Errorf("pages: workspace is required")
	case deps.Parser == nil:
		return nil, fmt.Errorf("pages: parser is required")
	case deps.Schemas == nil:
		return nil, fmt.Errorf("pages: schema registry is required")
	case deps.Locales == nil:
		return nil, fmt.Errorf("pages: locale resolver is required")
	case deps.Slugs == nil:
		return nil, fmt.Errorf("pages: slug generator is required")
	case deps.Previews == nil:
		return nil, fmt.Errorf("pages: preview resolver is required")
	case deps.Snapshot == nil:
		return nil, fmt.Errorf("pages: snapshot store is required")
	}
	s := &Service{
		deps:     deps,
		settings: DefaultSettings(),
		logger:   slog.Default(),
		running:  make(map[*rebuild]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.deps.Notifier == nil {
		s.deps.Notifier = logNotifier{s.logger}
	}
	if s.deps.Progress == nil {
		s.deps.Progress = nopProgress{}
	}
	return s, nil
}

// StartRebuild triggers a rebuild unless one is already running.
func (s *Service) StartRebuild(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = s.launch(ctx)
	}
}

// GetIndex passes the index to fn. When a rebuild is running fn is called
// with its result once it finishes. When the index was never built or is
// empty a rebuild is started first. Otherwise fn runs immediately.
func (s *Service) GetIndex(ctx context.Context, fn func([]models.Page, error)) {
	r, pages := s.acquire(ctx)
	if r == nil {
		fn(pages, nil)
		return
	}
	go func() {
		<-r.done
		fn(r.pages, r.err)
	}()
}

// Index is the blocking form of GetIndex. A cancelled ctx stops the wait,
// not the rebuild.
func (s *Service) Index(ctx context.Context) ([]models.Page, error) {
	r, pages := s.acquire(ctx)
	if r == nil {
		return pages, nil
	}
	select {
	case <-r.done:
		return r.pages, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reset empties the index and clears the durable cache. A rebuild already
// in flight still completes and publishes its result.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.pending = nil
	s.pages = nil
	s.mu.Unlock()

	s.discardSnapshot()
	if err := s.deps.Snapshot.Clear(ctx); err != nil {
		return fmt.Errorf("pages: clear cache: %w", err)
	}
	s.logger.Info("pages: index reset")
	return nil
}

// Wait blocks until every rebuild in flight has finished, including one
// orphaned by Reset. It starts nothing.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.Lock()
	running := make([]*rebuild, 0, len(s.running))
	for r := range s.running {
		running = append(running, r)
	}
	s.mu.Unlock()

	for _, r := range running {
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Status reports the state of the index.
func (s *Service) Status() models.IndexStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.IndexStatus{
		Initialized: s.initialized,
		Rebuilding:  s.pending != nil,
		PageCount:   len(s.pages),
	}
	if s.last != nil {
		last := *s.last
		st.LastRebuild = &last
	}
	return st
}

// acquire returns the rebuild to wait for, or the current index when no
// rebuild is needed.
func (s *Service) acquire(ctx context.Context) (*rebuild, []models.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return s.pending, nil
	}
	if !s.initialized || len(s.pages) == 0 {
		s.pending = s.launch(ctx)
		return s.pending, nil
	}
	return nil, s.pages
}

// launch starts a rebuild detached from the caller's cancellation. The
// caller must hold s.mu.
func (s *Service) launch(ctx context.Context) *rebuild {
	r := &rebuild{id: uuid.NewString(), done: make(chan struct{})}
	s.running[r] = struct{}{}
	go s.run(context.WithoutCancel(ctx), r)
	return r
}

func (s *Service) run(ctx context.Context, r *rebuild) {
	pages, summary, err := s.rebuild(ctx, r.id)

	s.mu.Lock()
	delete(s.running, r)
	if s.pending == r {
		s.pending = nil
	}
	if err == nil {
		s.initialized = true
		s.pages = pages
	}
	s.last = &summary
	s.mu.Unlock()

	r.pages, r.err = pages, err
	close(r.done)
}

// rebuild scans every folder and persists the result. Only enumeration and
// persistence errors fail the rebuild; per-file errors are reported and
// skipped.
func (s *Service) rebuild(ctx context.Context, id string) (pages []models.Page, summary models.RebuildSummary, err error) {
	started := time.Now()
	summary = models.RebuildSummary{ID: id, StartedAt: started}
	logger := s.logger.With(slog.String("rebuild", id))

	s.deps.Progress.Start(id)
	defer func() {
		summary.Duration = time.Since(started)
		if err != nil {
			summary.Error = err.Error()
			logger.Error("rebuild: failed", slog.String("error", err.Error()))
		} else {
			logger.Info("rebuild: done",
				slog.Int("pages", summary.Pages),
				slog.Int("cache_hits", summary.CacheHits),
				slog.Int("enriched", summary.Enriched),
				slog.Int("failed", summary.Failed),
				slog.Duration("took", summary.Duration))
		}
		s.deps.Progress.Stop(summary)
	}()

	s.deps.Locales.ClearCache()
	s.deps.Workspace.ClearCached()

	folders, err := s.deps.Workspace.ListFolders(ctx)
	if err != nil {
		return nil, summary, fmt.Errorf("pages: list folders: %w", err)
	}

	pages = []models.Page{}
	seen := make(map[string]struct{})
	for _, folder := range folders {
		logger.Debug("rebuild: folder",
			slog.String("folder", folder.Title),
			slog.Int("files", len(folder.Files)))

		for _, file := range folder.Files {
			if !s.deps.Workspace.IsEligible(file.FileName) {
				logger.Info("rebuild: skipping file", slog.String("path", file.FilePath))
				summary.Skipped++
				continue
			}

			page, hit, err := s.process(ctx, file, folder.Title)
			if err != nil {
				if preview.IsSurfaceDisposed(err) {
					continue
				}
				summary.Failed++
				logger.Error("rebuild: file failed",
					slog.String("path", file.FilePath),
					slog.String("error", err.Error()))
				s.deps.Notifier.ReportError(fmt.Sprintf("%s - %s", file.FilePath, err.Error()))
				continue
			}
			if page == nil {
				continue
			}
			if hit {
				summary.CacheHits++
			} else {
				summary.Enriched++
			}
			if _, dup := seen[page.FilePath]; dup {
				continue
			}
			seen[page.FilePath] = struct{}{}
			pages = append(pages, *page)
		}
	}

	if err := s.deps.Snapshot.Save(ctx, pages); err != nil {
		return nil, summary, fmt.Errorf("pages: persist: %w", err)
	}
	s.discardSnapshot()
	s.deps.Workspace.ClearCached()

	summary.Pages = len(pages)
	return pages, summary, nil
}

// process returns the cached page for file or enriches it. A panic while
// processing one file is turned into an error for that file.
func (s *Service) process(ctx context.Context, file models.FileInfo, folderTitle string) (page *models.Page, hit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			page, hit, err = nil, false, fmt.Errorf("panic: %v", r)
		}
	}()

	if cached, ok := s.ResolveCachedPage(ctx, file.FilePath, file.ModifiedTime); ok {
		return &cached, true, nil
	}
	page, err = s.Enrich(ctx, file.FilePath, file.ModifiedTime, file.FileName, folderTitle)
	return page, false, err
}

type logNotifier struct{ logger *slog.Logger }

func (n logNotifier) ReportError(msg string) {
	n.logger.Error("notification", slog.String("message", msg))
}

type nopProgress struct{}

func (nopProgress) Start(string)               {}
func (nopProgress) Stop(models.RebuildSummary) {}
