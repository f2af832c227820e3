package pages

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/starford/pageindex/internal/i18n"
	"github.com/starford/pageindex/internal/models"
	"github.com/starford/pageindex/internal/parser"
	"github.com/starford/pageindex/internal/preview"
	"github.com/starford/pageindex/internal/schema"
	"github.com/starford/pageindex/internal/slug"
	"github.com/starford/pageindex/internal/storage"
	"github.com/starford/pageindex/internal/testutil"
)

var discard = testutil.Logger()

// countingParser wraps the real parser, counting calls per path. It can
// block on a gate and panic for one path. gates[n] blocks the n-th call.
type countingParser struct {
	inner *parser.Parser

	mu    sync.Mutex
	calls map[string]int
	seq   int

	gates     []chan struct{}
	gate      chan struct{}
	entered   chan struct{}
	enterOnce sync.Once
	panicOn   string
}

func (p *countingParser) ParseFile(path string) (*parser.Document, error) {
	p.mu.Lock()
	p.calls[path]++
	var wait chan struct{}
	if p.seq < len(p.gates) {
		wait = p.gates[p.seq]
	}
	p.seq++
	p.mu.Unlock()

	if wait != nil {
		<-wait
	}

	if p.entered != nil {
		p.enterOnce.Do(func() { close(p.entered) })
	}
	if p.gate != nil {
		<-p.gate
	}
	if p.panicOn != "" && path == p.panicOn {
		panic("boom")
	}
	return p.inner.ParseFile(path)
}

func (p *countingParser) count(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[path]
}

func (p *countingParser) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

// memSnapshot is an in-memory durable snapshot.
type memSnapshot struct {
	mu      sync.Mutex
	pages   []models.Page
	stored  bool
	loads   int
	saves   int
	loadErr error
	saveErr error
}

func (m *memSnapshot) Load(context.Context) ([]models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if !m.stored {
		return nil, nil
	}
	out := make([]models.Page, len(m.pages))
	copy(out, m.pages)
	return out, nil
}

func (m *memSnapshot) Save(_ context.Context, pages []models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.pages = append([]models.Page(nil), pages...)
	m.stored = true
	return nil
}

func (m *memSnapshot) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = nil
	m.stored = false
	return nil
}

func (m *memSnapshot) setErrors(load, save error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr, m.saveErr = load, save
}

func (m *memSnapshot) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memSnapshot) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) ReportError(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type countingProgress struct {
	starts atomic.Int32
	stops  atomic.Int32
}

func (p *countingProgress) Start(string)               { p.starts.Add(1) }
func (p *countingProgress) Stop(models.RebuildSummary) { p.stops.Add(1) }

// disposingSurface fails like a closed webview for paths containing "bad".
type disposingSurface struct{}

func (disposingSurface) AsWebviewURI(p string) (string, error) {
	if strings.Contains(p, "bad") {
		return "", errors.New("Webview is disposed")
	}
	return "view://" + p, nil
}

type staticProvider struct{ s preview.Surface }

func (p staticProvider) ActiveSurface() preview.Surface { return p.s }

type harnessConfig struct {
	folders      []storage.FolderConfig
	staticFolder string
	surfaces     preview.SurfaceProvider
	types        []schema.ContentType
	locales      []i18n.Locale
	snapshot     Snapshot
}

type harness struct {
	fs       afero.Fs
	parser   *countingParser
	snap     *memSnapshot
	notes    *recordingNotifier
	progress *countingProgress
	svc      *Service
}

func newHarness(t *testing.T, cfg harnessConfig) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/ws", 0o755))
	return newHarnessOn(t, fs, cfg)
}

func newHarnessOn(t *testing.T, fs afero.Fs, cfg harnessConfig) *harness {
	t.Helper()
	ws, err := storage.NewWorkspace(fs, "/ws",
		storage.WithFolders(cfg.folders...),
		storage.WithStaticFolder(cfg.staticFolder),
		storage.WithLogger(discard))
	require.NoError(t, err)

	h := &harness{
		fs:       fs,
		parser:   &countingParser{inner: parser.New(fs), calls: map[string]int{}},
		snap:     &memSnapshot{},
		notes:    &recordingNotifier{},
		progress: &countingProgress{},
	}
	snapshot := cfg.snapshot
	if snapshot == nil {
		snapshot = h.snap
	}

	svc, err := NewService(Deps{
		Workspace: ws,
		Parser:    h.parser,
		Schemas:   schema.NewRegistry(cfg.types, "", discard),
		Locales:   i18n.NewResolver(fs, cfg.locales, discard),
		Slugs:     slug.New(slug.WithClock(func() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) })),
		Previews:  preview.NewResolver(fs, ws.Root(), cfg.staticFolder, cfg.surfaces, discard),
		Snapshot:  snapshot,
		Notifier:  h.notes,
		Progress:  h.progress,
	}, WithLogger(discard))
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) write(t *testing.T, path, content string, mtimeMs int64) {
	t.Helper()
	require.NoError(t, afero.WriteFile(h.fs, path, []byte(content), 0o644))
	testutil.Touch(t, h.fs, path, mtimeMs)
}

// rebuildNow forces a rebuild and waits for it.
func (h *harness) rebuildNow(t *testing.T) []models.Page {
	t.Helper()
	ctx := context.Background()
	h.svc.StartRebuild(ctx)
	pages, err := h.svc.Index(ctx)
	require.NoError(t, err)
	return pages
}

func byPath(pages []models.Page) map[string]models.Page {
	out := make(map[string]models.Page, len(pages))
	for _, p := range pages {
		out[p.FilePath] = p
	}
	return out
}
