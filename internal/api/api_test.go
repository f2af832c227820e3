package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/starford/pageindex/internal/apperr"
	"github.com/starford/pageindex/internal/metadata"
	"github.com/starford/pageindex/internal/models"
	"github.com/starford/pageindex/internal/pages"
	"github.com/starford/pageindex/internal/preview"
	"github.com/starford/pageindex/internal/storage"
)

// stubIndex records calls and returns canned pages.
type stubIndex struct {
	mu       sync.Mutex
	pages    []models.Page
	filter   pages.Filter
	rebuilds int
	resets   int
	err      error
}

func (s *stubIndex) Pages(_ context.Context, f pages.Filter) ([]models.Page, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.pages, len(s.pages), nil
}

func (s *stubIndex) Page(_ context.Context, rel string) (models.Page, error) {
	for _, p := range s.pages {
		if p.RelativeWorkspacePath == rel {
			return p, nil
		}
	}
	return models.Page{}, fmt.Errorf("pages: %s: %w", rel, apperr.ErrNotFound)
}

func (s *stubIndex) StartRebuild(context.Context) {
	s.mu.Lock()
	s.rebuilds++
	s.mu.Unlock()
}

func (s *stubIndex) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	return s.err
}

func (s *stubIndex) Status() models.IndexStatus {
	return models.IndexStatus{Initialized: true, PageCount: len(s.pages)}
}

func testWorkspace(t *testing.T) (*storage.Workspace, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/site/static", 0o755); err != nil {
		t.Fatal(err)
	}
	ws, err := storage.NewWorkspace(fs, "/site")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	return ws, fs
}

func testEnv(t *testing.T, token string) (*stubIndex, http.Handler) {
	t.Helper()
	ws, _ := testWorkspace(t)
	idx := &stubIndex{pages: []models.Page{
		{FilePath: "/site/posts/hello.md", RelativeWorkspacePath: "posts/hello.md", Title: models.Text("Hello"), Tags: []string{"go"}},
	}}
	return idx, NewRouter(idx, ws, token != "", token, nil)
}

func do(router http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListPages(t *testing.T) {
	idx, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/pages?folder=Posts&tag=go&category=news&locale=en&draft=false&sort=published&limit=5&offset=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Pages []map[string]any `json:"pages"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Pages) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Pages[0]["title"] != "Hello" {
		t.Errorf("title = %v", resp.Pages[0]["title"])
	}

	f := idx.filter
	if f.Folder != "Posts" || f.Tag != "go" || f.Category != "news" || f.Locale != "en" {
		t.Errorf("filter = %+v", f)
	}
	if f.Draft == nil || *f.Draft {
		t.Errorf("draft = %v, want false", f.Draft)
	}
	if f.Sort != pages.SortPublished || f.Limit != 5 || f.Offset != 2 {
		t.Errorf("filter = %+v", f)
	}
}

func TestListPages_BadQuery(t *testing.T) {
	_, router := testEnv(t, "")

	for _, target := range []string{"/pages?draft=maybe", "/pages?sort=random", "/pages?limit=-1"} {
		if w := do(router, http.MethodGet, target); w.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", target, w.Code)
		}
	}
}

func TestListPages_IndexError(t *testing.T) {
	idx, router := testEnv(t, "")
	idx.err = errors.New("pages: persist: disk full")

	if w := do(router, http.MethodGet, "/pages"); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGetPage(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/pages/posts/hello.md")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var page map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &page)
	if page["fmFilePath"] != "/site/posts/hello.md" {
		t.Errorf("fmFilePath = %v", page["fmFilePath"])
	}

	// Encoded slash.
	if w := do(router, http.MethodGet, "/pages/posts%2Fhello.md"); w.Code != http.StatusOK {
		t.Errorf("encoded path = %d, want 200", w.Code)
	}

	if w := do(router, http.MethodGet, "/pages/posts/missing.md"); w.Code != http.StatusNotFound {
		t.Errorf("missing page = %d, want 404", w.Code)
	}
}

func TestRebuildAndReset(t *testing.T) {
	idx, router := testEnv(t, "")

	w := do(router, http.MethodPost, "/pages/rebuild")
	if w.Code != http.StatusAccepted {
		t.Fatalf("rebuild = %d", w.Code)
	}
	if idx.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", idx.rebuilds)
	}

	w = do(router, http.MethodDelete, "/pages/cache")
	if w.Code != http.StatusNoContent {
		t.Fatalf("reset = %d", w.Code)
	}
	if idx.resets != 1 {
		t.Errorf("resets = %d, want 1", idx.resets)
	}
}

func TestStatus(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st models.IndexStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if !st.Initialized || st.PageCount != 1 {
		t.Errorf("status = %+v", st)
	}
}

// Auth tests.

func TestAuth_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(router, http.MethodGet, "/status"); w.Code != http.StatusOK {
		t.Errorf("disabled mode = %d, want 200", w.Code)
	}
}

func TestAuth_TokenMode(t *testing.T) {
	_, router := testEnv(t, "secret")

	if w := do(router, http.MethodGet, "/status"); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}

	if w := do(router, http.MethodGet, "/status?access_token=secret"); w.Code != http.StatusOK {
		t.Errorf("query token = %d, want 200", w.Code)
	}
}

func TestSSE_AuthProtected(t *testing.T) {
	ws, _ := testWorkspace(t)
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(&stubIndex{}, ws, true, "tok", sseHandler)

	if w := do(router, http.MethodGet, "/events"); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}
	if w := do(router, http.MethodGet, "/events?access_token=tok"); w.Code != http.StatusOK {
		t.Errorf("SSE with token = %d, want 200", w.Code)
	}
}

// Preview tests.

func TestServePreview(t *testing.T) {
	ws, fs := testWorkspace(t)
	if err := afero.WriteFile(fs, "/site/static/cover.png", []byte("fake-png-data"), 0o644); err != nil {
		t.Fatal(err)
	}
	router := NewRouter(&stubIndex{}, ws, false, "", nil)

	w := do(router, http.MethodGet, "/previews/static/cover.png")
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if string(body) != "fake-png-data" {
		t.Errorf("body = %q", body)
	}

	if w := do(router, http.MethodGet, "/previews/static/nope.png"); w.Code != http.StatusNotFound {
		t.Errorf("missing preview = %d, want 404", w.Code)
	}
	if w := do(router, http.MethodGet, "/previews/static"); w.Code != http.StatusNotFound {
		t.Errorf("directory = %d, want 404", w.Code)
	}
}

func TestServePreview_TraversalBlocked(t *testing.T) {
	ws, _ := testWorkspace(t)
	router := NewRouter(&stubIndex{}, ws, false, "", nil)

	for _, name := range []string{"..%2Fsecret.md", "..%2F..%2Fetc%2Fpasswd"} {
		w := do(router, http.MethodGet, "/previews/"+name)
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", name)
		}
	}
}

func TestPreviewSurface(t *testing.T) {
	ws, _ := testWorkspace(t)
	s := NewPreviewSurface(ws, "/api/previews/")

	if s.ActiveSurface() == nil {
		t.Fatal("surface should be active")
	}
	got, err := s.AsWebviewURI("/site/static/my cover.png")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/api/previews/static/my%20cover.png" {
		t.Errorf("uri = %q", got)
	}

	if _, err := s.AsWebviewURI("/elsewhere/x.png"); err == nil {
		t.Error("path outside the workspace should fail")
	}

	s.Dispose()
	if s.ActiveSurface() != nil {
		t.Error("disposed surface should not be active")
	}
	_, err = s.AsWebviewURI("/site/static/cover.png")
	if !preview.IsSurfaceDisposed(err) {
		t.Errorf("err = %v, want disposed", err)
	}
}

func TestPreviewSurface_UsedByResolver(t *testing.T) {
	ws, fs := testWorkspace(t)
	if err := afero.WriteFile(fs, "/site/static/cover.png", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewPreviewSurface(ws, "/api/previews")
	r := preview.NewResolver(fs, ws.Root(), "static", s, nil)

	md := metadata.Map{"preview": metadata.String("cover.png")}
	got, err := r.Resolve(md, []string{"preview"}, "/site/posts/a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/api/previews/static/cover.png" {
		t.Errorf("uri = %q", got)
	}
}
