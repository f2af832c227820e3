package cache

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/pageindex/internal/metadata"
	"github.com/starford/pageindex/internal/models"
)

func testSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": testSQLite(t),
		"file":   testFileStore(t),
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "workspace:1", "k")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "workspace:1", "k", []byte("v1")))
			require.NoError(t, s.Set(ctx, "workspace:1", "k", []byte("v2")))
			require.NoError(t, s.Set(ctx, "workspace:2", "k", []byte("other")))

			got, ok, err := s.Get(ctx, "workspace:1", "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "v2", string(got))

			require.NoError(t, s.Delete(ctx, "workspace:1", "k"))
			require.NoError(t, s.Delete(ctx, "workspace:1", "k"), "deleting twice is fine")

			_, ok, err = s.Get(ctx, "workspace:1", "k")
			require.NoError(t, err)
			assert.False(t, ok)

			got, ok, _ = s.Get(ctx, "workspace:2", "k")
			assert.True(t, ok, "scopes are isolated")
			assert.Equal(t, "other", string(got))
		})
	}
}

func TestPages_RoundTrip(t *testing.T) {
	ctx := context.Background()
	published := int64(1700000000000)
	in := []models.Page{
		{
			CachePath:         "/ws/a.md",
			CacheModifiedTime: 42,
			FilePath:          "/ws/a.md",
			Title:             models.Text("A"),
			PublishedTime:     &published,
			Tags:              []string{"x"},
			BodyContent:       strings.Repeat("body ", 200),
			FrontMatter:       metadata.Map{"weight": metadata.Int(1)},
		},
		{CachePath: "/ws/b.md", FilePath: "/ws/b.md", Title: models.Invalid()},
	}

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p, err := NewPages(s, WorkspaceScope("/ws"))
			require.NoError(t, err)
			defer p.Close()

			empty, err := p.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			require.NoError(t, p.Save(ctx, in))
			out, err := p.Load(ctx)
			require.NoError(t, err)
			require.Len(t, out, 2)
			assert.Equal(t, "/ws/a.md", out[0].CachePath)
			assert.Equal(t, int64(42), out[0].CacheModifiedTime)
			assert.Equal(t, published, *out[0].PublishedTime)
			assert.Equal(t, in[0].BodyContent, out[0].BodyContent)
			assert.False(t, out[1].Title.Valid())

			require.NoError(t, p.Clear(ctx))
			out, err = p.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, out)
		})
	}
}

func TestPages_CorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	s := testFileStore(t)
	scope := WorkspaceScope("/ws")
	require.NoError(t, s.Set(ctx, scope, PagesKey, []byte("not zstd")))

	p, err := NewPages(s, scope)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Load(ctx)
	assert.Error(t, err)
}

func TestWorkspaceScope(t *testing.T) {
	a := WorkspaceScope("/ws/site")
	assert.True(t, strings.HasPrefix(a, "workspace:"))
	assert.Len(t, a, len("workspace:")+16)
	assert.Equal(t, a, WorkspaceScope("/ws/site/"))
	assert.NotEqual(t, a, WorkspaceScope("/ws/other"))
}
