package i18n

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/pageindex/internal/models"
)

func newFixture(t *testing.T) (afero.Fs, *Resolver) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, p := range []string{
		"/ws/content/en/posts/hello.md",
		"/ws/content/nl/posts/hello.md",
		"/ws/content/en/posts/only-en.md",
		"/ws/pages/about.md",
	} {
		require.NoError(t, afero.WriteFile(fs, p, []byte("---\n---\n"), 0o644))
	}
	r := NewResolver(fs, []Locale{
		{Code: "en", Title: "English", Path: "/ws/content/en/", Default: true},
		{Code: "nl", Title: "Nederlands", Path: `\ws\content\nl`},
		{Code: "fr", Title: "Français", Path: "/ws/content/fr"},
	}, nil)
	return fs, r
}

func TestLocale(t *testing.T) {
	_, r := newFixture(t)

	assert.Equal(t, "en", r.Locale("/ws/content/en/posts/hello.md"))
	assert.True(t, r.IsDefaultLocale("/ws/content/en/posts/hello.md"))

	assert.Equal(t, "nl", r.Locale(`\ws\content\nl\posts\hello.md`))
	assert.False(t, r.IsDefaultLocale("/ws/content/nl/posts/hello.md"))

	assert.Equal(t, "en", r.Locale("/ws/pages/about.md"), "outside locale roots falls back to default")
	assert.True(t, r.IsDefaultLocale("/ws/pages/about.md"))
}

func TestTranslations(t *testing.T) {
	_, r := newFixture(t)

	got := r.Translations("/ws/content/en/posts/hello.md")
	assert.Equal(t, []models.Translation{
		{Locale: "nl", Title: "Nederlands", Path: "/ws/content/nl/posts/hello.md"},
	}, got)

	assert.Empty(t, r.Translations("/ws/content/en/posts/only-en.md"))
	assert.Empty(t, r.Translations("/ws/pages/about.md"))
}

func TestClearCache(t *testing.T) {
	fs, r := newFixture(t)

	assert.Empty(t, r.Translations("/ws/content/en/posts/only-en.md"))

	require.NoError(t, afero.WriteFile(fs, "/ws/content/fr/posts/only-en.md", []byte("x"), 0o644))
	assert.Empty(t, r.Translations("/ws/content/en/posts/only-en.md"), "cached until cleared")

	r.ClearCache()
	got := r.Translations("/ws/content/en/posts/only-en.md")
	require.Len(t, got, 1)
	assert.Equal(t, "fr", got[0].Locale)
}

func TestNoLocalesConfigured(t *testing.T) {
	r := NewResolver(afero.NewMemMapFs(), nil, nil)
	assert.True(t, r.IsDefaultLocale("/any.md"))
	assert.Equal(t, "", r.Locale("/any.md"))
	assert.Empty(t, r.Translations("/any.md"))
}
