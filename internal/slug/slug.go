// Package slug generates URL slugs for pages.
package slug

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/pageindex/internal/dates"
	"github.com/starford/pageindex/internal/metadata"
)

// Result is a generated slug with and without the configured affixes.
type Result struct {
	Slug                    string
	SlugWithPrefixAndSuffix string
}

// Generator builds slugs from titles and optional templates.
type Generator struct {
	prefix     string
	suffix     string
	dateField  string
	dateFormat string
	now        func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithAffixes sets the prefix and suffix added to every slug.
func WithAffixes(prefix, suffix string) Option {
	return func(g *Generator) {
		g.prefix = prefix
		g.suffix = suffix
	}
}

// WithDateField sets the front matter field used for date placeholders.
func WithDateField(name, format string) Option {
	return func(g *Generator) {
		g.dateField = name
		g.dateFormat = format
	}
}

// WithClock overrides the time source used when the page has no date.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{dateField: "date", now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Generate builds a slug for title. A non-empty template may use {{title}},
// {{slug}}, {{year}}, {{month}}, {{day}} and {{fm.<field>}} placeholders.
func (g *Generator) Generate(title string, md metadata.Map, template string) Result {
	base := Slugify(title)
	s := base
	if template != "" {
		date := g.pageDate(md)
		s = placeholder.ReplaceAllStringFunc(template, func(m string) string {
			name := placeholder.FindStringSubmatch(m)[1]
			switch {
			case name == "title" || name == "slug":
				return base
			case name == "year":
				return date.Format("2006")
			case name == "month":
				return date.Format("01")
			case name == "day":
				return date.Format("02")
			case strings.HasPrefix(name, "fm."):
				v, ok := md.Get(strings.TrimPrefix(name, "fm."))
				if !ok {
					return ""
				}
				return Slugify(v.Text())
			default:
				return m
			}
		})
	}
	if s == "" {
		return Result{}
	}
	return Result{Slug: s, SlugWithPrefixAndSuffix: g.prefix + s + g.suffix}
}

func (g *Generator) pageDate(md metadata.Map) time.Time {
	if v, ok := md.Get(g.dateField); ok {
		if t, ok := dates.Parse(v, g.dateFormat); ok {
			return t
		}
	}
	return g.now()
}

// Slugify lowercases s, strips diacritics and joins words with hyphens. It is
// safe for concurrent use.
func Slugify(s string) string {
	// A transform chain carries state, so each call builds its own.
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
