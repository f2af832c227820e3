// Package parser splits content files into front matter and body.
//
// YAML front matter is fenced with "---", TOML front matter with "+++".
// Files without a fence have no front matter and produce no Document.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/starford/pageindex/internal/metadata"
)

// Format identifies the front matter language.
type Format string

// Supported front matter formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var fences = []struct {
	delim  string
	format Format
}{
	{"---", FormatYAML},
	{"+++", FormatTOML},
}

// Document is a parsed content file.
type Document struct {
	Metadata metadata.Map
	Body     string
	Format   Format
}

// Parser reads content files from a filesystem.
type Parser struct {
	fs afero.Fs
}

// New creates a Parser reading from fs.
func New(fs afero.Fs) *Parser {
	return &Parser{fs: fs}
}

// ParseFile reads and parses the file at path. It returns a nil Document when
// the file has no front matter.
func (p *Parser) ParseFile(path string) (*Document, error) {
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return nil, fmt.Errorf("parser: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse splits raw bytes into front matter and body.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(data, "\ufeff\n\r")

	for _, f := range fences {
		if !bytes.HasPrefix(trimmed, []byte(f.delim)) {
			continue
		}
		block, body, ok := splitFence(trimmed, f.delim)
		if !ok {
			// No closing delimiter; the whole file is body.
			return nil, nil
		}
		md, err := decode(block, f.format)
		if err != nil {
			return nil, err
		}
		return &Document{Metadata: md, Body: body, Format: f.format}, nil
	}
	return nil, nil
}

// splitFence returns the fenced block and the body after the closing fence.
func splitFence(data []byte, delim string) ([]byte, string, bool) {
	rest := data[len(delim):]
	// The opening fence must be alone on its line.
	if nl := bytes.IndexByte(rest, '\n'); nl < 0 || strings.TrimSpace(string(rest[:nl])) != "" {
		return nil, "", false
	}
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}
	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(after), "\n\r")
	return block, body, true
}

func decode(block []byte, format Format) (metadata.Map, error) {
	raw := map[string]any{}
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(block), &raw); err != nil {
			return nil, fmt.Errorf("parser: invalid toml front matter: %w", err)
		}
	default:
		if err := yaml.Unmarshal(block, &raw); err != nil {
			return nil, fmt.Errorf("parser: invalid yaml front matter: %w", err)
		}
	}
	if raw == nil {
		// An empty YAML document decodes to a nil map.
		raw = map[string]any{}
	}
	return metadata.MapFromAny(raw), nil
}
