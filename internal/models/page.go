// Package models defines the domain types for pageindex.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/pageindex/internal/metadata"
)

// Page is one indexed content file. Pages are immutable once published;
// readers must not modify them.
type Page struct {
	// Cache identity.
	CachePath         string
	CacheModifiedTime int64

	// Provenance.
	FolderTitle           string
	FilePath              string
	RelativeWorkspacePath string
	RelativePath          string
	FileName              string

	// Derived attributes.
	Draft           bool
	ModifiedTime    int64
	PublishedTime   *int64
	PublishedYear   *int
	PreviewImage    string
	Tags            []string
	Categories      []string
	ContentTypeName string
	BodyContent     string
	DateFormat      string

	// Locale.
	IsDefaultLocale bool
	Locale          string
	Translations    []Translation

	// Presentation.
	Title       SanitizedText
	Description SanitizedText
	Slug        string
	Date        metadata.Value

	// FrontMatter holds every front matter pair as parsed.
	FrontMatter metadata.Map
}

// Translation points at the same content in another locale.
type Translation struct {
	Locale string `json:"locale"`
	Title  string `json:"title"`
	Path   string `json:"path"`
}

// Folder is a content folder and the files tracked in it.
type Folder struct {
	Title string     `json:"title"`
	Path  string     `json:"path"`
	Files []FileInfo `json:"files"`
}

// FileInfo identifies a content file. ModifiedTime is in milliseconds.
type FileInfo struct {
	FilePath     string `json:"filePath"`
	FileName     string `json:"fileName"`
	ModifiedTime int64  `json:"modifiedTime"`
}

// JSON keys of the fixed page attributes.
const (
	KeyCachePath         = "fmCachePath"
	KeyCacheModifiedTime = "fmCacheModifiedTime"
	KeyFolder            = "fmFolder"
	KeyFilePath          = "fmFilePath"
	KeyRelFileWsPath     = "fmRelFileWsPath"
	KeyRelFilePath       = "fmRelFilePath"
	KeyFileName          = "fmFileName"
	KeyDraft             = "fmDraft"
	KeyModified          = "fmModified"
	KeyPublished         = "fmPublished"
	KeyYear              = "fmYear"
	KeyPreviewImage      = "fmPreviewImage"
	KeyTags              = "fmTags"
	KeyCategories        = "fmCategories"
	KeyContentType       = "fmContentType"
	KeyBody              = "fmBody"
	KeyDateFormat        = "fmDateFormat"
	KeyDefaultLocale     = "fmDefaultLocale"
	KeyLocale            = "fmLocale"
	KeyTranslations      = "fmTranslations"
	KeyTitle             = "title"
	KeyDescription       = "description"
	KeySlug              = "slug"
	KeyDate              = "date"
)

// MarshalJSON writes the front matter first and overlays the fixed keys.
func (p Page) MarshalJSON() ([]byte, error) {
	out := p.FrontMatter.Interface()

	date := p.Date.Interface()
	if date == nil {
		date = ""
	}
	tags, categories := p.Tags, p.Categories
	if tags == nil {
		tags = []string{}
	}
	if categories == nil {
		categories = []string{}
	}
	translations := p.Translations
	if translations == nil {
		translations = []Translation{}
	}

	out[KeyCachePath] = p.CachePath
	out[KeyCacheModifiedTime] = p.CacheModifiedTime
	out[KeyFolder] = p.FolderTitle
	out[KeyFilePath] = p.FilePath
	out[KeyRelFileWsPath] = p.RelativeWorkspacePath
	out[KeyRelFilePath] = p.RelativePath
	out[KeyFileName] = p.FileName
	out[KeyDraft] = p.Draft
	out[KeyModified] = p.ModifiedTime
	out[KeyPublished] = p.PublishedTime
	out[KeyYear] = p.PublishedYear
	out[KeyPreviewImage] = p.PreviewImage
	out[KeyTags] = tags
	out[KeyCategories] = categories
	out[KeyContentType] = p.ContentTypeName
	out[KeyBody] = p.BodyContent
	out[KeyDateFormat] = p.DateFormat
	out[KeyDefaultLocale] = p.IsDefaultLocale
	out[KeyLocale] = p.Locale
	out[KeyTranslations] = translations
	out[KeyTitle] = p.Title.String()
	out[KeyDescription] = p.Description.String()
	out[KeySlug] = p.Slug
	out[KeyDate] = date
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON. Unknown keys go to FrontMatter.
func (p *Page) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("models: decode page: %w", err)
	}

	fields := map[string]any{
		KeyCachePath:         &p.CachePath,
		KeyCacheModifiedTime: &p.CacheModifiedTime,
		KeyFolder:            &p.FolderTitle,
		KeyFilePath:          &p.FilePath,
		KeyRelFileWsPath:     &p.RelativeWorkspacePath,
		KeyRelFilePath:       &p.RelativePath,
		KeyFileName:          &p.FileName,
		KeyDraft:             &p.Draft,
		KeyModified:          &p.ModifiedTime,
		KeyPublished:         &p.PublishedTime,
		KeyYear:              &p.PublishedYear,
		KeyPreviewImage:      &p.PreviewImage,
		KeyTags:              &p.Tags,
		KeyCategories:        &p.Categories,
		KeyContentType:       &p.ContentTypeName,
		KeyBody:              &p.BodyContent,
		KeyDateFormat:        &p.DateFormat,
		KeyDefaultLocale:     &p.IsDefaultLocale,
		KeyLocale:            &p.Locale,
		KeyTranslations:      &p.Translations,
		KeyTitle:             &p.Title,
		KeyDescription:       &p.Description,
		KeySlug:              &p.Slug,
		KeyDate:              &p.Date,
	}

	p.FrontMatter = metadata.Map{}
	for key, msg := range raw {
		target, ok := fields[key]
		if !ok {
			var v metadata.Value
			if err := v.UnmarshalJSON(msg); err != nil {
				return fmt.Errorf("models: decode front matter %q: %w", key, err)
			}
			p.FrontMatter[key] = v
			continue
		}
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(msg, target); err != nil {
			return fmt.Errorf("models: decode %q: %w", key, err)
		}
	}
	if s, ok := p.Date.Str(); ok && s == "" {
		p.Date = metadata.Null()
	}
	return nil
}
