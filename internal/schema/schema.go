// Package schema describes content types: the named field layouts that tell
// the indexer where to find dates, tags, categories and preview images inside
// front matter.
package schema

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultContentTypeName is used when a file does not declare a type or the
// declared type is unknown.
const DefaultContentTypeName = "default"

// Field types with special meaning to the indexer.
const (
	TypeString     = "string"
	TypeDateTime   = "datetime"
	TypeImage      = "image"
	TypeDraft      = "draft"
	TypeTags       = "tags"
	TypeCategories = "categories"
	TypeFields     = "fields"
	TypeBlock      = "block"
	TypeBoolean    = "boolean"
	TypeList       = "list"
)

// Field is one entry of a content type. Group fields nest further fields.
type Field struct {
	Name           string `yaml:"name" json:"name"`
	Title          string `yaml:"title,omitempty" json:"title,omitempty"`
	Type           string `yaml:"type" json:"type"`
	DateFormat     string `yaml:"dateFormat,omitempty" json:"dateFormat,omitempty"`
	IsPreviewImage bool   `yaml:"isPreviewImage,omitempty" json:"isPreviewImage,omitempty"`
	IsPublishDate  bool   `yaml:"isPublishDate,omitempty" json:"isPublishDate,omitempty"`
	IsModifiedDate bool   `yaml:"isModifiedDate,omitempty" json:"isModifiedDate,omitempty"`
	Fields         Fields `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Validate validates the field and its children.
func (f Field) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Type, validation.Required),
		validation.Field(&f.Fields),
	)
}

// ContentType is a named schema for a class of content files.
type ContentType struct {
	Name         string `yaml:"name" json:"name"`
	SlugTemplate string `yaml:"slugTemplate,omitempty" json:"slugTemplate,omitempty"`
	Fields       Fields `yaml:"fields" json:"fields"`
}

// Validate validates the content type.
func (c ContentType) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Fields),
	)
}

// DefaultContentType mirrors the field layout most static site generators use.
func DefaultContentType() ContentType {
	return ContentType{
		Name: DefaultContentTypeName,
		Fields: Fields{
			{Name: "title", Title: "Title", Type: TypeString},
			{Name: "description", Title: "Description", Type: TypeString},
			{Name: "date", Title: "Publishing date", Type: TypeDateTime, IsPublishDate: true},
			{Name: "lastmod", Title: "Last modified date", Type: TypeDateTime, IsModifiedDate: true},
			{Name: "preview", Title: "Content preview", Type: TypeImage},
			{Name: "draft", Title: "Is in draft", Type: TypeDraft},
			{Name: "tags", Title: "Tags", Type: TypeTags},
			{Name: "categories", Title: "Categories", Type: TypeCategories},
		},
	}
}

// fileFormat is the layout of a standalone content types file.
type fileFormat struct {
	ContentTypes []ContentType `yaml:"content_types"`
}

// LoadFile reads content types from a YAML file.
func LoadFile(fs afero.Fs, path string) ([]ContentType, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	for _, ct := range f.ContentTypes {
		if err := ct.Validate(); err != nil {
			return nil, fmt.Errorf("schema: content type %q: %w", ct.Name, err)
		}
	}
	return f.ContentTypes, nil
}
