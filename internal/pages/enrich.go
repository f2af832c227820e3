package pages

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"github.com/starford/pageindex/internal/dates"
	"github.com/starford/pageindex/internal/metadata"
	"github.com/starford/pageindex/internal/models"
	"github.com/starford/pageindex/internal/schema"
	"github.com/starford/pageindex/internal/storage"
)

// Enrich parses filePath and builds its page. It returns nil without an
// error when the file has no front matter.
func (s *Service) Enrich(_ context.Context, filePath string, modifiedTime int64, fileName, folderTitle string) (*models.Page, error) {
	doc, err := s.deps.Parser.ParseFile(filePath)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	md := doc.Metadata
	ct := s.deps.Schemas.Resolve(md)

	dateField, dateFormat := s.publishDateField(ct)
	var published *int64
	var year *int
	dateValue, _ := md.Get(dateField)
	if dateValue.Truthy() {
		if t, ok := dates.Parse(dateValue, dateFormat); ok {
			ms, y := t.UnixMilli(), t.Year()
			published, year = &ms, &y
		}
	}

	modified := modifiedTime
	modField, modFormat := s.modifiedDateField(ct)
	if v, ok := md.Get(modField); ok && v.Truthy() {
		if t, ok := dates.Parse(v, modFormat); ok {
			modified = t.UnixMilli()
		}
	}

	title := sanitize(md, s.settings.TitleField, fileName)
	description := sanitize(md, s.settings.DescriptionField, "")

	var pageSlug string
	if v, ok := md.Get("slug"); ok && v.Truthy() {
		pageSlug = v.Text()
	} else {
		pageSlug = s.deps.Slugs.Generate(title.String(), md, ct.SlugTemplate).SlugWithPrefixAndSuffix
	}

	date := metadata.Null()
	if dateValue.Truthy() {
		date = dateValue
	}

	contentType := ct.Name
	if contentType == "" {
		contentType = schema.DefaultContentTypeName
	}

	previewImage, err := s.deps.Previews.Resolve(md, ct.Fields.FindPreviewPath(), filePath)
	if err != nil {
		return nil, err
	}

	cachePath := storage.NormalizePath(filePath)
	root := s.deps.Workspace.Root()

	return &models.Page{
		CachePath:         cachePath,
		CacheModifiedTime: modifiedTime,

		FolderTitle:           folderTitle,
		FilePath:              filePath,
		RelativeWorkspacePath: relWorkspacePath(root, filePath),
		RelativePath:          strings.Replace(cachePath, storage.NormalizePath(root), "", 1),
		FileName:              fileName,

		Draft:           draftStatus(ct, md),
		ModifiedTime:    modified,
		PublishedTime:   published,
		PublishedYear:   year,
		PreviewImage:    previewImage,
		Tags:            fieldValues(ct, md, schema.TypeTags),
		Categories:      fieldValues(ct, md, schema.TypeCategories),
		ContentTypeName: contentType,
		BodyContent:     doc.Body,
		DateFormat:      dateFormat,

		IsDefaultLocale: s.deps.Locales.IsDefaultLocale(filePath),
		Locale:          s.deps.Locales.Locale(filePath),
		Translations:    s.deps.Locales.Translations(filePath),

		Title:       title,
		Description: description,
		Slug:        pageSlug,
		Date:        date,

		FrontMatter: md.Clone(),
	}, nil
}

// publishDateField returns the publish date field name and its date format.
func (s *Service) publishDateField(ct schema.ContentType) (string, string) {
	name := s.settings.PublishDateField
	if f, ok := ct.Fields.PublishDateField(); ok {
		name = f.Name
	}
	format := s.settings.DateFormat
	if f, ok := ct.Fields.FindByName(name); ok && f.DateFormat != "" {
		format = f.DateFormat
	}
	return name, format
}

// modifiedDateField returns the modified date field name and its date format.
func (s *Service) modifiedDateField(ct schema.ContentType) (string, string) {
	name := s.settings.ModifiedDateField
	if f, ok := ct.Fields.ModifiedDateField(); ok {
		name = f.Name
	}
	format := s.settings.DateFormat
	if f, ok := ct.Fields.FindByName(name); ok && f.DateFormat != "" {
		format = f.DateFormat
	}
	return name, format
}

// sanitize reads a presentation field. Unset values fall back to def; set
// values that are not strings are invalid.
func sanitize(md metadata.Map, field, def string) models.SanitizedText {
	v, _ := md.Get(field)
	if !v.Truthy() {
		return models.Text(def)
	}
	if s, ok := v.Str(); ok {
		return models.Text(s)
	}
	return models.Invalid()
}

// draftStatus reads the first draft field of the content type, falling back
// to a boolean "draft" key.
func draftStatus(ct schema.ContentType, md metadata.Map) bool {
	if chains := ct.Fields.FindByTypeDeep(schema.TypeDraft); len(chains) > 0 {
		if v, ok := md.Find(schema.Names(chains[0])); ok {
			if b, ok := v.Bool(); ok {
				return b
			}
			if s, ok := v.Str(); ok {
				return cast.ToBool(s)
			}
		}
	}
	b, _ := md["draft"].Bool()
	return b
}

// fieldValues reads the first field of type typ at any depth. A string is
// split on commas; a list is used element by element.
func fieldValues(ct schema.ContentType, md metadata.Map, typ string) []string {
	chains := ct.Fields.FindByTypeDeep(typ)
	if len(chains) == 0 || len(chains[0]) == 0 {
		return []string{}
	}
	v, ok := md.Find(schema.Names(chains[0]))
	if !ok {
		return []string{}
	}
	return v.Strings(splitComma)
}

func splitComma(s string) []string {
	return strings.Split(s, ",")
}

func relWorkspacePath(root, filePath string) string {
	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		return storage.NormalizePath(filePath)
	}
	return filepath.ToSlash(rel)
}
