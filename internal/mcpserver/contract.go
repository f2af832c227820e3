package mcpserver

import (
	"github.com/starford/pageindex/internal/models"
)

// PageFormatContract describes the page records returned by the tools.
const PageFormatContract = `# Page Record Format

Every indexed page is one JSON object. It starts from the file's front matter
(every key as written) and overlays the derived fields below.

## Derived fields

| Key | Meaning |
|-----|---------|
| ` + "`title`" + ` | Title from front matter; the file name when unset; ` + "`<invalid title>`" + ` when not a string |
| ` + "`description`" + ` | Description; empty when unset; ` + "`<invalid title>`" + ` when not a string |
| ` + "`slug`" + ` | Explicit slug, or one generated from the title and the content type template |
| ` + "`date`" + ` | Raw publish date value, empty when unset |
| ` + "`fmFilePath`" + ` | Absolute path of the content file |
| ` + "`fmRelFileWsPath`" + ` | Path relative to the workspace root; use it with get_page |
| ` + "`fmFolder`" + ` | Title of the content folder the file was found in |
| ` + "`fmDraft`" + ` | Draft status |
| ` + "`fmPublished`" + `, ` + "`fmYear`" + ` | Publish time in epoch milliseconds and its year |
| ` + "`fmModified`" + ` | Modified time in epoch milliseconds |
| ` + "`fmTags`" + `, ` + "`fmCategories`" + ` | Lists, split on commas when written as a string |
| ` + "`fmPreviewImage`" + ` | Preview image URL, empty when none resolves |
| ` + "`fmContentType`" + ` | Content type name; see the ` + "`" + ContentTypesURI + "`" + ` resource |
| ` + "`fmLocale`" + `, ` + "`fmDefaultLocale`" + `, ` + "`fmTranslations`" + ` | Locale annotation |
| ` + "`fmBody`" + ` | Body after the front matter (get_page only) |

## Rules

1. Files without front matter are not indexed.
2. A page is reused from the cache while its file's modification time is unchanged.
3. Paths use forward slashes.
`

// pageSummary is the list_pages projection of a page. It leaves out the body
// and raw front matter.
type pageSummary struct {
	Path        string   `json:"path"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Slug        string   `json:"slug"`
	Folder      string   `json:"folder"`
	ContentType string   `json:"contentType"`
	Draft       bool     `json:"draft"`
	Published   *int64   `json:"published,omitempty"`
	Modified    int64    `json:"modified"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
	Locale      string   `json:"locale,omitempty"`
	Preview     string   `json:"preview,omitempty"`
}

func summarize(p models.Page) pageSummary {
	return pageSummary{
		Path:        p.RelativeWorkspacePath,
		Title:       p.Title.String(),
		Description: p.Description.String(),
		Slug:        p.Slug,
		Folder:      p.FolderTitle,
		ContentType: p.ContentTypeName,
		Draft:       p.Draft,
		Published:   p.PublishedTime,
		Modified:    p.ModifiedTime,
		Tags:        p.Tags,
		Categories:  p.Categories,
		Locale:      p.Locale,
		Preview:     p.PreviewImage,
	}
}
