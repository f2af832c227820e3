package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/pageindex/internal/i18n"
	"github.com/starford/pageindex/internal/pages"
	"github.com/starford/pageindex/internal/schema"
	"github.com/starford/pageindex/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Cache drivers.
const (
	CacheDriverSQLite = "sqlite"
	CacheDriverFile   = "file"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Content   ContentConfig     `yaml:"content"`
	Cache     CacheConfig       `yaml:"cache"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	if err := c.Content.Validate(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WorkspaceConfig describes the site being indexed.
type WorkspaceConfig struct {
	Root         string         `yaml:"root"`
	StaticFolder string         `yaml:"static_folder"`
	FileTypes    []string       `yaml:"file_types"`
	Folders      []FolderConfig `yaml:"folders"`
	I18n         []LocaleConfig `yaml:"i18n"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Folders),
		validation.Field(&c.I18n, validation.By(singleDefaultLocale)),
	)
}

// StorageFolders converts the folder list for storage.WithFolders.
func (c *WorkspaceConfig) StorageFolders() []storage.FolderConfig {
	out := make([]storage.FolderConfig, 0, len(c.Folders))
	for _, f := range c.Folders {
		out = append(out, storage.FolderConfig{Title: f.Title, Path: f.Path})
	}
	return out
}

// Locales resolves the locale roots against root.
func (c *WorkspaceConfig) Locales(root string) []i18n.Locale {
	out := make([]i18n.Locale, 0, len(c.I18n))
	for _, l := range c.I18n {
		p := l.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		out = append(out, i18n.Locale{Code: l.Code, Title: l.Title, Path: p, Default: l.Default})
	}
	return out
}

// FolderConfig is a content folder relative to the workspace root.
type FolderConfig struct {
	Title string `yaml:"title"`
	Path  string `yaml:"path"`
}

// Validate validates the folder.
func (c FolderConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Title, validation.Required),
	)
}

// LocaleConfig is one locale root.
type LocaleConfig struct {
	Code    string `yaml:"code"`
	Title   string `yaml:"title"`
	Path    string `yaml:"path"`
	Default bool   `yaml:"default"`
}

// Validate validates the locale.
func (c LocaleConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Code, validation.Required),
		validation.Field(&c.Path, validation.Required),
	)
}

func singleDefaultLocale(value any) error {
	locales, _ := value.([]LocaleConfig)
	n := 0
	for _, l := range locales {
		if l.Default {
			n++
		}
	}
	if n > 1 {
		return errors.New("at most one locale can be the default")
	}
	return nil
}

// ContentConfig holds content defaults and content types.
type ContentConfig struct {
	DateFormat         string               `yaml:"date_format"`
	TitleField         string               `yaml:"title_field"`
	DescriptionField   string               `yaml:"description_field"`
	PublishDateField   string               `yaml:"publish_date_field"`
	ModifiedDateField  string               `yaml:"modified_date_field"`
	DefaultContentType string               `yaml:"default_content_type"`
	SlugPrefix         string               `yaml:"slug_prefix"`
	SlugSuffix         string               `yaml:"slug_suffix"`
	ContentTypes       []schema.ContentType `yaml:"content_types"`
	ContentTypesFile   string               `yaml:"content_types_file"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ContentTypes),
	)
}

// Settings returns the indexer settings for this configuration.
func (c *ContentConfig) Settings() pages.Settings {
	return pages.Settings{
		DateFormat:        c.DateFormat,
		TitleField:        c.TitleField,
		DescriptionField:  c.DescriptionField,
		PublishDateField:  c.PublishDateField,
		ModifiedDateField: c.ModifiedDateField,
	}
}

// CacheConfig selects the durable cache backend.
//
// Driver "sqlite" (default) stores snapshots in a SQLite database at Path;
// "file" stores them as files in the directory at Path.
type CacheConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = CacheDriverSQLite
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(CacheDriverSQLite, CacheDriverFile)),
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	def := pages.DefaultSettings()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Workspace: WorkspaceConfig{
			Root:      ".",
			FileTypes: storage.DefaultFileTypes,
		},
		Content: ContentConfig{
			TitleField:        def.TitleField,
			DescriptionField:  def.DescriptionField,
			PublishDateField:  def.PublishDateField,
			ModifiedDateField: def.ModifiedDateField,
		},
		Cache: CacheConfig{
			Driver: CacheDriverSQLite,
			Path:   "./.pageindex/cache.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
