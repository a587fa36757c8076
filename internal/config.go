package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/creasty/defaults"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/granola-sync/internal/filename"
	"github.com/starford/granola-sync/internal/frontmatter"
	"github.com/starford/granola-sync/internal/granola"
	"github.com/starford/granola-sync/internal/metadata"
	"github.com/starford/granola-sync/internal/reconcile"
	"github.com/starford/granola-sync/internal/syncer"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Granola   GranolaConfig     `yaml:"granola"`
	Sync      SyncConfig        `yaml:"sync"`
	DailyNote DailyNoteConfig   `yaml:"daily_note"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Granola.Validate(); err != nil {
		return fmt.Errorf("granola: %w", err)
	}
	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := c.DailyNote.Validate(); err != nil {
		return fmt.Errorf("daily_note: %w", err)
	}
	return nil
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
	Port int `yaml:"port" default:"8080"`
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

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path" default:"./vault"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the vault index database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" default:"./granola-sync.db"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" default:"disabled"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// GranolaConfig configures the remote API client.
type GranolaConfig struct {
	// CredentialsPath overrides the per-OS supabase.json lookup.
	CredentialsPath   string        `yaml:"credentials_path"`
	BaseURL           string        `yaml:"base_url" default:"https://api.granola.ai"`
	PageSize          int           `yaml:"page_size" default:"100"`
	MaxDocuments      int           `yaml:"max_documents"`
	RequestsPerSecond float64       `yaml:"requests_per_second" default:"5"`
	Timeout           time.Duration `yaml:"timeout" default:"30s"`
	CDNHosts          []string      `yaml:"cdn_hosts"`
}

// Validate validates the client configuration.
func (c *GranolaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&c.MaxDocuments, validation.Min(0)),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// Client returns the granola client configuration.
func (c *GranolaConfig) Client() granola.Config {
	return granola.Config{
		BaseURL:           c.BaseURL,
		CredentialsPath:   c.CredentialsPath,
		PageSize:          c.PageSize,
		MaxDocuments:      c.MaxDocuments,
		RequestsPerSecond: c.RequestsPerSecond,
		CDNHosts:          c.CDNHosts,
	}
}

// SyncConfig holds the note generation settings.
type SyncConfig struct {
	Directory            string                     `yaml:"directory" default:"Meetings"`
	FilenameTemplate     string                     `yaml:"filename_template" default:"{created_date}_{title}"`
	DateFormat           string                     `yaml:"date_format" default:"YYYY-MM-DD"`
	Separator            string                     `yaml:"separator" default:"_"`
	SlashReplacement     string                     `yaml:"slash_replacement" default:"-"`
	Collision            string                     `yaml:"collision" default:"timestamp"`
	SkipExisting         bool                       `yaml:"skip_existing" default:"true"`
	IncludeMyNotes       bool                       `yaml:"include_my_notes" default:"true"`
	IncludeEnhancedNotes bool                       `yaml:"include_enhanced_notes" default:"true"`
	IncludeTranscript    bool                       `yaml:"include_transcript"`
	DownloadAttachments  bool                       `yaml:"download_attachments"`
	AttachmentsDirectory string                     `yaml:"attachments_directory" default:"attachments"`
	AttendeeFilter       string                     `yaml:"attendee_filter" default:"all"`
	SelfName             string                     `yaml:"self_name"`
	AutoDetectSelf       bool                       `yaml:"auto_detect_self" default:"true"`
	DetectPlatform       bool                       `yaml:"detect_platform" default:"true"`
	ConvertUmlauts       bool                       `yaml:"convert_umlauts" default:"true"`
	IncludeEmails        bool                       `yaml:"include_emails"`
	Category             string                     `yaml:"category" default:"[[Meetings]]"`
	Tags                 []string                   `yaml:"tags"`
	Fields               []frontmatter.FieldSetting `yaml:"fields"`
	// Interval between automatic runs in serve mode; 0 disables them.
	Interval    time.Duration `yaml:"interval"`
	TimeZone    string        `yaml:"time_zone"`
	StatusReset time.Duration `yaml:"status_reset" default:"5s"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Directory, validation.Required, validation.By(relativeDir)),
		validation.Field(&c.FilenameTemplate, validation.Required),
		validation.Field(&c.DateFormat, validation.Required),
		validation.Field(&c.Collision, validation.Required,
			validation.In(string(reconcile.CollisionSkip), string(reconcile.CollisionTimestamp))),
		validation.Field(&c.AttachmentsDirectory, validation.By(relativeDir)),
		validation.Field(&c.AttendeeFilter, validation.Required, validation.By(func(v any) error {
			if !metadata.ResponseFilter(v.(string)).Valid() {
				return errors.New("unknown attendee filter")
			}
			return nil
		})),
		validation.Field(&c.Fields, validation.By(func(any) error {
			return frontmatter.ValidateFields(c.Fields)
		})),
		validation.Field(&c.Interval, validation.Min(time.Duration(0))),
		validation.Field(&c.TimeZone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
		validation.Field(&c.StatusReset, validation.Min(time.Duration(0))),
	)
}

// Location returns the configured time zone, or the local one when unset.
func (c *SyncConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// Reconcile returns the engine options. Fields falls back to every field
// in default order.
func (c *SyncConfig) Reconcile() (reconcile.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return reconcile.Options{}, err
	}
	fields := c.Fields
	if len(fields) == 0 {
		fields = frontmatter.DefaultFields()
	}
	return reconcile.Options{
		Directory: c.Directory,
		Filename: filename.Options{
			Template:         c.FilenameTemplate,
			DateFormat:       c.DateFormat,
			Separator:        c.Separator,
			SlashReplacement: c.SlashReplacement,
			Location:         loc,
		},
		Collision:            reconcile.CollisionPolicy(c.Collision),
		SkipExisting:         c.SkipExisting,
		IncludeMyNotes:       c.IncludeMyNotes,
		IncludeEnhancedNotes: c.IncludeEnhancedNotes,
		IncludeTranscript:    c.IncludeTranscript,
		DownloadAttachments:  c.DownloadAttachments,
		AttachmentsDirectory: c.AttachmentsDirectory,
		Frontmatter: frontmatter.Options{
			Fields:         fields,
			Filter:         metadata.ResponseFilter(c.AttendeeFilter),
			SelfName:       c.SelfName,
			AutoDetectSelf: c.AutoDetectSelf,
			DetectPlatform: c.DetectPlatform,
			ConvertUmlauts: c.ConvertUmlauts,
			IncludeEmails:  c.IncludeEmails,
			Category:       c.Category,
			Tags:           c.Tags,
			Location:       loc,
		},
		Location: loc,
	}, nil
}

// DailyNoteConfig controls the meetings section of daily notes.
type DailyNoteConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Directory  string `yaml:"directory"`
	DateFormat string `yaml:"date_format" default:"YYYY-MM-DD"`
	Heading    string `yaml:"heading" default:"## Meetings"`
}

// Validate validates the daily note configuration.
func (c *DailyNoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Directory, validation.By(relativeDir)),
		validation.Field(&c.DateFormat, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Heading, validation.When(c.Enabled, validation.Required),
			validation.By(func(any) error {
				if c.Heading != "" && !strings.HasPrefix(c.Heading, "#") {
					return errors.New("must be a markdown heading")
				}
				return nil
			})),
	)
}

// Syncer assembles the run configuration.
func (c *Config) Syncer() (syncer.Config, error) {
	opts, err := c.Sync.Reconcile()
	if err != nil {
		return syncer.Config{}, fmt.Errorf("sync: %w", err)
	}
	return syncer.Config{
		Reconcile: opts,
		DailyNote: syncer.DailyNoteConfig{
			Enabled:    c.DailyNote.Enabled,
			Directory:  c.DailyNote.Directory,
			DateFormat: c.DailyNote.DateFormat,
			Heading:    c.DailyNote.Heading,
		},
		StatusReset: c.Sync.StatusReset,
	}, nil
}

// relativeDir rejects absolute vault paths and paths leaving the vault.
func relativeDir(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "/") || strings.Contains(s, `\`) {
		return errors.New("must be relative to the vault")
	}
	clean := path.Clean(s)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("must stay inside the vault")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	cfg := &Config{
		App: ApplicationConfig{LogLevel: slog.LevelInfo},
	}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}
