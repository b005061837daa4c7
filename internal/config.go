package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BackendFS    = "fs"
	BackendDiskv = "diskv"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Journal JournalConfig     `yaml:"journal"`
	Index   IndexConfig       `yaml:"index"`
	Auth    AuthConfig        `yaml:"auth"`
	Hooks   HooksConfig       `yaml:"hooks"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	if err := c.Hooks.Validate(); err != nil {
		return err
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
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns the HTTP listen address. An empty host binds all
// interfaces.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// JournalConfig locates the canonical journal directory and selects the
// storage backend that manages it.
type JournalConfig struct {
	Path    string `yaml:"path"`
	Backend string `yaml:"backend"`
	Watch   bool   `yaml:"watch"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFS
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Backend, validation.In(BackendFS, BackendDiskv)),
	)
}

// IndexConfig holds the derived-index database location.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// ResolvedPath returns the index database path, defaulting to a hidden
// directory inside the journal so the whole journal stays one tree.
func (c *IndexConfig) ResolvedPath(journalPath string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(journalPath, ".index", "dagaz.db")
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

// HooksConfig gates the post-commit hooks. A nil Enabled leaves the
// hook's own default in force.
type HooksConfig struct {
	Broadcast HookToggle     `yaml:"broadcast"`
	AuditLog  AuditLogConfig `yaml:"audit_log"`
}

// Validate validates the hooks configuration.
func (c *HooksConfig) Validate() error {
	return c.AuditLog.Validate()
}

// HookToggle overrides a hook's default enablement when set.
type HookToggle struct {
	Enabled *bool `yaml:"enabled"`
}

// AuditLogConfig configures the audit-log hook and its file rotation.
type AuditLogConfig struct {
	Enabled    *bool  `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Validate validates the audit-log configuration.
func (c *AuditLogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
	)
}

// ResolvedPath returns the audit-log file path, defaulting to a hidden
// directory inside the journal next to the index.
func (c *AuditLogConfig) ResolvedPath(journalPath string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(journalPath, ".logs", "audit.jsonl")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Journal: JournalConfig{
			Path:    "./journal",
			Backend: BackendFS,
			Watch:   true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Hooks: HooksConfig{
			AuditLog: AuditLogConfig{
				MaxSizeMB:  10,
				MaxBackups: 5,
			},
		},
	}
}
