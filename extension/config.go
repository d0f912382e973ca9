package extension

import (
	"time"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/api"
	"github.com/xraph/pandda/store/driver"
)

// Config holds the Pandda extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.pandda" or "pandda" keys).
type Config struct {
	// DisableRoutes skips building the HTTP handler.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for pandda routes (default: "/pandda").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// LockTimeout bounds how long a provisioning workflow waits for its
	// locks (default: 10s).
	LockTimeout time.Duration `json:"lock_timeout" mapstructure:"lock_timeout" yaml:"lock_timeout"`

	// UndoTimeout bounds how long compensation may run (default: 30s).
	UndoTimeout time.Duration `json:"undo_timeout" mapstructure:"undo_timeout" yaml:"undo_timeout"`

	// Timezone is the IANA name of the calendar due dates are checked
	// against (default: America/Sao_Paulo).
	Timezone string `json:"timezone" mapstructure:"timezone" yaml:"timezone"`

	// JWTSecret signs admin bearer tokens. Required unless DisableRoutes.
	JWTSecret string `json:"jwt_secret" mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// TokenTTL is how long an issued token stays valid (default: 12h).
	TokenTTL time.Duration `json:"token_ttl" mapstructure:"token_ttl" yaml:"token_ttl"`

	// Store selects the persistence backend. Ignored when WithStore is used.
	Store driver.Config `json:"store" mapstructure:"store" yaml:"store"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:    "/pandda",
		LockTimeout: pandda.DefaultLockTimeout,
		UndoTimeout: 30 * time.Second,
		Timezone:    "America/Sao_Paulo",
		TokenTTL:    api.DefaultTokenTTL,
		Store:       driver.Config{Driver: driver.Memory},
	}
}

// Location loads the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
