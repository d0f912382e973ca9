package extension

import (
	"log/slog"
	"time"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/api"
	"github.com/xraph/pandda/plugin"
	"github.com/xraph/pandda/store"
	"github.com/xraph/pandda/store/driver"
)

// Option configures the Pandda Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine. It takes precedence over the
// configured driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithStoreConfig selects the backend the extension opens.
func WithStoreConfig(cfg driver.Config) Option {
	return func(e *Extension) { e.config.Store = cfg }
}

// WithEngineOption passes a pandda.Option through to the underlying engine.
func WithEngineOption(opt pandda.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithAPIOption passes an api.Option through to the HTTP handler.
func WithAPIOption(opt api.Option) Option {
	return func(e *Extension) {
		e.apiOpts = append(e.apiOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, pandda.WithPlugin(p))
	}
}

// WithLogger sets the logger handed to the engine and the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) { e.logger = logger }
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes skips building the HTTP handler.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for pandda routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithJWTSecret sets the key admin tokens are signed with.
func WithJWTSecret(secret string) Option {
	return func(e *Extension) { e.config.JWTSecret = secret }
}

// WithLockTimeout bounds how long a workflow waits for its locks.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.LockTimeout = d }
}

// WithUndoTimeout bounds how long compensation may run.
func WithUndoTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.UndoTimeout = d }
}

// WithTimezone sets the IANA timezone due dates are checked against.
func WithTimezone(name string) Option {
	return func(e *Extension) { e.config.Timezone = name }
}
