// Package extension provides the Forge extension adapter for Pandda.
//
// It implements the forge.Extension interface to integrate the
// provisioning engine into a Forge application with DI registration and
// lifecycle management. The engine and, unless routes are disabled, the
// HTTP handler are provided to the container.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.pandda" or "pandda" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/api"
	"github.com/xraph/pandda/store"
	"github.com/xraph/pandda/store/driver"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "pandda"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Subscription provisioning back office"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Pandda as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *pandda.Engine
	handler    *api.Handler
	store      store.Store
	logger     *slog.Logger
	engineOpts []pandda.Option
	apiOpts    []api.Option
}

// New creates a new Pandda Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine. Nil until Register is called.
func (e *Extension) Engine() *pandda.Engine { return e.engine }

// Handler returns the HTTP handler. Nil until Register is called, and
// when routes are disabled.
func (e *Extension) Handler() *api.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration, opens the
// store, builds the engine and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.build(context.Background()); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*pandda.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	if e.handler == nil {
		return nil
	}
	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	})
}

// build opens the store when none was given and wires the engine and the
// handler from the resolved config.
func (e *Extension) build(ctx context.Context) error {
	if e.store == nil {
		st, err := driver.Open(ctx, e.config.Store)
		if err != nil {
			return fmt.Errorf("pandda: open store: %w", err)
		}
		e.store = st
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}
	e.engine = pandda.New(e.store, opts...)

	if e.config.DisableRoutes {
		return nil
	}
	if e.config.JWTSecret == "" {
		return errors.New("pandda: jwt_secret is required when routes are enabled")
	}
	tokens := api.NewTokens(e.config.JWTSecret, e.config.TokenTTL, e.engine.Now)
	apiOpts := []api.Option{api.WithBasePath(e.config.BasePath)}
	if e.logger != nil {
		apiOpts = append(apiOpts, api.WithLogger(e.logger))
	}
	e.handler = api.New(e.engine, tokens, append(apiOpts, e.apiOpts...)...)
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("pandda: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("pandda: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs pandda.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]pandda.Option, error) {
	opts := make([]pandda.Option, 0, len(e.engineOpts)+4)

	loc, err := e.config.Location()
	if err != nil {
		return nil, fmt.Errorf("pandda: timezone %q: %w", e.config.Timezone, err)
	}
	opts = append(opts,
		pandda.WithLocation(loc),
		pandda.WithLockTimeout(e.config.LockTimeout),
		pandda.WithUndoTimeout(e.config.UndoTimeout),
	)
	if e.logger != nil {
		opts = append(opts, pandda.WithLogger(e.logger))
	}

	// Pass-through options win over config.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("pandda: configuration is required but not found in config files; " +
				"ensure 'extensions.pandda' or 'pandda' key exists in your config")
		}
		e.config = MergeWithDefaults(programmaticConfig)
	} else {
		e.config = MergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("pandda: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("lock_timeout", e.config.LockTimeout),
		forge.F("undo_timeout", e.config.UndoTimeout),
		forge.F("timezone", e.config.Timezone),
		forge.F("store_driver", e.config.Store.Driver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.pandda", "pandda"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("pandda: loaded config from file", forge.F("key", key))
			return cfg, true
		}
		e.Logger().Warn("pandda: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// MergeWithDefaults fills zero-valued fields with defaults.
func MergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = defaults.LockTimeout
	}
	if cfg.UndoTimeout == 0 {
		cfg.UndoTimeout = defaults.UndoTimeout
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaults.Timezone
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = defaults.Store.Driver
	}
	return cfg
}

// MergeConfigurations merges file config with programmatic options.
// File config takes precedence for most fields; programmatic values fill
// gaps and programmatic bool flags override when true.
func MergeConfigurations(fileConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		fileConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		fileConfig.DisableMigrate = true
	}

	if fileConfig.BasePath == "" {
		fileConfig.BasePath = programmaticConfig.BasePath
	}
	if fileConfig.Timezone == "" {
		fileConfig.Timezone = programmaticConfig.Timezone
	}
	if fileConfig.JWTSecret == "" {
		fileConfig.JWTSecret = programmaticConfig.JWTSecret
	}
	if fileConfig.Store.Driver == "" {
		fileConfig.Store = programmaticConfig.Store
	}

	if fileConfig.LockTimeout == 0 {
		fileConfig.LockTimeout = programmaticConfig.LockTimeout
	}
	if fileConfig.UndoTimeout == 0 {
		fileConfig.UndoTimeout = programmaticConfig.UndoTimeout
	}
	if fileConfig.TokenTTL == 0 {
		fileConfig.TokenTTL = programmaticConfig.TokenTTL
	}

	return MergeWithDefaults(fileConfig)
}
