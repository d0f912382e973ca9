package pandda

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/pandda/lock"
	"github.com/xraph/pandda/plugin"
	"github.com/xraph/pandda/store"
	"github.com/xraph/pandda/validate"
)

// DefaultLockTimeout bounds how long a workflow waits for its locks.
const DefaultLockTimeout = 10 * time.Second

// Engine is the provisioning engine. It is safe for concurrent use.
type Engine struct {
	store     store.Store
	plugins   *plugin.Registry
	logger    *slog.Logger
	validator *validate.Validator
	locks     *lock.Manager

	// Configuration
	now         func() time.Time
	location    *time.Location
	lockTimeout time.Duration
	undoTimeout time.Duration
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		locks:       lock.NewManager(),
		now:         time.Now,
		location:    time.Local,
		lockTimeout: DefaultLockTimeout,
		undoTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.validator == nil {
		e.validator = validate.New(
			validate.WithClock(e.now),
			validate.WithLocation(e.location),
		)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock sets the engine's notion of the current time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the calendar used for due-date checks.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.location = loc }
}

// WithLockTimeout bounds how long a workflow waits for its locks.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lockTimeout = d }
}

// WithUndoTimeout bounds how long compensation may run once started.
func WithUndoTimeout(d time.Duration) Option {
	return func(e *Engine) { e.undoTimeout = d }
}

// WithValidator replaces the default constraint validator.
func WithValidator(v *validate.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// Start migrates the store and initialises plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("pandda started",
		"lock_timeout", e.lockTimeout,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Now returns the engine's current time.
func (e *Engine) Now() time.Time { return e.now() }
