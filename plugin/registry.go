package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/subscription"
)

// DefaultHookTimeout bounds a single plugin call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are cached by type at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                    []OnInit
	onShutdown                []OnShutdown
	onCustomerProvisioned     []OnCustomerProvisioned
	onCustomerReplaced        []OnCustomerReplaced
	onProvisioningCompensated []OnProvisioningCompensated
	onFatalInconsistency      []OnFatalInconsistency
	onCustomerDeleted         []OnCustomerDeleted
	onCustomerBlocked         []OnCustomerBlocked
	onSubscriptionRenewed     []OnSubscriptionRenewed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets how long a single hook may run.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its hooks.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnCustomerProvisioned); ok {
		r.onCustomerProvisioned = append(r.onCustomerProvisioned, v)
		hooks = append(hooks, "OnCustomerProvisioned")
	}
	if v, ok := p.(OnCustomerReplaced); ok {
		r.onCustomerReplaced = append(r.onCustomerReplaced, v)
		hooks = append(hooks, "OnCustomerReplaced")
	}
	if v, ok := p.(OnProvisioningCompensated); ok {
		r.onProvisioningCompensated = append(r.onProvisioningCompensated, v)
		hooks = append(hooks, "OnProvisioningCompensated")
	}
	if v, ok := p.(OnFatalInconsistency); ok {
		r.onFatalInconsistency = append(r.onFatalInconsistency, v)
		hooks = append(hooks, "OnFatalInconsistency")
	}
	if v, ok := p.(OnCustomerDeleted); ok {
		r.onCustomerDeleted = append(r.onCustomerDeleted, v)
		hooks = append(hooks, "OnCustomerDeleted")
	}
	if v, ok := p.(OnCustomerBlocked); ok {
		r.onCustomerBlocked = append(r.onCustomerBlocked, v)
		hooks = append(hooks, "OnCustomerBlocked")
	}
	if v, ok := p.(OnSubscriptionRenewed); ok {
		r.onSubscriptionRenewed = append(r.onSubscriptionRenewed, v)
		hooks = append(hooks, "OnSubscriptionRenewed")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for each plugin in hooks. Failures are logged and never
// reach the caller.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, hooks func(*Registry) []T, fn func(T) error) {
	r.mu.RLock()
	plugins := hooks(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(ctx, r, "OnInit", func(r *Registry) []OnInit { return r.onInit },
		func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", func(r *Registry) []OnShutdown { return r.onShutdown },
		func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitCustomerProvisioned emits a customer provisioned event.
func (r *Registry) EmitCustomerProvisioned(ctx context.Context, c *customer.Customer, sub *subscription.Subscription, aps []*accesspoint.AccessPoint) {
	emit(ctx, r, "OnCustomerProvisioned", func(r *Registry) []OnCustomerProvisioned { return r.onCustomerProvisioned },
		func(p OnCustomerProvisioned) error { return p.OnCustomerProvisioned(ctx, c, sub, aps) })
}

// EmitCustomerReplaced emits a customer replaced event.
func (r *Registry) EmitCustomerReplaced(ctx context.Context, c *customer.Customer, sub *subscription.Subscription, aps []*accesspoint.AccessPoint) {
	emit(ctx, r, "OnCustomerReplaced", func(r *Registry) []OnCustomerReplaced { return r.onCustomerReplaced },
		func(p OnCustomerReplaced) error { return p.OnCustomerReplaced(ctx, c, sub, aps) })
}

// EmitProvisioningCompensated emits a compensation event.
func (r *Registry) EmitProvisioningCompensated(ctx context.Context, workflow string, cause error) {
	emit(ctx, r, "OnProvisioningCompensated", func(r *Registry) []OnProvisioningCompensated { return r.onProvisioningCompensated },
		func(p OnProvisioningCompensated) error { return p.OnProvisioningCompensated(ctx, workflow, cause) })
}

// EmitFatalInconsistency emits a fatal inconsistency event.
func (r *Registry) EmitFatalInconsistency(ctx context.Context, workflow string, err error) {
	emit(ctx, r, "OnFatalInconsistency", func(r *Registry) []OnFatalInconsistency { return r.onFatalInconsistency },
		func(p OnFatalInconsistency) error { return p.OnFatalInconsistency(ctx, workflow, err) })
}

// EmitCustomerDeleted emits a customer deleted event.
func (r *Registry) EmitCustomerDeleted(ctx context.Context, c *customer.Customer) {
	emit(ctx, r, "OnCustomerDeleted", func(r *Registry) []OnCustomerDeleted { return r.onCustomerDeleted },
		func(p OnCustomerDeleted) error { return p.OnCustomerDeleted(ctx, c) })
}

// EmitCustomerBlocked emits a block or unblock event.
func (r *Registry) EmitCustomerBlocked(ctx context.Context, c *customer.Customer, blocked bool) {
	emit(ctx, r, "OnCustomerBlocked", func(r *Registry) []OnCustomerBlocked { return r.onCustomerBlocked },
		func(p OnCustomerBlocked) error { return p.OnCustomerBlocked(ctx, c, blocked) })
}

// EmitSubscriptionRenewed emits a renewal event.
func (r *Registry) EmitSubscriptionRenewed(ctx context.Context, sub *subscription.Subscription, previousDue time.Time) {
	emit(ctx, r, "OnSubscriptionRenewed", func(r *Registry) []OnSubscriptionRenewed { return r.onSubscriptionRenewed },
		func(p OnSubscriptionRenewed) error { return p.OnSubscriptionRenewed(ctx, sub, previousDue) })
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block a provisioning workflow.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
