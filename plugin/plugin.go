// Package plugin provides lifecycle hooks into the Pandda engine.
// A plugin implements Plugin plus any subset of the hook interfaces below;
// the registry discovers which at registration time.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/subscription"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Provisioning hooks
// ──────────────────────────────────────────────────

// OnCustomerProvisioned is called after a create workflow commits.
type OnCustomerProvisioned interface {
	Plugin
	OnCustomerProvisioned(ctx context.Context, c *customer.Customer, sub *subscription.Subscription, aps []*accesspoint.AccessPoint) error
}

// OnCustomerReplaced is called after a replace workflow commits.
type OnCustomerReplaced interface {
	Plugin
	OnCustomerReplaced(ctx context.Context, c *customer.Customer, sub *subscription.Subscription, aps []*accesspoint.AccessPoint) error
}

// OnProvisioningCompensated is called after a workflow failed and its
// writes were undone.
type OnProvisioningCompensated interface {
	Plugin
	OnProvisioningCompensated(ctx context.Context, workflow string, cause error) error
}

// OnFatalInconsistency is called when undoing a failed workflow failed.
type OnFatalInconsistency interface {
	Plugin
	OnFatalInconsistency(ctx context.Context, workflow string, err error) error
}

// ──────────────────────────────────────────────────
// Back-office hooks
// ──────────────────────────────────────────────────

// OnCustomerDeleted is called after a customer and its records are removed.
type OnCustomerDeleted interface {
	Plugin
	OnCustomerDeleted(ctx context.Context, c *customer.Customer) error
}

// OnCustomerBlocked is called when a customer is blocked or unblocked.
type OnCustomerBlocked interface {
	Plugin
	OnCustomerBlocked(ctx context.Context, c *customer.Customer, blocked bool) error
}

// OnSubscriptionRenewed is called after a due date moves forward.
type OnSubscriptionRenewed interface {
	Plugin
	OnSubscriptionRenewed(ctx context.Context, sub *subscription.Subscription, previousDue time.Time) error
}
