package pandda

import (
	"context"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/app"
	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/renewal"
	"github.com/xraph/pandda/subscription"
)

// ──────────────────────────────────────────────────
// Customer Management
// ──────────────────────────────────────────────────

// GetCustomer retrieves a customer by ID.
func (e *Engine) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	return e.store.GetCustomer(ctx, customerID)
}

// ListCustomers lists customers.
func (e *Engine) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	return e.store.ListCustomers(ctx, opts)
}

// CustomerAccessPoints lists a customer's access points.
func (e *Engine) CustomerAccessPoints(ctx context.Context, customerID id.CustomerID) ([]*accesspoint.AccessPoint, error) {
	return e.store.ListAccessPoints(ctx, accesspoint.ListOpts{CustomerID: customerID})
}

// SetBlocked blocks or unblocks a customer. Any admin may block; only a
// master may unblock.
func (e *Engine) SetBlocked(ctx context.Context, actor Actor, customerID id.CustomerID, blocked bool) (*customer.Customer, error) {
	if !blocked {
		if err := actor.requireMaster(); err != nil {
			return nil, err
		}
	}

	c, err := e.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c.Blocked == blocked {
		return c, nil
	}

	c.Blocked = blocked
	c.UpdatedAt = e.now().UTC()
	if err := e.store.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}

	action := audit.ActionBlockCustomer
	if !blocked {
		action = audit.ActionUnblockCustomer
	}
	e.recordActivity(ctx, actor, action, c.ID.String(), c.Name)
	e.plugins.EmitCustomerBlocked(ctx, c, blocked)

	return c, nil
}

// DeleteCustomer removes a customer with its subscriptions and access
// points. Master only. It holds the same server and app locks a
// provisioning workflow on this customer would hold.
func (e *Engine) DeleteCustomer(ctx context.Context, actor Actor, customerID id.CustomerID) error {
	if err := actor.requireMaster(); err != nil {
		return err
	}

	cur, err := e.store.GetCustomer(ctx, customerID)
	if err != nil {
		return readError("get customer", err)
	}
	aps, err := e.store.ListAccessPoints(ctx, accesspoint.ListOpts{CustomerID: cur.ID})
	if err != nil {
		return &PersistenceError{Op: "list access points", Err: err}
	}

	apps := make(map[id.AppID]*app.App)
	for _, ap := range aps {
		if _, seen := apps[ap.AppID]; seen {
			continue
		}
		a, err := e.store.GetApp(ctx, ap.AppID)
		switch {
		case IsNotFound(err):
			continue
		case err != nil:
			return &PersistenceError{Op: "get app", Err: err}
		}
		apps[a.ID] = a
	}

	release, err := e.locks.Acquire(ctx, e.lockTimeout, lockKeys(apps, aps, cur.AssignedServers())...)
	if err != nil {
		return err
	}
	defer release()

	c, err := e.store.DeleteCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	e.recordActivity(ctx, actor, audit.ActionDeleteCustomer, c.ID.String(), c.Name)
	e.plugins.EmitCustomerDeleted(ctx, c)

	e.logger.Info("customer deleted", "customer_id", c.ID, "actor", actor.ID)
	return nil
}

// ──────────────────────────────────────────────────
// Subscription Management
// ──────────────────────────────────────────────────

// GetSubscription retrieves a subscription by ID.
func (e *Engine) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return e.store.GetSubscription(ctx, subID)
}

// ListSubscriptions lists subscriptions.
func (e *Engine) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return e.store.ListSubscriptions(ctx, opts)
}

// RenewSubscription moves the due date forward by the plan's duration.
func (e *Engine) RenewSubscription(ctx context.Context, actor Actor, subID id.SubscriptionID) (*subscription.Subscription, error) {
	sub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	p, err := e.store.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	previous := sub.DueDate
	sub.DueDate = renewal.Renew(sub, p.DurationMonths)
	sub.UpdatedAt = e.now().UTC()

	if err := e.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	e.recordActivity(ctx, actor, audit.ActionRenew, sub.ID.String(),
		previous.Format("2006-01-02")+" -> "+sub.DueDate.Format("2006-01-02"))
	e.plugins.EmitSubscriptionRenewed(ctx, sub, previous)

	return sub, nil
}

// DeleteSubscription removes a subscription. Master only.
func (e *Engine) DeleteSubscription(ctx context.Context, actor Actor, subID id.SubscriptionID) error {
	if err := actor.requireMaster(); err != nil {
		return err
	}

	sub, err := e.store.DeleteSubscription(ctx, subID)
	if err != nil {
		return err
	}

	e.recordActivity(ctx, actor, audit.ActionDeleteSubscription, sub.ID.String(), sub.CustomerID.String())
	return nil
}
