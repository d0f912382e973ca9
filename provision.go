package pandda

import (
	"context"
	"strings"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/app"
	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/lock"
	"github.com/xraph/pandda/subscription"
	"github.com/xraph/pandda/types"
	"github.com/xraph/pandda/validate"
)

// Provisioned is the committed result of CreateCustomer.
type Provisioned struct {
	Customer     *customer.Customer         `json:"customer"`
	Subscription *subscription.Subscription `json:"subscription"`
	AccessPoints []*accesspoint.AccessPoint `json:"access_points"`
}

// ──────────────────────────────────────────────────
// Create workflow
// ──────────────────────────────────────────────────

// CreateCustomer provisions a customer, its subscription and its access
// points as one unit.
//
// The request is validated before anything is written. The writes then
// happen in order (customer, subscription, access points) and the
// persisted allocation is checked again: each assigned server must carry
// exactly sub.Screens slots and no exclusive username may be held twice.
// Any failure after the first write undoes every write in reverse order.
//
// The inputs are not modified; ids and timestamps are assigned on copies
// returned in Provisioned.
func (e *Engine) CreateCustomer(
	ctx context.Context,
	actor Actor,
	c *customer.Customer,
	sub *subscription.Subscription,
	aps []*accesspoint.AccessPoint,
) (*Provisioned, error) {
	w := e.newWorkflow("create_customer", "actor", actor.ID)

	if err := checkAccessPointsPresent(aps); err != nil {
		return nil, err
	}

	c, sub, aps = c.Clone(), sub.Clone(), accesspoint.CloneAll(aps)
	if c == nil || sub == nil {
		return nil, newValidationError(validate.Violation{Kind: validate.KindMissingField, Message: "customer and subscription are required", Index: -1})
	}

	entity := e.entity()
	c.ID = id.NewCustomerID()
	c.Entity = entity
	normalizeCustomer(c)

	sub.ID = id.NewSubscriptionID()
	sub.Entity = entity
	sub.CustomerID = c.ID
	sub.Value = sub.Value.Normalize()
	if sub.PlanID.IsNil() {
		sub.PlanID = c.PlanID
	}

	for _, ap := range aps {
		ap.ID = id.NewAccessPointID()
		ap.Entity = entity
		ap.CustomerID = c.ID
		ap.Username = strings.TrimSpace(ap.Username)
	}

	apps, err := e.checkRequest(ctx, c, sub, aps, true)
	if err != nil {
		return nil, err
	}

	release, err := e.locks.Acquire(ctx, e.lockTimeout, lockKeys(apps, aps, c.AssignedServers())...)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.checkGlobalExclusivity(ctx, aps, apps); err != nil {
		return nil, err
	}

	w.transition(StateWriting)

	if err := w.step(ctx, "insert customer", func(ctx context.Context) error {
		return e.store.CreateCustomer(ctx, c)
	}); err != nil {
		return nil, w.fail(ctx, err)
	}
	w.undo.push("insert customer", func(ctx context.Context) error {
		_, err := e.store.DeleteCustomer(ctx, c.ID)
		return err
	})

	if err := w.step(ctx, "insert subscription", func(ctx context.Context) error {
		return e.store.CreateSubscription(ctx, sub)
	}); err != nil {
		return nil, w.fail(ctx, err)
	}
	w.undo.push("insert subscription", func(ctx context.Context) error {
		_, err := e.store.DeleteSubscription(ctx, sub.ID)
		return err
	})

	if err := e.insertAccessPoints(ctx, w, aps); err != nil {
		return nil, w.fail(ctx, err)
	}

	w.transition(StateVerifying)

	if err := e.verify(ctx, w, c, sub, apps); err != nil {
		return nil, w.fail(ctx, err)
	}

	w.commit()
	e.recordActivity(ctx, actor, audit.ActionCreateCustomer, c.ID.String(), c.Name)
	e.plugins.EmitCustomerProvisioned(ctx, c, sub, aps)

	w.logger.Info("customer provisioned",
		"customer_id", c.ID,
		"subscription_id", sub.ID,
		"access_points", len(aps),
	)

	return &Provisioned{Customer: c, Subscription: sub, AccessPoints: aps}, nil
}

// ──────────────────────────────────────────────────
// Replace workflow
// ──────────────────────────────────────────────────

// ReplaceCustomer patches a customer and its subscription and replaces
// the customer's whole access-point set with aps.
//
// The old access points are deleted and aps inserted with fresh ids; the
// result must satisfy the same capacity and exclusivity rules as a create.
// On failure the inserted access points are removed and the previous
// ones restored with their original ids and timestamps, then the
// subscription and customer are restored.
func (e *Engine) ReplaceCustomer(
	ctx context.Context,
	actor Actor,
	customerID id.CustomerID,
	cp customer.Patch,
	subID id.SubscriptionID,
	sp *subscription.Patch,
	aps []*accesspoint.AccessPoint,
) error {
	w := e.newWorkflow("update_customer", "actor", actor.ID, "customer_id", customerID)

	if err := checkAccessPointsPresent(aps); err != nil {
		return err
	}

	cur, err := e.store.GetCustomer(ctx, customerID)
	if err != nil {
		return readError("get customer", err)
	}
	curSub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return readError("get subscription", err)
	}
	if curSub.CustomerID != cur.ID {
		return ErrSubscriptionNotFound
	}

	now := e.now().UTC()
	next := cp.Apply(cur)
	normalizeCustomer(next)
	next.UpdatedAt = now

	nextSub := sp.Apply(curSub)
	if cp.PlanID != nil && (sp == nil || sp.PlanID == nil) {
		nextSub.PlanID = next.PlanID
	}
	nextSub.Value = nextSub.Value.Normalize()
	nextSub.UpdatedAt = now

	aps = accesspoint.CloneAll(aps)
	entity := e.entity()
	for _, ap := range aps {
		ap.ID = id.NewAccessPointID()
		ap.Entity = entity
		ap.CustomerID = cur.ID
		ap.Username = strings.TrimSpace(ap.Username)
	}

	dueChanged := sp != nil && sp.DueDate != nil
	apps, err := e.checkRequest(ctx, next, nextSub, aps, dueChanged)
	if err != nil {
		return err
	}

	servers := append(cur.AssignedServers(), next.AssignedServers()...)
	release, err := e.locks.Acquire(ctx, e.lockTimeout, lockKeys(apps, aps, servers)...)
	if err != nil {
		return err
	}
	defer release()

	if err := e.checkGlobalExclusivity(ctx, aps, apps); err != nil {
		return err
	}

	snapshot, err := e.store.ListAccessPoints(ctx, accesspoint.ListOpts{CustomerID: cur.ID})
	if err != nil {
		return &PersistenceError{Op: "snapshot access points", Err: err}
	}

	w.transition(StateWriting)

	if err := w.step(ctx, "update customer", func(ctx context.Context) error {
		return e.store.UpdateCustomer(ctx, next)
	}); err != nil {
		return w.fail(ctx, err)
	}
	w.undo.push("update customer", func(ctx context.Context) error {
		return e.store.UpdateCustomer(ctx, cur)
	})

	if err := w.step(ctx, "update subscription", func(ctx context.Context) error {
		return e.store.UpdateSubscription(ctx, nextSub)
	}); err != nil {
		return w.fail(ctx, err)
	}
	w.undo.push("update subscription", func(ctx context.Context) error {
		return e.store.UpdateSubscription(ctx, curSub)
	})

	for _, old := range snapshot {
		if err := w.step(ctx, "delete access point", func(ctx context.Context) error {
			_, err := e.store.DeleteAccessPoint(ctx, old.ID)
			return err
		}); err != nil {
			return w.fail(ctx, err)
		}
		w.undo.push("delete access point", func(ctx context.Context) error {
			return e.store.CreateAccessPoint(ctx, old)
		})
	}

	if err := e.insertAccessPoints(ctx, w, aps); err != nil {
		return w.fail(ctx, err)
	}

	w.transition(StateVerifying)

	if err := e.verify(ctx, w, next, nextSub, apps); err != nil {
		return w.fail(ctx, err)
	}

	w.commit()
	e.recordActivity(ctx, actor, audit.ActionUpdateCustomer, cur.ID.String(), next.Name)
	e.plugins.EmitCustomerReplaced(ctx, next, nextSub, aps)

	w.logger.Info("customer replaced",
		"replaced", len(snapshot),
		"access_points", len(aps),
	)

	return nil
}

// ──────────────────────────────────────────────────
// Shared steps
// ──────────────────────────────────────────────────

// checkRequest runs every check that needs no lock: field rules, the
// referenced plan and servers, per-access-point membership and duplicate
// exclusive usernames within aps. It returns the apps aps refer to.
func (e *Engine) checkRequest(
	ctx context.Context,
	c *customer.Customer,
	sub *subscription.Subscription,
	aps []*accesspoint.AccessPoint,
	checkDueDate bool,
) (map[id.AppID]*app.App, error) {
	fields := e.validator.ValidateCustomerFields(validate.CustomerFields{
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		PlanID:    c.PlanID,
		Server1ID: c.Server1ID,
		Server2ID: c.Server2ID,
		Screens:   sub.Screens,
		DueDate:   sub.DueDate,
	})
	for _, v := range fields.Violations {
		if v.Kind == validate.KindPastDueDate && !checkDueDate {
			continue
		}
		return nil, newValidationError(v)
	}

	if sub.PlanID != c.PlanID {
		return nil, newValidationError(validate.Violation{
			Kind: validate.KindInvalidField, Field: "plan_id",
			Message: "subscription plan must match the customer's plan", Index: -1,
		})
	}

	if _, err := e.store.GetPlan(ctx, c.PlanID); err != nil {
		return nil, readError("get plan", err)
	}
	for _, srv := range c.AssignedServers() {
		if _, err := e.store.GetServer(ctx, srv); err != nil {
			return nil, readError("get server", err)
		}
	}

	apps := make(map[id.AppID]*app.App)
	for _, ap := range aps {
		if _, seen := apps[ap.AppID]; seen || ap.AppID.IsNil() {
			continue
		}
		a, err := e.store.GetApp(ctx, ap.AppID)
		switch {
		case IsNotFound(err):
			continue // reported as UnknownApp below
		case err != nil:
			return nil, &PersistenceError{Op: "get app", Err: err}
		}
		apps[a.ID] = a
	}

	if v, bad := e.validator.ValidateMembership(aps, c.AssignedServers(), apps).First(); bad {
		return nil, newValidationError(v)
	}

	local, err := e.validator.ValidateExclusivity(ctx, aps, apps, nil)
	if err != nil {
		return nil, &PersistenceError{Op: "check exclusivity", Err: err}
	}
	if v, bad := local.First(); bad {
		return nil, newValidationError(v)
	}

	return apps, nil
}

// checkAccessPointsPresent rejects a nil entry in aps.
func checkAccessPointsPresent(aps []*accesspoint.AccessPoint) error {
	for i, ap := range aps {
		if ap == nil {
			return newValidationError(validate.Violation{
				Kind: validate.KindMissingField, Field: "access_points",
				Message: "access point is required", Index: i,
			})
		}
	}
	return nil
}

// checkGlobalExclusivity looks for exclusive usernames in aps already held
// by other customers. Call it with the app locks held.
func (e *Engine) checkGlobalExclusivity(ctx context.Context, aps []*accesspoint.AccessPoint, apps map[id.AppID]*app.App) error {
	res, err := e.validator.ValidateExclusivity(ctx, aps, apps, e.store)
	if err != nil {
		return &PersistenceError{Op: "check exclusivity", Err: err}
	}
	if v, bad := res.First(); bad {
		return newValidationError(v)
	}
	return nil
}

func (e *Engine) insertAccessPoints(ctx context.Context, w *workflow, aps []*accesspoint.AccessPoint) error {
	for _, ap := range aps {
		if err := w.step(ctx, "insert access point", func(ctx context.Context) error {
			return e.store.CreateAccessPoint(ctx, ap)
		}); err != nil {
			return err
		}
		w.undo.push("insert access point", func(ctx context.Context) error {
			_, err := e.store.DeleteAccessPoint(ctx, ap.ID)
			return err
		})
	}
	return nil
}

// verify re-reads the customer's persisted access points and checks the
// capacity and exclusivity rules against what the store now holds.
func (e *Engine) verify(ctx context.Context, w *workflow, c *customer.Customer, sub *subscription.Subscription, apps map[id.AppID]*app.App) error {
	var persisted []*accesspoint.AccessPoint
	if err := w.step(ctx, "list access points", func(ctx context.Context) error {
		var err error
		persisted, err = e.store.ListAccessPoints(ctx, accesspoint.ListOpts{CustomerID: c.ID})
		return err
	}); err != nil {
		return err
	}

	if v, bad := e.validator.ValidateCapacity(persisted, c.AssignedServers(), sub.Screens).First(); bad {
		return newValidationError(v)
	}

	res, err := e.validator.ValidateExclusivity(ctx, persisted, apps, e.store)
	if err != nil {
		return &PersistenceError{Op: "verify exclusivity", Err: err}
	}
	if v, bad := res.First(); bad {
		return newValidationError(v)
	}
	return nil
}

// lockKeys returns the lock keys for servers and for every exclusive app
// referenced by aps.
func lockKeys(apps map[id.AppID]*app.App, aps []*accesspoint.AccessPoint, servers []id.ServerID) []string {
	keys := make([]string, 0, len(servers)+len(aps))
	for _, srv := range servers {
		keys = append(keys, lock.ServerKey(srv))
	}
	for _, ap := range aps {
		if a, ok := apps[ap.AppID]; ok && a.Exclusive() {
			keys = append(keys, lock.AppKey(a.ID))
		}
	}
	return keys
}

func normalizeCustomer(c *customer.Customer) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = validate.NormalizePhone(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
}

func (e *Engine) entity() types.Entity {
	now := e.now().UTC()
	return types.Entity{CreatedAt: now, UpdatedAt: now}
}

// readError passes not-found errors through and wraps anything else as a
// persistence failure.
func readError(op string, err error) error {
	if IsNotFound(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
