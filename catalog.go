package pandda

import (
	"context"
	"sort"
	"strings"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/app"
	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/lock"
	"github.com/xraph/pandda/plan"
	"github.com/xraph/pandda/server"
	"github.com/xraph/pandda/subscription"
	"github.com/xraph/pandda/validate"
)

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return newValidationError(validate.Violation{Kind: validate.KindMissingField, Field: "name", Message: "is required", Index: -1})
	}
	return nil
}

// ──────────────────────────────────────────────────
// Server Management
// ──────────────────────────────────────────────────

// CreateServer registers a new server.
func (e *Engine) CreateServer(ctx context.Context, actor Actor, s *server.Server) error {
	if err := requireName(s.Name); err != nil {
		return err
	}
	s.ID = id.NewServerID()
	s.Entity = e.entity()
	s.Name = strings.TrimSpace(s.Name)

	if err := e.store.CreateServer(ctx, s); err != nil {
		return err
	}
	e.recordActivity(ctx, actor, audit.ActionCreateServer, s.ID.String(), s.Name)
	return nil
}

// GetServer retrieves a server by ID.
func (e *Engine) GetServer(ctx context.Context, serverID id.ServerID) (*server.Server, error) {
	return e.store.GetServer(ctx, serverID)
}

// ListServers lists servers.
func (e *Engine) ListServers(ctx context.Context, opts server.ListOpts) ([]*server.Server, error) {
	return e.store.ListServers(ctx, opts)
}

// UpdateServer renames a server.
func (e *Engine) UpdateServer(ctx context.Context, actor Actor, s *server.Server) error {
	if err := requireName(s.Name); err != nil {
		return err
	}
	cur, err := e.store.GetServer(ctx, s.ID)
	if err != nil {
		return err
	}
	s.CreatedAt = cur.CreatedAt
	s.Name = strings.TrimSpace(s.Name)
	s.UpdatedAt = e.now().UTC()

	if err := e.store.UpdateServer(ctx, s); err != nil {
		return err
	}
	e.recordActivity(ctx, actor, audit.ActionUpdateServer, s.ID.String(), s.Name)
	return nil
}

// DeleteServer removes a server that no app is hosted on. Master only.
func (e *Engine) DeleteServer(ctx context.Context, actor Actor, serverID id.ServerID) error {
	if err := actor.requireMaster(); err != nil {
		return err
	}

	apps, err := e.store.ListApps(ctx, app.ListOpts{ServerID: serverID, Limit: 1})
	if err != nil {
		return err
	}
	if len(apps) > 0 {
		return ErrServerInUse
	}

	s, err := e.store.DeleteServer(ctx, serverID)
	if err != nil {
		return err
	}
	e.recordActivity(ctx, actor, audit.ActionDeleteServer, s.ID.String(), s.Name)
	return nil
}

// ──────────────────────────────────────────────────
// App Management
// ──────────────────────────────────────────────────

// CreateApp registers an app on an existing server.
func (e *Engine) CreateApp(ctx context.Context, actor Actor, a *app.App) error {
	if err := requireName(a.Name); err != nil {
		return err
	}
	if _, err := e.store.GetServer(ctx, a.ServerID); err != nil {
		return err
	}
	if a.Kind == "" {
		a.Kind = app.KindOther
	}
	a.ID = id.NewAppID()
	a.Entity = e.entity()
	a.Name = strings.TrimSpace(a.Name)

	if err := e.store.CreateApp(ctx, a); err != nil {
		return err
	}
	e.recordActivity(ctx, actor, audit.ActionCreateApp, a.ID.String(), a.Name)
	return nil
}

// GetApp retrieves an app by ID.
func (e *Engine) GetApp(ctx context.Context, appID id.AppID) (*app.App, error) {
	return e.store.GetApp(ctx, appID)
}

// ListApps lists apps.
func (e *Engine) ListApps(ctx context.Context, opts app.ListOpts) ([]*app.App, error) {
	return e.store.ListApps(ctx, opts)
}

// UpdateApp changes an app's name, kind, server or access mode.
//
// An app with access points cannot move to another server. Turning a
// multi-access app exclusive holds the app's lock and fails while any
// username is held more than once on it.
func (e *Engine) UpdateApp(ctx context.Context, actor Actor, a *app.App) error {
	if err := requireName(a.Name); err != nil {
		return err
	}
	cur, err := e.store.GetApp(ctx, a.ID)
	if err != nil {
		return err
	}
	if _, err := e.store.GetServer(ctx, a.ServerID); err != nil {
		return err
	}

	if a.ServerID != cur.ServerID {
		aps, err := e.store.ListAccessPoints(ctx, accesspoint.ListOpts{AppID: a.ID, Limit: 1})
		if err != nil {
			return err
		}
		if len(aps) > 0 {
			return ErrAppInUse
		}
	}

	if cur.MultiAccess && !a.MultiAccess {
		release, err := e.locks.Acquire(ctx, e.lockTimeout, lock.AppKey(a.ID))
		if err != nil {
			return err
		}
		defer release()

		if err := e.checkNoSharedUsernames(ctx, a.ID); err != nil {
			return err
		}
	}

	if a.Kind == "" {
		a.Kind = app.KindOther
	}
	a.CreatedAt = cur.CreatedAt
	a.Name = strings.TrimSpace(a.Name)
	a.UpdatedAt = e.now().UTC()

	if err := e.store.UpdateApp(ctx, a); err != nil {
		return err
	}
	e.recordActivity(ctx, actor, audit.ActionUpdateApp, a.ID.String(), a.Name)
	return nil
}

// checkNoSharedUsernames fails when a username is held by more than one
// access point on appID.
func (e *Engine) checkNoSharedUsernames(ctx context.Context, appID id.AppID) error {
	aps, err := e.store.ListAccessPoints(ctx, accesspoint.ListOpts{AppID: appID})
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(aps))
	for _, ap := range aps {
		if seen[ap.Username] {
			return newValidationError(validate.Violation{
				Kind: validate.KindDuplicateExclusiveUser, Field: "multi_access",
				Message: "username is held more than once on this app",
				App:     appID, Username: ap.Username, Index: -1,
			})
		}
		seen[ap.Username] = true
	}
	return nil
}

// DeleteApp removes an app that no access point uses. Master only.
func (e *Engine) DeleteApp(ctx context.Context, actor Actor, appID id.AppID) error {
	if err := actor.requireMaster(); err != nil {
		return err
	}

	aps, err := e.store.ListAccessPoints(ctx, accesspoint.ListOpts{AppID: appID, Limit: 1})
	if err != nil {
		return err
	}
	if len(aps) > 0 {
		return ErrAppInUse
	}

	a, err := e.store.DeleteApp(ctx, appID)
	if err != nil {
		return err
	}
	e.recordActivity(ctx, actor, audit.ActionDeleteApp, a.ID.String(), a.Name)
	return nil
}

// DuplicateCredentials lists usernames held by more than one access point
// on an exclusive app, sorted. It is always empty for multi-access apps.
func (e *Engine) DuplicateCredentials(ctx context.Context, appID id.AppID) ([]string, error) {
	a, err := e.store.GetApp(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !a.Exclusive() {
		return nil, nil
	}

	aps, err := e.store.ListAccessPoints(ctx, accesspoint.ListOpts{AppID: appID})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, ap := range aps {
		counts[ap.Username]++
	}

	var dups []string
	for username, n := range counts {
		if n > 1 {
			dups = append(dups, username)
		}
	}
	sort.Strings(dups)
	return dups, nil
}

// ──────────────────────────────────────────────────
// Plan Management
// ──────────────────────────────────────────────────

func validatePlan(p *plan.Plan) error {
	if err := requireName(p.Name); err != nil {
		return err
	}
	if p.DurationMonths < 1 {
		return newValidationError(validate.Violation{Kind: validate.KindInvalidField, Field: "duration_months", Message: "must be at least 1", Index: -1})
	}
	return nil
}

// CreatePlan creates a new renewal plan.
func (e *Engine) CreatePlan(ctx context.Context, actor Actor, p *plan.Plan) error {
	if err := validatePlan(p); err != nil {
		return err
	}
	p.ID = id.NewPlanID()
	p.Entity = e.entity()
	p.Name = strings.TrimSpace(p.Name)

	if err := e.store.CreatePlan(ctx, p); err != nil {
		return err
	}
	e.recordActivity(ctx, actor, audit.ActionCreatePlan, p.ID.String(), p.Name)
	return nil
}

// GetPlan retrieves a plan by ID.
func (e *Engine) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	return e.store.GetPlan(ctx, planID)
}

// ListPlans lists plans.
func (e *Engine) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	return e.store.ListPlans(ctx, opts)
}

// UpdatePlan changes a plan's name or duration.
func (e *Engine) UpdatePlan(ctx context.Context, actor Actor, p *plan.Plan) error {
	if err := validatePlan(p); err != nil {
		return err
	}
	cur, err := e.store.GetPlan(ctx, p.ID)
	if err != nil {
		return err
	}
	p.CreatedAt = cur.CreatedAt
	p.Name = strings.TrimSpace(p.Name)
	p.UpdatedAt = e.now().UTC()

	if err := e.store.UpdatePlan(ctx, p); err != nil {
		return err
	}
	e.recordActivity(ctx, actor, audit.ActionUpdatePlan, p.ID.String(), p.Name)
	return nil
}

// DeletePlan removes a plan no customer or subscription refers to.
// Master only.
func (e *Engine) DeletePlan(ctx context.Context, actor Actor, planID id.PlanID) error {
	if err := actor.requireMaster(); err != nil {
		return err
	}

	customers, err := e.store.ListCustomers(ctx, customer.ListOpts{PlanID: planID, Limit: 1})
	if err != nil {
		return err
	}
	subs, err := e.store.ListSubscriptions(ctx, subscription.ListOpts{PlanID: planID, Limit: 1})
	if err != nil {
		return err
	}
	if len(customers) > 0 || len(subs) > 0 {
		return ErrPlanInUse
	}

	p, err := e.store.DeletePlan(ctx, planID)
	if err != nil {
		return err
	}
	e.recordActivity(ctx, actor, audit.ActionDeletePlan, p.ID.String(), p.Name)
	return nil
}
