// Package memory is an in-process Store for tests and single-node use.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/admin"
	"github.com/xraph/pandda/app"
	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/plan"
	"github.com/xraph/pandda/server"
	"github.com/xraph/pandda/store"
	"github.com/xraph/pandda/subscription"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	customers     *table[*customer.Customer]
	subscriptions *table[*subscription.Subscription]
	accessPoints  *table[*accesspoint.AccessPoint]
	servers       *table[*server.Server]
	apps          *table[*app.App]
	plans         *table[*plan.Plan]
	admins        *table[*admin.Admin]
	activities    *table[*audit.Activity]
}

func New() *Store {
	return &Store{
		customers:     newTable(cloneOf[customer.Customer]),
		subscriptions: newTable(cloneOf[subscription.Subscription]),
		accessPoints:  newTable(cloneOf[accesspoint.AccessPoint]),
		servers:       newTable(cloneOf[server.Server]),
		apps:          newTable(cloneOf[app.App]),
		plans:         newTable(cloneOf[plan.Plan]),
		admins:        newTable(cloneOf[admin.Admin]),
		activities:    newTable(cloneOf[audit.Activity]),
	}
}

// ──────────────────────────────────────────────────
// Customer Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateCustomer(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.customers.has(c.ID) {
		return pandda.ErrAlreadyExists
	}
	s.customers.insert(c.ID, c)
	return nil
}

func (s *Store) GetCustomer(_ context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.customers.get(customerID); ok {
		return c, nil
	}
	return nil, pandda.ErrCustomerNotFound
}

func (s *Store) UpdateCustomer(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.customers.replace(c.ID, c) {
		return pandda.ErrCustomerNotFound
	}
	return nil
}

// DeleteCustomer removes the customer together with its subscriptions and
// access points.
func (s *Store) DeleteCustomer(_ context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers.remove(customerID)
	if !ok {
		return nil, pandda.ErrCustomerNotFound
	}

	for _, sub := range s.subscriptions.filter(subscription.ListOpts{CustomerID: customerID}.Matches, false) {
		s.subscriptions.remove(sub.ID)
	}
	for _, ap := range s.accessPoints.filter(accesspoint.ListOpts{CustomerID: customerID}.Matches, false) {
		s.accessPoints.remove(ap.ID)
	}
	return c, nil
}

func (s *Store) ListCustomers(_ context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return store.Page(s.customers.filter(opts.Matches, false), opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Subscription Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscriptions.has(sub.ID) {
		return pandda.ErrAlreadyExists
	}
	s.subscriptions.insert(sub.ID, sub)
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions.get(subID); ok {
		return sub, nil
	}
	return nil, pandda.ErrSubscriptionNotFound
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.subscriptions.replace(sub.ID, sub) {
		return pandda.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subscriptions.remove(subID); ok {
		return sub, nil
	}
	return nil, pandda.ErrSubscriptionNotFound
}

func (s *Store) ListSubscriptions(_ context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return store.Page(s.subscriptions.filter(opts.Matches, false), opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// AccessPoint Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateAccessPoint(_ context.Context, a *accesspoint.AccessPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessPoints.has(a.ID) {
		return pandda.ErrAlreadyExists
	}
	s.accessPoints.insert(a.ID, a)
	return nil
}

func (s *Store) GetAccessPoint(_ context.Context, apID id.AccessPointID) (*accesspoint.AccessPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accessPoints.get(apID); ok {
		return a, nil
	}
	return nil, pandda.ErrAccessPointNotFound
}

func (s *Store) UpdateAccessPoint(_ context.Context, a *accesspoint.AccessPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.accessPoints.replace(a.ID, a) {
		return pandda.ErrAccessPointNotFound
	}
	return nil
}

func (s *Store) DeleteAccessPoint(_ context.Context, apID id.AccessPointID) (*accesspoint.AccessPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accessPoints.remove(apID); ok {
		return a, nil
	}
	return nil, pandda.ErrAccessPointNotFound
}

func (s *Store) ListAccessPoints(_ context.Context, opts accesspoint.ListOpts) ([]*accesspoint.AccessPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return store.Page(s.accessPoints.filter(opts.Matches, false), opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Server Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateServer(_ context.Context, srv *server.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.servers.has(srv.ID) {
		return pandda.ErrAlreadyExists
	}
	s.servers.insert(srv.ID, srv)
	return nil
}

func (s *Store) GetServer(_ context.Context, serverID id.ServerID) (*server.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if srv, ok := s.servers.get(serverID); ok {
		return srv, nil
	}
	return nil, pandda.ErrServerNotFound
}

func (s *Store) UpdateServer(_ context.Context, srv *server.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.servers.replace(srv.ID, srv) {
		return pandda.ErrServerNotFound
	}
	return nil
}

func (s *Store) DeleteServer(_ context.Context, serverID id.ServerID) (*server.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if srv, ok := s.servers.remove(serverID); ok {
		return srv, nil
	}
	return nil, pandda.ErrServerNotFound
}

func (s *Store) ListServers(_ context.Context, opts server.ListOpts) ([]*server.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return store.Page(s.servers.filter(nil, false), opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// App Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateApp(_ context.Context, a *app.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apps.has(a.ID) {
		return pandda.ErrAlreadyExists
	}
	s.apps.insert(a.ID, a)
	return nil
}

func (s *Store) GetApp(_ context.Context, appID id.AppID) (*app.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.apps.get(appID); ok {
		return a, nil
	}
	return nil, pandda.ErrAppNotFound
}

func (s *Store) UpdateApp(_ context.Context, a *app.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.apps.replace(a.ID, a) {
		return pandda.ErrAppNotFound
	}
	return nil
}

func (s *Store) DeleteApp(_ context.Context, appID id.AppID) (*app.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.apps.remove(appID); ok {
		return a, nil
	}
	return nil, pandda.ErrAppNotFound
}

func (s *Store) ListApps(_ context.Context, opts app.ListOpts) ([]*app.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match := func(a *app.App) bool { return opts.ServerID.IsNil() || a.ServerID == opts.ServerID }
	return store.Page(s.apps.filter(match, false), opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Plan Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plans.has(p.ID) {
		return pandda.ErrAlreadyExists
	}
	s.plans.insert(p.ID, p)
	return nil
}

func (s *Store) GetPlan(_ context.Context, planID id.PlanID) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.plans.get(planID); ok {
		return p, nil
	}
	return nil, pandda.ErrPlanNotFound
}

func (s *Store) UpdatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.plans.replace(p.ID, p) {
		return pandda.ErrPlanNotFound
	}
	return nil
}

func (s *Store) DeletePlan(_ context.Context, planID id.PlanID) (*plan.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.plans.remove(planID); ok {
		return p, nil
	}
	return nil, pandda.ErrPlanNotFound
}

func (s *Store) ListPlans(_ context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return store.Page(s.plans.filter(nil, false), opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Admin Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateAdmin(_ context.Context, a *admin.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.admins.has(a.ID) || len(s.admins.filter(sameEmail(a.Email), false)) > 0 {
		return pandda.ErrAlreadyExists
	}
	s.admins.insert(a.ID, a)
	return nil
}

func (s *Store) GetAdmin(_ context.Context, adminID id.AdminID) (*admin.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.admins.get(adminID); ok {
		return a, nil
	}
	return nil, pandda.ErrAdminNotFound
}

func (s *Store) GetAdminByEmail(_ context.Context, email string) (*admin.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if found := s.admins.filter(sameEmail(email), false); len(found) > 0 {
		return found[0], nil
	}
	return nil, pandda.ErrAdminNotFound
}

func (s *Store) UpdateAdmin(_ context.Context, a *admin.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.admins.replace(a.ID, a) {
		return pandda.ErrAdminNotFound
	}
	return nil
}

func (s *Store) DeleteAdmin(_ context.Context, adminID id.AdminID) (*admin.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.admins.remove(adminID); ok {
		return a, nil
	}
	return nil, pandda.ErrAdminNotFound
}

func (s *Store) ListAdmins(_ context.Context, opts admin.ListOpts) ([]*admin.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return store.Page(s.admins.filter(nil, false), opts.Offset, opts.Limit), nil
}

func sameEmail(email string) func(*admin.Admin) bool {
	return func(a *admin.Admin) bool { return strings.EqualFold(a.Email, email) }
}

// ──────────────────────────────────────────────────
// Audit Store implementation
// ──────────────────────────────────────────────────

func (s *Store) AppendActivity(_ context.Context, a *audit.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activities.has(a.ID) {
		return pandda.ErrAlreadyExists
	}
	s.activities.insert(a.ID, a)
	return nil
}

func (s *Store) ListActivities(_ context.Context, opts audit.ListOpts) ([]*audit.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return store.Page(s.activities.filter(opts.Matches, true), opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Core methods
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
