// Package storetest is a conformance suite every store.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	"github.com/xraph/pandda/types"
)

// Factory returns an empty, migrated store. The suite closes nothing;
// register cleanup on t.
type Factory func(t *testing.T) store.Store

var base = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func entity(offset time.Duration) types.Entity {
	at := base.Add(offset)
	return types.Entity{CreatedAt: at, UpdatedAt: at}
}

// Run exercises every Store method against a fresh store per subtest.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Ping", testPing},
		{"Customers", testCustomers},
		{"CustomerFilters", testCustomerFilters},
		{"DeleteCustomerCascades", testDeleteCustomerCascades},
		{"Subscriptions", testSubscriptions},
		{"AccessPoints", testAccessPoints},
		{"Catalog", testCatalog},
		{"Admins", testAdmins},
		{"Activities", testActivities},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

type seed struct {
	plan   *plan.Plan
	s1, s2 *server.Server
	app    *app.App
}

func seedCatalog(t *testing.T, s store.Store) seed {
	t.Helper()
	ctx := context.Background()

	sd := seed{
		plan: &plan.Plan{Entity: entity(0), ID: id.NewPlanID(), Name: "Mensal", DurationMonths: 1},
		s1:   &server.Server{Entity: entity(0), ID: id.NewServerID(), Name: "Alpha"},
		s2:   &server.Server{Entity: entity(time.Second), ID: id.NewServerID(), Name: "Beta"},
	}
	sd.app = &app.App{Entity: entity(0), ID: id.NewAppID(), Name: "Player", ServerID: sd.s1.ID, Kind: app.KindAndroid}

	require.NoError(t, s.CreatePlan(ctx, sd.plan))
	require.NoError(t, s.CreateServer(ctx, sd.s1))
	require.NoError(t, s.CreateServer(ctx, sd.s2))
	require.NoError(t, s.CreateApp(ctx, sd.app))
	return sd
}

func newCustomer(sd seed, name string, offset time.Duration) *customer.Customer {
	return &customer.Customer{
		Entity:    entity(offset),
		ID:        id.NewCustomerID(),
		Name:      name,
		Phone:     "11988887777",
		PlanID:    sd.plan.ID,
		Server1ID: sd.s1.ID,
	}
}

func newSubscription(sd seed, c *customer.Customer, due time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		Entity:        c.Entity,
		ID:            id.NewSubscriptionID(),
		CustomerID:    c.ID,
		PlanID:        sd.plan.ID,
		DueDate:       due,
		PaymentMethod: subscription.PaymentPix,
		Screens:       2,
		Value:         types.BRL(2990),
	}
}

func newAccessPoint(sd seed, c *customer.Customer, username string) *accesspoint.AccessPoint {
	return &accesspoint.AccessPoint{
		Entity:     c.Entity,
		ID:         id.NewAccessPointID(),
		CustomerID: c.ID,
		ServerID:   sd.s1.ID,
		AppID:      sd.app.ID,
		Slots:      1,
		Username:   username,
		Secret:     "pw-" + username,
	}
}

func testPing(t *testing.T, s store.Store) {
	require.NoError(t, s.Ping(context.Background()))
}

func testCustomers(t *testing.T, s store.Store) {
	ctx := context.Background()
	sd := seedCatalog(t, s)

	c := newCustomer(sd, "Ana", 0)
	c.Email = "ana@example.com"
	c.Server2ID = sd.s2.ID
	require.NoError(t, s.CreateCustomer(ctx, c))
	require.ErrorIs(t, s.CreateCustomer(ctx, c), pandda.ErrAlreadyExists)

	got, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	got.Name = "Ana Maria"
	got.Blocked = true
	got.Server2ID = id.Nil
	got.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, s.UpdateCustomer(ctx, got))

	again, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, c.CreatedAt, again.CreatedAt)

	_, err = s.GetCustomer(ctx, id.NewCustomerID())
	require.ErrorIs(t, err, pandda.ErrCustomerNotFound)

	missing := newCustomer(sd, "Ghost", 0)
	require.ErrorIs(t, s.UpdateCustomer(ctx, missing), pandda.ErrCustomerNotFound)
	_, err = s.DeleteCustomer(ctx, missing.ID)
	require.ErrorIs(t, err, pandda.ErrCustomerNotFound)
}

func testCustomerFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	sd := seedCatalog(t, s)

	ana := newCustomer(sd, "Ana", 0)
	bia := newCustomer(sd, "Bia", time.Second)
	bia.Server1ID, bia.Server2ID = sd.s2.ID, sd.s1.ID
	caio := newCustomer(sd, "Caio", 2*time.Second)
	caio.Server1ID = sd.s2.ID
	caio.Blocked = true
	for _, c := range []*customer.Customer{ana, bia, caio} {
		require.NoError(t, s.CreateCustomer(ctx, c))
	}

	names := func(cs []*customer.Customer) []string {
		out := make([]string, len(cs))
		for i, c := range cs {
			out[i] = c.Name
		}
		return out
	}
	blocked, open := true, false

	tests := []struct {
		name string
		opts customer.ListOpts
		want []string
	}{
		{"all", customer.ListOpts{}, []string{"Ana", "Bia", "Caio"}},
		{"server either slot", customer.ListOpts{ServerID: sd.s1.ID}, []string{"Ana", "Bia"}},
		{"blocked", customer.ListOpts{Blocked: &blocked}, []string{"Caio"}},
		{"not blocked", customer.ListOpts{Blocked: &open}, []string{"Ana", "Bia"}},
		{"plan", customer.ListOpts{PlanID: sd.plan.ID}, []string{"Ana", "Bia", "Caio"}},
		{"other plan", customer.ListOpts{PlanID: id.NewPlanID()}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListCustomers(ctx, tt.opts)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, names(got))
		})
	}

	page, err := s.ListCustomers(ctx, customer.ListOpts{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	rest, err := s.ListCustomers(ctx, customer.ListOpts{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func testDeleteCustomerCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	sd := seedCatalog(t, s)

	ana := newCustomer(sd, "Ana", 0)
	bia := newCustomer(sd, "Bia", time.Second)
	for _, c := range []*customer.Customer{ana, bia} {
		require.NoError(t, s.CreateCustomer(ctx, c))
		require.NoError(t, s.CreateSubscription(ctx, newSubscription(sd, c, base.AddDate(0, 1, 0))))
		require.NoError(t, s.CreateAccessPoint(ctx, newAccessPoint(sd, c, c.Name+"1")))
		require.NoError(t, s.CreateAccessPoint(ctx, newAccessPoint(sd, c, c.Name+"2")))
	}

	deleted, err := s.DeleteCustomer(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, deleted.ID)
	assert.Equal(t, "Ana", deleted.Name)

	subs, err := s.ListSubscriptions(ctx, subscription.ListOpts{})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, bia.ID, subs[0].CustomerID)

	aps, err := s.ListAccessPoints(ctx, accesspoint.ListOpts{})
	require.NoError(t, err)
	require.Len(t, aps, 2)
	for _, ap := range aps {
		assert.Equal(t, bia.ID, ap.CustomerID)
	}
}

func testSubscriptions(t *testing.T, s store.Store) {
	ctx := context.Background()
	sd := seedCatalog(t, s)
	c := newCustomer(sd, "Ana", 0)
	require.NoError(t, s.CreateCustomer(ctx, c))

	sub := newSubscription(sd, c, base.AddDate(0, 1, 0))
	require.NoError(t, s.CreateSubscription(ctx, sub))
	require.ErrorIs(t, s.CreateSubscription(ctx, sub), pandda.ErrAlreadyExists)

	got, err := s.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub, got)
	assert.True(t, got.PaidAt.IsZero())

	got.PaidAt = base
	got.Value = types.USD(1500)
	got.Screens = 3
	require.NoError(t, s.UpdateSubscription(ctx, got))
	again, err := s.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	late := newSubscription(sd, c, base.AddDate(0, 3, 0))
	require.NoError(t, s.CreateSubscription(ctx, late))

	due, err := s.ListSubscriptions(ctx, subscription.ListOpts{DueBefore: base.AddDate(0, 2, 0)})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, sub.ID, due[0].ID)

	mine, err := s.ListSubscriptions(ctx, subscription.ListOpts{CustomerID: c.ID, PlanID: sd.plan.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	removed, err := s.DeleteSubscription(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, late, removed)
	_, err = s.GetSubscription(ctx, late.ID)
	require.ErrorIs(t, err, pandda.ErrSubscriptionNotFound)
	require.ErrorIs(t, s.UpdateSubscription(ctx, late), pandda.ErrSubscriptionNotFound)
	_, err = s.DeleteSubscription(ctx, late.ID)
	require.ErrorIs(t, err, pandda.ErrSubscriptionNotFound)
}

func testAccessPoints(t *testing.T, s store.Store) {
	ctx := context.Background()
	sd := seedCatalog(t, s)
	ana := newCustomer(sd, "Ana", 0)
	bia := newCustomer(sd, "Bia", time.Second)
	require.NoError(t, s.CreateCustomer(ctx, ana))
	require.NoError(t, s.CreateCustomer(ctx, bia))

	a1 := newAccessPoint(sd, ana, "ana")
	a2 := newAccessPoint(sd, ana, "shared")
	b1 := newAccessPoint(sd, bia, "shared")
	b1.ServerID = sd.s2.ID
	for _, ap := range []*accesspoint.AccessPoint{a1, a2, b1} {
		require.NoError(t, s.CreateAccessPoint(ctx, ap))
	}
	require.ErrorIs(t, s.CreateAccessPoint(ctx, a1), pandda.ErrAlreadyExists)

	got, err := s.GetAccessPoint(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, a1, got)

	count := func(opts accesspoint.ListOpts) int {
		aps, err := s.ListAccessPoints(ctx, opts)
		require.NoError(t, err)
		return len(aps)
	}
	assert.Equal(t, 3, count(accesspoint.ListOpts{}))
	assert.Equal(t, 2, count(accesspoint.ListOpts{CustomerID: ana.ID}))
	assert.Equal(t, 1, count(accesspoint.ListOpts{ServerID: sd.s2.ID}))
	assert.Equal(t, 3, count(accesspoint.ListOpts{AppID: sd.app.ID}))
	assert.Equal(t, 2, count(accesspoint.ListOpts{AppID: sd.app.ID, Username: "shared"}))
	assert.Equal(t, 1, count(accesspoint.ListOpts{Limit: 1}))

	got.Slots = 2
	got.Secret = "rotated"
	require.NoError(t, s.UpdateAccessPoint(ctx, got))
	again, err := s.GetAccessPoint(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	removed, err := s.DeleteAccessPoint(ctx, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, a2, removed)

	// A removed record can be re-inserted under its original id.
	require.NoError(t, s.CreateAccessPoint(ctx, removed))
	restored, err := s.GetAccessPoint(ctx, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, a2, restored)

	_, err = s.GetAccessPoint(ctx, id.NewAccessPointID())
	require.ErrorIs(t, err, pandda.ErrAccessPointNotFound)
	_, err = s.DeleteAccessPoint(ctx, id.NewAccessPointID())
	require.ErrorIs(t, err, pandda.ErrAccessPointNotFound)
}

func testCatalog(t *testing.T, s store.Store) {
	ctx := context.Background()
	sd := seedCatalog(t, s)

	srv, err := s.GetServer(ctx, sd.s1.ID)
	require.NoError(t, err)
	assert.Equal(t, sd.s1, srv)
	servers, err := s.ListServers(ctx, server.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, servers, 2)

	srv.Name = "Alpha 2"
	require.NoError(t, s.UpdateServer(ctx, srv))
	srv, err = s.GetServer(ctx, sd.s1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha 2", srv.Name)

	web := &app.App{Entity: entity(time.Second), ID: id.NewAppID(), Name: "Web", ServerID: sd.s2.ID, Kind: app.KindWeb, MultiAccess: true}
	require.NoError(t, s.CreateApp(ctx, web))
	got, err := s.GetApp(ctx, web.ID)
	require.NoError(t, err)
	assert.Equal(t, web, got)

	onS2, err := s.ListApps(ctx, app.ListOpts{ServerID: sd.s2.ID})
	require.NoError(t, err)
	require.Len(t, onS2, 1)
	assert.True(t, onS2[0].MultiAccess)

	web.MultiAccess = false
	require.NoError(t, s.UpdateApp(ctx, web))
	got, err = s.GetApp(ctx, web.ID)
	require.NoError(t, err)
	assert.False(t, got.MultiAccess)

	removedApp, err := s.DeleteApp(ctx, web.ID)
	require.NoError(t, err)
	assert.Equal(t, web.ID, removedApp.ID)
	_, err = s.GetApp(ctx, web.ID)
	require.ErrorIs(t, err, pandda.ErrAppNotFound)

	removedSrv, err := s.DeleteServer(ctx, sd.s2.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beta", removedSrv.Name)
	_, err = s.GetServer(ctx, sd.s2.ID)
	require.ErrorIs(t, err, pandda.ErrServerNotFound)

	p, err := s.GetPlan(ctx, sd.plan.ID)
	require.NoError(t, err)
	assert.Equal(t, sd.plan, p)
	p.DurationMonths = 3
	require.NoError(t, s.UpdatePlan(ctx, p))
	plans, err := s.ListPlans(ctx, plan.ListOpts{})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, 3, plans[0].DurationMonths)

	_, err = s.DeletePlan(ctx, sd.plan.ID)
	require.NoError(t, err)
	_, err = s.GetPlan(ctx, sd.plan.ID)
	require.ErrorIs(t, err, pandda.ErrPlanNotFound)
	require.ErrorIs(t, s.UpdatePlan(ctx, p), pandda.ErrPlanNotFound)
}

func testAdmins(t *testing.T, s store.Store) {
	ctx := context.Background()

	root := &admin.Admin{Entity: entity(0), ID: id.NewAdminID(), Email: "root@example.com", PasswordHash: "hash", Master: true}
	require.NoError(t, s.CreateAdmin(ctx, root))

	dup := &admin.Admin{Entity: entity(0), ID: id.NewAdminID(), Email: "root@example.com", PasswordHash: "x"}
	require.ErrorIs(t, s.CreateAdmin(ctx, dup), pandda.ErrAlreadyExists)

	got, err := s.GetAdmin(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	byEmail, err := s.GetAdminByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, root.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	_, err = s.GetAdminByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, pandda.ErrAdminNotFound)

	got.Master = false
	got.PasswordHash = "new"
	require.NoError(t, s.UpdateAdmin(ctx, got))
	again, err := s.GetAdmin(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	admins, err := s.ListAdmins(ctx, admin.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	removed, err := s.DeleteAdmin(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.Email, removed.Email)
	_, err = s.GetAdmin(ctx, root.ID)
	require.ErrorIs(t, err, pandda.ErrAdminNotFound)
}

func testActivities(t *testing.T, s store.Store) {
	ctx := context.Background()
	actor := id.NewAdminID()
	other := id.NewAdminID()

	acts := []*audit.Activity{
		{ID: id.NewActivityID(), ActorID: actor, Action: audit.ActionCreateCustomer, Target: "cust_a", Detail: "Ana", Timestamp: base},
		{ID: id.NewActivityID(), ActorID: other, Action: audit.ActionRenew, Target: "sub_a", Timestamp: base.Add(time.Minute)},
		{ID: id.NewActivityID(), ActorID: actor, Action: audit.ActionBlockCustomer, Target: "cust_a", Timestamp: base.Add(2 * time.Minute)},
		{ID: id.NewActivityID(), Action: audit.ActionRenew, Target: "sub_b", Timestamp: base.Add(3 * time.Minute)},
	}
	for _, a := range acts {
		require.NoError(t, s.AppendActivity(ctx, a))
	}

	all, err := s.ListActivities(ctx, audit.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, acts[3], all[0], "newest first")
	assert.Equal(t, acts[0], all[3])

	targets := func(opts audit.ListOpts) []string {
		got, err := s.ListActivities(ctx, opts)
		require.NoError(t, err)
		out := make([]string, len(got))
		for i, a := range got {
			out[i] = a.Target
		}
		return out
	}
	assert.Equal(t, []string{"cust_a", "cust_a"}, targets(audit.ListOpts{ActorID: actor}))
	assert.Equal(t, []string{"sub_b", "sub_a"}, targets(audit.ListOpts{Action: audit.ActionRenew}))
	assert.Equal(t, []string{audit.ActionBlockCustomer, audit.ActionCreateCustomer}, actions(t, s, audit.ListOpts{Target: "cust_a"}))
	assert.Equal(t, []string{"sub_b", "cust_a"}, targets(audit.ListOpts{Since: base.Add(2 * time.Minute)}))
	assert.Equal(t, []string{"sub_a"}, targets(audit.ListOpts{Limit: 1, Offset: 2}))
}

func actions(t *testing.T, s store.Store, opts audit.ListOpts) []string {
	t.Helper()
	got, err := s.ListActivities(context.Background(), opts)
	require.NoError(t, err)
	out := make([]string, len(got))
	for i, a := range got {
		out[i] = a.Action
	}
	return out
}
