package pandda_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/admin"
	"github.com/xraph/pandda/app"
	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/plan"
	"github.com/xraph/pandda/renewal"
	"github.com/xraph/pandda/server"
	"github.com/xraph/pandda/validate"
)

// ──────────────────────────────────────────────────
// Customers
// ──────────────────────────────────────────────────

func TestSetBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))

	c, err := f.engine.SetBlocked(ctx, f.staff, res.Customer.ID, true)
	require.NoError(t, err)
	assert.True(t, c.Blocked)

	_, err = f.engine.SetBlocked(ctx, f.staff, res.Customer.ID, false)
	require.ErrorIs(t, err, pandda.ErrForbidden)

	c, err = f.engine.SetBlocked(ctx, f.master, res.Customer.ID, false)
	require.NoError(t, err)
	assert.False(t, c.Blocked)

	acts, err := f.engine.Activities(ctx, audit.ListOpts{Target: res.Customer.ID.String()})
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, audit.ActionUnblockCustomer, acts[0].Action)
	assert.Equal(t, audit.ActionBlockCustomer, acts[1].Action)
	assert.Equal(t, f.staff.ID, acts[1].ActorID)
}

func TestDeleteCustomerCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.provision("Ana", 2, point(f.excl1, "a", 1), point(f.excl2, "a", 1))
	bia := f.provision("Bia", 1, point(f.excl1, "b", 1))

	require.ErrorIs(t, f.engine.DeleteCustomer(ctx, f.staff, ana.Customer.ID), pandda.ErrForbidden)
	require.NoError(t, f.engine.DeleteCustomer(ctx, f.master, ana.Customer.ID))

	_, err := f.engine.GetCustomer(ctx, ana.Customer.ID)
	require.ErrorIs(t, err, pandda.ErrCustomerNotFound)
	_, err = f.engine.GetSubscription(ctx, ana.Subscription.ID)
	require.ErrorIs(t, err, pandda.ErrSubscriptionNotFound)

	c, s, a := f.counts()
	assert.Equal(t, 1, c)
	assert.Equal(t, 1, s)
	assert.Equal(t, 1, a)

	aps, err := f.engine.CustomerAccessPoints(ctx, bia.Customer.ID)
	require.NoError(t, err)
	assert.Len(t, aps, 1)

	err = f.engine.DeleteCustomer(ctx, f.master, ana.Customer.ID)
	assert.True(t, pandda.IsNotFound(err))
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

func TestRenewSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))

	jan31 := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.UpdateSubscription(ctx, withDue(res.Subscription, jan31)))

	sub, err := f.engine.RenewSubscription(ctx, f.staff, res.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), sub.DueDate)

	stored, err := f.engine.GetSubscription(ctx, res.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.DueDate, stored.DueDate)

	acts, err := f.engine.Activities(ctx, audit.ListOpts{Action: audit.ActionRenew})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "2024-01-31 -> 2024-03-01", acts[0].Detail)
}

func TestRenewSubscriptionUsesPlanDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quarterly := &plan.Plan{Name: "Trimestral", DurationMonths: 3}
	require.NoError(t, f.engine.CreatePlan(ctx, f.master, quarterly))

	c := f.customer("Ana")
	c.PlanID = quarterly.ID
	res, err := f.engine.CreateCustomer(ctx, f.master, c, f.subscription(1),
		[]*accesspoint.AccessPoint{point(f.excl1, "a", 1)})
	require.NoError(t, err)

	sub, err := f.engine.RenewSubscription(ctx, f.staff, res.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Subscription.DueDate.AddDate(0, 3, 0), sub.DueDate)
}

func TestDeleteSubscriptionMasterOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))

	require.ErrorIs(t, f.engine.DeleteSubscription(ctx, f.staff, res.Subscription.ID), pandda.ErrForbidden)
	require.NoError(t, f.engine.DeleteSubscription(ctx, f.master, res.Subscription.ID))

	_, err := f.engine.GetSubscription(ctx, res.Subscription.ID)
	require.ErrorIs(t, err, pandda.ErrSubscriptionNotFound)
}

// ──────────────────────────────────────────────────
// Catalog
// ──────────────────────────────────────────────────

func TestCatalogGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision("Ana", 1, point(f.excl1, "a", 1))

	require.ErrorIs(t, f.engine.DeleteServer(ctx, f.staff, f.s1.ID), pandda.ErrForbidden)
	require.ErrorIs(t, f.engine.DeleteServer(ctx, f.master, f.s1.ID), pandda.ErrServerInUse)
	require.ErrorIs(t, f.engine.DeleteApp(ctx, f.master, f.excl1.ID), pandda.ErrAppInUse)
	require.ErrorIs(t, f.engine.DeletePlan(ctx, f.master, f.plan.ID), pandda.ErrPlanInUse)

	require.NoError(t, f.engine.DeleteApp(ctx, f.master, f.excl2.ID))
	require.NoError(t, f.engine.DeleteApp(ctx, f.master, f.exclS2.ID))
	require.NoError(t, f.engine.DeleteServer(ctx, f.master, f.s2.ID))

	unused := &plan.Plan{Name: "Anual", DurationMonths: 12}
	require.NoError(t, f.engine.CreatePlan(ctx, f.master, unused))
	require.NoError(t, f.engine.DeletePlan(ctx, f.master, unused.ID))
}

func TestCatalogValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.CreateServer(ctx, f.master, &server.Server{Name: "  "})
	require.ErrorIs(t, err, pandda.ErrMissingField)

	err = f.engine.CreatePlan(ctx, f.master, &plan.Plan{Name: "Zero", DurationMonths: 0})
	require.ErrorIs(t, err, pandda.ErrInvalidField)

	err = f.engine.CreateApp(ctx, f.master, &app.App{Name: "Orphan", ServerID: id.NewServerID()})
	require.ErrorIs(t, err, pandda.ErrServerNotFound)

	a := &app.App{Name: "Plain", ServerID: f.s1.ID}
	require.NoError(t, f.engine.CreateApp(ctx, f.master, a))
	assert.Equal(t, app.KindOther, a.Kind)
}

func TestCatalogUpdatesRecordActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.UpdateServer(ctx, f.staff, &server.Server{ID: f.s1.ID, Name: " Alpha 2 "}))
	require.NoError(t, f.engine.UpdatePlan(ctx, f.staff, &plan.Plan{ID: f.plan.ID, Name: "Trimestral", DurationMonths: 3}))
	renamed := *f.excl2
	renamed.Name = "Player B2"
	require.NoError(t, f.engine.UpdateApp(ctx, f.staff, &renamed))

	srv, err := f.engine.GetServer(ctx, f.s1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha 2", srv.Name)
	assert.Equal(t, testNow, srv.CreatedAt)

	for action, target := range map[string]string{
		audit.ActionUpdateServer: f.s1.ID.String(),
		audit.ActionUpdatePlan:   f.plan.ID.String(),
		audit.ActionUpdateApp:    f.excl2.ID.String(),
	} {
		acts, err := f.engine.Activities(ctx, audit.ListOpts{Action: action})
		require.NoError(t, err)
		require.Len(t, acts, 1, action)
		assert.Equal(t, target, acts[0].Target)
		assert.Equal(t, f.staff.ID, acts[0].ActorID)
	}

	err = f.engine.UpdateServer(ctx, f.staff, &server.Server{ID: id.NewServerID(), Name: "Ghost"})
	require.ErrorIs(t, err, pandda.ErrServerNotFound)
}

func TestUpdateAppServerChangeInUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision("Ana", 1, point(f.excl1, "a", 1))

	moved := *f.excl1
	moved.ServerID = f.s2.ID
	require.ErrorIs(t, f.engine.UpdateApp(ctx, f.master, &moved), pandda.ErrAppInUse)

	a, err := f.engine.GetApp(ctx, f.excl1.ID)
	require.NoError(t, err)
	assert.Equal(t, f.s1.ID, a.ServerID)

	unused := *f.excl2
	unused.ServerID = f.s2.ID
	require.NoError(t, f.engine.UpdateApp(ctx, f.master, &unused))
}

func TestUpdateAppToExclusiveRejectsSharedUsernames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision("Ana", 1, point(f.multi, "shared", 1))
	f.provision("Bia", 1, point(f.multi, "shared", 1))

	exclusive := *f.multi
	exclusive.MultiAccess = false
	err := f.engine.UpdateApp(ctx, f.master, &exclusive)
	require.ErrorIs(t, err, pandda.ErrDuplicateExclusiveUser)

	a, err := f.engine.GetApp(ctx, f.multi.ID)
	require.NoError(t, err)
	assert.True(t, a.MultiAccess)
}

func TestUpdateAppToExclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provision("Ana", 1, point(f.multi, "ana", 1))
	f.provision("Bia", 1, point(f.multi, "bia", 1))

	exclusive := *f.multi
	exclusive.MultiAccess = false
	require.NoError(t, f.engine.UpdateApp(ctx, f.master, &exclusive))

	_, err := f.engine.CreateCustomer(ctx, f.master, f.customer("Caio"), f.subscription(1),
		[]*accesspoint.AccessPoint{point(&exclusive, "ana", 1)})
	require.ErrorIs(t, err, pandda.ErrDuplicateExclusiveUser)
}

func TestDuplicateCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Legacy rows written before the exclusivity check existed.
	for i, username := range []string{"joao", "maria", "joao", "ana", "maria"} {
		ap := point(f.excl1, username, 1)
		ap.ID = id.NewAccessPointID()
		ap.CustomerID = id.NewCustomerID()
		require.NoError(t, f.store.CreateAccessPoint(ctx, ap), "row %d", i)

		shared := point(f.multi, username, 1)
		shared.ID = id.NewAccessPointID()
		shared.CustomerID = ap.CustomerID
		require.NoError(t, f.store.CreateAccessPoint(ctx, shared))
	}

	dups, err := f.engine.DuplicateCredentials(ctx, f.excl1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"joao", "maria"}, dups)

	dups, err = f.engine.DuplicateCredentials(ctx, f.multi.ID)
	require.NoError(t, err)
	assert.Empty(t, dups)

	_, err = f.engine.DuplicateCredentials(ctx, id.NewAppID())
	require.ErrorIs(t, err, pandda.ErrAppNotFound)
}

// ──────────────────────────────────────────────────
// Admins
// ──────────────────────────────────────────────────

func TestAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.engine.Bootstrap(ctx, " Root@Example.com ", "s3cret")
	require.NoError(t, err)
	assert.True(t, root.Master)
	assert.Equal(t, "root@example.com", root.Email)
	assert.NotEqual(t, "s3cret", root.PasswordHash)

	_, err = f.engine.Bootstrap(ctx, "other@example.com", "x")
	require.ErrorIs(t, err, pandda.ErrForbidden)

	rootActor := pandda.ActorFromAdmin(root)
	staff, err := f.engine.CreateAdmin(ctx, rootActor, "staff@example.com", "staffpw", false)
	require.NoError(t, err)
	staffActor := pandda.ActorFromAdmin(staff)

	_, err = f.engine.CreateAdmin(ctx, staffActor, "x@example.com", "pw", false)
	require.ErrorIs(t, err, pandda.ErrForbidden)

	_, err = f.engine.CreateAdmin(ctx, rootActor, "STAFF@example.com", "pw", false)
	require.ErrorIs(t, err, pandda.ErrAlreadyExists)

	got, err := f.engine.Authenticate(ctx, "ROOT@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, root.ID, got.ID)

	_, err = f.engine.Authenticate(ctx, "root@example.com", "wrong")
	require.ErrorIs(t, err, pandda.ErrInvalidCredentials)
	_, err = f.engine.Authenticate(ctx, "nobody@example.com", "s3cret")
	require.ErrorIs(t, err, pandda.ErrInvalidCredentials)

	require.NoError(t, f.engine.ChangeAdminPassword(ctx, staffActor, staff.ID, "newpw"))
	require.ErrorIs(t, f.engine.ChangeAdminPassword(ctx, staffActor, root.ID, "hijack"), pandda.ErrForbidden)
	_, err = f.engine.Authenticate(ctx, "staff@example.com", "newpw")
	require.NoError(t, err)

	require.ErrorIs(t, f.engine.DeleteAdmin(ctx, rootActor, root.ID), pandda.ErrSelfAction)
	require.ErrorIs(t, f.engine.DeleteAdmin(ctx, staffActor, root.ID), pandda.ErrForbidden)

	promoted, err := f.engine.SetAdminMaster(ctx, rootActor, staff.ID, true)
	require.NoError(t, err)
	assert.True(t, promoted.Master)

	require.NoError(t, f.engine.DeleteAdmin(ctx, rootActor, staff.ID))
	admins, err := f.engine.ListAdmins(ctx, admin.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

// ──────────────────────────────────────────────────
// Overviews
// ──────────────────────────────────────────────────

func TestListCustomerOverviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dues := map[string]time.Time{
		"Caio": testNow.AddDate(0, 0, -10),
		"Ana":  testNow.AddDate(0, 1, 0),
		"Duda": testNow.AddDate(0, 0, -40),
		"Bia":  testNow.AddDate(0, 0, 2),
	}
	for _, name := range []string{"Caio", "Ana", "Duda", "Bia"} {
		res := f.provision(name, 1, point(f.multi, name, 1))
		require.NoError(t, f.store.UpdateSubscription(ctx, withDue(res.Subscription, dues[name])))
	}

	names := func(ovs []*pandda.Overview) []string {
		out := make([]string, len(ovs))
		for i, ov := range ovs {
			out[i] = ov.Customer.Name
		}
		return out
	}

	tests := []struct {
		query pandda.OverviewQuery
		want  []string
	}{
		{pandda.OverviewQuery{}, []string{"Duda", "Caio", "Bia", "Ana"}},
		{pandda.OverviewQuery{Sort: pandda.SortByName}, []string{"Ana", "Bia", "Caio", "Duda"}},
		{pandda.OverviewQuery{Window: renewal.WindowCurrent}, []string{"Ana"}},
		{pandda.OverviewQuery{Window: renewal.WindowDueSoon}, []string{"Bia"}},
		{pandda.OverviewQuery{Window: renewal.WindowOverdue}, []string{"Caio"}},
		{pandda.OverviewQuery{Window: renewal.WindowLongOverdue}, []string{"Duda"}},
		{pandda.OverviewQuery{Window: renewal.WindowOverdueAll}, []string{"Duda", "Caio"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.query.Window, tt.query.Sort), func(t *testing.T) {
			ovs, err := f.engine.ListCustomerOverviews(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(ovs))
		})
	}

	ovs, err := f.engine.ListCustomerOverviews(ctx, pandda.OverviewQuery{Window: renewal.WindowDueSoon})
	require.NoError(t, err)
	require.Len(t, ovs, 1)
	assert.Equal(t, 2, ovs[0].DaysUntilDue)
	assert.Equal(t, renewal.WindowDueSoon, ovs[0].Window)
	assert.True(t, ovs[0].Progress.Complete())
	assert.Equal(t, f.plan.ID, ovs[0].Plan.ID)
}

func TestListCustomerOverviewsWithoutSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))
	_, err := f.store.DeleteSubscription(ctx, res.Subscription.ID)
	require.NoError(t, err)

	all, err := f.engine.ListCustomerOverviews(ctx, pandda.OverviewQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].Subscription)

	current, err := f.engine.ListCustomerOverviews(ctx, pandda.OverviewQuery{Window: renewal.WindowCurrent})
	require.NoError(t, err)
	assert.Empty(t, current)
}

// ──────────────────────────────────────────────────
// Errors
// ──────────────────────────────────────────────────

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found", pandda.ErrCustomerNotFound, "customer not found"},
		{"forbidden", pandda.ErrForbidden, "Only a master admin can do this."},
		{"in use", fmt.Errorf("delete: %w", pandda.ErrPlanInUse), "plan is in use by customers or subscriptions"},
		{"persistence", &pandda.PersistenceError{Op: "insert customer", Err: errInjected}, "The operation could not be completed and was reverted. Please try again or contact the operator."},
		{"fatal", &pandda.FatalInconsistencyError{Workflow: "create_customer", Cause: errInjected}, "The operation could not be completed and was reverted. Please try again or contact the operator."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pandda.UserMessage(tt.err))
		})
	}
}

func TestValidationErrorMatching(t *testing.T) {
	err := error(&pandda.ValidationError{Violation: validate.Violation{Kind: validate.KindUnknownApp, Index: 0}})

	assert.ErrorIs(t, err, pandda.ErrValidation)
	assert.ErrorIs(t, err, pandda.ErrUnknownApp)
	assert.NotErrorIs(t, err, pandda.ErrMissingField)
	assert.False(t, pandda.IsRetryable(err))
	assert.NotEmpty(t, pandda.UserMessage(err))
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, pandda.CanTransition(pandda.StateValidating, pandda.StateWriting))
	assert.True(t, pandda.CanTransition(pandda.StateVerifying, pandda.StateCompensating))
	assert.True(t, pandda.CanTransition(pandda.StateCompensating, pandda.StateFatalInconsistency))
	assert.False(t, pandda.CanTransition(pandda.StateValidating, pandda.StateCommitted))
	assert.False(t, pandda.CanTransition(pandda.StateCommitted, pandda.StateCompensating))
	assert.True(t, pandda.StateCompensated.Terminal())
	assert.False(t, pandda.StateWriting.Terminal())
}

func TestActorFromAdmin(t *testing.T) {
	a := &admin.Admin{ID: id.NewAdminID(), Master: true}
	actor := pandda.ActorFromAdmin(a)
	assert.Equal(t, a.ID, actor.ID)
	assert.True(t, actor.Master)
	assert.True(t, pandda.SystemActor.Master)
}
