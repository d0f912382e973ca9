package pandda_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/app"
	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/plan"
	"github.com/xraph/pandda/server"
	"github.com/xraph/pandda/store/memory"
	"github.com/xraph/pandda/subscription"
	"github.com/xraph/pandda/types"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

// faultyStore wraps the memory store with switchable failures.
type faultyStore struct {
	*memory.Store

	createAPCalls      atomic.Int32
	failCreateAPAt     int32 // 1-based call number, 0 never
	failDeleteAP       atomic.Bool
	deleteAPErr        error // returned by DeleteAccessPoint when set
	failUpdateCustomer atomic.Bool
	failAppend         atomic.Bool
	writes             atomic.Int32
	afterCreateAP      func()
	beforeCreate       func(c *customer.Customer)
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.New()}
}

var errInjected = errors.New("injected failure")

func (f *faultyStore) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	f.writes.Add(1)
	if f.beforeCreate != nil {
		f.beforeCreate(c)
	}
	return f.Store.CreateCustomer(ctx, c)
}

func (f *faultyStore) CreateSubscription(ctx context.Context, s *subscription.Subscription) error {
	f.writes.Add(1)
	return f.Store.CreateSubscription(ctx, s)
}

func (f *faultyStore) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	f.writes.Add(1)
	if f.failUpdateCustomer.Load() {
		return errInjected
	}
	return f.Store.UpdateCustomer(ctx, c)
}

func (f *faultyStore) CreateAccessPoint(ctx context.Context, a *accesspoint.AccessPoint) error {
	f.writes.Add(1)
	n := f.createAPCalls.Add(1)
	if f.failCreateAPAt != 0 && n == f.failCreateAPAt {
		return errInjected
	}
	if err := f.Store.CreateAccessPoint(ctx, a); err != nil {
		return err
	}
	if f.afterCreateAP != nil {
		f.afterCreateAP()
	}
	return nil
}

func (f *faultyStore) DeleteAccessPoint(ctx context.Context, apID pandda.ID) (*accesspoint.AccessPoint, error) {
	if f.failDeleteAP.Load() {
		return nil, errInjected
	}
	if f.deleteAPErr != nil {
		return nil, f.deleteAPErr
	}
	return f.Store.DeleteAccessPoint(ctx, apID)
}

func (f *faultyStore) AppendActivity(ctx context.Context, a *audit.Activity) error {
	if f.failAppend.Load() {
		return errInjected
	}
	return f.Store.AppendActivity(ctx, a)
}

type fixture struct {
	t      *testing.T
	store  *faultyStore
	engine *pandda.Engine

	plan         *plan.Plan
	s1, s2       *server.Server
	excl1, excl2 *app.App // exclusive, on s1
	multi        *app.App // multi-access, on s1
	exclS2       *app.App // exclusive, on s2

	master pandda.Actor
	staff  pandda.Actor
}

func newFixture(t *testing.T, opts ...pandda.Option) *fixture {
	t.Helper()

	st := newFaultyStore()
	base := []pandda.Option{
		pandda.WithClock(func() time.Time { return testNow }),
		pandda.WithLocation(time.UTC),
		pandda.WithLogger(slog.New(slog.DiscardHandler)),
	}
	e := pandda.New(st, append(base, opts...)...)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop() })

	f := &fixture{t: t, store: st, engine: e}
	ctx := context.Background()
	sys := pandda.SystemActor

	f.plan = &plan.Plan{Name: "Mensal", DurationMonths: 1}
	require.NoError(t, e.CreatePlan(ctx, sys, f.plan))

	f.s1 = &server.Server{Name: "Alpha"}
	f.s2 = &server.Server{Name: "Beta"}
	require.NoError(t, e.CreateServer(ctx, sys, f.s1))
	require.NoError(t, e.CreateServer(ctx, sys, f.s2))

	f.excl1 = &app.App{Name: "Player A", ServerID: f.s1.ID, Kind: app.KindAndroid}
	f.excl2 = &app.App{Name: "Player B", ServerID: f.s1.ID, Kind: app.KindSmartTV}
	f.multi = &app.App{Name: "Web", ServerID: f.s1.ID, Kind: app.KindWeb, MultiAccess: true}
	f.exclS2 = &app.App{Name: "Player C", ServerID: f.s2.ID, Kind: app.KindRoku}
	for _, a := range []*app.App{f.excl1, f.excl2, f.multi, f.exclS2} {
		require.NoError(t, e.CreateApp(ctx, sys, a))
	}

	f.master = pandda.Actor{ID: id.NewAdminID(), Master: true}
	f.staff = pandda.Actor{ID: id.NewAdminID()}
	f.store.writes.Store(0)
	return f
}

func (f *fixture) customer(name string) *customer.Customer {
	return &customer.Customer{
		Name:      name,
		Phone:     "(11) 98888-7777",
		PlanID:    f.plan.ID,
		Server1ID: f.s1.ID,
	}
}

func (f *fixture) subscription(screens int) *subscription.Subscription {
	return &subscription.Subscription{
		DueDate: testNow.AddDate(0, 1, 0),
		Screens: screens,
		Value:   types.BRL(2990),
	}
}

func point(a *app.App, username string, slots int) *accesspoint.AccessPoint {
	return &accesspoint.AccessPoint{ServerID: a.ServerID, AppID: a.ID, Username: username, Secret: "s3cret", Slots: slots}
}

func (f *fixture) counts() (customers, subs, aps int) {
	ctx := context.Background()
	cs, err := f.store.ListCustomers(ctx, customer.ListOpts{})
	require.NoError(f.t, err)
	ss, err := f.store.ListSubscriptions(ctx, subscription.ListOpts{})
	require.NoError(f.t, err)
	as, err := f.store.ListAccessPoints(ctx, accesspoint.ListOpts{})
	require.NoError(f.t, err)
	return len(cs), len(ss), len(as)
}

func (f *fixture) requireEmpty() {
	f.t.Helper()
	c, s, a := f.counts()
	assert.Zero(f.t, c, "customers left behind")
	assert.Zero(f.t, s, "subscriptions left behind")
	assert.Zero(f.t, a, "access points left behind")
}

func (f *fixture) provision(name string, screens int, aps ...*accesspoint.AccessPoint) *pandda.Provisioned {
	f.t.Helper()
	res, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer(name), f.subscription(screens), aps)
	require.NoError(f.t, err)
	return res
}

// ──────────────────────────────────────────────────
// Create workflow
// ──────────────────────────────────────────────────

func TestCreateCustomerScenarioA(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer("Ana"), f.subscription(2),
		[]*accesspoint.AccessPoint{point(f.excl1, "ana1", 1), point(f.excl2, "ana2", 1)})
	require.NoError(t, err)

	assert.False(t, res.Customer.ID.IsNil())
	assert.Equal(t, "11988887777", res.Customer.Phone)
	assert.Equal(t, res.Customer.ID, res.Subscription.CustomerID)
	assert.Equal(t, f.plan.ID, res.Subscription.PlanID)
	require.Len(t, res.AccessPoints, 2)
	for _, ap := range res.AccessPoints {
		assert.Equal(t, res.Customer.ID, ap.CustomerID)
		assert.Equal(t, testNow, ap.CreatedAt)
	}

	persisted, err := f.engine.CustomerAccessPoints(context.Background(), res.Customer.ID)
	require.NoError(t, err)
	total := 0
	for _, ap := range persisted {
		total += ap.Slots
	}
	assert.Equal(t, 2, total)

	acts, err := f.engine.Activities(context.Background(), audit.ListOpts{Action: audit.ActionCreateCustomer})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, res.Customer.ID.String(), acts[0].Target)
}

func TestCreateCustomerScenarioB(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer("Ana"), f.subscription(2),
		[]*accesspoint.AccessPoint{point(f.excl1, "ana1", 1), point(f.excl2, "ana2", 2)})

	require.ErrorIs(t, err, pandda.ErrCapacityMismatch)
	assert.True(t, pandda.IsValidation(err))
	var ve *pandda.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, f.s1.ID, ve.Violation.Server)
	assert.Equal(t, 2, ve.Violation.Expected)
	assert.Equal(t, 3, ve.Violation.Actual)

	f.requireEmpty()
}

func TestCreateCustomerScenarioC(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer("Ana"), f.subscription(2),
		[]*accesspoint.AccessPoint{point(f.excl1, "joao", 1), point(f.excl1, "joao", 1)})

	require.ErrorIs(t, err, pandda.ErrDuplicateExclusiveUser)
	assert.Zero(t, f.store.writes.Load(), "no write may happen before the duplicate is found")
	f.requireEmpty()
}

func TestCreateCustomerMultiAccessAllowsSharedUsername(t *testing.T) {
	f := newFixture(t)

	f.provision("Ana", 2, point(f.multi, "shared", 1), point(f.multi, "shared", 1))
}

func TestCreateCustomerDuplicateAcrossCustomers(t *testing.T) {
	f := newFixture(t)
	f.provision("Ana", 1, point(f.excl1, "joao", 1))
	f.store.writes.Store(0)

	_, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer("Bia"), f.subscription(1),
		[]*accesspoint.AccessPoint{point(f.excl1, "joao", 1)})

	require.ErrorIs(t, err, pandda.ErrDuplicateExclusiveUser)
	assert.Zero(t, f.store.writes.Load())
	c, _, a := f.counts()
	assert.Equal(t, 1, c)
	assert.Equal(t, 1, a)
}

func TestCreateCustomerTwoServers(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ana")
	c.Server2ID = f.s2.ID

	_, err := f.engine.CreateCustomer(context.Background(), f.master, c, f.subscription(1),
		[]*accesspoint.AccessPoint{point(f.excl1, "ana", 1)})
	require.ErrorIs(t, err, pandda.ErrCapacityMismatch)
	var ve *pandda.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, f.s2.ID, ve.Violation.Server)
	assert.Equal(t, 0, ve.Violation.Actual)
	f.requireEmpty()

	res, err := f.engine.CreateCustomer(context.Background(), f.master, c, f.subscription(1),
		[]*accesspoint.AccessPoint{point(f.excl1, "ana", 1), point(f.exclS2, "ana", 1)})
	require.NoError(t, err)
	assert.Len(t, res.AccessPoints, 2)
}

func TestCreateCustomerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, c *customer.Customer, s *subscription.Subscription, aps []*accesspoint.AccessPoint)
		want   error
	}{
		{"missing name", func(_ *fixture, c *customer.Customer, _ *subscription.Subscription, _ []*accesspoint.AccessPoint) {
			c.Name = ""
		}, pandda.ErrMissingField},
		{"due today", func(_ *fixture, _ *customer.Customer, s *subscription.Subscription, _ []*accesspoint.AccessPoint) {
			s.DueDate = testNow
		}, pandda.ErrPastDueDate},
		{"unknown plan", func(_ *fixture, c *customer.Customer, _ *subscription.Subscription, _ []*accesspoint.AccessPoint) {
			c.PlanID = id.NewPlanID()
		}, pandda.ErrPlanNotFound},
		{"server not assigned", func(f *fixture, _ *customer.Customer, _ *subscription.Subscription, aps []*accesspoint.AccessPoint) {
			aps[0].ServerID = f.s2.ID
			aps[0].AppID = f.exclS2.ID
		}, pandda.ErrServerNotAssigned},
		{"unknown app", func(_ *fixture, _ *customer.Customer, _ *subscription.Subscription, aps []*accesspoint.AccessPoint) {
			aps[0].AppID = id.NewAppID()
		}, pandda.ErrUnknownApp},
		{"zero slots", func(_ *fixture, _ *customer.Customer, _ *subscription.Subscription, aps []*accesspoint.AccessPoint) {
			aps[0].Slots = 0
		}, pandda.ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c, s := f.customer("Ana"), f.subscription(1)
			aps := []*accesspoint.AccessPoint{point(f.excl1, "ana", 1)}
			tt.mutate(f, c, s, aps)

			_, err := f.engine.CreateCustomer(context.Background(), f.master, c, s, aps)
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.store.writes.Load())
			f.requireEmpty()
		})
	}
}

func TestCreateCustomerDoesNotMutateInput(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ana")
	aps := []*accesspoint.AccessPoint{point(f.excl1, "ana", 1)}

	_, err := f.engine.CreateCustomer(context.Background(), f.master, c, f.subscription(1), aps)
	require.NoError(t, err)
	assert.True(t, c.ID.IsNil())
	assert.True(t, aps[0].ID.IsNil())
}

// ──────────────────────────────────────────────────
// Failure and compensation
// ──────────────────────────────────────────────────

func TestCreateCustomerWriteFailureCompensates(t *testing.T) {
	f := newFixture(t)
	f.store.failCreateAPAt = 2

	_, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer("Ana"), f.subscription(2),
		[]*accesspoint.AccessPoint{point(f.excl1, "a", 1), point(f.excl2, "b", 1)})

	require.ErrorIs(t, err, pandda.ErrPersistence)
	require.ErrorIs(t, err, errInjected)
	assert.True(t, pandda.IsRetryable(err))
	f.requireEmpty()
}

type fatalWatcher struct {
	fatal       atomic.Int32
	compensated atomic.Int32
}

func (w *fatalWatcher) Name() string { return "fatal-watcher" }

func (w *fatalWatcher) OnFatalInconsistency(context.Context, string, error) error {
	w.fatal.Add(1)
	return nil
}

func (w *fatalWatcher) OnProvisioningCompensated(context.Context, string, error) error {
	w.compensated.Add(1)
	return nil
}

func TestCreateCustomerFailedCompensationIsFatal(t *testing.T) {
	watcher := &fatalWatcher{}
	f := newFixture(t, pandda.WithPlugin(watcher))
	f.store.failCreateAPAt = 2
	f.store.failDeleteAP.Store(true)

	_, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer("Ana"), f.subscription(2),
		[]*accesspoint.AccessPoint{point(f.excl1, "a", 1), point(f.excl2, "b", 1)})

	require.ErrorIs(t, err, pandda.ErrFatalInconsistency)
	var fe *pandda.FatalInconsistencyError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "create_customer", fe.Workflow)
	assert.ErrorIs(t, fe.Cause, errInjected)
	assert.Len(t, fe.Failures, 1)
	assert.False(t, pandda.IsRetryable(err))
	assert.Equal(t, int32(1), watcher.fatal.Load())
	assert.Zero(t, watcher.compensated.Load())
}

func TestCreateCustomerUndoOfMissingRecordIsFatal(t *testing.T) {
	watcher := &fatalWatcher{}
	f := newFixture(t, pandda.WithPlugin(watcher))
	f.store.failCreateAPAt = 2
	f.store.deleteAPErr = pandda.ErrAccessPointNotFound

	_, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer("Ana"), f.subscription(2),
		[]*accesspoint.AccessPoint{point(f.excl1, "a", 1), point(f.excl2, "b", 1)})

	require.ErrorIs(t, err, pandda.ErrFatalInconsistency)
	var fe *pandda.FatalInconsistencyError
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe.Failures, 1)
	assert.ErrorIs(t, fe.Failures[0], pandda.ErrAccessPointNotFound)
	assert.Equal(t, int32(1), watcher.fatal.Load())
}

func TestCreateCustomerRejectsNilAccessPoint(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer("Ana"), f.subscription(1),
		[]*accesspoint.AccessPoint{point(f.excl1, "a", 1), nil})

	require.ErrorIs(t, err, pandda.ErrMissingField)
	var ve *pandda.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, ve.Violation.Index)
	assert.Zero(t, f.store.writes.Load())
	f.requireEmpty()
}

func TestCreateCustomerCompensationEmitsHook(t *testing.T) {
	watcher := &fatalWatcher{}
	f := newFixture(t, pandda.WithPlugin(watcher))

	_, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer("Ana"), f.subscription(2),
		[]*accesspoint.AccessPoint{point(f.excl1, "a", 1)})
	require.ErrorIs(t, err, pandda.ErrCapacityMismatch)
	assert.Equal(t, int32(1), watcher.compensated.Load())
}

func TestCreateCustomerCancelledMidWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.store.afterCreateAP = cancel

	_, err := f.engine.CreateCustomer(ctx, f.master, f.customer("Ana"), f.subscription(2),
		[]*accesspoint.AccessPoint{point(f.excl1, "a", 1), point(f.excl2, "b", 1)})

	require.ErrorIs(t, err, context.Canceled)
	f.requireEmpty()
}

func TestCreateCustomerActivityFailureDoesNotUnwind(t *testing.T) {
	f := newFixture(t)
	f.store.failAppend.Store(true)

	res := f.provision("Ana", 1, point(f.excl1, "a", 1))
	_, err := f.engine.GetCustomer(context.Background(), res.Customer.ID)
	require.NoError(t, err)
}

func TestCreateCustomerLockTimeout(t *testing.T) {
	f := newFixture(t, pandda.WithLockTimeout(50*time.Millisecond))
	entered := make(chan struct{})
	unblock := make(chan struct{})
	f.store.beforeCreate = func(c *customer.Customer) {
		if c.Name == "Ana" {
			close(entered)
			<-unblock
		}
	}

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = f.engine.CreateCustomer(context.Background(), f.master, f.customer("Ana"), f.subscription(1),
			[]*accesspoint.AccessPoint{point(f.excl1, "a", 1)})
	}()

	<-entered
	_, err := f.engine.CreateCustomer(context.Background(), f.master, f.customer("Bia"), f.subscription(1),
		[]*accesspoint.AccessPoint{point(f.multi, "b", 1)})
	require.ErrorIs(t, err, pandda.ErrLockTimeout)
	assert.True(t, pandda.IsRetryable(err))

	close(unblock)
	wg.Wait()
	require.NoError(t, firstErr)
}

// ──────────────────────────────────────────────────
// Replace workflow
// ──────────────────────────────────────────────────

func TestReplaceCustomer(t *testing.T) {
	f := newFixture(t)
	res := f.provision("Ana", 2, point(f.excl1, "a", 1), point(f.excl2, "b", 1))

	name := "Ana Maria"
	screens := 3
	err := f.engine.ReplaceCustomer(context.Background(), f.master, res.Customer.ID,
		customer.Patch{Name: &name}, res.Subscription.ID, &subscription.Patch{Screens: &screens},
		[]*accesspoint.AccessPoint{point(f.multi, "web", 2), point(f.excl1, "a", 1)})
	require.NoError(t, err)

	c, err := f.engine.GetCustomer(context.Background(), res.Customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", c.Name)

	s, err := f.engine.GetSubscription(context.Background(), res.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Screens)

	aps, err := f.engine.CustomerAccessPoints(context.Background(), res.Customer.ID)
	require.NoError(t, err)
	require.Len(t, aps, 2)
	for _, ap := range aps {
		assert.NotEqual(t, res.AccessPoints[0].ID, ap.ID)
		assert.NotEqual(t, res.AccessPoints[1].ID, ap.ID)
	}

	acts, err := f.engine.Activities(context.Background(), audit.ListOpts{Action: audit.ActionUpdateCustomer})
	require.NoError(t, err)
	assert.Len(t, acts, 1)
}

func TestReplaceCustomerScenarioD(t *testing.T) {
	f := newFixture(t)
	res := f.provision("Ana", 2, point(f.excl1, "a", 1), point(f.excl2, "b", 1))

	before, err := f.engine.CustomerAccessPoints(context.Background(), res.Customer.ID)
	require.NoError(t, err)

	name := "Changed"
	paid := testNow
	err = f.engine.ReplaceCustomer(context.Background(), f.master, res.Customer.ID,
		customer.Patch{Name: &name}, res.Subscription.ID, &subscription.Patch{PaidAt: &paid},
		[]*accesspoint.AccessPoint{point(f.excl1, "a", 1), point(f.multi, "web", 2)})
	require.ErrorIs(t, err, pandda.ErrCapacityMismatch)

	after, err := f.engine.CustomerAccessPoints(context.Background(), res.Customer.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, before, after, "original access points restored with the same ids")

	c, err := f.engine.GetCustomer(context.Background(), res.Customer.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Customer, c)

	s, err := f.engine.GetSubscription(context.Background(), res.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Subscription, s)
}

func TestReplaceCustomerWriteFailureRestores(t *testing.T) {
	f := newFixture(t)
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))
	f.store.failCreateAPAt = f.store.createAPCalls.Load() + 1

	err := f.engine.ReplaceCustomer(context.Background(), f.master, res.Customer.ID,
		customer.Patch{}, res.Subscription.ID, nil,
		[]*accesspoint.AccessPoint{point(f.excl2, "b", 1)})
	require.ErrorIs(t, err, pandda.ErrPersistence)

	aps, err := f.engine.CustomerAccessPoints(context.Background(), res.Customer.ID)
	require.NoError(t, err)
	require.Len(t, aps, 1)
	assert.Equal(t, res.AccessPoints[0].ID, aps[0].ID)
}

func TestReplaceCustomerKeepsOwnExclusiveUsernames(t *testing.T) {
	f := newFixture(t)
	res := f.provision("Ana", 1, point(f.excl1, "ana", 1))

	err := f.engine.ReplaceCustomer(context.Background(), f.master, res.Customer.ID,
		customer.Patch{}, res.Subscription.ID, nil,
		[]*accesspoint.AccessPoint{point(f.excl1, "ana", 1)})
	require.NoError(t, err)
}

func TestReplaceCustomerRejectsForeignSubscription(t *testing.T) {
	f := newFixture(t)
	ana := f.provision("Ana", 1, point(f.excl1, "a", 1))
	bia := f.provision("Bia", 1, point(f.excl1, "b", 1))

	err := f.engine.ReplaceCustomer(context.Background(), f.master, ana.Customer.ID,
		customer.Patch{}, bia.Subscription.ID, nil, nil)
	require.ErrorIs(t, err, pandda.ErrSubscriptionNotFound)

	err = f.engine.ReplaceCustomer(context.Background(), f.master, id.NewCustomerID(),
		customer.Patch{}, bia.Subscription.ID, nil, nil)
	require.ErrorIs(t, err, pandda.ErrCustomerNotFound)
}

func TestReplaceCustomerPastDueDateOnlyCheckedWhenChanged(t *testing.T) {
	f := newFixture(t)
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))

	// An overdue customer can still be edited without touching the date.
	past := testNow.AddDate(0, -2, 0)
	require.NoError(t, f.store.UpdateSubscription(context.Background(), withDue(res.Subscription, past)))

	name := "Ana B"
	err := f.engine.ReplaceCustomer(context.Background(), f.master, res.Customer.ID,
		customer.Patch{Name: &name}, res.Subscription.ID, nil,
		[]*accesspoint.AccessPoint{point(f.excl1, "a", 1)})
	require.NoError(t, err)

	err = f.engine.ReplaceCustomer(context.Background(), f.master, res.Customer.ID,
		customer.Patch{}, res.Subscription.ID, &subscription.Patch{DueDate: &past},
		[]*accesspoint.AccessPoint{point(f.excl1, "a", 1)})
	require.ErrorIs(t, err, pandda.ErrPastDueDate)
}

func TestReplaceCustomerUpdateFailure(t *testing.T) {
	f := newFixture(t)
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))
	f.store.failUpdateCustomer.Store(true)

	err := f.engine.ReplaceCustomer(context.Background(), f.master, res.Customer.ID,
		customer.Patch{}, res.Subscription.ID, nil,
		[]*accesspoint.AccessPoint{point(f.excl2, "b", 1)})
	require.ErrorIs(t, err, pandda.ErrPersistence)

	aps, err := f.engine.CustomerAccessPoints(context.Background(), res.Customer.ID)
	require.NoError(t, err)
	require.Len(t, aps, 1)
	assert.Equal(t, res.AccessPoints[0].ID, aps[0].ID)
}

func TestReplaceCustomerFailedUndoIsFatal(t *testing.T) {
	f := newFixture(t)
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))

	// The old access point is deleted normally; removing the new one
	// during compensation fails.
	f.store.afterCreateAP = func() { f.store.failDeleteAP.Store(true) }

	err := f.engine.ReplaceCustomer(context.Background(), f.master, res.Customer.ID,
		customer.Patch{}, res.Subscription.ID, nil,
		[]*accesspoint.AccessPoint{point(f.multi, "web", 2)})

	require.ErrorIs(t, err, pandda.ErrFatalInconsistency)
	require.ErrorIs(t, err, pandda.ErrCapacityMismatch)
	var fe *pandda.FatalInconsistencyError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "update_customer", fe.Workflow)
	assert.Len(t, fe.Failures, 1)
}

func TestReplaceCustomerRejectsNilAccessPoint(t *testing.T) {
	f := newFixture(t)
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))
	f.store.writes.Store(0)

	err := f.engine.ReplaceCustomer(context.Background(), f.master, res.Customer.ID,
		customer.Patch{}, res.Subscription.ID, nil, []*accesspoint.AccessPoint{nil})

	require.ErrorIs(t, err, pandda.ErrMissingField)
	var ve *pandda.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, ve.Violation.Index)
	assert.Zero(t, f.store.writes.Load())
}

func TestReplaceCustomerConcurrentRemovalIsFatal(t *testing.T) {
	f := newFixture(t)
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))

	// Another writer removes the customer behind the workflow's back.
	var once sync.Once
	f.store.afterCreateAP = func() {
		once.Do(func() {
			_, err := f.store.Store.DeleteCustomer(context.Background(), res.Customer.ID)
			require.NoError(t, err)
		})
	}

	err := f.engine.ReplaceCustomer(context.Background(), f.master, res.Customer.ID,
		customer.Patch{}, res.Subscription.ID, nil,
		[]*accesspoint.AccessPoint{point(f.excl2, "b", 1)})

	require.ErrorIs(t, err, pandda.ErrFatalInconsistency)
	var fe *pandda.FatalInconsistencyError
	require.ErrorAs(t, err, &fe)
	assert.NotEmpty(t, fe.Failures)
}

// ──────────────────────────────────────────────────
// Delete
// ──────────────────────────────────────────────────

func TestDeleteCustomer(t *testing.T) {
	f := newFixture(t)
	res := f.provision("Ana", 1, point(f.excl1, "a", 1))

	require.ErrorIs(t, f.engine.DeleteCustomer(context.Background(), f.staff, res.Customer.ID), pandda.ErrForbidden)
	require.NoError(t, f.engine.DeleteCustomer(context.Background(), f.master, res.Customer.ID))
	f.requireEmpty()

	err := f.engine.DeleteCustomer(context.Background(), f.master, res.Customer.ID)
	require.ErrorIs(t, err, pandda.ErrCustomerNotFound)
}

func TestDeleteCustomerWaitsForProvisioningLocks(t *testing.T) {
	f := newFixture(t, pandda.WithLockTimeout(50*time.Millisecond))
	bia := f.provision("Bia", 1, point(f.excl2, "b", 1))

	entered := make(chan struct{})
	unblock := make(chan struct{})
	f.store.beforeCreate = func(c *customer.Customer) {
		if c.Name == "Ana" {
			close(entered)
			<-unblock
		}
	}

	var wg sync.WaitGroup
	var createErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, createErr = f.engine.CreateCustomer(context.Background(), f.master, f.customer("Ana"), f.subscription(1),
			[]*accesspoint.AccessPoint{point(f.excl1, "a", 1)})
	}()

	<-entered
	err := f.engine.DeleteCustomer(context.Background(), f.master, bia.Customer.ID)
	require.ErrorIs(t, err, pandda.ErrLockTimeout)
	_, err = f.engine.GetCustomer(context.Background(), bia.Customer.ID)
	require.NoError(t, err)

	close(unblock)
	wg.Wait()
	require.NoError(t, createErr)
	require.NoError(t, f.engine.DeleteCustomer(context.Background(), f.master, bia.Customer.ID))
}

func withDue(s *subscription.Subscription, due time.Time) *subscription.Subscription {
	cp := s.Clone()
	cp.DueDate = due
	return cp
}
