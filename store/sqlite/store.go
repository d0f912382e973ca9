// Package sqlite implements store.Store on SQLite through the bun query
// builder. Schema changes are goose migrations embedded in the binary.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

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

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite via bun.
type Store struct {
	db *bun.DB
}

// Option configures a Store opened with Open.
type Option func(*Store)

// WithDebug logs every query through bundebug.
func WithDebug(verbose bool) Option {
	return func(s *Store) {
		s.db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(verbose)))
	}
}

// Open opens the SQLite database at dsn. ":memory:" gives each Store its
// own private database.
func Open(dsn string, opts ...Option) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("pandda/sqlite: open: %w", err)
	}
	// SQLite allows one writer, and an in-memory database lives only as
	// long as its connection.
	sqldb.SetMaxOpenConns(1)

	s := New(bun.NewDB(sqldb, sqlitedialect.New()))
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// New wraps an existing bun database.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying bun database for direct access.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate applies the embedded goose migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return migrate(ctx, s.db.DB)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	return insert(ctx, s.db, toCustomerModel(c))
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	m, err := getByID[customerModel](ctx, s.db, customerID, pandda.ErrCustomerNotFound)
	if err != nil {
		return nil, err
	}
	return fromCustomerModel(m)
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	return update(ctx, s.db, toCustomerModel(c), pandda.ErrCustomerNotFound)
}

// DeleteCustomer removes the customer, its subscriptions and its access
// points in one transaction.
func (s *Store) DeleteCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	m := new(customerModel)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(m).Where("id = ?", customerID.String()).Scan(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*subscriptionModel)(nil)).
			Where("customer_id = ?", m.ID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*accessPointModel)(nil)).
			Where("customer_id = ?", m.ID).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model(m).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		if isNoRows(err) {
			return nil, pandda.ErrCustomerNotFound
		}
		return nil, err
	}
	return fromCustomerModel(m)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	var models []customerModel
	q := s.db.NewSelect().Model(&models)

	if !opts.PlanID.IsNil() {
		q = q.Where("plan_id = ?", opts.PlanID.String())
	}
	if !opts.ServerID.IsNil() {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("server1_id = ?", opts.ServerID.String()).
				WhereOr("server2_id = ?", opts.ServerID.String())
		})
	}
	if opts.Blocked != nil {
		q = q.Where("blocked = ?", *opts.Blocked)
	}

	if err := paginate(q, opts.Limit, opts.Offset).OrderExpr("rowid ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromCustomerModel)
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return insert(ctx, s.db, toSubscriptionModel(sub))
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m, err := getByID[subscriptionModel](ctx, s.db, subID, pandda.ErrSubscriptionNotFound)
	if err != nil {
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return update(ctx, s.db, toSubscriptionModel(sub), pandda.ErrSubscriptionNotFound)
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m, err := deleteByID[subscriptionModel](ctx, s.db, subID, pandda.ErrSubscriptionNotFound)
	if err != nil {
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.db.NewSelect().Model(&models)

	if !opts.CustomerID.IsNil() {
		q = q.Where("customer_id = ?", opts.CustomerID.String())
	}
	if !opts.PlanID.IsNil() {
		q = q.Where("plan_id = ?", opts.PlanID.String())
	}
	if !opts.DueBefore.IsZero() {
		q = q.Where("due_date < ?", opts.DueBefore)
	}

	if err := paginate(q, opts.Limit, opts.Offset).OrderExpr("rowid ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromSubscriptionModel)
}

// ==================== Access Point Store ====================

func (s *Store) CreateAccessPoint(ctx context.Context, a *accesspoint.AccessPoint) error {
	return insert(ctx, s.db, toAccessPointModel(a))
}

func (s *Store) GetAccessPoint(ctx context.Context, apID id.AccessPointID) (*accesspoint.AccessPoint, error) {
	m, err := getByID[accessPointModel](ctx, s.db, apID, pandda.ErrAccessPointNotFound)
	if err != nil {
		return nil, err
	}
	return fromAccessPointModel(m)
}

func (s *Store) UpdateAccessPoint(ctx context.Context, a *accesspoint.AccessPoint) error {
	return update(ctx, s.db, toAccessPointModel(a), pandda.ErrAccessPointNotFound)
}

func (s *Store) DeleteAccessPoint(ctx context.Context, apID id.AccessPointID) (*accesspoint.AccessPoint, error) {
	m, err := deleteByID[accessPointModel](ctx, s.db, apID, pandda.ErrAccessPointNotFound)
	if err != nil {
		return nil, err
	}
	return fromAccessPointModel(m)
}

func (s *Store) ListAccessPoints(ctx context.Context, opts accesspoint.ListOpts) ([]*accesspoint.AccessPoint, error) {
	var models []accessPointModel
	q := s.db.NewSelect().Model(&models)

	if !opts.CustomerID.IsNil() {
		q = q.Where("customer_id = ?", opts.CustomerID.String())
	}
	if !opts.ServerID.IsNil() {
		q = q.Where("server_id = ?", opts.ServerID.String())
	}
	if !opts.AppID.IsNil() {
		q = q.Where("app_id = ?", opts.AppID.String())
	}
	if opts.Username != "" {
		q = q.Where("username = ?", opts.Username)
	}

	if err := paginate(q, opts.Limit, opts.Offset).OrderExpr("rowid ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromAccessPointModel)
}

// ==================== Server Store ====================

func (s *Store) CreateServer(ctx context.Context, srv *server.Server) error {
	return insert(ctx, s.db, toServerModel(srv))
}

func (s *Store) GetServer(ctx context.Context, serverID id.ServerID) (*server.Server, error) {
	m, err := getByID[serverModel](ctx, s.db, serverID, pandda.ErrServerNotFound)
	if err != nil {
		return nil, err
	}
	return fromServerModel(m)
}

func (s *Store) UpdateServer(ctx context.Context, srv *server.Server) error {
	return update(ctx, s.db, toServerModel(srv), pandda.ErrServerNotFound)
}

func (s *Store) DeleteServer(ctx context.Context, serverID id.ServerID) (*server.Server, error) {
	m, err := deleteByID[serverModel](ctx, s.db, serverID, pandda.ErrServerNotFound)
	if err != nil {
		return nil, err
	}
	return fromServerModel(m)
}

func (s *Store) ListServers(ctx context.Context, opts server.ListOpts) ([]*server.Server, error) {
	var models []serverModel
	q := s.db.NewSelect().Model(&models)
	if err := paginate(q, opts.Limit, opts.Offset).OrderExpr("rowid ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromServerModel)
}

// ==================== App Store ====================

func (s *Store) CreateApp(ctx context.Context, a *app.App) error {
	return insert(ctx, s.db, toAppModel(a))
}

func (s *Store) GetApp(ctx context.Context, appID id.AppID) (*app.App, error) {
	m, err := getByID[appModel](ctx, s.db, appID, pandda.ErrAppNotFound)
	if err != nil {
		return nil, err
	}
	return fromAppModel(m)
}

func (s *Store) UpdateApp(ctx context.Context, a *app.App) error {
	return update(ctx, s.db, toAppModel(a), pandda.ErrAppNotFound)
}

func (s *Store) DeleteApp(ctx context.Context, appID id.AppID) (*app.App, error) {
	m, err := deleteByID[appModel](ctx, s.db, appID, pandda.ErrAppNotFound)
	if err != nil {
		return nil, err
	}
	return fromAppModel(m)
}

func (s *Store) ListApps(ctx context.Context, opts app.ListOpts) ([]*app.App, error) {
	var models []appModel
	q := s.db.NewSelect().Model(&models)
	if !opts.ServerID.IsNil() {
		q = q.Where("server_id = ?", opts.ServerID.String())
	}
	if err := paginate(q, opts.Limit, opts.Offset).OrderExpr("rowid ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromAppModel)
}

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	return insert(ctx, s.db, toPlanModel(p))
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	m, err := getByID[planModel](ctx, s.db, planID, pandda.ErrPlanNotFound)
	if err != nil {
		return nil, err
	}
	return fromPlanModel(m)
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	return update(ctx, s.db, toPlanModel(p), pandda.ErrPlanNotFound)
}

func (s *Store) DeletePlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	m, err := deleteByID[planModel](ctx, s.db, planID, pandda.ErrPlanNotFound)
	if err != nil {
		return nil, err
	}
	return fromPlanModel(m)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	var models []planModel
	q := s.db.NewSelect().Model(&models)
	if err := paginate(q, opts.Limit, opts.Offset).OrderExpr("rowid ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromPlanModel)
}

// ==================== Admin Store ====================

func (s *Store) CreateAdmin(ctx context.Context, a *admin.Admin) error {
	return insert(ctx, s.db, toAdminModel(a))
}

func (s *Store) GetAdmin(ctx context.Context, adminID id.AdminID) (*admin.Admin, error) {
	m, err := getByID[adminModel](ctx, s.db, adminID, pandda.ErrAdminNotFound)
	if err != nil {
		return nil, err
	}
	return fromAdminModel(m)
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	m := new(adminModel)
	err := s.db.NewSelect().Model(m).Where("lower(email) = lower(?)", email).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, pandda.ErrAdminNotFound
		}
		return nil, err
	}
	return fromAdminModel(m)
}

func (s *Store) UpdateAdmin(ctx context.Context, a *admin.Admin) error {
	return update(ctx, s.db, toAdminModel(a), pandda.ErrAdminNotFound)
}

func (s *Store) DeleteAdmin(ctx context.Context, adminID id.AdminID) (*admin.Admin, error) {
	m, err := deleteByID[adminModel](ctx, s.db, adminID, pandda.ErrAdminNotFound)
	if err != nil {
		return nil, err
	}
	return fromAdminModel(m)
}

func (s *Store) ListAdmins(ctx context.Context, opts admin.ListOpts) ([]*admin.Admin, error) {
	var models []adminModel
	q := s.db.NewSelect().Model(&models)
	if err := paginate(q, opts.Limit, opts.Offset).OrderExpr("rowid ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromAdminModel)
}

// ==================== Audit Store ====================

func (s *Store) AppendActivity(ctx context.Context, a *audit.Activity) error {
	return insert(ctx, s.db, toActivityModel(a))
}

func (s *Store) ListActivities(ctx context.Context, opts audit.ListOpts) ([]*audit.Activity, error) {
	var models []activityModel
	q := s.db.NewSelect().Model(&models)

	if !opts.ActorID.IsNil() {
		q = q.Where("actor_id = ?", opts.ActorID.String())
	}
	if opts.Action != "" {
		q = q.Where("action = ?", opts.Action)
	}
	if opts.Target != "" {
		q = q.Where("target = ?", opts.Target)
	}
	if !opts.Since.IsZero() {
		q = q.Where("occurred_at >= ?", opts.Since)
	}

	if err := paginate(q, opts.Limit, opts.Offset).OrderExpr("occurred_at DESC, rowid DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return convert(models, fromActivityModel)
}

// ==================== Helpers ====================

func insert(ctx context.Context, db bun.IDB, model any) error {
	_, err := db.NewInsert().Model(model).Exec(ctx)
	if isUniqueViolation(err) {
		return pandda.ErrAlreadyExists
	}
	return err
}

func getByID[M any](ctx context.Context, db bun.IDB, key id.ID, notFound error) (*M, error) {
	m := new(M)
	if err := db.NewSelect().Model(m).Where("id = ?", key.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, notFound
		}
		return nil, err
	}
	return m, nil
}

func update(ctx context.Context, db bun.IDB, model any, notFound error) error {
	res, err := db.NewUpdate().Model(model).WherePK().Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return pandda.ErrAlreadyExists
		}
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// deleteByID reads and removes one row in a transaction so the caller
// gets the removed record back.
func deleteByID[M any](ctx context.Context, db *bun.DB, key id.ID, notFound error) (*M, error) {
	m := new(M)
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(m).Where("id = ?", key.String()).Scan(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model(m).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		if isNoRows(err) {
			return nil, notFound
		}
		return nil, err
	}
	return m, nil
}

// paginate applies limit and offset. SQLite needs a LIMIT before OFFSET.
func paginate(q *bun.SelectQuery, limit, offset int) *bun.SelectQuery {
	if limit > 0 {
		q = q.Limit(limit)
	} else if offset > 0 {
		q = q.Limit(math.MaxInt32)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

func convert[M, T any](models []M, from func(*M) (T, error)) ([]T, error) {
	out := make([]T, len(models))
	for i := range models {
		v, err := from(&models[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation matches primary-key and unique-index conflicts. Both
// drivers sqliteshim can select report them with this text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
