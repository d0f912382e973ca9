// Package postgres implements store.Store on PostgreSQL through a grove
// database handle and its pgdriver. Schema changes are a grove migration
// group.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" migration executor
	"github.com/xraph/grove/migrate"

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

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// Option configures the pgdriver pool.
type Option = driver.Option

// WithMaxConns caps the number of pooled connections.
func WithMaxConns(n int32) Option {
	return driver.WithPoolSize(int(n))
}

// Open connects a pgdriver pool to the database at dsn and wraps it in a
// grove handle.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pgdb := pgdriver.New()
	if err := pgdb.Open(ctx, dsn, opts...); err != nil {
		return nil, fmt.Errorf("pandda/postgres: %w", err)
	}
	db, err := grove.Open(pgdb)
	if err != nil {
		_ = pgdb.Close()
		return nil, fmt.Errorf("pandda/postgres: %w", err)
	}
	return New(db), nil
}

// New creates a PostgreSQL store backed by an open grove database.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate applies the grove migration group.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("%w: pandda/postgres: %w", pandda.ErrMigrationFailed, err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: pandda/postgres: %w", pandda.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	return insert(ctx, s.pg, toCustomerModel(c))
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	r, err := getByID[customerModel](ctx, s.pg, pandda.ErrCustomerNotFound, customerID)
	if err != nil {
		return nil, err
	}
	return fromCustomerModel(r)
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	return update(ctx, s.pg, pandda.ErrCustomerNotFound, toCustomerModel(c))
}

// DeleteCustomer removes the customer, its subscriptions and its access
// points in one transaction.
func (s *Store) DeleteCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	var m *customerModel
	err := s.withTx(ctx, func(tx *pgdriver.PgTx) error {
		var err error
		if m, err = deleteRow[customerModel](ctx, tx, pandda.ErrCustomerNotFound, customerID); err != nil {
			return err
		}
		if _, err := tx.NewDelete((*subscriptionModel)(nil)).Where("customer_id = ?", m.ID).Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewDelete((*accessPointModel)(nil)).Where("customer_id = ?", m.ID).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fromCustomerModel(m)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	var w where
	if !opts.PlanID.IsNil() {
		w.add("plan_id = ?", opts.PlanID.String())
	}
	if !opts.ServerID.IsNil() {
		w.add("(server1_id = ? OR server2_id = ?)", opts.ServerID.String(), opts.ServerID.String())
	}
	if opts.Blocked != nil {
		w.add("blocked = ?", *opts.Blocked)
	}
	rows, err := list[customerModel](ctx, s.pg, &w, "created_at ASC, id ASC", opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(rows, fromCustomerModel)
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return insert(ctx, s.pg, toSubscriptionModel(sub))
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	r, err := getByID[subscriptionModel](ctx, s.pg, pandda.ErrSubscriptionNotFound, subID)
	if err != nil {
		return nil, err
	}
	return fromSubscriptionModel(r)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return update(ctx, s.pg, pandda.ErrSubscriptionNotFound, toSubscriptionModel(sub))
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	r, err := deleteByID[subscriptionModel](ctx, s, pandda.ErrSubscriptionNotFound, subID)
	if err != nil {
		return nil, err
	}
	return fromSubscriptionModel(r)
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var w where
	if !opts.CustomerID.IsNil() {
		w.add("customer_id = ?", opts.CustomerID.String())
	}
	if !opts.PlanID.IsNil() {
		w.add("plan_id = ?", opts.PlanID.String())
	}
	if !opts.DueBefore.IsZero() {
		w.add("due_date < ?", opts.DueBefore)
	}
	rows, err := list[subscriptionModel](ctx, s.pg, &w, "created_at ASC, id ASC", opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(rows, fromSubscriptionModel)
}

// ==================== Access Point Store ====================

func (s *Store) CreateAccessPoint(ctx context.Context, a *accesspoint.AccessPoint) error {
	return insert(ctx, s.pg, toAccessPointModel(a))
}

func (s *Store) GetAccessPoint(ctx context.Context, apID id.AccessPointID) (*accesspoint.AccessPoint, error) {
	r, err := getByID[accessPointModel](ctx, s.pg, pandda.ErrAccessPointNotFound, apID)
	if err != nil {
		return nil, err
	}
	return fromAccessPointModel(r)
}

func (s *Store) UpdateAccessPoint(ctx context.Context, a *accesspoint.AccessPoint) error {
	return update(ctx, s.pg, pandda.ErrAccessPointNotFound, toAccessPointModel(a))
}

func (s *Store) DeleteAccessPoint(ctx context.Context, apID id.AccessPointID) (*accesspoint.AccessPoint, error) {
	r, err := deleteByID[accessPointModel](ctx, s, pandda.ErrAccessPointNotFound, apID)
	if err != nil {
		return nil, err
	}
	return fromAccessPointModel(r)
}

func (s *Store) ListAccessPoints(ctx context.Context, opts accesspoint.ListOpts) ([]*accesspoint.AccessPoint, error) {
	var w where
	if !opts.CustomerID.IsNil() {
		w.add("customer_id = ?", opts.CustomerID.String())
	}
	if !opts.ServerID.IsNil() {
		w.add("server_id = ?", opts.ServerID.String())
	}
	if !opts.AppID.IsNil() {
		w.add("app_id = ?", opts.AppID.String())
	}
	if opts.Username != "" {
		w.add("username = ?", opts.Username)
	}
	rows, err := list[accessPointModel](ctx, s.pg, &w, "created_at ASC, id ASC", opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(rows, fromAccessPointModel)
}

// ==================== Server Store ====================

func (s *Store) CreateServer(ctx context.Context, srv *server.Server) error {
	return insert(ctx, s.pg, toServerModel(srv))
}

func (s *Store) GetServer(ctx context.Context, serverID id.ServerID) (*server.Server, error) {
	r, err := getByID[serverModel](ctx, s.pg, pandda.ErrServerNotFound, serverID)
	if err != nil {
		return nil, err
	}
	return fromServerModel(r)
}

func (s *Store) UpdateServer(ctx context.Context, srv *server.Server) error {
	return update(ctx, s.pg, pandda.ErrServerNotFound, toServerModel(srv))
}

func (s *Store) DeleteServer(ctx context.Context, serverID id.ServerID) (*server.Server, error) {
	r, err := deleteByID[serverModel](ctx, s, pandda.ErrServerNotFound, serverID)
	if err != nil {
		return nil, err
	}
	return fromServerModel(r)
}

func (s *Store) ListServers(ctx context.Context, opts server.ListOpts) ([]*server.Server, error) {
	rows, err := list[serverModel](ctx, s.pg, &where{}, "created_at ASC, id ASC", opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(rows, fromServerModel)
}

// ==================== App Store ====================

func (s *Store) CreateApp(ctx context.Context, a *app.App) error {
	return insert(ctx, s.pg, toAppModel(a))
}

func (s *Store) GetApp(ctx context.Context, appID id.AppID) (*app.App, error) {
	r, err := getByID[appModel](ctx, s.pg, pandda.ErrAppNotFound, appID)
	if err != nil {
		return nil, err
	}
	return fromAppModel(r)
}

func (s *Store) UpdateApp(ctx context.Context, a *app.App) error {
	return update(ctx, s.pg, pandda.ErrAppNotFound, toAppModel(a))
}

func (s *Store) DeleteApp(ctx context.Context, appID id.AppID) (*app.App, error) {
	r, err := deleteByID[appModel](ctx, s, pandda.ErrAppNotFound, appID)
	if err != nil {
		return nil, err
	}
	return fromAppModel(r)
}

func (s *Store) ListApps(ctx context.Context, opts app.ListOpts) ([]*app.App, error) {
	var w where
	if !opts.ServerID.IsNil() {
		w.add("server_id = ?", opts.ServerID.String())
	}
	rows, err := list[appModel](ctx, s.pg, &w, "created_at ASC, id ASC", opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(rows, fromAppModel)
}

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	return insert(ctx, s.pg, toPlanModel(p))
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	r, err := getByID[planModel](ctx, s.pg, pandda.ErrPlanNotFound, planID)
	if err != nil {
		return nil, err
	}
	return fromPlanModel(r)
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	return update(ctx, s.pg, pandda.ErrPlanNotFound, toPlanModel(p))
}

func (s *Store) DeletePlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	r, err := deleteByID[planModel](ctx, s, pandda.ErrPlanNotFound, planID)
	if err != nil {
		return nil, err
	}
	return fromPlanModel(r)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	rows, err := list[planModel](ctx, s.pg, &where{}, "created_at ASC, id ASC", opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(rows, fromPlanModel)
}

// ==================== Admin Store ====================

func (s *Store) CreateAdmin(ctx context.Context, a *admin.Admin) error {
	return insert(ctx, s.pg, toAdminModel(a))
}

func (s *Store) GetAdmin(ctx context.Context, adminID id.AdminID) (*admin.Admin, error) {
	r, err := getByID[adminModel](ctx, s.pg, pandda.ErrAdminNotFound, adminID)
	if err != nil {
		return nil, err
	}
	return fromAdminModel(r)
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	r, err := getOne[adminModel](ctx, s.pg, pandda.ErrAdminNotFound, "lower(email) = lower(?)", email)
	if err != nil {
		return nil, err
	}
	return fromAdminModel(r)
}

func (s *Store) UpdateAdmin(ctx context.Context, a *admin.Admin) error {
	return update(ctx, s.pg, pandda.ErrAdminNotFound, toAdminModel(a))
}

func (s *Store) DeleteAdmin(ctx context.Context, adminID id.AdminID) (*admin.Admin, error) {
	r, err := deleteByID[adminModel](ctx, s, pandda.ErrAdminNotFound, adminID)
	if err != nil {
		return nil, err
	}
	return fromAdminModel(r)
}

func (s *Store) ListAdmins(ctx context.Context, opts admin.ListOpts) ([]*admin.Admin, error) {
	rows, err := list[adminModel](ctx, s.pg, &where{}, "created_at ASC, id ASC", opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(rows, fromAdminModel)
}

// ==================== Audit Store ====================

func (s *Store) AppendActivity(ctx context.Context, a *audit.Activity) error {
	return insert(ctx, s.pg, toActivityModel(a))
}

func (s *Store) ListActivities(ctx context.Context, opts audit.ListOpts) ([]*audit.Activity, error) {
	var w where
	if !opts.ActorID.IsNil() {
		w.add("actor_id = ?", opts.ActorID.String())
	}
	if opts.Action != "" {
		w.add("action = ?", opts.Action)
	}
	if opts.Target != "" {
		w.add("target = ?", opts.Target)
	}
	if !opts.Since.IsZero() {
		w.add("occurred_at >= ?", opts.Since)
	}
	rows, err := list[activityModel](ctx, s.pg, &w, "occurred_at DESC, seq DESC", opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(rows, fromActivityModel)
}

// ==================== Helpers ====================

// queryer is satisfied by both *pgdriver.PgDB and *pgdriver.PgTx.
type queryer interface {
	NewSelect(model ...any) *pgdriver.SelectQuery
	NewInsert(model any) *pgdriver.InsertQuery
	NewUpdate(model any) *pgdriver.UpdateQuery
	NewDelete(model any) *pgdriver.DeleteQuery
}

// where accumulates AND-ed conditions written with ? placeholders.
type where struct {
	conds []string
	args  [][]any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *pgdriver.PgTx) error) error {
	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func insert(ctx context.Context, q queryer, m any) error {
	_, err := q.NewInsert(m).Exec(ctx)
	if isUniqueViolation(err) {
		return pandda.ErrAlreadyExists
	}
	return err
}

func getOne[M any](ctx context.Context, q queryer, notFound error, cond string, args ...any) (*M, error) {
	m := new(M)
	if err := q.NewSelect(m).Where(cond, args...).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, notFound
		}
		return nil, err
	}
	return m, nil
}

func getByID[M any](ctx context.Context, q queryer, notFound error, key id.ID) (*M, error) {
	return getOne[M](ctx, q, notFound, "id = ?", key.String())
}

func update(ctx context.Context, q queryer, notFound error, m any) error {
	res, err := q.NewUpdate(m).WherePK().Exec(ctx)
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

// deleteRow locks one row, removes it and hands it back. Call it inside
// a transaction.
func deleteRow[M any](ctx context.Context, tx *pgdriver.PgTx, notFound error, key id.ID) (*M, error) {
	m := new(M)
	if err := tx.NewSelect(m).Where("id = ?", key.String()).ForUpdate().Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, notFound
		}
		return nil, err
	}
	if _, err := tx.NewDelete(m).WherePK().Exec(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func deleteByID[M any](ctx context.Context, s *Store, notFound error, key id.ID) (*M, error) {
	var m *M
	err := s.withTx(ctx, func(tx *pgdriver.PgTx) error {
		var err error
		m, err = deleteRow[M](ctx, tx, notFound, key)
		return err
	})
	return m, err
}

func list[M any](ctx context.Context, q queryer, w *where, order string, limit, offset int) ([]*M, error) {
	var models []*M
	sel := q.NewSelect(&models)
	for i, cond := range w.conds {
		sel = sel.Where(cond, w.args[i]...)
	}
	sel = sel.OrderExpr(order)
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	if offset > 0 {
		sel = sel.Offset(offset)
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, err
	}
	return models, nil
}

func convert[M, T any](models []*M, from func(*M) (T, error)) ([]T, error) {
	out := make([]T, len(models))
	for i, m := range models {
		v, err := from(m)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isUniqueViolation matches SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
