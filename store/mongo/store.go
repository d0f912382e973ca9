// Package mongo implements store.Store on MongoDB with the official v2
// driver. Migrate creates the indexes each collection needs.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

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

// Collection name constants.
const (
	colCustomers     = "pandda_customers"
	colSubscriptions = "pandda_subscriptions"
	colAccessPoints  = "pandda_access_points"
	colServers       = "pandda_servers"
	colApps          = "pandda_apps"
	colPlans         = "pandda_plans"
	colAdmins        = "pandda_admins"
	colActivities    = "pandda_activities"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	db *mongo.Database
}

// Open connects to uri and uses the named database.
func Open(uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("pandda/mongo: connect: %w", err)
	}
	return New(client.Database(database)), nil
}

// New wraps an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all Pandda collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%w: pandda/mongo: %s indexes: %w", pandda.ErrMigrationFailed, col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.db.Client().Disconnect(context.Background())
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	return insert(ctx, s.db.Collection(colCustomers), toCustomerDoc(c))
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	d, err := getByID[customerDoc](ctx, s.db.Collection(colCustomers), customerID, pandda.ErrCustomerNotFound)
	if err != nil {
		return nil, err
	}
	return fromCustomerDoc(d)
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	return replace(ctx, s.db.Collection(colCustomers), c.ID, toCustomerDoc(c), pandda.ErrCustomerNotFound)
}

// DeleteCustomer removes the customer and then its subscriptions and access
// points. The removals are not atomic: standalone servers have no
// multi-document transactions.
func (s *Store) DeleteCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	d, err := deleteByID[customerDoc](ctx, s.db.Collection(colCustomers), customerID, pandda.ErrCustomerNotFound)
	if err != nil {
		return nil, err
	}
	owned := bson.M{"customer_id": d.ID}
	if _, err := s.db.Collection(colSubscriptions).DeleteMany(ctx, owned); err != nil {
		return nil, fmt.Errorf("pandda/mongo: delete customer subscriptions: %w", err)
	}
	if _, err := s.db.Collection(colAccessPoints).DeleteMany(ctx, owned); err != nil {
		return nil, fmt.Errorf("pandda/mongo: delete customer access points: %w", err)
	}
	return fromCustomerDoc(d)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	filter := bson.M{}
	if !opts.PlanID.IsNil() {
		filter["plan_id"] = opts.PlanID.String()
	}
	if !opts.ServerID.IsNil() {
		filter["$or"] = bson.A{
			bson.M{"server1_id": opts.ServerID.String()},
			bson.M{"server2_id": opts.ServerID.String()},
		}
	}
	if opts.Blocked != nil {
		filter["blocked"] = *opts.Blocked
	}
	docs, err := find[customerDoc](ctx, s.db.Collection(colCustomers), filter, byCreation, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(docs, fromCustomerDoc)
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return insert(ctx, s.db.Collection(colSubscriptions), toSubscriptionDoc(sub))
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	d, err := getByID[subscriptionDoc](ctx, s.db.Collection(colSubscriptions), subID, pandda.ErrSubscriptionNotFound)
	if err != nil {
		return nil, err
	}
	return fromSubscriptionDoc(d)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return replace(ctx, s.db.Collection(colSubscriptions), sub.ID, toSubscriptionDoc(sub), pandda.ErrSubscriptionNotFound)
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	d, err := deleteByID[subscriptionDoc](ctx, s.db.Collection(colSubscriptions), subID, pandda.ErrSubscriptionNotFound)
	if err != nil {
		return nil, err
	}
	return fromSubscriptionDoc(d)
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	filter := bson.M{}
	if !opts.CustomerID.IsNil() {
		filter["customer_id"] = opts.CustomerID.String()
	}
	if !opts.PlanID.IsNil() {
		filter["plan_id"] = opts.PlanID.String()
	}
	if !opts.DueBefore.IsZero() {
		filter["due_date"] = bson.M{"$lt": opts.DueBefore}
	}
	docs, err := find[subscriptionDoc](ctx, s.db.Collection(colSubscriptions), filter, byCreation, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(docs, fromSubscriptionDoc)
}

// ==================== Access Point Store ====================

func (s *Store) CreateAccessPoint(ctx context.Context, a *accesspoint.AccessPoint) error {
	return insert(ctx, s.db.Collection(colAccessPoints), toAccessPointDoc(a))
}

func (s *Store) GetAccessPoint(ctx context.Context, apID id.AccessPointID) (*accesspoint.AccessPoint, error) {
	d, err := getByID[accessPointDoc](ctx, s.db.Collection(colAccessPoints), apID, pandda.ErrAccessPointNotFound)
	if err != nil {
		return nil, err
	}
	return fromAccessPointDoc(d)
}

func (s *Store) UpdateAccessPoint(ctx context.Context, a *accesspoint.AccessPoint) error {
	return replace(ctx, s.db.Collection(colAccessPoints), a.ID, toAccessPointDoc(a), pandda.ErrAccessPointNotFound)
}

func (s *Store) DeleteAccessPoint(ctx context.Context, apID id.AccessPointID) (*accesspoint.AccessPoint, error) {
	d, err := deleteByID[accessPointDoc](ctx, s.db.Collection(colAccessPoints), apID, pandda.ErrAccessPointNotFound)
	if err != nil {
		return nil, err
	}
	return fromAccessPointDoc(d)
}

func (s *Store) ListAccessPoints(ctx context.Context, opts accesspoint.ListOpts) ([]*accesspoint.AccessPoint, error) {
	filter := bson.M{}
	if !opts.CustomerID.IsNil() {
		filter["customer_id"] = opts.CustomerID.String()
	}
	if !opts.ServerID.IsNil() {
		filter["server_id"] = opts.ServerID.String()
	}
	if !opts.AppID.IsNil() {
		filter["app_id"] = opts.AppID.String()
	}
	if opts.Username != "" {
		filter["username"] = opts.Username
	}
	docs, err := find[accessPointDoc](ctx, s.db.Collection(colAccessPoints), filter, byCreation, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(docs, fromAccessPointDoc)
}

// ==================== Server Store ====================

func (s *Store) CreateServer(ctx context.Context, srv *server.Server) error {
	return insert(ctx, s.db.Collection(colServers), toServerDoc(srv))
}

func (s *Store) GetServer(ctx context.Context, serverID id.ServerID) (*server.Server, error) {
	d, err := getByID[serverDoc](ctx, s.db.Collection(colServers), serverID, pandda.ErrServerNotFound)
	if err != nil {
		return nil, err
	}
	return fromServerDoc(d)
}

func (s *Store) UpdateServer(ctx context.Context, srv *server.Server) error {
	return replace(ctx, s.db.Collection(colServers), srv.ID, toServerDoc(srv), pandda.ErrServerNotFound)
}

func (s *Store) DeleteServer(ctx context.Context, serverID id.ServerID) (*server.Server, error) {
	d, err := deleteByID[serverDoc](ctx, s.db.Collection(colServers), serverID, pandda.ErrServerNotFound)
	if err != nil {
		return nil, err
	}
	return fromServerDoc(d)
}

func (s *Store) ListServers(ctx context.Context, opts server.ListOpts) ([]*server.Server, error) {
	docs, err := find[serverDoc](ctx, s.db.Collection(colServers), bson.M{}, byCreation, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(docs, fromServerDoc)
}

// ==================== App Store ====================

func (s *Store) CreateApp(ctx context.Context, a *app.App) error {
	return insert(ctx, s.db.Collection(colApps), toAppDoc(a))
}

func (s *Store) GetApp(ctx context.Context, appID id.AppID) (*app.App, error) {
	d, err := getByID[appDoc](ctx, s.db.Collection(colApps), appID, pandda.ErrAppNotFound)
	if err != nil {
		return nil, err
	}
	return fromAppDoc(d)
}

func (s *Store) UpdateApp(ctx context.Context, a *app.App) error {
	return replace(ctx, s.db.Collection(colApps), a.ID, toAppDoc(a), pandda.ErrAppNotFound)
}

func (s *Store) DeleteApp(ctx context.Context, appID id.AppID) (*app.App, error) {
	d, err := deleteByID[appDoc](ctx, s.db.Collection(colApps), appID, pandda.ErrAppNotFound)
	if err != nil {
		return nil, err
	}
	return fromAppDoc(d)
}

func (s *Store) ListApps(ctx context.Context, opts app.ListOpts) ([]*app.App, error) {
	filter := bson.M{}
	if !opts.ServerID.IsNil() {
		filter["server_id"] = opts.ServerID.String()
	}
	docs, err := find[appDoc](ctx, s.db.Collection(colApps), filter, byCreation, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(docs, fromAppDoc)
}

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	return insert(ctx, s.db.Collection(colPlans), toPlanDoc(p))
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	d, err := getByID[planDoc](ctx, s.db.Collection(colPlans), planID, pandda.ErrPlanNotFound)
	if err != nil {
		return nil, err
	}
	return fromPlanDoc(d)
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	return replace(ctx, s.db.Collection(colPlans), p.ID, toPlanDoc(p), pandda.ErrPlanNotFound)
}

func (s *Store) DeletePlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	d, err := deleteByID[planDoc](ctx, s.db.Collection(colPlans), planID, pandda.ErrPlanNotFound)
	if err != nil {
		return nil, err
	}
	return fromPlanDoc(d)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	docs, err := find[planDoc](ctx, s.db.Collection(colPlans), bson.M{}, byCreation, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(docs, fromPlanDoc)
}

// ==================== Admin Store ====================

func (s *Store) CreateAdmin(ctx context.Context, a *admin.Admin) error {
	return insert(ctx, s.db.Collection(colAdmins), toAdminDoc(a))
}

func (s *Store) GetAdmin(ctx context.Context, adminID id.AdminID) (*admin.Admin, error) {
	d, err := getByID[adminDoc](ctx, s.db.Collection(colAdmins), adminID, pandda.ErrAdminNotFound)
	if err != nil {
		return nil, err
	}
	return fromAdminDoc(d)
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	d := new(adminDoc)
	err := s.db.Collection(colAdmins).FindOne(ctx, bson.M{"email_key": strings.ToLower(email)}).Decode(d)
	if err != nil {
		if isNoDocuments(err) {
			return nil, pandda.ErrAdminNotFound
		}
		return nil, fmt.Errorf("pandda/mongo: get admin by email: %w", err)
	}
	return fromAdminDoc(d)
}

func (s *Store) UpdateAdmin(ctx context.Context, a *admin.Admin) error {
	return replace(ctx, s.db.Collection(colAdmins), a.ID, toAdminDoc(a), pandda.ErrAdminNotFound)
}

func (s *Store) DeleteAdmin(ctx context.Context, adminID id.AdminID) (*admin.Admin, error) {
	d, err := deleteByID[adminDoc](ctx, s.db.Collection(colAdmins), adminID, pandda.ErrAdminNotFound)
	if err != nil {
		return nil, err
	}
	return fromAdminDoc(d)
}

func (s *Store) ListAdmins(ctx context.Context, opts admin.ListOpts) ([]*admin.Admin, error) {
	docs, err := find[adminDoc](ctx, s.db.Collection(colAdmins), bson.M{}, byCreation, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(docs, fromAdminDoc)
}

// ==================== Audit Store ====================

func (s *Store) AppendActivity(ctx context.Context, a *audit.Activity) error {
	return insert(ctx, s.db.Collection(colActivities), toActivityDoc(a))
}

func (s *Store) ListActivities(ctx context.Context, opts audit.ListOpts) ([]*audit.Activity, error) {
	filter := bson.M{}
	if !opts.ActorID.IsNil() {
		filter["actor_id"] = opts.ActorID.String()
	}
	if opts.Action != "" {
		filter["action"] = opts.Action
	}
	if opts.Target != "" {
		filter["target"] = opts.Target
	}
	if !opts.Since.IsZero() {
		filter["timestamp"] = bson.M{"$gte": opts.Since}
	}
	newestFirst := bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}
	docs, err := find[activityDoc](ctx, s.db.Collection(colActivities), filter, newestFirst, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return convert(docs, fromActivityDoc)
}

// ==================== Helpers ====================

var byCreation = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func insert(ctx context.Context, col *mongo.Collection, doc any) error {
	if _, err := col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pandda.ErrAlreadyExists
		}
		return fmt.Errorf("pandda/mongo: insert into %s: %w", col.Name(), err)
	}
	return nil
}

func getByID[D any](ctx context.Context, col *mongo.Collection, key id.ID, notFound error) (*D, error) {
	d := new(D)
	if err := col.FindOne(ctx, bson.M{"_id": key.String()}).Decode(d); err != nil {
		if isNoDocuments(err) {
			return nil, notFound
		}
		return nil, fmt.Errorf("pandda/mongo: get from %s: %w", col.Name(), err)
	}
	return d, nil
}

func replace(ctx context.Context, col *mongo.Collection, key id.ID, doc any, notFound error) error {
	res, err := col.ReplaceOne(ctx, bson.M{"_id": key.String()}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pandda.ErrAlreadyExists
		}
		return fmt.Errorf("pandda/mongo: replace in %s: %w", col.Name(), err)
	}
	if res.MatchedCount == 0 {
		return notFound
	}
	return nil
}

func deleteByID[D any](ctx context.Context, col *mongo.Collection, key id.ID, notFound error) (*D, error) {
	d := new(D)
	if err := col.FindOneAndDelete(ctx, bson.M{"_id": key.String()}).Decode(d); err != nil {
		if isNoDocuments(err) {
			return nil, notFound
		}
		return nil, fmt.Errorf("pandda/mongo: delete from %s: %w", col.Name(), err)
	}
	return d, nil
}

func find[D any](ctx context.Context, col *mongo.Collection, filter bson.M, sort bson.D, limit, offset int) ([]D, error) {
	opts := options.Find().SetSort(sort)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("pandda/mongo: find in %s: %w", col.Name(), err)
	}
	var docs []D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("pandda/mongo: decode %s: %w", col.Name(), err)
	}
	return docs, nil
}

func convert[D, T any](docs []D, from func(*D) (T, error)) ([]T, error) {
	out := make([]T, len(docs))
	for i := range docs {
		v, err := from(&docs[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// isNoDocuments checks if an error is a "no documents" error from MongoDB.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all Pandda collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCustomers: {
			{Keys: bson.D{{Key: "plan_id", Value: 1}}},
			{Keys: bson.D{{Key: "server1_id", Value: 1}}},
			{Keys: bson.D{{Key: "server2_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
			{Keys: bson.D{{Key: "due_date", Value: 1}}},
		},
		colAccessPoints: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
			{Keys: bson.D{{Key: "app_id", Value: 1}, {Key: "username", Value: 1}}},
		},
		colApps: {
			{Keys: bson.D{{Key: "server_id", Value: 1}}},
		},
		colAdmins: {
			{
				Keys:    bson.D{{Key: "email_key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colActivities: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "target", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
	}
}
