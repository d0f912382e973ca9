package mongo

import (
	"strings"
	"time"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/admin"
	"github.com/xraph/pandda/app"
	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/plan"
	"github.com/xraph/pandda/server"
	"github.com/xraph/pandda/subscription"
	"github.com/xraph/pandda/types"
)

// ==================== Customer documents ====================

type customerDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Phone     string    `bson:"phone"`
	Email     string    `bson:"email"`
	PlanID    string    `bson:"plan_id"`
	Server1ID string    `bson:"server1_id"`
	Server2ID string    `bson:"server2_id"`
	Blocked   bool      `bson:"blocked"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toCustomerDoc(c *customer.Customer) *customerDoc {
	return &customerDoc{
		ID:        c.ID.String(),
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		PlanID:    c.PlanID.String(),
		Server1ID: c.Server1ID.String(),
		Server2ID: c.Server2ID.String(),
		Blocked:   c.Blocked,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromCustomerDoc(d *customerDoc) (*customer.Customer, error) {
	var (
		c   = &customer.Customer{Name: d.Name, Phone: d.Phone, Email: d.Email, Blocked: d.Blocked}
		err error
	)
	c.Entity = entity(d.CreatedAt, d.UpdatedAt)
	if c.ID, err = id.ParseCustomerID(d.ID); err != nil {
		return nil, err
	}
	if c.PlanID, err = id.ParseOptional(d.PlanID, id.PrefixPlan); err != nil {
		return nil, err
	}
	if c.Server1ID, err = id.ParseOptional(d.Server1ID, id.PrefixServer); err != nil {
		return nil, err
	}
	if c.Server2ID, err = id.ParseOptional(d.Server2ID, id.PrefixServer); err != nil {
		return nil, err
	}
	return c, nil
}

// ==================== Subscription documents ====================

type subscriptionDoc struct {
	ID            string     `bson:"_id"`
	CustomerID    string     `bson:"customer_id"`
	PlanID        string     `bson:"plan_id"`
	DueDate       time.Time  `bson:"due_date"`
	PaidAt        *time.Time `bson:"paid_at,omitempty"`
	PaymentMethod string     `bson:"payment_method"`
	Screens       int        `bson:"screens"`
	ValueAmount   int64      `bson:"value_amount"`
	ValueCurrency string     `bson:"value_currency"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

func toSubscriptionDoc(s *subscription.Subscription) *subscriptionDoc {
	var paidAt *time.Time
	if !s.PaidAt.IsZero() {
		paidAt = &s.PaidAt
	}
	return &subscriptionDoc{
		ID:            s.ID.String(),
		CustomerID:    s.CustomerID.String(),
		PlanID:        s.PlanID.String(),
		DueDate:       s.DueDate,
		PaidAt:        paidAt,
		PaymentMethod: string(s.PaymentMethod),
		Screens:       s.Screens,
		ValueAmount:   s.Value.Amount,
		ValueCurrency: s.Value.Currency,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func fromSubscriptionDoc(d *subscriptionDoc) (*subscription.Subscription, error) {
	var (
		s = &subscription.Subscription{
			DueDate:       d.DueDate.UTC(),
			PaymentMethod: subscription.PaymentMethod(d.PaymentMethod),
			Screens:       d.Screens,
			Value:         types.Money{Amount: d.ValueAmount, Currency: d.ValueCurrency},
		}
		err error
	)
	s.Entity = entity(d.CreatedAt, d.UpdatedAt)
	if d.PaidAt != nil {
		s.PaidAt = d.PaidAt.UTC()
	}
	if s.ID, err = id.ParseSubscriptionID(d.ID); err != nil {
		return nil, err
	}
	if s.CustomerID, err = id.ParseCustomerID(d.CustomerID); err != nil {
		return nil, err
	}
	if s.PlanID, err = id.ParseOptional(d.PlanID, id.PrefixPlan); err != nil {
		return nil, err
	}
	return s, nil
}

// ==================== Access point documents ====================

type accessPointDoc struct {
	ID         string    `bson:"_id"`
	CustomerID string    `bson:"customer_id"`
	ServerID   string    `bson:"server_id"`
	AppID      string    `bson:"app_id"`
	Slots      int       `bson:"slots"`
	Username   string    `bson:"username"`
	Secret     string    `bson:"secret"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toAccessPointDoc(a *accesspoint.AccessPoint) *accessPointDoc {
	return &accessPointDoc{
		ID:         a.ID.String(),
		CustomerID: a.CustomerID.String(),
		ServerID:   a.ServerID.String(),
		AppID:      a.AppID.String(),
		Slots:      a.Slots,
		Username:   a.Username,
		Secret:     a.Secret,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func fromAccessPointDoc(d *accessPointDoc) (*accesspoint.AccessPoint, error) {
	var (
		a   = &accesspoint.AccessPoint{Slots: d.Slots, Username: d.Username, Secret: d.Secret}
		err error
	)
	a.Entity = entity(d.CreatedAt, d.UpdatedAt)
	if a.ID, err = id.ParseAccessPointID(d.ID); err != nil {
		return nil, err
	}
	if a.CustomerID, err = id.ParseCustomerID(d.CustomerID); err != nil {
		return nil, err
	}
	if a.ServerID, err = id.ParseOptional(d.ServerID, id.PrefixServer); err != nil {
		return nil, err
	}
	if a.AppID, err = id.ParseOptional(d.AppID, id.PrefixApp); err != nil {
		return nil, err
	}
	return a, nil
}

// ==================== Catalog documents ====================

type serverDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toServerDoc(s *server.Server) *serverDoc {
	return &serverDoc{ID: s.ID.String(), Name: s.Name, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
}

func fromServerDoc(d *serverDoc) (*server.Server, error) {
	serverID, err := id.ParseServerID(d.ID)
	if err != nil {
		return nil, err
	}
	return &server.Server{Entity: entity(d.CreatedAt, d.UpdatedAt), ID: serverID, Name: d.Name}, nil
}

type appDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	ServerID    string    `bson:"server_id"`
	Kind        string    `bson:"kind"`
	MultiAccess bool      `bson:"multi_access"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toAppDoc(a *app.App) *appDoc {
	return &appDoc{
		ID:          a.ID.String(),
		Name:        a.Name,
		ServerID:    a.ServerID.String(),
		Kind:        string(a.Kind),
		MultiAccess: a.MultiAccess,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func fromAppDoc(d *appDoc) (*app.App, error) {
	appID, err := id.ParseAppID(d.ID)
	if err != nil {
		return nil, err
	}
	serverID, err := id.ParseOptional(d.ServerID, id.PrefixServer)
	if err != nil {
		return nil, err
	}
	return &app.App{
		Entity:      entity(d.CreatedAt, d.UpdatedAt),
		ID:          appID,
		Name:        d.Name,
		ServerID:    serverID,
		Kind:        app.Kind(d.Kind),
		MultiAccess: d.MultiAccess,
	}, nil
}

type planDoc struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	DurationMonths int       `bson:"duration_months"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func toPlanDoc(p *plan.Plan) *planDoc {
	return &planDoc{
		ID:             p.ID.String(),
		Name:           p.Name,
		DurationMonths: p.DurationMonths,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPlanDoc(d *planDoc) (*plan.Plan, error) {
	planID, err := id.ParsePlanID(d.ID)
	if err != nil {
		return nil, err
	}
	return &plan.Plan{
		Entity:         entity(d.CreatedAt, d.UpdatedAt),
		ID:             planID,
		Name:           d.Name,
		DurationMonths: d.DurationMonths,
	}, nil
}

// ==================== Admin documents ====================

type adminDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	EmailKey     string    `bson:"email_key"`
	PasswordHash string    `bson:"password_hash"`
	Master       bool      `bson:"master"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toAdminDoc(a *admin.Admin) *adminDoc {
	return &adminDoc{
		ID:           a.ID.String(),
		Email:        a.Email,
		EmailKey:     strings.ToLower(a.Email),
		PasswordHash: a.PasswordHash,
		Master:       a.Master,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func fromAdminDoc(d *adminDoc) (*admin.Admin, error) {
	adminID, err := id.ParseAdminID(d.ID)
	if err != nil {
		return nil, err
	}
	return &admin.Admin{
		Entity:       entity(d.CreatedAt, d.UpdatedAt),
		ID:           adminID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Master:       d.Master,
	}, nil
}

// ==================== Activity documents ====================

type activityDoc struct {
	ID        string    `bson:"_id"`
	ActorID   string    `bson:"actor_id"`
	Action    string    `bson:"action"`
	Target    string    `bson:"target"`
	Detail    string    `bson:"detail"`
	Timestamp time.Time `bson:"timestamp"`
}

func toActivityDoc(a *audit.Activity) *activityDoc {
	return &activityDoc{
		ID:        a.ID.String(),
		ActorID:   a.ActorID.String(),
		Action:    a.Action,
		Target:    a.Target,
		Detail:    a.Detail,
		Timestamp: a.Timestamp,
	}
}

func fromActivityDoc(d *activityDoc) (*audit.Activity, error) {
	activityID, err := id.ParseActivityID(d.ID)
	if err != nil {
		return nil, err
	}
	actorID, err := id.ParseOptional(d.ActorID, id.PrefixAdmin)
	if err != nil {
		return nil, err
	}
	return &audit.Activity{
		ID:        activityID,
		ActorID:   actorID,
		Action:    d.Action,
		Target:    d.Target,
		Detail:    d.Detail,
		Timestamp: d.Timestamp.UTC(),
	}, nil
}

func entity(created, updated time.Time) types.Entity {
	return types.Entity{CreatedAt: created.UTC(), UpdatedAt: updated.UTC()}
}
