package sqlite

import (
	"time"

	"github.com/uptrace/bun"

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

// ==================== Customer models ====================

type customerModel struct {
	bun.BaseModel `bun:"table:pandda_customers"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name"`
	Phone     string    `bun:"phone"`
	Email     string    `bun:"email"`
	PlanID    string    `bun:"plan_id"`
	Server1ID string    `bun:"server1_id"`
	Server2ID string    `bun:"server2_id"`
	Blocked   bool      `bun:"blocked"`
	CreatedAt time.Time `bun:"created_at"`
	UpdatedAt time.Time `bun:"updated_at"`
}

func toCustomerModel(c *customer.Customer) *customerModel {
	return &customerModel{
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

func fromCustomerModel(m *customerModel) (*customer.Customer, error) {
	var (
		c   = &customer.Customer{Name: m.Name, Phone: m.Phone, Email: m.Email, Blocked: m.Blocked}
		err error
	)
	c.Entity = entity(m.CreatedAt, m.UpdatedAt)
	if c.ID, err = id.ParseCustomerID(m.ID); err != nil {
		return nil, err
	}
	if c.PlanID, err = id.ParseOptional(m.PlanID, id.PrefixPlan); err != nil {
		return nil, err
	}
	if c.Server1ID, err = id.ParseOptional(m.Server1ID, id.PrefixServer); err != nil {
		return nil, err
	}
	if c.Server2ID, err = id.ParseOptional(m.Server2ID, id.PrefixServer); err != nil {
		return nil, err
	}
	return c, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	bun.BaseModel `bun:"table:pandda_subscriptions"`

	ID            string    `bun:"id,pk"`
	CustomerID    string    `bun:"customer_id"`
	PlanID        string    `bun:"plan_id"`
	DueDate       time.Time `bun:"due_date"`
	PaidAt        time.Time `bun:"paid_at,nullzero"`
	PaymentMethod string    `bun:"payment_method"`
	Screens       int       `bun:"screens"`
	ValueAmount   int64     `bun:"value_amount"`
	ValueCurrency string    `bun:"value_currency"`
	CreatedAt     time.Time `bun:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:            s.ID.String(),
		CustomerID:    s.CustomerID.String(),
		PlanID:        s.PlanID.String(),
		DueDate:       s.DueDate,
		PaidAt:        s.PaidAt,
		PaymentMethod: string(s.PaymentMethod),
		Screens:       s.Screens,
		ValueAmount:   s.Value.Amount,
		ValueCurrency: s.Value.Currency,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	var (
		s = &subscription.Subscription{
			DueDate:       m.DueDate.UTC(),
			PaymentMethod: subscription.PaymentMethod(m.PaymentMethod),
			Screens:       m.Screens,
			Value:         types.Money{Amount: m.ValueAmount, Currency: m.ValueCurrency},
		}
		err error
	)
	s.Entity = entity(m.CreatedAt, m.UpdatedAt)
	if !m.PaidAt.IsZero() {
		s.PaidAt = m.PaidAt.UTC()
	}
	if s.ID, err = id.ParseSubscriptionID(m.ID); err != nil {
		return nil, err
	}
	if s.CustomerID, err = id.ParseCustomerID(m.CustomerID); err != nil {
		return nil, err
	}
	if s.PlanID, err = id.ParseOptional(m.PlanID, id.PrefixPlan); err != nil {
		return nil, err
	}
	return s, nil
}

// ==================== Access point models ====================

type accessPointModel struct {
	bun.BaseModel `bun:"table:pandda_access_points"`

	ID         string    `bun:"id,pk"`
	CustomerID string    `bun:"customer_id"`
	ServerID   string    `bun:"server_id"`
	AppID      string    `bun:"app_id"`
	Slots      int       `bun:"slots"`
	Username   string    `bun:"username"`
	Secret     string    `bun:"secret"`
	CreatedAt  time.Time `bun:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at"`
}

func toAccessPointModel(a *accesspoint.AccessPoint) *accessPointModel {
	return &accessPointModel{
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

func fromAccessPointModel(m *accessPointModel) (*accesspoint.AccessPoint, error) {
	var (
		a   = &accesspoint.AccessPoint{Slots: m.Slots, Username: m.Username, Secret: m.Secret}
		err error
	)
	a.Entity = entity(m.CreatedAt, m.UpdatedAt)
	if a.ID, err = id.ParseAccessPointID(m.ID); err != nil {
		return nil, err
	}
	if a.CustomerID, err = id.ParseCustomerID(m.CustomerID); err != nil {
		return nil, err
	}
	if a.ServerID, err = id.ParseOptional(m.ServerID, id.PrefixServer); err != nil {
		return nil, err
	}
	if a.AppID, err = id.ParseOptional(m.AppID, id.PrefixApp); err != nil {
		return nil, err
	}
	return a, nil
}

// ==================== Catalog models ====================

type serverModel struct {
	bun.BaseModel `bun:"table:pandda_servers"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name"`
	CreatedAt time.Time `bun:"created_at"`
	UpdatedAt time.Time `bun:"updated_at"`
}

func toServerModel(s *server.Server) *serverModel {
	return &serverModel{ID: s.ID.String(), Name: s.Name, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
}

func fromServerModel(m *serverModel) (*server.Server, error) {
	serverID, err := id.ParseServerID(m.ID)
	if err != nil {
		return nil, err
	}
	return &server.Server{Entity: entity(m.CreatedAt, m.UpdatedAt), ID: serverID, Name: m.Name}, nil
}

type appModel struct {
	bun.BaseModel `bun:"table:pandda_apps"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name"`
	ServerID    string    `bun:"server_id"`
	Kind        string    `bun:"kind"`
	MultiAccess bool      `bun:"multi_access"`
	CreatedAt   time.Time `bun:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at"`
}

func toAppModel(a *app.App) *appModel {
	return &appModel{
		ID:          a.ID.String(),
		Name:        a.Name,
		ServerID:    a.ServerID.String(),
		Kind:        string(a.Kind),
		MultiAccess: a.MultiAccess,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func fromAppModel(m *appModel) (*app.App, error) {
	appID, err := id.ParseAppID(m.ID)
	if err != nil {
		return nil, err
	}
	serverID, err := id.ParseOptional(m.ServerID, id.PrefixServer)
	if err != nil {
		return nil, err
	}
	return &app.App{
		Entity:      entity(m.CreatedAt, m.UpdatedAt),
		ID:          appID,
		Name:        m.Name,
		ServerID:    serverID,
		Kind:        app.Kind(m.Kind),
		MultiAccess: m.MultiAccess,
	}, nil
}

type planModel struct {
	bun.BaseModel `bun:"table:pandda_plans"`

	ID             string    `bun:"id,pk"`
	Name           string    `bun:"name"`
	DurationMonths int       `bun:"duration_months"`
	CreatedAt      time.Time `bun:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at"`
}

func toPlanModel(p *plan.Plan) *planModel {
	return &planModel{
		ID:             p.ID.String(),
		Name:           p.Name,
		DurationMonths: p.DurationMonths,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) (*plan.Plan, error) {
	planID, err := id.ParsePlanID(m.ID)
	if err != nil {
		return nil, err
	}
	return &plan.Plan{
		Entity:         entity(m.CreatedAt, m.UpdatedAt),
		ID:             planID,
		Name:           m.Name,
		DurationMonths: m.DurationMonths,
	}, nil
}

// ==================== Admin models ====================

type adminModel struct {
	bun.BaseModel `bun:"table:pandda_admins"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email"`
	PasswordHash string    `bun:"password_hash"`
	Master       bool      `bun:"master"`
	CreatedAt    time.Time `bun:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at"`
}

func toAdminModel(a *admin.Admin) *adminModel {
	return &adminModel{
		ID:           a.ID.String(),
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Master:       a.Master,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func fromAdminModel(m *adminModel) (*admin.Admin, error) {
	adminID, err := id.ParseAdminID(m.ID)
	if err != nil {
		return nil, err
	}
	return &admin.Admin{
		Entity:       entity(m.CreatedAt, m.UpdatedAt),
		ID:           adminID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Master:       m.Master,
	}, nil
}

// ==================== Activity models ====================

type activityModel struct {
	bun.BaseModel `bun:"table:pandda_activities"`

	ID        string    `bun:"id,pk"`
	ActorID   string    `bun:"actor_id"`
	Action    string    `bun:"action"`
	Target    string    `bun:"target"`
	Detail    string    `bun:"detail"`
	Timestamp time.Time `bun:"occurred_at"`
}

func toActivityModel(a *audit.Activity) *activityModel {
	return &activityModel{
		ID:        a.ID.String(),
		ActorID:   a.ActorID.String(),
		Action:    a.Action,
		Target:    a.Target,
		Detail:    a.Detail,
		Timestamp: a.Timestamp,
	}
}

func fromActivityModel(m *activityModel) (*audit.Activity, error) {
	activityID, err := id.ParseActivityID(m.ID)
	if err != nil {
		return nil, err
	}
	actorID, err := id.ParseOptional(m.ActorID, id.PrefixAdmin)
	if err != nil {
		return nil, err
	}
	return &audit.Activity{
		ID:        activityID,
		ActorID:   actorID,
		Action:    m.Action,
		Target:    m.Target,
		Detail:    m.Detail,
		Timestamp: m.Timestamp.UTC(),
	}, nil
}

func entity(created, updated time.Time) types.Entity {
	return types.Entity{CreatedAt: created.UTC(), UpdatedAt: updated.UTC()}
}
