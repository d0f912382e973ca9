package postgres

import (
	"time"

	"github.com/xraph/grove"

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
	grove.BaseModel `grove:"table:pandda_customers"`

	ID        string    `grove:"id,pk"`
	Name      string    `grove:"name"`
	Phone     string    `grove:"phone"`
	Email     string    `grove:"email"`
	PlanID    string    `grove:"plan_id"`
	Server1ID string    `grove:"server1_id"`
	Server2ID string    `grove:"server2_id"`
	Blocked   bool      `grove:"blocked"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
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

func fromCustomerModel(r *customerModel) (*customer.Customer, error) {
	var (
		c   = &customer.Customer{Name: r.Name, Phone: r.Phone, Email: r.Email, Blocked: r.Blocked}
		err error
	)
	c.Entity = entity(r.CreatedAt, r.UpdatedAt)
	if c.ID, err = id.ParseCustomerID(r.ID); err != nil {
		return nil, err
	}
	if c.PlanID, err = id.ParseOptional(r.PlanID, id.PrefixPlan); err != nil {
		return nil, err
	}
	if c.Server1ID, err = id.ParseOptional(r.Server1ID, id.PrefixServer); err != nil {
		return nil, err
	}
	if c.Server2ID, err = id.ParseOptional(r.Server2ID, id.PrefixServer); err != nil {
		return nil, err
	}
	return c, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:pandda_subscriptions"`

	ID            string     `grove:"id,pk"`
	CustomerID    string     `grove:"customer_id"`
	PlanID        string     `grove:"plan_id"`
	DueDate       time.Time  `grove:"due_date"`
	PaidAt        *time.Time `grove:"paid_at"`
	PaymentMethod string     `grove:"payment_method"`
	Screens       int        `grove:"screens"`
	ValueAmount   int64      `grove:"value_amount"`
	ValueCurrency string     `grove:"value_currency"`
	CreatedAt     time.Time  `grove:"created_at"`
	UpdatedAt     time.Time  `grove:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	var paidAt *time.Time
	if !s.PaidAt.IsZero() {
		paidAt = &s.PaidAt
	}
	return &subscriptionModel{
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

func fromSubscriptionModel(r *subscriptionModel) (*subscription.Subscription, error) {
	var (
		s = &subscription.Subscription{
			DueDate:       r.DueDate.UTC(),
			PaymentMethod: subscription.PaymentMethod(r.PaymentMethod),
			Screens:       r.Screens,
			Value:         types.Money{Amount: r.ValueAmount, Currency: r.ValueCurrency},
		}
		err error
	)
	s.Entity = entity(r.CreatedAt, r.UpdatedAt)
	if r.PaidAt != nil {
		s.PaidAt = r.PaidAt.UTC()
	}
	if s.ID, err = id.ParseSubscriptionID(r.ID); err != nil {
		return nil, err
	}
	if s.CustomerID, err = id.ParseCustomerID(r.CustomerID); err != nil {
		return nil, err
	}
	if s.PlanID, err = id.ParseOptional(r.PlanID, id.PrefixPlan); err != nil {
		return nil, err
	}
	return s, nil
}

// ==================== Access point models ====================

type accessPointModel struct {
	grove.BaseModel `grove:"table:pandda_access_points"`

	ID         string    `grove:"id,pk"`
	CustomerID string    `grove:"customer_id"`
	ServerID   string    `grove:"server_id"`
	AppID      string    `grove:"app_id"`
	Slots      int       `grove:"slots"`
	Username   string    `grove:"username"`
	Secret     string    `grove:"secret"`
	CreatedAt  time.Time `grove:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"`
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

func fromAccessPointModel(r *accessPointModel) (*accesspoint.AccessPoint, error) {
	var (
		a   = &accesspoint.AccessPoint{Slots: r.Slots, Username: r.Username, Secret: r.Secret}
		err error
	)
	a.Entity = entity(r.CreatedAt, r.UpdatedAt)
	if a.ID, err = id.ParseAccessPointID(r.ID); err != nil {
		return nil, err
	}
	if a.CustomerID, err = id.ParseCustomerID(r.CustomerID); err != nil {
		return nil, err
	}
	if a.ServerID, err = id.ParseOptional(r.ServerID, id.PrefixServer); err != nil {
		return nil, err
	}
	if a.AppID, err = id.ParseOptional(r.AppID, id.PrefixApp); err != nil {
		return nil, err
	}
	return a, nil
}

// ==================== Catalog models ====================

type serverModel struct {
	grove.BaseModel `grove:"table:pandda_servers"`

	ID        string    `grove:"id,pk"`
	Name      string    `grove:"name"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toServerModel(s *server.Server) *serverModel {
	return &serverModel{ID: s.ID.String(), Name: s.Name, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
}

func fromServerModel(r *serverModel) (*server.Server, error) {
	serverID, err := id.ParseServerID(r.ID)
	if err != nil {
		return nil, err
	}
	return &server.Server{Entity: entity(r.CreatedAt, r.UpdatedAt), ID: serverID, Name: r.Name}, nil
}

type appModel struct {
	grove.BaseModel `grove:"table:pandda_apps"`

	ID          string    `grove:"id,pk"`
	Name        string    `grove:"name"`
	ServerID    string    `grove:"server_id"`
	Kind        string    `grove:"kind"`
	MultiAccess bool      `grove:"multi_access"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
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

func fromAppModel(r *appModel) (*app.App, error) {
	appID, err := id.ParseAppID(r.ID)
	if err != nil {
		return nil, err
	}
	serverID, err := id.ParseOptional(r.ServerID, id.PrefixServer)
	if err != nil {
		return nil, err
	}
	return &app.App{
		Entity:      entity(r.CreatedAt, r.UpdatedAt),
		ID:          appID,
		Name:        r.Name,
		ServerID:    serverID,
		Kind:        app.Kind(r.Kind),
		MultiAccess: r.MultiAccess,
	}, nil
}

type planModel struct {
	grove.BaseModel `grove:"table:pandda_plans"`

	ID             string    `grove:"id,pk"`
	Name           string    `grove:"name"`
	DurationMonths int       `grove:"duration_months"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
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

func fromPlanModel(r *planModel) (*plan.Plan, error) {
	planID, err := id.ParsePlanID(r.ID)
	if err != nil {
		return nil, err
	}
	return &plan.Plan{
		Entity:         entity(r.CreatedAt, r.UpdatedAt),
		ID:             planID,
		Name:           r.Name,
		DurationMonths: r.DurationMonths,
	}, nil
}

// ==================== Admin models ====================

type adminModel struct {
	grove.BaseModel `grove:"table:pandda_admins"`

	ID           string    `grove:"id,pk"`
	Email        string    `grove:"email"`
	PasswordHash string    `grove:"password_hash"`
	Master       bool      `grove:"master"`
	CreatedAt    time.Time `grove:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"`
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

func fromAdminModel(r *adminModel) (*admin.Admin, error) {
	adminID, err := id.ParseAdminID(r.ID)
	if err != nil {
		return nil, err
	}
	return &admin.Admin{
		Entity:       entity(r.CreatedAt, r.UpdatedAt),
		ID:           adminID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Master:       r.Master,
	}, nil
}

// ==================== Activity models ====================

type activityModel struct {
	grove.BaseModel `grove:"table:pandda_activities"`

	ID        string    `grove:"id,pk"`
	ActorID   string    `grove:"actor_id"`
	Action    string    `grove:"action"`
	Target    string    `grove:"target"`
	Detail    string    `grove:"detail"`
	Timestamp time.Time `grove:"occurred_at"`
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

func fromActivityModel(r *activityModel) (*audit.Activity, error) {
	activityID, err := id.ParseActivityID(r.ID)
	if err != nil {
		return nil, err
	}
	actorID, err := id.ParseOptional(r.ActorID, id.PrefixAdmin)
	if err != nil {
		return nil, err
	}
	return &audit.Activity{
		ID:        activityID,
		ActorID:   actorID,
		Action:    r.Action,
		Target:    r.Target,
		Detail:    r.Detail,
		Timestamp: r.Timestamp.UTC(),
	}, nil
}

func entity(created, updated time.Time) types.Entity {
	return types.Entity{CreatedAt: created.UTC(), UpdatedAt: updated.UTC()}
}
