package customer

import (
	"context"

	"github.com/xraph/pandda/id"
)

// Store persists customers. DeleteCustomer removes the customer's
// subscriptions and access points along with it.
type Store interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, customerID id.CustomerID) (*Customer, error)
	UpdateCustomer(ctx context.Context, c *Customer) error
	DeleteCustomer(ctx context.Context, customerID id.CustomerID) (*Customer, error)
	ListCustomers(ctx context.Context, opts ListOpts) ([]*Customer, error)
}

// ListOpts filters ListCustomers. Zero values match everything.
type ListOpts struct {
	PlanID   id.PlanID
	ServerID id.ServerID // matches Server1ID or Server2ID
	Blocked  *bool
	Limit    int
	Offset   int
}

// Matches reports whether c passes the filters in o.
func (o ListOpts) Matches(c *Customer) bool {
	if !o.PlanID.IsNil() && c.PlanID != o.PlanID {
		return false
	}
	if !o.ServerID.IsNil() && !c.IsAssigned(o.ServerID) {
		return false
	}
	if o.Blocked != nil && c.Blocked != *o.Blocked {
		return false
	}
	return true
}
