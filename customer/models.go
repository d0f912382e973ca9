// Package customer defines the customer record and its patch type.
package customer

import (
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/types"
)

// Customer is a reseller customer. Server1ID is mandatory; Server2ID is
// id.Nil when the customer uses a single server.
type Customer struct {
	types.Entity
	ID        id.CustomerID `json:"id"`
	Name      string        `json:"name"`
	Phone     string        `json:"phone"`
	Email     string        `json:"email,omitempty"`
	PlanID    id.PlanID     `json:"plan_id"`
	Server1ID id.ServerID   `json:"server1_id"`
	Server2ID id.ServerID   `json:"server2_id"`
	Blocked   bool          `json:"blocked"`
}

// AssignedServers returns Server1 followed by Server2 when present.
func (c *Customer) AssignedServers() []id.ServerID {
	servers := make([]id.ServerID, 0, 2)
	if !c.Server1ID.IsNil() {
		servers = append(servers, c.Server1ID)
	}
	if !c.Server2ID.IsNil() && c.Server2ID != c.Server1ID {
		servers = append(servers, c.Server2ID)
	}
	return servers
}

// IsAssigned reports whether srv is one of the customer's servers.
func (c *Customer) IsAssigned(srv id.ServerID) bool {
	if srv.IsNil() {
		return false
	}
	return srv == c.Server1ID || srv == c.Server2ID
}

// Clone returns a copy of c.
func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	Name      *string      `json:"name,omitempty"`
	Phone     *string      `json:"phone,omitempty"`
	Email     *string      `json:"email,omitempty"`
	PlanID    *id.PlanID   `json:"plan_id,omitempty"`
	Server1ID *id.ServerID `json:"server1_id,omitempty"`
	Server2ID *id.ServerID `json:"server2_id,omitempty"`
	Blocked   *bool        `json:"blocked,omitempty"`
}

// Apply returns a patched copy of c. c itself is not modified.
func (p Patch) Apply(c *Customer) *Customer {
	out := c.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Phone != nil {
		out.Phone = *p.Phone
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.PlanID != nil {
		out.PlanID = *p.PlanID
	}
	if p.Server1ID != nil {
		out.Server1ID = *p.Server1ID
	}
	if p.Server2ID != nil {
		out.Server2ID = *p.Server2ID
	}
	if p.Blocked != nil {
		out.Blocked = *p.Blocked
	}
	return out
}
