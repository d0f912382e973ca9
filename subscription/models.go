// Package subscription defines a customer's paid subscription: its plan,
// due date, and the number of screens contracted per assigned server.
package subscription

import (
	"time"

	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/types"
)

// PaymentMethod is a free-form label recorded with a payment.
type PaymentMethod string

const (
	PaymentPix    PaymentMethod = "pix"
	PaymentCard   PaymentMethod = "card"
	PaymentCash   PaymentMethod = "cash"
	PaymentBoleto PaymentMethod = "boleto"
)

// Subscription belongs to exactly one customer. Screens is the capacity
// each of the customer's assigned servers must carry.
type Subscription struct {
	types.Entity
	ID            id.SubscriptionID `json:"id"`
	CustomerID    id.CustomerID     `json:"customer_id"`
	PlanID        id.PlanID         `json:"plan_id"`
	DueDate       time.Time         `json:"due_date"`
	PaidAt        time.Time         `json:"paid_at,omitzero"`
	PaymentMethod PaymentMethod     `json:"payment_method,omitempty"`
	Screens       int               `json:"screens"`
	Value         types.Money       `json:"value"`
}

// Clone returns a copy of s.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	PlanID        *id.PlanID     `json:"plan_id,omitempty"`
	DueDate       *time.Time     `json:"due_date,omitempty"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	Screens       *int           `json:"screens,omitempty"`
	Value         *types.Money   `json:"value,omitempty"`
}

// Apply returns a patched copy of s. s itself is not modified.
func (p *Patch) Apply(s *Subscription) *Subscription {
	out := s.Clone()
	if p == nil {
		return out
	}
	if p.PlanID != nil {
		out.PlanID = *p.PlanID
	}
	if p.DueDate != nil {
		out.DueDate = *p.DueDate
	}
	if p.PaidAt != nil {
		out.PaidAt = *p.PaidAt
	}
	if p.PaymentMethod != nil {
		out.PaymentMethod = *p.PaymentMethod
	}
	if p.Screens != nil {
		out.Screens = *p.Screens
	}
	if p.Value != nil {
		out.Value = *p.Value
	}
	return out
}
