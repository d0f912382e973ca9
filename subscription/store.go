package subscription

import (
	"context"
	"time"

	"github.com/xraph/pandda/id"
)

type Store interface {
	CreateSubscription(ctx context.Context, s *Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	UpdateSubscription(ctx context.Context, s *Subscription) error
	DeleteSubscription(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	ListSubscriptions(ctx context.Context, opts ListOpts) ([]*Subscription, error)
}

type ListOpts struct {
	CustomerID id.CustomerID
	PlanID     id.PlanID
	DueBefore  time.Time
	Limit      int
	Offset     int
}

// Matches reports whether s passes the filters in o.
func (o ListOpts) Matches(s *Subscription) bool {
	if !o.CustomerID.IsNil() && s.CustomerID != o.CustomerID {
		return false
	}
	if !o.PlanID.IsNil() && s.PlanID != o.PlanID {
		return false
	}
	if !o.DueBefore.IsZero() && !s.DueDate.Before(o.DueBefore) {
		return false
	}
	return true
}
