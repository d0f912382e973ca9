package pandda

import (
	"context"
	"slices"
	"strings"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/capacity"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/plan"
	"github.com/xraph/pandda/renewal"
	"github.com/xraph/pandda/subscription"
)

// SortOrder orders customer overviews.
type SortOrder string

const (
	SortByDueDate SortOrder = "due_date"
	SortByName    SortOrder = "name"
)

// OverviewQuery selects and orders customer overviews.
type OverviewQuery struct {
	Window renewal.Window
	Sort   SortOrder
}

// Overview is a customer joined with its subscription, plan, allocation
// progress and expiry window. Subscription and Plan are nil when missing;
// such customers only appear when Window is empty.
type Overview struct {
	Customer     *customer.Customer         `json:"customer"`
	Subscription *subscription.Subscription `json:"subscription,omitempty"`
	Plan         *plan.Plan                 `json:"plan,omitempty"`
	Progress     capacity.Progress          `json:"progress"`
	Window       renewal.Window             `json:"window,omitempty"`
	DaysUntilDue int                        `json:"days_until_due"`
}

// ListCustomerOverviews builds the customer list of the back office.
func (e *Engine) ListCustomerOverviews(ctx context.Context, q OverviewQuery) ([]*Overview, error) {
	customers, err := e.store.ListCustomers(ctx, customer.ListOpts{})
	if err != nil {
		return nil, err
	}
	subs, err := e.store.ListSubscriptions(ctx, subscription.ListOpts{})
	if err != nil {
		return nil, err
	}
	plans, err := e.store.ListPlans(ctx, plan.ListOpts{})
	if err != nil {
		return nil, err
	}
	aps, err := e.store.ListAccessPoints(ctx, accesspoint.ListOpts{})
	if err != nil {
		return nil, err
	}

	subByCustomer := make(map[id.CustomerID]*subscription.Subscription, len(subs))
	for _, s := range subs {
		if _, ok := subByCustomer[s.CustomerID]; !ok {
			subByCustomer[s.CustomerID] = s
		}
	}
	planByID := make(map[id.PlanID]*plan.Plan, len(plans))
	for _, p := range plans {
		planByID[p.ID] = p
	}
	apsByCustomer := make(map[id.CustomerID][]*accesspoint.AccessPoint)
	for _, ap := range aps {
		apsByCustomer[ap.CustomerID] = append(apsByCustomer[ap.CustomerID], ap)
	}

	now := e.now()
	out := make([]*Overview, 0, len(customers))
	for _, c := range customers {
		ov := &Overview{Customer: c, Plan: planByID[c.PlanID]}

		sub := subByCustomer[c.ID]
		if sub == nil {
			if q.Window != renewal.WindowAll {
				continue
			}
			out = append(out, ov)
			continue
		}
		if !renewal.Matches(q.Window, sub.DueDate, now) {
			continue
		}

		ov.Subscription = sub
		ov.Window = renewal.Classify(sub.DueDate, now)
		ov.DaysUntilDue = renewal.DaysUntil(sub.DueDate, now)
		ov.Progress = capacity.ProgressOf(capacity.Totals(apsByCustomer[c.ID]), c.AssignedServers(), sub.Screens)
		out = append(out, ov)
	}

	sortOverviews(out, q.Sort)
	return out, nil
}

func sortOverviews(out []*Overview, order SortOrder) {
	switch order {
	case SortByName:
		slices.SortStableFunc(out, func(a, b *Overview) int {
			return strings.Compare(strings.ToLower(a.Customer.Name), strings.ToLower(b.Customer.Name))
		})
	default:
		slices.SortStableFunc(out, func(a, b *Overview) int {
			switch {
			case a.Subscription == nil && b.Subscription == nil:
				return 0
			case a.Subscription == nil:
				return 1
			case b.Subscription == nil:
				return -1
			}
			return a.Subscription.DueDate.Compare(b.Subscription.DueDate)
		})
	}
}
