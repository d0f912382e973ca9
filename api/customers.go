package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/renewal"
	"github.com/xraph/pandda/subscription"
)

// CreateCustomerRequest is the body of POST /customers.
type CreateCustomerRequest struct {
	Customer     customer.Customer          `json:"customer"`
	Subscription subscription.Subscription  `json:"subscription"`
	AccessPoints []*accesspoint.AccessPoint `json:"access_points"`
}

// ReplaceCustomerRequest is the body of PUT /customers/{id}. The access
// point list replaces the customer's current one.
type ReplaceCustomerRequest struct {
	Customer       customer.Patch             `json:"customer"`
	SubscriptionID id.SubscriptionID          `json:"subscription_id"`
	Subscription   *subscription.Patch        `json:"subscription,omitempty"`
	AccessPoints   []*accesspoint.AccessPoint `json:"access_points"`
}

// CustomerDetail is a customer with everything it owns.
type CustomerDetail struct {
	Customer      *customer.Customer           `json:"customer"`
	Subscriptions []*subscription.Subscription `json:"subscriptions"`
	AccessPoints  []*accesspoint.AccessPoint   `json:"access_points"`
}

var windows = map[renewal.Window]bool{
	renewal.WindowAll:         true,
	renewal.WindowCurrent:     true,
	renewal.WindowDueSoon:     true,
	renewal.WindowOverdue:     true,
	renewal.WindowLongOverdue: true,
	renewal.WindowOverdueAll:  true,
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	q := pandda.OverviewQuery{
		Window: renewal.Window(r.URL.Query().Get("window")),
		Sort:   pandda.SortOrder(r.URL.Query().Get("sort")),
	}
	if !windows[q.Window] {
		h.writeError(w, r, fmt.Errorf("%w: unknown window %q", errBadRequest, q.Window))
		return
	}
	switch q.Sort {
	case "", pandda.SortByDueDate, pandda.SortByName:
	default:
		h.writeError(w, r, fmt.Errorf("%w: unknown sort %q", errBadRequest, q.Sort))
		return
	}

	overviews, err := h.engine.ListCustomerOverviews(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overviews)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())

	out, err := h.engine.CreateCustomer(r.Context(), actor, &req.Customer, &req.Subscription, req.AccessPoints)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, id.ParseCustomerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	detail, err := h.customerDetail(r, customerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) replaceCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, id.ParseCustomerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req ReplaceCustomerRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())

	err = h.engine.ReplaceCustomer(r.Context(), actor, customerID, req.Customer, req.SubscriptionID, req.Subscription, req.AccessPoints)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	detail, err := h.customerDetail(r, customerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, id.ParseCustomerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.DeleteCustomer(r.Context(), actor, customerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) blockCustomer(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

func (h *Handler) unblockCustomer(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	customerID, err := pathID(r, id.ParseCustomerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	c, err := h.engine.SetBlocked(r.Context(), actor, customerID, blocked)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) customerDetail(r *http.Request, customerID id.CustomerID) (*CustomerDetail, error) {
	ctx := r.Context()
	c, err := h.engine.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	subs, err := h.engine.ListSubscriptions(ctx, subscription.ListOpts{CustomerID: customerID})
	if err != nil {
		return nil, err
	}
	aps, err := h.engine.CustomerAccessPoints(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &CustomerDetail{Customer: c, Subscriptions: subs, AccessPoints: aps}, nil
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := pathID(r, id.ParseSubscriptionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.engine.GetSubscription(r.Context(), subID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) renewSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := pathID(r, id.ParseSubscriptionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	sub, err := h.engine.RenewSubscription(r.Context(), actor, subID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := pathID(r, id.ParseSubscriptionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.engine.DeleteSubscription(r.Context(), actor, subID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} route variable.
func pathID(r *http.Request, parse func(string) (id.ID, error)) (id.ID, error) {
	v, err := parse(mux.Vars(r)["id"])
	if err != nil {
		return id.Nil, badRequest(err)
	}
	return v, nil
}
