// Package validate checks proposed customer, subscription and access-point
// state against the provisioning constraints.
//
// Expected violations are returned as values in a Result. The only error a
// check returns is a store failure while looking for conflicting
// usernames held by other customers.
package validate

import (
	"cmp"
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/app"
	"github.com/xraph/pandda/capacity"
	"github.com/xraph/pandda/id"
)

// Validator runs the constraint checks. It is safe for concurrent use.
type Validator struct {
	structs *validator.Validate
	now     func() time.Time
	loc     *time.Location
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock sets the source of "today" for due-date checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithLocation sets the calendar used to decide which day "today" is.
func WithLocation(loc *time.Location) Option {
	return func(v *Validator) { v.loc = loc }
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		structs: validator.New(validator.WithRequiredStructEnabled()),
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.structs.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// IDs validate as their string form so "required" rejects id.Nil.
	v.structs.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if i, ok := field.Interface().(id.ID); ok {
			return i.String()
		}
		return nil
	}, id.ID{})

	return v
}

// CustomerFields is the flat form a customer is created or edited from.
type CustomerFields struct {
	Name      string      `json:"name" validate:"required"`
	Phone     string      `json:"phone" validate:"required"`
	Email     string      `json:"email" validate:"omitempty,email"`
	PlanID    id.PlanID   `json:"plan_id" validate:"required"`
	Server1ID id.ServerID `json:"server1_id" validate:"required"`
	Server2ID id.ServerID `json:"server2_id"`
	Screens   int         `json:"screens" validate:"required,gte=1"`
	DueDate   time.Time   `json:"due_date"`
}

// NormalizePhone strips everything but digits.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCustomerFields checks required fields, the phone number, the
// screen count and that the due date falls on a day after today.
func (v *Validator) ValidateCustomerFields(f CustomerFields) Result {
	f.Name = strings.TrimSpace(f.Name)
	f.Phone = NormalizePhone(f.Phone)
	f.Email = strings.TrimSpace(f.Email)

	var res Result
	if err := v.structs.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			res.add(Violation{Kind: KindInvalidField, Message: err.Error(), Index: -1})
			return res
		}
		for _, fe := range fieldErrs {
			res.add(fromFieldError(fe))
		}
	}

	if !f.Server2ID.IsNil() && f.Server2ID == f.Server1ID {
		res.add(Violation{Kind: KindInvalidField, Field: "server2_id", Message: "must differ from server1_id", Index: -1})
	}

	switch {
	case f.DueDate.IsZero():
		res.add(Violation{Kind: KindMissingField, Field: "due_date", Message: "is required", Index: -1})
	case !v.afterToday(f.DueDate):
		res.add(Violation{Kind: KindPastDueDate, Field: "due_date", Message: "must be after today", Index: -1})
	}

	return res
}

func fromFieldError(fe validator.FieldError) Violation {
	field := fe.Field()
	if fe.Tag() == "required" {
		return Violation{Kind: KindMissingField, Field: field, Message: "is required", Index: -1}
	}

	msg := "is invalid"
	switch fe.Tag() {
	case "email":
		msg = "must be a valid email address"
	case "gte":
		msg = "must be at least " + fe.Param()
	}
	return Violation{Kind: KindInvalidField, Field: field, Message: msg, Index: -1}
}

// afterToday reports whether due's calendar day is later than today's.
func (v *Validator) afterToday(due time.Time) bool {
	now := v.now().In(v.loc)
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.loc)

	d := due.In(v.loc)
	dueDay := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, v.loc)
	return dueDay.After(startOfToday)
}

// ValidateCapacity checks that every server in servers carries exactly
// screens slots across aps.
func (v *Validator) ValidateCapacity(aps []*accesspoint.AccessPoint, servers []id.ServerID, screens int) Result {
	var res Result
	for _, m := range capacity.Mismatches(capacity.Totals(aps), servers, screens) {
		res.add(Violation{
			Kind:     KindCapacityMismatch,
			Field:    "slots",
			Message:  "allocated slots must equal screens",
			Server:   m.Server,
			Expected: m.Expected,
			Actual:   m.Actual,
			Index:    -1,
		})
	}
	return res
}

// ValidateMembership checks each access point in isolation: its server is
// assigned to the customer, its app exists and is hosted there, it has a
// username, and it takes at least one slot.
func (v *Validator) ValidateMembership(aps []*accesspoint.AccessPoint, servers []id.ServerID, apps map[id.AppID]*app.App) Result {
	assigned := make(map[id.ServerID]bool, len(servers))
	for _, s := range servers {
		assigned[s] = true
	}

	var res Result
	for i, ap := range aps {
		if !assigned[ap.ServerID] {
			res.add(Violation{Kind: KindServerNotAssigned, Field: "server_id", Message: "server is not assigned to the customer", Server: ap.ServerID, Index: i})
			continue
		}

		a, ok := apps[ap.AppID]
		if !ok {
			res.add(Violation{Kind: KindUnknownApp, Field: "app_id", Message: "app does not exist", App: ap.AppID, Index: i})
			continue
		}
		if !a.ServerID.IsNil() && a.ServerID != ap.ServerID {
			res.add(Violation{Kind: KindInvalidField, Field: "app_id", Message: "app is not hosted on this server", App: ap.AppID, Server: ap.ServerID, Index: i})
		}

		if strings.TrimSpace(ap.Username) == "" {
			res.add(Violation{Kind: KindMissingField, Field: "username", Message: "is required", Index: i})
		}

		if ap.Slots < 1 {
			res.add(Violation{Kind: KindInvalidField, Field: "slots", Message: "must be at least 1", Index: i})
		}
	}
	return res
}

// Scope is the read access the global exclusivity check needs.
type Scope interface {
	ListAccessPoints(ctx context.Context, opts accesspoint.ListOpts) ([]*accesspoint.AccessPoint, error)
}

type credential struct {
	app      id.AppID
	username string
}

// ValidateExclusivity checks that no (app, username) pair on an exclusive
// app appears twice.
//
// The local check looks only at aps. When it passes and scope is non-nil,
// the store is searched for the same pairs held by other customers; an
// existing access point owned by the proposed access point's customer, or
// with the same id, is not a conflict.
func (v *Validator) ValidateExclusivity(ctx context.Context, aps []*accesspoint.AccessPoint, apps map[id.AppID]*app.App, scope Scope) (Result, error) {
	var res Result
	seen := make(map[credential]int)

	for i, ap := range aps {
		a, ok := apps[ap.AppID]
		if !ok || !a.Exclusive() {
			continue
		}
		key := credential{app: ap.AppID, username: ap.Username}
		if _, dup := seen[key]; dup {
			res.add(duplicate(ap, i))
			continue
		}
		seen[key] = i
	}

	if !res.OK() || scope == nil {
		return res, nil
	}

	for key, i := range seen {
		owner := aps[i]
		existing, err := scope.ListAccessPoints(ctx, accesspoint.ListOpts{AppID: key.app, Username: key.username})
		if err != nil {
			return Result{}, err
		}
		for _, other := range existing {
			if other.ID == owner.ID || other.CustomerID == owner.CustomerID {
				continue
			}
			res.add(duplicate(owner, i))
			break
		}
	}

	// Map iteration order is random; report in input order.
	sortByIndex(res.Violations)
	return res, nil
}

func duplicate(ap *accesspoint.AccessPoint, i int) Violation {
	return Violation{
		Kind:     KindDuplicateExclusiveUser,
		Field:    "username",
		Message:  "username already in use on exclusive app",
		App:      ap.AppID,
		Username: ap.Username,
		Index:    i,
	}
}

func sortByIndex(vs []Violation) {
	slices.SortFunc(vs, func(a, b Violation) int { return cmp.Compare(a.Index, b.Index) })
}
