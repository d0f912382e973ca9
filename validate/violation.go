package validate

import (
	"fmt"

	"github.com/xraph/pandda/id"
)

// Kind classifies a Violation.
type Kind string

const (
	KindMissingField           Kind = "missing_field"
	KindInvalidField           Kind = "invalid_field"
	KindPastDueDate            Kind = "past_due_date"
	KindCapacityMismatch       Kind = "capacity_mismatch"
	KindDuplicateExclusiveUser Kind = "duplicate_exclusive_user"
	KindServerNotAssigned      Kind = "server_not_assigned"
	KindUnknownApp             Kind = "unknown_app"
)

// Violation is one failed constraint. Only the fields relevant to Kind are
// set; Index is the position of the offending access point in the
// proposed list, or -1.
type Violation struct {
	Kind     Kind        `json:"kind"`
	Field    string      `json:"field,omitempty"`
	Message  string      `json:"message"`
	Server   id.ServerID `json:"server,omitzero"`
	Expected int         `json:"expected,omitempty"`
	Actual   int         `json:"actual,omitempty"`
	App      id.AppID    `json:"app,omitzero"`
	Username string      `json:"username,omitempty"`
	Index    int         `json:"index"`
}

func (v Violation) String() string {
	switch v.Kind {
	case KindCapacityMismatch:
		return fmt.Sprintf("server %s: allocated %d of %d screens", v.Server, v.Actual, v.Expected)
	case KindDuplicateExclusiveUser:
		return fmt.Sprintf("username %q is already in use on exclusive app %s", v.Username, v.App)
	default:
		if v.Field != "" {
			return v.Field + ": " + v.Message
		}
		return v.Message
	}
}

// Result collects the violations of one or more checks.
type Result struct {
	Violations []Violation
}

// OK reports whether no constraint was violated.
func (r Result) OK() bool { return len(r.Violations) == 0 }

// First returns the first violation, if any.
func (r Result) First() (Violation, bool) {
	if len(r.Violations) == 0 {
		return Violation{}, false
	}
	return r.Violations[0], true
}

// Merge returns r followed by other.
func (r Result) Merge(other Result) Result {
	if len(other.Violations) == 0 {
		return r
	}
	out := make([]Violation, 0, len(r.Violations)+len(other.Violations))
	out = append(out, r.Violations...)
	out = append(out, other.Violations...)
	return Result{Violations: out}
}

func (r *Result) add(v Violation) {
	r.Violations = append(r.Violations, v)
}
