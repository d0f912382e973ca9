// Package plan defines the renewal plans a subscription can be sold under.
package plan

import (
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/types"
)

// Plan sets how many months a renewal advances the due date.
type Plan struct {
	types.Entity
	ID             id.PlanID `json:"id"`
	Name           string    `json:"name"`
	DurationMonths int       `json:"duration_months"`
}
