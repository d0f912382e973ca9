// Package capacity sums access-point slots per server and compares the
// result against a subscription's contracted screens.
//
// Every function is pure and runs in a single pass over its input.
package capacity

import (
	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/id"
)

// Totals sums Slots grouped by server. Servers with no access points are
// absent from the result, which reads as zero.
func Totals(aps []*accesspoint.AccessPoint) map[id.ServerID]int {
	totals := make(map[id.ServerID]int)
	for _, ap := range aps {
		if ap == nil {
			continue
		}
		totals[ap.ServerID] += ap.Slots
	}
	return totals
}

// TotalsIfApplied returns the totals aps would have after a single edit.
// With excludingIndex in range, candidate replaces aps[excludingIndex]
// (a nil candidate removes it). With a negative or out-of-range index,
// candidate is appended. aps is not modified.
func TotalsIfApplied(aps []*accesspoint.AccessPoint, candidate *accesspoint.AccessPoint, excludingIndex int) map[id.ServerID]int {
	totals := make(map[id.ServerID]int)
	for i, ap := range aps {
		if i == excludingIndex || ap == nil {
			continue
		}
		totals[ap.ServerID] += ap.Slots
	}
	if candidate != nil {
		totals[candidate.ServerID] += candidate.Slots
	}
	return totals
}

// Mismatch is one assigned server whose allocation differs from the
// contracted screens.
type Mismatch struct {
	Server   id.ServerID
	Expected int
	Actual   int
}

// Mismatches lists every server in servers whose total differs from
// screens, in the order servers are given.
func Mismatches(totals map[id.ServerID]int, servers []id.ServerID, screens int) []Mismatch {
	var out []Mismatch
	for _, srv := range servers {
		if got := totals[srv]; got != screens {
			out = append(out, Mismatch{Server: srv, Expected: screens, Actual: got})
		}
	}
	return out
}

// Progress is the allocation summary shown next to a customer: slots
// allocated on assigned servers against screens times servers.
type Progress struct {
	Allocated int `json:"allocated"`
	Required  int `json:"required"`
}

// Complete reports whether every required slot is allocated.
func (p Progress) Complete() bool { return p.Required > 0 && p.Allocated == p.Required }

// Percent returns the allocation as a percentage, capped at 100.
func (p Progress) Percent() int {
	if p.Required <= 0 {
		return 0
	}
	pct := p.Allocated * 100 / p.Required
	if pct > 100 {
		return 100
	}
	return pct
}

// ProgressOf computes the Progress for servers given totals.
func ProgressOf(totals map[id.ServerID]int, servers []id.ServerID, screens int) Progress {
	p := Progress{Required: screens * len(servers)}
	for _, srv := range servers {
		p.Allocated += totals[srv]
	}
	return p
}
