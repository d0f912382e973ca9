package capacity

import (
	"testing"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/id"
)

func ap(srv id.ServerID, slots int) *accesspoint.AccessPoint {
	return &accesspoint.AccessPoint{ServerID: srv, Slots: slots}
}

func TestTotals(t *testing.T) {
	s1, s2 := id.NewServerID(), id.NewServerID()

	tests := []struct {
		name string
		aps  []*accesspoint.AccessPoint
		want map[id.ServerID]int
	}{
		{"empty", nil, map[id.ServerID]int{}},
		{"one server", []*accesspoint.AccessPoint{ap(s1, 1), ap(s1, 1)}, map[id.ServerID]int{s1: 2}},
		{"two servers", []*accesspoint.AccessPoint{ap(s1, 2), ap(s2, 1), ap(s2, 1)}, map[id.ServerID]int{s1: 2, s2: 2}},
		{"nil entry", []*accesspoint.AccessPoint{nil, ap(s1, 3)}, map[id.ServerID]int{s1: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Totals(tt.aps)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("server %s: got %d, want %d", k, got[k], v)
				}
			}
		})
	}
}

func TestTotalsIfApplied(t *testing.T) {
	s1, s2 := id.NewServerID(), id.NewServerID()
	aps := []*accesspoint.AccessPoint{ap(s1, 1), ap(s1, 1)}

	tests := []struct {
		name      string
		candidate *accesspoint.AccessPoint
		index     int
		want      map[id.ServerID]int
	}{
		{"append", ap(s2, 2), -1, map[id.ServerID]int{s1: 2, s2: 2}},
		{"replace", ap(s1, 3), 0, map[id.ServerID]int{s1: 4}},
		{"move", ap(s2, 1), 1, map[id.ServerID]int{s1: 1, s2: 1}},
		{"remove", nil, 0, map[id.ServerID]int{s1: 1}},
		{"out of range appends", ap(s1, 1), 9, map[id.ServerID]int{s1: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TotalsIfApplied(aps, tt.candidate, tt.index)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("server %s: got %d, want %d", k, got[k], v)
				}
			}
		})
	}

	if aps[0].Slots != 1 || len(aps) != 2 {
		t.Error("input was modified")
	}
}

func TestMismatches(t *testing.T) {
	s1, s2 := id.NewServerID(), id.NewServerID()
	totals := map[id.ServerID]int{s1: 2, s2: 3}

	if got := Mismatches(totals, []id.ServerID{s1}, 2); len(got) != 0 {
		t.Errorf("expected no mismatches, got %v", got)
	}

	got := Mismatches(totals, []id.ServerID{s1, s2}, 2)
	if len(got) != 1 {
		t.Fatalf("expected one mismatch, got %v", got)
	}
	if got[0].Server != s2 || got[0].Expected != 2 || got[0].Actual != 3 {
		t.Errorf("unexpected mismatch %+v", got[0])
	}

	missing := Mismatches(map[id.ServerID]int{}, []id.ServerID{s1}, 1)
	if len(missing) != 1 || missing[0].Actual != 0 {
		t.Errorf("unallocated server should mismatch with actual 0, got %v", missing)
	}
}

func TestProgress(t *testing.T) {
	s1, s2 := id.NewServerID(), id.NewServerID()

	p := ProgressOf(map[id.ServerID]int{s1: 2, s2: 1}, []id.ServerID{s1, s2}, 2)
	if p.Allocated != 3 || p.Required != 4 {
		t.Errorf("got %+v", p)
	}
	if p.Complete() {
		t.Error("3/4 should not be complete")
	}
	if p.Percent() != 75 {
		t.Errorf("percent: got %d", p.Percent())
	}

	full := ProgressOf(map[id.ServerID]int{s1: 2}, []id.ServerID{s1}, 2)
	if !full.Complete() || full.Percent() != 100 {
		t.Errorf("expected complete, got %+v", full)
	}
}
