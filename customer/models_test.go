package customer

import (
	"testing"

	"github.com/xraph/pandda/id"
)

func TestAssignedServers(t *testing.T) {
	s1, s2 := id.NewServerID(), id.NewServerID()

	tests := []struct {
		name string
		c    Customer
		want []id.ServerID
	}{
		{"single", Customer{Server1ID: s1}, []id.ServerID{s1}},
		{"two", Customer{Server1ID: s1, Server2ID: s2}, []id.ServerID{s1, s2}},
		{"duplicate second", Customer{Server1ID: s1, Server2ID: s1}, []id.ServerID{s1}},
		{"none", Customer{}, []id.ServerID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.c.AssignedServers()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("index %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPatchApplyDoesNotMutate(t *testing.T) {
	orig := &Customer{ID: id.NewCustomerID(), Name: "Ana", Phone: "11999990000"}
	name := "Ana Maria"
	blocked := true

	out := Patch{Name: &name, Blocked: &blocked}.Apply(orig)

	if out.Name != "Ana Maria" || !out.Blocked {
		t.Errorf("patch not applied: %+v", out)
	}
	if orig.Name != "Ana" || orig.Blocked {
		t.Errorf("original mutated: %+v", orig)
	}
	if out.ID != orig.ID || out.Phone != orig.Phone {
		t.Errorf("untouched fields changed: %+v", out)
	}
}

func TestListOptsMatches(t *testing.T) {
	s1, s2 := id.NewServerID(), id.NewServerID()
	p := id.NewPlanID()
	c := &Customer{PlanID: p, Server1ID: s1, Server2ID: s2}
	yes, no := true, false

	if !(ListOpts{}).Matches(c) {
		t.Error("empty opts should match")
	}
	if !(ListOpts{ServerID: s2}).Matches(c) {
		t.Error("second server should match")
	}
	if (ListOpts{PlanID: id.NewPlanID()}).Matches(c) {
		t.Error("other plan should not match")
	}
	if !(ListOpts{Blocked: &no}).Matches(c) || (ListOpts{Blocked: &yes}).Matches(c) {
		t.Error("blocked filter wrong")
	}
}
