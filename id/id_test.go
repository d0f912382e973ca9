package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/pandda/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"CustomerID", id.NewCustomerID, "cust_"},
		{"SubscriptionID", id.NewSubscriptionID, "sub_"},
		{"AccessPointID", id.NewAccessPointID, "ap_"},
		{"ServerID", id.NewServerID, "srv_"},
		{"AppID", id.NewAppID, "app_"},
		{"PlanID", id.NewPlanID, "plan_"},
		{"AdminID", id.NewAdminID, "adm_"},
		{"ActivityID", id.NewActivityID, "act_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"CustomerID", id.NewCustomerID, id.ParseCustomerID},
		{"SubscriptionID", id.NewSubscriptionID, id.ParseSubscriptionID},
		{"AccessPointID", id.NewAccessPointID, id.ParseAccessPointID},
		{"ServerID", id.NewServerID, id.ParseServerID},
		{"AppID", id.NewAppID, id.ParseAppID},
		{"PlanID", id.NewPlanID, id.ParsePlanID},
		{"AdminID", id.NewAdminID, id.ParseAdminID},
		{"ActivityID", id.NewActivityID, id.ParseActivityID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != original {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossKindRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseCustomerID rejects sub_", id.NewSubscriptionID().String(), id.ParseCustomerID},
		{"ParseSubscriptionID rejects ap_", id.NewAccessPointID().String(), id.ParseSubscriptionID},
		{"ParseAccessPointID rejects srv_", id.NewServerID().String(), id.ParseAccessPointID},
		{"ParseServerID rejects app_", id.NewAppID().String(), id.ParseServerID},
		{"ParseAppID rejects plan_", id.NewPlanID().String(), id.ParseAppID},
		{"ParsePlanID rejects cust_", id.NewCustomerID().String(), id.ParsePlanID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error for cross-kind parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseOptional(t *testing.T) {
	got, err := id.ParseOptional("", id.PrefixServer)
	if err != nil {
		t.Fatalf("ParseOptional(\"\") failed: %v", err)
	}
	if !got.IsNil() {
		t.Error("expected Nil for empty input")
	}

	srv := id.NewServerID()
	got, err = id.ParseOptional(srv.String(), id.PrefixServer)
	if err != nil {
		t.Fatalf("ParseOptional failed: %v", err)
	}
	if got != srv {
		t.Errorf("mismatch: %q != %q", got, srv)
	}

	if _, err := id.ParseOptional(id.NewAppID().String(), id.PrefixServer); err == nil {
		t.Error("expected error for wrong prefix")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i != id.Nil {
		t.Error("zero value should equal id.Nil")
	}
}

func TestMapKey(t *testing.T) {
	a := id.NewServerID()
	b, err := id.ParseServerID(a.String())
	if err != nil {
		t.Fatal(err)
	}

	m := map[id.ID]int{a: 1}
	m[b]++
	if m[a] != 2 {
		t.Errorf("parsed ID should address the same map entry, got %d", m[a])
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewCustomerID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if restored != original {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewAccessPointID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned != original {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewAccessPointID()
	b := id.NewAccessPointID()
	if a == b {
		t.Errorf("two consecutive NewAccessPointID() calls returned the same ID: %q", a.String())
	}
}
