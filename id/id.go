// Package id defines TypeID-based identity types for every Pandda record kind.
//
// All records share a single ID struct whose prefix names the record kind
// (customer, subscription, access point, ...). IDs are K-sortable
// (UUIDv7-based), globally unique and URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Pandda record kinds.
const (
	PrefixCustomer     Prefix = "cust" // Reseller customer
	PrefixSubscription Prefix = "sub"  // Capacity contract of a customer
	PrefixAccessPoint  Prefix = "ap"   // Credential bound to one app on one server
	PrefixServer       Prefix = "srv"  // Shared server
	PrefixApp          Prefix = "app"  // Client application hosted on a server
	PrefixPlan         Prefix = "plan" // Commercial plan
	PrefixAdmin        Prefix = "adm"  // Back-office operator
	PrefixActivity     Prefix = "act"  // Audit log entry
)

// ID is the primary identifier type for all Pandda records.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "cust_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// ──────────────────────────────────────────────────
// Kind aliases
// ──────────────────────────────────────────────────

// CustomerID identifies a customer (prefix: "cust").
type CustomerID = ID

// SubscriptionID identifies a subscription (prefix: "sub").
type SubscriptionID = ID

// AccessPointID identifies an access point (prefix: "ap").
type AccessPointID = ID

// ServerID identifies a server (prefix: "srv").
type ServerID = ID

// AppID identifies an app (prefix: "app").
type AppID = ID

// PlanID identifies a plan (prefix: "plan").
type PlanID = ID

// AdminID identifies an admin (prefix: "adm").
type AdminID = ID

// ActivityID identifies an audit log entry (prefix: "act").
type ActivityID = ID

// AnyID accepts any valid prefix.
type AnyID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewCustomerID generates a new customer ID.
func NewCustomerID() ID { return New(PrefixCustomer) }

// NewSubscriptionID generates a new subscription ID.
func NewSubscriptionID() ID { return New(PrefixSubscription) }

// NewAccessPointID generates a new access point ID.
func NewAccessPointID() ID { return New(PrefixAccessPoint) }

// NewServerID generates a new server ID.
func NewServerID() ID { return New(PrefixServer) }

// NewAppID generates a new app ID.
func NewAppID() ID { return New(PrefixApp) }

// NewPlanID generates a new plan ID.
func NewPlanID() ID { return New(PrefixPlan) }

// NewAdminID generates a new admin ID.
func NewAdminID() ID { return New(PrefixAdmin) }

// NewActivityID generates a new audit log entry ID.
func NewActivityID() ID { return New(PrefixActivity) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseCustomerID parses a string and validates the "cust" prefix.
func ParseCustomerID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCustomer) }

// ParseSubscriptionID parses a string and validates the "sub" prefix.
func ParseSubscriptionID(s string) (ID, error) { return ParseWithPrefix(s, PrefixSubscription) }

// ParseAccessPointID parses a string and validates the "ap" prefix.
func ParseAccessPointID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAccessPoint) }

// ParseServerID parses a string and validates the "srv" prefix.
func ParseServerID(s string) (ID, error) { return ParseWithPrefix(s, PrefixServer) }

// ParseAppID parses a string and validates the "app" prefix.
func ParseAppID(s string) (ID, error) { return ParseWithPrefix(s, PrefixApp) }

// ParsePlanID parses a string and validates the "plan" prefix.
func ParsePlanID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPlan) }

// ParseAdminID parses a string and validates the "adm" prefix.
func ParseAdminID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAdmin) }

// ParseActivityID parses a string and validates the "act" prefix.
func ParseActivityID(s string) (ID, error) { return ParseWithPrefix(s, PrefixActivity) }

// ParseAny parses a string into an ID without checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// ParseOptional parses s with the expected prefix, returning Nil for "".
// Used for optional references such as a customer's second server.
func ParseOptional(s string, expected Prefix) (ID, error) {
	if s == "" {
		return Nil, nil
	}
	return ParseWithPrefix(s, expected)
}

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
