// Package types provides the value types shared by every Pandda record.
package types

import "time"

// Entity carries the creation and modification timestamps of a record.
// Embed it in record types; stores persist both fields verbatim so a
// restored record keeps its original CreatedAt.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity returns an Entity stamped with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates UpdatedAt to now.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// IsZero reports whether the entity has never been stamped.
func (e Entity) IsZero() bool {
	return e.CreatedAt.IsZero()
}

// Age returns how long ago the record was created.
func (e Entity) Age() time.Duration {
	return time.Since(e.CreatedAt)
}
