// Package store defines the persistence gateway over every Pandda record
// kind. Backends live in the subpackages.
package store

import (
	"context"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/admin"
	"github.com/xraph/pandda/app"
	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/plan"
	"github.com/xraph/pandda/server"
	"github.com/xraph/pandda/subscription"
)

// Store is the unified storage interface for all Pandda records.
//
// Create inserts the record as given; callers assign ids and timestamps.
// Update and Delete return the kind's not-found error when the id is
// absent. Delete returns the removed record.
type Store interface {
	customer.Store
	subscription.Store
	accesspoint.Store
	server.Store
	app.Store
	plan.Store
	admin.Store
	audit.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// FindOne returns the first record list yields that satisfies pred.
func FindOne[T any](ctx context.Context, list func(context.Context) ([]T, error), pred func(T) bool) (T, bool, error) {
	var zero T
	items, err := list(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, item := range items {
		if pred(item) {
			return item, true, nil
		}
	}
	return zero, false, nil
}

// Page applies offset and limit to a fully materialised result. A zero
// limit means no limit.
func Page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
