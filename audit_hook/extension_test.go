package audithook_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/pandda/accesspoint"
	audithook "github.com/xraph/pandda/audit_hook"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/subscription"
)

type captured struct {
	events []*audithook.AuditEvent
	err    error
}

func (c *captured) Record(_ context.Context, evt *audithook.AuditEvent) error {
	c.events = append(c.events, evt)
	return c.err
}

func quiet() audithook.Option {
	return audithook.WithLogger(slog.New(slog.DiscardHandler))
}

func TestProvisionedEvent(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec, quiet())

	c := &customer.Customer{ID: id.NewCustomerID(), Name: "Ana"}
	sub := &subscription.Subscription{ID: id.NewSubscriptionID(), CustomerID: c.ID, Screens: 2}
	aps := []*accesspoint.AccessPoint{{ID: id.NewAccessPointID()}, {ID: id.NewAccessPointID()}}

	require.NoError(t, ext.OnCustomerProvisioned(context.Background(), c, sub, aps))
	require.Len(t, rec.events, 1)

	evt := rec.events[0]
	assert.Equal(t, audithook.ActionCustomerProvisioned, evt.Action)
	assert.Equal(t, audithook.ResourceCustomer, evt.Resource)
	assert.Equal(t, c.ID.String(), evt.ResourceID)
	assert.Equal(t, audithook.OutcomeSuccess, evt.Outcome)
	assert.Equal(t, 2, evt.Metadata["screens"])
	assert.Equal(t, 2, evt.Metadata["access_points"])
	assert.Equal(t, sub.ID.String(), evt.Metadata["subscription_id"])
}

func TestFailureEventsCarryReason(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec, quiet())
	cause := errors.New("disk full")

	require.NoError(t, ext.OnProvisioningCompensated(context.Background(), "create", cause))
	require.NoError(t, ext.OnFatalInconsistency(context.Background(), "replace", cause))
	require.Len(t, rec.events, 2)

	assert.Equal(t, audithook.SeverityWarning, rec.events[0].Severity)
	assert.Equal(t, audithook.SeverityCritical, rec.events[1].Severity)
	for _, evt := range rec.events {
		assert.Equal(t, audithook.OutcomeFailure, evt.Outcome)
		assert.Equal(t, "disk full", evt.Reason)
	}
}

func TestBlockedAndUnblocked(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec, quiet())
	c := &customer.Customer{ID: id.NewCustomerID()}

	require.NoError(t, ext.OnCustomerBlocked(context.Background(), c, true))
	require.NoError(t, ext.OnCustomerBlocked(context.Background(), c, false))

	require.Len(t, rec.events, 2)
	assert.Equal(t, audithook.ActionCustomerBlocked, rec.events[0].Action)
	assert.Equal(t, audithook.ActionCustomerUnblocked, rec.events[1].Action)
}

func TestRenewedEvent(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec, quiet())
	sub := &subscription.Subscription{
		ID:         id.NewSubscriptionID(),
		CustomerID: id.NewCustomerID(),
		DueDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, ext.OnSubscriptionRenewed(context.Background(), sub, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
	require.Len(t, rec.events, 1)
	assert.Equal(t, "2024-01-31", rec.events[0].Metadata["previous_due"])
	assert.Equal(t, "2024-03-01", rec.events[0].Metadata["due"])
}

func TestActionFilters(t *testing.T) {
	c := &customer.Customer{ID: id.NewCustomerID()}

	t.Run("enabled", func(t *testing.T) {
		rec := &captured{}
		ext := audithook.New(rec, quiet(), audithook.WithEnabledActions(audithook.ActionCustomerDeleted))
		require.NoError(t, ext.OnCustomerBlocked(context.Background(), c, true))
		require.NoError(t, ext.OnCustomerDeleted(context.Background(), c))
		require.Len(t, rec.events, 1)
		assert.Equal(t, audithook.ActionCustomerDeleted, rec.events[0].Action)
	})

	t.Run("disabled", func(t *testing.T) {
		rec := &captured{}
		ext := audithook.New(rec, quiet(), audithook.WithDisabledActions(audithook.ActionCustomerDeleted))
		require.NoError(t, ext.OnCustomerBlocked(context.Background(), c, true))
		require.NoError(t, ext.OnCustomerDeleted(context.Background(), c))
		require.Len(t, rec.events, 1)
		assert.Equal(t, audithook.ActionCustomerBlocked, rec.events[0].Action)
	})
}

func TestCategoryAndSeverityFilters(t *testing.T) {
	ctx := context.Background()
	c := &customer.Customer{ID: id.NewCustomerID()}
	sub := &subscription.Subscription{ID: id.NewSubscriptionID(), CustomerID: c.ID}

	t.Run("categories", func(t *testing.T) {
		rec := &captured{}
		ext := audithook.New(rec, quiet(), audithook.WithCategories(audithook.CategoryBilling))
		require.NoError(t, ext.OnCustomerBlocked(ctx, c, true))
		require.NoError(t, ext.OnSubscriptionRenewed(ctx, sub, time.Now()))
		require.Len(t, rec.events, 1)
		assert.Equal(t, audithook.ActionSubscriptionRenewed, rec.events[0].Action)
	})

	t.Run("min severity", func(t *testing.T) {
		rec := &captured{}
		ext := audithook.New(rec, quiet(), audithook.WithMinSeverity(audithook.SeverityWarning))
		require.NoError(t, ext.OnCustomerBlocked(ctx, c, true))
		require.NoError(t, ext.OnCustomerDeleted(ctx, c))
		require.NoError(t, ext.OnFatalInconsistency(ctx, "replace", errors.New("restore failed")))
		require.Len(t, rec.events, 2)
		assert.Equal(t, audithook.ActionCustomerDeleted, rec.events[0].Action)
		assert.Equal(t, audithook.SeverityCritical, rec.events[1].Severity)
	})
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	rec := &captured{err: errors.New("backend down")}
	ext := audithook.New(rec, quiet())

	err := ext.OnCustomerDeleted(context.Background(), &customer.Customer{ID: id.NewCustomerID()})
	assert.NoError(t, err)
	assert.Len(t, rec.events, 1)
}
