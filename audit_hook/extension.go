// Package audithook bridges Pandda lifecycle events to an external audit
// trail backend.
//
// The engine keeps its own activity log in the store. This package is for
// forwarding the same lifecycle to a separate system (a SIEM, a log
// pipeline). Callers inject a Recorder at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/plugin"
	"github.com/xraph/pandda/subscription"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                    = (*Extension)(nil)
	_ plugin.OnCustomerProvisioned     = (*Extension)(nil)
	_ plugin.OnCustomerReplaced        = (*Extension)(nil)
	_ plugin.OnProvisioningCompensated = (*Extension)(nil)
	_ plugin.OnFatalInconsistency      = (*Extension)(nil)
	_ plugin.OnCustomerDeleted         = (*Extension)(nil)
	_ plugin.OnCustomerBlocked         = (*Extension)(nil)
	_ plugin.OnSubscriptionRenewed     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one forwarded lifecycle event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder writes every event as a structured log line.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityCritical:
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "audit",
			slog.String("action", evt.Action),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
			slog.Any("metadata", evt.Metadata),
		)
		return nil
	})
}

// Extension bridges Pandda lifecycle events to an audit trail backend.
type Extension struct {
	recorder    Recorder
	enabled     map[string]bool // nil = all enabled
	categories  map[string]bool // nil = all categories
	minSeverity int             // index into severityOrder
	logger      *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Provisioning hooks
// ──────────────────────────────────────────────────

// OnCustomerProvisioned implements plugin.OnCustomerProvisioned.
func (e *Extension) OnCustomerProvisioned(ctx context.Context, c *customer.Customer, sub *subscription.Subscription, aps []*accesspoint.AccessPoint) error {
	return e.record(ctx, ActionCustomerProvisioned, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, c.ID.String(), CategoryProvisioning, nil,
		"subscription_id", sub.ID.String(),
		"screens", sub.Screens,
		"access_points", len(aps),
	)
}

// OnCustomerReplaced implements plugin.OnCustomerReplaced.
func (e *Extension) OnCustomerReplaced(ctx context.Context, c *customer.Customer, sub *subscription.Subscription, aps []*accesspoint.AccessPoint) error {
	return e.record(ctx, ActionCustomerReplaced, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, c.ID.String(), CategoryProvisioning, nil,
		"subscription_id", sub.ID.String(),
		"screens", sub.Screens,
		"access_points", len(aps),
	)
}

// OnProvisioningCompensated implements plugin.OnProvisioningCompensated.
func (e *Extension) OnProvisioningCompensated(ctx context.Context, workflow string, cause error) error {
	return e.record(ctx, ActionProvisioningReverted, SeverityWarning, OutcomeFailure,
		ResourceWorkflow, workflow, CategoryProvisioning, cause,
		"workflow", workflow,
	)
}

// OnFatalInconsistency implements plugin.OnFatalInconsistency.
func (e *Extension) OnFatalInconsistency(ctx context.Context, workflow string, err error) error {
	return e.record(ctx, ActionProvisioningInconsistent, SeverityCritical, OutcomeFailure,
		ResourceWorkflow, workflow, CategoryProvisioning, err,
		"workflow", workflow,
	)
}

// ──────────────────────────────────────────────────
// Back-office hooks
// ──────────────────────────────────────────────────

// OnCustomerDeleted implements plugin.OnCustomerDeleted.
func (e *Extension) OnCustomerDeleted(ctx context.Context, c *customer.Customer) error {
	return e.record(ctx, ActionCustomerDeleted, SeverityWarning, OutcomeSuccess,
		ResourceCustomer, c.ID.String(), CategoryAccess, nil,
		"name", c.Name,
	)
}

// OnCustomerBlocked implements plugin.OnCustomerBlocked.
func (e *Extension) OnCustomerBlocked(ctx context.Context, c *customer.Customer, blocked bool) error {
	action := ActionCustomerBlocked
	if !blocked {
		action = ActionCustomerUnblocked
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, c.ID.String(), CategoryAccess, nil,
		"blocked", blocked,
	)
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (e *Extension) OnSubscriptionRenewed(ctx context.Context, sub *subscription.Subscription, previousDue time.Time) error {
	return e.record(ctx, ActionSubscriptionRenewed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategoryBilling, nil,
		"customer_id", sub.CustomerID.String(),
		"previous_due", previousDue.Format(time.DateOnly),
		"due", sub.DueDate.Format(time.DateOnly),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// wants reports whether an event passes the configured filters.
func (e *Extension) wants(action, category, severity string) bool {
	if e.enabled != nil && !e.enabled[action] {
		return false
	}
	if e.categories != nil && !e.categories[category] {
		return false
	}
	return slices.Index(severityOrder, severity) >= e.minSeverity
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if !e.wants(action, category, severity) {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
