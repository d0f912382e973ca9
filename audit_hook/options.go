package audithook

import (
	"log/slog"
	"slices"
)

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger recorder failures are reported on.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithEnabledActions audits only the named actions.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = setOf(actions)
	}
}

// WithDisabledActions audits every action except the named ones.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = setOf(allActions())
		}
		for _, action := range actions {
			delete(e.enabled, action)
		}
	}
}

// WithCategories audits only actions in the named categories, e.g.
// CategoryProvisioning to keep block and renewal events out of the trail.
func WithCategories(categories ...string) Option {
	return func(e *Extension) {
		e.categories = setOf(categories)
	}
}

// WithMinSeverity drops events below severity. Unknown severities keep
// everything.
func WithMinSeverity(severity string) Option {
	return func(e *Extension) {
		e.minSeverity = max(0, slices.Index(severityOrder, severity))
	}
}

// severityOrder ranks severities from least to most severe.
var severityOrder = []string{SeverityInfo, SeverityWarning, SeverityCritical}

func setOf(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func allActions() []string {
	return []string{
		ActionCustomerProvisioned,
		ActionCustomerReplaced,
		ActionProvisioningReverted,
		ActionProvisioningInconsistent,
		ActionCustomerDeleted,
		ActionCustomerBlocked,
		ActionCustomerUnblocked,
		ActionSubscriptionRenewed,
	}
}
