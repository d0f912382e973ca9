// Package observability provides a metrics extension for Pandda that records
// lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/pandda/accesspoint"
	"github.com/xraph/pandda/customer"
	"github.com/xraph/pandda/plugin"
	"github.com/xraph/pandda/subscription"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                    = (*MetricsExtension)(nil)
	_ plugin.OnInit                    = (*MetricsExtension)(nil)
	_ plugin.OnCustomerProvisioned     = (*MetricsExtension)(nil)
	_ plugin.OnCustomerReplaced        = (*MetricsExtension)(nil)
	_ plugin.OnProvisioningCompensated = (*MetricsExtension)(nil)
	_ plugin.OnFatalInconsistency      = (*MetricsExtension)(nil)
	_ plugin.OnCustomerDeleted         = (*MetricsExtension)(nil)
	_ plugin.OnCustomerBlocked         = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionRenewed     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Pandda plugin to track provisioning outcomes.
type MetricsExtension struct {
	factory MetricFactory

	// Provisioning metrics
	CustomersProvisioned Counter
	CustomersReplaced    Counter
	AccessPointsPerOrder Histogram
	ScreensPerOrder      Histogram

	// Failure metrics
	WorkflowsCompensated Counter
	FatalInconsistencies Counter

	// Back-office metrics
	CustomersDeleted     Counter
	CustomersBlocked     Counter
	CustomersUnblocked   Counter
	SubscriptionsRenewed Counter
	RenewalExtensionDays Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		CustomersProvisioned: factory.Counter("pandda.customer.provisioned"),
		CustomersReplaced:    factory.Counter("pandda.customer.replaced"),
		AccessPointsPerOrder: factory.Histogram("pandda.order.access_points"),
		ScreensPerOrder:      factory.Histogram("pandda.order.screens"),

		WorkflowsCompensated: factory.Counter("pandda.workflow.compensated"),
		FatalInconsistencies: factory.Counter("pandda.workflow.fatal"),

		CustomersDeleted:     factory.Counter("pandda.customer.deleted"),
		CustomersBlocked:     factory.Counter("pandda.customer.blocked"),
		CustomersUnblocked:   factory.Counter("pandda.customer.unblocked"),
		SubscriptionsRenewed: factory.Counter("pandda.subscription.renewed"),
		RenewalExtensionDays: factory.Histogram("pandda.subscription.renewal_days"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Provisioning hooks
// ──────────────────────────────────────────────────

// OnCustomerProvisioned implements plugin.OnCustomerProvisioned.
func (m *MetricsExtension) OnCustomerProvisioned(_ context.Context, _ *customer.Customer, sub *subscription.Subscription, aps []*accesspoint.AccessPoint) error {
	m.CustomersProvisioned.Inc()
	m.observeOrder(sub, aps)
	return nil
}

// OnCustomerReplaced implements plugin.OnCustomerReplaced.
func (m *MetricsExtension) OnCustomerReplaced(_ context.Context, _ *customer.Customer, sub *subscription.Subscription, aps []*accesspoint.AccessPoint) error {
	m.CustomersReplaced.Inc()
	m.observeOrder(sub, aps)
	return nil
}

func (m *MetricsExtension) observeOrder(sub *subscription.Subscription, aps []*accesspoint.AccessPoint) {
	m.AccessPointsPerOrder.Observe(float64(len(aps)))
	m.ScreensPerOrder.Observe(float64(sub.Screens))
}

// OnProvisioningCompensated implements plugin.OnProvisioningCompensated.
func (m *MetricsExtension) OnProvisioningCompensated(_ context.Context, _ string, _ error) error {
	m.WorkflowsCompensated.Inc()
	return nil
}

// OnFatalInconsistency implements plugin.OnFatalInconsistency.
func (m *MetricsExtension) OnFatalInconsistency(_ context.Context, _ string, _ error) error {
	m.FatalInconsistencies.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Back-office hooks
// ──────────────────────────────────────────────────

// OnCustomerDeleted implements plugin.OnCustomerDeleted.
func (m *MetricsExtension) OnCustomerDeleted(_ context.Context, _ *customer.Customer) error {
	m.CustomersDeleted.Inc()
	return nil
}

// OnCustomerBlocked implements plugin.OnCustomerBlocked.
func (m *MetricsExtension) OnCustomerBlocked(_ context.Context, _ *customer.Customer, blocked bool) error {
	if blocked {
		m.CustomersBlocked.Inc()
	} else {
		m.CustomersUnblocked.Inc()
	}
	return nil
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (m *MetricsExtension) OnSubscriptionRenewed(_ context.Context, sub *subscription.Subscription, previousDue time.Time) error {
	m.SubscriptionsRenewed.Inc()
	m.RenewalExtensionDays.Observe(sub.DueDate.Sub(previousDue).Hours() / 24)
	return nil
}
