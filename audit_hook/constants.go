package audithook

// Action constants for audit events.
const (
	// Provisioning actions
	ActionCustomerProvisioned      = "customer.provisioned"
	ActionCustomerReplaced         = "customer.replaced"
	ActionProvisioningReverted     = "provisioning.reverted"
	ActionProvisioningInconsistent = "provisioning.inconsistent"

	// Back-office actions
	ActionCustomerDeleted     = "customer.deleted"
	ActionCustomerBlocked     = "customer.blocked"
	ActionCustomerUnblocked   = "customer.unblocked"
	ActionSubscriptionRenewed = "subscription.renewed"
)

// Resource constants for audit events.
const (
	ResourceCustomer     = "customer"
	ResourceSubscription = "subscription"
	ResourceWorkflow     = "workflow"
)

// Category constants for audit events.
const (
	CategoryProvisioning = "provisioning"
	CategoryAccess       = "access"
	CategoryBilling      = "billing"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
