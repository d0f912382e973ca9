// Package audit defines the activity log written after committed
// back-office operations.
package audit

import (
	"time"

	"github.com/xraph/pandda/id"
)

// Action names recorded in the activity log.
const (
	ActionCreateCustomer     = "create_customer"
	ActionUpdateCustomer     = "update_customer"
	ActionDeleteCustomer     = "delete_customer"
	ActionBlockCustomer      = "block_customer"
	ActionUnblockCustomer    = "unblock_customer"
	ActionRenew              = "renew"
	ActionDeleteSubscription = "delete_subscription"
	ActionCreateServer       = "create_server"
	ActionUpdateServer       = "update_server"
	ActionDeleteServer       = "delete_server"
	ActionCreateApp          = "create_app"
	ActionUpdateApp          = "update_app"
	ActionDeleteApp          = "delete_app"
	ActionCreatePlan         = "create_plan"
	ActionUpdatePlan         = "update_plan"
	ActionDeletePlan         = "delete_plan"
	ActionCreateAdmin        = "create_admin"
	ActionDeleteAdmin        = "delete_admin"
	ActionPromoteAdmin       = "promote_admin"
	ActionDemoteAdmin        = "demote_admin"
)

// Activity is one entry of the log. Target holds the id of the record the
// action applied to.
type Activity struct {
	ID        id.ActivityID `json:"id"`
	ActorID   id.AdminID    `json:"actor_id"`
	Action    string        `json:"action"`
	Target    string        `json:"target"`
	Detail    string        `json:"detail,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
