package pandda

import (
	"context"
	"time"

	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/id"
)

// recordActivity appends to the activity log after a committed operation.
// A failure is logged and otherwise ignored.
func (e *Engine) recordActivity(ctx context.Context, actor Actor, action, target, detail string) {
	a := &audit.Activity{
		ID:        id.NewActivityID(),
		ActorID:   actor.ID,
		Action:    action,
		Target:    target,
		Detail:    detail,
		Timestamp: e.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := e.store.AppendActivity(ctx, a); err != nil {
		e.logger.Warn("activity record failed",
			"action", action,
			"target", target,
			"error", err,
		)
	}
}

// Activities lists the activity log, newest first.
func (e *Engine) Activities(ctx context.Context, opts audit.ListOpts) ([]*audit.Activity, error) {
	return e.store.ListActivities(ctx, opts)
}
