package audit

import (
	"context"
	"time"

	"github.com/xraph/pandda/id"
)

// Store persists the activity log. Entries are append-only.
type Store interface {
	AppendActivity(ctx context.Context, a *Activity) error
	ListActivities(ctx context.Context, opts ListOpts) ([]*Activity, error)
}

// ListOpts filters ListActivities. Results are newest first.
type ListOpts struct {
	ActorID id.AdminID
	Action  string
	Target  string
	Since   time.Time
	Limit   int
	Offset  int
}

// Matches reports whether a passes the filters in o.
func (o ListOpts) Matches(a *Activity) bool {
	switch {
	case !o.ActorID.IsNil() && a.ActorID != o.ActorID:
		return false
	case o.Action != "" && a.Action != o.Action:
		return false
	case o.Target != "" && a.Target != o.Target:
		return false
	case !o.Since.IsZero() && a.Timestamp.Before(o.Since):
		return false
	}
	return true
}
