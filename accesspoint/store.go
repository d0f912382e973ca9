package accesspoint

import (
	"context"

	"github.com/xraph/pandda/id"
)

type Store interface {
	CreateAccessPoint(ctx context.Context, a *AccessPoint) error
	GetAccessPoint(ctx context.Context, apID id.AccessPointID) (*AccessPoint, error)
	UpdateAccessPoint(ctx context.Context, a *AccessPoint) error
	DeleteAccessPoint(ctx context.Context, apID id.AccessPointID) (*AccessPoint, error)
	ListAccessPoints(ctx context.Context, opts ListOpts) ([]*AccessPoint, error)
}

// ListOpts filters ListAccessPoints. Username matches exactly.
type ListOpts struct {
	CustomerID id.CustomerID
	ServerID   id.ServerID
	AppID      id.AppID
	Username   string
	Limit      int
	Offset     int
}

// Matches reports whether a passes the filters in o.
func (o ListOpts) Matches(a *AccessPoint) bool {
	switch {
	case !o.CustomerID.IsNil() && a.CustomerID != o.CustomerID:
		return false
	case !o.ServerID.IsNil() && a.ServerID != o.ServerID:
		return false
	case !o.AppID.IsNil() && a.AppID != o.AppID:
		return false
	case o.Username != "" && a.Username != o.Username:
		return false
	}
	return true
}
