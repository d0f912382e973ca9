package app

import (
	"context"

	"github.com/xraph/pandda/id"
)

type Store interface {
	CreateApp(ctx context.Context, a *App) error
	GetApp(ctx context.Context, appID id.AppID) (*App, error)
	UpdateApp(ctx context.Context, a *App) error
	DeleteApp(ctx context.Context, appID id.AppID) (*App, error)
	ListApps(ctx context.Context, opts ListOpts) ([]*App, error)
}

type ListOpts struct {
	ServerID id.ServerID
	Limit    int
	Offset   int
}
