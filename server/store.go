package server

import (
	"context"

	"github.com/xraph/pandda/id"
)

type Store interface {
	CreateServer(ctx context.Context, s *Server) error
	GetServer(ctx context.Context, serverID id.ServerID) (*Server, error)
	UpdateServer(ctx context.Context, s *Server) error
	DeleteServer(ctx context.Context, serverID id.ServerID) (*Server, error)
	ListServers(ctx context.Context, opts ListOpts) ([]*Server, error)
}

type ListOpts struct {
	Limit  int
	Offset int
}
