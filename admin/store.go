package admin

import (
	"context"

	"github.com/xraph/pandda/id"
)

type Store interface {
	CreateAdmin(ctx context.Context, a *Admin) error
	GetAdmin(ctx context.Context, adminID id.AdminID) (*Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*Admin, error)
	UpdateAdmin(ctx context.Context, a *Admin) error
	DeleteAdmin(ctx context.Context, adminID id.AdminID) (*Admin, error)
	ListAdmins(ctx context.Context, opts ListOpts) ([]*Admin, error)
}

type ListOpts struct {
	Limit  int
	Offset int
}
