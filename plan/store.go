package plan

import (
	"context"

	"github.com/xraph/pandda/id"
)

type Store interface {
	CreatePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, planID id.PlanID) (*Plan, error)
	UpdatePlan(ctx context.Context, p *Plan) error
	DeletePlan(ctx context.Context, planID id.PlanID) (*Plan, error)
	ListPlans(ctx context.Context, opts ListOpts) ([]*Plan, error)
}

type ListOpts struct {
	Limit  int
	Offset int
}
