package services

import (
	"context"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
	"github.com/kompihq/kompi-engine/pkg/ports"
)

// CountingPlanGate enforces a flat per-workspace cap on active links.
// It stands in for the billing collaborator; a limit of 0 means unlimited.
type CountingPlanGate struct {
	links ports.LinkRepository
	limit int64
}

func NewCountingPlanGate(links ports.LinkRepository, limit int) *CountingPlanGate {
	return &CountingPlanGate{links: links, limit: int64(limit)}
}

func (g *CountingPlanGate) AllowCreateLink(ctx context.Context, workspaceID string) error {
	if g.limit <= 0 {
		return nil
	}
	count, err := g.links.CountActive(ctx, workspaceID)
	if err != nil {
		return err
	}
	if count >= g.limit {
		return domain.ErrPlanLimitReached
	}
	return nil
}

var _ ports.PlanGate = (*CountingPlanGate)(nil)
