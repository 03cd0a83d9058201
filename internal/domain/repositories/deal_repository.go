package repositories

import (
	"context"
	"time"

	"deal-chain.backend/internal/domain/entities"
)

// DealRepository defines deal data operations. Multi-field mutations must run
// inside UnitOfWork.Do so the status change and its timeline event commit
// together.
type DealRepository interface {
	Create(ctx context.Context, deal *entities.Deal) error
	GetByID(ctx context.Context, id string) (*entities.Deal, error)
	ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entities.Deal, int64, error)
	Update(ctx context.Context, deal *entities.Deal) error
	UpdateCondition(ctx context.Context, condition *entities.Condition) error
	AppendTimeline(ctx context.Context, event *entities.TimelineEvent) error

	// Scheduler queries. Each returns deals with conditions preloaded,
	// filtered to the subset one reconciliation pass operates on.
	DealsPastFinalApproval(ctx context.Context, now time.Time) ([]*entities.Deal, error)
	DealsPastDisputeDeadline(ctx context.Context, now time.Time) ([]*entities.Deal, error)
	CrossChainDealsPastFinalApproval(ctx context.Context, now time.Time) ([]*entities.Deal, error)
	CrossChainDealsStuck(ctx context.Context, notUpdatedSince time.Time) ([]*entities.Deal, error)
}
