package repositories

import (
	"context"
	"time"

	"deal-chain.backend/internal/domain/entities"
)

// CrossChainTxRepository defines bridge transaction data operations
type CrossChainTxRepository interface {
	Create(ctx context.Context, tx *entities.CrossChainTransaction) error
	GetByID(ctx context.Context, id string) (*entities.CrossChainTransaction, error)
	GetByDealID(ctx context.Context, dealID string) (*entities.CrossChainTransaction, error)
	Update(ctx context.Context, tx *entities.CrossChainTransaction) error
	UpdateStep(ctx context.Context, step *entities.CrossChainStep) error

	// PendingStatusCheck returns in-flight transactions whose last status
	// poll is older than the given instant (or that were never polled).
	PendingStatusCheck(ctx context.Context, olderThan time.Time) ([]*entities.CrossChainTransaction, error)
}
