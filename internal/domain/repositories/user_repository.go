package repositories

import (
	"context"

	"deal-chain.backend/internal/domain/entities"
)

// UserRepository defines read access to the mirrored user directory
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}
