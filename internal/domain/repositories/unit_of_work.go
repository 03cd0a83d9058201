package repositories

import (
	"context"
)

// UnitOfWork executes a function inside one database transaction. Repositories
// called with the ctx passed to fn join that transaction, so a deal status
// change and the timeline event describing it commit or roll back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
