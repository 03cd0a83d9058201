package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"deal-chain.backend/pkg/utils"
)

func TestUnitOfWork_DoCommitAndRollback(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	u := &UnitOfWorkImpl{db: db}

	// commit path
	err := u.Do(context.Background(), func(ctx context.Context) error {
		return GetDB(ctx, db).Exec("INSERT INTO users(id,email) VALUES (?,?)", utils.NewStringID(), "a@dealchain.io").Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Table("users").Count(&count).Error)
	require.Equal(t, int64(1), count)

	// rollback path
	err = u.Do(context.Background(), func(ctx context.Context) error {
		if err := GetDB(ctx, db).Exec("INSERT INTO users(id,email) VALUES (?,?)", utils.NewStringID(), "b@dealchain.io").Error; err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	require.Error(t, err)

	require.NoError(t, db.Table("users").Count(&count).Error)
	require.Equal(t, int64(1), count, "second insert must be rolled back")
}

func TestUnitOfWork_NestedDoReusesTransaction(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	u := &UnitOfWorkImpl{db: db}

	err := u.Do(context.Background(), func(outer context.Context) error {
		if err := GetDB(outer, db).Exec("INSERT INTO users(id,email) VALUES (?,?)", utils.NewStringID(), "outer@dealchain.io").Error; err != nil {
			return err
		}
		return u.Do(outer, func(inner context.Context) error {
			require.Equal(t, GetDB(outer, db), GetDB(inner, db), "nested Do must reuse the outer transaction")
			return GetDB(inner, db).Exec("INSERT INTO users(id,email) VALUES (?,?)", utils.NewStringID(), "inner@dealchain.io").Error
		})
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Table("users").Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestUnitOfWork_NestedDoRollsBackTogether(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	u := &UnitOfWorkImpl{db: db}

	err := u.Do(context.Background(), func(outer context.Context) error {
		if err := GetDB(outer, db).Exec("INSERT INTO users(id,email) VALUES (?,?)", utils.NewStringID(), "outer@dealchain.io").Error; err != nil {
			return err
		}
		return u.Do(outer, func(inner context.Context) error {
			_ = inner
			return errors.New("inner failure")
		})
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Table("users").Count(&count).Error)
	require.Equal(t, int64(0), count, "outer transaction must roll back on inner failure")
}

func TestUnitOfWork_GetDBFallback(t *testing.T) {
	db := newTestDB(t)

	require.Equal(t, db, GetDB(context.Background(), db))

	tx := db.Begin()
	txCtx := context.WithValue(context.Background(), txKey, tx)
	require.Equal(t, tx, GetDB(txCtx, db))
	tx.Rollback()
}

func TestUnitOfWork_DoBeginFailure(t *testing.T) {
	db := newTestDB(t)
	u := &UnitOfWorkImpl{db: db}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = u.Do(context.Background(), func(ctx context.Context) error {
		_ = ctx
		return nil
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to begin transaction")
}

func TestUnitOfWork_DoCommitFailure_WithHook(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	u := &UnitOfWorkImpl{db: db}

	origCommit := commitTx
	t.Cleanup(func() { commitTx = origCommit })
	commitTx = func(tx *gorm.DB) error {
		_ = tx
		return errors.New("forced commit fail")
	}

	err := u.Do(context.Background(), func(ctx context.Context) error {
		return GetDB(ctx, db).Exec("INSERT INTO users(id,email) VALUES (?,?)", utils.NewStringID(), "a@dealchain.io").Error
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to commit transaction")
}
