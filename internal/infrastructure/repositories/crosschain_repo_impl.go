package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"deal-chain.backend/internal/domain/entities"
	domainerrors "deal-chain.backend/internal/domain/errors"
	"deal-chain.backend/internal/infrastructure/models"
	"deal-chain.backend/pkg/utils"
)

// CrossChainTxRepository implements bridge transaction data operations
type CrossChainTxRepository struct {
	db *gorm.DB
}

// NewCrossChainTxRepository creates a new cross-chain transaction repository
func NewCrossChainTxRepository(db *gorm.DB) *CrossChainTxRepository {
	return &CrossChainTxRepository{db: db}
}

// Create persists a transaction together with its steps.
func (r *CrossChainTxRepository) Create(ctx context.Context, tx *entities.CrossChainTransaction) error {
	if tx.ID == "" {
		tx.ID = utils.NewStringID()
	}

	m := &models.CrossChainTransaction{
		ID:              tx.ID,
		DealID:          tx.DealID,
		FromAddress:     tx.FromAddress,
		ToAddress:       tx.ToAddress,
		Amount:          tx.Amount,
		SourceNetwork:   string(tx.SourceNetwork),
		TargetNetwork:   string(tx.TargetNetwork),
		BridgeInfo:      marshalBridgeInfo(tx.BridgeInfo),
		Status:          string(tx.Status),
		LastStatusCheck: tx.LastStatusCheck.Ptr(),
	}
	for i := range tx.Steps {
		tx.Steps[i].TransactionID = tx.ID
		if tx.Steps[i].ID == "" {
			tx.Steps[i].ID = utils.NewStringID()
		}
		m.Steps = append(m.Steps, stepToModel(&tx.Steps[i]))
	}

	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}

	tx.CreatedAt = m.CreatedAt
	tx.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByID loads a transaction with its steps in execution order.
func (r *CrossChainTxRepository) GetByID(ctx context.Context, id string) (*entities.CrossChainTransaction, error) {
	return r.getByField(ctx, "id = ?", id)
}

// GetByDealID loads the transaction linked to a deal.
func (r *CrossChainTxRepository) GetByDealID(ctx context.Context, dealID string) (*entities.CrossChainTransaction, error) {
	return r.getByField(ctx, "deal_id = ?", dealID)
}

func (r *CrossChainTxRepository) getByField(ctx context.Context, query string, arg interface{}) (*entities.CrossChainTransaction, error) {
	var m models.CrossChainTransaction
	db := GetDB(ctx, r.db)
	err := db.WithContext(ctx).
		Preload("Steps", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("step_number ASC")
		}).
		Where(query, arg).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return txToEntity(&m), nil
}

// Update writes the transaction's status fields.
func (r *CrossChainTxRepository) Update(ctx context.Context, tx *entities.CrossChainTransaction) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.CrossChainTransaction{}).
		Where("id = ?", tx.ID).
		Updates(map[string]interface{}{
			"status":            string(tx.Status),
			"bridge_info":       marshalBridgeInfo(tx.BridgeInfo),
			"last_status_check": tx.LastStatusCheck.Ptr(),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// UpdateStep writes one step's execution state.
func (r *CrossChainTxRepository) UpdateStep(ctx context.Context, step *entities.CrossChainStep) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.CrossChainStep{}).
		Where("transaction_id = ? AND step_number = ?", step.TransactionID, step.StepNumber).
		Updates(map[string]interface{}{
			"status":        string(step.Status),
			"tx_hash":       step.TxHash.Ptr(),
			"execution_id":  step.ExecutionID.Ptr(),
			"error_message": step.ErrorMessage.Ptr(),
			"started_at":    step.StartedAt.Ptr(),
			"completed_at":  step.CompletedAt.Ptr(),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// PendingStatusCheck returns in-flight transactions whose last poll is older
// than the given instant, never-polled ones included.
func (r *CrossChainTxRepository) PendingStatusCheck(ctx context.Context, olderThan time.Time) ([]*entities.CrossChainTransaction, error) {
	db := GetDB(ctx, r.db)
	var ms []models.CrossChainTransaction
	err := db.WithContext(ctx).
		Preload("Steps", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("step_number ASC")
		}).
		Where("status IN ? AND (last_status_check IS NULL OR last_status_check <= ?)",
			[]string{string(entities.CrossChainTxStatusPrepared), string(entities.CrossChainTxStatusInProgress)},
			olderThan).
		Order("created_at ASC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	txs := make([]*entities.CrossChainTransaction, 0, len(ms))
	for i := range ms {
		txs = append(txs, txToEntity(&ms[i]))
	}
	return txs, nil
}

func marshalBridgeInfo(info *entities.BridgeInfo) string {
	if info == nil {
		return "{}"
	}
	data, err := json.Marshal(info)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func unmarshalBridgeInfo(raw string) *entities.BridgeInfo {
	if raw == "" || raw == "{}" {
		return nil
	}
	var info entities.BridgeInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil
	}
	return &info
}

func stepToModel(s *entities.CrossChainStep) models.CrossChainStep {
	return models.CrossChainStep{
		ID:               s.ID,
		TransactionID:    s.TransactionID,
		StepNumber:       s.StepNumber,
		Action:           s.Action,
		Status:           string(s.Status),
		Description:      s.Description,
		ConditionMapping: s.ConditionMapping.Ptr(),
		TxHash:           s.TxHash.Ptr(),
		ExecutionID:      s.ExecutionID.Ptr(),
		ErrorMessage:     s.ErrorMessage.Ptr(),
		StartedAt:        s.StartedAt.Ptr(),
		CompletedAt:      s.CompletedAt.Ptr(),
	}
}

func txToEntity(m *models.CrossChainTransaction) *entities.CrossChainTransaction {
	tx := &entities.CrossChainTransaction{
		ID:              m.ID,
		DealID:          m.DealID,
		FromAddress:     m.FromAddress,
		ToAddress:       m.ToAddress,
		Amount:          m.Amount,
		SourceNetwork:   entities.Network(m.SourceNetwork),
		TargetNetwork:   entities.Network(m.TargetNetwork),
		BridgeInfo:      unmarshalBridgeInfo(m.BridgeInfo),
		Status:          entities.CrossChainTxStatus(m.Status),
		LastStatusCheck: null.TimeFromPtr(m.LastStatusCheck),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}

	for i := range m.Steps {
		s := &m.Steps[i]
		tx.Steps = append(tx.Steps, entities.CrossChainStep{
			ID:               s.ID,
			TransactionID:    s.TransactionID,
			StepNumber:       s.StepNumber,
			Action:           s.Action,
			Status:           entities.StepStatus(s.Status),
			Description:      s.Description,
			ConditionMapping: null.StringFromPtr(s.ConditionMapping),
			TxHash:           null.StringFromPtr(s.TxHash),
			ExecutionID:      null.StringFromPtr(s.ExecutionID),
			ErrorMessage:     null.StringFromPtr(s.ErrorMessage),
			StartedAt:        null.TimeFromPtr(s.StartedAt),
			CompletedAt:      null.TimeFromPtr(s.CompletedAt),
			CreatedAt:        s.CreatedAt,
			UpdatedAt:        s.UpdatedAt,
		})
	}
	return tx
}
