package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"deal-chain.backend/internal/domain/entities"
	domainerrors "deal-chain.backend/internal/domain/errors"
	"deal-chain.backend/internal/infrastructure/models"
	"deal-chain.backend/pkg/utils"
)

// DealRepository implements deal data operations
type DealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

// Create persists a deal together with its conditions. The deal id and
// condition row ids are assigned here when absent.
func (r *DealRepository) Create(ctx context.Context, deal *entities.Deal) error {
	if deal.ID == "" {
		deal.ID = utils.NewStringID()
	}

	m := dealToModel(deal)
	for i := range deal.Conditions {
		deal.Conditions[i].DealID = deal.ID
		m.Conditions = append(m.Conditions, conditionToModel(&deal.Conditions[i]))
	}

	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}

	deal.CreatedAt = m.CreatedAt
	deal.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByID loads a deal with its conditions and timeline, ordered as written.
func (r *DealRepository) GetByID(ctx context.Context, id string) (*entities.Deal, error) {
	var m models.Deal
	db := GetDB(ctx, r.db)
	err := db.WithContext(ctx).
		Preload("Conditions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		Preload("Timeline", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return dealToEntity(&m), nil
}

// ListByParticipant returns deals where the user is buyer or seller, newest
// first.
func (r *DealRepository) ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entities.Deal, int64, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := db.WithContext(ctx).Model(&models.Deal{}).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.Deal
	if err := db.WithContext(ctx).
		Preload("Conditions").
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	deals := make([]*entities.Deal, 0, len(ms))
	for i := range ms {
		deals = append(deals, dealToEntity(&ms[i]))
	}
	return deals, total, nil
}

// Update writes the deal's mutable fields. Conditions and timeline are
// managed through their own methods.
func (r *DealRepository) Update(ctx context.Context, deal *entities.Deal) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Deal{}).
		Where("id = ?", deal.ID).
		Updates(map[string]interface{}{
			"status":                      string(deal.Status),
			"smart_contract_address":      deal.SmartContractAddress.Ptr(),
			"funds_deposited_by_buyer":    deal.FundsDepositedByBuyer,
			"funds_released_to_seller":    deal.FundsReleasedToSeller,
			"final_approval_deadline":     deal.FinalApprovalDeadline,
			"dispute_resolution_deadline": deal.DisputeResolutionDeadline,
			"cross_chain_transaction_id":  deal.CrossChainTransactionID.Ptr(),
			"processing_error":            deal.ProcessingError.Ptr(),
			"updated_at":                  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// UpdateCondition writes one condition's review state.
func (r *DealRepository) UpdateCondition(ctx context.Context, condition *entities.Condition) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.DealCondition{}).
		Where("deal_id = ? AND condition_id = ?", condition.DealID, condition.ID).
		Updates(map[string]interface{}{
			"status":              string(condition.Status),
			"notes":               condition.Notes.Ptr(),
			"auto_fulfilled_by":   condition.AutoFulfilledBy.Ptr(),
			"cross_chain_tx_hash": condition.CrossChainTxHash.Ptr(),
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// AppendTimeline adds one event to the deal's audit log. Events are never
// updated or removed.
func (r *DealRepository) AppendTimeline(ctx context.Context, event *entities.TimelineEvent) error {
	if event.ID == "" {
		event.ID = utils.NewStringID()
	}
	m := &models.DealTimelineEvent{
		ID:              event.ID,
		DealID:          event.DealID,
		Event:           event.Event,
		ActorID:         event.ActorID.Ptr(),
		SystemTriggered: event.SystemTriggered,
		TxHash:          event.TxHash.Ptr(),
		CreatedAt:       event.CreatedAt,
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	event.CreatedAt = m.CreatedAt
	return nil
}

// DealsPastFinalApproval returns non-cross-chain deals whose final approval
// window has elapsed, including earlier auto-release failures for retry.
func (r *DealRepository) DealsPastFinalApproval(ctx context.Context, now time.Time) ([]*entities.Deal, error) {
	return r.dueDeals(ctx,
		"is_cross_chain = ? AND status IN ? AND final_approval_deadline IS NOT NULL AND final_approval_deadline <= ?",
		false,
		[]string{string(entities.DealStatusInFinalApproval), string(entities.DealStatusAutoReleaseFailed)},
		now,
	)
}

// DealsPastDisputeDeadline returns deals whose dispute window has elapsed,
// including earlier auto-cancellation failures for retry.
func (r *DealRepository) DealsPastDisputeDeadline(ctx context.Context, now time.Time) ([]*entities.Deal, error) {
	return r.dueDeals(ctx,
		"status IN ? AND dispute_resolution_deadline IS NOT NULL AND dispute_resolution_deadline <= ?",
		[]string{string(entities.DealStatusInDispute), string(entities.DealStatusAutoCancelFailed)},
		now,
	)
}

// CrossChainDealsPastFinalApproval returns cross-chain deals whose final
// approval window has elapsed.
func (r *DealRepository) CrossChainDealsPastFinalApproval(ctx context.Context, now time.Time) ([]*entities.Deal, error) {
	return r.dueDeals(ctx,
		"is_cross_chain = ? AND status = ? AND final_approval_deadline IS NOT NULL AND final_approval_deadline <= ?",
		true,
		string(entities.DealStatusInFinalApproval),
		now,
	)
}

// CrossChainDealsStuck returns active cross-chain deals not touched since the
// given instant.
func (r *DealRepository) CrossChainDealsStuck(ctx context.Context, notUpdatedSince time.Time) ([]*entities.Deal, error) {
	active := []string{
		string(entities.DealStatusAwaitingFulfillment),
		string(entities.DealStatusInEscrow),
		string(entities.DealStatusInFinalApproval),
	}
	return r.dueDeals(ctx,
		"is_cross_chain = ? AND status IN ? AND updated_at <= ?",
		true, active, notUpdatedSince,
	)
}

func (r *DealRepository) dueDeals(ctx context.Context, query string, args ...interface{}) ([]*entities.Deal, error) {
	db := GetDB(ctx, r.db)
	var ms []models.Deal
	if err := db.WithContext(ctx).
		Preload("Conditions").
		Where(query, args...).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	deals := make([]*entities.Deal, 0, len(ms))
	for i := range ms {
		deals = append(deals, dealToEntity(&ms[i]))
	}
	return deals, nil
}

func dealToModel(d *entities.Deal) *models.Deal {
	return &models.Deal{
		ID:                        d.ID,
		BuyerID:                   d.BuyerID,
		SellerID:                  d.SellerID,
		InitiatedBy:               string(d.InitiatedBy),
		PropertyAddress:           d.PropertyAddress,
		Amount:                    d.Amount,
		BuyerWallet:               d.BuyerWallet,
		SellerWallet:              d.SellerWallet,
		BuyerNetwork:              string(d.BuyerNetwork),
		SellerNetwork:             string(d.SellerNetwork),
		IsCrossChain:              d.IsCrossChain,
		SmartContractAddress:      d.SmartContractAddress.Ptr(),
		Status:                    string(d.Status),
		FundsDepositedByBuyer:     d.FundsDepositedByBuyer,
		FundsReleasedToSeller:     d.FundsReleasedToSeller,
		FinalApprovalDeadline:     d.FinalApprovalDeadline,
		DisputeResolutionDeadline: d.DisputeResolutionDeadline,
		CrossChainTransactionID:   d.CrossChainTransactionID.Ptr(),
		ProcessingError:           d.ProcessingError.Ptr(),
	}
}

func dealToEntity(m *models.Deal) *entities.Deal {
	d := &entities.Deal{
		ID:                        m.ID,
		BuyerID:                   m.BuyerID,
		SellerID:                  m.SellerID,
		InitiatedBy:               entities.PartyRole(m.InitiatedBy),
		PropertyAddress:           m.PropertyAddress,
		Amount:                    m.Amount,
		BuyerWallet:               m.BuyerWallet,
		SellerWallet:              m.SellerWallet,
		BuyerNetwork:              entities.Network(m.BuyerNetwork),
		SellerNetwork:             entities.Network(m.SellerNetwork),
		IsCrossChain:              m.IsCrossChain,
		SmartContractAddress:      null.StringFromPtr(m.SmartContractAddress),
		Status:                    entities.DealStatus(m.Status),
		FundsDepositedByBuyer:     m.FundsDepositedByBuyer,
		FundsReleasedToSeller:     m.FundsReleasedToSeller,
		FinalApprovalDeadline:     m.FinalApprovalDeadline,
		DisputeResolutionDeadline: m.DisputeResolutionDeadline,
		CrossChainTransactionID:   null.StringFromPtr(m.CrossChainTransactionID),
		ProcessingError:           null.StringFromPtr(m.ProcessingError),
		CreatedAt:                 m.CreatedAt,
		UpdatedAt:                 m.UpdatedAt,
	}

	for i := range m.Conditions {
		d.Conditions = append(d.Conditions, *conditionToEntity(&m.Conditions[i]))
	}
	for i := range m.Timeline {
		t := &m.Timeline[i]
		d.Timeline = append(d.Timeline, entities.TimelineEvent{
			ID:              t.ID,
			DealID:          t.DealID,
			Event:           t.Event,
			ActorID:         null.StringFromPtr(t.ActorID),
			SystemTriggered: t.SystemTriggered,
			TxHash:          null.StringFromPtr(t.TxHash),
			CreatedAt:       t.CreatedAt,
		})
	}
	return d
}

func conditionToModel(c *entities.Condition) models.DealCondition {
	return models.DealCondition{
		ID:               utils.NewStringID(),
		DealID:           c.DealID,
		ConditionID:      c.ID,
		Type:             string(c.Type),
		Description:      c.Description,
		Status:           string(c.Status),
		Notes:            c.Notes.Ptr(),
		AutoFulfilledBy:  c.AutoFulfilledBy.Ptr(),
		CrossChainTxHash: c.CrossChainTxHash.Ptr(),
	}
}

func conditionToEntity(m *models.DealCondition) *entities.Condition {
	return &entities.Condition{
		ID:               m.ConditionID,
		DealID:           m.DealID,
		Type:             entities.ConditionType(m.Type),
		Description:      m.Description,
		Status:           entities.ConditionStatus(m.Status),
		Notes:            null.StringFromPtr(m.Notes),
		AutoFulfilledBy:  null.StringFromPtr(m.AutoFulfilledBy),
		CrossChainTxHash: null.StringFromPtr(m.CrossChainTxHash),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
