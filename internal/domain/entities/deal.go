package entities

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// DealStatus represents deal status
type DealStatus string

const (
	DealStatusPendingSellerReview DealStatus = "PENDING_SELLER_REVIEW"
	DealStatusPendingBuyerReview  DealStatus = "PENDING_BUYER_REVIEW"
	DealStatusAwaitingFulfillment DealStatus = "AWAITING_CONDITION_FULFILLMENT"
	DealStatusInEscrow            DealStatus = "IN_ESCROW"
	DealStatusInFinalApproval     DealStatus = "IN_FINAL_APPROVAL"
	DealStatusInDispute           DealStatus = "IN_DISPUTE"
	DealStatusCompleted           DealStatus = "COMPLETED"
	DealStatusCancelled           DealStatus = "CANCELLED"
	DealStatusAutoReleaseFailed   DealStatus = "AutoReleaseFailed"
	DealStatusAutoCancelFailed    DealStatus = "AutoCancellationFailed"
	DealStatusCrossChainReleased  DealStatus = "CrossChainFundsReleased"
	DealStatusCrossChainCancelled DealStatus = "CrossChainCancelledAfterDisputeDeadline"
	DealStatusCrossChainStuck     DealStatus = "CrossChainStuck"
)

// PartyRole identifies which side of the deal an actor is on
type PartyRole string

const (
	PartyRoleBuyer  PartyRole = "BUYER"
	PartyRoleSeller PartyRole = "SELLER"
)

// ConditionType represents condition type
type ConditionType string

const (
	ConditionTypeCustom     ConditionType = "CUSTOM"
	ConditionTypeInspection ConditionType = "INSPECTION"
	ConditionTypeCrossChain ConditionType = "CROSS_CHAIN"
)

// ConditionStatus represents condition status
type ConditionStatus string

const (
	ConditionStatusPendingBuyerAction ConditionStatus = "PENDING_BUYER_ACTION"
	ConditionStatusFulfilledByBuyer   ConditionStatus = "FULFILLED_BY_BUYER"
	ConditionStatusWithdrawnByBuyer   ConditionStatus = "ACTION_WITHDRAWN_BY_BUYER"
)

// Identifiers of the conditions appended automatically to cross-chain deals,
// in the order they are appended.
const (
	ConditionIDNetworkValidation = "cross_chain_network_validation"
	ConditionIDBridgeSetup       = "cross_chain_bridge_setup"
	ConditionIDFundsLocked       = "cross_chain_funds_locked"
	ConditionIDBridgeTransfer    = "cross_chain_bridge_transfer"
)

// AutoFulfillActor is recorded on conditions fulfilled by bridge progress
// rather than by the buyer.
const AutoFulfillActor = "cross_chain_system"

// Deal represents one escrow agreement between a buyer and a seller
type Deal struct {
	ID                        string      `json:"id"`
	BuyerID                   string      `json:"buyerId"`
	SellerID                  string      `json:"sellerId"`
	InitiatedBy               PartyRole   `json:"initiatedBy"`
	PropertyAddress           string      `json:"propertyAddress"`
	Amount                    string      `json:"amount" gorm:"type:decimal(36,18)"`
	BuyerWallet               string      `json:"buyerWalletAddress"`
	SellerWallet              string      `json:"sellerWalletAddress"`
	BuyerNetwork              Network     `json:"buyerNetwork"`
	SellerNetwork             Network     `json:"sellerNetwork"`
	IsCrossChain              bool        `json:"isCrossChain"`
	SmartContractAddress      null.String `json:"smartContractAddress,omitempty"`
	Status                    DealStatus  `json:"status"`
	FundsDepositedByBuyer     bool        `json:"fundsDepositedByBuyer"`
	FundsReleasedToSeller     bool        `json:"fundsReleasedToSeller"`
	FinalApprovalDeadline     *time.Time  `json:"finalApprovalDeadlineBackend,omitempty"`
	DisputeResolutionDeadline *time.Time  `json:"disputeResolutionDeadlineBackend,omitempty"`
	CrossChainTransactionID   null.String `json:"crossChainTransactionId,omitempty"`
	ProcessingError           null.String `json:"processingError,omitempty"`
	CreatedAt                 time.Time   `json:"createdAt"`
	UpdatedAt                 time.Time   `json:"updatedAt"`

	// Joins
	Conditions []Condition     `json:"conditions,omitempty" gorm:"foreignKey:DealID"`
	Timeline   []TimelineEvent `json:"timeline,omitempty" gorm:"foreignKey:DealID"`
}

// Condition represents one fulfillable contingency within a deal
type Condition struct {
	ID               string          `json:"id"`
	DealID           string          `json:"dealId"`
	Type             ConditionType   `json:"type"`
	Description      string          `json:"description"`
	Status           ConditionStatus `json:"status"`
	Notes            null.String     `json:"notes,omitempty"`
	AutoFulfilledBy  null.String     `json:"autoFulfilledBy,omitempty"`
	CrossChainTxHash null.String     `json:"crossChainTxHash,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// TimelineEvent is one entry of a deal's append-only audit log
type TimelineEvent struct {
	ID              string      `json:"id"`
	DealID          string      `json:"dealId"`
	Event           string      `json:"event"`
	ActorID         null.String `json:"actorId,omitempty"`
	SystemTriggered bool        `json:"systemTriggered"`
	TxHash          null.String `json:"txHash,omitempty"`
	CreatedAt       time.Time   `json:"timestamp"`
}

// InitialStatus returns the review status a freshly created deal starts in.
// The counterparty of the initiator reviews first.
func InitialStatus(initiatedBy PartyRole) DealStatus {
	if initiatedBy == PartyRoleSeller {
		return DealStatusPendingBuyerReview
	}
	return DealStatusPendingSellerReview
}

var terminalStatuses = map[DealStatus]bool{
	DealStatusCompleted:           true,
	DealStatusCancelled:           true,
	DealStatusCrossChainReleased:  true,
	DealStatusCrossChainCancelled: true,
}

// IsTerminal reports whether the status permits no further transitions.
func (s DealStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

var knownDealStatuses = map[DealStatus]bool{
	DealStatusPendingSellerReview: true,
	DealStatusPendingBuyerReview:  true,
	DealStatusAwaitingFulfillment: true,
	DealStatusInEscrow:            true,
	DealStatusInFinalApproval:     true,
	DealStatusInDispute:           true,
	DealStatusCompleted:           true,
	DealStatusCancelled:           true,
	DealStatusAutoReleaseFailed:   true,
	DealStatusAutoCancelFailed:    true,
	DealStatusCrossChainReleased:  true,
	DealStatusCrossChainCancelled: true,
	DealStatusCrossChainStuck:     true,
}

// ParseDealStatus maps a raw status string onto the closed status set.
func ParseDealStatus(s string) (DealStatus, bool) {
	st := DealStatus(s)
	return st, knownDealStatuses[st]
}

// dealTransitions is the closed edge set of the deal state machine. The
// cross-chain terminal and stuck states are additionally reachable from every
// non-terminal state, handled in CanTransition.
var dealTransitions = map[DealStatus][]DealStatus{
	DealStatusPendingSellerReview: {DealStatusAwaitingFulfillment, DealStatusCancelled},
	DealStatusPendingBuyerReview:  {DealStatusAwaitingFulfillment, DealStatusCancelled},
	DealStatusAwaitingFulfillment: {DealStatusInEscrow, DealStatusInFinalApproval, DealStatusInDispute},
	DealStatusInEscrow:            {DealStatusAwaitingFulfillment, DealStatusInFinalApproval, DealStatusInDispute},
	DealStatusInFinalApproval:     {DealStatusCompleted, DealStatusInDispute, DealStatusAutoReleaseFailed},
	DealStatusInDispute:           {DealStatusCompleted, DealStatusCancelled, DealStatusAutoCancelFailed},
	DealStatusAutoReleaseFailed:   {DealStatusCompleted, DealStatusInDispute},
	DealStatusAutoCancelFailed:    {DealStatusCancelled},
	DealStatusCrossChainStuck:     {DealStatusCrossChainReleased, DealStatusCrossChainCancelled},
}

var crossChainExitStatuses = map[DealStatus]bool{
	DealStatusCrossChainReleased:  true,
	DealStatusCrossChainCancelled: true,
	DealStatusCrossChainStuck:     true,
}

// CanTransition reports whether the deal state machine defines an edge from
// one status to another.
func (s DealStatus) CanTransition(to DealStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if crossChainExitStatuses[to] {
		return true
	}
	for _, next := range dealTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// MarksFundsDeposited reports whether an observed on-chain status implies the
// buyer's funds have reached escrow.
func (s DealStatus) MarksFundsDeposited() bool {
	switch s {
	case DealStatusInEscrow, DealStatusAwaitingFulfillment, DealStatusInFinalApproval, DealStatusCompleted:
		return true
	default:
		return false
	}
}

// IsParticipant reports whether the given principal id is a party to the deal.
func (d *Deal) IsParticipant(userID string) bool {
	return userID == d.BuyerID || userID == d.SellerID
}

// ConditionByID returns the condition with the given id, or nil.
func (d *Deal) ConditionByID(conditionID string) *Condition {
	for i := range d.Conditions {
		if d.Conditions[i].ID == conditionID {
			return &d.Conditions[i]
		}
	}
	return nil
}

// AllConditionsFulfilled reports whether every condition is FULFILLED_BY_BUYER.
func (d *Deal) AllConditionsFulfilled() bool {
	for i := range d.Conditions {
		if d.Conditions[i].Status != ConditionStatusFulfilledByBuyer {
			return false
		}
	}
	return true
}

// CrossChainConditionsFulfilled reports whether every CROSS_CHAIN condition is
// FULFILLED_BY_BUYER.
func (d *Deal) CrossChainConditionsFulfilled() bool {
	for i := range d.Conditions {
		if d.Conditions[i].Type == ConditionTypeCrossChain &&
			d.Conditions[i].Status != ConditionStatusFulfilledByBuyer {
			return false
		}
	}
	return true
}

// ConditionInput is one caller-supplied condition at deal creation
type ConditionInput struct {
	ID          string `json:"id" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// CreateDealInput represents input for creating a deal
type CreateDealInput struct {
	InitiatedBy         string           `json:"initiatedBy" binding:"required"`
	PropertyAddress     string           `json:"propertyAddress" binding:"required"`
	Amount              string           `json:"amount" binding:"required"`
	OtherPartyEmail     string           `json:"otherPartyEmail" binding:"required,email"`
	BuyerWalletAddress  string           `json:"buyerWalletAddress" binding:"required"`
	SellerWalletAddress string           `json:"sellerWalletAddress" binding:"required"`
	InitialConditions   []ConditionInput `json:"initialConditions"`
}

// ReviewConditionInput represents the buyer's review of one condition
type ReviewConditionInput struct {
	DealID               string `json:"dealId" binding:"required"`
	Status               string `json:"status" binding:"required"`
	Notes                string `json:"notes"`
	CrossChainTxHash     string `json:"crossChainTxHash"`
	CrossChainStepNumber int    `json:"crossChainStepNumber"`
}

// SyncStatusInput reflects an observed on-chain state change
type SyncStatusInput struct {
	NewSCStatus               string     `json:"newSCStatus" binding:"required"`
	EventMessage              string     `json:"eventMessage"`
	FinalApprovalDeadline     *time.Time `json:"finalApprovalDeadlineISO"`
	DisputeResolutionDeadline *time.Time `json:"disputeResolutionDeadlineISO"`
}

// DeadlineInput carries the deadline for final approval or dispute windows
type DeadlineInput struct {
	Deadline    time.Time `json:"deadline" binding:"required"`
	ConditionID string    `json:"conditionId"`
}
