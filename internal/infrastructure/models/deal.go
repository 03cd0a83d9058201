package models

import (
	"time"

	"gorm.io/gorm"
)

type Deal struct {
	ID                        string  `gorm:"type:varchar(36);primaryKey"`
	BuyerID                   string  `gorm:"type:varchar(36);not null;index"`
	SellerID                  string  `gorm:"type:varchar(36);not null;index"`
	InitiatedBy               string  `gorm:"type:varchar(10);not null"`
	PropertyAddress           string  `gorm:"type:varchar(500);not null"`
	Amount                    string  `gorm:"type:varchar(100);not null"` // BigInt
	BuyerWallet               string  `gorm:"type:varchar(255);not null"`
	SellerWallet              string  `gorm:"type:varchar(255);not null"`
	BuyerNetwork              string  `gorm:"type:varchar(50);not null"`
	SellerNetwork             string  `gorm:"type:varchar(50);not null"`
	IsCrossChain              bool    `gorm:"not null;index"`
	SmartContractAddress      *string `gorm:"type:varchar(255)"`
	Status                    string  `gorm:"type:varchar(60);not null;index"`
	FundsDepositedByBuyer     bool    `gorm:"not null;default:false"`
	FundsReleasedToSeller     bool    `gorm:"not null;default:false"`
	FinalApprovalDeadline     *time.Time
	DisputeResolutionDeadline *time.Time
	CrossChainTransactionID   *string `gorm:"type:varchar(36);index"`
	ProcessingError           *string `gorm:"type:text"`
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
	DeletedAt                 gorm.DeletedAt `gorm:"index"`

	Conditions []DealCondition     `gorm:"foreignKey:DealID"`
	Timeline   []DealTimelineEvent `gorm:"foreignKey:DealID"`
}

// DealCondition rows carry a surrogate primary key; the semantic condition id
// (e.g. "inspection", "cross_chain_funds_locked") is unique per deal.
type DealCondition struct {
	ID               string  `gorm:"type:varchar(36);primaryKey"`
	DealID           string  `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_deal_condition"`
	ConditionID      string  `gorm:"type:varchar(100);not null;uniqueIndex:idx_deal_condition"`
	Type             string  `gorm:"type:varchar(50);not null"`
	Description      string  `gorm:"type:text;not null"`
	Status           string  `gorm:"type:varchar(50);not null;index"`
	Notes            *string `gorm:"type:text"`
	AutoFulfilledBy  *string `gorm:"type:varchar(100)"`
	CrossChainTxHash *string `gorm:"type:varchar(255)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type DealTimelineEvent struct {
	ID              string  `gorm:"type:varchar(36);primaryKey"`
	DealID          string  `gorm:"type:varchar(36);not null;index"`
	Event           string  `gorm:"type:text;not null"`
	ActorID         *string `gorm:"type:varchar(36)"`
	SystemTriggered bool    `gorm:"not null;default:false"`
	TxHash          *string `gorm:"type:varchar(255)"`
	CreatedAt       time.Time
}
