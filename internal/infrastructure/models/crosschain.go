package models

import (
	"time"

	"gorm.io/gorm"
)

type CrossChainTransaction struct {
	ID              string `gorm:"type:varchar(36);primaryKey"`
	DealID          string `gorm:"type:varchar(36);not null;uniqueIndex"`
	FromAddress     string `gorm:"type:varchar(255);not null"`
	ToAddress       string `gorm:"type:varchar(255);not null"`
	Amount          string `gorm:"type:varchar(100);not null"` // BigInt
	SourceNetwork   string `gorm:"type:varchar(50);not null"`
	TargetNetwork   string `gorm:"type:varchar(50);not null"`
	BridgeInfo      string `gorm:"type:jsonb;default:'{}'"`
	Status          string `gorm:"type:varchar(50);not null;index"`
	LastStatusCheck *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`

	Steps []CrossChainStep `gorm:"foreignKey:TransactionID"`
}

type CrossChainStep struct {
	ID               string  `gorm:"type:varchar(36);primaryKey"`
	TransactionID    string  `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_tx_step"`
	StepNumber       int     `gorm:"not null;uniqueIndex:idx_tx_step"`
	Action           string  `gorm:"type:varchar(50);not null"`
	Status           string  `gorm:"type:varchar(50);not null;index"`
	Description      string  `gorm:"type:text"`
	ConditionMapping *string `gorm:"type:varchar(100)"`
	TxHash           *string `gorm:"type:varchar(255)"`
	ExecutionID      *string `gorm:"type:varchar(255)"`
	ErrorMessage     *string `gorm:"type:text"`
	StartedAt        *time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
