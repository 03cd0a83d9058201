package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID            string  `gorm:"type:varchar(36);primaryKey"`
	Email         string  `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name          string  `gorm:"type:varchar(100);not null"`
	WalletAddress *string `gorm:"type:varchar(255)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}
