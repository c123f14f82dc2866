package model

import (
	"time"

	"gorm.io/datatypes"
)

type ProcessingSession struct {
	SessionID       string         `gorm:"type:varchar(160);primaryKey"`
	ClaimID         string         `gorm:"type:varchar(100);not null;index"`
	Status          string         `gorm:"type:varchar(20);not null;index"`
	CurrentStage    *string        `gorm:"type:varchar(60)"`
	CompletedStages datatypes.JSON `gorm:"type:jsonb"`
	Events          datatypes.JSON `gorm:"type:jsonb"`
	StageResults    datatypes.JSON `gorm:"type:jsonb"`
	Decision        datatypes.JSON `gorm:"type:jsonb"`
	StartedAt       time.Time      `gorm:"not null;index"`
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func (ProcessingSession) TableName() string {
	return "processing_sessions"
}
