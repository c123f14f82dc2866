package model

import (
	"time"

	"gorm.io/datatypes"
)

type AgentLog struct {
	ID                 string         `gorm:"type:varchar(160);primaryKey"`
	ClaimID            string         `gorm:"type:varchar(100);not null;index:idx_agent_logs_claim_created,priority:1"`
	SessionID          string         `gorm:"type:varchar(160);index"`
	Claim              datatypes.JSON `gorm:"type:jsonb"`
	Evidence           datatypes.JSON `gorm:"type:jsonb"`
	StageResults       datatypes.JSON `gorm:"type:jsonb"`
	Decision           datatypes.JSON `gorm:"type:jsonb"`
	Status             string         `gorm:"type:varchar(20);not null"`
	EventCount         int
	StagesParticipated datatypes.JSON `gorm:"type:jsonb"`
	DurationMs         int64
	CreatedAt          time.Time `gorm:"not null;index:idx_agent_logs_claim_created,priority:2"`
}

func (AgentLog) TableName() string {
	return "agent_logs"
}
