package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Claim struct {
	ClaimID              string         `gorm:"type:varchar(100);primaryKey"`
	PatientName          string         `gorm:"type:varchar(255);not null"`
	PolicyNumber         string         `gorm:"type:varchar(100);not null;index"`
	ClaimAmount          float64        `gorm:"type:numeric(14,2);not null"`
	ClaimDate            string         `gorm:"type:varchar(20)"`
	CoverageLimit        float64        `gorm:"type:numeric(14,2);not null"`
	PreviousClaimsAmount float64        `gorm:"type:numeric(14,2);not null;default:0"`
	AvailableBalance     *float64       `gorm:"type:numeric(14,2)"`
	Diagnosis            string         `gorm:"type:text"`
	Treatment            string         `gorm:"type:text"`
	HospitalName         string         `gorm:"type:varchar(255)"`
	DocumentKinds        datatypes.JSON `gorm:"type:jsonb"`
	PolicyYear           int
	Source               string         `gorm:"type:varchar(30);not null;default:'api'"`
	CreatedAt            time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime"`
	DeletedAt            gorm.DeletedAt `gorm:"index"`
}

func (Claim) TableName() string {
	return "claims"
}
