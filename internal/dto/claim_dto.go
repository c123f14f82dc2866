package dto

import (
	"time"

	"claim-pipeline-be/internal/entity"
)

type CreateClaimRequest struct {
	ClaimID              string   `json:"claim_id" validate:"required,max=64"`
	PatientName          string   `json:"patient_name" validate:"required,max=200"`
	PolicyNumber         string   `json:"policy_number" validate:"required,max=64"`
	ClaimAmount          float64  `json:"claim_amount" validate:"gte=0"`
	ClaimDate            string   `json:"claim_date" validate:"required,datetime=2006-01-02"`
	CoverageLimit        float64  `json:"coverage_limit" validate:"gte=0"`
	PreviousClaimsAmount float64  `json:"previous_claims_amount" validate:"gte=0"`
	AvailableBalance     *float64 `json:"available_balance,omitempty"`
	Diagnosis            string   `json:"diagnosis"`
	Treatment            string   `json:"treatment"`
	HospitalName         string   `json:"hospital_name"`
	DocumentKinds        []string `json:"document_kinds"`
	PolicyYear           int      `json:"policy_year" validate:"omitempty,gte=1900"`
}

// ToEntity builds the stored record. A missing available balance stays
// unset and is computed from the coverage limit on read.
func (r CreateClaimRequest) ToEntity(now time.Time) entity.ClaimRecord {
	kinds := r.DocumentKinds
	if kinds == nil {
		kinds = []string{}
	}
	year := r.PolicyYear
	if year == 0 {
		year = now.Year()
	}
	return entity.ClaimRecord{
		ClaimID:                  r.ClaimID,
		PatientName:              r.PatientName,
		PolicyNumber:             r.PolicyNumber,
		ClaimAmount:              r.ClaimAmount,
		ClaimDate:                r.ClaimDate,
		CoverageLimit:            r.CoverageLimit,
		PreviousClaimsAmount:     r.PreviousClaimsAmount,
		AvailableBalanceOverride: r.AvailableBalance,
		Diagnosis:                r.Diagnosis,
		Treatment:                r.Treatment,
		HospitalName:             r.HospitalName,
		DocumentKinds:            append([]string(nil), kinds...),
		PolicyYear:               year,
		Source:                   entity.ManualClaimSource,
		CreatedAt:                now,
	}
}

type ClaimResponse struct {
	ClaimID              string     `json:"claim_id"`
	PatientName          string     `json:"patient_name"`
	PolicyNumber         string     `json:"policy_number"`
	ClaimAmount          float64    `json:"claim_amount"`
	ClaimDate            string     `json:"claim_date"`
	CoverageLimit        float64    `json:"coverage_limit"`
	PreviousClaimsAmount float64    `json:"previous_claims_amount"`
	AvailableBalance     float64    `json:"available_balance"`
	Diagnosis            string     `json:"diagnosis"`
	Treatment            string     `json:"treatment"`
	HospitalName         string     `json:"hospital_name"`
	DocumentKinds        []string   `json:"document_kinds"`
	PolicyYear           int        `json:"policy_year"`
	Source               string     `json:"source"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}

func NewClaimResponse(c *entity.ClaimRecord) ClaimResponse {
	kinds := c.DocumentKinds
	if kinds == nil {
		kinds = []string{}
	}
	return ClaimResponse{
		ClaimID:              c.ClaimID,
		PatientName:          c.PatientName,
		PolicyNumber:         c.PolicyNumber,
		ClaimAmount:          c.ClaimAmount,
		ClaimDate:            c.ClaimDate,
		CoverageLimit:        c.CoverageLimit,
		PreviousClaimsAmount: c.PreviousClaimsAmount,
		AvailableBalance:     c.AvailableBalance(),
		Diagnosis:            c.Diagnosis,
		Treatment:            c.Treatment,
		HospitalName:         c.HospitalName,
		DocumentKinds:        kinds,
		PolicyYear:           c.PolicyYear,
		Source:               c.Source,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

type ListClaimsQuery struct {
	PolicyNumber string `query:"policy_number"`
	Limit        int    `query:"limit" validate:"gte=0,lte=500"`
	Offset       int    `query:"offset" validate:"gte=0"`
}

type AgentLogResponse struct {
	ID                 string                `json:"id"`
	ClaimID            string                `json:"claim_id"`
	SessionID          string                `json:"session_id"`
	Claim              ClaimResponse         `json:"claim_data"`
	Evidence           *entity.Evidence      `json:"evidence"`
	StageResults       []entity.StageResult  `json:"agent_results"`
	Decision           *entity.ClaimDecision `json:"final_decision"`
	Status             entity.SessionStatus  `json:"status"`
	EventCount         int                   `json:"total_updates"`
	StagesParticipated []string              `json:"agents_participated"`
	DurationMs         int64                 `json:"duration_ms"`
	CreatedAt          time.Time             `json:"created_at"`
}

func NewAgentLogResponse(l *entity.AgentLog) AgentLogResponse {
	return AgentLogResponse{
		ID:                 l.ID,
		ClaimID:            l.ClaimID,
		SessionID:          l.SessionID,
		Claim:              NewClaimResponse(&l.Claim),
		Evidence:           l.Evidence,
		StageResults:       l.StageResults,
		Decision:           l.Decision,
		Status:             l.Status,
		EventCount:         l.EventCount,
		StagesParticipated: l.StagesParticipated,
		DurationMs:         l.Duration.Milliseconds(),
		CreatedAt:          l.CreatedAt,
	}
}
