package mapper

import (
	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/model"
)

type ClaimMapper struct{}

func NewClaimMapper() *ClaimMapper {
	return &ClaimMapper{}
}

func (m *ClaimMapper) ToEntity(c *model.Claim) *entity.ClaimRecord {
	if c == nil {
		return nil
	}

	kinds := []string{}
	fromJSON(c.DocumentKinds, &kinds)

	out := &entity.ClaimRecord{
		ClaimID:                  c.ClaimID,
		PatientName:              c.PatientName,
		PolicyNumber:             c.PolicyNumber,
		ClaimAmount:              c.ClaimAmount,
		ClaimDate:                c.ClaimDate,
		CoverageLimit:            c.CoverageLimit,
		PreviousClaimsAmount:     c.PreviousClaimsAmount,
		AvailableBalanceOverride: c.AvailableBalance,
		Diagnosis:                c.Diagnosis,
		Treatment:                c.Treatment,
		HospitalName:             c.HospitalName,
		DocumentKinds:            kinds,
		PolicyYear:               c.PolicyYear,
		Source:                   c.Source,
		CreatedAt:                c.CreatedAt,
	}
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

func (m *ClaimMapper) ToModel(c *entity.ClaimRecord) *model.Claim {
	if c == nil {
		return nil
	}

	kinds := c.DocumentKinds
	if kinds == nil {
		kinds = []string{}
	}

	out := &model.Claim{
		ClaimID:              c.ClaimID,
		PatientName:          c.PatientName,
		PolicyNumber:         c.PolicyNumber,
		ClaimAmount:          c.ClaimAmount,
		ClaimDate:            c.ClaimDate,
		CoverageLimit:        c.CoverageLimit,
		PreviousClaimsAmount: c.PreviousClaimsAmount,
		AvailableBalance:     c.AvailableBalanceOverride,
		Diagnosis:            c.Diagnosis,
		Treatment:            c.Treatment,
		HospitalName:         c.HospitalName,
		DocumentKinds:        toJSON(kinds),
		PolicyYear:           c.PolicyYear,
		Source:               c.Source,
		CreatedAt:            c.CreatedAt,
	}
	if c.UpdatedAt != nil {
		out.UpdatedAt = *c.UpdatedAt
	}
	return out
}
