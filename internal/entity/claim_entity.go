package entity

import (
	"time"
)

type ClaimRecord struct {
	ClaimID              string  `json:"claim_id" yaml:"claim_id"`
	PatientName          string  `json:"patient_name" yaml:"patient_name"`
	PolicyNumber         string  `json:"policy_number" yaml:"policy_number"`
	ClaimAmount          float64 `json:"claim_amount" yaml:"claim_amount"`
	ClaimDate            string  `json:"claim_date" yaml:"claim_date"`
	CoverageLimit        float64 `json:"coverage_limit" yaml:"coverage_limit"`
	PreviousClaimsAmount float64 `json:"previous_claims_amount" yaml:"previous_claims_amount"`
	// AvailableBalanceOverride replaces the computed balance when set.
	AvailableBalanceOverride *float64   `json:"available_balance,omitempty" yaml:"available_balance,omitempty"`
	Diagnosis                string     `json:"diagnosis" yaml:"diagnosis"`
	Treatment                string     `json:"treatment" yaml:"treatment"`
	HospitalName             string     `json:"hospital_name" yaml:"hospital_name"`
	DocumentKinds            []string   `json:"document_kinds" yaml:"document_kinds"`
	PolicyYear               int        `json:"policy_year" yaml:"policy_year"`
	Source                   string     `json:"source" yaml:"source"`
	CreatedAt                time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt                *time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// AvailableBalance is coverage limit minus previous claims unless overridden.
// The result is never clamped; a negative balance is a valid signal.
func (c ClaimRecord) AvailableBalance() float64 {
	if c.AvailableBalanceOverride != nil {
		return *c.AvailableBalanceOverride
	}
	return c.CoverageLimit - c.PreviousClaimsAmount
}

func (c ClaimRecord) HasDocument(kind string) bool {
	for _, k := range c.DocumentKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Clone copies the record including its slices and override pointer.
func (c ClaimRecord) Clone() ClaimRecord {
	out := c
	if c.DocumentKinds != nil {
		out.DocumentKinds = append([]string(nil), c.DocumentKinds...)
	}
	if c.AvailableBalanceOverride != nil {
		v := *c.AvailableBalanceOverride
		out.AvailableBalanceOverride = &v
	}
	if c.UpdatedAt != nil {
		t := *c.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

const (
	PlaceholderPatientName  = "Demo Patient"
	PlaceholderPolicyNumber = "DEMO-POLICY"
	PlaceholderClaimAmount  = 100000
	DefaultCoverageLimit    = 500000
	PlaceholderClaimSource  = "placeholder"
	PlaceholderDiagnosis    = "Not provided"
	PlaceholderTreatment    = "Not provided"
	PlaceholderHospitalName = "Unknown Provider"
	ManualClaimSource       = "api"
	DocumentKindMedical     = "medical_report"
	DocumentKindBilling     = "billing_statement"
	DocumentKindXRay        = "xray"
	DocumentKindPolicy      = "policy_document"
	DocumentKindIdentity    = "identity_document"
)

// NewPlaceholderClaim builds the minimal record used when only a claim id is known.
func NewPlaceholderClaim(claimID string, now time.Time) ClaimRecord {
	return ClaimRecord{
		ClaimID:       claimID,
		PatientName:   PlaceholderPatientName,
		PolicyNumber:  PlaceholderPolicyNumber,
		ClaimAmount:   PlaceholderClaimAmount,
		ClaimDate:     now.Format("2006-01-02"),
		CoverageLimit: DefaultCoverageLimit,
		Diagnosis:     PlaceholderDiagnosis,
		Treatment:     PlaceholderTreatment,
		HospitalName:  PlaceholderHospitalName,
		DocumentKinds: []string{},
		PolicyYear:    now.Year(),
		Source:        PlaceholderClaimSource,
		CreatedAt:     now,
	}
}
