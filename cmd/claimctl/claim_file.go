package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"claim-pipeline-be/internal/entity"

	"gopkg.in/yaml.v3"
)

// demoClaim is processed when run is given no file.
func demoClaim(now time.Time) entity.ClaimRecord {
	return entity.ClaimRecord{
		ClaimID:              "CLM001-2024-001",
		PatientName:          "John Doe",
		PolicyNumber:         "POL123456789",
		ClaimAmount:          75000,
		ClaimDate:            "2024-09-15",
		CoverageLimit:        500000,
		PreviousClaimsAmount: 50000,
		Diagnosis:            "Knee Osteoarthritis with joint replacement surgery",
		Treatment:            "Orthopedic Surgery - Total Knee Replacement",
		HospitalName:         "Apollo Hospital, Delhi",
		DocumentKinds: []string{
			entity.DocumentKindMedical,
			entity.DocumentKindXRay,
			entity.DocumentKindBilling,
		},
		PolicyYear: 2024,
		Source:     "cli-demo",
		CreatedAt:  now,
	}
}

// loadClaimFile reads one claim record. Files ending in .json are decoded as
// JSON, everything else as YAML.
func loadClaimFile(path string, now time.Time) (entity.ClaimRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.ClaimRecord{}, err
	}
	return parseClaim(data, filepath.Ext(path), now)
}

func parseClaim(data []byte, ext string, now time.Time) (entity.ClaimRecord, error) {
	var claim entity.ClaimRecord
	var err error
	if strings.EqualFold(ext, ".json") {
		err = json.Unmarshal(data, &claim)
	} else {
		err = yaml.Unmarshal(data, &claim)
	}
	if err != nil {
		return entity.ClaimRecord{}, fmt.Errorf("invalid claim file: %w", err)
	}

	if strings.TrimSpace(claim.ClaimID) == "" {
		return entity.ClaimRecord{}, fmt.Errorf("invalid claim file: claim_id is required")
	}
	if claim.ClaimAmount < 0 {
		return entity.ClaimRecord{}, fmt.Errorf("invalid claim file: claim_amount must not be negative")
	}
	if claim.DocumentKinds == nil {
		claim.DocumentKinds = []string{}
	}
	if claim.Source == "" {
		claim.Source = "cli"
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now
	}
	return claim, nil
}
