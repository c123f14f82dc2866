package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/repository/contract"
	"claim-pipeline-be/internal/repository/implementation"
	"claim-pipeline-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	claims := implementation.NewClaimRepository(db)
	ctx := context.Background()
	now := time.Now()

	log.Println("Seeding demo claims...")

	for _, c := range demoClaims(now) {
		c := c
		if _, err := claims.Get(ctx, c.ClaimID); err == nil {
			log.Printf("Claim '%s' already exists, skipping...", c.ClaimID)
			continue
		} else if !errors.Is(err, contract.ErrNotFound) {
			log.Fatalf("Error: lookup of %s failed: %v", c.ClaimID, err)
		}

		if err := claims.Save(ctx, &c); err != nil {
			log.Printf("Failed to seed claim '%s': %v", c.ClaimID, err)
			continue
		}
		log.Printf("Seeded claim: %s (%s)", c.ClaimID, c.PatientName)
	}

	log.Println("Claim seeding complete.")
}

func demoClaims(now time.Time) []entity.ClaimRecord {
	allDocs := []string{
		entity.DocumentKindMedical,
		entity.DocumentKindBilling,
		entity.DocumentKindPolicy,
		entity.DocumentKindIdentity,
	}
	return []entity.ClaimRecord{
		{
			ClaimID:              "CLM001-2024-001",
			PatientName:          "John Doe",
			PolicyNumber:         "POL-2024-001",
			ClaimAmount:          75000,
			ClaimDate:            "2024-01-15",
			CoverageLimit:        500000,
			PreviousClaimsAmount: 50000,
			Diagnosis:            "Fractured radius",
			Treatment:            "Open reduction and internal fixation",
			HospitalName:         "City General Hospital",
			DocumentKinds:        append(allDocs, entity.DocumentKindXRay),
			PolicyYear:           2024,
			Source:               "seed",
			CreatedAt:            now,
		},
		{
			ClaimID:              "CLM002-2024-002",
			PatientName:          "Maria Santos",
			PolicyNumber:         "POL-2023-417",
			ClaimAmount:          320000,
			ClaimDate:            "2024-03-02",
			CoverageLimit:        300000,
			PreviousClaimsAmount: 120000,
			Diagnosis:            "Acute appendicitis",
			Treatment:            "Laparoscopic appendectomy",
			HospitalName:         "St. Luke Medical Center",
			DocumentKinds:        allDocs,
			PolicyYear:           2023,
			Source:               "seed",
			CreatedAt:            now,
		},
		{
			ClaimID:              "CLM003-2024-003",
			PatientName:          "Ken Watanabe",
			PolicyNumber:         "POL-2024-088",
			ClaimAmount:          18000,
			ClaimDate:            "2024-05-20",
			CoverageLimit:        200000,
			PreviousClaimsAmount: 0,
			Diagnosis:            "Type 2 diabetes follow-up",
			Treatment:            "Outpatient consultation",
			HospitalName:         "Riverside Clinic",
			DocumentKinds:        []string{entity.DocumentKindMedical, entity.DocumentKindBilling},
			PolicyYear:           2024,
			Source:               "seed",
			CreatedAt:            now,
		},
	}
}
