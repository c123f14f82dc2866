// Package evidence holds the external analysis collaborators consulted by the
// pipeline stages and the plain query builders fed to them.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"claim-pipeline-be/internal/entity"
)

var (
	ErrCollaboratorUnavailable = errors.New("evidence collaborator unavailable")
	ErrMalformedResponse       = errors.New("evidence collaborator returned a malformed response")
)

// ClaimFacts is the read-only view of a claim handed to collaborators.
type ClaimFacts struct {
	ClaimID              string
	PatientName          string
	PolicyNumber         string
	ClaimDate            string
	ClaimAmount          float64
	CoverageLimit        float64
	PreviousClaimsAmount float64
	AvailableBalance     float64
	Diagnosis            string
	Treatment            string
	HospitalName         string
	DocumentKinds        []string
	PolicyYear           int
}

func FactsFromClaim(c entity.ClaimRecord) ClaimFacts {
	return ClaimFacts{
		ClaimID:              c.ClaimID,
		PatientName:          c.PatientName,
		PolicyNumber:         c.PolicyNumber,
		ClaimDate:            c.ClaimDate,
		ClaimAmount:          c.ClaimAmount,
		CoverageLimit:        c.CoverageLimit,
		PreviousClaimsAmount: c.PreviousClaimsAmount,
		AvailableBalance:     c.AvailableBalance(),
		Diagnosis:            c.Diagnosis,
		Treatment:            c.Treatment,
		HospitalName:         c.HospitalName,
		DocumentKinds:        append([]string{}, c.DocumentKinds...),
		PolicyYear:           c.PolicyYear,
	}
}

// Describe renders the facts as a plain block for prompts and reports.
func (f ClaimFacts) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim ID: %s\n", f.ClaimID)
	fmt.Fprintf(&b, "Patient: %s\n", f.PatientName)
	fmt.Fprintf(&b, "Policy Number: %s\n", f.PolicyNumber)
	if f.ClaimDate != "" {
		fmt.Fprintf(&b, "Claim Date: %s\n", f.ClaimDate)
	}
	fmt.Fprintf(&b, "Claim Amount: ₹%.2f\n", f.ClaimAmount)
	fmt.Fprintf(&b, "Coverage Limit: ₹%.2f\n", f.CoverageLimit)
	fmt.Fprintf(&b, "Previously Claimed: ₹%.2f\n", f.PreviousClaimsAmount)
	fmt.Fprintf(&b, "Available Balance: ₹%.2f\n", f.AvailableBalance)
	fmt.Fprintf(&b, "Diagnosis: %s\n", f.Diagnosis)
	fmt.Fprintf(&b, "Treatment: %s\n", f.Treatment)
	fmt.Fprintf(&b, "Hospital: %s\n", f.HospitalName)
	if len(f.DocumentKinds) > 0 {
		fmt.Fprintf(&b, "Documents Available: %s\n", strings.Join(f.DocumentKinds, ", "))
	}
	return b.String()
}

// Collaborator is any backend able to answer a query about a claim.
// Every returned error is treated as a stage failure by the caller.
type Collaborator interface {
	Query(ctx context.Context, facts ClaimFacts, queryText string) (string, error)
}

// CollaboratorFunc adapts a function to the Collaborator interface.
type CollaboratorFunc func(ctx context.Context, facts ClaimFacts, queryText string) (string, error)

func (f CollaboratorFunc) Query(ctx context.Context, facts ClaimFacts, queryText string) (string, error) {
	return f(ctx, facts, queryText)
}
