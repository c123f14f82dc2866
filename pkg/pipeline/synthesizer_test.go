package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/pkg/decision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize(t *testing.T) {
	ev := entity.NewEvidence()
	ev.Record(entity.EvidenceMedical, StageMedical, "Treatment matches diagnosis.", nil)
	ev.MarkUnavailable(entity.EvidenceBilling, StageBilling, "timeout", nil)

	tests := []struct {
		name          string
		answer        string
		wantDecision  entity.DecisionOutcome
		wantApproved  string
		wantRemaining string
		wantFraud     string
		wantUtil      float64
	}{
		{
			name:          "approved claim",
			answer:        "FINAL DECISION: APPROVED\nFRAUD RISK LEVEL: LOW\nCoverage looks fine.",
			wantDecision:  entity.DecisionApproved,
			wantApproved:  "75000.00",
			wantRemaining: "375000.00",
			wantFraud:     "LOW",
			wantUtil:      25.0,
		},
		{
			name:          "no decision marker",
			answer:        "The claim seems reasonable and should probably be approved.",
			wantDecision:  entity.DecisionOrchestrationFailed,
			wantApproved:  "0.00",
			wantRemaining: "450000.00",
			wantFraud:     decision.Unknown,
			wantUtil:      10.0,
		},
		{
			name:          "rejection wins over bold approval",
			answer:        "**FINAL DECISION:** REJECTED\nFINAL DECISION: APPROVED\nFRAUD RISK LEVEL: HIGH",
			wantDecision:  entity.DecisionRejected,
			wantApproved:  "0.00",
			wantRemaining: "450000.00",
			wantFraud:     "HIGH",
			wantUtil:      10.0,
		},
		{
			name:          "stated amount is honored",
			answer:        "FINAL DECISION: APPROVED\nAPPROVED AMOUNT: ₹60,000",
			wantDecision:  entity.DecisionApproved,
			wantApproved:  "60000.00",
			wantRemaining: "375000.00",
			wantFraud:     decision.Unknown,
			wantUtil:      25.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &scriptedProvider{answer: tt.answer}
			s := NewSynthesizer(provider)

			got, raw, err := s.Synthesize(context.Background(), sampleClaim(), ev)
			require.NoError(t, err)

			assert.Equal(t, tt.answer, raw)
			assert.Equal(t, tt.wantDecision, got.Decision)
			assert.Equal(t, tt.wantApproved, got.ApprovedAmount)
			assert.Equal(t, tt.wantRemaining, got.RemainingBalance)
			assert.Equal(t, tt.wantFraud, got.FraudRiskLevel)
			assert.InDelta(t, tt.wantUtil, got.PolicyUtilization, 0.001)
			require.Len(t, provider.history, 2)
		})
	}
}

func TestSynthesizeMissingDecisionDetails(t *testing.T) {
	s := NewSynthesizer(&scriptedProvider{answer: "nothing useful"})
	got, _, err := s.Synthesize(context.Background(), sampleClaim(), entity.NewEvidence())
	require.NoError(t, err)

	assert.Equal(t, []string{"Coordinator did not provide final decision"}, got.FraudIndicators)
	assert.Contains(t, got.Rationale, "no terminal decision found")
	assert.Equal(t, decision.Unknown, got.CoverageAssessment)
}

func TestSynthesizeErrors(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		_, _, err := NewSynthesizer(nil).Synthesize(context.Background(), sampleClaim(), entity.NewEvidence())
		assert.ErrorIs(t, err, ErrSynthesizerUnavailable)
	})

	t.Run("provider error", func(t *testing.T) {
		cause := errors.New("model overloaded")
		_, _, err := NewSynthesizer(&scriptedProvider{err: cause}).Synthesize(context.Background(), sampleClaim(), entity.NewEvidence())
		assert.ErrorIs(t, err, cause)
	})
}

func TestBuildSynthesisRequest(t *testing.T) {
	ev := entity.NewEvidence()
	ev.Record(entity.EvidenceMedical, StageMedical, "Consistent.", nil)
	ev.MarkUnavailable(entity.EvidenceXRay, StageIdentity, "collaborator_unavailable", nil)
	ev.Record(entity.EvidenceExclusions, StageExclusions, "No exclusions.", map[string]interface{}{
		MetaRuleScreen: "Rule-based exclusion screen:\n- Provider Network",
	})

	req := BuildSynthesisRequest(sampleClaim(), ev)

	assert.Contains(t, req, "[medical] from Medical_Consistency")
	assert.Contains(t, req, "[xray] UNAVAILABLE")
	assert.Contains(t, req, "[billing] NOT COLLECTED")
	assert.Contains(t, req, "Rule-based exclusion screen")
	assert.Contains(t, req, "CLM-100")
}

func TestBuildDecisionFraudIndicators(t *testing.T) {
	ev := entity.NewEvidence()
	ev.Record(entity.EvidenceXRay, StageIdentity, "- CRITICAL: cardiac diagnosis with knee x-ray", nil)
	ev.MarkUnavailable(entity.EvidenceBilling, StageBilling, "CRITICAL: should be ignored", nil)

	parsed := decision.Extract("FINAL DECISION: REJECTED\nCRITICAL: cardiac diagnosis with knee x-ray")
	got := BuildDecision(sampleClaim(), parsed, "FINAL DECISION: REJECTED", ev, time.Now())

	assert.Equal(t, []string{"CRITICAL: cardiac diagnosis with knee x-ray"}, got.FraudIndicators)
}

func TestRationaleIsTruncated(t *testing.T) {
	long := strings.Repeat("a", 250)
	got := rationale(long)
	assert.Equal(t, 203, len(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestFailedDecision(t *testing.T) {
	got := FailedDecision(sampleClaim(), errors.New("model overloaded"), time.Now())
	assert.Equal(t, entity.DecisionOrchestrationFailed, got.Decision)
	assert.Equal(t, "0.00", got.ApprovedAmount)
	assert.Contains(t, got.Rationale, "model overloaded")
}
