package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimDecisionSummary(t *testing.T) {
	d := ClaimDecision{
		Decision:          DecisionRejected,
		FraudRiskLevel:    "HIGH",
		CoverageRiskLevel: "MEDIUM",
		FraudIndicators:   []string{"duplicate invoice", "billing mismatch"},
		DecisionSource:    "synthesis",
	}

	summary := d.Summary()
	assert.Equal(t, "REJECTED", summary["decision"])
	assert.Equal(t, "HIGH", summary["fraud_risk_level"])
	assert.Equal(t, "MEDIUM", summary["coverage_risk_level"])
	require.Equal(t, []string{"duplicate invoice", "billing mismatch"}, summary["fraud_indicators"])

	t.Run("indicators are copied", func(t *testing.T) {
		summary["fraud_indicators"].([]string)[0] = "changed"
		assert.Equal(t, "duplicate invoice", d.FraudIndicators[0])
	})

	t.Run("no indicators is an empty list", func(t *testing.T) {
		empty := ClaimDecision{Decision: DecisionApproved}.Summary()
		assert.Equal(t, []string{}, empty["fraud_indicators"])
	})
}
