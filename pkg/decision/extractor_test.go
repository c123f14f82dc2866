package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDecision(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantDecision string
	}{
		{
			name:         "plain approved marker",
			text:         "Summary of findings.\nFINAL DECISION: APPROVED\n",
			wantDecision: Approved,
		},
		{
			name:         "plain rejected marker",
			text:         "FINAL DECISION: REJECTED",
			wantDecision: Rejected,
		},
		{
			name:         "bold marker after colon",
			text:         "FINAL DECISION:** REJECTED",
			wantDecision: Rejected,
		},
		{
			name:         "fully bold label",
			text:         "**FINAL DECISION:** APPROVED",
			wantDecision: Approved,
		},
		{
			name:         "underscore label",
			text:         "final_decision: approved",
			wantDecision: Approved,
		},
		{
			name:         "rejected wins over approved regardless of formatting",
			text:         "FINAL DECISION: APPROVED\n...\nFINAL DECISION:** REJECTED",
			wantDecision: Rejected,
		},
		{
			name:         "bare words are not markers",
			text:         "The claim looks approved by the billing team but nothing was decided.",
			wantDecision: "",
		},
		{
			name:         "empty text",
			text:         "",
			wantDecision: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			assert.Equal(t, tt.wantDecision, got.Decision)
			assert.Equal(t, tt.wantDecision != "", got.HasDecision())
		})
	}
}

func TestExtractSecondaryFields(t *testing.T) {
	text := `**FRAUD RISK LEVEL:** LOW
COVERAGE RISK LEVEL: medium
COVERAGE ASSESSMENT: PARTIAL
POLICY BALANCE STATUS: SUFFICIENT
EXCLUSIONS APPLICABLE: NO
FRAUD RISK LEVEL: HIGH`

	got := Extract(text)

	assert.Equal(t, "LOW", got.FraudRiskLevel, "first match top to bottom")
	assert.Equal(t, "MEDIUM", got.CoverageRiskLevel)
	assert.Equal(t, "PARTIAL", got.CoverageAssessment)
	assert.Equal(t, "SUFFICIENT", got.BalanceStatus)
	assert.Equal(t, "NO", got.ExclusionsApplicable)
	assert.Empty(t, got.Decision)
}

func TestExtractUnknownFields(t *testing.T) {
	got := Extract("FRAUD RISK LEVEL: SEVERE\nnothing else here")

	assert.Equal(t, Unknown, got.FraudRiskLevel)
	assert.Equal(t, Unknown, got.CoverageRiskLevel)
	assert.Equal(t, Unknown, got.CoverageAssessment)
	assert.Equal(t, Unknown, got.BalanceStatus)
	assert.Equal(t, Unknown, got.ExclusionsApplicable)
	assert.Nil(t, got.StatedAmount)
}

func TestExtractStatedAmount(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantValue float64
	}{
		{name: "rupee symbol", text: "Approved amount ₹75,000 for surgery", wantValue: 75000},
		{name: "rs prefix", text: "APPROVED AMOUNT: Rs. 1,20,000.50", wantValue: 120000.50},
		{name: "inr code", text: "pay INR 4500 now, later INR 9000", wantValue: 4500},
		{name: "dollar", text: "total $1,250.75", wantValue: 1250.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			require.NotNil(t, got.StatedAmount)
			assert.InDelta(t, tt.wantValue, got.StatedAmount.Value, 0.001)
		})
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	text := "FINAL DECISION: APPROVED\nFRAUD RISK LEVEL: LOW\nAmount ₹75,000"
	first := Extract(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Extract(text))
	}
}
