package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/pkg/evidence"
	"claim-pipeline-be/pkg/llm"
	"claim-pipeline-be/pkg/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaim(t *testing.T) {
	now := time.Date(2024, 9, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		ext     string
		data    string
		wantErr string
		check   func(t *testing.T, c entity.ClaimRecord)
	}{
		{
			name: "yaml",
			ext:  ".yaml",
			data: "claim_id: CLM-Y\npatient_name: Asha\nclaim_amount: 1200\ncoverage_limit: 5000\nprevious_claims_amount: 1000\ndocument_kinds: [xray]\n",
			check: func(t *testing.T, c entity.ClaimRecord) {
				assert.Equal(t, "CLM-Y", c.ClaimID)
				assert.Equal(t, 4000.0, c.AvailableBalance())
				assert.True(t, c.HasDocument(entity.DocumentKindXRay))
				assert.Equal(t, "cli", c.Source)
				assert.Equal(t, now, c.CreatedAt)
			},
		},
		{
			name: "json with balance override",
			ext:  ".JSON",
			data: `{"claim_id":"CLM-J","claim_amount":10,"coverage_limit":100,"available_balance":-5}`,
			check: func(t *testing.T, c entity.ClaimRecord) {
				assert.Equal(t, -5.0, c.AvailableBalance())
				assert.NotNil(t, c.DocumentKinds)
			},
		},
		{name: "missing id", ext: ".yml", data: "patient_name: x\n", wantErr: "claim_id is required"},
		{name: "negative amount", ext: ".json", data: `{"claim_id":"X","claim_amount":-1}`, wantErr: "must not be negative"},
		{name: "broken json", ext: ".json", data: `{`, wantErr: "invalid claim file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := parseClaim([]byte(tt.data), tt.ext, now)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

type fixedAnswer string

func (f fixedAnswer) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return string(f), nil
}

func (f fixedAnswer) Generate(context.Context, string, ...llm.Option) (string, error) {
	return string(f), nil
}

func TestRunClaimPrintsReport(t *testing.T) {
	answer := evidence.CollaboratorFunc(func(context.Context, evidence.ClaimFacts, string) (string, error) {
		return "Consistent.", nil
	})
	stages := pipeline.DefaultStages(pipeline.Collaborators{
		XRay:       answer,
		Medical:    answer,
		Billing:    answer,
		Policy:     answer,
		Exclusions: answer,
	})
	claim := demoClaim(time.Now())

	session, err := runClaim(context.Background(), claim, stages,
		pipeline.NewSynthesizer(fixedAnswer("FINAL DECISION: APPROVED\nFRAUD RISK LEVEL: LOW")),
		logger.NewNopLogger(), false)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionCompleted, session.Status)

	var out bytes.Buffer
	printReport(&out, claim, session)
	report := out.String()
	assert.Contains(t, report, "CLM001-2024-001")
	assert.Contains(t, report, pipeline.StageMedical)
	assert.Contains(t, report, "APPROVED")
	assert.Contains(t, report, "375000.00")
	assert.Contains(t, report, "25.0%")

	t.Run("empty claim id", func(t *testing.T) {
		_, err := runClaim(context.Background(), entity.ClaimRecord{}, stages, pipeline.NewSynthesizer(nil), logger.NewNopLogger(), false)
		assert.ErrorIs(t, err, pipeline.ErrEmptyClaimID)
	})
}
