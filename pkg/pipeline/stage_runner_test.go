package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/pkg/evidence"

	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestRunStageFailureClasses(t *testing.T) {
	tests := []struct {
		name         string
		collaborator evidence.Collaborator
		wantStatus   entity.StageStatus
		wantClass    entity.FailureClass
	}{
		{
			name: "success",
			collaborator: evidence.CollaboratorFunc(func(context.Context, evidence.ClaimFacts, string) (string, error) {
				return "Diagnosis and treatment are consistent.", nil
			}),
			wantStatus: entity.StageCompleted,
		},
		{
			name:         "nil collaborator",
			collaborator: nil,
			wantStatus:   entity.StageFailed,
			wantClass:    entity.FailureCollaboratorUnavailable,
		},
		{
			name: "unavailable",
			collaborator: evidence.CollaboratorFunc(func(context.Context, evidence.ClaimFacts, string) (string, error) {
				return "", fmt.Errorf("index offline: %w", evidence.ErrCollaboratorUnavailable)
			}),
			wantStatus: entity.StageFailed,
			wantClass:  entity.FailureCollaboratorUnavailable,
		},
		{
			name: "deadline exceeded",
			collaborator: evidence.CollaboratorFunc(func(context.Context, evidence.ClaimFacts, string) (string, error) {
				return "", context.DeadlineExceeded
			}),
			wantStatus: entity.StageFailed,
			wantClass:  entity.FailureTimeout,
		},
		{
			name: "network timeout",
			collaborator: evidence.CollaboratorFunc(func(context.Context, evidence.ClaimFacts, string) (string, error) {
				return "", fmt.Errorf("post: %w", timeoutError{})
			}),
			wantStatus: entity.StageFailed,
			wantClass:  entity.FailureTimeout,
		},
		{
			name: "blank answer",
			collaborator: evidence.CollaboratorFunc(func(context.Context, evidence.ClaimFacts, string) (string, error) {
				return "   \n", nil
			}),
			wantStatus: entity.StageFailed,
			wantClass:  entity.FailureMalformedResponse,
		},
		{
			name: "generic error",
			collaborator: evidence.CollaboratorFunc(func(context.Context, evidence.ClaimFacts, string) (string, error) {
				return "", errors.New("boom")
			}),
			wantStatus: entity.StageFailed,
			wantClass:  entity.FailureCollaboratorError,
		},
		{
			name: "panic is contained",
			collaborator: evidence.CollaboratorFunc(func(context.Context, evidence.ClaimFacts, string) (string, error) {
				panic("collaborator exploded")
			}),
			wantStatus: entity.StageFailed,
			wantClass:  entity.FailurePanic,
		},
	}

	runner := NewStageRunner(logger.NewNopLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := Stage{Name: StageMedical, Kind: entity.EvidenceMedical, Collaborator: tt.collaborator}
			result := runner.RunStage(context.Background(), stage, sampleClaim(), entity.NewEvidence())

			assert.Equal(t, StageMedical, result.Stage)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantClass, result.Failure)
			assert.Contains(t, result.Metadata, "elapsed_ms")
			assert.NotEmpty(t, result.Content)

			if tt.wantStatus == entity.StageFailed {
				assert.Equal(t, false, result.Metadata["evidence_available"])
				assert.Equal(t, string(tt.wantClass), result.Metadata["failure_class"])
				assert.Contains(t, result.Content, "evidence unavailable")
			} else {
				assert.Equal(t, true, result.Metadata["evidence_available"])
			}
		})
	}
}

func TestRunStageAnnotatesExclusions(t *testing.T) {
	claim := sampleClaim()
	claim.Diagnosis = "Chronic osteoarthritis"
	claim.ClaimAmount = 350000

	stages := DefaultStages(Collaborators{})
	exclusions := stages[len(stages)-1]
	result := NewStageRunner(logger.NewNopLogger()).RunStage(context.Background(), exclusions, claim, entity.NewEvidence())

	assert.Equal(t, entity.StageFailed, result.Status)
	assert.Equal(t, entity.FailureCollaboratorUnavailable, result.Failure)
	assert.Equal(t, 1, result.Metadata["exclusion_count"])
	assert.Contains(t, result.Metadata[MetaRuleScreen], "Rule-based exclusion screen")
}

func TestRunStagePanicInAnnotate(t *testing.T) {
	stage := Stage{
		Name: StageExclusions,
		Kind: entity.EvidenceExclusions,
		Annotate: func(evidence.ClaimFacts) map[string]interface{} {
			panic("bad rule")
		},
	}
	result := NewStageRunner(logger.NewNopLogger()).RunStage(context.Background(), stage, sampleClaim(), nil)
	assert.Equal(t, entity.FailurePanic, result.Failure)
}
