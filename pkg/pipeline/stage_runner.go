package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/pkg/evidence"
)

// Stage is one evidence collection step.
type Stage struct {
	Name         string
	Kind         entity.EvidenceKind
	Collaborator evidence.Collaborator
	// Annotate adds rule-based metadata computed from the claim alone.
	Annotate func(facts evidence.ClaimFacts) map[string]interface{}
}

type StageRunner struct {
	logger logger.ILogger
	now    func() time.Time
}

func NewStageRunner(log logger.ILogger) *StageRunner {
	return &StageRunner{logger: log, now: time.Now}
}

// RunStage executes one stage and never returns an error: every failure,
// including a panic inside the collaborator, becomes a failed StageResult.
func (r *StageRunner) RunStage(ctx context.Context, stage Stage, claim entity.ClaimRecord, prior *entity.Evidence) (result entity.StageResult) {
	started := r.now()
	facts := evidence.FactsFromClaim(claim)

	metadata := map[string]interface{}{
		"evidence_kind": string(stage.Kind),
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = r.failed(stage, metadata, entity.FailurePanic, fmt.Errorf("panic: %v", rec))
		}
		result.Elapsed = r.now().Sub(started)
		result.Metadata["elapsed_ms"] = result.Elapsed.Milliseconds()
	}()

	if stage.Annotate != nil {
		for k, v := range stage.Annotate(facts) {
			metadata[k] = v
		}
	}

	if stage.Collaborator == nil {
		return r.failed(stage, metadata, entity.FailureCollaboratorUnavailable, evidence.ErrCollaboratorUnavailable)
	}

	query := evidence.QueryFor(stage.Kind, facts, prior)
	content, err := stage.Collaborator.Query(ctx, facts, query)
	if err != nil {
		return r.failed(stage, metadata, classify(err), err)
	}
	if strings.TrimSpace(content) == "" {
		return r.failed(stage, metadata, entity.FailureMalformedResponse, evidence.ErrMalformedResponse)
	}

	metadata["evidence_available"] = true
	metadata["content_length"] = len(content)

	r.logger.Debug("StageRunner", "Stage completed", map[string]interface{}{
		"stage":    stage.Name,
		"claim_id": claim.ClaimID,
	})

	return entity.StageResult{
		Stage:    stage.Name,
		Status:   entity.StageCompleted,
		Content:  content,
		Metadata: metadata,
	}
}

func (r *StageRunner) failed(stage Stage, metadata map[string]interface{}, class entity.FailureClass, err error) entity.StageResult {
	metadata["evidence_available"] = false
	metadata["failure_class"] = string(class)
	metadata["error"] = err.Error()

	r.logger.Warn("StageRunner", "Stage failed", map[string]interface{}{
		"stage":         stage.Name,
		"failure_class": string(class),
		"error":         err.Error(),
	})

	return entity.StageResult{
		Stage:    stage.Name,
		Status:   entity.StageFailed,
		Content:  describeFailure(stage, class, err),
		Metadata: metadata,
		Failure:  class,
	}
}

func classify(err error) entity.FailureClass {
	var netErr net.Error
	switch {
	case errors.Is(err, evidence.ErrCollaboratorUnavailable), errors.Is(err, ErrSynthesizerUnavailable):
		return entity.FailureCollaboratorUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return entity.FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return entity.FailureTimeout
	case errors.Is(err, evidence.ErrMalformedResponse):
		return entity.FailureMalformedResponse
	default:
		return entity.FailureCollaboratorError
	}
}

func describeFailure(stage Stage, class entity.FailureClass, err error) string {
	var reason string
	switch class {
	case entity.FailureCollaboratorUnavailable:
		reason = "collaborator unavailable"
	case entity.FailureTimeout:
		reason = "collaborator timed out"
	case entity.FailureMalformedResponse:
		reason = "collaborator returned a malformed response"
	case entity.FailurePanic:
		reason = "stage crashed"
	default:
		reason = "collaborator error"
	}
	return fmt.Sprintf("%s evidence unavailable: %s (%v)", stage.Name, reason, err)
}
