package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/internal/repository/contract"
	"claim-pipeline-be/pkg/events"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrEmptyClaimID = errors.New("claim id is required")

const orchestratorModule = "Orchestrator"

// Broadcaster fans session events out to live subscribers.
type Broadcaster interface {
	Publish(sessionID string, event entity.Event)
	CloseSession(sessionID string)
}

// EventPublisher emits domain events on the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// DecisionNotifier is told about every terminal run.
type DecisionNotifier interface {
	NotifyDecision(ctx context.Context, claim entity.ClaimRecord, session *entity.Session) error
}

type Dependencies struct {
	Claims      contract.ClaimRepository
	Logs        contract.AgentLogRepository
	Tracker     *SessionTracker
	Runner      *StageRunner
	Synthesizer *Synthesizer
	Stages      []Stage
	Broadcaster Broadcaster
	Events      EventPublisher
	Notifier    DecisionNotifier
	Logger      logger.ILogger
}

// Orchestrator drives one claim through the fixed stage sequence. It is the
// only writer of the sessions it runs.
type Orchestrator struct {
	claims      contract.ClaimRepository
	logs        contract.AgentLogRepository
	tracker     *SessionTracker
	runner      *StageRunner
	synthesizer *Synthesizer
	stages      []Stage
	broadcaster Broadcaster
	events      EventPublisher
	notifier    DecisionNotifier
	logger      logger.ILogger
	tracer      trace.Tracer
	now         func() time.Time
}

func NewOrchestrator(deps Dependencies) *Orchestrator {
	runner := deps.Runner
	if runner == nil {
		runner = NewStageRunner(deps.Logger)
	}
	return &Orchestrator{
		claims:      deps.Claims,
		logs:        deps.Logs,
		tracker:     deps.Tracker,
		runner:      runner,
		synthesizer: deps.Synthesizer,
		stages:      deps.Stages,
		broadcaster: deps.Broadcaster,
		events:      deps.Events,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		tracer:      otel.Tracer("claim-pipeline"),
		now:         time.Now,
	}
}

func (o *Orchestrator) Tracker() *SessionTracker {
	return o.tracker
}

// ResolveClaim loads the claim record. Unknown claims get a placeholder that
// is saved so later lookups agree; a broken store still yields a placeholder.
func (o *Orchestrator) ResolveClaim(ctx context.Context, claimID string) entity.ClaimRecord {
	if o.claims == nil {
		return entity.NewPlaceholderClaim(claimID, o.now())
	}

	claim, err := o.claims.Get(ctx, claimID)
	if err == nil {
		return claim.Clone()
	}

	placeholder := entity.NewPlaceholderClaim(claimID, o.now())
	if !errors.Is(err, contract.ErrNotFound) {
		o.logger.Warn(orchestratorModule, "Claim lookup failed, using placeholder record", map[string]interface{}{
			"claim_id": claimID,
			"error":    err.Error(),
		})
		return placeholder
	}

	if err := o.claims.Save(ctx, &placeholder); err != nil {
		o.logger.Warn(orchestratorModule, "Failed to save placeholder claim", map[string]interface{}{
			"claim_id": claimID,
			"error":    err.Error(),
		})
	}
	return placeholder
}

// Start resolves the claim and creates its session without running it.
func (o *Orchestrator) Start(ctx context.Context, claimID string) (*entity.Session, entity.ClaimRecord, error) {
	if claimID == "" {
		return nil, entity.ClaimRecord{}, ErrEmptyClaimID
	}
	claim := o.ResolveClaim(ctx, claimID)
	session := o.tracker.Create(ctx, claim.ClaimID)

	o.logger.Info(orchestratorModule, "Session created", map[string]interface{}{
		"claim_id":   claim.ClaimID,
		"session_id": session.SessionID,
	})
	return session, claim, nil
}

// RunPipeline creates a session for claim and runs it to completion.
func (o *Orchestrator) RunPipeline(ctx context.Context, claim entity.ClaimRecord) (*entity.Session, error) {
	if claim.ClaimID == "" {
		return nil, ErrEmptyClaimID
	}
	session := o.tracker.Create(ctx, claim.ClaimID)
	return o.Run(ctx, session, claim), nil
}

// ProcessClaim resolves claimID and runs it synchronously.
func (o *Orchestrator) ProcessClaim(ctx context.Context, claimID string) (*entity.Session, error) {
	session, claim, err := o.Start(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, session, claim), nil
}

// Run drives a created session through every stage and returns the terminal
// snapshot. Stage failures never abort the run.
func (o *Orchestrator) Run(ctx context.Context, session *entity.Session, claim entity.ClaimRecord) *entity.Session {
	sessionID := session.SessionID
	started := o.now()

	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("claim.id", claim.ClaimID),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	if err := o.tracker.Begin(sessionID); err != nil {
		o.logger.Error(orchestratorModule, "Session cannot begin", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		span.SetStatus(codes.Error, err.Error())
		return o.abort(ctx, sessionID, claim, err, started)
	}

	o.emit(ctx, sessionID, entity.Event{
		AgentName: entity.SystemAgent,
		Status:    entity.EventProcessing,
		Message:   fmt.Sprintf("Starting claim processing for %s", claim.ClaimID),
		Metadata: map[string]interface{}{
			"claim_id": claim.ClaimID,
			"stages":   append([]string{}, StageOrder...),
		},
	})

	ev := entity.NewEvidence()
	for _, stage := range o.stages {
		o.runStage(ctx, sessionID, stage, claim, ev)
	}

	return o.synthesize(ctx, sessionID, claim, ev, started)
}

func (o *Orchestrator) runStage(ctx context.Context, sessionID string, stage Stage, claim entity.ClaimRecord, ev *entity.Evidence) {
	ctx, span := o.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(
		attribute.String("claim.id", claim.ClaimID),
		attribute.String("session.id", sessionID),
		attribute.String("stage", stage.Name),
	))
	defer span.End()

	if err := o.tracker.StartStage(sessionID, stage.Name); err != nil {
		o.logger.Warn(orchestratorModule, "Stage skipped", map[string]interface{}{
			"session_id": sessionID,
			"stage":      stage.Name,
			"error":      err.Error(),
		})
		span.SetStatus(codes.Error, err.Error())
		return
	}

	o.emit(ctx, sessionID, entity.Event{
		AgentName: stage.Name,
		Status:    entity.EventProcessing,
		Message:   fmt.Sprintf("%s is analyzing the claim", stage.Name),
		Metadata:  map[string]interface{}{"evidence_kind": string(stage.Kind)},
	})

	result := o.runner.RunStage(ctx, stage, claim, ev.Clone())
	if err := o.tracker.RecordStage(sessionID, result); err != nil {
		o.logger.Warn(orchestratorModule, "Failed to record stage result", map[string]interface{}{
			"session_id": sessionID,
			"stage":      stage.Name,
			"error":      err.Error(),
		})
	}

	span.SetAttributes(attribute.String("status", string(result.Status)))

	if result.Status == entity.StageCompleted {
		ev.Record(stage.Kind, stage.Name, result.Content, result.Metadata)
		o.emit(ctx, sessionID, entity.Event{
			AgentName: stage.Name,
			Status:    entity.EventCompleted,
			Message:   fmt.Sprintf("%s analysis complete", stage.Name),
			Content:   result.Content,
			Metadata:  result.Metadata,
		})
		return
	}

	span.SetStatus(codes.Error, string(result.Failure))
	ev.MarkUnavailable(stage.Kind, stage.Name, string(result.Failure), result.Metadata)
	o.emit(ctx, sessionID, entity.Event{
		AgentName: stage.Name,
		Status:    entity.EventFailed,
		Message:   fmt.Sprintf("%s failed: %s", stage.Name, result.Failure),
		Content:   result.Content,
		Metadata:  result.Metadata,
	})
}

func (o *Orchestrator) synthesize(ctx context.Context, sessionID string, claim entity.ClaimRecord, ev *entity.Evidence, started time.Time) *entity.Session {
	ctx, span := o.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(
		attribute.String("claim.id", claim.ClaimID),
		attribute.String("session.id", sessionID),
		attribute.String("stage", StageSynthesis),
	))
	defer span.End()

	if err := o.tracker.StartStage(sessionID, StageSynthesis); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return o.abort(ctx, sessionID, claim, err, started)
	}

	o.emit(ctx, sessionID, entity.Event{
		AgentName: StageSynthesis,
		Status:    entity.EventProcessing,
		Message:   "Synthesizing final decision from collected evidence",
		Metadata:  map[string]interface{}{"evidence_stages": ev.Stages()},
	})

	stageStart := o.now()
	decision, raw, err := o.synthesizer.Synthesize(ctx, claim, ev)
	elapsed := o.now().Sub(stageStart)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		o.logger.Error(orchestratorModule, "Final synthesis failed", map[string]interface{}{
			"session_id": sessionID,
			"claim_id":   claim.ClaimID,
			"error":      err.Error(),
		})

		md := map[string]interface{}{
			"failure_class": string(classify(err)),
			"error":         err.Error(),
			"elapsed_ms":    elapsed.Milliseconds(),
		}
		_ = o.tracker.RecordStage(sessionID, entity.StageResult{
			Stage:    StageSynthesis,
			Status:   entity.StageFailed,
			Content:  err.Error(),
			Metadata: md,
			Elapsed:  elapsed,
			Failure:  classify(err),
		})
		o.emit(ctx, sessionID, entity.Event{
			AgentName: StageSynthesis,
			Status:    entity.EventFailed,
			Message:   "Final synthesis failed",
			Content:   err.Error(),
			Metadata:  md,
		})
		return o.abort(ctx, sessionID, claim, err, started)
	}

	span.SetAttributes(
		attribute.String("status", string(entity.StageCompleted)),
		attribute.String("decision", string(decision.Decision)),
	)

	_ = o.tracker.RecordStage(sessionID, entity.StageResult{
		Stage:    StageSynthesis,
		Status:   entity.StageCompleted,
		Content:  raw,
		Metadata: map[string]interface{}{"decision": string(decision.Decision), "elapsed_ms": elapsed.Milliseconds()},
		Elapsed:  elapsed,
	})
	o.emit(ctx, sessionID, entity.Event{
		AgentName: StageSynthesis,
		Status:    entity.EventCompleted,
		Message:   fmt.Sprintf("Final decision: %s", decision.Decision),
		Content:   raw,
		Metadata:  decision.Summary(),
	})

	final, err := o.tracker.Finish(sessionID, entity.SessionCompleted, &decision, entity.Event{
		AgentName: entity.SystemAgent,
		Status:    entity.EventCompleted,
		Message:   fmt.Sprintf("Claim processing completed: %s", decision.Decision),
		Metadata:  decision.Summary(),
	})
	if err != nil {
		o.logger.Error(orchestratorModule, "Failed to finish session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	} else {
		o.publish(sessionID, final)
	}

	return o.complete(ctx, sessionID, claim, ev, started)
}

// abort moves the session to failed with an ORCHESTRATION_FAILED decision.
func (o *Orchestrator) abort(ctx context.Context, sessionID string, claim entity.ClaimRecord, cause error, started time.Time) *entity.Session {
	decision := FailedDecision(claim, cause, o.now())
	final, err := o.tracker.Finish(sessionID, entity.SessionFailed, &decision, entity.Event{
		AgentName: entity.SystemAgent,
		Status:    entity.EventFailed,
		Message:   "Claim processing failed",
		Content:   cause.Error(),
		Metadata:  decision.Summary(),
	})
	if err != nil {
		o.logger.Error(orchestratorModule, "Failed to mark session failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	} else {
		o.publish(sessionID, final)
	}
	return o.complete(ctx, sessionID, claim, nil, started)
}

// complete runs the terminal side effects: persistence, the agent log, the
// domain event, notification and closing the subscriber streams.
func (o *Orchestrator) complete(ctx context.Context, sessionID string, claim entity.ClaimRecord, ev *entity.Evidence, started time.Time) *entity.Session {
	o.tracker.Persist(ctx, sessionID)

	snap, ok := o.tracker.Snapshot(sessionID)
	if !ok {
		o.closeStreams(sessionID)
		return nil
	}

	o.saveAgentLog(ctx, snap, claim, ev, started)
	o.publishDomainEvent(ctx, snap)

	if o.notifier != nil {
		if err := o.notifier.NotifyDecision(ctx, claim, snap); err != nil {
			o.logger.Warn(orchestratorModule, "Decision notification failed", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}

	o.logger.Info(orchestratorModule, "Claim processing finished", map[string]interface{}{
		"claim_id":         claim.ClaimID,
		"session_id":       sessionID,
		"status":           string(snap.Status),
		"completed_stages": snap.CompletedStages,
		"duration_ms":      o.now().Sub(started).Milliseconds(),
	})

	o.closeStreams(sessionID)
	o.tracker.Release(sessionID)
	return snap
}

func (o *Orchestrator) saveAgentLog(ctx context.Context, snap *entity.Session, claim entity.ClaimRecord, ev *entity.Evidence, started time.Time) {
	if o.logs == nil {
		return
	}
	now := o.now()
	participated := make([]string, 0, len(snap.StageResults))
	for _, r := range snap.StageResults {
		participated = append(participated, r.Stage)
	}

	record := &entity.AgentLog{
		ID:                 NewAgentLogIDFor(snap.SessionID, claim.ClaimID, now),
		ClaimID:            claim.ClaimID,
		SessionID:          snap.SessionID,
		Claim:              claim.Clone(),
		Evidence:           ev.Clone(),
		StageResults:       snap.StageResults,
		Decision:           snap.Decision,
		Status:             snap.Status,
		EventCount:         len(snap.Events),
		StagesParticipated: participated,
		Duration:           now.Sub(started),
		CreatedAt:          now,
	}
	if err := o.logs.Save(ctx, record); err != nil {
		o.logger.Warn(orchestratorModule, "Failed to save agent log", map[string]interface{}{
			"session_id": snap.SessionID,
			"error":      err.Error(),
		})
	}
}

// NewAgentLogIDFor keeps log ids unique when two runs of a claim finish in the
// same second by borrowing the session suffix.
func NewAgentLogIDFor(sessionID, claimID string, now time.Time) string {
	id := entity.NewAgentLogID(claimID, now)
	if n := len(sessionID); n > 8 {
		id += "_" + sessionID[n-8:]
	}
	return id
}

func (o *Orchestrator) publishDomainEvent(ctx context.Context, snap *entity.Session) {
	if o.events == nil {
		return
	}

	eventType := events.ClaimDecisionMade
	data := map[string]interface{}{
		"session_id": snap.SessionID,
		"status":     string(snap.Status),
	}
	if snap.Decision != nil {
		for k, v := range snap.Decision.Summary() {
			data[k] = v
		}
	}
	if snap.Status == entity.SessionFailed {
		eventType = events.ClaimProcessingFailed
	}

	evt := events.NewClaimEvent(eventType, snap.ClaimID, data, o.now())
	if err := o.events.Publish(ctx, evt); err != nil {
		o.logger.Error(orchestratorModule, "Failed to publish domain event", map[string]interface{}{
			"event_type": eventType,
			"session_id": snap.SessionID,
			"error":      err.Error(),
		})
	}
}

// emit appends to the session log and saves it before publishing, so
// back-fill from memory or from the store always covers what live
// subscribers saw. A failed save only leaves the session unpersisted.
func (o *Orchestrator) emit(ctx context.Context, sessionID string, ev entity.Event) {
	stored, err := o.tracker.AppendEvent(sessionID, ev)
	if err != nil {
		o.logger.Warn(orchestratorModule, "Event dropped", map[string]interface{}{
			"session_id": sessionID,
			"agent":      ev.AgentName,
			"error":      err.Error(),
		})
		return
	}
	o.tracker.Persist(ctx, sessionID)
	o.publish(sessionID, stored)
}

func (o *Orchestrator) publish(sessionID string, ev entity.Event) {
	if o.broadcaster != nil {
		o.broadcaster.Publish(sessionID, ev)
	}
}

func (o *Orchestrator) closeStreams(sessionID string) {
	if o.broadcaster != nil {
		o.broadcaster.CloseSession(sessionID)
	}
}
