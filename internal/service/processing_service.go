package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"claim-pipeline-be/internal/dto"
	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/pkg/pipeline"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const ProcessingTopic = "claim_processing_requested"

type IProcessingService interface {
	// StartProcessing creates a session for claimID and queues its run.
	StartProcessing(ctx context.Context, claimID string) (*dto.ProcessClaimResponse, error)
	Consume(ctx context.Context) error
	// Wait blocks until every run started by the consumer has finished.
	Wait()
}

type processingService struct {
	orchestrator *pipeline.Orchestrator
	pubSub       *gochannel.GoChannel
	topicName    string
	baseURL      string
	logger       logger.ILogger
	runs         sync.WaitGroup
}

// NewProcessingService queues runs on pubSub. A nil pubSub runs them in a
// goroutine straight away.
func NewProcessingService(orchestrator *pipeline.Orchestrator, pubSub *gochannel.GoChannel, baseURL string, log logger.ILogger) IProcessingService {
	return &processingService{
		orchestrator: orchestrator,
		pubSub:       pubSub,
		topicName:    ProcessingTopic,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       log,
	}
}

func (s *processingService) StartProcessing(ctx context.Context, claimID string) (*dto.ProcessClaimResponse, error) {
	session, claim, err := s.orchestrator.Start(ctx, claimID)
	if err != nil {
		return nil, err
	}

	if s.pubSub == nil {
		s.launch(ctx, session, claim)
	} else if err := s.enqueue(session); err != nil {
		// The session exists already; run it here rather than strand it.
		s.logger.Warn("ProcessingService", "Queue publish failed, running inline", map[string]interface{}{
			"session_id": session.SessionID,
			"error":      err.Error(),
		})
		s.launch(ctx, session, claim)
	}

	return &dto.ProcessClaimResponse{
		SessionID:    session.SessionID,
		ClaimID:      claim.ClaimID,
		Status:       string(session.Status),
		WebsocketURL: s.websocketURL(session.SessionID),
		SSEURL:       fmt.Sprintf("%s/api/sessions/%s/stream", s.baseURL, session.SessionID),
	}, nil
}

func (s *processingService) websocketURL(sessionID string) string {
	base := s.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return fmt.Sprintf("%s/ws/process/%s", base, sessionID)
}

func (s *processingService) enqueue(session *entity.Session) error {
	payload, err := json.Marshal(dto.ProcessingRequestedMessage{
		SessionID: session.SessionID,
		ClaimID:   session.ClaimID,
	})
	if err != nil {
		return err
	}
	return s.pubSub.Publish(s.topicName, message.NewMessage(watermill.NewUUID(), payload))
}

func (s *processingService) Consume(ctx context.Context) error {
	if s.pubSub == nil {
		return nil
	}

	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *processingService) processMessage(ctx context.Context, msg *message.Message) {
	// Runs are never retried: a redelivered job would restart a session that
	// already emitted events.
	defer msg.Ack()

	var payload dto.ProcessingRequestedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error("ProcessingService", "Failed to unmarshal processing request", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	session, ok := s.orchestrator.Tracker().Snapshot(payload.SessionID)
	if !ok || session.Status != entity.SessionStarted {
		s.logger.Warn("ProcessingService", "Skipping processing request for unknown or running session", map[string]interface{}{
			"session_id": payload.SessionID,
			"claim_id":   payload.ClaimID,
		})
		return
	}

	claim := s.orchestrator.ResolveClaim(ctx, payload.ClaimID)
	s.launch(ctx, session, claim)
}

// launch runs the pipeline on a context detached from the caller so a
// finished HTTP request does not cancel the run.
func (s *processingService) launch(ctx context.Context, session *entity.Session, claim entity.ClaimRecord) {
	runCtx := context.WithoutCancel(ctx)

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		final := s.orchestrator.Run(runCtx, session, claim)
		if final == nil {
			return
		}
		s.logger.Debug("ProcessingService", "Run finished", map[string]interface{}{
			"session_id": final.SessionID,
			"status":     string(final.Status),
		})
	}()
}

func (s *processingService) Wait() {
	s.runs.Wait()
}
