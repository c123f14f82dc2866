package service

import (
	"context"
	"errors"
	"strings"

	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/pkg/events"
	pktNats "claim-pipeline-be/pkg/nats"
	"claim-pipeline-be/pkg/pipeline"
)

// EventSubscriber registers durable handlers on the message bus.
type EventSubscriber interface {
	Subscribe(subject string, durableName string, handler pktNats.EventHandler) error
}

// IntakeService starts a run for every CLAIM_SUBMITTED event on the bus.
type IntakeService struct {
	subscriber EventSubscriber
	processing IProcessingService
	logger     logger.ILogger
}

func NewIntakeService(sub EventSubscriber, processing IProcessingService, log logger.ILogger) *IntakeService {
	return &IntakeService{
		subscriber: sub,
		processing: processing,
		logger:     log,
	}
}

func (s *IntakeService) Start() error {
	if s.subscriber == nil {
		s.logger.Info("IntakeService", "No message bus configured, intake disabled", nil)
		return nil
	}
	if err := s.subscriber.Subscribe(events.ClaimSubmittedSubject, events.ClaimPipelineConsumer, s.HandleEvent); err != nil {
		s.logger.Error("IntakeService", "Failed to start intake subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("IntakeService", "Listening for submitted claims", map[string]interface{}{
		"subject": events.ClaimSubmittedSubject,
		"durable": events.ClaimPipelineConsumer,
	})
	return nil
}

func (s *IntakeService) HandleEvent(ctx context.Context, event events.Event) error {
	claimID, _ := event.Payload()["claim_id"].(string)
	claimID = strings.TrimSpace(claimID)

	res, err := s.processing.StartProcessing(ctx, claimID)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyClaimID) {
			// Redelivery cannot fix a missing id.
			s.logger.Warn("IntakeService", "Ignoring submitted event without claim id", map[string]interface{}{
				"type": event.EventType(),
			})
			return nil
		}
		return err
	}

	s.logger.Info("IntakeService", "Submitted claim queued", map[string]interface{}{
		"claim_id":   res.ClaimID,
		"session_id": res.SessionID,
	})
	return nil
}
