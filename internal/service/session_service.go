package service

import (
	"context"

	"claim-pipeline-be/internal/dto"
	"claim-pipeline-be/pkg/pipeline"
)

type ISessionService interface {
	Active(ctx context.Context) []dto.SessionSummary
	Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	EventsAfter(ctx context.Context, sessionID string, after int64) (*dto.SessionEventsResponse, error)
}

type sessionService struct {
	tracker *pipeline.SessionTracker
}

func NewSessionService(tracker *pipeline.SessionTracker) ISessionService {
	return &sessionService{tracker: tracker}
}

func (s *sessionService) Active(ctx context.Context) []dto.SessionSummary {
	active := s.tracker.ListActive(ctx)
	res := make([]dto.SessionSummary, 0, len(active))
	for _, session := range active {
		res = append(res, dto.NewSessionSummary(session))
	}
	return res
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	session, err := s.tracker.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	res := dto.NewSessionResponse(session)
	return &res, nil
}

func (s *sessionService) EventsAfter(ctx context.Context, sessionID string, after int64) (*dto.SessionEventsResponse, error) {
	session, err := s.tracker.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.SessionEventsResponse{
		SessionID: session.SessionID,
		Status:    session.Status,
		After:     after,
		Events:    dto.NewEventResponses(session.EventsAfter(after)),
	}, nil
}
