package dto

import (
	"time"

	"claim-pipeline-be/internal/entity"
)

// EventResponse exposes the sequence number so pollers can resume with ?after=.
type EventResponse struct {
	Seq int64 `json:"seq"`
	entity.Event
}

func NewEventResponses(events []entity.Event) []EventResponse {
	out := make([]EventResponse, len(events))
	for i, ev := range events {
		out[i] = EventResponse{Seq: ev.Seq, Event: ev}
	}
	return out
}

type SessionResponse struct {
	SessionID       string                `json:"session_id"`
	ClaimID         string                `json:"claim_id"`
	Status          entity.SessionStatus  `json:"status"`
	CurrentStage    *string               `json:"current_agent"`
	CompletedStages []string              `json:"completed_agents"`
	Updates         []EventResponse       `json:"updates"`
	StageResults    []entity.StageResult  `json:"agent_results"`
	Decision        *entity.ClaimDecision `json:"final_decision"`
	StartedAt       time.Time             `json:"started_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	CompletedAt     *time.Time            `json:"completed_at"`
	Persisted       bool                  `json:"persisted"`
}

func NewSessionResponse(s *entity.Session) SessionResponse {
	completed := s.CompletedStages
	if completed == nil {
		completed = []string{}
	}
	results := s.StageResults
	if results == nil {
		results = []entity.StageResult{}
	}
	return SessionResponse{
		SessionID:       s.SessionID,
		ClaimID:         s.ClaimID,
		Status:          s.Status,
		CurrentStage:    s.CurrentStage,
		CompletedStages: completed,
		Updates:         NewEventResponses(s.Events),
		StageResults:    results,
		Decision:        s.Decision,
		StartedAt:       s.StartedAt,
		UpdatedAt:       s.UpdatedAt,
		CompletedAt:     s.CompletedAt,
		Persisted:       s.Persisted,
	}
}

type SessionSummary struct {
	SessionID       string               `json:"session_id"`
	ClaimID         string               `json:"claim_id"`
	Status          entity.SessionStatus `json:"status"`
	CurrentStage    *string              `json:"current_agent"`
	CompletedStages []string             `json:"completed_agents"`
	EventCount      int                  `json:"total_updates"`
	StartedAt       time.Time            `json:"started_at"`
}

func NewSessionSummary(s *entity.Session) SessionSummary {
	completed := s.CompletedStages
	if completed == nil {
		completed = []string{}
	}
	return SessionSummary{
		SessionID:       s.SessionID,
		ClaimID:         s.ClaimID,
		Status:          s.Status,
		CurrentStage:    s.CurrentStage,
		CompletedStages: completed,
		EventCount:      len(s.Events),
		StartedAt:       s.StartedAt,
	}
}

type SessionEventsResponse struct {
	SessionID string               `json:"session_id"`
	Status    entity.SessionStatus `json:"status"`
	After     int64                `json:"after"`
	Events    []EventResponse      `json:"events"`
}

type ProcessClaimResponse struct {
	SessionID    string `json:"session_id"`
	ClaimID      string `json:"claim_id"`
	Status       string `json:"status"`
	WebsocketURL string `json:"websocket_url"`
	SSEURL       string `json:"sse_url"`
}

// ProcessingRequestedMessage is the job queue payload.
type ProcessingRequestedMessage struct {
	SessionID string `json:"session_id"`
	ClaimID   string `json:"claim_id"`
}

// ClaimSubmittedMessage is the payload of an intake event.
type ClaimSubmittedMessage struct {
	ClaimID string `json:"claim_id"`
}

type ComponentStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

type SystemStatusResponse struct {
	Status         string            `json:"status"`
	InstanceID     string            `json:"instance_id"`
	Environment    string            `json:"environment"`
	ActiveSessions int               `json:"active_sessions"`
	Components     []ComponentStatus `json:"components"`
	Timestamp      time.Time         `json:"timestamp"`
}

type SystemLogsQuery struct {
	Level  string `query:"level" validate:"omitempty,oneof=debug info warn error"`
	Limit  int    `query:"limit" validate:"gte=0,lte=1000"`
	Offset int    `query:"offset" validate:"gte=0"`
}
