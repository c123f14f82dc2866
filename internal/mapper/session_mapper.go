package mapper

import (
	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/model"
)

// storedEvent keeps the sequence number, which the transport form omits.
type storedEvent struct {
	Seq int64 `json:"seq"`
	entity.Event
}

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.ProcessingSession) *entity.Session {
	if s == nil {
		return nil
	}

	out := &entity.Session{
		SessionID:       s.SessionID,
		ClaimID:         s.ClaimID,
		Status:          entity.SessionStatus(s.Status),
		CurrentStage:    s.CurrentStage,
		CompletedStages: []string{},
		Events:          []entity.Event{},
		StageResults:    []entity.StageResult{},
		StartedAt:       s.StartedAt,
		UpdatedAt:       s.UpdatedAt,
		CompletedAt:     s.CompletedAt,
		Persisted:       true,
	}

	fromJSON(s.CompletedStages, &out.CompletedStages)
	fromJSON(s.StageResults, &out.StageResults)

	var stored []storedEvent
	fromJSON(s.Events, &stored)
	for i, ev := range stored {
		e := ev.Event
		e.Seq = ev.Seq
		if e.Seq == 0 {
			e.Seq = int64(i + 1)
		}
		out.Events = append(out.Events, e)
	}

	if len(s.Decision) > 0 && string(s.Decision) != "null" {
		var d entity.ClaimDecision
		fromJSON(s.Decision, &d)
		out.Decision = &d
	}
	return out
}

func (m *SessionMapper) ToModel(s *entity.Session) *model.ProcessingSession {
	if s == nil {
		return nil
	}

	events := make([]storedEvent, len(s.Events))
	for i, ev := range s.Events {
		events[i] = storedEvent{Seq: ev.Seq, Event: ev}
	}

	return &model.ProcessingSession{
		SessionID:       s.SessionID,
		ClaimID:         s.ClaimID,
		Status:          string(s.Status),
		CurrentStage:    s.CurrentStage,
		CompletedStages: toJSON(s.CompletedStages),
		Events:          toJSON(events),
		StageResults:    toJSON(s.StageResults),
		Decision:        toJSON(s.Decision),
		StartedAt:       s.StartedAt,
		UpdatedAt:       s.UpdatedAt,
		CompletedAt:     s.CompletedAt,
	}
}
