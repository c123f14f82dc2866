package mapper

import (
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/model"
)

type AgentLogMapper struct{}

func NewAgentLogMapper() *AgentLogMapper {
	return &AgentLogMapper{}
}

func (m *AgentLogMapper) ToEntity(l *model.AgentLog) *entity.AgentLog {
	if l == nil {
		return nil
	}

	out := &entity.AgentLog{
		ID:                 l.ID,
		ClaimID:            l.ClaimID,
		SessionID:          l.SessionID,
		StageResults:       []entity.StageResult{},
		Status:             entity.SessionStatus(l.Status),
		EventCount:         l.EventCount,
		StagesParticipated: []string{},
		Duration:           time.Duration(l.DurationMs) * time.Millisecond,
		CreatedAt:          l.CreatedAt,
	}
	fromJSON(l.Claim, &out.Claim)
	fromJSON(l.StageResults, &out.StageResults)
	fromJSON(l.StagesParticipated, &out.StagesParticipated)

	if len(l.Evidence) > 0 && string(l.Evidence) != "null" {
		ev := entity.NewEvidence()
		fromJSON(l.Evidence, ev)
		out.Evidence = ev
	}
	if len(l.Decision) > 0 && string(l.Decision) != "null" {
		var d entity.ClaimDecision
		fromJSON(l.Decision, &d)
		out.Decision = &d
	}
	return out
}

func (m *AgentLogMapper) ToModel(l *entity.AgentLog) *model.AgentLog {
	if l == nil {
		return nil
	}
	return &model.AgentLog{
		ID:                 l.ID,
		ClaimID:            l.ClaimID,
		SessionID:          l.SessionID,
		Claim:              toJSON(l.Claim),
		Evidence:           toJSON(l.Evidence),
		StageResults:       toJSON(l.StageResults),
		Decision:           toJSON(l.Decision),
		Status:             string(l.Status),
		EventCount:         l.EventCount,
		StagesParticipated: toJSON(l.StagesParticipated),
		DurationMs:         l.Duration.Milliseconds(),
		CreatedAt:          l.CreatedAt,
	}
}
