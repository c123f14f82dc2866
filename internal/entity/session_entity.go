package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStarted    SessionStatus = "started"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

type Session struct {
	SessionID       string
	ClaimID         string
	Status          SessionStatus
	CurrentStage    *string
	CompletedStages []string
	Events          []Event
	StageResults    []StageResult
	Decision        *ClaimDecision
	StartedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	// Persisted reports whether the latest state reached the durable store.
	Persisted bool
}

// NewSessionID embeds the claim id and creation time. The random suffix keeps
// two runs started within the same second apart.
func NewSessionID(claimID string, now time.Time) string {
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("session_%s_%s_%s", claimID, now.Format("20060102_150405"), suffix)
}

func NewSession(claimID string, now time.Time) *Session {
	return &Session{
		SessionID:       NewSessionID(claimID, now),
		ClaimID:         claimID,
		Status:          SessionStarted,
		CompletedStages: []string{},
		Events:          []Event{},
		StageResults:    []StageResult{},
		StartedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Session) IsTerminal() bool {
	return s.Status.IsTerminal()
}

func (s *Session) HasCompleted(stage string) bool {
	for _, name := range s.CompletedStages {
		if name == stage {
			return true
		}
	}
	return false
}

// EventsAfter returns events whose sequence number is greater than seq.
func (s *Session) EventsAfter(seq int64) []Event {
	out := make([]Event, 0, len(s.Events))
	for _, ev := range s.Events {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand to readers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.CurrentStage != nil {
		stage := *s.CurrentStage
		out.CurrentStage = &stage
	}
	out.CompletedStages = append([]string{}, s.CompletedStages...)
	out.Events = make([]Event, len(s.Events))
	for i, ev := range s.Events {
		out.Events[i] = ev.Clone()
	}
	out.StageResults = make([]StageResult, len(s.StageResults))
	for i, r := range s.StageResults {
		out.StageResults[i] = r.Clone()
	}
	if s.Decision != nil {
		d := s.Decision.Clone()
		out.Decision = &d
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventProcessing EventStatus = "processing"
	EventCompleted  EventStatus = "completed"
	EventFailed     EventStatus = "failed"
)

// SystemAgent names pipeline-level events.
const SystemAgent = "System"

// Event is the only unit sent across the transport boundary.
// Seq is the 1-based position in the owning session's event log.
type Event struct {
	Seq       int64                  `json:"-"`
	AgentName string                 `json:"agent_name"`
	Status    EventStatus            `json:"status"`
	Message   string                 `json:"message"`
	Content   string                 `json:"content,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata"`
}

func (e Event) Clone() Event {
	out := e
	out.Metadata = CopyMetadata(e.Metadata)
	return out
}

type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

type FailureClass string

const (
	FailureNone                    FailureClass = ""
	FailureCollaboratorUnavailable FailureClass = "collaborator_unavailable"
	FailureTimeout                 FailureClass = "timeout"
	FailureMalformedResponse       FailureClass = "malformed_response"
	FailureCollaboratorError       FailureClass = "collaborator_error"
	FailurePanic                   FailureClass = "panic"
)

type StageResult struct {
	Stage    string                 `json:"stage"`
	Status   StageStatus            `json:"status"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Elapsed  time.Duration          `json:"elapsed_ns"`
	Failure  FailureClass           `json:"failure,omitempty"`
}

func (r StageResult) Clone() StageResult {
	out := r
	out.Metadata = CopyMetadata(r.Metadata)
	return out
}

type DecisionOutcome string

const (
	DecisionApproved            DecisionOutcome = "APPROVED"
	DecisionRejected            DecisionOutcome = "REJECTED"
	DecisionOrchestrationFailed DecisionOutcome = "ORCHESTRATION_FAILED"
)

type ClaimDecision struct {
	Decision             DecisionOutcome `json:"decision"`
	ApprovedAmount       string          `json:"approved_amount"`
	FraudRiskLevel       string          `json:"fraud_risk_level"`
	CoverageRiskLevel    string          `json:"coverage_risk_level"`
	CoverageAssessment   string          `json:"coverage_assessment"`
	BalanceStatus        string          `json:"policy_balance_status"`
	ExclusionsApplicable string          `json:"exclusions_applicable"`
	RemainingBalance     string          `json:"remaining_balance"`
	PolicyUtilization    float64         `json:"policy_utilization"`
	FraudIndicators      []string        `json:"fraud_indicators"`
	Rationale            string          `json:"rationale"`
	DecisionSource       string          `json:"decision_source"`
	DecidedAt            time.Time       `json:"decided_at"`
}

func (d ClaimDecision) Clone() ClaimDecision {
	out := d
	out.FraudIndicators = append([]string{}, d.FraudIndicators...)
	return out
}

// Summary is attached to the terminal System event.
func (d ClaimDecision) Summary() map[string]interface{} {
	return map[string]interface{}{
		"decision":              string(d.Decision),
		"approved_amount":       d.ApprovedAmount,
		"fraud_risk_level":      d.FraudRiskLevel,
		"coverage_risk_level":   d.CoverageRiskLevel,
		"coverage_assessment":   d.CoverageAssessment,
		"policy_balance_status": d.BalanceStatus,
		"exclusions_applicable": d.ExclusionsApplicable,
		"remaining_balance":     d.RemainingBalance,
		"policy_utilization":    d.PolicyUtilization,
		"fraud_indicators":      append([]string{}, d.FraudIndicators...),
		"decision_source":       d.DecisionSource,
	}
}

// AgentLog is the final report written once per terminal run.
type AgentLog struct {
	ID                 string
	ClaimID            string
	SessionID          string
	Claim              ClaimRecord
	Evidence           *Evidence
	StageResults       []StageResult
	Decision           *ClaimDecision
	Status             SessionStatus
	EventCount         int
	StagesParticipated []string
	Duration           time.Duration
	CreatedAt          time.Time
}

func NewAgentLogID(claimID string, now time.Time) string {
	return fmt.Sprintf("%s_%s", claimID, now.Format("20060102_150405"))
}
