package events

import (
	"strings"
	"time"
)

const (
	ClaimSubmitted        = "CLAIM_SUBMITTED"
	ClaimSaved            = "CLAIM_SAVED"
	ClaimDecisionMade     = "CLAIM_DECISION_MADE"
	ClaimProcessingFailed = "CLAIM_PROCESSING_FAILED"
	SubjectPrefix         = "events."
	ClaimSubmittedSubject = SubjectPrefix + ClaimSubmitted
	ClaimPipelineConsumer = "claim-pipeline-worker"
)

// NewClaimEvent stamps data with the common entity fields.
func NewClaimEvent(eventType, claimID string, data map[string]interface{}, now time.Time) BaseEvent {
	payload := map[string]interface{}{
		"entity_type": "claim",
		"entity_id":   claimID,
		"claim_id":    claimID,
		"occurred_at": now,
	}
	for k, v := range data {
		payload[k] = v
	}
	return BaseEvent{Type: eventType, Data: payload, OccurredAt: now}
}

// TypeFromSubject strips the stream prefix from a NATS subject.
func TypeFromSubject(subject string) string {
	return strings.TrimPrefix(subject, SubjectPrefix)
}
