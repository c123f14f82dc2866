package evidence

import (
	"context"
	"errors"
	"fmt"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/pkg/llm"
)

var roles = map[entity.EvidenceKind]string{
	entity.EvidenceMedical:        "You review medical records for insurance claims. Check that diagnosis, treatment and supporting documents are consistent.",
	entity.EvidenceBilling:        "You audit hospital bills for insurance claims. Check line items, totals and excluded consumables.",
	entity.EvidencePolicyCoverage: "You check policy balances for insurance claims. Compare the claim against coverage limits and previous claims.",
	entity.EvidenceExclusions:     "You screen insurance claims against policy exclusions such as pre-existing conditions, waiting periods and network restrictions.",
}

// LLMQuerier answers evidence queries for one kind through a chat model.
type LLMQuerier struct {
	provider llm.LLMProvider
	kind     entity.EvidenceKind
}

var _ Collaborator = (*LLMQuerier)(nil)

func NewLLMQuerier(provider llm.LLMProvider, kind entity.EvidenceKind) *LLMQuerier {
	return &LLMQuerier{provider: provider, kind: kind}
}

func (q *LLMQuerier) Query(ctx context.Context, facts ClaimFacts, queryText string) (string, error) {
	if q == nil || q.provider == nil {
		return "", ErrCollaboratorUnavailable
	}

	role, ok := roles[q.kind]
	if !ok {
		role = "You analyse insurance claims."
	}

	history := []llm.Message{
		llm.SystemMessage(role),
		llm.UserMessage(facts.Describe() + "\n" + queryText),
	}

	answer, err := q.provider.Chat(ctx, history)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return "", fmt.Errorf("%s query: %w", q.kind, err)
	}
	return answer, nil
}
