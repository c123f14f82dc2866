package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/pkg/decision"
	"claim-pipeline-be/pkg/evidence"
	"claim-pipeline-be/pkg/llm"
)

var ErrSynthesizerUnavailable = errors.New("reasoning collaborator unavailable")

const (
	rationaleLimit       = 200
	synthesisSource      = "Final_Synthesis coordinator"
	failedDecisionSource = "FAILED - No coordinator decision found"
	// MetaRuleScreen carries the rule-based exclusion screen summary.
	MetaRuleScreen = "rule_screen_summary"
)

const synthesisInstructions = `You are the final decision coordinator for a health insurance claim.
Weigh every finding below. Missing evidence must lower confidence, never be assumed positive.
Any confirmed fraud indicator must lead to rejection.

Answer with these labelled lines:
FINAL DECISION: APPROVED or REJECTED
APPROVED AMOUNT: amount in INR (0 when rejected)
FRAUD RISK LEVEL: HIGH, MEDIUM or LOW
COVERAGE RISK LEVEL: HIGH, MEDIUM or LOW
COVERAGE ASSESSMENT: COVERED, PARTIAL or EXCLUDED
POLICY BALANCE STATUS: SUFFICIENT, INSUFFICIENT or EXCEEDED
EXCLUSIONS APPLICABLE: YES or NO
Then a short rationale.`

// Synthesizer turns the accumulated evidence into one ClaimDecision.
type Synthesizer struct {
	provider llm.LLMProvider
	now      func() time.Time
}

func NewSynthesizer(provider llm.LLMProvider) *Synthesizer {
	return &Synthesizer{provider: provider, now: time.Now}
}

// Synthesize returns the decision and the raw coordinator text. An error means
// the reasoning collaborator could not be consulted at all.
func (s *Synthesizer) Synthesize(ctx context.Context, claim entity.ClaimRecord, ev *entity.Evidence) (entity.ClaimDecision, string, error) {
	if s == nil || s.provider == nil {
		return entity.ClaimDecision{}, "", ErrSynthesizerUnavailable
	}

	history := []llm.Message{
		llm.SystemMessage(synthesisInstructions),
		llm.UserMessage(BuildSynthesisRequest(claim, ev)),
	}

	raw, err := s.provider.Chat(ctx, history)
	if err != nil {
		return entity.ClaimDecision{}, "", fmt.Errorf("synthesis request: %w", err)
	}

	parsed := decision.Extract(raw)
	return BuildDecision(claim, parsed, raw, ev, s.now()), raw, nil
}

// BuildSynthesisRequest renders claim facts and every evidence kind, marking
// unavailable evidence explicitly.
func BuildSynthesisRequest(claim entity.ClaimRecord, ev *entity.Evidence) string {
	facts := evidence.FactsFromClaim(claim)

	var b strings.Builder
	b.WriteString("CLAIM FACTS\n")
	b.WriteString(facts.Describe())
	b.WriteString("\nEVIDENCE\n")

	for _, kind := range entity.EvidenceKinds {
		entry, ok := ev.Get(kind)
		switch {
		case !ok:
			fmt.Fprintf(&b, "[%s] NOT COLLECTED\n\n", kind)
		case !entry.Available:
			fmt.Fprintf(&b, "[%s] UNAVAILABLE (%s)\n%s\n\n", kind, entry.Stage, entry.Text)
		default:
			fmt.Fprintf(&b, "[%s] from %s\n%s\n\n", kind, entry.Stage, entry.Text)
		}
	}

	for _, stage := range ev.Stages() {
		if summary, ok := ev.Metadata[stage][MetaRuleScreen].(string); ok && summary != "" {
			b.WriteString(summary)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// BuildDecision applies the extracted fields to the claim. Remaining balance
// and utilization always come from the claim record.
func BuildDecision(claim entity.ClaimRecord, parsed decision.ParsedFields, raw string, ev *entity.Evidence, now time.Time) entity.ClaimDecision {
	available := claim.AvailableBalance()

	if !parsed.HasDecision() {
		return entity.ClaimDecision{
			Decision:             entity.DecisionOrchestrationFailed,
			ApprovedAmount:       formatAmount(0),
			FraudRiskLevel:       decision.Unknown,
			CoverageRiskLevel:    decision.Unknown,
			CoverageAssessment:   decision.Unknown,
			BalanceStatus:        decision.Unknown,
			ExclusionsApplicable: decision.Unknown,
			RemainingBalance:     formatAmount(available),
			PolicyUtilization:    utilization(claim.PreviousClaimsAmount, claim.CoverageLimit),
			FraudIndicators:      []string{"Coordinator did not provide final decision"},
			Rationale:            "Orchestration failed: no terminal decision found in coordinator output",
			DecisionSource:       failedDecisionSource,
			DecidedAt:            now,
		}
	}

	d := entity.ClaimDecision{
		FraudRiskLevel:       parsed.FraudRiskLevel,
		CoverageRiskLevel:    parsed.CoverageRiskLevel,
		CoverageAssessment:   parsed.CoverageAssessment,
		BalanceStatus:        parsed.BalanceStatus,
		ExclusionsApplicable: parsed.ExclusionsApplicable,
		FraudIndicators:      fraudIndicators(raw, ev),
		Rationale:            rationale(raw),
		DecisionSource:       synthesisSource,
		DecidedAt:            now,
	}

	if parsed.Decision == decision.Approved {
		approved := claim.ClaimAmount
		if parsed.StatedAmount != nil && parsed.StatedAmount.Value > 0 {
			approved = parsed.StatedAmount.Value
		}
		d.Decision = entity.DecisionApproved
		d.ApprovedAmount = formatAmount(approved)
		d.RemainingBalance = formatAmount(available - claim.ClaimAmount)
		d.PolicyUtilization = utilization(claim.PreviousClaimsAmount+claim.ClaimAmount, claim.CoverageLimit)
		return d
	}

	d.Decision = entity.DecisionRejected
	d.ApprovedAmount = formatAmount(0)
	d.RemainingBalance = formatAmount(available)
	d.PolicyUtilization = utilization(claim.PreviousClaimsAmount, claim.CoverageLimit)
	return d
}

// FailedDecision is recorded when synthesis itself could not run.
func FailedDecision(claim entity.ClaimRecord, cause error, now time.Time) entity.ClaimDecision {
	return entity.ClaimDecision{
		Decision:             entity.DecisionOrchestrationFailed,
		ApprovedAmount:       formatAmount(0),
		FraudRiskLevel:       decision.Unknown,
		CoverageRiskLevel:    decision.Unknown,
		CoverageAssessment:   decision.Unknown,
		BalanceStatus:        decision.Unknown,
		ExclusionsApplicable: decision.Unknown,
		RemainingBalance:     formatAmount(claim.AvailableBalance()),
		PolicyUtilization:    utilization(claim.PreviousClaimsAmount, claim.CoverageLimit),
		FraudIndicators:      []string{},
		Rationale:            rationale("Synthesis failed: " + cause.Error()),
		DecisionSource:       "FAILED - synthesis error",
		DecidedAt:            now,
	}
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func utilization(used, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(used/limit*1000) / 10
}

func rationale(raw string) string {
	text := strings.TrimSpace(raw)
	runes := []rune(text)
	if len(runes) <= rationaleLimit {
		return text
	}
	return string(runes[:rationaleLimit]) + "..."
}

// fraudIndicators collects critical findings from the coordinator text and the evidence.
func fraudIndicators(raw string, ev *entity.Evidence) []string {
	seen := map[string]bool{}
	out := []string{}
	collect := func(text string) {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• "))
			if !strings.HasPrefix(strings.ToUpper(line), "CRITICAL:") || seen[line] {
				continue
			}
			seen[line] = true
			out = append(out, line)
		}
	}
	collect(raw)
	if ev != nil {
		for _, kind := range entity.EvidenceKinds {
			if entry, ok := ev.Get(kind); ok && entry.Available {
				collect(entry.Text)
			}
		}
	}
	return out
}
