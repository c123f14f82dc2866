package evidence

import (
	"fmt"
	"strings"

	"claim-pipeline-be/internal/entity"
)

var checklists = map[entity.EvidenceKind][]string{
	entity.EvidenceXRay: {
		"Classify every X-ray image on file for this claim.",
		"Report whether the imaging supports the claimed diagnosis.",
	},
	entity.EvidenceMedical: {
		"Does the medical documentation support the claimed diagnosis?",
		"Is the treatment appropriate for the documented condition?",
		"Are there inconsistencies across medical records or patient identity?",
		"List any red flags in the documentation.",
	},
	entity.EvidenceBilling: {
		"List itemized charges with exact amounts.",
		"Do itemized totals match the claimed amount?",
		"Are billed procedures consistent with the diagnosis?",
		"Flag duplicate bills, mobility aids, braces or consumables.",
	},
	entity.EvidencePolicyCoverage: {
		"Is the diagnosis and treatment covered under the policy?",
		"Does the claim fit within the remaining balance and sub-limits?",
		"Report co-payment or deductible requirements.",
		"State POLICY BALANCE STATUS as SUFFICIENT, INSUFFICIENT or EXCEEDED.",
	},
	entity.EvidenceExclusions: {
		"Which policy exclusions apply to this claim?",
		"Cross-reference exclusions with bill line items and amounts.",
		"Is the hospital within the policy network?",
		"State EXCLUSIONS APPLICABLE as YES or NO.",
	},
}

// QueryFor builds the query text for one evidence kind. Only evidence already
// collected by earlier stages is included.
func QueryFor(kind entity.EvidenceKind, facts ClaimFacts, prior *entity.Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s ANALYSIS for claim %s\n\n", strings.ToUpper(strings.ReplaceAll(string(kind), "_", " ")), facts.ClaimID)

	for i, item := range checklists[kind] {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}

	if prior != nil && len(prior.Entries) > 0 {
		b.WriteString("\nFindings from earlier checks:\n")
		for _, k := range entity.EvidenceKinds {
			entry, ok := prior.Get(k)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", k, excerpt(entry.Text, 400))
		}
	}

	b.WriteString("\nProvide specific evidence. Flag missing documentation instead of assuming.")
	return b.String()
}

func excerpt(text string, max int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
