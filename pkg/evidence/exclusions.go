package evidence

import (
	"fmt"
	"strings"
)

const HighValueThreshold = 300000

var exclusionKeywords = map[string][]string{
	"pre_existing": {"chronic", "degenerative", "arthritis", "osteoarthritis"},
	"experimental": {"experimental", "investigational", "trial"},
	"cosmetic":     {"cosmetic", "elective", "aesthetic"},
}

// exclusionOrder keeps the screen output stable.
var exclusionOrder = []string{"pre_existing", "experimental", "cosmetic"}

type ExclusionFinding struct {
	Type       string `json:"type"`
	Concern    string `json:"concern"`
	Validation string `json:"validation"`
}

// ExclusionScreen is the rule-based pass run next to the exclusions query.
type ExclusionScreen struct {
	PotentialExclusions []ExclusionFinding `json:"potential_exclusions"`
	CoverageConcerns    []ExclusionFinding `json:"coverage_concerns"`
	ValidationRequired  []ExclusionFinding `json:"validation_required"`
}

func ScreenExclusions(facts ClaimFacts) ExclusionScreen {
	screen := ExclusionScreen{
		PotentialExclusions: []ExclusionFinding{},
		CoverageConcerns:    []ExclusionFinding{},
		ValidationRequired:  []ExclusionFinding{},
	}

	text := strings.ToLower(facts.Diagnosis + " " + facts.Treatment)
	for _, category := range exclusionOrder {
		for _, kw := range exclusionKeywords[category] {
			if !strings.Contains(text, kw) {
				continue
			}
			screen.PotentialExclusions = append(screen.PotentialExclusions, exclusionFor(category, kw))
			break
		}
	}

	if facts.ClaimAmount > HighValueThreshold {
		screen.CoverageConcerns = append(screen.CoverageConcerns, ExclusionFinding{
			Type:       "High-Value Claim",
			Concern:    "High-value claims require enhanced validation",
			Validation: "Verify policy limits and sub-limits",
		})
	}

	if facts.AvailableBalance < facts.ClaimAmount {
		screen.CoverageConcerns = append(screen.CoverageConcerns, ExclusionFinding{
			Type:       "Insufficient Balance",
			Concern:    fmt.Sprintf("Claim amount %.2f exceeds available balance %.2f", facts.ClaimAmount, facts.AvailableBalance),
			Validation: "Confirm remaining policy balance",
		})
	}

	screen.ValidationRequired = append(screen.ValidationRequired, ExclusionFinding{
		Type:       "Provider Network",
		Concern:    "Hospital/provider network status affects coverage",
		Validation: fmt.Sprintf("Confirm %s is in policy network", facts.HospitalName),
	})

	return screen
}

func exclusionFor(category, keyword string) ExclusionFinding {
	switch category {
	case "pre_existing":
		return ExclusionFinding{
			Type:       "Pre-existing Condition",
			Concern:    fmt.Sprintf("Degenerative/chronic conditions (%s) may have waiting periods", keyword),
			Validation: "Check policy for pre-existing condition clauses",
		}
	case "experimental":
		return ExclusionFinding{
			Type:       "Experimental Treatment",
			Concern:    fmt.Sprintf("Treatment marked %s is commonly excluded", keyword),
			Validation: "Check policy for experimental treatment exclusions",
		}
	default:
		return ExclusionFinding{
			Type:       "Cosmetic Procedure",
			Concern:    fmt.Sprintf("Procedure marked %s is commonly excluded", keyword),
			Validation: "Confirm medical necessity",
		}
	}
}

func (s ExclusionScreen) HasPotentialExclusions() bool {
	return len(s.PotentialExclusions) > 0
}

func (s ExclusionScreen) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"potential_exclusions": s.PotentialExclusions,
		"coverage_concerns":    s.CoverageConcerns,
		"validation_required":  s.ValidationRequired,
		"exclusion_count":      len(s.PotentialExclusions),
	}
}

// Describe renders the screen for inclusion in queries and the synthesis request.
func (s ExclusionScreen) Describe() string {
	var b strings.Builder
	b.WriteString("Rule-based exclusion screen:\n")
	write := func(title string, items []ExclusionFinding) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, f := range items {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", f.Type, f.Concern, f.Validation)
		}
	}
	write("Potential exclusions", s.PotentialExclusions)
	write("Coverage concerns", s.CoverageConcerns)
	write("Validation required", s.ValidationRequired)
	return b.String()
}
