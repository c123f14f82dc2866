package decision

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	Approved = "APPROVED"
	Rejected = "REJECTED"
	Unknown  = "UNKNOWN"
)

// Amount is the first currency-like substring found in the text. Advisory only.
type Amount struct {
	Raw   string
	Value float64
}

type ParsedFields struct {
	// Decision is Approved, Rejected or empty when no marker was found.
	Decision             string
	FraudRiskLevel       string
	CoverageRiskLevel    string
	CoverageAssessment   string
	BalanceStatus        string
	ExclusionsApplicable string
	StatedAmount         *Amount
}

func (p ParsedFields) HasDecision() bool {
	return p.Decision != ""
}

// labelPattern builds a case-insensitive "LABEL: VALUE" matcher that tolerates
// markdown bold around the colon and underscores between label words.
func labelPattern(label string, values ...string) *regexp.Regexp {
	words := strings.Fields(label)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(words, `[\s_]+`) +
		`\s*\**\s*:\s*\**\s*(` + strings.Join(values, "|") + `)\b`)
}

var (
	approvedMarker = labelPattern("FINAL DECISION", Approved)
	rejectedMarker = labelPattern("FINAL DECISION", Rejected)

	fraudRisk          = labelPattern("FRAUD RISK LEVEL", "HIGH", "MEDIUM", "LOW")
	coverageRisk       = labelPattern("COVERAGE RISK LEVEL", "HIGH", "MEDIUM", "LOW")
	coverageAssessment = labelPattern("COVERAGE ASSESSMENT", "EXCLUDED", "COVERED", "PARTIAL")
	balanceStatus      = regexp.MustCompile(`(?i)(?:policy[\s_]+)?balance[\s_]+status\s*\**\s*:\s*\**\s*(SUFFICIENT|INSUFFICIENT|EXCEEDED)\b`)
	exclusions         = labelPattern("EXCLUSIONS APPLICABLE", "YES", "NO")

	currency = regexp.MustCompile(`(?i)(₹|\brs\.?|\binr\b|\busd\b|\$)\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
)

// Extract parses free text for a terminal decision and the secondary fields.
// It is total and deterministic: unmatched fields are UNKNOWN and a missing
// decision marker leaves Decision empty.
func Extract(text string) ParsedFields {
	parsed := ParsedFields{
		FraudRiskLevel:       firstMatch(fraudRisk, text),
		CoverageRiskLevel:    firstMatch(coverageRisk, text),
		CoverageAssessment:   firstMatch(coverageAssessment, text),
		BalanceStatus:        firstMatch(balanceStatus, text),
		ExclusionsApplicable: firstMatch(exclusions, text),
		StatedAmount:         firstAmount(text),
	}

	// REJECTED wins whenever both markers appear.
	switch {
	case rejectedMarker.MatchString(text):
		parsed.Decision = Rejected
	case approvedMarker.MatchString(text):
		parsed.Decision = Approved
	}

	return parsed
}

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return Unknown
	}
	return strings.ToUpper(m[1])
}

func firstAmount(text string) *Amount {
	for _, m := range currency.FindAllStringSubmatch(text, -1) {
		digits := strings.ReplaceAll(m[2], ",", "")
		value, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		return &Amount{Raw: strings.TrimSpace(m[0]), Value: value}
	}
	return nil
}
