package pipeline

import (
	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/pkg/evidence"
)

const (
	StageIdentity   = "Identity_Document_Verification"
	StageMedical    = "Medical_Consistency"
	StageBilling    = "Billing_Accuracy"
	StagePolicy     = "Policy_Balance"
	StageExclusions = "Coverage_Exclusions"
	StageSynthesis  = "Final_Synthesis"
)

// StageOrder is the fixed execution order, synthesis last.
var StageOrder = []string{
	StageIdentity,
	StageMedical,
	StageBilling,
	StagePolicy,
	StageExclusions,
	StageSynthesis,
}

// Collaborators holds one evidence source per stage. Nil entries produce
// collaborator_unavailable results.
type Collaborators struct {
	XRay       evidence.Collaborator
	Medical    evidence.Collaborator
	Billing    evidence.Collaborator
	Policy     evidence.Collaborator
	Exclusions evidence.Collaborator
}

// DefaultStages returns the evidence stages in execution order.
func DefaultStages(c Collaborators) []Stage {
	return []Stage{
		{Name: StageIdentity, Kind: entity.EvidenceXRay, Collaborator: c.XRay},
		{Name: StageMedical, Kind: entity.EvidenceMedical, Collaborator: c.Medical},
		{Name: StageBilling, Kind: entity.EvidenceBilling, Collaborator: c.Billing},
		{Name: StagePolicy, Kind: entity.EvidencePolicyCoverage, Collaborator: c.Policy},
		{
			Name:         StageExclusions,
			Kind:         entity.EvidenceExclusions,
			Collaborator: c.Exclusions,
			Annotate: func(facts evidence.ClaimFacts) map[string]interface{} {
				screen := evidence.ScreenExclusions(facts)
				md := screen.Metadata()
				md[MetaRuleScreen] = screen.Describe()
				return md
			},
		},
	}
}
