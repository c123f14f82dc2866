package entity

import "sort"

type EvidenceKind string

const (
	EvidenceMedical        EvidenceKind = "medical"
	EvidenceBilling        EvidenceKind = "billing"
	EvidencePolicyCoverage EvidenceKind = "policy_coverage"
	EvidenceExclusions     EvidenceKind = "exclusions"
	EvidenceXRay           EvidenceKind = "xray"
)

// EvidenceKinds lists every kind in reporting order.
var EvidenceKinds = []EvidenceKind{
	EvidenceXRay,
	EvidenceMedical,
	EvidenceBilling,
	EvidencePolicyCoverage,
	EvidenceExclusions,
}

type EvidenceEntry struct {
	Stage     string `json:"stage"`
	Text      string `json:"text"`
	Available bool   `json:"available"`
}

// Evidence accumulates stage output. Entries are keyed by a closed set of kinds,
// structured metadata is kept per stage name.
type Evidence struct {
	Entries  map[EvidenceKind]EvidenceEntry    `json:"entries"`
	Metadata map[string]map[string]interface{} `json:"metadata"`
}

func NewEvidence() *Evidence {
	return &Evidence{
		Entries:  make(map[EvidenceKind]EvidenceEntry),
		Metadata: make(map[string]map[string]interface{}),
	}
}

func (e *Evidence) Record(kind EvidenceKind, stage, text string, metadata map[string]interface{}) {
	e.Entries[kind] = EvidenceEntry{Stage: stage, Text: text, Available: true}
	e.Metadata[stage] = CopyMetadata(metadata)
}

func (e *Evidence) MarkUnavailable(kind EvidenceKind, stage, reason string, metadata map[string]interface{}) {
	e.Entries[kind] = EvidenceEntry{
		Stage:     stage,
		Text:      "Evidence unavailable: " + reason,
		Available: false,
	}
	e.Metadata[stage] = CopyMetadata(metadata)
}

func (e *Evidence) Get(kind EvidenceKind) (EvidenceEntry, bool) {
	entry, ok := e.Entries[kind]
	return entry, ok
}

// Stages returns the stage names that contributed metadata, sorted.
func (e *Evidence) Stages() []string {
	names := make([]string, 0, len(e.Metadata))
	for name := range e.Metadata {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Evidence) Clone() *Evidence {
	out := NewEvidence()
	if e == nil {
		return out
	}
	for k, v := range e.Entries {
		out.Entries[k] = v
	}
	for stage, md := range e.Metadata {
		out.Metadata[stage] = CopyMetadata(md)
	}
	return out
}

// CopyMetadata makes a shallow copy; nested values are shared.
func CopyMetadata(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
