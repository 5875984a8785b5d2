package entities

// Provenance identifies how a submitted answer was obtained.
type Provenance string

const (
	ProvenanceCache       Provenance = "cache"
	ProvenanceSubstring   Provenance = "substring"
	ProvenanceArtistTitle Provenance = "artist-title"
	ProvenanceHuman       Provenance = "human"
	ProvenanceNone        Provenance = "none"
)

// ResolutionResult is the resolver's decision for a single question.
// An empty Answer means no automatic decision could be made and the
// question has to be escalated to the operator.
type ResolutionResult struct {
	Answer     string
	Provenance Provenance
}

// Resolved reports whether the resolver produced an answer.
func (r ResolutionResult) Resolved() bool {
	return r.Answer != ""
}
