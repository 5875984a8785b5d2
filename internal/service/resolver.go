package service

import (
	"strings"
	"unicode"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
)

// Keyword vocabularies used by the artist/title heuristic. The quiz
// service mixes English and Russian question texts, so both sets are
// checked against the lower-cased question.
var (
	artistWords = []string{
		"artist", "singer", "performer", "band",
		"исполнитель", "исполняет", "певец", "певица", "группа",
	}
	titleWords = []string{
		"title", "song", "track", "called",
		"название", "песня", "трек", "композиция", "называется",
	}
)

// Resolver decides an answer for a question without human help.
// It is deterministic and side-effect-free apart from cache reads.
type Resolver struct {
	cache AnswerCache
}

// NewResolver creates a new Resolver backed by the given answer cache.
func NewResolver(cache AnswerCache) *Resolver {
	return &Resolver{cache: cache}
}

// Resolve picks an answer for the question. The decision order is a
// contract: cached answer first, then an option embedded in the track
// title, then the artist/title split heuristic. When nothing matches,
// the result carries no answer and the caller has to escalate to the
// operator.
func (r *Resolver) Resolve(q *entities.Question) entities.ResolutionResult {
	// A cached answer is trusted only while it is still one of the
	// current options; stale entries fall through.
	if answer, ok := r.cache.Lookup(q.Signature()); ok && q.HasOption(answer) {
		return entities.ResolutionResult{Answer: answer, Provenance: entities.ProvenanceCache}
	}

	// Many titles embed the correct option verbatim, e.g. the artist
	// name inside "Artist - Song". The first matching option wins.
	title := strings.ToLower(q.Title)
	for _, opt := range q.Options {
		if opt != "" && strings.Contains(title, strings.ToLower(opt)) {
			return entities.ResolutionResult{Answer: opt, Provenance: entities.ProvenanceSubstring}
		}
	}

	if res, ok := r.resolveFromTitleParts(q); ok {
		return res
	}

	return entities.ResolutionResult{Provenance: entities.ProvenanceNone}
}

// resolveFromTitleParts applies the artist/title heuristic. It only
// fires when the title splits on " - "; the artist check runs before
// the title check even when both vocabularies match the question.
func (r *Resolver) resolveFromTitleParts(q *entities.Question) (entities.ResolutionResult, bool) {
	artist, track, found := strings.Cut(q.Title, " - ")
	if !found {
		return entities.ResolutionResult{}, false
	}

	text := strings.ToLower(q.Text)

	if containsAny(text, artistWords) {
		if opt, ok := matchNormalized(q.Options, artist); ok {
			return entities.ResolutionResult{Answer: opt, Provenance: entities.ProvenanceArtistTitle}, true
		}
	}

	if containsAny(text, titleWords) {
		if opt, ok := matchNormalized(q.Options, track); ok {
			return entities.ResolutionResult{Answer: opt, Provenance: entities.ProvenanceArtistTitle}, true
		}
	}

	return entities.ResolutionResult{}, false
}

// containsAny reports whether any of the words occurs in text.
func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// matchNormalized returns the first option equal to target after
// normalization.
func matchNormalized(options []string, target string) (string, bool) {
	want := normalizeText(target)
	if want == "" {
		return "", false
	}

	for _, opt := range options {
		if normalizeText(opt) == want {
			return opt, true
		}
	}

	return "", false
}

// normalizeText lower-cases the text, strips punctuation and collapses
// whitespace.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
