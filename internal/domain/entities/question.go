package entities

import (
	"errors"
	"sort"
	"strings"
)

var ErrInvalidQuestion = errors.New("question is missing required fields")

// Question is a single trivia question fetched from the quiz service.
// It is immutable once fetched.
type Question struct {
	Text     string   // question text, may be English or Russian
	Title    string   // track label, usually "Artist - Song"; may be empty
	Options  []string // answer options in the order the service returned them
	Position int      // opaque question index assigned by the service
}

// Validate checks the required fields at the API boundary so that
// incomplete payloads never reach the resolver.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" || len(q.Options) == 0 {
		return ErrInvalidQuestion
	}
	return nil
}

// HasOption reports whether answer is one of the question options.
func (q *Question) HasOption(answer string) bool {
	for _, opt := range q.Options {
		if opt == answer {
			return true
		}
	}
	return false
}

// Signature returns the cache key for the question. Options are sorted
// before joining, so two questions differing only in option order
// produce the same signature.
func (q *Question) Signature() string {
	opts := make([]string, len(q.Options))
	for i, opt := range q.Options {
		opts[i] = normalizeKey(opt)
	}
	sort.Strings(opts)

	parts := []string{normalizeKey(q.Title), normalizeKey(q.Text)}
	parts = append(parts, opts...)
	return strings.Join(parts, "|")
}

// normalizeKey lower-cases a signature component and collapses whitespace.
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
