package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// AnswerCache is a durable mapping from a question signature to a
// confirmed correct answer, backed by a flat JSON file.
//
// The in-memory map is authoritative: a failed file write never rolls
// back the entry, and a missing or corrupt file on startup simply
// yields an empty cache.
type AnswerCache struct {
	mu      sync.RWMutex
	path    string
	answers map[string]string
}

// NewAnswerCache loads the cache from path. Load problems are not
// fatal; the bot just starts with an empty cache.
func NewAnswerCache(path string) *AnswerCache {
	c := &AnswerCache{
		path:    path,
		answers: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}

	var answers map[string]string
	if err := json.Unmarshal(data, &answers); err != nil || answers == nil {
		return c
	}

	c.answers = answers
	return c
}

// Lookup returns the cached answer for a signature, if any.
func (c *AnswerCache) Lookup(signature string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	answer, ok := c.answers[signature]
	return answer, ok
}

// Store saves the answer in memory and rewrites the whole backing
// file. Last write wins. The returned error only concerns persistence;
// the in-memory entry is kept either way.
func (c *AnswerCache) Store(signature, answer string) error {
	c.mu.Lock()
	c.answers[signature] = answer
	data, err := json.MarshalIndent(c.answers, "", "  ")
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("marshal answer cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write answer cache: %w", err)
	}

	return nil
}

// Size returns the number of cached answers.
func (c *AnswerCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.answers)
}
