package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
)

var (
	ErrNoPendingQuestion = errors.New("no question is awaiting an answer")
	ErrAnswerNotAccepted = errors.New("answer is not among the question options")
)

// Arbiter holds at most one question awaiting a human answer. The
// round driver opens a question and blocks in Wait; the delivery layer
// submits the operator's answer from another goroutine.
type Arbiter struct {
	mu      sync.Mutex
	poll    time.Duration
	pending *entities.PendingQuestion
}

// NewArbiter creates an Arbiter with the given poll interval for Wait.
func NewArbiter(poll time.Duration) *Arbiter {
	if poll <= 0 {
		poll = time.Second
	}
	return &Arbiter{poll: poll}
}

// Open registers q as the pending question. Any previous pending state
// is discarded.
func (a *Arbiter) Open(q entities.Question, round, number int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = &entities.PendingQuestion{
		Question: q,
		Round:    round,
		Number:   number,
		Persist:  true,
	}
}

// Pending returns a copy of the pending question, if any.
func (a *Arbiter) Pending() (entities.PendingQuestion, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending == nil {
		return entities.PendingQuestion{}, false
	}
	return *a.pending, true
}

// Submit supplies the operator's answer for the pending question. An
// answer outside the question's option set is rejected without
// touching the pending state.
func (a *Arbiter) Submit(answer string, persist bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending == nil {
		return ErrNoPendingQuestion
	}
	if !a.pending.Question.HasOption(answer) {
		return ErrAnswerNotAccepted
	}

	a.pending.Answer = answer
	a.pending.Persist = persist
	return nil
}

// Wait blocks until an answer is accepted or ctx is cancelled. The
// pending question is cleared on both paths, so a cancelled wait never
// leaves a stale question behind.
func (a *Arbiter) Wait(ctx context.Context) (answer string, persist bool, err error) {
	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()

	for {
		a.mu.Lock()
		if a.pending != nil && a.pending.Answer != "" {
			answer, persist = a.pending.Answer, a.pending.Persist
			a.pending = nil
			a.mu.Unlock()
			return answer, persist, nil
		}
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			a.Clear()
			return "", false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Clear drops the pending question, if any.
func (a *Arbiter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil
}
