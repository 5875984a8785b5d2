package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
)

func testQuestion() entities.Question {
	return entities.Question{
		Text:    "who is the artist",
		Title:   "XYZ",
		Options: []string{"Bob", "Alice"},
	}
}

func TestArbiter_SubmitWithoutPending(t *testing.T) {
	a := NewArbiter(time.Millisecond)

	if err := a.Submit("Bob", true); !errors.Is(err, ErrNoPendingQuestion) {
		t.Errorf("Submit() error = %v, want ErrNoPendingQuestion", err)
	}
}

func TestArbiter_RejectsAnswerOutsideOptions(t *testing.T) {
	a := NewArbiter(time.Millisecond)
	a.Open(testQuestion(), 1, 3)

	if err := a.Submit("Carol", true); !errors.Is(err, ErrAnswerNotAccepted) {
		t.Errorf("Submit() error = %v, want ErrAnswerNotAccepted", err)
	}

	// The pending question must be untouched.
	p, ok := a.Pending()
	if !ok {
		t.Fatal("pending question was lost after a rejected answer")
	}
	if p.Answer != "" {
		t.Errorf("pending answer = %q, want empty", p.Answer)
	}
}

func TestArbiter_WaitReturnsAcceptedAnswer(t *testing.T) {
	a := NewArbiter(time.Millisecond)
	a.Open(testQuestion(), 2, 5)

	go func() {
		time.Sleep(5 * time.Millisecond)
		if err := a.Submit("Alice", false); err != nil {
			t.Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	answer, persist, err := a.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if answer != "Alice" || persist {
		t.Errorf("Wait() = %q, %v; want Alice, false", answer, persist)
	}

	if _, ok := a.Pending(); ok {
		t.Error("pending question must be cleared after acceptance")
	}
}

func TestArbiter_WaitUnwindsOnCancellation(t *testing.T) {
	a := NewArbiter(time.Millisecond)
	a.Open(testQuestion(), 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, _, err := a.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}

	if _, ok := a.Pending(); ok {
		t.Error("pending question must be discarded on cancellation")
	}
}

func TestArbiter_PersistDefaultsToTrue(t *testing.T) {
	a := NewArbiter(time.Millisecond)
	a.Open(testQuestion(), 1, 1)

	p, ok := a.Pending()
	if !ok {
		t.Fatal("expected a pending question")
	}
	if !p.Persist {
		t.Error("persist flag must default to true")
	}
}
