package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
	"github.com/mkamaev/tuneguess-bot/internal/infra/quizapi"
)

// fakeAPI is an in-memory QuizAPI. Every submitted answer completes
// the current round, so runs terminate after one question per round.
type fakeAPI struct {
	mu        sync.Mutex
	credits   int
	question  entities.Question
	correct   string
	fetched   int
	submitted []string
}

func (f *fakeAPI) Account(_ context.Context, _ string) (*quizapi.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &quizapi.Account{GamesLeft: f.credits}, nil
}

func (f *fakeAPI) NextQuestion(_ context.Context, _ string) (*entities.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched++
	q := f.question
	return &q, nil
}

func (f *fakeAPI) SubmitAnswer(_ context.Context, _ string, _ int, answer string) (*quizapi.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, answer)
	return &quizapi.SubmitResult{Correct: answer == f.correct, Completed: true}, nil
}

func (f *fakeAPI) fetchedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched
}

func (f *fakeAPI) submittedAnswers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

func newTestSession(t *testing.T, api *fakeAPI) (*SessionService, *fakeCache) {
	t.Helper()

	cache := newFakeCache()
	s := NewSessionService(api, cache, nil, zap.NewNop(), Delays{
		Poll: time.Millisecond,
	})
	if err := s.SetToken("test-token"); err != nil {
		t.Fatal(err)
	}
	return s, cache
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func unresolvableQuestion() entities.Question {
	return entities.Question{
		Text:     "pick one",
		Title:    "XYZ",
		Options:  []string{"Bob", "Alice"},
		Position: 4,
	}
}

func TestParseTargetTime(t *testing.T) {
	now := time.Date(2026, time.August, 28, 23, 58, 0, 0, time.Local)

	tests := []struct {
		name    string
		target  string
		want    time.Time
		wantErr bool
	}{
		{
			name:   "later today",
			target: "23:59",
			want:   time.Date(2026, time.August, 28, 23, 59, 0, 0, time.Local),
		},
		{
			name:   "already passed rolls to tomorrow",
			target: "00:01",
			want:   time.Date(2026, time.August, 29, 0, 1, 0, 0, time.Local),
		},
		{
			name:   "future epoch millis",
			target: "1790000000000",
			want:   time.UnixMilli(1790000000000),
		},
		{name: "past epoch millis", target: "1000000000000", wantErr: true},
		{name: "garbage", target: "soon", wantErr: true},
		{name: "empty", target: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTargetTime(tt.target, now)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTarget) {
					t.Fatalf("ParseTargetTime() error = %v, want ErrInvalidTarget", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTargetTime() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTargetTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionService_StartValidation(t *testing.T) {
	api := &fakeAPI{credits: 10, question: unresolvableQuestion()}
	s, _ := newTestSession(t, api)

	if err := s.Start(0); !errors.Is(err, ErrInvalidRounds) {
		t.Errorf("Start(0) error = %v, want ErrInvalidRounds", err)
	}

	noToken := NewSessionService(api, newFakeCache(), nil, zap.NewNop(), Delays{Poll: time.Millisecond})
	if err := noToken.Start(1); !errors.Is(err, ErrNoToken) {
		t.Errorf("Start() without token error = %v, want ErrNoToken", err)
	}
	if got := noToken.Status().Phase; got != entities.PhaseAwaitingToken {
		t.Errorf("Phase = %s, want awaiting-credential", got)
	}
}

func TestSessionService_BusyConflicts(t *testing.T) {
	api := &fakeAPI{credits: 10, question: unresolvableQuestion()}
	s, _ := newTestSession(t, api)

	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseAwaitingHuman })

	if err := s.Start(1); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}
	if _, err := s.Schedule("23:59", 1); !errors.Is(err, ErrBusy) {
		t.Errorf("Schedule() while running error = %v, want ErrBusy", err)
	}

	// Clean up.
	if _, err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseIdle })
}

func TestSessionService_HumanAnswerFlow(t *testing.T) {
	api := &fakeAPI{credits: 10, question: unresolvableQuestion(), correct: "Bob"}
	s, cache := newTestSession(t, api)

	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseAwaitingHuman })

	p, ok := s.Pending()
	if !ok {
		t.Fatal("expected a pending question")
	}
	if p.Round != 1 || p.Number != 1 {
		t.Errorf("pending ordinals = %d/%d, want 1/1", p.Round, p.Number)
	}

	// An answer outside the option set is rejected without state change.
	if err := s.SubmitAnswer("Carol", true); !errors.Is(err, ErrAnswerNotAccepted) {
		t.Errorf("SubmitAnswer(Carol) error = %v, want ErrAnswerNotAccepted", err)
	}
	if s.Status().Phase != entities.PhaseAwaitingHuman {
		t.Error("rejected answer must not change the phase")
	}

	if err := s.SubmitAnswer("Bob", true); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseIdle })

	if got := api.submittedAnswers(); len(got) != 1 || got[0] != "Bob" {
		t.Errorf("submitted answers = %v, want [Bob]", got)
	}

	st := s.Status()
	if st.Stats.Rounds != 1 || st.Stats.Questions != 1 || st.Stats.Correct != 1 {
		t.Errorf("stats = %+v, want 1 round, 1 question, 1 correct", st.Stats)
	}

	// A correct human answer is written through to the cache.
	q := unresolvableQuestion()
	if answer, ok := cache.Lookup(q.Signature()); !ok || answer != "Bob" {
		t.Errorf("cache entry = %q, %v; want Bob, true", answer, ok)
	}
}

func TestSessionService_NoPersistFlagSkipsCache(t *testing.T) {
	api := &fakeAPI{credits: 10, question: unresolvableQuestion(), correct: "Bob"}
	s, cache := newTestSession(t, api)

	if err := s.Start(1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseAwaitingHuman })

	if err := s.SubmitAnswer("Bob", false); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseIdle })

	if cache.Size() != 0 {
		t.Errorf("cache size = %d, want 0 when persist is off", cache.Size())
	}
}

func TestSessionService_StopDuringArbitration(t *testing.T) {
	api := &fakeAPI{credits: 10, question: unresolvableQuestion()}
	s, _ := newTestSession(t, api)

	if err := s.Start(3); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseAwaitingHuman })

	if _, err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseIdle })

	// The aborted round never submitted anything.
	if got := api.submittedAnswers(); len(got) != 0 {
		t.Errorf("submitted answers = %v, want none", got)
	}
	if _, ok := s.Pending(); ok {
		t.Error("pending question must be cleared on stop")
	}

	// The session is reusable after a stop.
	if err := s.Start(1); err != nil {
		t.Errorf("Start() after stop error = %v", err)
	}
	if _, err := s.Stop(); err != nil {
		t.Error(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseIdle })
}

func TestSessionService_PreCheckShortfall(t *testing.T) {
	api := &fakeAPI{credits: 1, question: unresolvableQuestion()}
	s, _ := newTestSession(t, api)

	if err := s.Start(5); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseIdle })

	if api.fetchedCount() != 0 {
		t.Errorf("fetched %d questions, want 0 after a failed pre-check", api.fetchedCount())
	}
	if st := s.Status(); st.Stats.Errors != 1 {
		t.Errorf("stats.Errors = %d, want 1", st.Stats.Errors)
	}
}

func TestSessionService_ScheduleAndCancel(t *testing.T) {
	api := &fakeAPI{credits: 10, question: unresolvableQuestion()}
	s, _ := newTestSession(t, api)

	target := time.Now().Add(time.Hour).UnixMilli()
	at, err := s.Schedule(formatMillis(target), 2)
	if err != nil {
		t.Fatal(err)
	}
	if !at.Equal(time.UnixMilli(target)) {
		t.Errorf("scheduled at %v, want %v", at, time.UnixMilli(target))
	}

	st := s.Status()
	if st.Phase != entities.PhaseScheduled || st.ScheduledAt == nil {
		t.Fatalf("status = %+v, want scheduled", st)
	}

	if err := s.Cancel(); err != nil {
		t.Fatal(err)
	}
	if got := s.Status().Phase; got != entities.PhaseIdle {
		t.Errorf("Phase after cancel = %s, want idle", got)
	}

	// Give a stale timer a chance to misfire.
	time.Sleep(20 * time.Millisecond)
	if api.fetchedCount() != 0 {
		t.Error("cancelled schedule must never start a run")
	}

	if err := s.Cancel(); !errors.Is(err, ErrNotScheduled) {
		t.Errorf("Cancel() with no schedule error = %v, want ErrNotScheduled", err)
	}
}

func TestSessionService_ScheduledRunFires(t *testing.T) {
	api := &fakeAPI{credits: 10, question: unresolvableQuestion()}
	s, _ := newTestSession(t, api)

	target := time.Now().Add(20 * time.Millisecond).UnixMilli()
	if _, err := s.Schedule(formatMillis(target), 1); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return api.fetchedCount() > 0 })
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseAwaitingHuman })

	if _, err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Status().Phase == entities.PhaseIdle })
}

func TestSessionService_StopWithoutRun(t *testing.T) {
	api := &fakeAPI{credits: 10, question: unresolvableQuestion()}
	s, _ := newTestSession(t, api)

	if _, err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() error = %v, want ErrNotRunning", err)
	}
}

func formatMillis(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
