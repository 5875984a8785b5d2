package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
)

// questionsPerRound is fixed by the quiz service.
const questionsPerRound = 10

var (
	ErrBusy          = errors.New("a run is already active or scheduled")
	ErrNoToken       = errors.New("no access token is set")
	ErrInvalidRounds = errors.New("round count must be positive")
	ErrNotScheduled  = errors.New("nothing is scheduled")
	ErrNotRunning    = errors.New("no run is active")
	ErrInvalidTarget = errors.New("target must be HH:MM or a future unix timestamp in milliseconds")
)

// Delays groups the fixed pacing intervals of the round driver and the
// poll granularity of the scheduler and the arbitration wait.
type Delays struct {
	Question     time.Duration // pause between questions
	Round        time.Duration // pause between rounds
	ErrorBackoff time.Duration // pause after a failed question
	Poll         time.Duration // scheduler and arbitration poll interval
}

func (d Delays) withDefaults() Delays {
	if d.Poll <= 0 {
		d.Poll = time.Second
	}
	return d
}

// Status is a point-in-time snapshot of the session for the operator.
type Status struct {
	Phase       entities.Phase
	ScheduledAt *time.Time
	Stats       entities.RoundStats
	Pending     *entities.PendingQuestion
	CacheSize   int
}

// SessionService owns the single play session: it is the only place
// that mutates the session phase, and every transition goes through
// its mutex. Starting or scheduling a run returns immediately; the
// multi-round loop runs in a background goroutine.
type SessionService struct {
	api      QuizAPI
	cache    AnswerCache
	resolver *Resolver
	arbiter  *Arbiter
	history  RunHistory // nil when no database is configured
	notifier Notifier   // nil until the delivery layer is wired
	logger   *zap.Logger
	delays   Delays

	mu              sync.Mutex
	phase           entities.Phase
	token           string
	stats           entities.RoundStats
	scheduledAt     time.Time
	scheduledRounds int
	scheduleSeq     int // bumped on cancel so a stale timer never fires
	runSeq          int // bumped on every run start
	cancelRun       context.CancelFunc
}

// NewSessionService creates the session controller.
func NewSessionService(
	api QuizAPI,
	cache AnswerCache,
	history RunHistory,
	logger *zap.Logger,
	delays Delays,
) *SessionService {
	delays = delays.withDefaults()

	return &SessionService{
		api:      api,
		cache:    cache,
		resolver: NewResolver(cache),
		arbiter:  NewArbiter(delays.Poll),
		history:  history,
		logger:   logger,
		delays:   delays,
		phase:    entities.PhaseIdle,
	}
}

// SetNotifier sets the operator notifier (called after the delivery
// layer is created).
func (s *SessionService) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// SetToken stores or replaces the quiz service access token.
func (s *SessionService) SetToken(token string) error {
	if token == "" {
		return ErrNoToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Status returns a snapshot of the session. The awaiting-human and
// awaiting-credential phases are derived here rather than stored.
func (s *SessionService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Phase:     s.phase,
		Stats:     s.stats,
		CacheSize: s.cache.Size(),
	}

	if s.phase == entities.PhaseScheduled {
		at := s.scheduledAt
		st.ScheduledAt = &at
	}
	if p, ok := s.arbiter.Pending(); ok && s.phase == entities.PhaseRunning {
		st.Phase = entities.PhaseAwaitingHuman
		st.Pending = &p
	}
	if s.phase == entities.PhaseIdle && s.token == "" {
		st.Phase = entities.PhaseAwaitingToken
	}

	return st
}

// Pending returns the question currently awaiting a human answer.
func (s *SessionService) Pending() (entities.PendingQuestion, bool) {
	return s.arbiter.Pending()
}

// SubmitAnswer supplies the operator's answer for the pending
// question. Answers outside the option set are rejected.
func (s *SessionService) SubmitAnswer(answer string, persist bool) error {
	return s.arbiter.Submit(answer, persist)
}

// Start begins a run of the given number of rounds immediately.
func (s *SessionService) Start(rounds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkStartableLocked(rounds); err != nil {
		return err
	}

	s.beginRunLocked(rounds)
	return nil
}

// Schedule arranges a run at the target time. Target is either "HH:MM"
// (next future occurrence) or a future unix-epoch-millisecond value.
func (s *SessionService) Schedule(target string, rounds int) (time.Time, error) {
	at, err := ParseTargetTime(target, time.Now())
	if err != nil {
		return time.Time{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkStartableLocked(rounds); err != nil {
		return time.Time{}, err
	}

	s.phase = entities.PhaseScheduled
	s.scheduledAt = at
	s.scheduledRounds = rounds
	s.scheduleSeq++

	go s.awaitSchedule(s.scheduleSeq, at)

	s.logger.Info("run scheduled",
		zap.Time("at", at),
		zap.Int("rounds", rounds),
	)

	return at, nil
}

// Cancel clears a pending schedule.
func (s *SessionService) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != entities.PhaseScheduled {
		return ErrNotScheduled
	}

	s.phase = entities.PhaseIdle
	s.scheduledAt = time.Time{}
	s.scheduleSeq++

	s.logger.Info("schedule cancelled")
	return nil
}

// Stop aborts the active run, clears any pending-human state and
// returns the statistics accumulated so far.
func (s *SessionService) Stop() (entities.RoundStats, error) {
	s.mu.Lock()

	if s.phase != entities.PhaseRunning {
		s.mu.Unlock()
		return entities.RoundStats{}, ErrNotRunning
	}

	stats := s.stats
	cancel := s.cancelRun
	s.mu.Unlock()

	// The run goroutine notices the cancellation at the next loop
	// boundary or inside the arbitration wait and settles the phase.
	s.arbiter.Clear()
	if cancel != nil {
		cancel()
	}

	s.logger.Info("run stopped by operator",
		zap.Int("rounds", stats.Rounds),
		zap.Int("questions", stats.Questions),
	)

	return stats, nil
}

func (s *SessionService) checkStartableLocked(rounds int) error {
	if s.phase != entities.PhaseIdle {
		return ErrBusy
	}
	if s.token == "" {
		return ErrNoToken
	}
	if rounds <= 0 {
		return ErrInvalidRounds
	}
	return nil
}

// beginRunLocked transitions to running and launches the round loop.
// The caller must hold s.mu.
func (s *SessionService) beginRunLocked(rounds int) {
	ctx, cancel := context.WithCancel(context.Background())

	s.phase = entities.PhaseRunning
	s.cancelRun = cancel
	s.stats.Reset(time.Now())
	s.runSeq++

	go s.run(ctx, s.runSeq, s.token, rounds)
}

// awaitSchedule polls the wall clock until the target instant and then
// fires the scheduled run. A cancelled schedule is detected via the
// sequence number and never fires.
func (s *SessionService) awaitSchedule(seq int, at time.Time) {
	ticker := time.NewTicker(s.delays.Poll)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		if s.phase != entities.PhaseScheduled || s.scheduleSeq != seq {
			s.mu.Unlock()
			return
		}
		if time.Now().Before(at) {
			s.mu.Unlock()
			continue
		}

		rounds := s.scheduledRounds
		s.scheduledAt = time.Time{}
		s.beginRunLocked(rounds)
		s.mu.Unlock()

		s.logger.Info("scheduled run started", zap.Int("rounds", rounds))
		return
	}
}

// run drives one multi-round play session in the background.
func (s *SessionService) run(ctx context.Context, seq int, token string, rounds int) {
	s.logger.Info("run started", zap.Int("rounds", rounds))

	aborted := !s.playRounds(ctx, token, rounds)
	s.finishRun(seq, aborted)
}

// playRounds performs the credit pre-check and plays the requested
// rounds. It reports false when the run was aborted.
func (s *SessionService) playRounds(ctx context.Context, token string, rounds int) bool {
	account, err := s.api.Account(ctx, token)
	if err != nil {
		s.logger.Error("account pre-check failed", zap.Error(err))
		s.bump(func(st *entities.RoundStats) { st.Errors++ })
		return false
	}
	if account.GamesLeft < rounds {
		// Not a fault: the shortfall is reported through the stats.
		s.logger.Warn("not enough play credits",
			zap.Int("have", account.GamesLeft),
			zap.Int("want", rounds),
		)
		s.bump(func(st *entities.RoundStats) { st.Errors++ })
		return false
	}

	for round := 1; round <= rounds; round++ {
		if ctx.Err() != nil {
			return false
		}
		if round > 1 && !sleepCtx(ctx, s.delays.Round) {
			return false
		}
		if !s.playRound(ctx, token, round) {
			return false
		}
		s.bump(func(st *entities.RoundStats) { st.Rounds++ })
	}

	return true
}

// playRound plays up to questionsPerRound questions of one round. A
// single question failure never aborts the round; cancellation does.
func (s *SessionService) playRound(ctx context.Context, token string, round int) bool {
	for slot := 1; slot <= questionsPerRound; slot++ {
		if ctx.Err() != nil {
			return false
		}
		if slot > 1 && !sleepCtx(ctx, s.delays.Question) {
			return false
		}

		completed, err := s.playQuestion(ctx, token, round, slot)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			s.bump(func(st *entities.RoundStats) { st.Errors++ })
			s.logger.Error("question failed",
				zap.Int("round", round),
				zap.Int("slot", slot),
				zap.Error(err),
			)
			if !sleepCtx(ctx, s.delays.ErrorBackoff) {
				return false
			}
			continue
		}
		if completed {
			// The service closed the round early.
			break
		}
	}

	return true
}

// playQuestion plays one question slot: fetch, resolve (escalating to
// the operator when needed), submit, account. It reports whether the
// service declared the round completed.
func (s *SessionService) playQuestion(ctx context.Context, token string, round, slot int) (bool, error) {
	q, err := s.api.NextQuestion(ctx, token)
	if err != nil {
		return false, fmt.Errorf("next question: %w", err)
	}
	s.bump(func(st *entities.RoundStats) { st.Questions++ })

	res := s.resolver.Resolve(q)
	persist := false
	if !res.Resolved() {
		answer, keep, err := s.awaitHuman(ctx, q, round, slot)
		if err != nil {
			// Cancellation during arbitration: abort without submitting.
			return false, fmt.Errorf("await human answer: %w", err)
		}
		res = entities.ResolutionResult{Answer: answer, Provenance: entities.ProvenanceHuman}
		persist = keep
	}

	result, err := s.api.SubmitAnswer(ctx, token, q.Position, res.Answer)
	if err != nil {
		return false, fmt.Errorf("submit answer: %w", err)
	}

	if result.Correct {
		s.bump(func(st *entities.RoundStats) { st.Correct++ })
		if res.Provenance == entities.ProvenanceHuman && persist {
			if err := s.cache.Store(q.Signature(), res.Answer); err != nil {
				// Non-fatal: the in-memory cache still holds the entry.
				s.logger.Warn("answer cache write failed", zap.Error(err))
			}
		}
	}

	s.logger.Debug("answer submitted",
		zap.Int("round", round),
		zap.Int("slot", slot),
		zap.String("answer", res.Answer),
		zap.String("provenance", string(res.Provenance)),
		zap.Bool("correct", result.Correct),
	)

	return result.Completed, nil
}

// awaitHuman suspends the round until the operator answers or the run
// is cancelled.
func (s *SessionService) awaitHuman(ctx context.Context, q *entities.Question, round, slot int) (string, bool, error) {
	s.arbiter.Open(*q, round, slot)

	s.mu.Lock()
	notifier := s.notifier
	s.mu.Unlock()
	if notifier != nil {
		if p, ok := s.arbiter.Pending(); ok {
			notifier.NotifyPending(p)
		}
	}

	s.logger.Info("awaiting human answer",
		zap.Int("round", round),
		zap.Int("slot", slot),
		zap.String("title", q.Title),
	)

	return s.arbiter.Wait(ctx)
}

// finishRun settles the phase back to idle and records the run
// summary. A stale goroutine (superseded by a newer run) only cleans
// up after itself.
func (s *SessionService) finishRun(seq int, aborted bool) {
	s.mu.Lock()
	if s.runSeq != seq {
		s.mu.Unlock()
		return
	}

	stats := s.stats
	s.phase = entities.PhaseIdle
	s.cancelRun = nil
	notifier := s.notifier
	s.mu.Unlock()

	s.arbiter.Clear()

	s.logger.Info("run finished",
		zap.Int("rounds", stats.Rounds),
		zap.Int("questions", stats.Questions),
		zap.Int("correct", stats.Correct),
		zap.Int("errors", stats.Errors),
		zap.Bool("aborted", aborted),
	)

	if s.history != nil {
		rec := &entities.RunRecord{
			StartedAt:  stats.StartedAt,
			FinishedAt: time.Now(),
			Rounds:     stats.Rounds,
			Questions:  stats.Questions,
			Correct:    stats.Correct,
			Errors:     stats.Errors,
			Aborted:    aborted,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.history.Save(ctx, rec); err != nil {
			s.logger.Error("failed to save run record", zap.Error(err))
		}
	}

	if notifier != nil {
		notifier.NotifyRunFinished(stats, aborted)
	}
}

// bump applies a stats mutation under the session lock.
func (s *SessionService) bump(fn func(*entities.RoundStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.stats)
}

// sleepCtx sleeps for d unless ctx is cancelled first. It reports
// false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ParseTargetTime parses a schedule target. "HH:MM" resolves to the
// next future occurrence of that time of day; a bare number is treated
// as unix milliseconds and must lie in the future.
func ParseTargetTime(target string, now time.Time) (time.Time, error) {
	if tod, err := time.Parse("15:04", target); err == nil {
		at := time.Date(now.Year(), now.Month(), now.Day(), tod.Hour(), tod.Minute(), 0, 0, now.Location())
		if !at.After(now) {
			at = at.Add(24 * time.Hour)
		}
		return at, nil
	}

	if ms, err := strconv.ParseInt(target, 10, 64); err == nil {
		at := time.UnixMilli(ms)
		if !at.After(now) {
			return time.Time{}, ErrInvalidTarget
		}
		return at, nil
	}

	return time.Time{}, ErrInvalidTarget
}
