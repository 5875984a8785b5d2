package service

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
	pgrepo "github.com/mkamaev/tuneguess-bot/internal/infra/postgres/repository"
)

// DigestService periodically posts a short status digest (cache size
// and the last run summary) to the operator chat.
type DigestService struct {
	cache   AnswerCache
	history RunHistory // nil when no database is configured
	spec    string     // cron spec; empty disables the digest
	logger  *zap.Logger

	mu       sync.Mutex
	notifier Notifier
}

// NewDigestService creates a new DigestService.
func NewDigestService(cache AnswerCache, history RunHistory, spec string, logger *zap.Logger) *DigestService {
	return &DigestService{
		cache:   cache,
		history: history,
		spec:    spec,
		logger:  logger,
	}
}

// SetNotifier sets the notifier (called after the handler is created).
func (s *DigestService) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Start begins the digest scheduling loop and blocks until ctx is
// cancelled.
func (s *DigestService) Start(ctx context.Context) {
	if s.spec == "" {
		s.logger.Info("digest disabled")
		return
	}

	c := cron.New()

	_, err := c.AddFunc(s.spec, func() {
		s.sendDigest(ctx)
	})
	if err != nil {
		s.logger.Error("failed to add digest cron job", zap.Error(err))
		return
	}

	c.Start()
	s.logger.Info("digest scheduler started", zap.String("spec", s.spec))

	<-ctx.Done()

	c.Stop()
	s.logger.Info("digest scheduler stopped")
}

func (s *DigestService) sendDigest(ctx context.Context) {
	s.mu.Lock()
	notifier := s.notifier
	s.mu.Unlock()
	if notifier == nil {
		return
	}

	var last *entities.RunRecord
	if s.history != nil {
		rec, err := s.history.Last(ctx)
		switch {
		case err == nil:
			last = rec
		case errors.Is(err, pgrepo.ErrNoRuns):
			// Nothing played yet; the digest still reports the cache.
		default:
			s.logger.Error("failed to load last run", zap.Error(err))
		}
	}

	notifier.NotifyDigest(s.cache.Size(), last)
}
