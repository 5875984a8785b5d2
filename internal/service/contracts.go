package service

import (
	"context"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
	"github.com/mkamaev/tuneguess-bot/internal/infra/quizapi"
)

// QuizAPI is the outbound boundary to the quiz service.
type QuizAPI interface {
	Account(ctx context.Context, token string) (*quizapi.Account, error)
	NextQuestion(ctx context.Context, token string) (*entities.Question, error)
	SubmitAnswer(ctx context.Context, token string, position int, answer string) (*quizapi.SubmitResult, error)
}

// AnswerCache is the durable signature-to-answer mapping.
type AnswerCache interface {
	Lookup(signature string) (string, bool)
	Store(signature, answer string) error
	Size() int
}

// RunHistory persists summaries of finished runs.
type RunHistory interface {
	Save(ctx context.Context, rec *entities.RunRecord) error
	Last(ctx context.Context) (*entities.RunRecord, error)
}

// Notifier delivers out-of-band messages to the operator chat.
// It is set after the delivery layer is constructed.
type Notifier interface {
	NotifyPending(p entities.PendingQuestion)
	NotifyRunFinished(stats entities.RoundStats, aborted bool)
	NotifyDigest(cacheSize int, last *entities.RunRecord)
}
