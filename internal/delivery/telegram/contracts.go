package telegram

import (
	"time"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
	"github.com/mkamaev/tuneguess-bot/internal/service"
)

// SessionService is the control surface of the play session.
type SessionService interface {
	Status() service.Status
	Pending() (entities.PendingQuestion, bool)
	Start(rounds int) error
	Schedule(target string, rounds int) (time.Time, error)
	Cancel() error
	Stop() (entities.RoundStats, error)
	SetToken(token string) error
	SubmitAnswer(answer string, persist bool) error
}
