package telegram

import (
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mkamaev/tuneguess-bot/internal/service"
)

func (h *Handler) handleStatus(chatID int64) {
	h.send(newHTMLMessage(chatID, formatStatus(h.session.Status())))
}

func (h *Handler) handlePlay(chatID int64, args string) {
	rounds, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || rounds <= 0 {
		h.send(newHTMLMessage(chatID, msgUsePlay))
		return
	}

	if err := h.session.Start(rounds); err != nil {
		h.sendSessionError(chatID, err)
		return
	}

	h.send(newHTMLMessage(chatID, msgRunStarted))
}

func (h *Handler) handleSchedule(chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		h.send(newHTMLMessage(chatID, msgUseSchedule))
		return
	}

	rounds, err := strconv.Atoi(fields[1])
	if err != nil || rounds <= 0 {
		h.send(newHTMLMessage(chatID, msgUseSchedule))
		return
	}

	at, err := h.session.Schedule(fields[0], rounds)
	if err != nil {
		h.sendSessionError(chatID, err)
		return
	}

	h.send(newHTMLMessage(chatID, formatScheduled(at, rounds)))
}

func (h *Handler) handleCancel(chatID int64) {
	if err := h.session.Cancel(); err != nil {
		h.sendSessionError(chatID, err)
		return
	}

	h.send(newHTMLMessage(chatID, msgScheduleCancelled))
}

func (h *Handler) handleStop(chatID int64) {
	stats, err := h.session.Stop()
	if err != nil {
		h.sendSessionError(chatID, err)
		return
	}

	h.send(newHTMLMessage(chatID, msgRunStopped+"\n\n"+formatStats(stats)))
}

func (h *Handler) handleToken(chatID int64, args string) {
	token := strings.TrimSpace(args)
	if token == "" {
		h.send(newHTMLMessage(chatID, msgUseToken))
		return
	}

	if err := h.session.SetToken(token); err != nil {
		h.sendSessionError(chatID, err)
		return
	}

	h.send(newHTMLMessage(chatID, msgTokenSaved))
}

// handleAnswer accepts "/answer <text>" or "/answer nosave <text>".
// The nosave flag keeps a correct answer out of the answer cache.
func (h *Handler) handleAnswer(chatID int64, args string) {
	persist := true
	text := strings.TrimSpace(args)
	if rest, found := strings.CutPrefix(text, "nosave "); found {
		persist = false
		text = strings.TrimSpace(rest)
	}
	if text == "" {
		h.send(newHTMLMessage(chatID, msgUseAnswer))
		return
	}

	if err := h.session.SubmitAnswer(text, persist); err != nil {
		h.sendSessionError(chatID, err)
		return
	}

	h.send(newHTMLMessage(chatID, msgAnswerAccepted))
}

func (h *Handler) handleQuestion(chatID int64) {
	p, ok := h.session.Pending()
	if !ok {
		h.send(newHTMLMessage(chatID, msgNoPending))
		return
	}

	msg := newHTMLMessage(chatID, formatPending(p))
	msg.ReplyMarkup = buildOptionsKeyboard(p.Question.Options)
	h.send(msg)
}

// sendSessionError maps service errors to operator-facing messages.
func (h *Handler) sendSessionError(chatID int64, err error) {
	var text string

	switch {
	case errors.Is(err, service.ErrBusy):
		text = msgBusy
	case errors.Is(err, service.ErrNoToken):
		text = msgNoToken
	case errors.Is(err, service.ErrInvalidRounds):
		text = msgUsePlay
	case errors.Is(err, service.ErrInvalidTarget):
		text = msgUseSchedule
	case errors.Is(err, service.ErrNotScheduled):
		text = msgNotScheduled
	case errors.Is(err, service.ErrNotRunning):
		text = msgNotRunning
	case errors.Is(err, service.ErrNoPendingQuestion):
		text = msgNoPending
	case errors.Is(err, service.ErrAnswerNotAccepted):
		text = msgAnswerRejected
	default:
		h.logger.Error("command failed", zap.Error(err))
		text = msgInternalError
	}

	h.send(newHTMLMessage(chatID, text))
}
