package telegram

import (
	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
)

// The handler doubles as the session's notifier: arbitration requests,
// run results and digests are pushed to the operator chat.

// NotifyPending sends the question awaiting a human answer together
// with an option keyboard.
func (h *Handler) NotifyPending(p entities.PendingQuestion) {
	msg := newHTMLMessage(h.operatorChatID, formatPending(p))
	msg.ReplyMarkup = buildOptionsKeyboard(p.Question.Options)
	h.send(msg)
}

// NotifyRunFinished reports the final statistics of a run.
func (h *Handler) NotifyRunFinished(stats entities.RoundStats, aborted bool) {
	h.send(newHTMLMessage(h.operatorChatID, formatRunFinished(stats, aborted)))
}

// NotifyDigest sends the periodic status digest.
func (h *Handler) NotifyDigest(cacheSize int, last *entities.RunRecord) {
	h.send(newHTMLMessage(h.operatorChatID, formatDigest(cacheSize, last)))
}
