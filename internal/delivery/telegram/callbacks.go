package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleCallback processes option-button taps on a pending question.
// Callback data has the form "ans:<option index>".
func (h *Handler) handleCallback(cb *tgbotapi.CallbackQuery) {
	if !strings.HasPrefix(cb.Data, "ans:") {
		return
	}

	index, err := strconv.Atoi(strings.TrimPrefix(cb.Data, "ans:"))
	if err != nil || index < 0 {
		h.logger.Debug("invalid answer callback", zap.String("data", cb.Data))
		return
	}

	text := msgAnswerAccepted

	p, ok := h.session.Pending()
	if !ok || index >= len(p.Question.Options) {
		text = msgNoPending
	} else if err := h.session.SubmitAnswer(p.Question.Options[index], true); err != nil {
		h.logger.Error("failed to submit answer from callback", zap.Error(err))
		text = msgInternalError
	}

	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	h.send(edit)

	// Remove the user's "clock".
	answer := tgbotapi.NewCallback(cb.ID, "")
	if _, err := h.bot.Request(answer); err != nil {
		h.logger.Error("callback answer failed", zap.Error(err))
	}
}
