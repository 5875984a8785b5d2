package telegram

import "go.uber.org/zap"

// fromOperator reports whether the update came from the configured
// operator chat. The bot ignores everyone else.
func (h *Handler) fromOperator(chatID int64) bool {
	if chatID == h.operatorChatID {
		return true
	}

	h.logger.Debug("update from non-operator chat ignored",
		zap.Int64("chat_id", chatID),
	)
	return false
}
