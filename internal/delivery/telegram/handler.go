package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Handler struct {
	bot            *tgbotapi.BotAPI
	logger         *zap.Logger
	session        SessionService
	operatorChatID int64
}

func NewHandler(
	bot *tgbotapi.BotAPI,
	logger *zap.Logger,
	session SessionService,
	operatorChatID int64,
) *Handler {
	return &Handler{
		bot:            bot,
		logger:         logger,
		session:        session,
		operatorChatID: operatorChatID,
	}
}

func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message == nil {
			return
		}
		if !h.fromOperator(update.CallbackQuery.Message.Chat.ID) {
			return
		}
		h.logger.Debug("callback received",
			zap.Int64("user_id", update.CallbackQuery.From.ID),
			zap.String("data", update.CallbackQuery.Data),
		)
		h.handleCallback(update.CallbackQuery)
		return
	}

	if update.Message == nil {
		h.logger.Debug("update without message and callback")
		return
	}

	chatID := update.Message.Chat.ID
	if !h.fromOperator(chatID) {
		return
	}

	h.logger.Debug("update received",
		zap.Int64("chat_id", chatID),
		zap.String("text", update.Message.Text),
	)

	if !update.Message.IsCommand() {
		return
	}

	args := update.Message.CommandArguments()

	switch update.Message.Command() {
	case "start", "help":
		h.send(newHTMLMessage(chatID, msgWelcome))

	case "status":
		h.handleStatus(chatID)

	case "play":
		h.handlePlay(chatID, args)

	case "schedule":
		h.handleSchedule(chatID, args)

	case "cancel":
		h.handleCancel(chatID)

	case "stop":
		h.handleStop(chatID)

	case "token":
		h.handleToken(chatID, args)

	case "answer":
		h.handleAnswer(chatID, args)

	case "question":
		h.handleQuestion(chatID)

	default:
		h.send(newHTMLMessage(chatID, msgUnknownCommand))
	}
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.Error("failed to send telegram message",
			zap.Error(err),
		)
	}
}
