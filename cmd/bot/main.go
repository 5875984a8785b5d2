package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mkamaev/tuneguess-bot/internal/config"
	"github.com/mkamaev/tuneguess-bot/internal/delivery/telegram"
	"github.com/mkamaev/tuneguess-bot/internal/infra/postgres"
	pgrepo "github.com/mkamaev/tuneguess-bot/internal/infra/postgres/repository"
	"github.com/mkamaev/tuneguess-bot/internal/infra/quizapi"
	"github.com/mkamaev/tuneguess-bot/internal/logger"
	"github.com/mkamaev/tuneguess-bot/internal/repository"
	"github.com/mkamaev/tuneguess-bot/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		zl.Fatal("failed to create telegram bot", zap.Error(err))
	}

	// Set commands.
	commands := []tgbotapi.BotCommand{
		{Command: "status", Description: "Состояние сессии"},
		{Command: "play", Description: "Сыграть N раундов сейчас"},
		{Command: "schedule", Description: "Запланировать игру (HH:MM N)"},
		{Command: "cancel", Description: "Отменить план"},
		{Command: "stop", Description: "Остановить игру"},
		{Command: "token", Description: "Задать токен доступа"},
		{Command: "question", Description: "Вопрос, ожидающий ответа"},
		{Command: "answer", Description: "Ответить на вопрос"},
		{Command: "help", Description: "Помощь"},
	}
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		zl.Warn("failed to set bot commands", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := repository.NewAnswerCache(cfg.CachePath)
	apiClient := quizapi.New(cfg.QuizAPI.BaseURL, cfg.QuizAPI.Timeout)

	// The run history is optional: without DATABASE_URL the bot keeps
	// working, it just does not persist run summaries.
	var history service.RunHistory
	if cfg.DB.URL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DB.URL, postgres.PoolConfig{
			MaxConns:        int32(cfg.DB.MaxConnections),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			zl.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		runRepo := pgrepo.NewRunHistoryRepository(pool)
		if err := runRepo.EnsureSchema(ctx); err != nil {
			zl.Fatal("failed to ensure database schema", zap.Error(err))
		}
		history = runRepo
	}

	session := service.NewSessionService(apiClient, cache, history, zl, service.Delays{
		Question:     cfg.Delays.Question,
		Round:        cfg.Delays.Round,
		ErrorBackoff: cfg.Delays.ErrorBackoff,
	})
	if cfg.QuizAPI.Token != "" {
		if err := session.SetToken(cfg.QuizAPI.Token); err != nil {
			zl.Warn("failed to set initial quiz token", zap.Error(err))
		}
	}

	digest := service.NewDigestService(cache, history, cfg.DigestCron, zl)

	handler := telegram.NewHandler(bot, zl, session, cfg.OperatorChatID)
	session.SetNotifier(handler)
	digest.SetNotifier(handler)

	go digest.Start(ctx)

	if err := handler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("telegram handler exited", zap.Error(err))
	}

	zl.Info("shutdown signal received")
}
