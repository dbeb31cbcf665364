package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fraolBatole/AuraLab/internal/adapter/repo"
	"github.com/fraolBatole/AuraLab/internal/conversation"
	"github.com/fraolBatole/AuraLab/internal/infra"
	"github.com/fraolBatole/AuraLab/internal/jobs"
	"github.com/fraolBatole/AuraLab/internal/ledger"
	imagegen "github.com/fraolBatole/AuraLab/internal/providers/genai"
	imageprov "github.com/fraolBatole/AuraLab/internal/providers/image"
	videoprov "github.com/fraolBatole/AuraLab/internal/providers/video"
	"github.com/fraolBatole/AuraLab/internal/session"
	"github.com/fraolBatole/AuraLab/internal/storage"
	"github.com/fraolBatole/AuraLab/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.TelegramBotToken == "" {
		logger.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	accounts := repo.NewAccountRepository(runner)
	if err := accounts.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}

	genaiClient, err := imagegen.NewClient(imagegen.Options{
		APIKey:       cfg.GeminiAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		ImageModel:   cfg.GeminiImageModel,
		VideoModel:   cfg.GeminiVideoModel,
		HTTPClient:   &http.Client{Timeout: 120 * time.Second},
		Logger:       &logger,
		PollInterval: cfg.VideoPollEvery,
		MaxPolls:     cfg.VideoMaxPolls,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gemini client")
	}

	credits := ledger.New(accounts, logger)
	sessions := session.NewStore(accounts, logger, cfg.DefaultLocale)

	manager := jobs.NewManager(jobs.Config{
		Ledger:        credits,
		Sessions:      sessions,
		Images:        imageprov.NewGeminiGenerator(genaiClient),
		Videos:        videoprov.NewGeminiGenerator(genaiClient),
		Store:         store,
		Logger:        logger,
		ProgressEvery: cfg.ProgressEvery,
	})

	router := conversation.NewRouter(sessions, credits, manager, logger)

	bot, err := telegram.NewBot(telegram.Config{
		Token:    cfg.TelegramBotToken,
		Router:   router,
		Sessions: sessions,
		Accounts: accounts,
		Jobs:     manager,
		Store:    store,
		Ledger:   credits,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start bot")
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	if err := bot.Run(runCtx); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("bot stopped")
	}
	logger.Info().Msg("bot stopped")
}
