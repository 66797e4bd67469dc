package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/config"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/database"
	_ "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/docs" // Import swagger docs
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/jobs"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/logger"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/server"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/services"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/storage"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/validator"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/webhook"
)

//go:generate swag init -g main.go -d ./,../../internal -o ../../internal/docs

// @title           Exchange Admin API
// @version         1.0
// @description     Order review, balance settlement and chat relay behind the exchange Telegram bot.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.

// @securityDefinitions.apikey APIKeyAuth
// @in header
// @name X-API-Key
// @description Shared key of the bot engine.

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	log := logger.Get()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	decimal.MarshalJSONWithoutQuotes = true
	validator.Register()

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	db := dbManager.DB()

	notifier := webhook.NewNotifier(webhookConfig(cfg, services.NewSettingsService(db)), db, nil)
	dispatcher := webhook.NewDispatcher(notifier)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	srv := server.New(server.Deps{
		Config:     cfg,
		DB:         db,
		Events:     dispatcher,
		Sender:     notifier,
		WebhookURL: notifier.URL(),
		Store:      storage.NewLocalStore(cfg.UploadDir, server.UploadURLPrefix),
	})

	scheduler := jobs.NewScheduler(jobs.Config{
		TokenPurgeSchedule:  cfg.TokenPurgeSchedule,
		WebhookLogSchedule:  cfg.WebhookLogSchedule,
		WebhookLogRetention: cfg.WebhookLogRetention,
	}, srv.Tokens, srv.Settings, cfg.Location())
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start background jobs: %w", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting exchange admin backend on port %s", cfg.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown did not complete", "error", err)
	}
	scheduler.Stop()
	dispatcher.Shutdown(shutdownCtx)
	return nil
}

// webhookConfig takes the bot webhook target from the environment and falls
// back to the stored webhook settings.
func webhookConfig(cfg *config.Config, settings services.SettingsServicer) webhook.Config {
	wc := webhook.Config{
		BaseURL:      cfg.BotWebhookURL,
		Secret:       cfg.BotWebhookSecret,
		MaxRetries:   cfg.WebhookMaxRetries,
		Timeout:      cfg.WebhookTimeout,
		RetryBackoff: cfg.WebhookRetryBackoff,
	}
	if wc.BaseURL != "" {
		return wc
	}

	stored, err := settings.GetWebhookSettings()
	if err != nil {
		logger.Get().Infow("no stored webhook settings", "error", err)
		return wc
	}
	if !stored.Enabled {
		logger.Get().Warn("stored webhook settings are disabled")
		return wc
	}
	wc.BaseURL = stored.WebhookURL
	if wc.Secret == "" {
		wc.Secret = stored.Secret
	}
	return wc
}
