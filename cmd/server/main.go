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

	"go.uber.org/zap"

	"github.com/MMVenjoyer/mvp-postback-helper/docs"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/alert"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/campaign"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/config"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/dispatch"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/handler"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/httpclient"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/logger"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/pocket"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/resolver"
	"github.com/MMVenjoyer/mvp-postback-helper/internal/service"

	"github.com/MMVenjoyer/mvp-postback-helper/internal/repository/postgres"
)

// @title MVP Postback Helper API
// @version 1.0
// @description Conversion postback ingestion with identity resolution, funnel state tracking and tracker dispatch
// @host localhost:8000
// @BasePath /
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting postback service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.Port))

	// Configure Swagger host dynamically
	docs.SwaggerInfo.Host = cfg.Service.Host

	ctx := context.Background()

	// Initialize Postgres client
	pgClient, err := postgres.NewClient(ctx, cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to create Postgres client", zap.Error(err))
	}
	defer func() {
		if err := pgClient.Close(); err != nil {
			log.Error("Failed to close Postgres client", zap.Error(err))
		}
	}()

	if err := pgClient.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}
	log.Info("Database schema initialized")

	// Initialize repositories
	userRepo := postgres.NewUserRepo(pgClient, log)
	eventRepo := postgres.NewEventRepo(pgClient, log)

	// Initialize Telegram alerting
	var alerts alert.Sink = alert.Nop{}
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		sink, err := alert.NewTelegramSink(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
		if err != nil {
			log.Error("Telegram alerting unavailable, continuing without it", zap.Error(err))
		} else {
			alerts = sink
		}
	}

	// Initialize outbound HTTP client
	client := httpclient.New(httpclient.Config{
		MaxAttempts:    cfg.Dispatch.MaxAttempts,
		BaseDelay:      time.Duration(cfg.Dispatch.BaseDelayMs) * time.Millisecond,
		MaxDelay:       time.Duration(cfg.Dispatch.MaxDelayMs) * time.Millisecond,
		RequestTimeout: time.Duration(cfg.Dispatch.RequestTimeout) * time.Second,
		DialTimeout:    time.Duration(cfg.Dispatch.DialTimeoutSec) * time.Second,
		IdleTimeout:    time.Duration(cfg.Dispatch.IdleTimeoutSec) * time.Second,
		MaxIdleConns:   cfg.Dispatch.MaxIdleConns,
		MaxBodyBytes:   4096,
	}, alert.NewAttemptReporter(alerts), log)
	defer client.Close()

	// Initialize dispatch targets
	targets := []dispatch.Target{
		dispatch.NewKeitaroTarget(cfg.Keitaro.PostbackURL),
		dispatch.NewChatterfyTarget(cfg.Chatterfy.PostbackURL),
	}
	dispatcher := dispatch.NewDispatcher(client, targets, cfg.Dispatch.ResponseExcerpt, log)

	// Initialize trading-platform balance client
	pocketClient := pocket.NewClient(cfg.Pocket, userRepo, log)

	// Initialize postback pipeline
	postbackService := service.NewPostbackService(
		userRepo, eventRepo, dispatcher, alerts, pocketClient,
		cfg.Dedup, cfg.Dispatch.DefaultSum, log)

	// Initialize campaign sync
	trackerAPI := campaign.NewKeitaroAdminAPI(cfg.Keitaro.Domain, cfg.Keitaro.AdminAPIKey, log)
	campaignService := campaign.NewService(userRepo, trackerAPI, cfg.Campaign, log)
	if cfg.Keitaro.Domain != "" && cfg.Keitaro.AdminAPIKey != "" {
		go campaignService.Run(ctx)
	}

	// Initialize deeplink resolver
	uuidResolver := resolver.New(time.Duration(cfg.Dispatch.RequestTimeout)*time.Second, log)

	// Initialize handler
	h := handler.NewHandler(postbackService, uuidResolver, campaignService, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Service.Port,
		Handler: h,
	}

	go func() {
		log.Info("API server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down gracefully")
	campaignService.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
}
