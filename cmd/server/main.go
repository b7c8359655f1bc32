package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/api"
	"github.com/Freeeeeet/studio_scheduler/internal/app"
	"github.com/Freeeeeet/studio_scheduler/internal/cache"
	"github.com/Freeeeeet/studio_scheduler/internal/config"
	"github.com/Freeeeeet/studio_scheduler/internal/controller"
	"github.com/Freeeeeet/studio_scheduler/internal/events"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

const tokenTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting studio scheduler",
		zap.String("environment", cfg.Environment),
		zap.String("session_store", cfg.SessionStore),
		zap.String("timezone", cfg.Timezone))

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open stores", zap.Error(err))
	}
	defer stores.Close(context.Background())

	catalog, err := service.NewStudioCatalog(cfg.Studios)
	if err != nil {
		logger.Fatal("Invalid studio catalog", zap.Error(err))
	}

	hub := events.NewHub(logger)
	defer hub.Close()

	userService := service.NewUserService(stores.Users, logger)
	sessionService := service.NewSessionService(stores.Sessions, stores.Users, catalog, hub, cfg.Location(), logger)

	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer client.Close()

		sessionService.SetPendingCache(cache.NewPendingCounter(client, cfg.PendingCacheTTL))

		bridge := events.NewRedisBridge(client, hub, events.DefaultChannel, logger)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Error("Event bridge stopped", zap.Error(err))
			}
		}()
		logger.Info("Redis cache and event bridge enabled", zap.String("addr", cfg.RedisAddr))
	}

	scheduler := app.NewScheduler(sessionService, cfg.CompletionEvery, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.TelegramToken != "" {
		b, err := bot.New(cfg.TelegramToken)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		botController := controller.NewBotController(b, userService, sessionService, hub, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Fatal("Failed to register bot handlers", zap.Error(err))
		}
		go botController.Start(ctx)
		logger.Info("Telegram bot started")
	} else {
		logger.Warn("TELEGRAM_TOKEN not set, bot disabled")
	}

	tokens, err := api.NewTokenIssuer(cfg.JWTSecret, tokenTTL)
	if err != nil {
		logger.Fatal("Failed to create token issuer", zap.Error(err))
	}
	handler := api.NewHandler(sessionService, userService, hub, tokens, logger)
	router, err := api.NewRouter(handler, api.RouterOptions{
		RequestsPerMin: cfg.MaxRequestsPerMin,
		CORSOrigins:    cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.AppPort,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
