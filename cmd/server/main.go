package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bitcharge/internal/api"
	"bitcharge/internal/bot"
	"bitcharge/internal/cache"
	"bitcharge/internal/config"
	"bitcharge/internal/exchange"
	"bitcharge/internal/service"
	"bitcharge/internal/websocket"
	"bitcharge/pkg/ratelimit"
	"bitcharge/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		utils.L().Fatal("Failed to load config", utils.Err(err))
	}

	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		Development: cfg.Logging.Development,
	})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Кеш котировок - единственное общее состояние worker'а и API
	caches := cache.NewCaches(cfg.Worker.RatesCacheTTL, cache.WithLogger(logger))

	// WebSocket hub
	hub := websocket.NewHub(logger, cfg.Server.AllowedOrigins)
	go hub.Run(ctx)

	// Клиент Coinmotion
	client := exchange.NewCoinmotion(
		exchange.CoinmotionConfig{
			BaseURL:         cfg.Exchange.BaseURL,
			APIKey:          cfg.Exchange.APIKey,
			APISecret:       cfg.Exchange.APISecret,
			APIKeyHeader:    cfg.Exchange.APIKeyHeader,
			SignatureHeader: cfg.Exchange.SignatureHeader,
		},
		exchange.WithRateLimiter(ratelimit.NewRateLimiter(cfg.Exchange.RateLimit, cfg.Exchange.RateBurst)),
		exchange.WithLogger(logger),
	)
	defer exchange.CloseGlobalClient()

	// Worker: без первых котировок сервис не стартует
	worker := bot.NewWorker(client, caches, cfg.Worker, logger, bot.WithNotifier(hub))
	if err := worker.Start(ctx); err != nil {
		logger.Fatal("Failed to start worker", utils.Err(err))
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(&api.Dependencies{
		RatesService:   service.NewRatesService(caches),
		Stream:         hub.ServeWS,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", utils.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("Server failed", utils.Err(err))
		stop()
	case <-worker.Done():
		logger.Error("Worker exited unexpectedly")
		stop()
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", utils.Err(err))
	}

	select {
	case <-worker.Done():
	case <-shutdownCtx.Done():
		logger.Warn("Worker did not stop in time")
	}

	logger.Info("Server exited")
}
