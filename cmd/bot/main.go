package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/betterhood/hoodbot/internal/api"
	"github.com/betterhood/hoodbot/internal/bot"
	"github.com/betterhood/hoodbot/internal/config"
	"github.com/betterhood/hoodbot/internal/database"
	"github.com/betterhood/hoodbot/internal/logger"
	"github.com/betterhood/hoodbot/internal/metrics"
	"github.com/betterhood/hoodbot/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.InitDB(cfg.Database, zl)
	if err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient := database.InitRedis(cfg.Redis, zl)
	if redisClient != nil {
		defer redisClient.Close()
	}

	store := services.NewBalanceStore(db)
	ledger := services.NewLedger(db)
	notifier := services.NewNotifier(cfg.Discord.TransactionWebhook, zl)
	economy := services.NewEconomy(db, store, ledger, notifier, cfg.Discord.SystemAccountID, zl)
	cooldowns := services.NewCooldowns(redisClient, zl)
	tracker := services.NewTracker(db)
	collector := metrics.NewCollector()

	b, err := bot.New(cfg, economy, cooldowns, tracker, collector, zl)
	if err != nil {
		zl.Fatal("failed to create bot", zap.Error(err))
	}
	if err := b.Start(); err != nil {
		zl.Fatal("failed to connect to discord", zap.Error(err))
	}
	defer b.Stop()

	server := api.NewServer(economy, tracker, collector, cfg.API, zl)
	go func() {
		zl.Info("api server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("api server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zl.Error("api server forced to shutdown", zap.Error(err))
	}
	zl.Info("stopped")
}
