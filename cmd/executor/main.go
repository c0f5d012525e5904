package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"astock-signal-trader-go/internal/alert"
	"astock-signal-trader-go/internal/config"
	"astock-signal-trader-go/internal/executor"
	"astock-signal-trader-go/internal/feed"
	"astock-signal-trader-go/internal/journal"
	"astock-signal-trader-go/internal/logger"
	"astock-signal-trader-go/internal/mq"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("executor", cfg.Executor.Name))

	// Initialize the order journal
	jnl, err := journal.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open order journal", zap.Error(err))
	}
	log.Info("Order journal opened and schema migrated.")

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Warn early when today is not a trading day; the sync loop still runs
	// so a late snapshot is not lost.
	calendar := feed.NewCalendarClient(&cfg.MarketData, log)
	if cfg.MarketData.BaseURL != "" {
		if open, err := calendar.IsTradingDay(ctx, time.Now()); err != nil {
			log.Warn("Could not check trading calendar", zap.Error(err))
		} else if !open {
			log.Warn("Today is not a trading day; no snapshots are expected.")
		}
	}

	// Connect the account synchronization channel and run the executor.
	bus := mq.NewAmqpBus(&cfg.MQ, log)
	defer bus.Close()

	exec := executor.NewExecutor(&cfg, log, bus, jnl)

	err = exec.SyncAccount(ctx)
	if err != nil && ctx.Err() == nil {
		log.Error("Account sync loop failed", zap.Error(err))
		if cfg.Alert.BaseURL != "" {
			notifier := alert.NewWebhook(&cfg.Alert, log)
			alertCtx, alertCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer alertCancel()
			if alertErr := notifier.Send(alertCtx, fmt.Sprintf("executor %s sync loop failed: %v", cfg.Executor.Name, err)); alertErr != nil {
				log.Error("Failed to send alert", zap.Error(alertErr))
			}
		}
		os.Exit(1)
	}

	log.Info("Executor has been shut down.")
}
