package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaenox/flightbot/internal/agent"
	"github.com/xaenox/flightbot/internal/bot"
	"github.com/xaenox/flightbot/internal/monitor"
	"github.com/xaenox/flightbot/internal/search"
	"github.com/xaenox/flightbot/internal/session"
	"github.com/xaenox/flightbot/internal/storage"
	"github.com/xaenox/flightbot/pkg/config"
	"github.com/xaenox/flightbot/pkg/metrics"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	if cfg.Telegram.Token == "" {
		logger.Fatal("Telegram token is not configured")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize the flight provider: agent-backed when an API key is
	// configured, deterministic static offers otherwise.
	var searcher search.Searcher
	if cfg.OpenAI.APIKey != "" {
		runner := agent.NewOpenAIRunner(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			logger,
		)
		searcher = search.NewAgentSearcher(runner, logger)
	} else {
		logger.Info("No OpenAI key configured, using static flight provider")
		searcher = search.NewStaticSearcher()
	}

	// Initialize sessions
	sessions := session.NewManager(time.Duration(cfg.Session.TTLMinutes) * time.Minute)
	go sessions.Run(ctx)

	// Initialize bot
	features := bot.Features{
		AutoBooking:     cfg.Features.AutoBooking,
		Predictions:     cfg.Features.Predictions,
		ExpenseTracking: cfg.Features.ExpenseTracking,
		WeatherAlerts:   cfg.Features.WeatherAlerts,
	}
	b, err := bot.New(cfg.Telegram.Token, store, searcher, sessions, features,
		cfg.Limits.MaxBookingAmount, cfg.Monitor.IntervalMinutes, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the monitoring loop in its own goroutine
	m := monitor.New(store, searcher, b, metrics.NewMetrics("flightbot"), logger,
		time.Duration(cfg.Monitor.IntervalMinutes)*time.Minute,
		cfg.Monitor.PriceDropPercent)
	go m.Run(ctx)

	// Serve prometheus metrics and a health check
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	go func() {
		if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	// Start the bot
	if err := b.Start(ctx); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
