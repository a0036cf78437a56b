package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/approval"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/classifier"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/generator"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/metrics"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/orchestrator"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/pipeline"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/platform"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/safety"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/storage"
	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration; validation errors are the only fatal startup class
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Store
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStore()
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
		store, err = storage.NewPostgresStore(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Classification and generation service clients
	clf := classifier.NewOpenAIClassifier(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.EmbeddingModel,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		cfg.OpenAI.IntentLabels,
		logger,
	)
	gen := generator.NewOllamaGenerator(
		cfg.Ollama.Host,
		cfg.Ollama.Model,
		cfg.Ollama.MaxTokens,
		cfg.Ollama.Temperature,
	)
	gate := safety.NewGate(
		cfg.Safety.MaxResponseLength,
		cfg.Safety.MinResponseLength,
		cfg.Safety.Blocklist,
	)

	pipe := pipeline.New(clf, gen, store, gate,
		cfg.Agent.SimilarityThreshold,
		cfg.Agent.RequestTimeout(),
		logger)

	adapters := buildAdapters(cfg, logger)
	if len(adapters) == 0 {
		logger.Fatal("No adapters available for the enabled platforms")
	}

	var approver approval.Approver = approval.AutoApprover{}
	if cfg.Agent.InteractiveApproval {
		approver, err = approval.NewTelegramApprover(
			cfg.Approval.TelegramToken,
			cfg.Approval.ChatID,
			time.Duration(cfg.Approval.TimeoutSeconds)*time.Second,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to create approver", zap.Error(err))
		}
		logger.Info("Interactive approval enabled", zap.Int64("chat_id", cfg.Approval.ChatID))
	}

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go m.Serve(ctx, cfg.Metrics.Address, logger)

	orch := orchestrator.New(adapters, store, pipe, approver, m,
		cfg.KeywordsFor,
		cfg.Agent.PollInterval(),
		logger)

	logger.Info("Agent started",
		zap.Strings("platforms", cfg.Agent.EnabledPlatforms),
		zap.Duration("poll_interval", cfg.Agent.PollInterval()),
		zap.Bool("interactive_approval", cfg.Agent.InteractiveApproval))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := orch.Run(ctx); err != nil {
			logger.Error("Orchestrator stopped with error", zap.Error(err))
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Info("Shutdown requested, waiting for in-flight work",
			zap.Duration("grace", cfg.Agent.ShutdownGrace()))
		select {
		case <-done:
		case <-time.After(cfg.Agent.ShutdownGrace()):
			logger.Warn("Grace period elapsed, exiting with work in flight")
		}
	}

	logStats(store, logger)
	logger.Info("Agent stopped")
}

func buildAdapters(cfg *config.Config, logger *zap.Logger) []platform.Adapter {
	var adapters []platform.Adapter
	if cfg.PlatformEnabled(models.PlatformMastodon) {
		adapters = append(adapters, platform.NewMastodonAdapter(
			cfg.Mastodon.InstanceURL, cfg.Mastodon.AccessToken, logger))
	}
	if cfg.PlatformEnabled(models.PlatformReddit) {
		adapters = append(adapters, platform.NewRedditAdapter(
			cfg.Reddit.ClientID, cfg.Reddit.ClientSecret,
			cfg.Reddit.Username, cfg.Reddit.Password,
			cfg.Reddit.UserAgent, logger))
	}
	if cfg.PlatformEnabled(models.PlatformYouTube) {
		adapters = append(adapters, platform.NewYouTubeAdapter(
			cfg.YouTube.APIKey, cfg.YouTube.MaxVideos, cfg.YouTube.MaxComments, logger))
	}
	return adapters
}

func logStats(store storage.Store, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := store.Stats(ctx)
	if err != nil {
		logger.Warn("Failed to read final stats", zap.Error(err))
		return
	}
	logger.Info("Overall stats",
		zap.Int64("total_processed", stats.TotalProcessed),
		zap.Int64("canned_used", stats.CannedUsed),
		zap.Int64("generated", stats.Generated),
		zap.Int64("suppressed", stats.Suppressed),
		zap.Float64("avg_confidence", stats.AvgConfidence),
		zap.Float64("avg_similarity", stats.AvgSimilarity))
}
