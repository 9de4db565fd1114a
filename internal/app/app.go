// Package app wires configuration into the stores, collaborators and
// services shared by the HTTP server and the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-rag/internal/adapter/repository"
	"github.com/johnquangdev/meeting-rag/internal/domain/repositories"
	"github.com/johnquangdev/meeting-rag/internal/domain/services"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/storage"
	"github.com/johnquangdev/meeting-rag/internal/usecase/pipeline"
	"github.com/johnquangdev/meeting-rag/internal/usecase/qa"
	"github.com/johnquangdev/meeting-rag/internal/usecase/summary"
	"github.com/johnquangdev/meeting-rag/pkg/ai"
	"github.com/johnquangdev/meeting-rag/pkg/config"
	"github.com/johnquangdev/meeting-rag/pkg/langdetect"
	"github.com/johnquangdev/meeting-rag/pkg/media"
)

const tokenEncoding = "cl100k_base"

// App holds the wired services. Close releases every connection it opened.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    repositories.ArtifactRepository
	Catalog  repositories.MeetingRepository
	Pipeline *pipeline.Orchestrator
	QA       *qa.Service

	closers []func()
}

// NewLogger returns a development logger outside production.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// New connects the configured backends. Hosted collaborators are created
// lazily, so commands that only read stored meetings work without API keys.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	reserver, err := a.newReserver(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { database.CloseDB(db) })
		a.Catalog = repository.NewMeetingRepository(db)
		logger.Info("📦 Meeting catalog enabled", zap.String("database", cfg.Database.Name))
	}

	resultCache := pipeline.NewResultCache(cache.Options{
		MaxEntries: cfg.Pipeline.CacheMaxEntries,
		TTL:        cfg.Pipeline.CacheTTL,
	})
	a.closers = append(a.closers, resultCache.Close)

	orch, err := pipeline.New(pipeline.Dependencies{
		Diarizer:    newDiarizer(cfg, logger),
		Transcriber: newTranscriber(cfg, logger),
		Embedder:    newEmbedder(cfg, logger),
		Summarizer:  newSummarizer(cfg, logger),
		Store:       store,
		Reserver:    reserver,
		Cache:       resultCache,
		Catalog:     a.Catalog,
	}, pipeline.ConfigFrom(cfg.Pipeline), logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Pipeline = orch
	a.QA = qa.NewService(orch, resultCache, store, cfg.Pipeline.DefaultTopK, logger)
	return a, nil
}

// Close releases resources in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.ArtifactRepository, error) {
	switch cfg.Storage.Type {
	case "minio":
		return storage.NewMinIOStore(ctx, &cfg.Storage, logger)
	default:
		return storage.NewFileSystemStore(cfg.Storage.Root, logger)
	}
}

func (a *App) newReserver(ctx context.Context) (repositories.IDReserver, error) {
	if !a.Config.Redis.Enabled {
		return cache.NewMemoryReserver(), nil
	}
	client, err := cache.NewRedisClient(ctx, &a.Config.Redis)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { client.Close() })
	a.Logger.Info("🔒 Meeting id reservations shared through Redis", zap.String("addr", a.Config.GetRedisAddr()))
	return cache.NewRedisReserver(client), nil
}

func requireKey(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

func newDiarizer(cfg *config.Config, logger *zap.Logger) services.Diarizer {
	return ai.LazyDiarizer(func() (services.Diarizer, error) {
		if err := requireKey("AI_ASSEMBLYAI_API_KEY", cfg.AI.AssemblyAIAPIKey); err != nil {
			return nil, err
		}
		return ai.NewAssemblyAIDiarizer(cfg.AI.AssemblyAIAPIKey, ai.WithLogger(logger)), nil
	})
}

func newTranscriber(cfg *config.Config, logger *zap.Logger) services.Transcriber {
	return ai.LazyTranscriber(func() (services.Transcriber, error) {
		if err := requireKey("AI_OPENAI_API_KEY", cfg.AI.OpenAIAPIKey); err != nil {
			return nil, err
		}
		return ai.NewWhisperTranscriber(
			cfg.AI.OpenAIAPIKey,
			cfg.AI.TranscribeModel,
			media.NewFFmpeg(cfg.AI.FFmpegPath),
			langdetect.NewChineseEnglish(),
			openAIOptions(cfg, logger)...,
		), nil
	})
}

func newEmbedder(cfg *config.Config, logger *zap.Logger) services.Embedder {
	return ai.LazyEmbedder(cfg.AI.EmbeddingModel, cfg.AI.EmbeddingDimension, func() (services.Embedder, error) {
		if err := requireKey("AI_OPENAI_API_KEY", cfg.AI.OpenAIAPIKey); err != nil {
			return nil, err
		}
		return ai.NewOpenAIEmbedder(cfg.AI.OpenAIAPIKey, cfg.AI.EmbeddingModel, cfg.AI.EmbeddingDimension,
			openAIOptions(cfg, logger)...), nil
	})
}

func newSummarizer(cfg *config.Config, logger *zap.Logger) services.Summarizer {
	return ai.LazySummarizer(func() (services.Summarizer, error) {
		completer, err := newCompleter(cfg, logger)
		if err != nil {
			return nil, err
		}

		tokens, err := ai.NewTokenizer(tokenEncoding)
		if err != nil {
			logger.Warn("⚠️ Token encoding unavailable, approximating prompt size", zap.Error(err))
			tokens = ai.NewApproxTokenizer()
		}

		sc := summary.DefaultConfig()
		sc.MaxPromptTokens = cfg.AI.MaxPromptTokens
		sc.SummaryTemperature = cfg.AI.SummaryTemperature
		sc.AnswerTemperature = cfg.AI.AnswerTemperature
		return summary.NewSummarizer(completer, tokens, sc, logger), nil
	})
}

func newCompleter(cfg *config.Config, logger *zap.Logger) (ai.Completer, error) {
	switch cfg.AI.ChatProvider {
	case "groq":
		if err := requireKey("AI_GROQ_API_KEY", cfg.AI.GroqAPIKey); err != nil {
			return nil, err
		}
		return ai.NewGroqClient(cfg.AI.GroqAPIKey, cfg.AI.GroqModel,
			ai.WithBaseURL(cfg.AI.GroqBaseURL), ai.WithLogger(logger)), nil
	case "openai":
		if err := requireKey("AI_OPENAI_API_KEY", cfg.AI.OpenAIAPIKey); err != nil {
			return nil, err
		}
		return ai.NewOpenAIChat(cfg.AI.OpenAIAPIKey, cfg.AI.ChatModel, openAIOptions(cfg, logger)...), nil
	default:
		return nil, errors.New("unsupported chat provider " + cfg.AI.ChatProvider)
	}
}

func openAIOptions(cfg *config.Config, logger *zap.Logger) []ai.Option {
	opts := []ai.Option{ai.WithLogger(logger)}
	if cfg.AI.OpenAIBaseURL != "" {
		opts = append(opts, ai.WithBaseURL(cfg.AI.OpenAIBaseURL))
	}
	return opts
}
