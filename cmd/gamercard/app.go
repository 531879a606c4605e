package main

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/card"
	"github.com/xaenox/gamer-card/internal/classifier"
	"github.com/xaenox/gamer-card/internal/enrich"
	"github.com/xaenox/gamer-card/internal/pipeline"
	"github.com/xaenox/gamer-card/internal/steam"
	"github.com/xaenox/gamer-card/internal/storage"
	"github.com/xaenox/gamer-card/pkg/config"
)

// app holds everything the commands share
type app struct {
	cfg     *config.Config
	runner  *pipeline.Runner
	cache   storage.MetadataCache
	results *storage.ResultStore
	logger  *zap.Logger
}

func loadApp() (*app, error) {
	logger, err := newLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	return buildApp(cfg, logger)
}

func buildApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	var cache storage.MetadataCache
	switch cfg.Cache.Driver {
	case "postgres":
		logger.Info("Using PostgreSQL metadata cache")
		dbConfig := storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		pg, err := storage.NewPostgresStorage(dbConfig, cfg.Cache.TTL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		cache = pg
	default:
		logger.Info("Using in-memory metadata cache")
		cache = storage.NewMemoryStorage(cfg.Cache.TTL)
	}

	steamClient := steam.NewClient(steam.Config{
		APIKey:            cfg.Steam.APIKey,
		APIBaseURL:        cfg.Steam.APIBaseURL,
		StoreBaseURL:      cfg.Steam.StoreBaseURL,
		Timeout:           cfg.Steam.Timeout,
		RequestsPerSecond: cfg.Steam.RequestsPerSecond,
		Language:          cfg.Steam.Language,
		Country:           cfg.Steam.Country,
	}, logger)

	openaiConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		openaiConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	client := openai.NewClientWithConfig(openaiConfig)

	runner := pipeline.NewRunner(pipeline.Deps{
		Library:  steamClient,
		Enricher: enrich.New(steamClient, cache, cfg.Steam.EnrichDelay, logger),
		Classifier: classifier.NewGPTClassifier(client, classifier.Options{
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		}, logger),
		Recommender: classifier.NewGPTRecommender(client, classifier.Options{
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.RecommendTemperature,
		}, steamClient, logger),
		Renderer:    card.NewRenderer(client, cfg.OpenAI.ImageModel, logger),
		EnrichLimit: cfg.Steam.EnrichLimit,
	}, logger)

	return &app{
		cfg:     cfg,
		runner:  runner,
		cache:   cache,
		results: storage.NewResultStore(cfg.HTTP.ResultTTL),
		logger:  logger,
	}, nil
}

func (a *app) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("Failed to close metadata cache", zap.Error(err))
	}
	_ = a.logger.Sync()
}
