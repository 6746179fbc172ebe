package cli

import (
	"fmt"

	"go.uber.org/zap"

	"babelbeam/config"
	"babelbeam/pipeline"
	"babelbeam/speech"
	"babelbeam/translator"
)

// App holds the assembled services.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Pipeline *pipeline.Pipeline
}

// Build assembles the translation engines, the speech engine and the pipeline from cfg.
func Build(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var cache *translator.Cache
	if cfg.Translate.CacheDir != "" {
		c, err := translator.NewCache(cfg.Translate.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create translation cache: %w", err)
		}
		if cfg.Translate.CacheRefresh {
			c.DisableCache()
		}
		cache = c
		logger.Info("Translation cache enabled",
			zap.String("dir", cfg.Translate.CacheDir),
			zap.Bool("refresh", cfg.Translate.CacheRefresh),
		)
	}

	primaryEngine, err := newEngine(cfg, cfg.Translate.Primary, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary engine: %w", err)
	}
	primary := translator.NewTranslatorClient(primaryEngine).
		WithRetry(cfg.Translate.Retries, cfg.Translate.RetryInterval)

	var fallback *translator.TranslatorClient
	if cfg.HasFallback() {
		fallbackEngine, err := newEngine(cfg, cfg.Translate.Fallback, cache, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create fallback engine: %w", err)
		}
		// The fallback engine gets a single attempt per chunk.
		fallback = translator.NewTranslatorClient(fallbackEngine).WithRetry(0, 0)
	}

	orchestrator := translator.NewOrchestrator(primary, fallback,
		translator.WithMaxLengths(cfg.Translate.PrimaryMaxLen, cfg.Translate.FallbackMaxLen),
		translator.WithLogger(logger),
	)

	synth, err := speech.NewSynthesizer(&speech.Config{
		Provider:      cfg.Speech.Provider,
		OpenAIKey:     cfg.OpenAI.APIKey,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
		OpenAIModel:   cfg.OpenAI.TTSModel,
		OpenAIVoice:   cfg.OpenAI.Voice,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech engine: %w", err)
	}
	var speechService *speech.Service
	if synth != nil {
		speechService = speech.NewService(synth, logger)
	}

	logger.Info("Translation pipeline ready",
		zap.String("primary", primary.Name()),
		zap.Bool("fallback", fallback != nil),
		zap.String("speech", cfg.Speech.Provider),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Pipeline: pipeline.New(orchestrator, speechService, logger),
	}, nil
}

// newEngine creates one translation engine, behind a circuit breaker when enabled.
func newEngine(cfg *config.Config, name string, cache *translator.Cache, logger *zap.Logger) (translator.Provider, error) {
	pc := translator.ProviderConfig{
		Type:    translator.ProviderType(name),
		Timeout: cfg.Translate.HTTPTimeout,
	}

	switch pc.Type {
	case translator.ProviderMyMemory:
		pc.APIKey = cfg.MyMemory.APIKey
		if cfg.MyMemory.Email != "" {
			pc.Extra = map[string]string{"email": cfg.MyMemory.Email}
		}
	case translator.ProviderLibreTranslate:
		pc.APIURL = cfg.LibreTranslate.URL
		pc.APIKey = cfg.LibreTranslate.APIKey
	case translator.ProviderOpenAI:
		pc.APIKey = cfg.OpenAI.APIKey
		pc.APIURL = cfg.OpenAI.BaseURL
		pc.Model = cfg.OpenAI.Model
	}

	provider, err := translator.NewProvider(pc, cache)
	if err != nil {
		return nil, err
	}

	if !cfg.Translate.Breaker {
		return provider, nil
	}
	return translator.NewBreakerProvider(provider, translator.DefaultBreakerSettings(), logger), nil
}
