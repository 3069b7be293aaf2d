package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/diverge/internal/backend"
	"github.com/dusk-indust/diverge/internal/config"
	"github.com/dusk-indust/diverge/internal/logging"
	"github.com/dusk-indust/diverge/internal/metrics"
	"github.com/dusk-indust/diverge/internal/orchestrator"
)

// app holds the wiring shared by propose, serve and mcp.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	client  backend.Client
	closers []func() error
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.ConfigPath != "" {
		cfg, err = config.LoadFromPath(flags.ConfigPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}
	if flags.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	router, closers, err := buildRouter(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	a.closers = closers
	a.client = backend.Instrument(router,
		backend.WithLogger(logger.Named("backend")),
		backend.WithObserver(a.metrics),
		backend.WithRetries(cfg.Limits.Retries, cfg.Limits.RetryBackoff),
	)

	logger.Debug("backends configured",
		zap.Strings("providers", router.Providers()),
		zap.Strings("backends", cfg.BackendIDs()),
	)
	return a, nil
}

// buildRouter registers OpenRouter as the default provider and the
// Anthropic and Gemini providers when their keys are set.
func buildRouter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend.Router, []func() error, error) {
	router := backend.NewRouter(backend.ProviderOpenRouter)
	var closers []func() error

	or := cfg.Providers.OpenRouter
	if or.APIKey == "" {
		logger.Warn("no OpenRouter API key set; unprefixed backends will fail to authenticate")
	}
	opts := []backend.OpenRouterOption{backend.WithBaseURL(or.BaseURL)}
	if or.Referer != "" {
		opts = append(opts, backend.WithHeader("HTTP-Referer", or.Referer))
	}
	if or.Title != "" {
		opts = append(opts, backend.WithHeader("X-Title", or.Title))
	}
	if cfg.Limits.CallTimeout > 0 {
		opts = append(opts, backend.WithTimeout(cfg.Limits.CallTimeout))
	}
	router.Register(backend.ProviderOpenRouter, backend.NewOpenRouter(or.APIKey, opts...))

	if key := cfg.Providers.Anthropic.APIKey; key != "" {
		c, err := backend.NewAnthropic(backend.AnthropicConfig{
			APIKey:  key,
			BaseURL: cfg.Providers.Anthropic.BaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		router.Register(backend.ProviderAnthropic, c)
	} else if uses(cfg, backend.ProviderAnthropic) {
		logger.Warn("anthropic backends configured without an API key; they will be sent to OpenRouter")
	}

	if key := cfg.Providers.Gemini.APIKey; key != "" {
		c, err := backend.NewGemini(ctx, key)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini: %w", err)
		}
		router.Register(backend.ProviderGemini, c)
		closers = append(closers, c.Close)
	} else if uses(cfg, backend.ProviderGemini) {
		logger.Warn("gemini backends configured without an API key; they will be sent to OpenRouter")
	}

	return router, closers, nil
}

func uses(cfg *config.Config, provider string) bool {
	for _, id := range cfg.BackendIDs() {
		if strings.HasPrefix(id, provider+":") {
			return true
		}
	}
	return false
}

func (a *app) pipeline() (*orchestrator.Pipeline, error) {
	return orchestrator.NewPipeline(a.cfg.Pipeline(), a.client,
		orchestrator.WithLogger(a.logger),
		orchestrator.WithRecorder(a.metrics),
	)
}

// drainProgress logs progress events at debug level until the channel is
// closed.
func (a *app) drainProgress(events <-chan orchestrator.ProgressEvent) {
	for ev := range events {
		a.logger.Debug(orchestrator.FormatProgress(ev))
	}
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
