package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ziadkadry99/scene-clarify/internal/config"
	"github.com/ziadkadry99/scene-clarify/internal/dialogue"
	"github.com/ziadkadry99/scene-clarify/internal/extractor"
	"github.com/ziadkadry99/scene-clarify/internal/llm"
	"github.com/ziadkadry99/scene-clarify/internal/logging"
	"github.com/ziadkadry99/scene-clarify/internal/responder"
	"github.com/ziadkadry99/scene-clarify/internal/session"
)

var logger = zap.NewNop()

// loadConfig loads and validates the config, providing a user-friendly error.
// It also replaces the package logger with one built from the config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `clarify init` to create a config file", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}

	l, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	logger = l
	return cfg, nil
}

func syncLogger() {
	// Sync returns EINVAL for terminals.
	_ = logger.Sync()
}

// createLLMProviderFromConfig creates an LLM provider based on config settings,
// rate limited to cfg.RequestsPerMinute.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	p, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return llm.NewRateLimitedProvider(p, cfg.RequestsPerMinute), nil
}

// app bundles everything a frontend needs to run dialogues.
type app struct {
	cfg       *config.Config
	store     dialogue.SessionStore
	svc       *dialogue.Service
	extractor *extractor.Extractor
}

// newApp loads the config and wires the provider, session store, dialogue
// service and scene extractor.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	store, err := session.New(ctx, session.Config{
		Backend:     cfg.Session.Backend,
		TTL:         cfg.SessionTTL(),
		SQLitePath:  cfg.Session.SQLitePath,
		PostgresDSN: cfg.Session.PostgresDSN,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	resp := responder.New(provider, responder.Config{
		Model:       cfg.Model,
		VisionModel: cfg.EffectiveVisionModel(),
		Timeout:     cfg.GenerationTimeout(),
		Logger:      logger,
	})
	engine := dialogue.NewEngine(resp, cfg.MaxOptions, logger)

	ex := extractor.New(provider, extractor.Config{
		Model:   cfg.EffectiveVisionModel(),
		Timeout: cfg.GenerationTimeout(),
		Logger:  logger,
	})

	return &app{
		cfg:       cfg,
		store:     store,
		svc:       dialogue.NewService(engine, store, cfg.Dialogue.MaxTurns, logger),
		extractor: ex,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("closing session store", zap.Error(err))
	}
}

// readSceneFile reads scene JSON from path, or from stdin when path is "-".
func readSceneFile(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading scene: %w", err)
	}
	return string(data), nil
}
