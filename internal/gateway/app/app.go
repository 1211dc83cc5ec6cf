package app

import (
	"context"
	"errors"
	"fmt"

	"verbtutor/internal/contract"
	"verbtutor/internal/gateway/config"
	"verbtutor/internal/gateway/handler"
	"verbtutor/internal/gateway/server"
	"verbtutor/internal/llm"
	llmclient "verbtutor/internal/llm/client"
	"verbtutor/internal/logger"
	"verbtutor/internal/observability"
	"verbtutor/internal/tutor"
)

type App struct {
	server       *server.Server
	gen          llmclient.Generator
	log          *logger.Logger
	shutdownOTel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "verbtutor",
		Environment: cfg.Env,
	})

	// Dependencies
	ctrl, gen, err := NewController(ctx, cfg, log)
	if err != nil {
		_ = shutdownOTel(ctx)
		return nil, err
	}
	reg := tutor.NewRegistry(ctrl, log, cfg.Sessions.Max, cfg.Sessions.TTL)

	chatHandler := handler.NewChatHandler(reg, log)
	historyHandler := handler.NewHistoryHandler(reg)
	healthHandler := handler.NewHealthHandler(reg, gen.Name())

	// Routing & Server
	mux := server.NewMux(chatHandler, historyHandler, healthHandler)
	srv := server.New(cfg.Port, mux, log)

	return &App{
		server:       srv,
		gen:          gen,
		log:          log,
		shutdownOTel: shutdownOTel,
	}, nil
}

// NewController opens the configured generator, decorates it and builds the
// Retry Controller shared by every session.
func NewController(ctx context.Context, cfg *config.Config, log *logger.Logger) (*tutor.Controller, llmclient.Generator, error) {
	policy := contract.DefaultPolicy()
	if cfg.Policy != "" {
		p, err := contract.LoadPolicyFile(cfg.Policy)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load policy: %w", err)
		}
		policy = p
	}

	catalog := llmclient.DefaultCatalog()
	reg, ok := catalog.Lookup(cfg.LLM.Provider)
	if !ok {
		return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q (have %v)", cfg.LLM.Provider, catalog.Providers())
	}
	inner, err := catalog.Open(ctx, reg.Provider, llmclient.Options{
		APIKey: cfg.LLM.ResolveAPIKey(reg.APIKeyEnv),
		Model:  cfg.LLM.Model,
	})
	if err != nil {
		return nil, nil, err
	}
	gen := llm.Wrap(inner,
		llm.WithTracing(nil),
		llm.WithLogging(log),
		llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
	)

	ctrl, err := tutor.NewController(gen, policy, cfg.Tutor, log,
		tutor.WithTracing(nil),
		tutor.WithObserver(tutor.SpanEvents),
	)
	if err != nil {
		_ = gen.Close()
		return nil, nil, err
	}
	log.Info("tutor ready", "provider", reg.Provider, "model", gen.Name(), "max_retries", cfg.Tutor.MaxRetries)
	return ctrl, gen, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	err = errors.Join(err, a.gen.Close(), a.shutdownOTel(ctx))
	a.log.Sync()
	return err
}
