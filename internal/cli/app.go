package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/xiaot623/gogo/insights/internal/adapter/assistants"
	"github.com/xiaot623/gogo/insights/internal/config"
	"github.com/xiaot623/gogo/insights/internal/metrics"
	store "github.com/xiaot623/gogo/insights/internal/repository"
	"github.com/xiaot623/gogo/insights/internal/service"
	"github.com/xiaot623/gogo/insights/internal/session"
)

// app holds the wired service and the resources it owns.
type app struct {
	cfg     *config.Config
	store   store.Store
	metrics *metrics.Metrics
	service *service.Service
}

func newApp(cfg *config.Config) (*app, error) {
	if cfg.Mode != assistants.ModeMock && cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set, assistants API calls will be rejected")
	}

	// Initialize store
	db, err := store.Open(cfg.StoreDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	// Initialize assistants client
	client := assistants.NewAssistantsClient(cfg.Mode, assistants.Options{
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		Timeout:    cfg.UpstreamTimeout,
		RetryCount: cfg.UpstreamRetryCount,
	})

	m := metrics.New()

	// Initialize session registry
	registry := session.NewRegistry(db, client)
	registry.OnCreate = func(userID, threadID string) {
		m.ObserveThreadCreated()
	}

	// Initialize service
	svc := service.New(db, registry, client, m, cfg)

	return &app{
		cfg:     cfg,
		store:   db,
		metrics: m,
		service: svc,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
