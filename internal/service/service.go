// Package service coordinates sessions and runs against the assistants API.
package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/gogo/insights/internal/adapter/assistants"
	"github.com/xiaot623/gogo/insights/internal/config"
	"github.com/xiaot623/gogo/insights/internal/domain"
	"github.com/xiaot623/gogo/insights/internal/metrics"
	store "github.com/xiaot623/gogo/insights/internal/repository"
)

// SessionRegistry maps users to remote threads.
type SessionRegistry interface {
	Get(ctx context.Context, userID string) (string, bool, error)
	GetOrCreate(ctx context.Context, userID string) (string, bool, error)
	Set(ctx context.Context, userID, threadID string) error
	Session(ctx context.Context, userID string) (*domain.Session, error)
}

type Service struct {
	journal     store.JournalStore
	sessions    SessionRegistry
	client      assistants.AssistantsClient
	metrics     *metrics.Metrics
	config      *config.Config
	assistantID string
	poll        PollPolicy
	clock       Clock
	locks       *keyedMutex
	logger      zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the clock used for polling.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithPollPolicy replaces the poll policy derived from configuration.
func WithPollPolicy(p PollPolicy) Option {
	return func(s *Service) { s.poll = p }
}

// WithLogger replaces the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(journal store.JournalStore, sessions SessionRegistry, client assistants.AssistantsClient, m *metrics.Metrics, cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = &config.Config{}
	}
	s := &Service{
		journal:     journal,
		sessions:    sessions,
		client:      client,
		metrics:     m,
		config:      cfg,
		assistantID: cfg.AssistantID,
		poll:        PollPolicyFromConfig(cfg),
		clock:       RealClock{},
		locks:       newKeyedMutex(),
		logger:      log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
