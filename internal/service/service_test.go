package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/insights/internal/config"
	"github.com/xiaot623/gogo/insights/internal/metrics"
	store "github.com/xiaot623/gogo/insights/internal/repository"
	"github.com/xiaot623/gogo/insights/internal/session"
	"github.com/xiaot623/gogo/insights/tests/helpers"
)

type testEnv struct {
	svc      *Service
	fake     *helpers.FakeAssistants
	clock    *helpers.FakeClock
	db       *store.SQLiteStore
	registry *session.Registry
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	db := helpers.NewTestSQLiteStore(t)
	fake := helpers.NewFakeAssistants()
	clock := helpers.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	m := metrics.New()
	registry := session.NewRegistry(db, fake)
	registry.OnCreate = func(userID, threadID string) { m.ObserveThreadCreated() }

	cfg := &config.Config{AssistantID: "asst_test"}
	opts = append([]Option{WithClock(clock), WithLogger(zerolog.Nop())}, opts...)
	svc := New(db, registry, fake, m, cfg, opts...)

	return &testEnv{
		svc:      svc,
		fake:     fake,
		clock:    clock,
		db:       db,
		registry: registry,
		metrics:  m,
	}
}
