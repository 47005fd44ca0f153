package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/insights/internal/adapter/assistants"
	"github.com/xiaot623/gogo/insights/internal/config"
	"github.com/xiaot623/gogo/insights/internal/domain"
	store "github.com/xiaot623/gogo/insights/internal/repository"
	"github.com/xiaot623/gogo/insights/internal/session"
	"github.com/xiaot623/gogo/insights/tests/helpers"
)

func TestAnalysisAndChatAgainstMockClient(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemoryStore()
	client := assistants.NewMockClient()
	clock := helpers.NewFakeClock(time.Unix(0, 0))
	svc := New(db, session.NewRegistry(db, client), client, nil, &config.Config{AssistantID: "asst_mock"},
		WithClock(clock), WithLogger(zerolog.Nop()))

	analysis, err := svc.SubmitAnalysis(ctx, &domain.AnalyzeRequest{UserID: "u1", Summary: json.RawMessage(`{"clicks":5}`)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(analysis.Insights, "[MOCK] Received your message"))
	assert.Len(t, clock.Delays(), 1)

	reply, err := svc.SubmitFollowUp(ctx, &domain.ChatRequest{UserID: "u1", UserMessage: "thanks"})
	require.NoError(t, err)
	assert.Equal(t, analysis.ThreadID, reply.ThreadID)

	lines := strings.Split(reply.Response, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"thanks"`)

	cycle, err := svc.GetCycle(ctx, reply.CycleID)
	require.NoError(t, err)
	require.NotNil(t, cycle)
	assert.Equal(t, domain.CycleStatusDone, cycle.Status)
}
