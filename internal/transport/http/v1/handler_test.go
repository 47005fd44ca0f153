package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/insights/internal/adapter/assistants"
	"github.com/xiaot623/gogo/insights/internal/config"
	"github.com/xiaot623/gogo/insights/internal/domain"
	"github.com/xiaot623/gogo/insights/internal/service"
	"github.com/xiaot623/gogo/insights/internal/session"
	"github.com/xiaot623/gogo/insights/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, *helpers.FakeAssistants) {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	fake := helpers.NewFakeAssistants()
	registry := session.NewRegistry(db, fake)
	cfg := &config.Config{AssistantID: "asst_test"}
	svc := service.New(db, registry, fake, nil, cfg,
		service.WithClock(helpers.NewFakeClock(time.Unix(1700000000, 0))),
		service.WithLogger(zerolog.Nop()),
	)
	return NewHandler(svc), fake
}

func doJSON(t *testing.T, handler echo.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestAnalyzePPCValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing user", body: `{"summary":{"clicks":10}}`},
		{name: "empty user", body: `{"userId":"","summary":{"clicks":10}}`},
		{name: "missing summary", body: `{"userId":"u1"}`},
		{name: "malformed body", body: `{"userId":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fake := newTestHandler(t)
			rec := doJSON(t, h.AnalyzePPC, http.MethodPost, "/analyze-ppc", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp domain.ErrorResponse
			decode(t, rec, &resp)
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, fake.Calls())
		})
	}
}

func TestAnalyzePPCSuccess(t *testing.T) {
	h, fake := newTestHandler(t)
	fake.Replies = []string{"Raise bids on brand terms."}

	rec := doJSON(t, h.AnalyzePPC, http.MethodPost, "/analyze-ppc",
		`{"userId":"u1","summary":{"clicks":10},"campaigns":[{"name":"brand"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.AnalyzeResponse
	decode(t, rec, &resp)
	assert.Equal(t, "Raise bids on brand terms.", resp.Insights)
	assert.Equal(t, "thread_1", resp.ThreadID)
	assert.NotEmpty(t, resp.CycleID)
}

func TestAnalyzePPCUpstreamFailure(t *testing.T) {
	h, fake := newTestHandler(t)
	fake.Errs["create_thread"] = &assistants.APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Incorrect API key provided",
		Body:       json.RawMessage(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`),
	}

	rec := doJSON(t, h.AnalyzePPC, http.MethodPost, "/analyze-ppc", `{"userId":"u1","summary":"weekly"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp struct {
		Error   string          `json:"error"`
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "error communicating with assistants API", resp.Error)
	assert.Equal(t, "upstream_error", resp.Code)
	assert.JSONEq(t, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`, string(resp.Details))
}

func TestAnalyzePPCRunFailure(t *testing.T) {
	h, fake := newTestHandler(t)
	fake.DefaultScript = []domain.RunStatus{domain.RunStatusFailed}
	fake.LastError = &domain.RunError{Code: "rate_limit_exceeded", Message: "quota"}

	rec := doJSON(t, h.AnalyzePPC, http.MethodPost, "/analyze-ppc", `{"userId":"u1","summary":{"a":1}}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]interface{}
	decode(t, rec, &resp)
	assert.Equal(t, "assistant run failed", resp["error"])
	assert.Equal(t, "rate_limit_exceeded", resp["code"])
	details, ok := resp["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "failed", details["status"])
}

func TestChatWithoutSession(t *testing.T) {
	h, fake := newTestHandler(t)

	rec := doJSON(t, h.Chat, http.MethodPost, "/chat", `{"userId":"u1","userMessage":"and now?"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp domain.ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "no_session", resp.Code)
	assert.Empty(t, fake.Calls())
}

func TestChatValidation(t *testing.T) {
	h, fake := newTestHandler(t)

	rec := doJSON(t, h.Chat, http.MethodPost, "/chat", `{"userMessage":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(t, h.Chat, http.MethodPost, "/chat", `{"userId":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fake.Calls())
}

func TestChatAfterAnalysis(t *testing.T) {
	h, fake := newTestHandler(t)
	fake.Replies = []string{"insight"}

	rec := doJSON(t, h.AnalyzePPC, http.MethodPost, "/analyze-ppc", `{"userId":"u1","summary":{"a":1}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	fake.Replies = []string{"follow-up"}
	rec = doJSON(t, h.Chat, http.MethodPost, "/chat", `{"userId":"u1","userMessage":"explain"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ChatResponse
	decode(t, rec, &resp)
	assert.Equal(t, "insight\nfollow-up", resp.Response)
	assert.Equal(t, "thread_1", resp.ThreadID)
	assert.Equal(t, 1, fake.CallCount("create_thread"))
}

func TestChatCannotBorrowAnotherUsersThread(t *testing.T) {
	h, fake := newTestHandler(t)
	fake.Replies = []string{"alice insights"}

	rec := doJSON(t, h.AnalyzePPC, http.MethodPost, "/analyze-ppc", `{"userId":"alice","summary":{"a":1}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	callsBefore := len(fake.Calls())

	rec = doJSON(t, h.Chat, http.MethodPost, "/chat", `{"userId":"mallory","userMessage":"x","threadId":"thread_1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp domain.ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "no_session", resp.Code)
	assert.NotContains(t, rec.Body.String(), "alice insights")

	rec = doJSON(t, h.StartThread, http.MethodPost, "/start-thread", `{"userId":"mallory"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	callsBefore++

	rec = doJSON(t, h.Chat, http.MethodPost, "/chat", `{"userId":"mallory","userMessage":"x","threadId":"thread_1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, "thread_mismatch", resp.Code)
	assert.Len(t, fake.Calls(), callsBefore)
}

func TestStartThreadBindsUser(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h.StartThread, http.MethodPost, "/start-thread", `{"userId":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.StartThreadResponse
	decode(t, rec, &resp)
	assert.Equal(t, "thread_1", resp.ThreadID)

	session, err := h.service.GetSession(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "thread_1", session.ThreadID)
}

func TestCreateThreadWithoutBody(t *testing.T) {
	h, fake := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/create-thread", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.StartThread(e.NewContext(req, rec)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"threadId":"thread_1"`)
	assert.Equal(t, []string{"create_thread"}, fake.Calls())
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.Health, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
