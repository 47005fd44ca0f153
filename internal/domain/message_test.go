package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentUnmarshalBlocks(t *testing.T) {
	raw := `[{"type":"text","text":{"value":"first","annotations":[]}},{"type":"image_file","image_file":{"file_id":"f1"}},{"type":"text","text":{"value":"second"}}]`

	var c Content
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	require.Len(t, c, 3)
	assert.Equal(t, "first\nsecond", c.Text())
}

func TestContentUnmarshalString(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"id":"m1","role":"assistant","content":"plain"}`), &msg))
	assert.Equal(t, "plain", msg.Content.Text())
}

func TestContentUnmarshalNull(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"id":"m1","role":"assistant","content":null}`), &msg))
	assert.Empty(t, msg.Content)
	assert.Equal(t, "", msg.Content.Text())
}

func TestAssistantTextJoinsInOrder(t *testing.T) {
	messages := []Message{
		{ID: "m1", Role: RoleUser, Content: TextContent("question")},
		{ID: "m2", Role: RoleAssistant, Content: TextContent("A")},
		{ID: "m3", Role: RoleAssistant, Content: TextContent("B")},
	}
	assert.Equal(t, "A\nB", AssistantText(messages))
}

func TestAssistantTextNoResponse(t *testing.T) {
	messages := []Message{{ID: "m1", Role: RoleUser, Content: TextContent("question")}}
	assert.Equal(t, NoResponseText, AssistantText(messages))
	assert.Equal(t, NoResponseText, AssistantText(nil))
	assert.NotEmpty(t, NoResponseText)
}

func TestAssistantTextKeepsEmptyAssistantMessage(t *testing.T) {
	messages := []Message{{ID: "m1", Role: RoleAssistant, Content: TextContent("")}}
	assert.Equal(t, "", AssistantText(messages))
}

func TestRunStatusTerminal(t *testing.T) {
	for _, s := range []RunStatus{RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction, RunStatusCancelling} {
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []RunStatus{RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.True(t, RunStatusCompleted.IsSuccess())
	assert.False(t, RunStatusFailed.IsSuccess())
}

func TestRequestValidation(t *testing.T) {
	err := (&AnalyzeRequest{Summary: json.RawMessage(`"s"`)}).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.EqualError(t, err, "userId is required")

	err = (&AnalyzeRequest{UserID: "u1"}).Validate()
	assert.EqualError(t, err, "summary is required")
	err = (&AnalyzeRequest{UserID: "u1", Summary: json.RawMessage(` null `)}).Validate()
	assert.EqualError(t, err, "summary is required")

	for _, present := range []string{`""`, `{}`, `[]`, `0`, `false`} {
		assert.NoError(t, (&AnalyzeRequest{UserID: "u1", Summary: json.RawMessage(present)}).Validate(), present)
	}
	assert.True(t, errors.Is(ErrThreadMismatch, ErrValidation))

	assert.NoError(t, (&AnalyzeRequest{UserID: "u1", Summary: json.RawMessage(`{"clicks":10}`)}).Validate())

	assert.EqualError(t, (&ChatRequest{UserID: "u1"}).Validate(), "userMessage is required")
	assert.EqualError(t, (&ChatRequest{UserMessage: "hi"}).Validate(), "userId is required")
}

func TestRunFailedError(t *testing.T) {
	err := &RunFailedError{RunID: "run_1", Status: RunStatusFailed, LastError: &RunError{Code: "rate_limit_exceeded", Message: "slow down"}}
	assert.True(t, errors.Is(err, ErrRunFailed))
	assert.Equal(t, "rate_limit_exceeded", err.Code())
	assert.Contains(t, err.Error(), "slow down")

	bare := &RunFailedError{RunID: "run_2", Status: RunStatusExpired}
	assert.Equal(t, "run_expired", bare.Code())
}
