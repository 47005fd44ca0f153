package domain

import (
	"encoding/json"
	"time"
)

// Thread is a remote conversation.
type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Run is a remote asynchronous unit of work on a thread.
type Run struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id,omitempty"`
	Status      RunStatus `json:"status"`
	LastError   *RunError `json:"last_error,omitempty"`
	CreatedAt   int64     `json:"created_at,omitempty"`
}

// RunError is the failure reason reported for a run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Cycle is the local journal record of one ask-and-answer cycle.
type Cycle struct {
	CycleID   string          `json:"cycle_id"`
	Kind      CycleKind       `json:"kind"`
	UserID    string          `json:"user_id"`
	ThreadID  string          `json:"thread_id"`
	RunID     string          `json:"run_id,omitempty"`
	Status    CycleStatus     `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

// Event represents a journal entry of a cycle.
type Event struct {
	EventID string          `json:"event_id"`
	CycleID string          `json:"cycle_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
