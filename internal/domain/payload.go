package domain

// CycleStartedPayload is the payload for cycle_started events.
type CycleStartedPayload struct {
	Kind     CycleKind `json:"kind"`
	UserID   string    `json:"user_id"`
	ThreadID string    `json:"thread_id"`
}

// RunAwaitedPayload is the payload for run_awaited events.
type RunAwaitedPayload struct {
	RunID  string    `json:"run_id"`
	Status RunStatus `json:"status"`
}

// MessageAppendedPayload is the payload for message_appended events.
type MessageAppendedPayload struct {
	MessageID string `json:"message_id"`
	Length    int    `json:"length"`
}

// RunStartedPayload is the payload for run_started and run_adopted events.
type RunStartedPayload struct {
	RunID       string `json:"run_id"`
	AssistantID string `json:"assistant_id,omitempty"`
}

// RunStatusPayload is the payload for run_status events.
type RunStatusPayload struct {
	RunID   string    `json:"run_id"`
	Status  RunStatus `json:"status"`
	Attempt int       `json:"attempt"`
}

// CycleDonePayload is the payload for cycle_done events.
type CycleDonePayload struct {
	RunID      string `json:"run_id"`
	Messages   int    `json:"assistant_messages"`
	ResponseSz int    `json:"response_bytes"`
	NoResponse bool   `json:"no_response,omitempty"`
}

// CycleFailedPayload is the payload for cycle_failed events.
type CycleFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
