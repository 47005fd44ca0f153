package domain

import (
	"encoding/json"
	"strings"
)

// AnalyzeRequest is the body of POST /analyze-ppc.
type AnalyzeRequest struct {
	UserID    string          `json:"userId"`
	Summary   json.RawMessage `json:"summary"`
	Campaigns json.RawMessage `json:"campaigns,omitempty"`
}

// Validate checks the presence of the required fields.
func (r *AnalyzeRequest) Validate() error {
	if r.UserID == "" {
		return &ValidationError{Field: "userId"}
	}
	if isEmptyJSON(r.Summary) {
		return &ValidationError{Field: "summary"}
	}
	return nil
}

// AnalyzeResponse is the body returned by POST /analyze-ppc.
type AnalyzeResponse struct {
	Insights string `json:"insights"`
	ThreadID string `json:"threadId"`
	CycleID  string `json:"cycleId,omitempty"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	UserID      string `json:"userId"`
	UserMessage string `json:"userMessage"`
	ThreadID    string `json:"threadId,omitempty"`
}

// Validate checks the presence of the required fields.
func (r *ChatRequest) Validate() error {
	if r.UserID == "" {
		return &ValidationError{Field: "userId"}
	}
	if r.UserMessage == "" {
		return &ValidationError{Field: "userMessage"}
	}
	return nil
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"threadId"`
	CycleID  string `json:"cycleId,omitempty"`
}

// StartThreadRequest is the body of POST /create-thread and POST /start-thread.
type StartThreadRequest struct {
	UserID string `json:"userId,omitempty"`
}

// StartThreadResponse is the body returned by the thread creation endpoints.
type StartThreadResponse struct {
	ThreadID string `json:"threadId"`
}

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// isEmptyJSON reports an absent or null value. Empty strings and containers
// count as present.
func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
