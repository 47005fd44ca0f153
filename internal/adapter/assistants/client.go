package assistants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

const (
	// BetaHeader selects the assistants API version.
	BetaHeader = "assistants=v2"

	messagePageSize = 100
)

// Client talks to an OpenAI compatible assistants API.
type Client struct {
	client *resty.Client
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
	// RetryWait is the initial backoff between retries of idempotent reads.
	RetryWait time.Duration
	// RetryMaxWait caps the backoff between retries.
	RetryMaxWait time.Duration
}

// NewClient creates a new assistants API client.
func NewClient(opts Options) *Client {
	if opts.RetryWait <= 0 {
		opts.RetryWait = 250 * time.Millisecond
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = 2 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/"))
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("OpenAI-Beta", BetaHeader)
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}
	client.SetRetryCount(opts.RetryCount)
	client.SetRetryWaitTime(opts.RetryWait)
	client.SetRetryMaxWaitTime(opts.RetryMaxWait)
	client.AddRetryCondition(retryIdempotentRead)

	return &Client{client: client}
}

// retryIdempotentRead retries GET requests on transport errors, throttling and
// server errors. Writes are never retried: a repeated message or run would
// duplicate conversation content.
func retryIdempotentRead(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIErrorBody `json:"error"`
}

// APIErrorBody represents the error details.
type APIErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// APIError is returned for non-2xx responses of the remote API.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
	// Body is the raw response body, surfaced to callers as error details.
	Body json.RawMessage

	sentinel error
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("assistants API error [%d]: %s (type: %s)", e.StatusCode, e.Message, e.Type)
	}
	return fmt.Sprintf("assistants API error [%d]: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.sentinel }

// Details returns the upstream payload in a form suitable for a JSON response.
func (e *APIError) Details() interface{} {
	if json.Valid(e.Body) {
		return e.Body
	}
	return string(e.Body)
}

type threadMessageRequest struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

type createRunRequest struct {
	AssistantID string `json:"assistant_id"`
}

type listRunsResponse struct {
	Data    []domain.Run `json:"data"`
	HasMore bool         `json:"has_more"`
}

type listMessagesResponse struct {
	Data    []domain.Message `json:"data"`
	FirstID string           `json:"first_id"`
	LastID  string           `json:"last_id"`
	HasMore bool             `json:"has_more"`
}

// CreateThread creates an empty thread.
func (c *Client) CreateThread(ctx context.Context) (*domain.Thread, error) {
	var thread domain.Thread
	if err := c.do(ctx, http.MethodPost, "/v1/threads", nil, struct{}{}, nil, &thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	if thread.ID == "" {
		return nil, fmt.Errorf("create thread: response carried no id")
	}
	return &thread, nil
}

// AddMessage appends a message to a thread.
func (c *Client) AddMessage(ctx context.Context, threadID string, role domain.Role, text string) (*domain.Message, error) {
	var msg domain.Message
	body := threadMessageRequest{Role: role, Content: text}
	path := map[string]string{"thread_id": threadID}
	if err := c.do(ctx, http.MethodPost, "/v1/threads/{thread_id}/messages", path, body, nil, &msg); err != nil {
		return nil, fmt.Errorf("add message to %s: %w", threadID, err)
	}
	return &msg, nil
}

// CreateRun starts a run on a thread.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*domain.Run, error) {
	var run domain.Run
	body := createRunRequest{AssistantID: assistantID}
	path := map[string]string{"thread_id": threadID}
	if err := c.do(ctx, http.MethodPost, "/v1/threads/{thread_id}/runs", path, body, nil, &run); err != nil {
		return nil, fmt.Errorf("create run on %s: %w", threadID, err)
	}
	return &run, nil
}

// GetRun retrieves a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	var run domain.Run
	path := map[string]string{"thread_id": threadID, "run_id": runID}
	if err := c.do(ctx, http.MethodGet, "/v1/threads/{thread_id}/runs/{run_id}", path, nil, nil, &run); err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns lists the most recent runs of a thread.
func (c *Client) ListRuns(ctx context.Context, threadID string, limit int) ([]domain.Run, error) {
	var resp listRunsResponse
	path := map[string]string{"thread_id": threadID}
	query := map[string]string{"order": "desc"}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	if err := c.do(ctx, http.MethodGet, "/v1/threads/{thread_id}/runs", path, nil, query, &resp); err != nil {
		return nil, fmt.Errorf("list runs of %s: %w", threadID, err)
	}
	return resp.Data, nil
}

// CancelRun cancels a run.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	var run domain.Run
	path := map[string]string{"thread_id": threadID, "run_id": runID}
	if err := c.do(ctx, http.MethodPost, "/v1/threads/{thread_id}/runs/{run_id}/cancel", path, struct{}{}, nil, &run); err != nil {
		return nil, fmt.Errorf("cancel run %s: %w", runID, err)
	}
	return &run, nil
}

// ListMessages lists all messages of a thread, oldest first, following pagination.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	var all []domain.Message
	path := map[string]string{"thread_id": threadID}
	after := ""
	for {
		query := map[string]string{
			"order": "asc",
			"limit": strconv.Itoa(messagePageSize),
		}
		if after != "" {
			query["after"] = after
		}

		var page listMessagesResponse
		if err := c.do(ctx, http.MethodGet, "/v1/threads/{thread_id}/messages", path, nil, query, &page); err != nil {
			return nil, fmt.Errorf("list messages of %s: %w", threadID, err)
		}
		all = append(all, page.Data...)

		if !page.HasMore || len(page.Data) == 0 {
			return all, nil
		}
		after = page.LastID
		if after == "" {
			after = page.Data[len(page.Data)-1].ID
		}
	}
}

func (c *Client) do(ctx context.Context, method, url string, pathParams map[string]string, body interface{}, query map[string]string, out interface{}) error {
	req := c.client.R().SetContext(ctx)
	if pathParams != nil {
		req.SetPathParams(pathParams)
	}
	if query != nil {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	if resp.IsError() {
		return newAPIError(resp.StatusCode(), resp.Body())
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Message:    strings.TrimSpace(string(body)),
		Body:       append(json.RawMessage(nil), body...),
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	if isActiveRunConflict(status, apiErr.Message) {
		apiErr.sentinel = domain.ErrRunConflict
	}
	return apiErr
}

// isActiveRunConflict recognises the rejection of a write on a thread that has a live run.
func isActiveRunConflict(status int, message string) bool {
	if status != http.StatusBadRequest && status != http.StatusConflict {
		return false
	}
	msg := strings.ToLower(message)
	if strings.Contains(msg, "already has an active run") {
		return true
	}
	return strings.Contains(msg, "while a run") && strings.Contains(msg, "is active")
}

// IsAPIError reports whether err carries an upstream API error and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
