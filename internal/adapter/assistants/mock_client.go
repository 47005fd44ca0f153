package assistants

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// MockClient is an in-process implementation of AssistantsClient for local runs and tests.
// A run reports in_progress for PollsToComplete status checks and then completes,
// appending one assistant message that echoes the latest user message.
type MockClient struct {
	// PollsToComplete is the number of GetRun calls answered with in_progress.
	PollsToComplete int

	mu      sync.Mutex
	seq     int
	threads map[string]*mockThread
	runs    map[string]*mockRun
}

type mockThread struct {
	messages []domain.Message
}

type mockRun struct {
	run   domain.Run
	seq   int
	polls int
}

// NewMockClient creates a new mock assistants client.
func NewMockClient() *MockClient {
	return &MockClient{
		PollsToComplete: 1,
		threads:         make(map[string]*mockThread),
		runs:            make(map[string]*mockRun),
	}
}

// Ensure MockClient implements AssistantsClient interface.
var _ AssistantsClient = (*MockClient)(nil)

// CreateThread creates an in-memory thread.
func (m *MockClient) CreateThread(ctx context.Context) (*domain.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := "thread_mock_" + uuid.New().String()[:8]
	m.threads[id] = &mockThread{}
	return &domain.Thread{ID: id, CreatedAt: time.Now().Unix()}, nil
}

// AddMessage appends a message to an in-memory thread.
func (m *MockClient) AddMessage(ctx context.Context, threadID string, role domain.Role, text string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	thread, err := m.thread(threadID)
	if err != nil {
		return nil, err
	}
	if m.activeRun(threadID) != nil {
		return nil, newAPIError(400, []byte(fmt.Sprintf(`{"error":{"message":"Can't add messages to %s while a run is active.","type":"invalid_request_error"}}`, threadID)))
	}
	msg := domain.Message{
		ID:        "msg_mock_" + uuid.New().String()[:8],
		ThreadID:  threadID,
		Role:      role,
		Content:   domain.TextContent(text),
		CreatedAt: time.Now().Unix(),
	}
	thread.messages = append(thread.messages, msg)
	return &msg, nil
}

// CreateRun starts an in-memory run.
func (m *MockClient) CreateRun(ctx context.Context, threadID, assistantID string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.thread(threadID); err != nil {
		return nil, err
	}
	if active := m.activeRun(threadID); active != nil {
		return nil, newAPIError(400, []byte(fmt.Sprintf(`{"error":{"message":"Thread %s already has an active run %s.","type":"invalid_request_error"}}`, threadID, active.run.ID)))
	}
	m.seq++
	r := &mockRun{seq: m.seq, run: domain.Run{
		ID:          "run_mock_" + uuid.New().String()[:8],
		ThreadID:    threadID,
		AssistantID: assistantID,
		Status:      domain.RunStatusQueued,
		CreatedAt:   time.Now().Unix(),
	}}
	m.runs[r.run.ID] = r
	run := r.run
	return &run, nil
}

// GetRun advances and returns an in-memory run.
func (m *MockClient) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[runID]
	if !ok || r.run.ThreadID != threadID {
		return nil, newAPIError(404, []byte(`{"error":{"message":"No run found.","type":"invalid_request_error"}}`))
	}
	if !r.run.Status.IsTerminal() {
		r.polls++
		if r.polls > m.PollsToComplete {
			m.completeLocked(r)
		} else {
			r.run.Status = domain.RunStatusInProgress
		}
	}
	run := r.run
	return &run, nil
}

// ListRuns returns the runs of a thread, newest first.
func (m *MockClient) ListRuns(ctx context.Context, threadID string, limit int) ([]domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.thread(threadID); err != nil {
		return nil, err
	}
	var matched []*mockRun
	for _, r := range m.runs {
		if r.run.ThreadID == threadID {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })
	runs := make([]domain.Run, 0, len(matched))
	for _, r := range matched {
		runs = append(runs, r.run)
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// CancelRun cancels an in-memory run.
func (m *MockClient) CancelRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[runID]
	if !ok || r.run.ThreadID != threadID {
		return nil, newAPIError(404, []byte(`{"error":{"message":"No run found.","type":"invalid_request_error"}}`))
	}
	if !r.run.Status.IsTerminal() {
		r.run.Status = domain.RunStatusCancelled
	}
	run := r.run
	return &run, nil
}

// ListMessages returns the messages of an in-memory thread in creation order.
func (m *MockClient) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	thread, err := m.thread(threadID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, len(thread.messages))
	copy(out, thread.messages)
	return out, nil
}

func (m *MockClient) thread(threadID string) (*mockThread, error) {
	thread, ok := m.threads[threadID]
	if !ok {
		return nil, newAPIError(404, []byte(fmt.Sprintf(`{"error":{"message":"No thread found with id '%s'.","type":"invalid_request_error"}}`, threadID)))
	}
	return thread, nil
}

func (m *MockClient) activeRun(threadID string) *mockRun {
	for _, r := range m.runs {
		if r.run.ThreadID == threadID && !r.run.Status.IsTerminal() {
			return r
		}
	}
	return nil
}

func (m *MockClient) completeLocked(r *mockRun) {
	r.run.Status = domain.RunStatusCompleted
	thread := m.threads[r.run.ThreadID]

	var lastUser string
	for i := len(thread.messages) - 1; i >= 0; i-- {
		if thread.messages[i].Role == domain.RoleUser {
			lastUser = thread.messages[i].Content.Text()
			break
		}
	}

	text := "[MOCK] This is a mock response from the assistant."
	if lastUser != "" {
		text = fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUser, 100))
	}
	thread.messages = append(thread.messages, domain.Message{
		ID:        "msg_mock_" + uuid.New().String()[:8],
		ThreadID:  r.run.ThreadID,
		RunID:     r.run.ID,
		Role:      domain.RoleAssistant,
		Content:   domain.TextContent(text),
		CreatedAt: time.Now().Unix(),
	})
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
