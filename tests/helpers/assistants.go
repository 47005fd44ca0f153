package helpers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// FakeAssistants is a scripted assistants API double that records every call.
type FakeAssistants struct {
	mu sync.Mutex

	// DefaultScript lists the statuses GetRun reports, in order, for runs started
	// through CreateRun. The last status repeats. Empty means completed at once.
	DefaultScript []domain.RunStatus
	// Replies are appended as assistant messages when a started run completes.
	Replies []string
	// LastError is attached to runs that end in a failure status.
	LastError *domain.RunError
	// ConflictOnCreateRun rejects that many CreateRun calls with domain.ErrRunConflict.
	ConflictOnCreateRun int
	// ConflictStartsRun registers a run started by another client whenever
	// CreateRun is rejected. That run follows DefaultScript and posts Replies.
	ConflictStartsRun bool
	// ConflictOnAddMessage rejects that many AddMessage calls with domain.ErrRunConflict.
	ConflictOnAddMessage int
	// Errs makes the named operation fail with the given error.
	Errs map[string]error

	calls     []string
	threadSeq int
	runSeq    int
	msgSeq    int
	clock     int64
	runs      map[string]*fakeRun
	messages  map[string][]domain.Message
}

type fakeRun struct {
	run       domain.Run
	script    []domain.RunStatus
	polls     int
	seq       int
	cancelled bool
	replied   bool
}

// NewFakeAssistants creates an empty fake.
func NewFakeAssistants() *FakeAssistants {
	return &FakeAssistants{
		Errs:     make(map[string]error),
		runs:     make(map[string]*fakeRun),
		messages: make(map[string][]domain.Message),
	}
}

// Calls returns the operations invoked so far, in order.
func (f *FakeAssistants) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times op was invoked.
func (f *FakeAssistants) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// SeedThread registers an existing thread holding the given messages.
func (f *FakeAssistants) SeedThread(threadID string, messages ...domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[threadID] = append(f.messages[threadID], messages...)
}

// SeedRun registers a run that already exists on a thread. GetRun walks script.
func (f *FakeAssistants) SeedRun(threadID, runID string, initial domain.RunStatus, script ...domain.RunStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runSeq++
	f.clock++
	f.runs[runID] = &fakeRun{
		run:     domain.Run{ID: runID, ThreadID: threadID, Status: initial, CreatedAt: f.clock},
		script:  script,
		seq:     f.runSeq,
		replied: true,
	}
	if _, ok := f.messages[threadID]; !ok {
		f.messages[threadID] = nil
	}
}

func (f *FakeAssistants) record(op string) error {
	f.calls = append(f.calls, op)
	if err, ok := f.Errs[op]; ok {
		return err
	}
	return nil
}

// CreateThread implements the assistants client.
func (f *FakeAssistants) CreateThread(ctx context.Context) (*domain.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create_thread"); err != nil {
		return nil, err
	}
	f.threadSeq++
	id := fmt.Sprintf("thread_%d", f.threadSeq)
	f.messages[id] = nil
	return &domain.Thread{ID: id}, nil
}

// AddMessage implements the assistants client.
func (f *FakeAssistants) AddMessage(ctx context.Context, threadID string, role domain.Role, text string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("add_message"); err != nil {
		return nil, err
	}
	if f.ConflictOnAddMessage > 0 {
		f.ConflictOnAddMessage--
		return nil, fmt.Errorf("add message: %w", domain.ErrRunConflict)
	}
	f.msgSeq++
	f.clock++
	msg := domain.Message{
		ID:        fmt.Sprintf("msg_%d", f.msgSeq),
		ThreadID:  threadID,
		Role:      role,
		Content:   domain.TextContent(text),
		CreatedAt: f.clock,
	}
	f.messages[threadID] = append(f.messages[threadID], msg)
	return &msg, nil
}

// CreateRun implements the assistants client.
func (f *FakeAssistants) CreateRun(ctx context.Context, threadID, assistantID string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create_run"); err != nil {
		return nil, err
	}
	if f.ConflictOnCreateRun > 0 {
		f.ConflictOnCreateRun--
		if f.ConflictStartsRun {
			f.newRun(threadID, assistantID)
		}
		return nil, fmt.Errorf("create run: %w", domain.ErrRunConflict)
	}
	run := f.newRun(threadID, assistantID).run
	return &run, nil
}

func (f *FakeAssistants) newRun(threadID, assistantID string) *fakeRun {
	f.runSeq++
	f.clock++
	r := &fakeRun{
		run: domain.Run{
			ID:          fmt.Sprintf("run_%d", f.runSeq),
			ThreadID:    threadID,
			AssistantID: assistantID,
			Status:      domain.RunStatusQueued,
			CreatedAt:   f.clock,
		},
		script: f.DefaultScript,
		seq:    f.runSeq,
	}
	f.runs[r.run.ID] = r
	return r
}

// GetRun implements the assistants client.
func (f *FakeAssistants) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get_run"); err != nil {
		return nil, err
	}
	r, ok := f.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	switch {
	case r.cancelled:
		r.run.Status = domain.RunStatusCancelled
	case len(r.script) == 0:
		r.run.Status = domain.RunStatusCompleted
	default:
		idx := r.polls
		if idx >= len(r.script) {
			idx = len(r.script) - 1
		}
		r.run.Status = r.script[idx]
	}
	r.polls++

	if r.run.Status.IsTerminal() && !r.run.Status.IsSuccess() && f.LastError != nil {
		r.run.LastError = f.LastError
	}
	if r.run.Status.IsSuccess() && !r.replied {
		r.replied = true
		for _, reply := range f.Replies {
			f.msgSeq++
			f.clock++
			f.messages[threadID] = append(f.messages[threadID], domain.Message{
				ID:        fmt.Sprintf("msg_%d", f.msgSeq),
				ThreadID:  threadID,
				RunID:     runID,
				Role:      domain.RoleAssistant,
				Content:   domain.TextContent(reply),
				CreatedAt: f.clock,
			})
		}
	}
	run := r.run
	return &run, nil
}

// ListRuns implements the assistants client.
func (f *FakeAssistants) ListRuns(ctx context.Context, threadID string, limit int) ([]domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list_runs"); err != nil {
		return nil, err
	}
	var matched []*fakeRun
	for _, r := range f.runs {
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

// CancelRun implements the assistants client.
func (f *FakeAssistants) CancelRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("cancel_run"); err != nil {
		return nil, err
	}
	r, ok := f.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	r.cancelled = true
	r.run.Status = domain.RunStatusCancelling
	run := r.run
	return &run, nil
}

// ListMessages implements the assistants client.
func (f *FakeAssistants) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list_messages"); err != nil {
		return nil, err
	}
	out := make([]domain.Message, len(f.messages[threadID]))
	copy(out, f.messages[threadID])
	return out, nil
}
