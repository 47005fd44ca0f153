package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	cycles   map[string]domain.Cycle
	events   map[string][]domain.Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]domain.Session),
		cycles:   make(map[string]domain.Cycle),
		events:   make(map[string][]domain.Event),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// GetSession retrieves the session of a user.
func (s *MemoryStore) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// PutSession inserts or replaces the session of a user.
func (s *MemoryStore) PutSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.UserID] = *session
	return nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *MemoryStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].UserID < sessions[j].UserID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// CreateCycle records a new cycle.
func (s *MemoryStore) CreateCycle(ctx context.Context, cycle *domain.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cycles[cycle.CycleID]; exists {
		return fmt.Errorf("cycle %s already exists", cycle.CycleID)
	}
	s.cycles[cycle.CycleID] = *cycle
	return nil
}

// GetCycle retrieves a cycle by ID.
func (s *MemoryStore) GetCycle(ctx context.Context, cycleID string) (*domain.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cycle, ok := s.cycles[cycleID]
	if !ok {
		return nil, nil
	}
	return &cycle, nil
}

// UpdateCycleRun records the run driven by a cycle.
func (s *MemoryStore) UpdateCycleRun(ctx context.Context, cycleID, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycle, ok := s.cycles[cycleID]
	if !ok {
		return fmt.Errorf("cycle %s not found", cycleID)
	}
	cycle.RunID = runID
	s.cycles[cycleID] = cycle
	return nil
}

// UpdateCycleCompleted marks a cycle as finished.
func (s *MemoryStore) UpdateCycleCompleted(ctx context.Context, cycleID string, status domain.CycleStatus, errData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycle, ok := s.cycles[cycleID]
	if !ok {
		return fmt.Errorf("cycle %s not found", cycleID)
	}
	now := time.Now()
	cycle.Status = status
	cycle.EndedAt = &now
	if errData != nil {
		cycle.Error = append([]byte(nil), errData...)
	}
	s.cycles[cycleID] = cycle
	return nil
}

// CreateEvent appends an event to its cycle.
func (s *MemoryStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.CycleID] = append(s.events[event.CycleID], *event)
	return nil
}

// GetEvents retrieves events for a cycle in insertion order.
func (s *MemoryStore) GetEvents(ctx context.Context, cycleID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	var events []domain.Event
	for _, event := range s.events[cycleID] {
		if afterTs > 0 && event.Ts <= afterTs {
			continue
		}
		if len(wanted) > 0 && !wanted[string(event.Type)] {
			continue
		}
		events = append(events, event)
		if limit > 0 && len(events) >= limit {
			break
		}
	}
	return events, nil
}
