// Package store defines the storage interfaces and implementations.
package store

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// SessionStore persists the user to thread mapping.
type SessionStore interface {
	// GetSession returns the session of a user, or nil when there is none.
	GetSession(ctx context.Context, userID string) (*domain.Session, error)
	// PutSession inserts or replaces the session of a user.
	PutSession(ctx context.Context, session *domain.Session) error
	// ListSessions returns all sessions ordered by creation time.
	ListSessions(ctx context.Context) ([]domain.Session, error)
}

// JournalStore persists cycles and their events.
type JournalStore interface {
	// Cycle operations
	CreateCycle(ctx context.Context, cycle *domain.Cycle) error
	GetCycle(ctx context.Context, cycleID string) (*domain.Cycle, error)
	UpdateCycleRun(ctx context.Context, cycleID, runID string) error
	UpdateCycleCompleted(ctx context.Context, cycleID string, status domain.CycleStatus, errData []byte) error

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, cycleID string, afterTs int64, types []string, limit int) ([]domain.Event, error)
}

// Store defines the interface for data persistence.
type Store interface {
	SessionStore
	JournalStore

	// Lifecycle
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open creates the store selected by driver.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, "sqlite3":
		return NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
