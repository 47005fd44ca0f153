package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cycles (
			cycle_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			user_id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			run_id TEXT,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_thread ON cycles(thread_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			cycle_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (cycle_id) REFERENCES cycles(cycle_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_cycle ON events(cycle_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetSession retrieves the session of a user.
func (s *SQLiteStore) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, thread_id, created_at FROM sessions WHERE user_id = ?`,
		userID).Scan(&session.UserID, &session.ThreadID, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// PutSession inserts or replaces the session of a user.
func (s *SQLiteStore) PutSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, thread_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET thread_id = excluded.thread_id, created_at = excluded.created_at`,
		session.UserID, session.ThreadID, session.CreatedAt)
	return err
}

// ListSessions returns all sessions ordered by creation time.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, thread_id, created_at FROM sessions ORDER BY created_at ASC, user_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(&session.UserID, &session.ThreadID, &session.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// CreateCycle records a new cycle.
func (s *SQLiteStore) CreateCycle(ctx context.Context, cycle *domain.Cycle) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles (cycle_id, kind, user_id, thread_id, run_id, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cycle.CycleID, cycle.Kind, cycle.UserID, cycle.ThreadID, cycle.RunID, cycle.Status, cycle.StartedAt)
	return err
}

// GetCycle retrieves a cycle by ID.
func (s *SQLiteStore) GetCycle(ctx context.Context, cycleID string) (*domain.Cycle, error) {
	var cycle domain.Cycle
	var runID, errData sql.NullString
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT cycle_id, kind, user_id, thread_id, run_id, status, started_at, ended_at, error FROM cycles WHERE cycle_id = ?`,
		cycleID).Scan(&cycle.CycleID, &cycle.Kind, &cycle.UserID, &cycle.ThreadID, &runID, &cycle.Status, &cycle.StartedAt, &endedAt, &errData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if runID.Valid {
		cycle.RunID = runID.String
	}
	if endedAt.Valid {
		cycle.EndedAt = &endedAt.Time
	}
	if errData.Valid {
		cycle.Error = json.RawMessage(errData.String)
	}
	return &cycle, nil
}

// UpdateCycleRun records the run driven by a cycle.
func (s *SQLiteStore) UpdateCycleRun(ctx context.Context, cycleID, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE cycles SET run_id = ? WHERE cycle_id = ?`, runID, cycleID)
	return err
}

// UpdateCycleCompleted marks a cycle as finished.
func (s *SQLiteStore) UpdateCycleCompleted(ctx context.Context, cycleID string, status domain.CycleStatus, errData []byte) error {
	now := time.Now()
	var errStr sql.NullString
	if errData != nil {
		errStr = sql.NullString{String: string(errData), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE cycles SET status = ?, ended_at = ?, error = ? WHERE cycle_id = ?`,
		status, now, errStr, cycleID)
	return err
}

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	var payload sql.NullString
	if event.Payload != nil {
		payload = sql.NullString{String: string(event.Payload), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, cycle_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.CycleID, event.Ts, event.Type, payload)
	return err
}

// GetEvents retrieves events for a cycle.
func (s *SQLiteStore) GetEvents(ctx context.Context, cycleID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, cycle_id, ts, type, payload FROM events WHERE cycle_id = ?`
	args := []interface{}{cycleID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, seq ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.CycleID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
