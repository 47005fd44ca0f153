// Package session maps application users to remote threads.
package session

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xiaot623/gogo/insights/internal/domain"
	store "github.com/xiaot623/gogo/insights/internal/repository"
)

// ThreadCreator creates remote threads.
type ThreadCreator interface {
	CreateThread(ctx context.Context) (*domain.Thread, error)
}

// Registry is the process-wide user to thread mapping.
//
// Entries are never evicted. Concurrent first-time lookups for one user share a
// single CreateThread call.
type Registry struct {
	store   store.SessionStore
	creator ThreadCreator
	group   singleflight.Group
	now     func() time.Time

	// OnCreate, when set, is called once for every thread made by GetOrCreate.
	OnCreate func(userID, threadID string)
}

// NewRegistry creates a registry over the given store.
func NewRegistry(s store.SessionStore, creator ThreadCreator) *Registry {
	return &Registry{
		store:   s,
		creator: creator,
		now:     time.Now,
	}
}

// Get returns the thread of a user without creating one.
func (r *Registry) Get(ctx context.Context, userID string) (string, bool, error) {
	session, err := r.store.GetSession(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return "", false, nil
	}
	return session.ThreadID, true, nil
}

// GetOrCreate returns the thread of a user, creating and storing one on first use.
// created reports whether a new thread was made for this lookup; callers that
// joined a concurrent creation also see true. Thread creation failures wrap
// domain.ErrUpstream.
//
// The creation outlives the caller that started it, so a cancelled caller does
// not fail the others waiting on the same user.
func (r *Registry) GetOrCreate(ctx context.Context, userID string) (threadID string, created bool, err error) {
	if threadID, ok, err := r.Get(ctx, userID); err != nil || ok {
		return threadID, false, err
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(userID, func() (interface{}, error) {
		// Another flight may have stored the mapping between our miss and now.
		if threadID, ok, err := r.Get(flightCtx, userID); err != nil || ok {
			return createResult{threadID: threadID}, err
		}

		thread, err := r.creator.CreateThread(flightCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: create thread: %w", domain.ErrUpstream, err)
		}
		if err := r.Set(flightCtx, userID, thread.ID); err != nil {
			return nil, err
		}
		if r.OnCreate != nil {
			r.OnCreate(userID, thread.ID)
		}
		return createResult{threadID: thread.ID, created: true}, nil
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		v := res.Val.(createResult)
		return v.threadID, v.created, nil
	}
}

type createResult struct {
	threadID string
	created  bool
}

// Set binds a user to a thread, replacing any previous binding.
func (r *Registry) Set(ctx context.Context, userID, threadID string) error {
	err := r.store.PutSession(ctx, &domain.Session{
		UserID:    userID,
		ThreadID:  threadID,
		CreatedAt: r.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// List returns all known sessions.
func (r *Registry) List(ctx context.Context) ([]domain.Session, error) {
	sessions, err := r.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Session returns the stored session of a user, or nil.
func (r *Registry) Session(ctx context.Context, userID string) (*domain.Session, error) {
	session, err := r.store.GetSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}
