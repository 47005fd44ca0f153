package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// StartThread creates a fresh thread. With a user id the thread replaces the
// user's current session.
func (s *Service) StartThread(ctx context.Context, req *domain.StartThreadRequest) (*domain.StartThreadResponse, error) {
	thread, err := s.client.CreateThread(ctx)
	if err != nil {
		s.metrics.ObserveUpstreamError("create_thread")
		return nil, wrapUpstream("create thread", err)
	}
	s.metrics.ObserveThreadCreated()

	if req != nil && req.UserID != "" {
		if err := s.sessions.Set(ctx, req.UserID, thread.ID); err != nil {
			return nil, fmt.Errorf("store session: %w", err)
		}
		s.logger.Info().Str("user_id", req.UserID).Str("thread_id", thread.ID).Msg("session replaced")
	}
	return &domain.StartThreadResponse{ThreadID: thread.ID}, nil
}

// GetSession returns the stored session of a user, or nil.
func (s *Service) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	return s.sessions.Session(ctx, userID)
}

// GetCycle returns a journaled cycle, or nil.
func (s *Service) GetCycle(ctx context.Context, cycleID string) (*domain.Cycle, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.GetCycle(ctx, cycleID)
}

// GetCycleEvents returns the events of a cycle ordered by time.
func (s *Service) GetCycleEvents(ctx context.Context, cycleID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.GetEvents(ctx, cycleID, afterTs, types, limit)
}
