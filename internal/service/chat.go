package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// SubmitFollowUp continues the user's thread with a raw message. It never creates
// a thread: a user without a session gets domain.ErrNoSession. A req.ThreadID
// must name the session thread.
func (s *Service) SubmitFollowUp(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	threadID, ok, err := s.sessions.Get(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("user %s: %w", req.UserID, domain.ErrNoSession)
	}
	if req.ThreadID != "" && req.ThreadID != threadID {
		return nil, domain.ErrThreadMismatch
	}

	res, err := s.RunCycle(ctx, CycleInput{
		Kind:     domain.CycleKindFollowUp,
		UserID:   req.UserID,
		ThreadID: threadID,
		Text:     req.UserMessage,
	})
	if err != nil {
		return nil, err
	}
	return &domain.ChatResponse{
		Response: res.Text,
		ThreadID: threadID,
		CycleID:  res.CycleID,
	}, nil
}
