package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/insights/internal/adapter/assistants"
	"github.com/xiaot623/gogo/insights/internal/domain"
)

// recordEvent records an event to the journal. Failures are logged only.
func (s *Service) recordEvent(ctx context.Context, cycleID string, eventType domain.EventType, payload interface{}) {
	if s.journal == nil {
		return
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("cycle_id", cycleID).Msg("failed to marshal event payload")
		return
	}

	event := &domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		CycleID: cycleID,
		Ts:      s.clock.Now().UnixMilli(),
		Type:    eventType,
		Payload: payloadBytes,
	}
	if err := s.journal.CreateEvent(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("cycle_id", cycleID).Str("type", string(eventType)).Msg("failed to record event")
	}
}

func (s *Service) startCycle(ctx context.Context, in CycleInput) string {
	cycleID := "cyc_" + uuid.New().String()[:8]
	if s.journal != nil {
		cycle := &domain.Cycle{
			CycleID:   cycleID,
			Kind:      in.Kind,
			UserID:    in.UserID,
			ThreadID:  in.ThreadID,
			Status:    domain.CycleStatusRunning,
			StartedAt: s.clock.Now(),
		}
		if err := s.journal.CreateCycle(ctx, cycle); err != nil {
			s.logger.Warn().Err(err).Str("cycle_id", cycleID).Msg("failed to create cycle")
		}
	}
	s.recordEvent(ctx, cycleID, domain.EventTypeCycleStarted, domain.CycleStartedPayload{
		Kind:     in.Kind,
		UserID:   in.UserID,
		ThreadID: in.ThreadID,
	})
	return cycleID
}

func (s *Service) setCycleRun(ctx context.Context, cycleID, runID string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.UpdateCycleRun(ctx, cycleID, runID); err != nil {
		s.logger.Warn().Err(err).Str("cycle_id", cycleID).Msg("failed to update cycle run")
	}
}

func (s *Service) finishCycle(ctx context.Context, cycleID string, in CycleInput, started time.Time, res *CycleResult, cycleErr error) {
	// The request context may be gone; the journal still gets the outcome.
	ctx = context.WithoutCancel(ctx)
	elapsed := s.clock.Now().Sub(started)

	status := domain.CycleStatusDone
	var errData []byte
	if cycleErr != nil {
		status = domain.CycleStatusFailed
		if errors.Is(cycleErr, domain.ErrRunTimeout) {
			status = domain.CycleStatusTimeout
		}
		payload := domain.CycleFailedPayload{Code: ErrorCode(cycleErr), Message: cycleErr.Error()}
		errData, _ = json.Marshal(payload)
		s.recordEvent(ctx, cycleID, domain.EventTypeCycleFailed, payload)
		s.logger.Error().Err(cycleErr).
			Str("cycle_id", cycleID).
			Str("user_id", in.UserID).
			Str("thread_id", in.ThreadID).
			Str("code", payload.Code).
			Msg("cycle failed")
	} else {
		s.recordEvent(ctx, cycleID, domain.EventTypeCycleDone, domain.CycleDonePayload{
			RunID:      res.RunID,
			Messages:   res.AssistantMessages,
			ResponseSz: len(res.Text),
			NoResponse: res.NoResponse,
		})
		s.logger.Info().
			Str("cycle_id", cycleID).
			Str("thread_id", in.ThreadID).
			Str("run_id", res.RunID).
			Dur("elapsed", elapsed).
			Msg("cycle done")
	}

	if s.journal != nil {
		if err := s.journal.UpdateCycleCompleted(ctx, cycleID, status, errData); err != nil {
			s.logger.Warn().Err(err).Str("cycle_id", cycleID).Msg("failed to complete cycle")
		}
	}
	s.metrics.ObserveCycle(string(in.Kind), string(status), elapsed)
}

// ErrorCode classifies an error for responses and the journal.
func ErrorCode(err error) string {
	var runErr *domain.RunFailedError
	var validationErr *domain.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrThreadMismatch):
		return "thread_mismatch"
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.Is(err, domain.ErrNoSession):
		return "no_session"
	case errors.Is(err, domain.ErrRunTimeout):
		return "run_timeout"
	case errors.As(err, &runErr):
		return runErr.Code()
	case errors.Is(err, domain.ErrRunConflict):
		return "run_conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, domain.ErrUpstream):
		return "upstream_error"
	}
	if _, ok := assistants.IsAPIError(err); ok {
		return "upstream_error"
	}
	return "internal_error"
}

// ErrorDetails returns the upstream diagnostic payload carried by err, if any.
func ErrorDetails(err error) interface{} {
	if apiErr, ok := assistants.IsAPIError(err); ok {
		return apiErr.Details()
	}
	var runErr *domain.RunFailedError
	if errors.As(err, &runErr) {
		return map[string]interface{}{
			"run_id":     runErr.RunID,
			"status":     runErr.Status,
			"last_error": runErr.LastError,
		}
	}
	if err != nil {
		return err.Error()
	}
	return nil
}

func wrapUpstream(op string, err error) error {
	if errors.Is(err, domain.ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrUpstream, op, err)
}
