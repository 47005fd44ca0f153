package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// activeRunScan is how many recent runs are inspected for a live one.
const activeRunScan = 20

// cancelTimeout bounds the best-effort cancel of an abandoned run.
const cancelTimeout = 10 * time.Second

// CycleInput is one question asked on a thread.
type CycleInput struct {
	Kind     domain.CycleKind
	UserID   string
	ThreadID string
	Text     string
}

// CycleResult is the answer of a finished cycle.
type CycleResult struct {
	CycleID           string
	ThreadID          string
	RunID             string
	Text              string
	NoResponse        bool
	AssistantMessages int
}

// RunCycle appends in.Text to the thread, runs the assistant and returns the
// assistant text of the thread. At most one cycle per thread runs at a time.
func (s *Service) RunCycle(ctx context.Context, in CycleInput) (*CycleResult, error) {
	if in.ThreadID == "" {
		return nil, &domain.ValidationError{Field: "threadId"}
	}
	if in.Kind == "" {
		in.Kind = domain.CycleKindAnalysis
	}

	unlock, err := s.locks.Lock(ctx, in.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("wait for thread %s: %w", in.ThreadID, err)
	}
	defer unlock()

	started := s.clock.Now()
	cycleID := s.startCycle(ctx, in)

	res, err := s.runCycle(ctx, cycleID, in)
	s.finishCycle(ctx, cycleID, in, started, res, err)
	if err != nil {
		return nil, err
	}
	res.CycleID = cycleID
	return res, nil
}

func (s *Service) runCycle(ctx context.Context, cycleID string, in CycleInput) (*CycleResult, error) {
	if err := s.awaitActiveRuns(ctx, cycleID, in.ThreadID); err != nil {
		return nil, err
	}

	if err := s.appendMessage(ctx, cycleID, in.ThreadID, in.Text); err != nil {
		return nil, err
	}

	run, err := s.startRun(ctx, cycleID, in.ThreadID)
	if err != nil {
		return nil, err
	}
	s.setCycleRun(ctx, cycleID, run.ID)

	final, err := s.waitForRun(ctx, cycleID, in.ThreadID, run.ID)
	if err != nil {
		return nil, err
	}
	if !final.Status.IsSuccess() {
		return nil, runFailure(final)
	}

	messages, err := s.client.ListMessages(ctx, in.ThreadID)
	if err != nil {
		s.metrics.ObserveUpstreamError("list_messages")
		return nil, wrapUpstream("list messages", err)
	}

	res := &CycleResult{
		ThreadID: in.ThreadID,
		RunID:    run.ID,
		Text:     domain.AssistantText(messages),
	}
	for _, msg := range messages {
		if msg.Role == domain.RoleAssistant {
			res.AssistantMessages++
		}
	}
	res.NoResponse = res.AssistantMessages == 0
	return res, nil
}

// awaitActiveRuns blocks until no run on the thread is live.
func (s *Service) awaitActiveRuns(ctx context.Context, cycleID, threadID string) error {
	runs, err := s.client.ListRuns(ctx, threadID, activeRunScan)
	if err != nil {
		s.metrics.ObserveUpstreamError("list_runs")
		return wrapUpstream("list runs", err)
	}
	for _, run := range runs {
		if run.Status.IsTerminal() {
			continue
		}
		s.metrics.ObserveRunAwaited()
		s.recordEvent(ctx, cycleID, domain.EventTypeRunAwaited, domain.RunAwaitedPayload{
			RunID:  run.ID,
			Status: run.Status,
		})
		s.logger.Debug().Str("thread_id", threadID).Str("run_id", run.ID).Str("status", string(run.Status)).Msg("waiting for active run")
		if _, err := s.waitForRun(ctx, cycleID, threadID, run.ID); err != nil {
			return err
		}
	}
	return nil
}

// appendMessage adds the user message. A conflict means a run went live after the
// guard; nothing was appended, so the add is retried once after waiting.
func (s *Service) appendMessage(ctx context.Context, cycleID, threadID, text string) error {
	msg, err := s.client.AddMessage(ctx, threadID, domain.RoleUser, text)
	if errors.Is(err, domain.ErrRunConflict) {
		s.metrics.ObserveRunConflict()
		if err := s.awaitActiveRuns(ctx, cycleID, threadID); err != nil {
			return err
		}
		msg, err = s.client.AddMessage(ctx, threadID, domain.RoleUser, text)
	}
	if err != nil {
		s.metrics.ObserveUpstreamError("add_message")
		return wrapUpstream("add message", err)
	}
	s.recordEvent(ctx, cycleID, domain.EventTypeMessageAppended, domain.MessageAppendedPayload{
		MessageID: msg.ID,
		Length:    len(text),
	})
	return nil
}

// startRun starts a run. On a conflict the live run is adopted: the API refuses
// messages while a run is active, so that run started after our message and
// will answer it.
func (s *Service) startRun(ctx context.Context, cycleID, threadID string) (*domain.Run, error) {
	run, err := s.client.CreateRun(ctx, threadID, s.assistantID)
	if err == nil {
		s.recordEvent(ctx, cycleID, domain.EventTypeRunStarted, domain.RunStartedPayload{
			RunID:       run.ID,
			AssistantID: s.assistantID,
		})
		return run, nil
	}
	if !errors.Is(err, domain.ErrRunConflict) {
		s.metrics.ObserveUpstreamError("create_run")
		return nil, wrapUpstream("create run", err)
	}

	s.metrics.ObserveRunConflict()
	active, err := s.findActiveRun(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		s.logger.Info().Str("thread_id", threadID).Str("run_id", active.ID).Msg("adopting active run")
		s.recordEvent(ctx, cycleID, domain.EventTypeRunAdopted, domain.RunStartedPayload{
			RunID:       active.ID,
			AssistantID: active.AssistantID,
		})
		return active, nil
	}

	// The conflicting run finished before it could be found.
	run, err = s.client.CreateRun(ctx, threadID, s.assistantID)
	if err != nil {
		s.metrics.ObserveUpstreamError("create_run")
		return nil, wrapUpstream("create run", err)
	}
	s.recordEvent(ctx, cycleID, domain.EventTypeRunStarted, domain.RunStartedPayload{
		RunID:       run.ID,
		AssistantID: s.assistantID,
	})
	return run, nil
}

func (s *Service) findActiveRun(ctx context.Context, threadID string) (*domain.Run, error) {
	runs, err := s.client.ListRuns(ctx, threadID, activeRunScan)
	if err != nil {
		s.metrics.ObserveUpstreamError("list_runs")
		return nil, wrapUpstream("list runs", err)
	}
	for i := range runs {
		if !runs[i].Status.IsTerminal() {
			return &runs[i], nil
		}
	}
	return nil, nil
}

// waitForRun polls a run until it is terminal. A run that asks for tool outputs
// is cancelled, since no tools are offered. A run abandoned on timeout is
// cancelled on a best-effort basis.
func (s *Service) waitForRun(ctx context.Context, cycleID, threadID, runID string) (*domain.Run, error) {
	var last *domain.Run
	cancelRequested := false

	err := s.poll.Wait(ctx, s.clock, func(ctx context.Context, attempt int) (bool, error) {
		run, err := s.client.GetRun(ctx, threadID, runID)
		if err != nil {
			s.metrics.ObserveUpstreamError("get_run")
			return false, wrapUpstream("get run", err)
		}
		s.metrics.ObservePoll()

		if last == nil || last.Status != run.Status {
			s.recordEvent(ctx, cycleID, domain.EventTypeRunStatus, domain.RunStatusPayload{
				RunID:   run.ID,
				Status:  run.Status,
				Attempt: attempt,
			})
		}
		last = run

		if run.Status == domain.RunStatusRequiresAction && !cancelRequested {
			cancelRequested = true
			s.logger.Warn().Str("thread_id", threadID).Str("run_id", runID).Msg("run requires action, cancelling")
			if _, err := s.client.CancelRun(ctx, threadID, runID); err != nil {
				s.metrics.ObserveUpstreamError("cancel_run")
				return false, wrapUpstream("cancel run", err)
			}
		}
		return run.Status.IsTerminal(), nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRunTimeout) {
			s.cancelAbandoned(ctx, threadID, runID)
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		return nil, err
	}

	if cancelRequested && last.LastError == nil {
		last.LastError = &domain.RunError{
			Code:    string(domain.RunStatusRequiresAction),
			Message: "run requested tool outputs, which are not supported",
		}
	}
	return last, nil
}

func (s *Service) cancelAbandoned(ctx context.Context, threadID, runID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if _, err := s.client.CancelRun(ctx, threadID, runID); err != nil {
		s.logger.Warn().Err(err).Str("thread_id", threadID).Str("run_id", runID).Msg("failed to cancel abandoned run")
	}
}

func runFailure(run *domain.Run) error {
	return &domain.RunFailedError{
		RunID:     run.ID,
		Status:    run.Status,
		LastError: run.LastError,
	}
}
