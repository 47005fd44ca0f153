package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// AnalysisPromptPrefix introduces the campaign data sent to the assistant.
const AnalysisPromptPrefix = "Analyze this PPC campaign data and provide insights: "

// BuildAnalysisPrompt embeds the campaign data as compact JSON.
func BuildAnalysisPrompt(req *domain.AnalyzeRequest) (string, error) {
	data := struct {
		Summary   json.RawMessage `json:"summary"`
		Campaigns json.RawMessage `json:"campaigns,omitempty"`
	}{
		Summary:   req.Summary,
		Campaigns: req.Campaigns,
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode campaign data: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("encode campaign data: %w", err)
	}
	return AnalysisPromptPrefix + buf.String(), nil
}

// SubmitAnalysis resolves or creates the user's thread and runs one cycle with
// the analysis prompt.
func (s *Service) SubmitAnalysis(ctx context.Context, req *domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	prompt, err := BuildAnalysisPrompt(req)
	if err != nil {
		return nil, err
	}

	threadID, created, err := s.sessions.GetOrCreate(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUpstream) {
			s.metrics.ObserveUpstreamError("create_thread")
			return nil, err
		}
		return nil, fmt.Errorf("resolve thread: %w", err)
	}
	if created {
		s.logger.Info().Str("user_id", req.UserID).Str("thread_id", threadID).Msg("thread created")
	}

	res, err := s.RunCycle(ctx, CycleInput{
		Kind:     domain.CycleKindAnalysis,
		UserID:   req.UserID,
		ThreadID: threadID,
		Text:     prompt,
	})
	if err != nil {
		return nil, err
	}
	return &domain.AnalyzeResponse{
		Insights: res.Text,
		ThreadID: threadID,
		CycleID:  res.CycleID,
	}, nil
}
