// Package assistants provides clients for the remote thread/run conversation API.
package assistants

import (
	"context"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// AssistantsClient defines the remote conversation operations the service consumes.
type AssistantsClient interface {
	// CreateThread creates an empty conversation.
	CreateThread(ctx context.Context) (*domain.Thread, error)

	// AddMessage appends a message to a thread. It is not safe to repeat.
	AddMessage(ctx context.Context, threadID string, role domain.Role, text string) (*domain.Message, error)

	// CreateRun starts a run of the assistant on a thread. It is not safe to repeat.
	// A thread that already has an active run yields domain.ErrRunConflict.
	CreateRun(ctx context.Context, threadID, assistantID string) (*domain.Run, error)

	// GetRun retrieves the current state of a run.
	GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error)

	// ListRuns returns the most recent runs of a thread, newest first.
	ListRuns(ctx context.Context, threadID string, limit int) ([]domain.Run, error)

	// CancelRun asks the service to stop a run.
	CancelRun(ctx context.Context, threadID, runID string) (*domain.Run, error)

	// ListMessages returns every message of a thread in creation order.
	ListMessages(ctx context.Context, threadID string) ([]domain.Message, error)
}

// Ensure Client implements AssistantsClient interface.
var _ AssistantsClient = (*Client)(nil)
