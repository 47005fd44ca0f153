// Package domain defines the core domain models for the insights service.
package domain

// RunStatus is the status of a remote run as reported by the assistants API.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusIncomplete     RunStatus = "incomplete"
	RunStatusExpired        RunStatus = "expired"
)

// IsTerminal reports whether the run will not change status any more.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	}
	return false
}

// IsSuccess reports whether the run finished and produced its output.
func (s RunStatus) IsSuccess() bool {
	return s == RunStatusCompleted
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// CycleStatus represents the status of a locally journaled request/response cycle.
type CycleStatus string

const (
	CycleStatusRunning CycleStatus = "RUNNING"
	CycleStatusDone    CycleStatus = "DONE"
	CycleStatusFailed  CycleStatus = "FAILED"
	CycleStatusTimeout CycleStatus = "TIMEOUT"
)

// IsTerminal reports whether the cycle has finished.
func (s CycleStatus) IsTerminal() bool {
	return s == CycleStatusDone || s == CycleStatusFailed || s == CycleStatusTimeout
}

// CycleKind tells which operation started a cycle.
type CycleKind string

const (
	CycleKindAnalysis CycleKind = "analysis"
	CycleKindFollowUp CycleKind = "follow_up"
)

// EventType represents the type of a journal event.
type EventType string

const (
	EventTypeCycleStarted    EventType = "cycle_started"
	EventTypeRunAwaited      EventType = "run_awaited"
	EventTypeMessageAppended EventType = "message_appended"
	EventTypeRunStarted      EventType = "run_started"
	EventTypeRunAdopted      EventType = "run_adopted"
	EventTypeRunStatus       EventType = "run_status"
	EventTypeCycleDone       EventType = "cycle_done"
	EventTypeCycleFailed     EventType = "cycle_failed"
)
