package enums

import "fmt"

// TaskStatus tracks an automation task through its run lifecycle.
type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusBlocked   TaskStatus = "blocked"
)

var validTaskStatuses = []TaskStatus{
	TaskStatusQueued,
	TaskStatusRunning,
	TaskStatusPaused,
	TaskStatusSucceeded,
	TaskStatusFailed,
	TaskStatusBlocked,
}

// IsTerminal reports whether the status ends a task run. completedAt is set
// if and only if the status is terminal.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// String returns the literal string for the status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s TaskStatus) IsValid() bool {
	for _, candidate := range validTaskStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTaskStatus converts raw input into a TaskStatus.
func ParseTaskStatus(value string) (TaskStatus, error) {
	for _, candidate := range validTaskStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task status %q", value)
}
