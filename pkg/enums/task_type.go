package enums

import "fmt"

// TaskType is the kind of bulk work an automation task performs.
type TaskType string

const (
	TaskTypeCaption      TaskType = "caption"
	TaskTypeTag          TaskType = "tag"
	TaskTypeQA           TaskType = "qa"
	TaskTypeIngest       TaskType = "ingest"
	TaskTypeDistribution TaskType = "distribution"
)

var validTaskTypes = []TaskType{
	TaskTypeCaption,
	TaskTypeTag,
	TaskTypeQA,
	TaskTypeIngest,
	TaskTypeDistribution,
}

// String returns the literal string for the type.
func (t TaskType) String() string {
	return string(t)
}

// IsValid reports whether the type is known.
func (t TaskType) IsValid() bool {
	for _, candidate := range validTaskTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTaskType converts raw input into a TaskType.
func ParseTaskType(value string) (TaskType, error) {
	for _, candidate := range validTaskTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task type %q", value)
}
