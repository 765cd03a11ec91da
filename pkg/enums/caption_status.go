package enums

import "fmt"

// CaptionStatus is the review state of a caption record. Transitions are
// governed by the captions service; approved and rejected are stable at rest
// but re-enterable through regenerate.
type CaptionStatus string

const (
	CaptionStatusPending    CaptionStatus = "pending"
	CaptionStatusProcessing CaptionStatus = "processing"
	CaptionStatusCompleted  CaptionStatus = "completed"
	CaptionStatusApproved   CaptionStatus = "approved"
	CaptionStatusRejected   CaptionStatus = "rejected"
)

var validCaptionStatuses = []CaptionStatus{
	CaptionStatusPending,
	CaptionStatusProcessing,
	CaptionStatusCompleted,
	CaptionStatusApproved,
	CaptionStatusRejected,
}

// String returns the literal string for the status.
func (s CaptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s CaptionStatus) IsValid() bool {
	for _, candidate := range validCaptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCaptionStatus converts raw input into a CaptionStatus.
func ParseCaptionStatus(value string) (CaptionStatus, error) {
	for _, candidate := range validCaptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid caption status %q", value)
}
