package enums

import "fmt"

// AssetStatus describes the upload lifecycle of a media asset. The lifecycle
// is linear: pending_upload moves to uploaded (or failed) and never backward.
type AssetStatus string

const (
	AssetStatusPendingUpload AssetStatus = "pending_upload"
	AssetStatusUploaded      AssetStatus = "uploaded"
	AssetStatusFailed        AssetStatus = "failed"
)

var validAssetStatuses = []AssetStatus{
	AssetStatusPendingUpload,
	AssetStatusUploaded,
	AssetStatusFailed,
}

// String returns the literal string for the status.
func (s AssetStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s AssetStatus) IsValid() bool {
	for _, candidate := range validAssetStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAssetStatus converts raw input into an AssetStatus.
func ParseAssetStatus(value string) (AssetStatus, error) {
	for _, candidate := range validAssetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset status %q", value)
}
