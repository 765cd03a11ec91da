package models

import (
	"time"

	dbtypes "github.com/markbang/cyop/pkg/db/types"
	"github.com/markbang/cyop/pkg/enums"
)

// AutomationTask tracks one unit of bulk work against a dataset.
// CompletedAt is set exactly when the status is terminal; re-queueing clears
// CompletedAt but leaves StartedAt untouched.
type AutomationTask struct {
	ID            int64            `gorm:"column:id;primaryKey;autoIncrement"`
	DatasetID     int64            `gorm:"column:dataset_id;not null;index"`
	Type          enums.TaskType   `gorm:"column:type;not null"`
	Status        enums.TaskStatus `gorm:"column:status;not null;default:'queued'"`
	Progress      int              `gorm:"column:progress;not null;default:0"`
	AssignedTo    *string          `gorm:"column:assigned_to"`
	Metadata      dbtypes.JSONMap  `gorm:"column:metadata"`
	FailureReason *string          `gorm:"column:failure_reason"`
	StartedAt     *time.Time       `gorm:"column:started_at"`
	CompletedAt   *time.Time       `gorm:"column:completed_at"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
