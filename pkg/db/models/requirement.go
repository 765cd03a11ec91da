package models

import "time"

// Requirement is the business ask that justifies a dataset's existence.
type Requirement struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Title       string    `gorm:"column:title;not null"`
	Description *string   `gorm:"column:description"`
	Status      string    `gorm:"column:status;not null;default:'open'"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
