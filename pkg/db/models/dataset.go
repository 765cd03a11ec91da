package models

import "time"

// Dataset is a named collection of media assets tied to one requirement.
type Dataset struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RequirementID int64     `gorm:"column:requirement_id;not null;index"`
	Name          string    `gorm:"column:name;not null"`
	Description   *string   `gorm:"column:description"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
