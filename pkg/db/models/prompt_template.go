package models

import "time"

// PromptTemplate is a reusable captioning instruction set. Temperature is
// stored as an integer 0-100 and divided by 100 before reaching the model.
// At most one template is flagged default at a time.
type PromptTemplate struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string    `gorm:"column:name;not null"`
	SystemPrompt string    `gorm:"column:system_prompt;not null"`
	UserPrompt   string    `gorm:"column:user_prompt;not null"`
	Model        string    `gorm:"column:model;not null"`
	MaxTokens    int       `gorm:"column:max_tokens;not null;default:500"`
	Temperature  int       `gorm:"column:temperature;not null;default:70"`
	IsDefault    bool      `gorm:"column:is_default;not null;default:false"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
