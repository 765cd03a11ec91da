package models

import (
	"time"

	"github.com/markbang/cyop/pkg/enums"
)

// Caption is an AI-or-human-authored description of one media asset.
// FinalCaption is the text used for export; display priority everywhere is
// final, then manual, then AI.
type Caption struct {
	ID               int64               `gorm:"column:id;primaryKey;autoIncrement"`
	MediaAssetID     int64               `gorm:"column:media_asset_id;not null;index"`
	PromptTemplateID *int64              `gorm:"column:prompt_template_id"`
	AICaption        *string             `gorm:"column:ai_caption"`
	ManualCaption    *string             `gorm:"column:manual_caption"`
	FinalCaption     *string             `gorm:"column:final_caption"`
	Status           enums.CaptionStatus `gorm:"column:status;not null;default:'pending'"`
	Model            *string             `gorm:"column:model"`
	Confidence       *int                `gorm:"column:confidence"`
	TokensUsed       *int                `gorm:"column:tokens_used"`
	RejectionReason  *string             `gorm:"column:rejection_reason"`
	ApprovedBy       *string             `gorm:"column:approved_by"`
	GeneratedAt      *time.Time          `gorm:"column:generated_at"`
	ApprovedAt       *time.Time          `gorm:"column:approved_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BestText returns the caption text used for exports and display.
func (c Caption) BestText() string {
	if c.FinalCaption != nil && *c.FinalCaption != "" {
		return *c.FinalCaption
	}
	if c.ManualCaption != nil && *c.ManualCaption != "" {
		return *c.ManualCaption
	}
	if c.AICaption != nil && *c.AICaption != "" {
		return *c.AICaption
	}
	return ""
}
