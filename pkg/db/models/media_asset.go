package models

import (
	"time"

	"github.com/markbang/cyop/pkg/enums"
)

// MediaAsset captures metadata for one uploaded object. The storage key is
// assigned once at creation, before any bytes exist, so the presigned upload
// URL can be computed ahead of the transfer.
type MediaAsset struct {
	ID            int64             `gorm:"column:id;primaryKey;autoIncrement"`
	DatasetID     int64             `gorm:"column:dataset_id;not null;index"`
	RequirementID int64             `gorm:"column:requirement_id;not null;index"`
	FileName      string            `gorm:"column:file_name;not null"`
	MimeType      string            `gorm:"column:mime_type;not null"`
	SizeBytes     int64             `gorm:"column:size_bytes;not null"`
	Bucket        string            `gorm:"column:bucket;not null"`
	StorageKey    string            `gorm:"column:storage_key;not null;unique"`
	PublicURL     *string           `gorm:"column:public_url"`
	Width         *int              `gorm:"column:width"`
	Height        *int              `gorm:"column:height"`
	Checksum      *string           `gorm:"column:checksum"`
	Status        enums.AssetStatus `gorm:"column:status;not null;default:'pending_upload'"`
	UploadedAt    *time.Time        `gorm:"column:uploaded_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
