package datasets

import (
	"context"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
	"github.com/markbang/cyop/pkg/enums"
)

// Repository exposes requirement and dataset persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a datasets repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Metrics summarizes a dataset's asset and caption counts.
type Metrics struct {
	DatasetID        int64 `json:"dataset_id"`
	AssetCount       int64 `json:"asset_count"`
	CaptionedCount   int64 `json:"captioned_count"`
	ApprovedCount    int64 `json:"approved_count"`
	PendingQueue     int64 `json:"pending_queue"`
	RejectedCount    int64 `json:"rejected_count"`
	UncaptionedCount int64 `json:"uncaptioned_count"`
}

// CreateRequirement persists a requirement.
func (r *Repository) CreateRequirement(ctx context.Context, req *models.Requirement) (*models.Requirement, error) {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// FindRequirement retrieves a requirement by primary key.
func (r *Repository) FindRequirement(ctx context.Context, id int64) (*models.Requirement, error) {
	var req models.Requirement
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ListRequirements returns all requirements, newest first.
func (r *Repository) ListRequirements(ctx context.Context) ([]models.Requirement, error) {
	var out []models.Requirement
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDataset persists a dataset.
func (r *Repository) CreateDataset(ctx context.Context, dataset *models.Dataset) (*models.Dataset, error) {
	if err := r.db.WithContext(ctx).Create(dataset).Error; err != nil {
		return nil, err
	}
	return dataset, nil
}

// FindDataset retrieves a dataset by primary key.
func (r *Repository) FindDataset(ctx context.Context, id int64) (*models.Dataset, error) {
	var d models.Dataset
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDatasetsByRequirement returns the requirement's datasets, newest first.
func (r *Repository) ListDatasetsByRequirement(ctx context.Context, requirementID int64) ([]models.Dataset, error) {
	var out []models.Dataset
	err := r.db.WithContext(ctx).
		Where("requirement_id = ?", requirementID).
		Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeMetrics counts the dataset's assets and captions by review outcome.
func (r *Repository) ComputeMetrics(ctx context.Context, datasetID int64) (*Metrics, error) {
	m := &Metrics{DatasetID: datasetID}

	if err := r.db.WithContext(ctx).Model(&models.MediaAsset{}).
		Where("dataset_id = ?", datasetID).
		Count(&m.AssetCount).Error; err != nil {
		return nil, err
	}

	captionQuery := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Caption{}).
			Joins("JOIN media_assets ON media_assets.id = captions.media_asset_id").
			Where("media_assets.dataset_id = ?", datasetID)
	}

	if err := captionQuery().Count(&m.CaptionedCount).Error; err != nil {
		return nil, err
	}
	if err := captionQuery().Where("captions.status = ?", enums.CaptionStatusApproved).Count(&m.ApprovedCount).Error; err != nil {
		return nil, err
	}
	if err := captionQuery().Where("captions.status IN ?", []enums.CaptionStatus{enums.CaptionStatusPending, enums.CaptionStatusProcessing}).Count(&m.PendingQueue).Error; err != nil {
		return nil, err
	}
	if err := captionQuery().Where("captions.status = ?", enums.CaptionStatusRejected).Count(&m.RejectedCount).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&models.MediaAsset{}).
		Where("dataset_id = ?", datasetID).
		Where("NOT EXISTS (SELECT 1 FROM captions WHERE captions.media_asset_id = media_assets.id)").
		Count(&m.UncaptionedCount).Error; err != nil {
		return nil, err
	}

	return m, nil
}
