package uploads

import (
	"context"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
)

// Repository exposes media asset persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an uploads repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateAsset persists a media asset record.
func (r *Repository) CreateAsset(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error) {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

// FindAsset retrieves a media asset by primary key.
func (r *Repository) FindAsset(ctx context.Context, id int64) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	if err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// SaveAsset writes the full asset row back.
func (r *Repository) SaveAsset(ctx context.Context, asset *models.MediaAsset) error {
	return r.db.WithContext(ctx).Save(asset).Error
}

// DeleteAsset removes an asset row permanently.
func (r *Repository) DeleteAsset(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MediaAsset{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListAssetsByDataset returns the dataset's assets, oldest first.
func (r *Repository) ListAssetsByDataset(ctx context.Context, datasetID int64) ([]models.MediaAsset, error) {
	var assets []models.MediaAsset
	err := r.db.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		Order("id ASC").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// FindDataset retrieves the dataset row so the owning requirement can be
// resolved at upload time.
func (r *Repository) FindDataset(ctx context.Context, id int64) (*models.Dataset, error) {
	var d models.Dataset
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}
