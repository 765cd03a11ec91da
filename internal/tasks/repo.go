package tasks

import (
	"context"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
)

// Repository exposes automation task persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a task repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists an automation task.
func (r *Repository) Create(ctx context.Context, task *models.AutomationTask) (*models.AutomationTask, error) {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// FindByID retrieves a task by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.AutomationTask, error) {
	var task models.AutomationTask
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Save writes the full task row back. Select("*") forces cleared timestamp
// pointers through to the database instead of being skipped as zero values.
func (r *Repository) Save(ctx context.Context, task *models.AutomationTask) error {
	return r.db.WithContext(ctx).Select("*").Save(task).Error
}

// Delete removes a task row permanently.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AutomationTask{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByDataset returns the dataset's tasks, newest first.
func (r *Repository) ListByDataset(ctx context.Context, datasetID int64) ([]models.AutomationTask, error) {
	var out []models.AutomationTask
	err := r.db.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindDataset retrieves the dataset row to validate task targets.
func (r *Repository) FindDataset(ctx context.Context, id int64) (*models.Dataset, error) {
	var d models.Dataset
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}
