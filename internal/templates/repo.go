package templates

import (
	"context"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
)

// Repository exposes prompt template persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a prompt template repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a prompt template.
func (r *Repository) Create(ctx context.Context, tpl *models.PromptTemplate) (*models.PromptTemplate, error) {
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return nil, err
	}
	return tpl, nil
}

// FindByID retrieves a prompt template by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.PromptTemplate, error) {
	var tpl models.PromptTemplate
	if err := r.db.WithContext(ctx).First(&tpl, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Save writes the full template row back.
func (r *Repository) Save(ctx context.Context, tpl *models.PromptTemplate) error {
	return r.db.WithContext(ctx).Save(tpl).Error
}

// Delete removes a template row permanently.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PromptTemplate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns all templates, active first, then by name.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.PromptTemplate, error) {
	q := r.db.WithContext(ctx).Model(&models.PromptTemplate{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.PromptTemplate
	if err := q.Order("is_active DESC, name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetDefault flags one template as the default and clears every other default
// in the same transaction, so at most one default exists at any point.
func (r *Repository) SetDefault(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tpl models.PromptTemplate
		if err := tx.First(&tpl, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PromptTemplate{}).
			Where("id <> ?", id).
			Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.PromptTemplate{}).
			Where("id = ?", id).
			Update("is_default", true).Error
	})
}
