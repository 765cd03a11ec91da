package captions

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
	"github.com/markbang/cyop/pkg/enums"
	"github.com/markbang/cyop/pkg/pagination"
)

// Repository exposes caption persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a caption repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Job bundles one processing caption with its media asset and optional template.
type Job struct {
	Caption  models.Caption
	Asset    models.MediaAsset
	Template *models.PromptTemplate
}

// CaptionWithAsset pairs a caption row with its asset's filename for listings and exports.
type CaptionWithAsset struct {
	Caption  models.Caption
	FileName string
}

// Create persists a caption record.
func (r *Repository) Create(ctx context.Context, caption *models.Caption) (*models.Caption, error) {
	if err := r.db.WithContext(ctx).Create(caption).Error; err != nil {
		return nil, err
	}
	return caption, nil
}

// CreateBatch inserts caption rows in one statement.
func (r *Repository) CreateBatch(ctx context.Context, rows []*models.Caption) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// FindByID retrieves a caption by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Caption, error) {
	var c models.Caption
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the full caption row back.
func (r *Repository) Save(ctx context.Context, caption *models.Caption) error {
	return r.db.WithContext(ctx).Save(caption).Error
}

// Delete removes a caption row permanently.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Caption{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByDataset returns captions for a dataset, newest first, optionally
// filtered by status, with their asset filenames.
func (r *Repository) ListByDataset(ctx context.Context, datasetID int64, status *enums.CaptionStatus, params pagination.Params) ([]CaptionWithAsset, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	q := r.db.WithContext(ctx).
		Table("captions").
		Select("captions.*, media_assets.file_name AS file_name").
		Joins("JOIN media_assets ON media_assets.id = captions.media_asset_id").
		Where("media_assets.dataset_id = ?", datasetID)
	if status != nil {
		q = q.Where("captions.status = ?", *status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(captions.created_at < ?) OR (captions.created_at = ? AND captions.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	type row struct {
		models.Caption
		FileName string
	}
	var rows []row
	if err := q.Order("captions.created_at DESC, captions.id DESC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]CaptionWithAsset, 0, len(rows))
	for _, rw := range rows {
		out = append(out, CaptionWithAsset{Caption: rw.Caption, FileName: rw.FileName})
	}
	return out, nil
}

// ListAllByDataset returns every caption for a dataset, oldest first, for
// export rendering. No pagination: exports cover the whole dataset.
func (r *Repository) ListAllByDataset(ctx context.Context, datasetID int64, status *enums.CaptionStatus) ([]CaptionWithAsset, error) {
	q := r.db.WithContext(ctx).
		Table("captions").
		Select("captions.*, media_assets.file_name AS file_name").
		Joins("JOIN media_assets ON media_assets.id = captions.media_asset_id").
		Where("media_assets.dataset_id = ?", datasetID)
	if status != nil {
		q = q.Where("captions.status = ?", *status)
	}

	type row struct {
		models.Caption
		FileName string
	}
	var rows []row
	if err := q.Order("captions.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]CaptionWithAsset, 0, len(rows))
	for _, rw := range rows {
		out = append(out, CaptionWithAsset{Caption: rw.Caption, FileName: rw.FileName})
	}
	return out, nil
}

// AssetsWithoutCaptions returns the dataset's media assets that have no
// caption row at all, regardless of that row's status.
func (r *Repository) AssetsWithoutCaptions(ctx context.Context, datasetID int64) ([]models.MediaAsset, error) {
	var assets []models.MediaAsset
	err := r.db.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		Where("NOT EXISTS (SELECT 1 FROM captions WHERE captions.media_asset_id = media_assets.id)").
		Order("id ASC").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// ProcessingBatch loads up to limit processing captions whose asset has a
// public URL, joined to their optional prompt template, oldest first.
func (r *Repository) ProcessingBatch(ctx context.Context, limit int) ([]Job, error) {
	var rows []models.Caption
	err := r.db.WithContext(ctx).
		Joins("JOIN media_assets ON media_assets.id = captions.media_asset_id").
		Where("captions.status = ?", enums.CaptionStatusProcessing).
		Where("media_assets.public_url IS NOT NULL AND media_assets.public_url <> ''").
		Order("captions.id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(rows))
	for _, c := range rows {
		var asset models.MediaAsset
		if err := r.db.WithContext(ctx).First(&asset, "id = ?", c.MediaAssetID).Error; err != nil {
			return nil, err
		}
		job := Job{Caption: c, Asset: asset}
		if c.PromptTemplateID != nil {
			var tpl models.PromptTemplate
			if err := r.db.WithContext(ctx).First(&tpl, "id = ?", *c.PromptTemplateID).Error; err == nil {
				job.Template = &tpl
			} else if err != gorm.ErrRecordNotFound {
				return nil, err
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// MarkCompleted records a successful AI generation outcome on the caption row.
func (r *Repository) MarkCompleted(ctx context.Context, id int64, text, model string, confidence, tokensUsed int, generatedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Caption{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"ai_caption":    text,
			"final_caption": text,
			"status":        enums.CaptionStatusCompleted,
			"model":         model,
			"confidence":    confidence,
			"tokens_used":   tokensUsed,
			"generated_at":  generatedAt,
		}).Error
}

// MarkRejected records a failed AI generation outcome on the caption row.
func (r *Repository) MarkRejected(ctx context.Context, id int64, reason string) error {
	return r.db.WithContext(ctx).Model(&models.Caption{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           enums.CaptionStatusRejected,
			"rejection_reason": reason,
		}).Error
}

// FindDataset retrieves the dataset row, used to validate trigger/export targets.
func (r *Repository) FindDataset(ctx context.Context, id int64) (*models.Dataset, error) {
	var d models.Dataset
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// FindTemplate retrieves a prompt template by id.
func (r *Repository) FindTemplate(ctx context.Context, id int64) (*models.PromptTemplate, error) {
	var tpl models.PromptTemplate
	if err := r.db.WithContext(ctx).First(&tpl, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// FindDefaultTemplate returns the single template flagged default, or nil.
func (r *Repository) FindDefaultTemplate(ctx context.Context) (*models.PromptTemplate, error) {
	var tpl models.PromptTemplate
	err := r.db.WithContext(ctx).First(&tpl, "is_default = ? AND is_active = ?", true, true).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}
