package captions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
	"github.com/markbang/cyop/pkg/enums"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
	"github.com/markbang/cyop/pkg/pagination"
)

type captionRepository interface {
	Create(ctx context.Context, caption *models.Caption) (*models.Caption, error)
	CreateBatch(ctx context.Context, rows []*models.Caption) error
	FindByID(ctx context.Context, id int64) (*models.Caption, error)
	Save(ctx context.Context, caption *models.Caption) error
	Delete(ctx context.Context, id int64) error
	ListByDataset(ctx context.Context, datasetID int64, status *enums.CaptionStatus, params pagination.Params) ([]CaptionWithAsset, error)
	ListAllByDataset(ctx context.Context, datasetID int64, status *enums.CaptionStatus) ([]CaptionWithAsset, error)
	AssetsWithoutCaptions(ctx context.Context, datasetID int64) ([]models.MediaAsset, error)
	FindDataset(ctx context.Context, id int64) (*models.Dataset, error)
	FindTemplate(ctx context.Context, id int64) (*models.PromptTemplate, error)
	FindDefaultTemplate(ctx context.Context) (*models.PromptTemplate, error)
}

// Service exposes caption review semantics: creation, the review state
// machine, captioning triggers, and exports.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Caption, error)
	Get(ctx context.Context, id int64) (*models.Caption, error)
	List(ctx context.Context, datasetID int64, status *enums.CaptionStatus, params pagination.Params) ([]CaptionWithAsset, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*models.Caption, error)
	Approve(ctx context.Context, id int64, approvedBy string) (*models.Caption, error)
	ApproveBatch(ctx context.Context, ids []int64, approvedBy string) (*ReviewBatchResult, error)
	Reject(ctx context.Context, id int64, reason string) (*models.Caption, error)
	RejectBatch(ctx context.Context, ids []int64, reason string) (*ReviewBatchResult, error)
	Regenerate(ctx context.Context, id int64, templateID *int64) (*models.Caption, error)
	Delete(ctx context.Context, id int64) error
	TriggerCaptioning(ctx context.Context, datasetID int64, templateID *int64) ([]int64, error)
	Export(ctx context.Context, datasetID int64, status *enums.CaptionStatus, format enums.ExportFormat) (*ExportResult, error)
}

type service struct {
	repo captionRepository
	now  func() time.Time
}

// NewService constructs a caption service over the provided repository.
func NewService(repo captionRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("caption repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// CreateInput models a manually created caption. Manual text at creation
// starts the row completed with the final caption mirrored.
type CreateInput struct {
	MediaAssetID     int64
	ManualCaption    *string
	PromptTemplateID *int64
}

// UpdateInput is a partial update: nil fields are left untouched. Status is
// only changed when explicitly supplied.
type UpdateInput struct {
	ManualCaption   *string
	FinalCaption    *string
	RejectionReason *string
	Status          *enums.CaptionStatus
}

// ReviewBatchResult reports a partial-success batch review action.
type ReviewBatchResult struct {
	Processed int          `json:"processed"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Errors    []ReviewItem `json:"errors,omitempty"`
}

// ReviewItem identifies one failed item in a batch review action.
type ReviewItem struct {
	CaptionID int64  `json:"caption_id"`
	Error     string `json:"error"`
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Caption, error) {
	if input.MediaAssetID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media_asset_id is required")
	}

	caption := &models.Caption{
		MediaAssetID:     input.MediaAssetID,
		PromptTemplateID: input.PromptTemplateID,
		Status:           enums.CaptionStatusPending,
	}
	if input.ManualCaption != nil && strings.TrimSpace(*input.ManualCaption) != "" {
		text := strings.TrimSpace(*input.ManualCaption)
		caption.ManualCaption = &text
		caption.FinalCaption = &text
		caption.Status = enums.CaptionStatusCompleted
	}

	created, err := s.repo.Create(ctx, caption)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist caption")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Caption, error) {
	return s.findCaption(ctx, id)
}

func (s *service) List(ctx context.Context, datasetID int64, status *enums.CaptionStatus, params pagination.Params) ([]CaptionWithAsset, error) {
	if datasetID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dataset id is required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid caption status filter")
	}
	rows, err := s.repo.ListByDataset(ctx, datasetID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list captions")
	}
	return rows, nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateInput) (*models.Caption, error) {
	caption, err := s.findCaption(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid caption status")
	}

	if input.ManualCaption != nil {
		caption.ManualCaption = input.ManualCaption
	}
	if input.FinalCaption != nil {
		caption.FinalCaption = input.FinalCaption
	}
	if input.RejectionReason != nil {
		caption.RejectionReason = input.RejectionReason
	}
	if input.Status != nil {
		caption.Status = *input.Status
	}

	if err := s.repo.Save(ctx, caption); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update caption")
	}
	return caption, nil
}

func (s *service) Approve(ctx context.Context, id int64, approvedBy string) (*models.Caption, error) {
	caption, err := s.findCaption(ctx, id)
	if err != nil {
		return nil, err
	}
	s.applyApproval(caption, approvedBy)
	if err := s.repo.Save(ctx, caption); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve caption")
	}
	return caption, nil
}

func (s *service) ApproveBatch(ctx context.Context, ids []int64, approvedBy string) (*ReviewBatchResult, error) {
	return s.reviewBatch(ctx, ids, func(caption *models.Caption) {
		s.applyApproval(caption, approvedBy)
	})
}

func (s *service) Reject(ctx context.Context, id int64, reason string) (*models.Caption, error) {
	caption, err := s.findCaption(ctx, id)
	if err != nil {
		return nil, err
	}
	s.applyRejection(caption, reason)
	if err := s.repo.Save(ctx, caption); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject caption")
	}
	return caption, nil
}

func (s *service) RejectBatch(ctx context.Context, ids []int64, reason string) (*ReviewBatchResult, error) {
	return s.reviewBatch(ctx, ids, func(caption *models.Caption) {
		s.applyRejection(caption, reason)
	})
}

// Regenerate moves a caption back to processing and clears all AI-derived
// fields so stale values never outlive the rerun request.
func (s *service) Regenerate(ctx context.Context, id int64, templateID *int64) (*models.Caption, error) {
	caption, err := s.findCaption(ctx, id)
	if err != nil {
		return nil, err
	}

	if templateID != nil {
		if _, err := s.repo.FindTemplate(ctx, *templateID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prompt template not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prompt template")
		}
		caption.PromptTemplateID = templateID
	}

	caption.Status = enums.CaptionStatusProcessing
	caption.AICaption = nil
	caption.Confidence = nil
	caption.TokensUsed = nil
	caption.GeneratedAt = nil

	if err := s.repo.Save(ctx, caption); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "regenerate caption")
	}
	return caption, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "caption not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete caption")
	}
	return nil
}

// TriggerCaptioning queues AI captioning for every media asset in the dataset
// that has no caption row yet. Re-running never double-queues an asset.
func (s *service) TriggerCaptioning(ctx context.Context, datasetID int64, templateID *int64) ([]int64, error) {
	if datasetID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dataset id is required")
	}
	if _, err := s.repo.FindDataset(ctx, datasetID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dataset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dataset")
	}

	template, err := s.resolveTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	assets, err := s.repo.AssetsWithoutCaptions(ctx, datasetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find uncaptioned assets")
	}
	if len(assets) == 0 {
		return []int64{}, nil
	}

	rows := make([]*models.Caption, 0, len(assets))
	for _, asset := range assets {
		row := &models.Caption{
			MediaAssetID: asset.ID,
			Status:       enums.CaptionStatusProcessing,
		}
		if template != nil {
			row.PromptTemplateID = &template.ID
		}
		rows = append(rows, row)
	}
	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue captions")
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (s *service) resolveTemplate(ctx context.Context, templateID *int64) (*models.PromptTemplate, error) {
	if templateID != nil {
		tpl, err := s.repo.FindTemplate(ctx, *templateID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prompt template not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prompt template")
		}
		return tpl, nil
	}
	tpl, err := s.repo.FindDefaultTemplate(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default template")
	}
	return tpl, nil
}

func (s *service) applyApproval(caption *models.Caption, approvedBy string) {
	now := s.now().UTC()
	caption.Status = enums.CaptionStatusApproved
	caption.ApprovedAt = &now
	by := strings.TrimSpace(approvedBy)
	if by != "" {
		caption.ApprovedBy = &by
	}
}

func (s *service) applyRejection(caption *models.Caption, reason string) {
	caption.Status = enums.CaptionStatusRejected
	trimmed := strings.TrimSpace(reason)
	if trimmed != "" {
		caption.RejectionReason = &trimmed
	}
}

func (s *service) reviewBatch(ctx context.Context, ids []int64, apply func(*models.Caption)) (*ReviewBatchResult, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "caption ids are required")
	}

	result := &ReviewBatchResult{Processed: len(ids)}
	for _, id := range ids {
		caption, err := s.findCaption(ctx, id)
		if err == nil {
			apply(caption)
			err = s.repo.Save(ctx, caption)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ReviewItem{CaptionID: id, Error: err.Error()})
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (s *service) findCaption(ctx context.Context, id int64) (*models.Caption, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "caption id is required")
	}
	caption, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "caption not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load caption")
	}
	return caption, nil
}
