package datasets

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
	"github.com/markbang/cyop/pkg/enums"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
)

type datasetRepository interface {
	CreateRequirement(ctx context.Context, req *models.Requirement) (*models.Requirement, error)
	FindRequirement(ctx context.Context, id int64) (*models.Requirement, error)
	ListRequirements(ctx context.Context) ([]models.Requirement, error)
	CreateDataset(ctx context.Context, dataset *models.Dataset) (*models.Dataset, error)
	FindDataset(ctx context.Context, id int64) (*models.Dataset, error)
	ListDatasetsByRequirement(ctx context.Context, requirementID int64) ([]models.Dataset, error)
	ComputeMetrics(ctx context.Context, datasetID int64) (*Metrics, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, event enums.WebhookEventType, data any)
}

// Service exposes requirement and dataset management.
type Service interface {
	CreateRequirement(ctx context.Context, title string, description *string) (*models.Requirement, error)
	GetRequirement(ctx context.Context, id int64) (*models.Requirement, error)
	ListRequirements(ctx context.Context) ([]models.Requirement, error)
	CreateDataset(ctx context.Context, requirementID int64, name string, description *string) (*models.Dataset, error)
	GetDataset(ctx context.Context, id int64) (*models.Dataset, error)
	ListDatasets(ctx context.Context, requirementID int64) ([]models.Dataset, error)
	Recompute(ctx context.Context, datasetID int64) (*Metrics, error)
}

type service struct {
	repo    datasetRepository
	emitter eventEmitter
}

// NewService constructs a datasets service. The emitter may be nil; events
// are then skipped entirely.
func NewService(repo datasetRepository, emitter eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("datasets repository required")
	}
	return &service{repo: repo, emitter: emitter}, nil
}

func (s *service) CreateRequirement(ctx context.Context, title string, description *string) (*models.Requirement, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requirement title is required")
	}
	req := &models.Requirement{Title: title, Description: description, Status: "open"}
	created, err := s.repo.CreateRequirement(ctx, req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist requirement")
	}
	return created, nil
}

func (s *service) GetRequirement(ctx context.Context, id int64) (*models.Requirement, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requirement id is required")
	}
	req, err := s.repo.FindRequirement(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "requirement not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load requirement")
	}
	return req, nil
}

func (s *service) ListRequirements(ctx context.Context) ([]models.Requirement, error) {
	out, err := s.repo.ListRequirements(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requirements")
	}
	return out, nil
}

func (s *service) CreateDataset(ctx context.Context, requirementID int64, name string, description *string) (*models.Dataset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dataset name is required")
	}
	if _, err := s.GetRequirement(ctx, requirementID); err != nil {
		return nil, err
	}

	dataset := &models.Dataset{RequirementID: requirementID, Name: name, Description: description}
	created, err := s.repo.CreateDataset(ctx, dataset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist dataset")
	}
	if s.emitter != nil {
		s.emitter.Emit(ctx, enums.WebhookDatasetCreated, created)
	}
	return created, nil
}

func (s *service) GetDataset(ctx context.Context, id int64) (*models.Dataset, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dataset id is required")
	}
	dataset, err := s.repo.FindDataset(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dataset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dataset")
	}
	return dataset, nil
}

func (s *service) ListDatasets(ctx context.Context, requirementID int64) ([]models.Dataset, error) {
	if requirementID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requirement id is required")
	}
	out, err := s.repo.ListDatasetsByRequirement(ctx, requirementID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list datasets")
	}
	return out, nil
}

// Recompute counts the dataset's assets and captions and emits the refreshed
// metrics event.
func (s *service) Recompute(ctx context.Context, datasetID int64) (*Metrics, error) {
	if _, err := s.GetDataset(ctx, datasetID); err != nil {
		return nil, err
	}
	metrics, err := s.repo.ComputeMetrics(ctx, datasetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute dataset metrics")
	}
	if s.emitter != nil {
		s.emitter.Emit(ctx, enums.WebhookDatasetMetricsUpdated, metrics)
	}
	return metrics, nil
}
