package datasets

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
	"github.com/markbang/cyop/pkg/enums"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
)

type stubRepo struct {
	requirements map[int64]*models.Requirement
	datasets     map[int64]*models.Dataset
	metrics      map[int64]*Metrics
	nextID       int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		requirements: map[int64]*models.Requirement{},
		datasets:     map[int64]*models.Dataset{},
		metrics:      map[int64]*Metrics{},
		nextID:       1,
	}
}

func (s *stubRepo) CreateRequirement(ctx context.Context, req *models.Requirement) (*models.Requirement, error) {
	req.ID = s.nextID
	s.nextID++
	s.requirements[req.ID] = req
	return req, nil
}

func (s *stubRepo) FindRequirement(ctx context.Context, id int64) (*models.Requirement, error) {
	req, ok := s.requirements[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return req, nil
}

func (s *stubRepo) ListRequirements(ctx context.Context) ([]models.Requirement, error) {
	var out []models.Requirement
	for _, req := range s.requirements {
		out = append(out, *req)
	}
	return out, nil
}

func (s *stubRepo) CreateDataset(ctx context.Context, dataset *models.Dataset) (*models.Dataset, error) {
	dataset.ID = s.nextID
	s.nextID++
	s.datasets[dataset.ID] = dataset
	return dataset, nil
}

func (s *stubRepo) FindDataset(ctx context.Context, id int64) (*models.Dataset, error) {
	d, ok := s.datasets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (s *stubRepo) ListDatasetsByRequirement(ctx context.Context, requirementID int64) ([]models.Dataset, error) {
	var out []models.Dataset
	for _, d := range s.datasets {
		if d.RequirementID == requirementID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *stubRepo) ComputeMetrics(ctx context.Context, datasetID int64) (*Metrics, error) {
	m, ok := s.metrics[datasetID]
	if !ok {
		return &Metrics{DatasetID: datasetID}, nil
	}
	return m, nil
}

type stubEmitter struct {
	events []enums.WebhookEventType
}

func (s *stubEmitter) Emit(ctx context.Context, event enums.WebhookEventType, data any) {
	s.events = append(s.events, event)
}

func mustService(t *testing.T, repo datasetRepository, emitter eventEmitter) Service {
	t.Helper()
	svc, err := NewService(repo, emitter)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateDatasetEmitsEvent(t *testing.T) {
	repo := newStubRepo()
	emitter := &stubEmitter{}
	svc := mustService(t, repo, emitter)
	ctx := context.Background()

	req, err := svc.CreateRequirement(ctx, "spring campaign", nil)
	if err != nil {
		t.Fatalf("create requirement: %v", err)
	}

	dataset, err := svc.CreateDataset(ctx, req.ID, "  studio shots  ", nil)
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	if dataset.Name != "studio shots" {
		t.Fatalf("expected trimmed name, got %q", dataset.Name)
	}
	if len(emitter.events) != 1 || emitter.events[0] != enums.WebhookDatasetCreated {
		t.Fatalf("expected dataset.created event, got %v", emitter.events)
	}
}

func TestCreateDatasetUnknownRequirement(t *testing.T) {
	svc := mustService(t, newStubRepo(), nil)

	_, err := svc.CreateDataset(context.Background(), 42, "orphan", nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateRequirementValidation(t *testing.T) {
	svc := mustService(t, newStubRepo(), nil)

	_, err := svc.CreateRequirement(context.Background(), "   ", nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestRecomputeEmitsMetricsEvent(t *testing.T) {
	repo := newStubRepo()
	repo.datasets[7] = &models.Dataset{ID: 7, RequirementID: 1, Name: "metrics"}
	repo.metrics[7] = &Metrics{DatasetID: 7, AssetCount: 4, CaptionedCount: 3, ApprovedCount: 1}
	emitter := &stubEmitter{}
	svc := mustService(t, repo, emitter)

	metrics, err := svc.Recompute(context.Background(), 7)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if metrics.AssetCount != 4 || metrics.ApprovedCount != 1 {
		t.Fatalf("unexpected metrics %+v", metrics)
	}
	if len(emitter.events) != 1 || emitter.events[0] != enums.WebhookDatasetMetricsUpdated {
		t.Fatalf("expected dataset.metrics_updated event, got %v", emitter.events)
	}
}

func TestRecomputeUnknownDataset(t *testing.T) {
	svc := mustService(t, newStubRepo(), &stubEmitter{})

	_, err := svc.Recompute(context.Background(), 404)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
