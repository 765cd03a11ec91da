package captions

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
	"github.com/markbang/cyop/pkg/enums"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
	"github.com/markbang/cyop/pkg/pagination"
)

type stubRepo struct {
	captions  map[int64]*models.Caption
	templates map[int64]*models.PromptTemplate
	datasets  map[int64]*models.Dataset
	assets    []models.MediaAsset
	nextID    int64

	defaultTemplate *models.PromptTemplate
	listRows        []CaptionWithAsset
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		captions:  map[int64]*models.Caption{},
		templates: map[int64]*models.PromptTemplate{},
		datasets:  map[int64]*models.Dataset{},
		nextID:    1,
	}
}

func (s *stubRepo) Create(ctx context.Context, caption *models.Caption) (*models.Caption, error) {
	caption.ID = s.nextID
	s.nextID++
	s.captions[caption.ID] = caption
	return caption, nil
}

func (s *stubRepo) CreateBatch(ctx context.Context, rows []*models.Caption) error {
	for _, row := range rows {
		row.ID = s.nextID
		s.nextID++
		s.captions[row.ID] = row
	}
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*models.Caption, error) {
	c, ok := s.captions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *stubRepo) Save(ctx context.Context, caption *models.Caption) error {
	if _, ok := s.captions[caption.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *caption
	s.captions[caption.ID] = &copied
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := s.captions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.captions, id)
	return nil
}

func (s *stubRepo) ListByDataset(ctx context.Context, datasetID int64, status *enums.CaptionStatus, params pagination.Params) ([]CaptionWithAsset, error) {
	return s.listRows, nil
}

func (s *stubRepo) ListAllByDataset(ctx context.Context, datasetID int64, status *enums.CaptionStatus) ([]CaptionWithAsset, error) {
	return s.listRows, nil
}

func (s *stubRepo) AssetsWithoutCaptions(ctx context.Context, datasetID int64) ([]models.MediaAsset, error) {
	var out []models.MediaAsset
	for _, asset := range s.assets {
		if asset.DatasetID != datasetID {
			continue
		}
		captioned := false
		for _, c := range s.captions {
			if c.MediaAssetID == asset.ID {
				captioned = true
				break
			}
		}
		if !captioned {
			out = append(out, asset)
		}
	}
	return out, nil
}

func (s *stubRepo) FindDataset(ctx context.Context, id int64) (*models.Dataset, error) {
	d, ok := s.datasets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (s *stubRepo) FindTemplate(ctx context.Context, id int64) (*models.PromptTemplate, error) {
	tpl, ok := s.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tpl, nil
}

func (s *stubRepo) FindDefaultTemplate(ctx context.Context) (*models.PromptTemplate, error) {
	return s.defaultTemplate, nil
}

func mustService(t *testing.T, repo captionRepository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func strPtr(v string) *string { return &v }

func int64Ptr(v int64) *int64 { return &v }

func TestCreateManualCaptionStartsCompleted(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	created, err := svc.Create(context.Background(), CreateInput{
		MediaAssetID:  7,
		ManualCaption: strPtr("  a red chair  "),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != enums.CaptionStatusCompleted {
		t.Fatalf("expected completed, got %s", created.Status)
	}
	if created.ManualCaption == nil || *created.ManualCaption != "a red chair" {
		t.Fatalf("expected trimmed manual caption, got %v", created.ManualCaption)
	}
	if created.FinalCaption == nil || *created.FinalCaption != "a red chair" {
		t.Fatal("expected final caption mirrored from manual text")
	}
}

func TestCreateWithoutTextStartsPending(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	created, err := svc.Create(context.Background(), CreateInput{MediaAssetID: 7})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != enums.CaptionStatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	if created.FinalCaption != nil {
		t.Fatal("expected no final caption")
	}
}

func TestUpdateLeavesOmittedFieldsUntouched(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	seeded, _ := repo.Create(context.Background(), &models.Caption{
		MediaAssetID:  1,
		AICaption:     strPtr("machine text"),
		ManualCaption: strPtr("human text"),
		Status:        enums.CaptionStatusCompleted,
	})

	updated, err := svc.Update(context.Background(), seeded.ID, UpdateInput{
		FinalCaption: strPtr("picked text"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FinalCaption == nil || *updated.FinalCaption != "picked text" {
		t.Fatal("expected final caption updated")
	}
	if updated.ManualCaption == nil || *updated.ManualCaption != "human text" {
		t.Fatal("expected manual caption untouched")
	}
	if updated.Status != enums.CaptionStatusCompleted {
		t.Fatalf("expected status unchanged, got %s", updated.Status)
	}
}

func TestUpdateChangesStatusOnlyWhenSupplied(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	seeded, _ := repo.Create(context.Background(), &models.Caption{
		MediaAssetID: 1,
		Status:       enums.CaptionStatusCompleted,
	})

	status := enums.CaptionStatusApproved
	updated, err := svc.Update(context.Background(), seeded.ID, UpdateInput{Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != enums.CaptionStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
}

func TestApproveStampsIdentityAndTimestamp(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	seeded, _ := repo.Create(context.Background(), &models.Caption{
		MediaAssetID: 1,
		Status:       enums.CaptionStatusCompleted,
	})

	approved, err := svc.Approve(context.Background(), seeded.ID, "reviewer-9")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != enums.CaptionStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != "reviewer-9" {
		t.Fatal("expected approver identity stamped")
	}
	if approved.ApprovedAt == nil {
		t.Fatal("expected approvedAt stamped")
	}
}

func TestRejectStoresReason(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	seeded, _ := repo.Create(context.Background(), &models.Caption{
		MediaAssetID: 1,
		Status:       enums.CaptionStatusCompleted,
	})

	rejected, err := svc.Reject(context.Background(), seeded.ID, "blurry image")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != enums.CaptionStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "blurry image" {
		t.Fatal("expected rejection reason stored")
	}
}

func TestRegenerateClearsAIFields(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	confidence := 90
	tokens := 42
	seeded, _ := repo.Create(context.Background(), &models.Caption{
		MediaAssetID: 1,
		Status:       enums.CaptionStatusApproved,
		AICaption:    strPtr("old text"),
		Confidence:   &confidence,
		TokensUsed:   &tokens,
	})

	regen, err := svc.Regenerate(context.Background(), seeded.ID, nil)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if regen.Status != enums.CaptionStatusProcessing {
		t.Fatalf("expected processing, got %s", regen.Status)
	}
	if regen.AICaption != nil || regen.Confidence != nil || regen.TokensUsed != nil || regen.GeneratedAt != nil {
		t.Fatal("expected AI fields cleared before rerun")
	}
}

func TestRegenerateReassignsTemplate(t *testing.T) {
	repo := newStubRepo()
	repo.templates[3] = &models.PromptTemplate{ID: 3, Name: "detailed"}
	svc := mustService(t, repo)

	seeded, _ := repo.Create(context.Background(), &models.Caption{
		MediaAssetID: 1,
		Status:       enums.CaptionStatusRejected,
	})

	regen, err := svc.Regenerate(context.Background(), seeded.ID, int64Ptr(3))
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if regen.PromptTemplateID == nil || *regen.PromptTemplateID != 3 {
		t.Fatal("expected template reassigned")
	}

	if _, err := svc.Regenerate(context.Background(), seeded.ID, int64Ptr(99)); err == nil {
		t.Fatal("expected not found for unknown template")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestApproveBatchReportsPartialFailure(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	first, _ := repo.Create(context.Background(), &models.Caption{MediaAssetID: 1, Status: enums.CaptionStatusCompleted})
	second, _ := repo.Create(context.Background(), &models.Caption{MediaAssetID: 2, Status: enums.CaptionStatusCompleted})

	result, err := svc.ApproveBatch(context.Background(), []int64{first.ID, second.ID, 999}, "reviewer-1")
	if err != nil {
		t.Fatalf("approve batch: %v", err)
	}
	if result.Processed != 3 || result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("unexpected batch result %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].CaptionID != 999 {
		t.Fatalf("expected error for missing caption, got %+v", result.Errors)
	}
}

func TestTriggerCaptioningIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	repo.datasets[5] = &models.Dataset{ID: 5, RequirementID: 1, Name: "spring shoot"}
	repo.assets = []models.MediaAsset{
		{ID: 10, DatasetID: 5},
		{ID: 11, DatasetID: 5},
		{ID: 12, DatasetID: 5},
	}
	svc := mustService(t, repo)

	ids, err := svc.TriggerCaptioning(context.Background(), 5, nil)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 captions queued, got %d", len(ids))
	}
	for _, id := range ids {
		c := repo.captions[id]
		if c == nil || c.Status != enums.CaptionStatusProcessing {
			t.Fatalf("expected processing caption for id %d", id)
		}
	}

	again, err := svc.TriggerCaptioning(context.Background(), 5, nil)
	if err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected zero new captions, got %d", len(again))
	}
}

func TestTriggerCaptioningBindsDefaultTemplate(t *testing.T) {
	repo := newStubRepo()
	repo.datasets[5] = &models.Dataset{ID: 5, RequirementID: 1}
	repo.assets = []models.MediaAsset{{ID: 10, DatasetID: 5}}
	repo.defaultTemplate = &models.PromptTemplate{ID: 8, IsDefault: true, IsActive: true}
	svc := mustService(t, repo)

	ids, err := svc.TriggerCaptioning(context.Background(), 5, nil)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 caption, got %d", len(ids))
	}
	c := repo.captions[ids[0]]
	if c.PromptTemplateID == nil || *c.PromptTemplateID != 8 {
		t.Fatal("expected default template bound")
	}
}

func TestTriggerCaptioningUnknownDataset(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	_, err := svc.TriggerCaptioning(context.Background(), 404, nil)
	if err == nil {
		t.Fatal("expected not found")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestDeleteMissingCaption(t *testing.T) {
	repo := newStubRepo()
	svc := mustService(t, repo)

	err := svc.Delete(context.Background(), 42)
	if err == nil {
		t.Fatal("expected not found")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}
