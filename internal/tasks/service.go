package tasks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
	dbtypes "github.com/markbang/cyop/pkg/db/types"
	"github.com/markbang/cyop/pkg/enums"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
)

type taskRepository interface {
	Create(ctx context.Context, task *models.AutomationTask) (*models.AutomationTask, error)
	FindByID(ctx context.Context, id int64) (*models.AutomationTask, error)
	Save(ctx context.Context, task *models.AutomationTask) error
	Delete(ctx context.Context, id int64) error
	ListByDataset(ctx context.Context, datasetID int64) ([]models.AutomationTask, error)
	FindDataset(ctx context.Context, id int64) (*models.Dataset, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, event enums.WebhookEventType, data any)
}

// Service exposes automation task tracking.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.AutomationTask, error)
	Get(ctx context.Context, id int64) (*models.AutomationTask, error)
	ListByDataset(ctx context.Context, datasetID int64) ([]models.AutomationTask, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*models.AutomationTask, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo    taskRepository
	emitter eventEmitter
	now     func() time.Time
}

// NewService constructs a task service. The emitter may be nil; events are
// then skipped entirely.
func NewService(repo taskRepository, emitter eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("task repository required")
	}
	return &service{repo: repo, emitter: emitter, now: time.Now}, nil
}

// CreateInput models a new automation task. Tasks always start queued at
// zero progress.
type CreateInput struct {
	DatasetID  int64
	Type       enums.TaskType
	AssignedTo *string
	Metadata   map[string]any
}

// UpdateInput is a partial update: nil fields are left untouched. Supplying a
// status runs the transition rules for startedAt/completedAt.
type UpdateInput struct {
	Status        *enums.TaskStatus
	Progress      *int
	AssignedTo    *string
	Metadata      map[string]any
	FailureReason *string
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.AutomationTask, error) {
	if input.DatasetID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dataset id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid task type")
	}
	if _, err := s.repo.FindDataset(ctx, input.DatasetID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dataset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dataset")
	}

	task := &models.AutomationTask{
		DatasetID:  input.DatasetID,
		Type:       input.Type,
		Status:     enums.TaskStatusQueued,
		Progress:   0,
		AssignedTo: input.AssignedTo,
		Metadata:   dbtypes.JSONMap(input.Metadata),
	}
	created, err := s.repo.Create(ctx, task)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist task")
	}
	if s.emitter != nil {
		s.emitter.Emit(ctx, enums.WebhookTaskCreated, created)
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.AutomationTask, error) {
	return s.findTask(ctx, id)
}

func (s *service) ListByDataset(ctx context.Context, datasetID int64) ([]models.AutomationTask, error) {
	if datasetID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dataset id is required")
	}
	out, err := s.repo.ListByDataset(ctx, datasetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tasks")
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateInput) (*models.AutomationTask, error) {
	task, err := s.findTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid task status")
	}

	if input.Progress != nil {
		task.Progress = clampProgress(*input.Progress)
	}
	if input.AssignedTo != nil {
		task.AssignedTo = input.AssignedTo
	}
	if input.Metadata != nil {
		task.Metadata = dbtypes.JSONMap(input.Metadata)
	}
	if input.FailureReason != nil {
		task.FailureReason = input.FailureReason
	}
	if input.Status != nil {
		s.applyStatus(task, *input.Status)
	}

	if err := s.repo.Save(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update task")
	}
	if s.emitter != nil {
		s.emitter.Emit(ctx, enums.WebhookTaskUpdated, task)
	}
	return task, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete task")
	}
	return nil
}

// applyStatus runs the timestamp rules. CompletedAt exists exactly while the
// status is terminal. Any move back to a non-terminal status clears CompletedAt
// but leaves StartedAt in place, so a task's first run start survives requeues.
func (s *service) applyStatus(task *models.AutomationTask, status enums.TaskStatus) {
	now := s.now().UTC()

	switch status {
	case enums.TaskStatusRunning:
		if task.Status != enums.TaskStatusRunning && task.StartedAt == nil {
			task.StartedAt = &now
		}
		task.CompletedAt = nil
	case enums.TaskStatusSucceeded, enums.TaskStatusFailed:
		task.CompletedAt = &now
	case enums.TaskStatusQueued, enums.TaskStatusPaused, enums.TaskStatusBlocked:
		// Blocked clears CompletedAt too, so the timestamp only ever
		// exists on a terminal status.
		task.CompletedAt = nil
	}
	task.Status = status
}

func (s *service) findTask(ctx context.Context, id int64) (*models.AutomationTask, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task id is required")
	}
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load task")
	}
	return task, nil
}

func clampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
