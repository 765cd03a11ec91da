package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/markbang/cyop/pkg/db/models"
	dbtypes "github.com/markbang/cyop/pkg/db/types"
	"github.com/markbang/cyop/pkg/enums"
)

func setupTasksTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	datasets := `
CREATE TABLE IF NOT EXISTS datasets (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  requirement_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	tasks := `
CREATE TABLE IF NOT EXISTS automation_tasks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  dataset_id INTEGER NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'queued',
  progress INTEGER NOT NULL DEFAULT 0,
  assigned_to TEXT,
  metadata TEXT,
  failure_reason TEXT,
  started_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(datasets).Error)
	require.NoError(t, db.Exec(tasks).Error)
	return db
}

func TestRepositoryTaskLifecycle(t *testing.T) {
	db := setupTasksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	dataset := &models.Dataset{RequirementID: 1, Name: "task-lifecycle"}
	require.NoError(t, db.Create(dataset).Error)

	created, err := repo.Create(ctx, &models.AutomationTask{
		DatasetID: dataset.ID,
		Type:      enums.TaskTypeCaption,
		Status:    enums.TaskStatusQueued,
		Metadata:  dbtypes.JSONMap{"source": "api"},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TaskTypeCaption, found.Type)
	assert.Equal(t, "api", found.Metadata["source"])

	now := time.Now().UTC()
	found.Status = enums.TaskStatusRunning
	found.StartedAt = &now
	require.NoError(t, repo.Save(ctx, found))

	running, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TaskStatusRunning, running.Status)
	require.NotNil(t, running.StartedAt)

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), gorm.ErrRecordNotFound)
}

func TestRepositorySaveClearsCompletedAt(t *testing.T) {
	db := setupTasksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	dataset := &models.Dataset{RequirementID: 1, Name: "task-clear"}
	require.NoError(t, db.Create(dataset).Error)

	done := time.Now().UTC()
	created, err := repo.Create(ctx, &models.AutomationTask{
		DatasetID:   dataset.ID,
		Type:        enums.TaskTypeIngest,
		Status:      enums.TaskStatusSucceeded,
		CompletedAt: &done,
	})
	require.NoError(t, err)

	created.Status = enums.TaskStatusQueued
	created.CompletedAt = nil
	require.NoError(t, repo.Save(ctx, created))

	requeued, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TaskStatusQueued, requeued.Status)
	assert.Nil(t, requeued.CompletedAt)
}

func TestRepositoryListByDataset(t *testing.T) {
	db := setupTasksTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	mine := &models.Dataset{RequirementID: 1, Name: "task-list-mine"}
	other := &models.Dataset{RequirementID: 1, Name: "task-list-other"}
	require.NoError(t, db.Create(mine).Error)
	require.NoError(t, db.Create(other).Error)

	first, err := repo.Create(ctx, &models.AutomationTask{DatasetID: mine.ID, Type: enums.TaskTypeCaption, Status: enums.TaskStatusQueued})
	require.NoError(t, err)
	second, err := repo.Create(ctx, &models.AutomationTask{DatasetID: mine.ID, Type: enums.TaskTypeQA, Status: enums.TaskStatusQueued})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.AutomationTask{DatasetID: other.ID, Type: enums.TaskTypeTag, Status: enums.TaskStatusQueued})
	require.NoError(t, err)

	out, err := repo.ListByDataset(ctx, mine.ID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, second.ID, out[0].ID)
	assert.Equal(t, first.ID, out[1].ID)
}
