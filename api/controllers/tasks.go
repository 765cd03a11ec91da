package controllers

import (
	"net/http"
	"strings"

	"github.com/markbang/cyop/api/responses"
	"github.com/markbang/cyop/api/validators"
	tasksvc "github.com/markbang/cyop/internal/tasks"
	"github.com/markbang/cyop/pkg/enums"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
	"github.com/markbang/cyop/pkg/logger"
)

type createTaskRequest struct {
	DatasetID  int64          `json:"dataset_id" validate:"required,min=1"`
	Type       string         `json:"type" validate:"required"`
	AssignedTo *string        `json:"assigned_to,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// CreateTask opens a new automation task in queued state.
func CreateTask(svc tasksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "task service unavailable"))
			return
		}

		var payload createTaskRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		taskType, err := enums.ParseTaskType(strings.TrimSpace(payload.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid task type"))
			return
		}

		task, err := svc.Create(r.Context(), tasksvc.CreateInput{
			DatasetID:  payload.DatasetID,
			Type:       taskType,
			AssignedTo: payload.AssignedTo,
			Metadata:   payload.Metadata,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, task)
	}
}

// GetTask returns one task by id.
func GetTask(svc tasksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "taskId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		task, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, task)
	}
}

// ListTasks returns the dataset's tasks, newest first.
func ListTasks(svc tasksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasetID, err := parseIDParam(r, "datasetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tasks, err := svc.ListByDataset(r.Context(), datasetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tasks)
	}
}

type updateTaskRequest struct {
	Status        *string        `json:"status,omitempty"`
	Progress      *int           `json:"progress,omitempty"`
	AssignedTo    *string        `json:"assigned_to,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	FailureReason *string        `json:"failure_reason,omitempty"`
}

// UpdateTask applies a partial update; supplying a status runs the
// startedAt/completedAt transition rules.
func UpdateTask(svc tasksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "taskId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateTaskRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := tasksvc.UpdateInput{
			Progress:      payload.Progress,
			AssignedTo:    payload.AssignedTo,
			Metadata:      payload.Metadata,
			FailureReason: payload.FailureReason,
		}
		if payload.Status != nil {
			status, err := enums.ParseTaskStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid task status"))
				return
			}
			input.Status = &status
		}

		task, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, task)
	}
}

// DeleteTask removes a task permanently.
func DeleteTask(svc tasksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "taskId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
