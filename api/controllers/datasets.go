package controllers

import (
	"net/http"

	"github.com/markbang/cyop/api/responses"
	"github.com/markbang/cyop/api/validators"
	datasetsvc "github.com/markbang/cyop/internal/datasets"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
	"github.com/markbang/cyop/pkg/logger"
)

type createRequirementRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// CreateRequirement opens a new business requirement.
func CreateRequirement(svc datasetsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dataset service unavailable"))
			return
		}

		var payload createRequirementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := svc.CreateRequirement(r.Context(), validators.SanitizeString(payload.Title, 200), payload.Description)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, req)
	}
}

// ListRequirements returns all requirements, newest first.
func ListRequirements(svc datasetsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.ListRequirements(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, out)
	}
}

type createDatasetRequest struct {
	RequirementID int64   `json:"requirement_id" validate:"required,min=1"`
	Name          string  `json:"name" validate:"required"`
	Description   *string `json:"description,omitempty"`
}

// CreateDataset opens a new dataset under a requirement.
func CreateDataset(svc datasetsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createDatasetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dataset, err := svc.CreateDataset(r.Context(), payload.RequirementID, validators.SanitizeString(payload.Name, 200), payload.Description)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dataset)
	}
}

// GetDataset returns one dataset by id.
func GetDataset(svc datasetsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "datasetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dataset, err := svc.GetDataset(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dataset)
	}
}

// ListDatasets returns a requirement's datasets.
func ListDatasets(svc datasetsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requirementID, err := parseIDParam(r, "requirementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.ListDatasets(r.Context(), requirementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, out)
	}
}

// RecomputeDatasetMetrics refreshes and returns the dataset's counters.
func RecomputeDatasetMetrics(svc datasetsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "datasetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		metrics, err := svc.Recompute(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, metrics)
	}
}
