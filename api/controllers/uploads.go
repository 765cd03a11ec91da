package controllers

import (
	"net/http"

	"github.com/markbang/cyop/api/responses"
	"github.com/markbang/cyop/api/validators"
	uploadsvc "github.com/markbang/cyop/internal/uploads"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
	"github.com/markbang/cyop/pkg/logger"
)

type requestUploadRequest struct {
	DatasetID int64  `json:"dataset_id" validate:"required,min=1"`
	FileName  string `json:"file_name" validate:"required"`
	MimeType  string `json:"mime_type" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,min=1"`
}

// RequestUpload opens an upload session: asset row in pending_upload plus a
// presigned PUT for the client's direct transfer.
func RequestUpload(svc uploadsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		var payload requestUploadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.RequestUpload(r.Context(), uploadsvc.UploadRequest{
			DatasetID: payload.DatasetID,
			FileName:  payload.FileName,
			MimeType:  payload.MimeType,
			SizeBytes: payload.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

type finalizeUploadRequest struct {
	SizeBytes *int64  `json:"size_bytes,omitempty" validate:"omitempty,min=1"`
	Width     *int    `json:"width,omitempty" validate:"omitempty,min=1"`
	Height    *int    `json:"height,omitempty" validate:"omitempty,min=1"`
	Checksum  *string `json:"checksum,omitempty"`
}

// FinalizeUpload confirms a completed transfer. Omitted fields stay untouched.
func FinalizeUpload(svc uploadsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload finalizeUploadRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		asset, err := svc.FinalizeUpload(r.Context(), id, uploadsvc.FinalizeInput{
			SizeBytes: payload.SizeBytes,
			Width:     payload.Width,
			Height:    payload.Height,
			Checksum:  payload.Checksum,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, asset)
	}
}

// GetAsset returns one media asset by id.
func GetAsset(svc uploadsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asset, err := svc.GetAsset(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, asset)
	}
}

// ListAssets returns a dataset's media assets.
func ListAssets(svc uploadsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasetID, err := parseIDParam(r, "datasetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assets, err := svc.ListAssets(r.Context(), datasetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, assets)
	}
}

// DeleteAsset removes the asset row and best-effort deletes the stored object.
func DeleteAsset(svc uploadsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteAsset(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
