package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/markbang/cyop/api/middleware"
	"github.com/markbang/cyop/api/responses"
	"github.com/markbang/cyop/api/validators"
	captionsvc "github.com/markbang/cyop/internal/captions"
	"github.com/markbang/cyop/pkg/enums"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
	"github.com/markbang/cyop/pkg/logger"
	"github.com/markbang/cyop/pkg/pagination"
)

func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name)
	}
	return id, nil
}

func parseStatusFilter(r *http.Request) (*enums.CaptionStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseCaptionStatus(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	return &status, nil
}

type createCaptionRequest struct {
	MediaAssetID     int64   `json:"media_asset_id" validate:"required,min=1"`
	ManualCaption    *string `json:"manual_caption,omitempty"`
	PromptTemplateID *int64  `json:"prompt_template_id,omitempty"`
}

// CreateCaption handles manual caption creation.
func CreateCaption(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "caption service unavailable"))
			return
		}

		var payload createCaptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		caption, err := svc.Create(r.Context(), captionsvc.CreateInput{
			MediaAssetID:     payload.MediaAssetID,
			ManualCaption:    payload.ManualCaption,
			PromptTemplateID: payload.PromptTemplateID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, caption)
	}
}

// GetCaption returns one caption by id.
func GetCaption(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "captionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		caption, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, caption)
	}
}

// ListCaptions returns a dataset's captions, newest first, cursor-paginated.
func ListCaptions(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasetID, err := parseIDParam(r, "datasetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := parseStatusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), datasetID, status, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next := ""
		if len(rows) == limit {
			last := rows[len(rows)-1].Caption
			next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}
		responses.WriteSuccess(w, map[string]any{
			"captions":    rows,
			"next_cursor": next,
		})
	}
}

type updateCaptionRequest struct {
	ManualCaption   *string `json:"manual_caption,omitempty"`
	FinalCaption    *string `json:"final_caption,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// UpdateCaption handles partial caption edits.
func UpdateCaption(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "captionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCaptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := captionsvc.UpdateInput{
			ManualCaption:   payload.ManualCaption,
			FinalCaption:    payload.FinalCaption,
			RejectionReason: payload.RejectionReason,
		}
		if payload.Status != nil {
			status, err := enums.ParseCaptionStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status"))
				return
			}
			input.Status = &status
		}

		caption, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, caption)
	}
}

type reviewRequest struct {
	ApprovedBy *string `json:"approved_by,omitempty"`
	Reason     *string `json:"reason,omitempty"`
}

func (p reviewRequest) approver(r *http.Request) string {
	if p.ApprovedBy != nil && strings.TrimSpace(*p.ApprovedBy) != "" {
		return strings.TrimSpace(*p.ApprovedBy)
	}
	return middleware.UserIDFromContext(r.Context())
}

func (p reviewRequest) reason() string {
	if p.Reason != nil {
		return strings.TrimSpace(*p.Reason)
	}
	return ""
}

// ApproveCaption approves one caption; approvedBy defaults to the session
// identity when the body omits it.
func ApproveCaption(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "captionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := decodeOptionalReview(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		caption, err := svc.Approve(r.Context(), id, payload.approver(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, caption)
	}
}

// RejectCaption rejects one caption with an optional reason.
func RejectCaption(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "captionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := decodeOptionalReview(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		caption, err := svc.Reject(r.Context(), id, payload.reason())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, caption)
	}
}

type batchReviewRequest struct {
	CaptionIDs []int64 `json:"caption_ids" validate:"required,min=1,dive,min=1"`
	ApprovedBy *string `json:"approved_by,omitempty"`
	Reason     *string `json:"reason,omitempty"`
}

// ApproveCaptionsBatch approves many captions with per-item failure reporting.
func ApproveCaptionsBatch(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload batchReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approvedBy := middleware.UserIDFromContext(r.Context())
		if payload.ApprovedBy != nil && strings.TrimSpace(*payload.ApprovedBy) != "" {
			approvedBy = strings.TrimSpace(*payload.ApprovedBy)
		}

		result, err := svc.ApproveBatch(r.Context(), payload.CaptionIDs, approvedBy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// RejectCaptionsBatch rejects many captions with per-item failure reporting.
func RejectCaptionsBatch(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload batchReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason := ""
		if payload.Reason != nil {
			reason = strings.TrimSpace(*payload.Reason)
		}

		result, err := svc.RejectBatch(r.Context(), payload.CaptionIDs, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type regenerateRequest struct {
	PromptTemplateID *int64 `json:"prompt_template_id,omitempty"`
}

// RegenerateCaption queues a caption for a fresh AI run.
func RegenerateCaption(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "captionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload regenerateRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		caption, err := svc.Regenerate(r.Context(), id, payload.PromptTemplateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, caption)
	}
}

// DeleteCaption removes a caption permanently.
func DeleteCaption(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "captionId")
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

type triggerCaptioningRequest struct {
	PromptTemplateID *int64 `json:"prompt_template_id,omitempty"`
}

// TriggerCaptioning queues AI captioning for every uncaptioned asset in the dataset.
func TriggerCaptioning(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasetID, err := parseIDParam(r, "datasetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload triggerCaptioningRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		ids, err := svc.TriggerCaptioning(r.Context(), datasetID, payload.PromptTemplateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
			"queued":      len(ids),
			"caption_ids": ids,
		})
	}
}

// ExportCaptions streams the dataset's captions in the requested format.
// JSON and CSV download as one file; TXT returns the per-asset file list.
func ExportCaptions(svc captionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasetID, err := parseIDParam(r, "datasetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := parseStatusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		format, err := enums.ParseExportFormat(strings.TrimSpace(r.URL.Query().Get("format")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid export format"))
			return
		}

		result, err := svc.Export(r.Context(), datasetID, status, format)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if result.Format == enums.ExportFormatTXT {
			responses.WriteSuccess(w, map[string]any{"files": result.Files})
			return
		}

		w.Header().Set("Content-Type", result.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
	}
}

func decodeOptionalReview(r *http.Request) (reviewRequest, error) {
	var payload reviewRequest
	if r.ContentLength > 0 {
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return reviewRequest{}, err
		}
	}
	return payload, nil
}
