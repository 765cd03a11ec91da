package controllers

import (
	"net/http"
	"strings"

	"github.com/markbang/cyop/api/responses"
	"github.com/markbang/cyop/api/validators"
	templatesvc "github.com/markbang/cyop/internal/templates"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
	"github.com/markbang/cyop/pkg/logger"
)

type createTemplateRequest struct {
	Name         string `json:"name" validate:"required"`
	SystemPrompt string `json:"system_prompt" validate:"required"`
	UserPrompt   string `json:"user_prompt" validate:"required"`
	Model        string `json:"model" validate:"required"`
	MaxTokens    int    `json:"max_tokens" validate:"required,min=1"`
	Temperature  int    `json:"temperature" validate:"min=0,max=100"`
	IsActive     *bool  `json:"is_active,omitempty"`
}

// CreateTemplate handles prompt template creation.
func CreateTemplate(svc templatesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "template service unavailable"))
			return
		}

		var payload createTemplateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tpl, err := svc.Create(r.Context(), templatesvc.CreateInput{
			Name:         payload.Name,
			SystemPrompt: payload.SystemPrompt,
			UserPrompt:   payload.UserPrompt,
			Model:        payload.Model,
			MaxTokens:    payload.MaxTokens,
			Temperature:  payload.Temperature,
			IsActive:     payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, tpl)
	}
}

// GetTemplate returns one prompt template by id.
func GetTemplate(svc templatesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tpl, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tpl)
	}
}

// ListTemplates returns all templates; ?active=true narrows to active ones.
func ListTemplates(svc templatesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("active")), "true")

		out, err := svc.List(r.Context(), activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, out)
	}
}

type updateTemplateRequest struct {
	Name         *string `json:"name,omitempty"`
	SystemPrompt *string `json:"system_prompt,omitempty"`
	UserPrompt   *string `json:"user_prompt,omitempty"`
	Model        *string `json:"model,omitempty"`
	MaxTokens    *int    `json:"max_tokens,omitempty" validate:"omitempty,min=1"`
	Temperature  *int    `json:"temperature,omitempty" validate:"omitempty,min=0,max=100"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// UpdateTemplate applies a partial template edit.
func UpdateTemplate(svc templatesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateTemplateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tpl, err := svc.Update(r.Context(), id, templatesvc.UpdateInput{
			Name:         payload.Name,
			SystemPrompt: payload.SystemPrompt,
			UserPrompt:   payload.UserPrompt,
			Model:        payload.Model,
			MaxTokens:    payload.MaxTokens,
			Temperature:  payload.Temperature,
			IsActive:     payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tpl)
	}
}

// SetDefaultTemplate flags the template as the single default.
func SetDefaultTemplate(svc templatesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tpl, err := svc.SetDefault(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tpl)
	}
}

// DeleteTemplate removes a template permanently.
func DeleteTemplate(svc templatesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "templateId")
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
