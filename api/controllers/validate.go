package controllers

import (
	"net/http"

	"github.com/markbang/cyop/api/responses"
	"github.com/markbang/cyop/api/validators"
	"github.com/markbang/cyop/pkg/logger"
)

type DatasetPreflightBody struct {
	Name     string `json:"name" validate:"required,min=3,max=200"`
	FileName string `json:"file_name" validate:"omitempty,max=255"`
}

// PublicValidate lets clients preflight a dataset name and optional asset
// file name before authenticating, using the same constraints the create
// endpoints enforce.
func PublicValidate(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body DatasetPreflightBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"name":      validators.SanitizeString(body.Name, 200),
			"file_name": validators.SanitizeString(body.FileName, 255),
		})
	}
}
