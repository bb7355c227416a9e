package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"linkstudio/internal/auth"
	"linkstudio/internal/claim"
	"linkstudio/internal/docstore"
	"linkstudio/internal/pages"
	"linkstudio/internal/profile"
	"linkstudio/internal/slug"

	"github.com/rs/zerolog"
)

// ErrUnconfigured answers store-backed routes while no store is configured.
var ErrUnconfigured = errors.New("the page store is not configured: set DATABASE_URL or DOCSTORE=memory")

// apiError is the JSON body of every failed request.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, apiError{Code: "BAD_JSON", Message: "bad json"})
}

// writeError maps domain errors to a status and apiError.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, body := describe(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, body)
}

func describe(err error) (int, apiError) {
	var (
		verr  *slug.ValidationError
		taken *pages.SlugTakenError
		cerr  *claim.Error
		pverr *pages.ValidationError
		ferr  *profile.FieldError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, apiError{Code: string(verr.Code), Message: verr.Error()}
	case errors.As(err, &taken):
		return http.StatusConflict, apiError{Code: "SLUG_TAKEN", Message: taken.Error(), Details: map[string]any{"slug": taken.Slug, "suggestions": taken.Suggestions}}
	case errors.Is(err, slug.ErrTaken):
		body := apiError{Code: "SLUG_TAKEN", Message: slug.ErrTaken.Error()}
		if errors.As(err, &cerr) {
			body.Details = map[string]any{"suggestions": cerr.Suggestions}
		}
		return http.StatusConflict, body
	case errors.As(err, &pverr):
		return http.StatusBadRequest, apiError{Code: "INVALID_INPUT", Message: pverr.Message, Details: map[string]any{"field": pverr.Field}}
	case errors.As(err, &ferr):
		return http.StatusBadRequest, apiError{Code: "INVALID_PROFILE", Message: ferr.Message, Details: map[string]any{"field": ferr.Field, "layout": ferr.Layout}}
	case errors.Is(err, profile.ErrUnknownLayout):
		return http.StatusBadRequest, apiError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, pages.ErrNotFound), errors.Is(err, pages.ErrLinkNotFound):
		return http.StatusNotFound, apiError{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, claim.ErrNotDurable):
		return http.StatusForbidden, apiError{Code: "FORBIDDEN", Message: err.Error()}
	case docstore.IsPermissionDenied(err):
		return http.StatusForbidden, apiError{Code: "PERMISSION_DENIED", Message: "the page store denied access; check the document access rules for this deployment"}
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, apiError{Code: "EMAIL_TAKEN", Message: err.Error()}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, apiError{Code: "INVALID_CREDENTIALS", Message: err.Error()}
	case errors.Is(err, ErrUnconfigured):
		return http.StatusServiceUnavailable, apiError{Code: "CONFIGURATION_REQUIRED", Message: err.Error()}
	}
	if errors.As(err, &cerr) && cerr.Recoverable {
		return http.StatusServiceUnavailable, apiError{Code: "CLAIM_FAILED", Message: "the page could not be saved, try again"}
	}
	return http.StatusInternalServerError, apiError{Code: "INTERNAL", Message: "server error"}
}
