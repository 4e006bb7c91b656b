package httpapi

import (
	"context"
	"errors"
	"net/http"

	"festivalhub/internal/apperr"
	"festivalhub/internal/logging"
)

type errorResponse struct {
	Error    string   `json:"error"`
	Kind     string   `json:"kind,omitempty"`
	Details  []string `json:"details,omitempty"`
	Required string   `json:"requiredState,omitempty"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:      http.StatusBadRequest,
	apperr.KindReference:       http.StatusBadRequest,
	apperr.KindStateGuard:      http.StatusConflict,
	apperr.KindAuthorization:   http.StatusForbidden,
	apperr.KindUnauthenticated: http.StatusUnauthorized,
	apperr.KindNotFound:        http.StatusNotFound,
	apperr.KindConflict:        http.StatusConflict,
}

// statusFor maps a failure kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError renders err as a structured failure. Unclassified errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.FromContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Kind: string(apperr.KindInternal)})
		return
	}

	writeJSON(w, statusFor(e.Kind), errorResponse{
		Error:    e.Message,
		Kind:     string(e.Kind),
		Details:  e.Details,
		Required: e.Required,
	})
}
