package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"grantly.org/internal/apperr"
	"grantly.org/internal/obs"
)

// writeError maps the closed error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is an internal error: the cause is logged under a
// generated correlation id and the caller sees only that id.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		badRequest   *apperr.BadRequestError
		unauthorized *apperr.UnauthorizedError
		notFound     *apperr.NotFoundError
		conflict     *apperr.ConflictError
		internal     *apperr.InternalError
	)
	switch {
	case errors.As(err, &badRequest):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":   apperr.CodeBadRequest,
			"issues": badRequest.Issues,
		})
	case errors.As(err, &unauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"code":  apperr.CodeUnauthorized,
			"issue": unauthorized.Reason,
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"code":     apperr.CodeNotFound,
			"resource": notFound.Resource,
		})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":              apperr.CodeConflict,
			"conflicting_field": conflict.Field,
		})
	case errors.As(err, &internal):
		writeInternalError(w, r, internal.Cause)
	default:
		writeInternalError(w, r, err)
	}
}

func writeInternalError(w http.ResponseWriter, r *http.Request, cause error) {
	errorID := uuid.NewString()
	entry := map[string]any{
		"level":    "error",
		"msg":      "internal error",
		"error_id": errorID,
		"method":   r.Method,
		"path":     r.URL.Path,
	}
	if cause != nil {
		entry["error"] = cause.Error()
	}
	obs.Log(entry)

	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"code":     apperr.CodeInternal,
		"error_id": errorID,
	})
}
