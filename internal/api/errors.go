// Package api exposes the query gateway over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"genbi/internal/domain"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeError maps domain error types to HTTP statuses. Unknown errors
// become opaque 500s so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	var (
		notFound   *domain.NotFoundError
		denied     *domain.AccessDeniedError
		validation *domain.ValidationError
		conflict   *domain.ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{http.StatusNotFound, notFound.Message})
	case errors.As(err, &denied):
		writeJSON(w, http.StatusUnauthorized, errorResponse{http.StatusUnauthorized, denied.Message})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{http.StatusBadRequest, validation.Message})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{http.StatusConflict, conflict.Message})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{http.StatusInternalServerError, "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}
