package handler

// RESPONSE HELPERS:
// Every JSON response goes through writeJSON, every failure through
// writeError, so the API has exactly one error shape:
//
//	{"error": "not_found", "message": "snippet not found with id 12"}
//
// Validation failures add the per-field detail:
//
//	{
//	  "error":   "validation_error",
//	  "message": "invalid input: language: \"klingon\" is not a valid choice.",
//	  "fields":  {"language": ["\"klingon\" is not a valid choice."]},
//	  "choices": {"language": ["abap", "abnf", ...]}
//	}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-api/internal/apperror"
)

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Error   string              `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string              `json:"message"` // human-readable description
	Fields  map[string][]string `json:"fields,omitempty"`
	Choices map[string][]string `json:"choices,omitempty"`
}

// writeJSON sends data as JSON with the given status code.
// Headers must be set before WriteHeader; anything after is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent, all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and writes it.
//
// errors.Is walks the Unwrap chain, so a service error like
// fmt.Errorf("creating snippet: %w", apperror.NotFound(...)) still maps to 404.
// Errors that are not *apperror.AppError become a generic 500; their text
// may contain SQL or file paths and never reaches the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: "internal_error", Message: appErr.Message}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		resp.Error = "validation_error"
		resp.Fields = appErr.Fields
		resp.Choices = appErr.Choices
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		resp.Error = "not_found"
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
		resp.Error = "unauthorized"
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		resp.Error = "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		resp.Error = "conflict"
	}

	writeJSON(w, status, resp)
}

// writeParseError reports a body that is not a JSON object.
func writeParseError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "parse_error",
		Message: message,
	})
}

// notFound is used for routes whose {id} is not a positive integer. To
// the client it is indistinguishable from a missing record.
func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "Not found.",
	})
}

// HandleNotFound is the router-wide 404 handler.
func HandleNotFound(w http.ResponseWriter, _ *http.Request) {
	notFound(w)
}

// HandleMethodNotAllowed is the router-wide 405 handler.
func HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	methodNotAllowed(w, r)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "method_not_allowed",
		Message: `Method "` + r.Method + `" not allowed.`,
	})
}
