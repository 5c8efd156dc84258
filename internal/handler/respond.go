package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/foodrescue/foodrescue/internal/apierror"
	"github.com/foodrescue/foodrescue/internal/service"
	"github.com/foodrescue/foodrescue/internal/validation"
)

const maxJSONBody = 1 << 20 // 1MB

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body is too large")
		}
		return errors.New("request body is not valid JSON")
	}
	return nil
}

// writeServiceError maps service sentinel errors to HTTP responses.
// Anything unrecognized is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		apierror.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		apierror.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrPostNotFound):
		apierror.NotFound(w, err.Error())
	case errors.Is(err, service.ErrPostUnavailable),
		errors.Is(err, service.ErrPickupWindowExpired),
		errors.Is(err, service.ErrEmailAlreadyExists):
		apierror.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		apierror.Unauthorized(w, err.Error())
	case errors.Is(err, validation.ErrFileTooLarge):
		apierror.WriteError(w, http.StatusRequestEntityTooLarge, apierror.CodeValidationError, validationMessage(err))
	case errors.Is(err, service.ErrInvalidInput):
		apierror.ValidationError(w, validationMessage(err))
	case errors.Is(err, service.ErrStorageDisabled):
		apierror.ServiceUnavailable(w, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		apierror.InternalError(w)
	}
}

// validationMessage strips the "invalid input: " prefix added by services.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
}
