package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so all endpoints share
// one body shape for errors:
//
//	{"error": "validation_error", "message": "name is required", "field": "name"}
//
// Services return apperror values; this file is the only place those kinds
// become HTTP status codes.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
)

// maxJSONBodyBytes caps JSON request bodies. Images go through multipart and
// have their own limit.
const maxJSONBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending request field, when known
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
//	ErrValidation   → 400 validation_error
//	ErrUnauthorized → 401 unauthorized
//	ErrNotFound     → 404 not_found
//	ErrConflict     → 409 conflict
//	anything else   → 500 internal_error (details are logged, never sent)
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	slog.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// Unauthorized is the auth.UnauthorizedFunc used with auth.RequireAuth.
func Unauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	msg := "invalid or expired token"
	if errors.Is(err, auth.ErrNoCredentials) {
		msg = "authentication credentials were not provided"
	}
	writeError(w, apperror.Unauthorized(msg))
}

// NotFound renders unknown routes in the standard error shape.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: fmt.Sprintf("no route for %s", r.URL.Path),
	})
}

// MethodNotAllowed renders a 405 in the standard error shape. chi has already
// set the Allow header by the time this runs.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "method_not_allowed",
		Message: fmt.Sprintf("method %q not allowed", r.Method),
	})
}

// TooManyRequests renders a 429 for rate-limited clients.
func TooManyRequests(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:   "rate_limited",
		Message: "too many requests, slow down",
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are rejected so typos in a PATCH do not silently no-op.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "request body must not be empty")
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("", "request body too large")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return apperror.ValidationFailed(field, fmt.Sprintf("unknown field %q", field))
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperror.ValidationFailed(typeErr.Field,
				fmt.Sprintf("%s has the wrong type", typeErr.Field))
		}
		return apperror.ValidationFailed("", "invalid JSON body: "+err.Error())
	}
	if dec.More() {
		return apperror.ValidationFailed("", "request body must contain a single JSON object")
	}
	return nil
}

// currentUserID returns the caller's ID. Routes using it sit behind
// auth.RequireAuth, so a missing ID means the router is miswired.
func currentUserID(r *http.Request) (string, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return "", apperror.Unauthorized("authentication credentials were not provided")
	}
	return id, nil
}

// pathID parses the {id} URL parameter. A non-numeric id cannot name a row,
// so it is reported as not found.
func pathID(r *http.Request, resource string) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound(resource, raw)
	}
	return id, nil
}
