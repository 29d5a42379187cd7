package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantField  string
	}{
		{"validation", apperror.ValidationFailed("name", "name is required"), http.StatusBadRequest, "validation_error", "name"},
		{"wrapped validation", fmt.Errorf("creating: %w", apperror.ValidationFailed("title", "bad")), http.StatusBadRequest, "validation_error", "title"},
		{"not found", apperror.NotFound("recipe", 7), http.StatusNotFound, "not_found", ""},
		{"conflict", apperror.Conflict("user", "email"), http.StatusConflict, "conflict", "email"},
		{"unauthorized", apperror.Unauthorized("nope"), http.StatusUnauthorized, "unauthorized", ""},
		{"unknown", errors.New("sqlite: disk I/O error"), http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			body := decodeError(t, rr)
			assert.Equal(t, tt.wantType, body.Error)
			assert.Equal(t, tt.wantField, body.Field)
			assert.NotContains(t, body.Message, "sqlite", "internal details must not leak")
		})
	}
}

func TestUnauthorized(t *testing.T) {
	rr := httptest.NewRecorder()
	Unauthorized(rr, httptest.NewRequest(http.MethodGet, "/", nil), auth.ErrNoCredentials)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "authentication credentials were not provided", decodeError(t, rr).Message)

	rr = httptest.NewRecorder()
	Unauthorized(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("token expired"))
	assert.Equal(t, "invalid or expired token", decodeError(t, rr).Message)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantField string
	}{
		{"valid", `{"name":"curry","age":3}`, false, ""},
		{"empty body", ``, true, ""},
		{"malformed", `{"name":`, true, ""},
		{"unknown field", `{"nmae":"curry"}`, true, "nmae"},
		{"wrong type", `{"age":"three"}`, true, "age"},
		{"two objects", `{"name":"a"}{"name":"b"}`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "curry", dst.Name)
				return
			}
			require.ErrorIs(t, err, apperror.ErrValidation)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestIDsParam(t *testing.T) {
	tests := []struct {
		query   string
		want    []int64
		wantErr bool
	}{
		{"", nil, false},
		{"tags=", nil, false},
		{"tags=1", []int64{1}, false},
		{"tags=1,2,3", []int64{1, 2, 3}, false},
		{"tags=1,,2", []int64{1, 2}, false},
		{"tags=%201%20,2", []int64{1, 2}, false},
		{"tags=1,abc", nil, true},
		{"tags=-4", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/recipe/recipes?"+tt.query, nil)
			got, err := idsParam(r, "tags")
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssignedOnlyParam(t *testing.T) {
	tests := []struct {
		query   string
		want    bool
		wantErr bool
	}{
		{"", false, false},
		{"assigned_only=1", true, false},
		{"assigned_only=true", true, false},
		{"assigned_only=0", false, false},
		{"assigned_only=false", false, false},
		{"assigned_only=2", true, false},
		{"assigned_only=-1", true, false},
		{"assigned_only=00", false, false},
		{"assigned_only=yes", false, true},
		{"assigned_only=maybe", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/recipe/tags?"+tt.query, nil)
			got, err := assignedOnlyParam(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
