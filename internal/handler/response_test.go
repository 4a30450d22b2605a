package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/whyme0/chattings/internal/apperror"
)

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperror.ValidationFailed("label", "Field is empty."), http.StatusBadRequest, "validation_error"},
		{"not found", apperror.NotFound("chat", "7"), http.StatusNotFound, "not_found"},
		{"expired", apperror.Expired("Token expired."), http.StatusGone, "expired"},
		{"forbidden", apperror.Forbidden("Only the chat owner may edit it."), http.StatusForbidden, "forbidden"},
		{"conflict", apperror.Conflict("name", "A chat with that name already exists."), http.StatusConflict, "conflict"},
		{"not applicable", apperror.NotApplicable("Email is already confirmed."), http.StatusNotFound, "not_applicable"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		{"wrapped", fmt.Errorf("looking up chat: %w", apperror.NotFound("chat", "7")), http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, errors.New("pq: relation profiles does not exist"))

	var resp ErrorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "An internal error occurred", resp.Message)
	assert.NotContains(t, rr.Body.String(), "profiles")
}

func TestWriteErrorCarriesField(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.ValidationFailed("label", "Field is empty."))

	var resp ErrorResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "label", resp.Field)
	assert.Equal(t, "Field is empty.", resp.Message)
}
