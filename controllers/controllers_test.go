package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srishtayal/nalum-sub003/services"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"Validation", fmt.Errorf("%w: recipient is required", services.ErrValidation), http.StatusBadRequest, `{"error":"invalid input: recipient is required"}`},
		{"Unauthorized", services.ErrUnauthorized, http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"Forbidden", fmt.Errorf("%w: only the requester may cancel", services.ErrForbidden), http.StatusForbidden, `{"error":"forbidden: only the requester may cancel"}`},
		{"NotFound", services.ErrNotFound, http.StatusNotFound, `{"error":"not found"}`},
		{"Conflict", fmt.Errorf("%w: connection request already exists", services.ErrConflict), http.StatusConflict, `{"error":"already exists: connection request already exists"}`},
		{"RateLimited", services.ErrRateLimited, http.StatusTooManyRequests, `{"error":"rate limit exceeded"}`},
		{"InternalMasked", errors.New("failed to query table 'Messages': connection refused"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
