package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "relaygate/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type durationRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

func (r *durationRequest) Validate() error {
	if r.DurationMinutes < 0 {
		return errors.New("duration_minutes must not be negative")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodeJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"duration_minutes":15}`))
		w := httptest.NewRecorder()
		req, ok := DecodeJSON[durationRequest](w, r, discardLogger(), ctx, "req-1")
		require.True(t, ok)
		assert.Equal(t, 15, req.DurationMinutes)
	})

	t.Run("empty body yields zero value", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		w := httptest.NewRecorder()
		req, ok := DecodeJSON[durationRequest](w, r, discardLogger(), ctx, "req-2")
		require.True(t, ok)
		assert.Equal(t, 0, req.DurationMinutes)
	})

	t.Run("malformed body writes 400", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"duration_minutes":`))
		w := httptest.NewRecorder()
		_, ok := DecodeJSON[durationRequest](w, r, discardLogger(), ctx, "req-3")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"duration_minutes":-1}`))
	w := httptest.NewRecorder()
	_, ok := DecodeAndValidate[durationRequest](w, r, discardLogger(), context.Background(), "req-4")
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "bad_request", body["error"])
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		code   dErrors.Code
		status int
		label  string
	}{
		{dErrors.CodeRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{dErrors.CodeUnavailable, http.StatusServiceUnavailable, "backend_unavailable"},
		{dErrors.CodeNotFound, http.StatusNotFound, "not_found"},
		{dErrors.CodeInternal, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(tc.code, "msg"))
		assert.Equal(t, tc.status, w.Code, tc.code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.label, body["error"])
		assert.Equal(t, "msg", body["error_description"])
	}

	w := httptest.NewRecorder()
	WriteError(w, errors.New("plain"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
