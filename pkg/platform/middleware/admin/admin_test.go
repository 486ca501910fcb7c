package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var actor string
	h := RequireAdminToken("s3cret", logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = GetAdminActorID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(headers map[string]string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/admin/breakers/sweep", nil)
		for k, v := range headers {
			r.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	t.Run("missing token is rejected with a JSON error", func(t *testing.T) {
		w := serve(nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"unauthorized"`)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(map[string]string{HeaderAdminToken: "guess"}).Code)
	})

	t.Run("header token passes and captures actor", func(t *testing.T) {
		w := serve(map[string]string{HeaderAdminToken: "s3cret", HeaderActorID: "ops-1"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "ops-1", actor)
	})

	t.Run("bearer token passes", func(t *testing.T) {
		w := serve(map[string]string{"Authorization": "Bearer s3cret"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, UnknownActor, actor)
	})

	t.Run("long actor ids are truncated", func(t *testing.T) {
		serve(map[string]string{HeaderAdminToken: "s3cret", HeaderActorID: strings.Repeat("a", 200)})
		assert.Len(t, actor, maxActorIDLength)
	})

	t.Run("empty expected token rejects everything", func(t *testing.T) {
		locked := RequireAdminToken("", logger)(http.NotFoundHandler())
		w := httptest.NewRecorder()
		locked.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
