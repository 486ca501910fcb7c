package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaygate/internal/admission/config"
	"relaygate/internal/admission/models"
	"relaygate/internal/admission/store/registry"
	"relaygate/internal/platform/health"
	"relaygate/pkg/testutil"
)

func newServer(t *testing.T, cfg *config.Config) (*App, *httptest.Server) {
	t.Helper()
	_, client := testutil.NewRedis(t)
	a, err := New(client, config.NewStatic(cfg), Options{
		Logger:     testutil.DiscardLogger(),
		AdminToken: "secret",
		HealthChecks: map[string]health.CheckFunc{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	srv := httptest.NewServer(a.Handler)
	t.Cleanup(srv.Close)
	return a, srv
}

func call(t *testing.T, method, url, body string, header map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestProbesAndMetrics(t *testing.T) {
	_, srv := newServer(t, nil)

	resp, body := call(t, http.MethodGet, srv.URL+"/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"redis":"up"`)

	call(t, http.MethodGet, srv.URL+"/v1/accounts/claude/acct-1/eligibility", "", nil)
	resp, body = call(t, http.MethodGet, srv.URL+"/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `relaygate_http_request_duration_seconds_count{method="GET",route="/v1/accounts/{type}/{id}/eligibility",status="200"} 1`)
	assert.Contains(t, body, "relaygate_admission_store_degraded")
}

func TestAdminRoutesNeedToken(t *testing.T) {
	_, srv := newServer(t, nil)

	resp, _ := call(t, http.MethodGet, srv.URL+"/admin/accounts/claude/acct-1/breaker", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := call(t, http.MethodGet, srv.URL+"/admin/accounts/claude/acct-1/breaker", "",
		map[string]string{"X-Admin-Token": "secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"state":"disabled"`)
}

func TestRejectsNonJSONBodies(t *testing.T) {
	_, srv := newServer(t, nil)
	resp, _ := call(t, http.MethodPost, srv.URL+"/v1/accounts/claude/acct-1/admit", "max_wait_ms=1",
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestDispatchRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.MaxRequests = 1
	cfg.RateLimit.EnableQueueing = false
	cfg.CircuitBreaker.Enabled = true
	cfg.CircuitBreaker.Threshold = 1
	a, srv := newServer(t, cfg)
	require.NoError(t, a.Registry.(*registry.RedisStore).Save(context.Background(), &models.AccountRecord{
		Type: models.AccountTypeGemini, ID: "g-1", Fields: map[string]string{"name": "g-1"},
	}))
	base := srv.URL + "/v1/accounts/gemini/g-1"
	fast := `{"max_wait_ms":0,"min_interval_ms":0}`

	resp, body := call(t, http.MethodPost, base+"/admit", fast, map[string]string{"X-Request-ID": "r-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"request_id":"r-1"`)

	// Next second so pacing admits, while the single slot is still held.
	time.Sleep(time.Until(time.Now().Truncate(time.Second).Add(time.Second)))
	resp, body = call(t, http.MethodPost, base+"/admit", fast, map[string]string{"X-Request-ID": "r-2"})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, `"reason":"rate_limit_exceeded"`)

	resp, _ = call(t, http.MethodDelete, base+"/slots/r-1", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = call(t, http.MethodPost, base+"/responses", `{"status":403}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"triggered":true`)

	resp, body = call(t, http.MethodGet, base+"/eligibility", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"eligible":false`)
}

func TestReadinessReportsPacingFallback(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	a, err := New(client, config.NewStatic(nil), Options{
		Logger: testutil.DiscardLogger(),
		HealthChecks: map[string]health.CheckFunc{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	srv := httptest.NewServer(a.Handler)
	t.Cleanup(srv.Close)

	mr.SetError("LOADING Redis is loading the dataset in memory")
	resp, body := call(t, http.MethodPost, srv.URL+"/v1/accounts/claude/acct-1/admit", `{"max_wait_ms":0,"min_interval_ms":0}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = call(t, http.MethodGet, srv.URL+"/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, `"degraded":["pacing"]`)

	mr.SetError("")
	call(t, http.MethodPost, srv.URL+"/v1/accounts/claude/acct-2/admit", `{"max_wait_ms":0,"min_interval_ms":0}`, nil)
	_, body = call(t, http.MethodGet, srv.URL+"/health/ready", "", nil)
	assert.NotContains(t, body, "degraded")
}
