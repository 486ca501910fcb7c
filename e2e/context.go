package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"relaygate/internal/admission/config"
	"relaygate/internal/admission/models"
	"relaygate/internal/admission/store/registry"
	"relaygate/internal/app"
	"relaygate/pkg/testutil"
)

const adminToken = "e2e-admin-token"

// TestContext holds state between test steps. Every scenario gets its own
// relaygate stack on an in-process Redis.
type TestContext struct {
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	redis  *miniredis.Miniredis
	client *goredis.Client
	config *config.Config
	clock  *testutil.Clock
	app    *app.App
	server *httptest.Server
}

// NewTestContext creates a new test context
func NewTestContext() *TestContext {
	return &TestContext{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		clock:      testutil.NewClock(time.Now()),
	}
}

// Start boots relaygate with the given admission config. An empty document
// keeps the defaults.
func (tc *TestContext) Start(configYAML string) error {
	if tc.server != nil {
		return fmt.Errorf("relaygate already running")
	}
	cfg := config.DefaultConfig()
	if strings.TrimSpace(configYAML) != "" {
		if err := yaml.Unmarshal([]byte(configYAML), cfg); err != nil {
			return fmt.Errorf("parse admission config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mr, err := miniredis.Run()
	if err != nil {
		return fmt.Errorf("start redis: %w", err)
	}
	tc.redis = mr
	tc.client = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	tc.config = cfg

	tc.app, err = app.New(tc.client, config.NewStatic(cfg), app.Options{
		Logger:     testutil.DiscardLogger(),
		AdminToken: adminToken,
		BreakerNow: tc.clock.Now,
	})
	if err != nil {
		return err
	}
	tc.server = httptest.NewServer(tc.app.Handler)
	return nil
}

// Stop tears the scenario stack down.
func (tc *TestContext) Stop() {
	if tc.server != nil {
		tc.server.Close()
		tc.server = nil
	}
	if tc.app != nil {
		tc.app.Close()
		tc.app = nil
	}
	if tc.client != nil {
		_ = tc.client.Close()
		tc.client = nil
	}
	if tc.redis != nil {
		tc.redis.Close()
		tc.redis = nil
	}
}

// RegisterAccount stores an account record with extra hash fields.
func (tc *TestContext) RegisterAccount(accountType, id string, fields map[string]string) error {
	t, err := models.ParseAccountType(accountType)
	if err != nil {
		return err
	}
	record := &models.AccountRecord{Type: t, ID: id, Fields: map[string]string{"name": id}}
	for k, v := range fields {
		record.Fields[k] = v
	}
	return tc.app.Registry.(*registry.RedisStore).Save(context.Background(), record)
}

// Advance moves the breaker clock forward.
func (tc *TestContext) Advance(d time.Duration) {
	tc.clock.Advance(d)
}

// StoreDown makes every Redis command fail until StoreUp.
func (tc *TestContext) StoreDown() {
	tc.redis.SetError("LOADING Redis is loading the dataset in memory")
}

func (tc *TestContext) StoreUp() {
	tc.redis.SetError("")
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.POSTWithHeaders(path, body, nil)
}

// POSTWithHeaders makes a POST request with optional headers. A nil body
// sends no payload.
func (tc *TestContext) POSTWithHeaders(path string, body interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
		if headers == nil {
			headers = map[string]string{}
		}
		headers["Content-Type"] = "application/json"
	}
	return tc.do(http.MethodPost, path, reader, headers)
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) DELETE(path string, headers map[string]string) error {
	return tc.do(http.MethodDelete, path, nil, headers)
}

// AdminHeaders returns the headers admin routes require.
func (tc *TestContext) AdminHeaders() map[string]string {
	return map[string]string{"X-Admin-Token": adminToken, "X-Admin-Actor-ID": "e2e"}
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	if tc.server == nil {
		return fmt.Errorf("relaygate is not running")
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.server.URL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response: %s", field, string(tc.LastResponseBody))
	}
	return value, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}

	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}
	return false
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}
