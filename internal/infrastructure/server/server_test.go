package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipflow/command-proxy/internal/infrastructure/config"
	"github.com/chipflow/command-proxy/internal/infrastructure/logging"
)

const trusted = "https://configurator.chipflow.io"

func testConfig(t *testing.T, backendURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Admin.Addr = "127.0.0.1:0"
	cfg.Logging.Development = true
	if backendURL != "" {
		host, port, ok := strings.Cut(strings.TrimPrefix(backendURL, "http://"), ":")
		require.True(t, ok)
		cfg.Backend.Host = host
		cfg.Backend.Port = port
	}
	return cfg
}

func TestNewServerEndToEnd(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("done"))
	}))
	defer backend.Close()

	srv, err := New(testConfig(t, backend.URL), logging.NewNop())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/execute",
		strings.NewReader(`{"command":"simpleBrowser.api.open","args":["https://github.com/ChipFlow"]}`))
	req.Header.Set("Origin", trusted)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "done", w.Body.String())
	assert.Equal(t, trusted, w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNewServerAdmin(t *testing.T) {
	srv, err := New(testConfig(t, ""), logging.NewNop())
	require.NoError(t, err)
	require.NotNil(t, srv.AdminHandler())

	w := httptest.NewRecorder()
	srv.AdminHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","backend":"localhost:3000"}`, w.Body.String())

	// Proxy traffic shows up on the admin metrics endpoint
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/execute", nil))
	w = httptest.NewRecorder()
	srv.AdminHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `command_proxy_http_requests_total{method="GET",route="unmatched",status="405"} 1`)
}

func TestNewServerAdminDisabled(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Admin.Enabled = false

	srv, err := New(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.Nil(t, srv.AdminHandler())
}

func TestNewServerRateLimit(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1

	srv, err := New(cfg, logging.NewNop())
	require.NoError(t, err)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/execute", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusMethodNotAllowed, http.StatusTooManyRequests}, codes)
}

func TestNewServerGlobalRateLimit(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Global = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1

	srv, err := New(cfg, logging.NewNop())
	require.NoError(t, err)

	// Distinct clients share the single bucket
	codes := make([]int, 0, 2)
	for _, addr := range []string{"10.0.0.1:5555", "10.0.0.2:5555"} {
		req := httptest.NewRequest(http.MethodGet, "/execute", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusMethodNotAllowed, http.StatusTooManyRequests}, codes)
}

func TestNewServerBadPolicyFile(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Security.PolicyFile = "/nonexistent/policy.yaml"

	_, err := New(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestNewServerBadLogLevel(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Logging.Level = "chatty"

	_, err := NewServer(cfg)
	assert.Error(t, err)
}

func TestRunAndShutdown(t *testing.T) {
	srv, err := New(testConfig(t, ""), logging.NewNop())
	require.NoError(t, err)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, srv.Close())

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
