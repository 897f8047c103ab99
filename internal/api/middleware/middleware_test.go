package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipflow/command-proxy/internal/domain/policy"
	"github.com/chipflow/command-proxy/internal/infrastructure/logging"
)

const trusted = "https://configurator.chipflow.io"

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestCORSPreflight(t *testing.T) {
	var outcomes []bool
	cfg := DefaultCORSConfig(policy.DefaultAllowLists())
	cfg.OnPreflight = func(allowed bool) { outcomes = append(outcomes, allowed) }

	reached := false
	router := setupTestRouter()
	router.Use(CORS(cfg))
	router.OPTIONS("/execute", func(c *gin.Context) {
		reached = true
	})

	tests := []struct {
		name       string
		origin     string
		referer    string
		wantStatus int
	}{
		{"allowed origin", trusted, "", http.StatusOK},
		{"allowed subdomain prefix", trusted + ".preview", "", http.StatusOK},
		{"referer fallback", "", trusted, http.StatusOK},
		{"unknown origin", "https://evil.example", "", http.StatusForbidden},
		{"no origin", "", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/execute", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				want := tt.origin
				if want == "" {
					want = tt.referer
				}
				assert.Equal(t, want, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
				assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
				assert.Empty(t, w.Body.String())
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
				assert.Equal(t, "Forbidden origin", w.Body.String())
			}
		})
	}

	assert.False(t, reached, "preflight must not reach the handler")
	assert.Equal(t, []bool{true, true, true, false, false}, outcomes)
}

func TestCORSPreflightUnknownPath(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig(policy.DefaultAllowLists())))

	req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
	req.Header.Set("Origin", trusted)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, trusted, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSStoresOrigin(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig(policy.DefaultAllowLists())))

	var gotOrigin string
	var gotAllowed bool
	router.POST("/execute", func(c *gin.Context) {
		gotOrigin, gotAllowed = Origin(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/execute", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Non-preflight requests pass through with no CORS headers
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "https://evil.example", gotOrigin)
	assert.False(t, gotAllowed)
}

func TestRequestOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/execute", nil)
	assert.Empty(t, RequestOrigin(req))

	req.Header.Set("Referer", "https://b.example/page")
	assert.Equal(t, "https://b.example/page", RequestOrigin(req))

	req.Header.Set("Origin", "https://a.example")
	assert.Equal(t, "https://a.example", RequestOrigin(req))
}

func TestRequestID(t *testing.T) {
	router := setupTestRouter()
	router.Use(RequestID())

	var seen string
	router.POST("/execute", func(c *gin.Context) {
		seen = c.GetString(logging.RequestIDKey)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name     string
		inbound  string
		wantKeep bool
	}{
		{"generated", "", false},
		{"caller supplied", "trace-123", true},
		{"oversized replaced", strings.Repeat("x", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/execute", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			id := w.Header().Get(RequestIDHeader)
			assert.Equal(t, id, seen)
			if tt.wantKeep {
				assert.Equal(t, tt.inbound, id)
			} else {
				_, err := uuid.Parse(id)
				require.NoError(t, err)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping rate limit test in short mode")
	}

	router := setupTestRouter()

	cfg := RateLimitConfig{
		RequestsPerSecond: 2,
		Burst:             2,
	}
	router.Use(RateLimit(cfg))

	router.POST("/execute", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	// First 2 requests should succeed (burst capacity)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/execute", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	// Third request should be rate limited
	req := httptest.NewRequest(http.MethodPost, "/execute", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Rate limit exceeded"}`, w.Body.String())
}

func TestRateLimitDifferentClients(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping rate limit test in short mode")
	}

	router := setupTestRouter()

	cfg := RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             1,
	}
	router.Use(RateLimit(cfg))

	router.POST("/execute", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	// Client 1 - First request should succeed
	req1 := httptest.NewRequest(http.MethodPost, "/execute", nil)
	req1.RemoteAddr = "192.168.1.1:1234"
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	// Client 2 - First request should also succeed (different IP)
	req2 := httptest.NewRequest(http.MethodPost, "/execute", nil)
	req2.RemoteAddr = "192.168.1.2:1234"
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)

	// Client 1 - Second immediate request should be rate limited
	req3 := httptest.NewRequest(http.MethodPost, "/execute", nil)
	req3.RemoteAddr = "192.168.1.1:1234"
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req3)
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
}

func TestGlobalRateLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping rate limit test in short mode")
	}

	router := setupTestRouter()
	router.Use(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))
	router.POST("/execute", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	addrs := []string{"192.168.1.1:1234", "192.168.1.2:1234", "192.168.1.3:1234"}
	codes := make([]int, 0, len(addrs))
	for _, addr := range addrs {
		req := httptest.NewRequest(http.MethodPost, "/execute", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()

	assert.Equal(t, 10, cfg.RequestsPerSecond)
	assert.Equal(t, 20, cfg.Burst)
}

func BenchmarkCORS(b *testing.B) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig(policy.DefaultAllowLists())))
	router.POST("/execute", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/execute", nil)
	req.Header.Set("Origin", trusted)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1 << 20, Burst: 1 << 20}))
	router.POST("/execute", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/execute", nil)
	req.RemoteAddr = "192.168.1.1:1234"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}
