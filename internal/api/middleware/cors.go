package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Context keys set by CORS for downstream handlers.
const (
	OriginKey        = "origin"
	OriginAllowedKey = "origin_allowed"
)

// OriginChecker reports whether a caller origin is trusted.
type OriginChecker interface {
	IsAllowedOrigin(origin string) bool
}

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	Origins      OriginChecker
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
	// OnPreflight, when set, observes every preflight outcome.
	OnPreflight func(allowed bool)
}

// DefaultCORSConfig returns the preflight policy for the command endpoint.
func DefaultCORSConfig(origins OriginChecker) CORSConfig {
	return CORSConfig{
		Origins:      origins,
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       24 * time.Hour,
	}
}

// RequestOrigin returns the caller origin: Origin, falling back to Referer.
func RequestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return r.Header.Get("Referer")
}

// Origin returns the origin resolved by CORS and whether it is allowed.
func Origin(c *gin.Context) (string, bool) {
	return c.GetString(OriginKey), c.GetBool(OriginAllowedKey)
}

// CORS resolves the caller origin for every request and answers preflights.
// Allowed preflights get the CORS headers with the echoed origin, never a
// wildcard; all others get a plain 403. OPTIONS never reaches a handler.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := RequestOrigin(c.Request)
		allowed := cfg.Origins.IsAllowedOrigin(origin)
		c.Set(OriginKey, origin)
		c.Set(OriginAllowedKey, allowed)

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}

		if cfg.OnPreflight != nil {
			cfg.OnPreflight(allowed)
		}

		if !allowed {
			c.Data(http.StatusForbidden, "text/plain", []byte("Forbidden origin"))
			c.Abort()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Max-Age", maxAge)
		c.AbortWithStatus(http.StatusOK)
	}
}
