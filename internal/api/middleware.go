package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuemap/cuemap/internal/ratelimit"
)

// =============================================================================
// AUTH MIDDLEWARE
// =============================================================================

// APIKeyAuthMiddleware returns middleware that checks for a valid API key.
// The health endpoint is always exempt. No-op if apiKey is empty.
func APIKeyAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		if c.Request.URL.Path == "/api/v1/health" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] == apiKey {
				c.Next()
				return
			}
		}

		if c.GetHeader("X-API-Key") == apiKey {
			c.Next()
			return
		}

		UnauthorizedError(c, "invalid or missing API key")
		c.Abort()
	}
}

// =============================================================================
// RATE LIMIT MIDDLEWARE
// =============================================================================

// routeToLimiterRoute maps an API path/method to the ratelimit route name
// it should be charged against (§5's backpressure categories).
func routeToLimiterRoute(path, method string) string {
	switch {
	case strings.HasSuffix(path, "/recall") || strings.HasSuffix(path, "/recall/grounded"):
		return "recall"
	case method == "POST" && strings.HasSuffix(path, "/memories"):
		return "remember"
	case strings.Contains(path, "/reinforce"):
		return "reinforce"
	case strings.Contains(path, "/consolidate"):
		return "consolidate"
	case strings.Contains(path, "/snapshot"):
		return "snapshot"
	default:
		return ""
	}
}

// RateLimitMiddleware returns middleware that rate-limits requests using
// the provided limiter.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		route := routeToLimiterRoute(c.Request.URL.Path, c.Request.Method)
		if route == "" {
			route = "default"
		}

		result := limiter.Allow(route)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			TooManyRequestsError(c, fmt.Sprintf("rate limit exceeded for %s, retry after %d seconds", result.LimitType, retryAfter))
			c.Abort()
			return
		}

		c.Next()
	}
}

// =============================================================================
// BODY SIZE MIDDLEWARE
// =============================================================================

// MaxBodySizeMiddleware returns middleware that limits request body size.
func MaxBodySizeMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && c.Request.ContentLength > maxBytes {
			PayloadTooLargeError(c, fmt.Sprintf("request body too large, maximum %d bytes", maxBytes))
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// =============================================================================
// VALIDATION CONSTANTS
// =============================================================================

const (
	MaxContentLength = 100 * 1024 // content bytes per memory
	MaxQueryLength   = 10 * 1024  // query_text bytes
	MaxCues          = 100
	MaxCueLength     = 200
	MaxLimit         = 1000
	DefaultLimit     = 10
	DefaultBodyLimit = 1 * 1024 * 1024 // 1MB
)

// =============================================================================
// VALIDATION HELPERS
// =============================================================================

// clampLimit keeps a recall limit within the accepted range.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// validateCues checks a cue list for size and per-cue length.
func validateCues(cues []string) error {
	if len(cues) > MaxCues {
		return fmt.Errorf("too many cues: %d (maximum %d)", len(cues), MaxCues)
	}
	for _, cue := range cues {
		if len(cue) > MaxCueLength {
			return fmt.Errorf("cue too long: %d characters (maximum %d)", len(cue), MaxCueLength)
		}
	}
	return nil
}

// validateContent checks content length.
func validateContent(content string) error {
	if len(content) > MaxContentLength {
		return fmt.Errorf("content too long: %d bytes (maximum %d)", len(content), MaxContentLength)
	}
	return nil
}

// validateQueryText checks query_text length.
func validateQueryText(q string) error {
	if len(q) > MaxQueryLength {
		return fmt.Errorf("query_text too long: %d bytes (maximum %d)", len(q), MaxQueryLength)
	}
	return nil
}
