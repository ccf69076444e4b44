// Package security provides security middleware for the risk oracle API.
package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeadersMiddleware adds security headers to all responses
func HeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		c.Header("X-Frame-Options", "DENY")

		c.Header("Referrer-Policy", "no-referrer")

		// JSON API only: nothing to load, nothing to frame
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// Verdicts are per-request; never cache them
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}

// OriginPolicy decides which browser origins may call the API or open the
// realtime feed.
type OriginPolicy struct {
	origins  map[string]bool
	wildcard bool
}

// NewOriginPolicy builds a policy from CORS_ORIGINS. An empty list or "*"
// allows every origin.
func NewOriginPolicy(allowed []string) *OriginPolicy {
	p := &OriginPolicy{origins: make(map[string]bool, len(allowed)), wildcard: len(allowed) == 0}
	for _, o := range allowed {
		if o == "*" {
			p.wildcard = true
		}
		p.origins[strings.TrimSuffix(o, "/")] = true
	}
	return p
}

// Allowed reports whether origin is permitted.
func (p *OriginPolicy) Allowed(origin string) bool {
	return p.wildcard || p.origins[origin]
}

// CheckWebSocketOrigin is a websocket.Upgrader CheckOrigin func. Non-browser
// clients (no Origin) and same-host pages are always accepted.
func (p *OriginPolicy) CheckWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	return p.Allowed(origin)
}

// CORSMiddleware handles CORS for API endpoints
func CORSMiddleware(policy *OriginPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if origin != "" && policy.Allowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID, X-Agent-ID")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
			c.Header("Access-Control-Max-Age", "86400")
			// Wildcard origins must not be combined with credentials
			if !policy.wildcard {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		// Handle preflight
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
