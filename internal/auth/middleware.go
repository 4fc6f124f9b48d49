package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/sanctum-auth/internal/entities"
)

// Context keys for per-request auth data
const (
	ContextKeyAuthState      = "auth_state"
	ContextKeyRequestContext = "auth_request_context"
)

// RequestContextMiddleware attaches a GinContext to every request so all
// backend calls made while handling it share one view of the cookies. GET,
// HEAD and OPTIONS requests render; other methods are browser actions.
func RequestContextMiddleware(secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyRequestContext, newGinContextFor(c, secureCookies))
		c.Next()
	}
}

// GetRequestContext returns the request's GinContext, creating one with
// secure cookies when RequestContextMiddleware did not run.
func GetRequestContext(c *gin.Context) *GinContext {
	if v, exists := c.Get(ContextKeyRequestContext); exists {
		if rc, ok := v.(*GinContext); ok {
			return rc
		}
	}
	rc := newGinContextFor(c, true)
	c.Set(ContextKeyRequestContext, rc)
	return rc
}

// GetAuthState returns the state a guard settled on for this request.
func GetAuthState(c *gin.Context) entities.AuthState {
	if v, exists := c.Get(ContextKeyAuthState); exists {
		if state, ok := v.(entities.AuthState); ok {
			return state
		}
	}
	return entities.NewAuthState()
}

// GetUser returns the signed in user a guard loaded, or nil.
func GetUser(c *gin.Context) entities.User {
	state := GetAuthState(c)
	if !state.LoggedIn {
		return nil
	}
	return state.User
}

// isAPIRequest determines if this is an API request vs web browser request.
func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}

	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}

	// fetch() and XHR callers
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}

	return false
}

// isLocalPath checks if a path is a safe local redirect target.
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}

	// Must start with /
	if !strings.HasPrefix(path, "/") {
		return false
	}

	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}

	// Reject URLs with schemes
	if strings.Contains(path, "://") {
		return false
	}

	// Reject paths with backslashes (potential bypass attempts)
	if strings.Contains(path, "\\") {
		return false
	}

	return true
}

// SanitizeRedirectPath returns path when it stays on this site, fallback otherwise.
func SanitizeRedirectPath(path, fallback string) string {
	if isLocalPath(path) {
		return path
	}
	return fallback
}
