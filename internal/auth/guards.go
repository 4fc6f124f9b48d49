package auth

import (
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

// GuardRegistry holds the route guards as gin middleware, keyed by name.
type GuardRegistry struct {
	client *sanctum.Client
	guards map[sanctum.GuardName]gin.HandlerFunc
}

// NewGuardRegistry registers auth, guest, verified and unverified.
func NewGuardRegistry(client *sanctum.Client) *GuardRegistry {
	r := &GuardRegistry{
		client: client,
		guards: make(map[sanctum.GuardName]gin.HandlerFunc, len(sanctum.GuardNames)),
	}
	for _, name := range sanctum.GuardNames {
		r.guards[name] = r.handler(name)
	}
	return r
}

// Get returns the middleware registered under name.
func (r *GuardRegistry) Get(name sanctum.GuardName) (gin.HandlerFunc, error) {
	h, ok := r.guards[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", sanctum.ErrUnknownGuard, name)
	}
	return h, nil
}

// Require is Get for route setup, where an unknown name is a programming error.
func (r *GuardRegistry) Require(name sanctum.GuardName) gin.HandlerFunc {
	h, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return h
}

// handler runs the guard before the route. Browsers are redirected; API
// callers get 401 when they need to sign in and 403 otherwise, with the
// redirect target in the body.
func (r *GuardRegistry) handler(name sanctum.GuardName) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rc := GetRequestContext(c)

		redirect, err := r.client.Check(ctx, rc, name)
		if err != nil {
			log.Printf("[GUARD] %s failed on %s: %v", name, c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "route guard failed"})
			return
		}
		c.Set(ContextKeyAuthState, r.client.State(ctx))

		if redirect == "" {
			c.Next()
			return
		}

		redirects := r.client.Config().Redirects
		if isAPIRequest(c) {
			status, message := http.StatusForbidden, "not allowed"
			switch redirect {
			case redirects.Login:
				status, message = http.StatusUnauthorized, "authentication required"
			case redirects.Verify:
				message = "email verification required"
			}
			c.AbortWithStatusJSON(status, gin.H{
				"error":    message,
				"redirect": redirect,
			})
			return
		}

		if redirect == redirects.Login {
			redirect += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		}
		c.Redirect(http.StatusFound, redirect)
		c.Abort()
	}
}
