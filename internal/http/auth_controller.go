package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/sanctum-auth/internal/auth"
	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

// statusOperation is the shape shared by the backend operations that take a
// payload and answer with a status.
type statusOperation func(ctx context.Context, rc sanctum.RequestContext, body any) (*sanctum.StatusResponse, error)

// AuthController exposes the backend's session operations to browser code and
// plain HTML forms. Every call runs in the visitor's request context, so the
// backend sees the visitor's own cookies.
type AuthController struct {
	client   *sanctum.Client
	sessions *auth.SessionManager
	limiter  *auth.RateLimiter
}

func NewAuthController(client *sanctum.Client, sessions *auth.SessionManager, limiter *auth.RateLimiter) *AuthController {
	return &AuthController{
		client:   client,
		sessions: sessions,
		limiter:  limiter,
	}
}

// RegisterRoutes mounts the /auth endpoints.
func (a *AuthController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/auth")

	group.GET("/csrf-token", a.CSRFToken)
	group.GET("/user", a.User)

	login := []gin.HandlerFunc{}
	if a.limiter != nil {
		login = append(login, a.limiter.RateLimitMiddleware())
	}
	group.POST("/login", append(login, a.Login)...)
	group.POST("/logout", a.Logout)

	group.POST("/register", a.forward("register", a.client.Register))
	group.POST("/forgot-password", a.forward("forgotPassword", a.client.ForgotPassword))
	group.POST("/reset-password", a.forward("resetPassword", a.client.ResetPassword))
	group.POST("/verify-email", a.forward("verifyEmail", a.client.VerifyEmail))
	group.POST("/resend-verification", a.forward("resendEmailVerification",
		func(ctx context.Context, rc sanctum.RequestContext, _ any) (*sanctum.StatusResponse, error) {
			return a.client.ResendEmailVerification(ctx, rc)
		}))
}

// CSRFToken hands browser code the token for the frontend's own endpoints.
func (a *AuthController) CSRFToken(c *gin.Context) {
	token := auth.GetCSRFToken(c)
	c.Header(auth.CSRFTokenHeader, token)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// User returns the signed in user. ?refresh=1 bypasses the session cache.
func (a *AuthController) User(c *gin.Context) {
	refresh := c.Query("refresh") == "1" || c.Query("refresh") == "true"

	user := a.client.GetUser(c.Request.Context(), a.requestContext(c), refresh)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "not signed in")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":     user,
		"verified": user.IsVerified(),
	})
}

// Login signs the visitor in with the backend, then loads their profile into
// a renewed session.
func (a *AuthController) Login(c *gin.Context) {
	payload, ok := bindPayload(c)
	if !ok {
		return
	}
	redirects := a.client.Config().Redirects
	next := takeNext(payload, redirects.Home)
	email, _ := payload["email"].(string)

	ctx := c.Request.Context()
	rc := a.requestContext(c)

	resp, err := a.client.Login(ctx, rc, payload)
	if err != nil {
		if a.limiter != nil && email != "" && isRejection(err) {
			if locked, lockout := a.limiter.RecordFailure(c.ClientIP(), email); locked {
				log.Printf("Login locked out for %s after repeated failures (%s)", email, lockout)
			}
		}
		if wantsJSON(c) {
			respondBackendError(c, err, "login")
			return
		}
		redirectWithError(c, redirects.Login+"?next="+url.QueryEscape(next), loginErrorMessage(err))
		return
	}

	if err := a.sessions.RenewSession(c.Request); err != nil {
		log.Printf("Failed to renew session after login: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to start session")
		return
	}
	if a.limiter != nil && email != "" {
		a.limiter.RecordSuccess(c.ClientIP(), email)
	}

	// Login left a fresh token in its cookie
	if a.client.Config().Token {
		a.client.GetToken(ctx, rc)
	}
	user := a.client.GetUser(ctx, rc, true)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"status":   resp.Status,
			"user":     user,
			"redirect": next,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

// Logout signs out with the backend. Local state is cleared even when the
// backend call fails.
func (a *AuthController) Logout(c *gin.Context) {
	a.client.Logout(c.Request.Context(), a.requestContext(c))

	if err := a.sessions.RenewSession(c.Request); err != nil {
		log.Printf("Failed to renew session after logout: %v", err)
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"status": "logged out"})
		return
	}
	c.Redirect(http.StatusSeeOther, a.client.Config().Redirects.Login)
}

// forward relays a payload to one of the status operations.
func (a *AuthController) forward(op string, call statusOperation) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, ok := bindPayload(c)
		if !ok {
			return
		}
		next := takeNext(payload, a.client.Config().Redirects.Home)

		resp, err := call(c.Request.Context(), a.requestContext(c), payload)
		if err != nil {
			if wantsJSON(c) {
				respondBackendError(c, err, op)
				return
			}
			redirectWithError(c, refererPath(c, next), backendMessage(err))
			return
		}

		if wantsJSON(c) {
			c.JSON(http.StatusOK, resp)
			return
		}
		target := next
		if resp.Status != "" {
			target += separatorFor(target) + "status=" + url.QueryEscape(resp.Status)
		}
		c.Redirect(http.StatusSeeOther, target)
	}
}

// requestContext returns the visitor's request context. In token mode the
// bearer token is loaded from its cookie first, as the guards do.
func (a *AuthController) requestContext(c *gin.Context) *auth.GinContext {
	rc := auth.GetRequestContext(c)
	if a.client.Config().Token {
		a.client.GetToken(c.Request.Context(), rc)
	}
	return rc
}

// takeNext removes the post-action destination from a payload so it is not
// forwarded to the backend.
func takeNext(payload map[string]any, fallback string) string {
	next, _ := payload["next"].(string)
	delete(payload, "next")
	return auth.SanitizeRedirectPath(next, fallback)
}

// refererPath returns the local page a form was posted from.
func refererPath(c *gin.Context, fallback string) string {
	u, err := url.Parse(c.Request.Referer())
	if err != nil || u.Host != c.Request.Host {
		return fallback
	}
	return auth.SanitizeRedirectPath(u.RequestURI(), fallback)
}

// isRejection reports whether the backend refused the credentials, as opposed
// to failing.
func isRejection(err error) bool {
	var httpErr *sanctum.HTTPError
	return errors.As(err, &httpErr) && !httpErr.IsServerError() && httpErr.StatusCode >= http.StatusBadRequest
}

func loginErrorMessage(err error) string {
	switch sanctum.StatusCode(err) {
	case http.StatusUnprocessableEntity, http.StatusUnauthorized:
		return "Invalid email or password"
	}
	return backendMessage(err)
}

// backendMessage picks the backend's own message for form redirects.
func backendMessage(err error) string {
	if isRejection(err) {
		if body := backendErrorBody(err); body != nil {
			if msg, ok := body["message"].(string); ok && msg != "" {
				return msg
			}
		}
		return "Request was rejected"
	}
	return "Service unavailable, please try again later"
}
