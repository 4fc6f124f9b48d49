package sanctum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mrlokans/sanctum-auth/internal/config"
	"github.com/mrlokans/sanctum-auth/internal/entities"
)

// StatusResponse is what the mutating endpoints answer with. Token is only
// present on login in token mode.
type StatusResponse struct {
	Status string `json:"status"`
	Token  string `json:"token,omitempty"`
}

// Register creates an account. The body is forwarded as is.
func (c *Client) Register(ctx context.Context, rc RequestContext, body any) (*StatusResponse, error) {
	return c.postStatus(ctx, rc, "register", c.cfg.Endpoints.Register, body)
}

// Login signs in. In token mode a token in the response is stored in the token
// cookie.
//
// With the default string encoding the body is serialized to JSON up front and
// sent verbatim, unlike the other operations which hand their body to the
// encoder as is. A nil body is sent as no body at all in both encodings.
func (c *Client) Login(ctx context.Context, rc RequestContext, body any) (*StatusResponse, error) {
	payload := body
	if body != nil && c.cfg.LoginBodyEncoding != config.LoginBodyJSON {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("login: failed to encode body: %w", err)
		}
		payload = string(data)
	}

	resp, err := c.postStatus(ctx, rc, "login", c.cfg.Endpoints.Login, payload)
	if err != nil {
		return nil, err
	}

	if c.cfg.Token && resp.Token != "" {
		c.SetToken(rc, resp.Token)
	}
	return resp, nil
}

// ForgotPassword asks the backend to send a password reset link.
func (c *Client) ForgotPassword(ctx context.Context, rc RequestContext, body any) (*StatusResponse, error) {
	return c.postStatus(ctx, rc, "forgotPassword", c.cfg.Endpoints.ForgotPassword, body)
}

// ResetPassword sets a new password using a reset token.
func (c *Client) ResetPassword(ctx context.Context, rc RequestContext, body any) (*StatusResponse, error) {
	return c.postStatus(ctx, rc, "resetPassword", c.cfg.Endpoints.ResetPassword, body)
}

// VerifyEmail confirms the user's email address.
func (c *Client) VerifyEmail(ctx context.Context, rc RequestContext, body any) (*StatusResponse, error) {
	return c.postStatus(ctx, rc, "verifyEmail", c.cfg.Endpoints.VerifyEmail, body)
}

// ResendEmailVerification asks for another verification email.
func (c *Client) ResendEmailVerification(ctx context.Context, rc RequestContext) (*StatusResponse, error) {
	return c.postStatus(ctx, rc, "resendEmailVerification", c.cfg.Endpoints.VerificationNotification, nil)
}

// Logout signs out. The local state and token cookie are cleared whatever the
// backend says; a failed request is only logged.
func (c *Client) Logout(ctx context.Context, rc RequestContext) {
	defer func() {
		state := c.states.Load(ctx)
		state.Reset()
		c.states.Save(ctx, state)
		c.ClearToken(rc)
	}()

	if _, err := c.fetch(ctx, rc, "logout", Request{Method: http.MethodPost, Path: c.cfg.Endpoints.Logout}); err != nil {
		c.logger.Printf("[SANCTUM] logout failed: %v", err)
	}
}

// GetUser returns the signed in user. Unless refresh is set, a cached user is
// returned without a network call. Failures are logged and leave the state
// untouched; the result is then nil.
func (c *Client) GetUser(ctx context.Context, rc RequestContext, refresh bool) entities.User {
	state := c.states.Load(ctx)
	if !refresh && state.LoggedIn && state.User != nil {
		return state.User
	}

	resp, err := c.fetch(ctx, rc, "getUser", Request{Method: http.MethodGet, Path: c.cfg.Endpoints.User})
	if err != nil {
		c.logger.Printf("[SANCTUM] failed to fetch user: %v", err)
		return nil
	}

	user, err := entities.ParseUser(resp.Body)
	if err != nil {
		c.logger.Printf("[SANCTUM] failed to fetch user: %v", err)
		return nil
	}
	if user == nil {
		return nil
	}

	// Reload so a concurrent token update is not overwritten with stale data.
	state = c.states.Load(ctx)
	state.SetUser(user)
	c.states.Save(ctx, state)
	return user
}

func (c *Client) postStatus(ctx context.Context, rc RequestContext, op, path string, body any) (*StatusResponse, error) {
	resp, err := c.fetch(ctx, rc, op, Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return nil, err
	}

	var status StatusResponse
	if err := resp.Decode(&status); err != nil {
		// Some endpoints answer with plain text or a bare value; that is not a failure.
		c.logger.Printf("[SANCTUM] %s: ignoring non-JSON response body", op)
		return &StatusResponse{}, nil
	}
	return &status, nil
}
