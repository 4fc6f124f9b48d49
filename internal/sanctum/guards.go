package sanctum

import (
	"context"
	"fmt"

	"github.com/mrlokans/sanctum-auth/internal/config"
	"github.com/mrlokans/sanctum-auth/internal/entities"
)

// GuardName identifies one of the route guards.
type GuardName string

const (
	GuardAuth       GuardName = "auth"       // signed in users only
	GuardGuest      GuardName = "guest"      // visitors who are not signed in
	GuardVerified   GuardName = "verified"   // signed in with a verified email
	GuardUnverified GuardName = "unverified" // signed in, email not verified yet
)

// GuardNames lists every guard in registration order.
var GuardNames = []GuardName{GuardAuth, GuardGuest, GuardVerified, GuardUnverified}

// guardDecision maps a settled state to a redirect target, "" meaning proceed.
type guardDecision func(r config.Redirects, s entities.AuthState) string

// A state claiming to be logged in without a user counts as signed out.
var guardDecisions = map[GuardName]guardDecision{
	GuardAuth: func(r config.Redirects, s entities.AuthState) string {
		if !signedIn(s) {
			return r.Login
		}
		return ""
	},
	GuardGuest: func(r config.Redirects, s entities.AuthState) string {
		if signedIn(s) {
			return r.Home
		}
		return ""
	},
	GuardVerified: func(r config.Redirects, s entities.AuthState) string {
		if !signedIn(s) {
			return r.Login
		}
		if !s.IsVerified() {
			return r.Verify
		}
		return ""
	},
	GuardUnverified: func(r config.Redirects, s entities.AuthState) string {
		if !signedIn(s) {
			return r.Login
		}
		if s.IsVerified() {
			return r.Home
		}
		return ""
	},
}

func signedIn(s entities.AuthState) bool {
	return s.LoggedIn && s.User != nil
}

// Check evaluates a guard before navigation. It refreshes the token from its
// cookie in token mode, loads the user and returns the path to redirect to, or
// "" when navigation may proceed.
func (c *Client) Check(ctx context.Context, rc RequestContext, name GuardName) (string, error) {
	decide, ok := guardDecisions[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGuard, name)
	}

	if c.cfg.Token {
		c.GetToken(ctx, rc)
	}
	c.GetUser(ctx, rc, false)

	return decide(c.cfg.Redirects, c.states.Load(ctx)), nil
}

// Decide applies a guard to an already loaded state without any network call.
func Decide(name GuardName, redirects config.Redirects, state entities.AuthState) (string, error) {
	decide, ok := guardDecisions[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGuard, name)
	}
	return decide(redirects, state), nil
}
