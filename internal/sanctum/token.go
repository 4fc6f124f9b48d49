package sanctum

import "context"

// GetToken loads the bearer token from the token cookie into the AuthState
// and returns it. A missing cookie clears the state's token.
func (c *Client) GetToken(ctx context.Context, rc RequestContext) string {
	token := rc.Cookie(c.cfg.CSRF.TokenCookieKey)
	state := c.states.Load(ctx)
	state.Token = token
	c.states.Save(ctx, state)
	return token
}

// SetToken stores the bearer token in the token cookie. The AuthState picks it
// up on the next GetToken.
func (c *Client) SetToken(rc RequestContext, token string) {
	rc.SetCookie(c.cfg.CSRF.TokenCookieKey, token)
}

// ClearToken removes the token cookie.
func (c *Client) ClearToken(rc RequestContext) {
	rc.DeleteCookie(c.cfg.CSRF.TokenCookieKey)
}
