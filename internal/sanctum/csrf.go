package sanctum

import (
	"context"
	"fmt"
	"net/http"
)

// InitCSRF makes sure the backend's CSRF cookie exists and returns its value.
// An existing cookie is reused without any network call; otherwise one GET to
// the CSRF endpoint lets the backend set it. Errors are returned unchanged and
// never retried.
func (c *Client) InitCSRF(ctx context.Context, rc RequestContext) (string, error) {
	if existing := rc.Cookie(c.cfg.CSRF.CookieKey); existing != "" {
		return existing, nil
	}

	target, err := c.resolve(c.cfg.Endpoints.CSRF, nil)
	if err != nil {
		return "", fmt.Errorf("csrf: %w", err)
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	if _, err := c.send(ctx, rc, "csrf", http.MethodGet, target, header, nil); err != nil {
		return "", err
	}

	return rc.Cookie(c.cfg.CSRF.CookieKey), nil
}
