package auth

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// cspDirective is one "name sources" entry of a Content-Security-Policy.
type cspDirective struct {
	name    string
	sources []string
}

func buildCSP(directives []cspDirective) string {
	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		parts = append(parts, d.name+" "+strings.Join(d.sources, " "))
	}
	return strings.Join(parts, "; ")
}

// SecurityHeadersMiddleware adds security headers to all responses. Pages
// may only talk to this server and the backend at apiURL.
func SecurityHeadersMiddleware(apiURL string) gin.HandlerFunc {
	connectSrc := []string{"'self'"}
	if origin := extractOrigin(apiURL); origin != "" {
		connectSrc = append(connectSrc, origin)
	}

	static := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"Permissions-Policy":     "camera=(), geolocation=(), microphone=(), payment=(), usb=()",
	}

	return func(c *gin.Context) {
		for name, value := range static {
			c.Header(name, value)
		}

		// 'self' can fail behind proxies like cloudflared
		formAction := []string{"'self'"}
		if host := c.Request.Host; host != "" {
			formAction = append(formAction, "https://"+host)
		}

		c.Header("Content-Security-Policy", buildCSP([]cspDirective{
			{"default-src", []string{"'self'"}},
			{"script-src", []string{"'self'"}},
			{"style-src", []string{"'self'", "'unsafe-inline'"}},
			{"img-src", []string{"'self'", "data:", "https:"}},
			{"connect-src", connectSrc},
			{"frame-ancestors", []string{"'none'"}},
			{"form-action", formAction},
		}))

		c.Next()
	}
}

// extractOrigin returns scheme://host of a URL, assuming https when the
// scheme is missing.
func extractOrigin(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

// StrictTransportSecurityMiddleware sets HSTS on requests that arrived over
// HTTPS, directly or through a proxy.
func StrictTransportSecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
