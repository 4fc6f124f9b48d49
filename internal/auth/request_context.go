package auth

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

// GinContext is the RequestContext of a request handled by the frontend
// server: cookies come from the visitor's inbound request and cookie writes go
// out on the gin response.
//
// The visitor's Cookie header is forwarded to the backend verbatim. When the
// backend or the frontend changes a cookie during the request, later backend
// calls in the same request see the change.
//
// A context either renders a page (IsServer true, no CSRF bootstrap) or runs
// an action the visitor's browser posted, where it stands in for the browser
// and bootstraps the CSRF cookie like one would.
type GinContext struct {
	c         *gin.Context
	secure    bool
	rendering bool

	// wire values written during this request; nil marks a deletion
	overlay map[string]*string
	order   []string
}

// NewGinContext wraps a page rendering request. secure marks cookies written
// to the visitor as HTTPS-only.
func NewGinContext(c *gin.Context, secure bool) *GinContext {
	return &GinContext{
		c:         c,
		secure:    secure,
		rendering: true,
		overlay:   make(map[string]*string),
	}
}

// NewGinActionContext wraps a request the visitor's browser sent to act on
// their behalf, such as a login form post.
func NewGinActionContext(c *gin.Context, secure bool) *GinContext {
	g := NewGinContext(c, secure)
	g.rendering = false
	return g
}

// newGinContextFor picks the kind of context from the request method: safe
// methods render, everything else acts.
func newGinContextFor(c *gin.Context, secure bool) *GinContext {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return NewGinContext(c, secure)
	}
	return NewGinActionContext(c, secure)
}

func (g *GinContext) IsServer() bool {
	return g.rendering
}

func (g *GinContext) Cookie(name string) string {
	if v, ok := g.overlay[name]; ok {
		if v == nil {
			return ""
		}
		return sanctum.DecodeCookieValue(*v)
	}
	cookie, err := g.c.Request.Cookie(name)
	if err != nil {
		return ""
	}
	return sanctum.DecodeCookieValue(cookie.Value)
}

func (g *GinContext) SetCookie(name, value string) {
	wire := sanctum.EncodeCookieValue(value)
	g.remember(name, &wire)
	http.SetCookie(g.c.Writer, &http.Cookie{
		Name:     name,
		Value:    wire,
		Path:     "/",
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (g *GinContext) DeleteCookie(name string) {
	g.remember(name, nil)
	http.SetCookie(g.c.Writer, &http.Cookie{
		Name:     name,
		Path:     "/",
		MaxAge:   -1,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (g *GinContext) CookieHeader(u *url.URL) string {
	inbound := g.c.Request.Header.Get("Cookie")
	if len(g.overlay) == 0 {
		return inbound
	}

	parts := make([]string, 0, len(g.c.Request.Cookies())+len(g.order))
	seen := make(map[string]bool, len(g.order))
	for _, c := range g.c.Request.Cookies() {
		v, changed := g.overlay[c.Name]
		switch {
		case !changed:
			parts = append(parts, c.Name+"="+c.Value)
		case v != nil && !seen[c.Name]:
			parts = append(parts, c.Name+"="+*v)
		}
		if changed {
			seen[c.Name] = true
		}
	}
	for _, name := range g.order {
		if v := g.overlay[name]; v != nil && !seen[name] {
			parts = append(parts, name+"="+*v)
		}
	}
	return strings.Join(parts, "; ")
}

// AcceptCookies relays the backend's cookies to the visitor, so their next
// request carries them back to us and we forward them on.
func (g *GinContext) AcceptCookies(u *url.URL, cookies []*http.Cookie) {
	now := time.Now()
	for _, cookie := range cookies {
		if cookie.MaxAge < 0 || (!cookie.Expires.IsZero() && cookie.Expires.Before(now)) {
			g.remember(cookie.Name, nil)
		} else {
			value := cookie.Value
			g.remember(cookie.Name, &value)
		}

		relayed := *cookie
		relayed.Raw = ""
		relayed.Unparsed = nil
		http.SetCookie(g.c.Writer, &relayed)
	}
}

func (g *GinContext) remember(name string, wire *string) {
	if _, ok := g.overlay[name]; !ok {
		g.order = append(g.order, name)
	}
	g.overlay[name] = wire
}
