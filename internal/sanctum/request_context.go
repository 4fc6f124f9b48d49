package sanctum

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RequestContext is the cookie capability of the execution a request is made
// from. Cookie values crossing this interface are decoded; wire encoding is the
// implementation's business.
type RequestContext interface {
	// IsServer reports whether the request is made while rendering an inbound
	// request on the server, as opposed to from a browser-like client.
	IsServer() bool

	// Cookie returns the decoded value of a cookie visible to the frontend, or "".
	Cookie(name string) string

	// SetCookie stores a frontend cookie.
	SetCookie(name, value string)

	// DeleteCookie expires a frontend cookie.
	DeleteCookie(name string)

	// CookieHeader returns the Cookie header to send to the backend at u.
	CookieHeader(u *url.URL) string

	// AcceptCookies records cookies the backend at u set in its response.
	AcceptCookies(u *url.URL, cookies []*http.Cookie)
}

// EncodeCookieValue escapes a value so it survives as a cookie octet string.
func EncodeCookieValue(value string) string {
	return url.PathEscape(value)
}

// DecodeCookieValue reverses percent-encoding, leaving malformed input as is.
// Backends like Laravel percent-encode the CSRF cookie.
func DecodeCookieValue(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// BrowserContext behaves like a browser tab talking to the backend with
// credentials included: cookies live in a jar, are sent with every request and
// updated from every response. Frontend cookies are stored against the backend
// origin, since there is no separate frontend origin in this mode.
type BrowserContext struct {
	jar    http.CookieJar
	origin *url.URL
}

// NewBrowserContext creates a browser context for the backend at baseURL. A nil
// jar gets an in-memory one.
func NewBrowserContext(jar http.CookieJar, baseURL string) (*BrowserContext, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	origin = &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"}

	if jar == nil {
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
	}

	return &BrowserContext{jar: jar, origin: origin}, nil
}

func (b *BrowserContext) IsServer() bool {
	return false
}

func (b *BrowserContext) Cookie(name string) string {
	for _, c := range b.jar.Cookies(b.origin) {
		if c.Name == name {
			return DecodeCookieValue(c.Value)
		}
	}
	return ""
}

func (b *BrowserContext) SetCookie(name, value string) {
	b.jar.SetCookies(b.origin, []*http.Cookie{{
		Name:  name,
		Value: EncodeCookieValue(value),
		Path:  "/",
	}})
}

func (b *BrowserContext) DeleteCookie(name string) {
	b.jar.SetCookies(b.origin, []*http.Cookie{{
		Name:   name,
		Path:   "/",
		MaxAge: -1,
	}})
}

func (b *BrowserContext) CookieHeader(u *url.URL) string {
	return renderCookieHeader(b.jar.Cookies(u))
}

func (b *BrowserContext) AcceptCookies(u *url.URL, cookies []*http.Cookie) {
	if len(cookies) > 0 {
		b.jar.SetCookies(u, cookies)
	}
}

func renderCookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
