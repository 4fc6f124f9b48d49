package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGinContext(t *testing.T, cookieHeader string) (*GinContext, *httptest.ResponseRecorder) {
	t.Helper()
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodGet, "/account", nil)
	if cookieHeader != "" {
		c.Request.Header.Set("Cookie", cookieHeader)
	}
	return NewGinContext(c, false), rr
}

func responseCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var backendURL, _ = url.Parse("http://api.example.com/user")

func TestGinContext_ReadsInboundCookies(t *testing.T) {
	rc, _ := newTestGinContext(t, "XSRF-TOKEN=abc%3D%3D; laravel_session=s1")

	assert.True(t, rc.IsServer())
	assert.Equal(t, "abc==", rc.Cookie("XSRF-TOKEN"))
	assert.Equal(t, "s1", rc.Cookie("laravel_session"))
	assert.Empty(t, rc.Cookie("missing"))
}

func TestGinContext_ForwardsCookieHeaderVerbatim(t *testing.T) {
	inbound := "b=2;a=1;  XSRF-TOKEN=abc%3D%3D"
	rc, _ := newTestGinContext(t, inbound)

	assert.Equal(t, inbound, rc.CookieHeader(backendURL))
}

func TestGinContext_SetCookie(t *testing.T) {
	rc, rr := newTestGinContext(t, "laravel_session=s1; nuxt-sanctum-auth-token=old")

	rc.SetCookie("nuxt-sanctum-auth-token", "1|secret token")

	assert.Equal(t, "1|secret token", rc.Cookie("nuxt-sanctum-auth-token"))
	assert.Equal(t, "laravel_session=s1; nuxt-sanctum-auth-token=1%7Csecret%20token", rc.CookieHeader(backendURL))

	written := responseCookie(rr, "nuxt-sanctum-auth-token")
	require.NotNil(t, written)
	assert.Equal(t, "1%7Csecret%20token", written.Value)
	assert.Equal(t, "/", written.Path)
	assert.False(t, written.HttpOnly, "the token cookie is readable by browser code")
}

func TestGinContext_DeleteCookie(t *testing.T) {
	rc, rr := newTestGinContext(t, "laravel_session=s1; nuxt-sanctum-auth-token=old")

	rc.DeleteCookie("nuxt-sanctum-auth-token")

	assert.Empty(t, rc.Cookie("nuxt-sanctum-auth-token"))
	assert.Equal(t, "laravel_session=s1", rc.CookieHeader(backendURL))

	written := responseCookie(rr, "nuxt-sanctum-auth-token")
	require.NotNil(t, written)
	assert.True(t, written.MaxAge < 0)
}

func TestGinContext_AcceptCookiesRelaysToVisitor(t *testing.T) {
	rc, rr := newTestGinContext(t, "laravel_session=old")

	rc.AcceptCookies(backendURL, []*http.Cookie{
		{Name: "XSRF-TOKEN", Value: "fresh%3D", Path: "/", Domain: "example.com"},
		{Name: "laravel_session", Value: "new", Path: "/", HttpOnly: true},
	})

	assert.Equal(t, "fresh=", rc.Cookie("XSRF-TOKEN"))
	assert.Equal(t, "laravel_session=new; XSRF-TOKEN=fresh%3D", rc.CookieHeader(backendURL))

	relayed := responseCookie(rr, "laravel_session")
	require.NotNil(t, relayed)
	assert.Equal(t, "new", relayed.Value)
	assert.True(t, relayed.HttpOnly)

	xsrf := responseCookie(rr, "XSRF-TOKEN")
	require.NotNil(t, xsrf)
	assert.Equal(t, "example.com", xsrf.Domain)
}

func TestGinContext_AcceptCookiesExpiry(t *testing.T) {
	rc, _ := newTestGinContext(t, "laravel_session=old; other=1")

	rc.AcceptCookies(backendURL, []*http.Cookie{{Name: "laravel_session", Path: "/", MaxAge: -1}})

	assert.Empty(t, rc.Cookie("laravel_session"))
	assert.Equal(t, "other=1", rc.CookieHeader(backendURL))
}

func TestGinContext_ActionsBehaveLikeTheBrowser(t *testing.T) {
	for method, server := range map[string]bool{
		http.MethodGet:    true,
		http.MethodHead:   true,
		http.MethodPost:   false,
		http.MethodDelete: false,
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(method, "/auth/login", nil)

		assert.Equal(t, server, newGinContextFor(c, false).IsServer(), method)
	}
}

func TestGetRequestContext_SharedPerRequest(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	first := GetRequestContext(c)
	assert.Same(t, first, GetRequestContext(c))
}
