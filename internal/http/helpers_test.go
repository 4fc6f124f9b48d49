package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

func newHelperContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func TestRespondBackendError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantCode   string
	}{
		{
			name: "validation errors are relayed",
			err: &sanctum.HTTPError{
				Op: "register", StatusCode: http.StatusUnprocessableEntity,
				Body: []byte(`{"message":"The name field is required.","errors":{"name":["The name field is required."]}}`),
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "The name field is required.",
			wantCode:   "backend_rejected",
		},
		{
			name:       "client error without body",
			err:        &sanctum.HTTPError{Op: "login", StatusCode: http.StatusTooManyRequests},
			wantStatus: http.StatusTooManyRequests,
			wantError:  "too many requests",
			wantCode:   "backend_rejected",
		},
		{
			name:       "server error",
			err:        &sanctum.HTTPError{Op: "login", StatusCode: http.StatusServiceUnavailable, Body: []byte(`{"message":"down"}`)},
			wantStatus: http.StatusBadGateway,
			wantError:  "backend unavailable",
			wantCode:   "backend_error",
		},
		{
			name:       "transport failure",
			err:        errors.New("login: request failed: connection refused"),
			wantStatus: http.StatusBadGateway,
			wantError:  "backend unavailable",
			wantCode:   "backend_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newHelperContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil))

			respondBackendError(c, tt.err, "test")

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.wantError, body["error"])
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestIsRejection(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", &sanctum.HTTPError{StatusCode: http.StatusUnprocessableEntity})

	assert.True(t, isRejection(wrapped))
	assert.True(t, isRejection(&sanctum.HTTPError{StatusCode: 419}))
	assert.False(t, isRejection(&sanctum.HTTPError{StatusCode: http.StatusBadGateway}))
	assert.False(t, isRejection(errors.New("connection refused")))
}

func TestBindPayload(t *testing.T) {
	t.Run("form fields without the csrf token", func(t *testing.T) {
		form := url.Values{"email": {"ada@example.com"}, "gorilla.csrf.Token": {"tok"}}
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		c, _ := newHelperContext(req)

		payload, ok := bindPayload(c)

		require.True(t, ok)
		assert.Equal(t, map[string]any{"email": "ada@example.com"}, payload)
	})

	t.Run("json body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"name":"Ada","remember":true}`))
		req.Header.Set("Content-Type", "application/json")
		c, _ := newHelperContext(req)

		payload, ok := bindPayload(c)

		require.True(t, ok)
		assert.Equal(t, "Ada", payload["name"])
		assert.Equal(t, true, payload["remember"])
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")
		c, w := newHelperContext(req)

		_, ok := bindPayload(c)

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTakeNext(t *testing.T) {
	payload := map[string]any{"email": "a@b.c", "next": "/account"}
	assert.Equal(t, "/account", takeNext(payload, "/"))
	assert.NotContains(t, payload, "next")

	assert.Equal(t, "/", takeNext(map[string]any{"next": "https://evil.example"}, "/"))
	assert.Equal(t, "/", takeNext(map[string]any{}, "/"))
}

func TestRedirectWithError(t *testing.T) {
	c, w := newHelperContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	redirectWithError(c, "/auth/login?next=%2Faccount", "Invalid email or password")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth/login?next=%2Faccount&error=Invalid+email+or+password", w.Header().Get("Location"))
}
