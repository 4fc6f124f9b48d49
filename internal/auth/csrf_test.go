package auth

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
)

var testCSRFSecret = []byte("test-secret-key-32-bytes-long!!!")

func newCSRFRouter(handled *int) *gin.Engine {
	router := gin.New()
	router.Use(CSRFMiddleware(testCSRFSecret, false, []string{"http://spa.example.com:5173"}))
	router.GET("/token", func(c *gin.Context) {
		c.String(http.StatusOK, GetCSRFToken(c))
	})
	router.POST("/test", func(c *gin.Context) {
		*handled++
		c.Status(http.StatusOK)
	})
	return router
}

func TestCSRFMiddleware_AllowsGET(t *testing.T) {
	var handled int
	router := newCSRFRouter(&handled)

	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for GET request, got %d", rr.Code)
	}
	if rr.Body.String() == "" {
		t.Error("Expected CSRF token to be set in context")
	}
}

func TestCSRFMiddleware_BlocksPOSTWithoutToken(t *testing.T) {
	var handled int
	router := newCSRFRouter(&handled)

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for POST without CSRF token, got %d", rr.Code)
	}
	if handled != 0 {
		t.Error("Handler must not run when the CSRF check fails")
	}
}

func TestCSRFMiddleware_AcceptsPOSTWithToken(t *testing.T) {
	var handled int
	router := newCSRFRouter(&handled)

	// Fetch a token and the cookie it is bound to
	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	token := rr.Body.String()

	req = httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set(CSRFTokenHeader, token)
	for _, cookie := range rr.Result().Cookies() {
		req.AddCookie(cookie)
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for POST with CSRF token, got %d", rr.Code)
	}
	if handled != 1 {
		t.Errorf("Expected handler to run once, ran %d times", handled)
	}
}

func TestGetCSRFToken_NoToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if token := GetCSRFToken(c); token != "" {
		t.Errorf("Expected empty token, got %s", token)
	}
}

func TestGetCSRFToken_WithToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set("csrf_token", "test-token-123")

	if token := GetCSRFToken(c); token != "test-token-123" {
		t.Errorf("Expected 'test-token-123', got '%s'", token)
	}
}

func TestCSRFTokenField(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if field := CSRFTokenField(c); field != "" {
		t.Errorf("Expected empty field, got '%s'", field)
	}

	c.Set("csrf_token", "abc123")
	expected := `<input type="hidden" name="gorilla.csrf.Token" value="abc123">`
	if field := string(CSRFTokenField(c)); field != expected {
		t.Errorf("Expected '%s', got '%s'", expected, field)
	}
}

func TestCSRFErrorHandler_JSON(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Accept", "application/json")

	csrfErrorHandler(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rr.Code)
	}
	if contentType := rr.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}
}

func TestCSRFErrorHandler_FormRedirectsBack(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Host = "localhost:3000"
	req.Header.Set("Referer", "http://localhost:3000/auth/login?next=%2Faccount")

	csrfErrorHandler(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Errorf("Expected 303, got %d", rr.Code)
	}
	want := "http://localhost:3000/auth/login?next=%2Faccount&error=Session+expired.+Please+try+again."
	if got := rr.Header().Get("Location"); got != want {
		t.Errorf("Expected redirect to %q, got %q", want, got)
	}
}

func TestCSRFErrorHandler_ForeignRefererIsNotFollowed(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Referer", "https://evil.example.net/phish")

	csrfErrorHandler(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rr.Code)
	}
}

func TestOriginHosts(t *testing.T) {
	got := originHosts([]string{"http://spa.example.com:5173", "*", "https://app.example.com", "::bad"})
	want := []string{"spa.example.com:5173", "app.example.com"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("originHosts() = %v, want %v", got, want)
	}
}
