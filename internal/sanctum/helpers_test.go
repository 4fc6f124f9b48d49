package sanctum

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrlokans/sanctum-auth/internal/config"
)

const (
	testSessionCookie = "laravel_session"
	testSessionValue  = "session-1"
	// Laravel percent-encodes the CSRF cookie value
	testCSRFWire    = "csrf%3Dvalue"
	testCSRFDecoded = "csrf=value"
)

// recordedRequest is a snapshot of what the fake backend received.
type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// fakeBackend emulates the parts of a Sanctum backend the client talks to.
type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	calls    map[string]int
	requests []recordedRequest

	user        string // JSON profile returned by /user for a signed in caller
	loginToken  string // returned by /login when non-empty
	csrfStatus  int
	logoutFails bool
	statusFor   map[string]int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		t:         t,
		calls:     make(map[string]int),
		user:      `{"id":1,"name":"Ada","email":"ada@example.com","email_verified_at":"2024-01-01T00:00:00Z"}`,
		statusFor: make(map[string]int),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.calls[r.URL.Path]++
	b.requests = append(b.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	status, forced := b.statusFor[r.URL.Path]
	b.mu.Unlock()

	if forced {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"forced"}`))
		return
	}

	switch r.URL.Path {
	case "/sanctum/csrf-cookie":
		if b.csrfStatus != 0 {
			w.WriteHeader(b.csrfStatus)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: testCSRFWire, Path: "/"})
		w.WriteHeader(http.StatusNoContent)

	case "/login":
		if r.Header.Get("X-XSRF-TOKEN") == "" {
			w.WriteHeader(419)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: testSessionCookie, Value: testSessionValue, Path: "/"})
		resp := map[string]string{"status": "success"}
		if b.loginToken != "" {
			resp["token"] = b.loginToken
		}
		writeJSON(w, http.StatusOK, resp)

	case "/user":
		if !b.authenticated(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(b.user))

	case "/logout":
		if b.logoutFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: testSessionCookie, Path: "/", MaxAge: -1})
		w.WriteHeader(http.StatusNoContent)

	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (b *fakeBackend) authenticated(r *http.Request) bool {
	if c, err := r.Cookie(testSessionCookie); err == nil && c.Value == testSessionValue {
		return true
	}
	return b.loginToken != "" && r.Header.Get("Authorization") == "Bearer "+b.loginToken
}

// setStatus forces path to answer with status; 0 restores normal handling.
func (b *fakeBackend) setStatus(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.statusFor, path)
		return
	}
	b.statusFor[path] = status
}

func (b *fakeBackend) callCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func (b *fakeBackend) lastRequest(path string) recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if b.requests[i].Path == path {
			return b.requests[i]
		}
	}
	b.t.Fatalf("no request recorded for %s", path)
	return recordedRequest{}
}

func (b *fakeBackend) config(tokenMode bool) config.Sanctum {
	cfg := config.DefaultSanctum()
	cfg.BaseURL = b.server.URL
	cfg.Token = tokenMode
	cfg.Redirects = config.Redirects{Home: "/account", Login: "/auth/login", Verify: "/auth/verify"}
	return cfg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// captureLogger records log lines for assertions.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Printf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *captureLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// serverContext is a RequestContext for a server-rendered request carrying a
// fixed inbound cookie header.
type serverContext struct {
	inbound string
	cookies map[string]string
}

func newServerContext(inbound string) *serverContext {
	sc := &serverContext{inbound: inbound, cookies: make(map[string]string)}
	header := http.Header{"Cookie": {inbound}}
	for _, c := range (&http.Request{Header: header}).Cookies() {
		sc.cookies[c.Name] = DecodeCookieValue(c.Value)
	}
	return sc
}

func (s *serverContext) IsServer() bool                             { return true }
func (s *serverContext) Cookie(name string) string                  { return s.cookies[name] }
func (s *serverContext) SetCookie(name, value string)               { s.cookies[name] = value }
func (s *serverContext) DeleteCookie(name string)                   { delete(s.cookies, name) }
func (s *serverContext) CookieHeader(u *url.URL) string             { return s.inbound }
func (s *serverContext) AcceptCookies(u *url.URL, c []*http.Cookie) {}

type harness struct {
	backend *fakeBackend
	client  *Client
	rc      *BrowserContext
	states  *MemoryStore
	logger  *captureLogger
}

func newHarness(t *testing.T, tokenMode bool) *harness {
	t.Helper()
	backend := newFakeBackend(t)
	return newHarnessFor(t, backend, backend.config(tokenMode))
}

func newHarnessFor(t *testing.T, backend *fakeBackend, cfg config.Sanctum) *harness {
	t.Helper()
	states := NewMemoryStore()
	logger := &captureLogger{}

	client, err := NewClient(cfg, Options{
		HTTPClient: backend.server.Client(),
		States:     states,
		Logger:     logger,
	})
	require.NoError(t, err)

	rc, err := NewBrowserContext(nil, cfg.BaseURL)
	require.NoError(t, err)

	return &harness{backend: backend, client: client, rc: rc, states: states, logger: logger}
}
