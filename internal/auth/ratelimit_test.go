package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/sanctum-auth/internal/config"
)

// newTestLimiter returns a limiter whose clock the test moves by hand.
func newTestLimiter(t *testing.T, cfg RateLimitConfig) (*RateLimiter, *time.Time) {
	t.Helper()
	cfg.CleanupInterval = time.Hour
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_LocksOutAfterMaxAttempts(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  time.Minute,
		LockoutDuration: 10 * time.Minute,
	})

	for i := 0; i < 2; i++ {
		allowed, _ := rl.Allow("192.0.2.1", "ada@example.com")
		require.True(t, allowed, "attempt %d", i+1)
		locked, _ := rl.RecordFailure("192.0.2.1", "ada@example.com")
		require.False(t, locked)
	}

	locked, lockout := rl.RecordFailure("192.0.2.1", "ada@example.com")
	assert.True(t, locked)
	assert.Equal(t, 10*time.Minute, lockout)

	allowed, retryAfter := rl.Allow("192.0.2.1", "ada@example.com")
	assert.False(t, allowed)
	assert.Equal(t, 10*time.Minute, retryAfter)
}

func TestRateLimiter_LockoutExpires(t *testing.T) {
	rl, now := newTestLimiter(t, RateLimitConfig{
		MaxAttempts:     1,
		WindowDuration:  time.Minute,
		LockoutDuration: 5 * time.Minute,
	})

	rl.RecordFailure("192.0.2.1", "ada@example.com")

	*now = now.Add(4 * time.Minute)
	allowed, retryAfter := rl.Allow("192.0.2.1", "ada@example.com")
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retryAfter)

	*now = now.Add(time.Minute)
	allowed, _ = rl.Allow("192.0.2.1", "ada@example.com")
	assert.True(t, allowed)
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	rl, now := newTestLimiter(t, RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  10 * time.Minute,
		LockoutDuration: time.Hour,
	})

	rl.RecordFailure("192.0.2.1", "ada@example.com")
	*now = now.Add(6 * time.Minute)
	rl.RecordFailure("192.0.2.1", "ada@example.com")

	// The first rejection has left the window, so this is only the second
	*now = now.Add(5 * time.Minute)
	locked, _ := rl.RecordFailure("192.0.2.1", "ada@example.com")
	assert.False(t, locked)

	locked, _ = rl.RecordFailure("192.0.2.1", "ada@example.com")
	assert.True(t, locked)
}

func TestRateLimiter_KeysByIPAndEmail(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimitConfig{MaxAttempts: 1})

	rl.RecordFailure("192.0.2.1", " Ada@Example.com")

	allowed, _ := rl.Allow("192.0.2.1", "ada@example.com")
	assert.False(t, allowed, "email comparison ignores case and spaces")

	allowed, _ = rl.Allow("192.0.2.1", "bob@example.com")
	assert.True(t, allowed)

	allowed, _ = rl.Allow("198.51.100.7", "ada@example.com")
	assert.True(t, allowed)
}

func TestRateLimiter_SuccessForgetsRejections(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimitConfig{MaxAttempts: 3})

	rl.RecordFailure("192.0.2.1", "ada@example.com")
	rl.RecordFailure("192.0.2.1", "ada@example.com")
	rl.RecordSuccess("192.0.2.1", "ada@example.com")

	locked, _ := rl.RecordFailure("192.0.2.1", "ada@example.com")
	assert.False(t, locked)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, now := newTestLimiter(t, RateLimitConfig{
		MaxAttempts:     2,
		WindowDuration:  time.Minute,
		LockoutDuration: 5 * time.Minute,
	})

	rl.RecordFailure("192.0.2.1", "ada@example.com")
	rl.RecordFailure("192.0.2.1", "bob@example.com")
	rl.RecordFailure("192.0.2.1", "bob@example.com") // locked out
	require.Equal(t, 2, rl.tracked())

	*now = now.Add(2 * time.Minute)
	rl.cleanup()
	assert.Equal(t, 1, rl.tracked(), "bob is still locked out")

	*now = now.Add(5 * time.Minute)
	rl.cleanup()
	assert.Equal(t, 0, rl.tracked())
}

func TestRateLimitConfigFrom(t *testing.T) {
	cfg := RateLimitConfigFrom(config.LoginThrottle{MaxAttempts: 2, Window: time.Minute})

	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.WindowDuration)
	assert.Equal(t, 30*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimitConfig{MaxAttempts: 1, LockoutDuration: time.Minute})
	rl.RecordFailure("192.0.2.1", "ada@example.com")

	var handlerEmail string
	router := gin.New()
	router.POST("/auth/login", rl.RateLimitMiddleware(), func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		handlerEmail, _ = body["email"].(string)
		c.Status(http.StatusOK)
	})

	post := func(contentType, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
		req.RemoteAddr = "192.0.2.1:1234"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("locked out JSON attempt", func(t *testing.T) {
		rr := post("application/json", `{"email":"ada@example.com","password":"x"}`)
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	})

	t.Run("locked out form attempt", func(t *testing.T) {
		rr := post("application/x-www-form-urlencoded", "email=ada%40example.com&password=x")
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	})

	t.Run("other email reaches the handler with its body", func(t *testing.T) {
		rr := post("application/json", `{"email":"bob@example.com","password":"x"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "bob@example.com", handlerEmail)
	})
}
