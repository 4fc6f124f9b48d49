package auth

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/sanctum-auth/internal/config"
)

// RateLimiter throttles sign-in attempts relayed to the backend so the
// frontend cannot be used to spray passwords at it. Rejected attempts are
// counted per client IP and email over a sliding window.
type RateLimiter struct {
	mu       sync.Mutex
	accounts map[string]*loginAttempts
	limits   RateLimitConfig
	now      func() time.Time
	janitor  *cron.Cron
}

// loginAttempts holds the rejections still inside the window, oldest first.
type loginAttempts struct {
	rejected    []time.Time
	lockedUntil time.Time
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	MaxAttempts     int           // Rejections inside the window before lockout (default: 5)
	WindowDuration  time.Duration // Sliding window for counting rejections (default: 15m)
	LockoutDuration time.Duration // How long a lockout lasts (default: 30m)
	CleanupInterval time.Duration // How often idle records are dropped (default: 5m)
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimitConfigFrom maps the LOGIN_* settings, keeping defaults for anything unset.
func RateLimitConfigFrom(cfg config.LoginThrottle) RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     cfg.MaxAttempts,
		WindowDuration:  cfg.Window,
		LockoutDuration: cfg.Lockout,
	}.withDefaults()
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	d := DefaultRateLimitConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = d.WindowDuration
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}

// NewRateLimiter creates a rate limiter and schedules its cleanup.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		accounts: make(map[string]*loginAttempts),
		limits:   cfg.withDefaults(),
		now:      time.Now,
		janitor:  cron.New(),
	}

	spec := fmt.Sprintf("@every %s", rl.limits.CleanupInterval)
	if _, err := rl.janitor.AddFunc(spec, rl.cleanup); err != nil {
		log.Printf("Login throttle cleanup disabled: %v", err)
	}
	rl.janitor.Start()

	return rl
}

// Stop halts the cleanup schedule.
func (rl *RateLimiter) Stop() {
	<-rl.janitor.Stop().Done()
}

func attemptKey(ip, email string) string {
	return ip + "|" + strings.ToLower(strings.TrimSpace(email))
}

// prune drops rejections that slid out of the window. Callers hold mu.
func (rl *RateLimiter) prune(a *loginAttempts, now time.Time) {
	cutoff := now.Add(-rl.limits.WindowDuration)
	keep := 0
	for keep < len(a.rejected) && !a.rejected[keep].After(cutoff) {
		keep++
	}
	a.rejected = a.rejected[keep:]
}

// Allow reports whether a sign-in attempt may reach the backend, and if not,
// how long until it may.
func (rl *RateLimiter) Allow(ip, email string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	a, ok := rl.accounts[attemptKey(ip, email)]
	if !ok {
		return true, 0
	}
	if now.Before(a.lockedUntil) {
		return false, a.lockedUntil.Sub(now)
	}
	rl.prune(a, now)
	if len(a.rejected) < rl.limits.MaxAttempts {
		return true, 0
	}
	// Window still full: the oldest rejection has to age out first
	return false, a.rejected[0].Add(rl.limits.WindowDuration).Sub(now)
}

// RecordFailure counts a rejected sign-in and reports whether it started a lockout.
func (rl *RateLimiter) RecordFailure(ip, email string) (bool, time.Duration) {
	now := rl.now()
	key := attemptKey(ip, email)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	a, ok := rl.accounts[key]
	if !ok {
		a = &loginAttempts{}
		rl.accounts[key] = a
	}
	rl.prune(a, now)
	a.rejected = append(a.rejected, now)

	if len(a.rejected) >= rl.limits.MaxAttempts {
		a.lockedUntil = now.Add(rl.limits.LockoutDuration)
		a.rejected = nil
		return true, rl.limits.LockoutDuration
	}
	return false, 0
}

// RecordSuccess forgets earlier rejections once the backend accepts a sign-in.
func (rl *RateLimiter) RecordSuccess(ip, email string) {
	rl.mu.Lock()
	delete(rl.accounts, attemptKey(ip, email))
	rl.mu.Unlock()
}

// cleanup drops records with no lockout and nothing left in the window.
func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, a := range rl.accounts {
		rl.prune(a, now)
		if len(a.rejected) == 0 && !now.Before(a.lockedUntil) {
			delete(rl.accounts, key)
		}
	}
}

// tracked is the number of IP+email pairs currently remembered.
func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.accounts)
}

// RateLimitMiddleware turns away sign-in attempts for a locked out IP+email.
// Apply it to the login route only. A JSON body is cached on the gin context,
// so handlers must read it with ShouldBindBodyWith.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		email := loginEmail(c)
		if email == "" {
			c.Next()
			return
		}

		if allowed, retryAfter := rl.Allow(c.ClientIP(), email); !allowed {
			seconds := int(retryAfter.Round(time.Second).Seconds())
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many login attempts",
				"retry_after": retryAfter.Round(time.Second).String(),
			})
			return
		}

		c.Next()
	}
}

// loginEmail reads the email of a JSON or form encoded sign-in attempt.
func loginEmail(c *gin.Context) string {
	if c.ContentType() != binding.MIMEJSON {
		return c.PostForm("email")
	}
	var creds struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindBodyWith(&creds, binding.JSON); err != nil {
		return ""
	}
	return creds.Email
}
