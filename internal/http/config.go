package http

import (
	"database/sql"

	"github.com/mrlokans/sanctum-auth/internal/auth"
	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Backend client; its state store must be the sessions' StateStore
	Client *sanctum.Client

	// Visitor sessions and the database behind them
	Sessions  *auth.SessionManager
	SessionDB *sql.DB

	// CSRF protection for the frontend's own endpoints; disabled when empty
	CSRFSecret    []byte
	SecureCookies bool

	// Origins of single page apps calling the /auth endpoints cross-origin
	AllowedOrigins []string

	// Throttles POST /auth/login (optional)
	RateLimiter *auth.RateLimiter

	// Application info
	Version string
}
