package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mrlokans/sanctum-auth/internal/config"
	"github.com/mrlokans/sanctum-auth/internal/entities"
)

// SessionKeyAuthState is where a visitor's AuthState lives in their session.
const SessionKeyAuthState = "auth_state"

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// OpenSessionDB opens the SQLite database backing frontend sessions.
func OpenSessionDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	return db, nil
}

// NewSessionManager creates a configured session manager on top of sqlDB.
func NewSessionManager(sqlDB *sql.DB, cfg config.Session) (*SessionManager, error) {
	// Create sessions table if it doesn't exist
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.Lifetime
	sm.IdleTimeout = cfg.Lifetime / 2

	sm.Cookie.Name = cfg.CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	// Lax so the session survives the redirect back from an emailed link
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// RenewSession issues a new session token, keeping the data. Called around
// sign-in and sign-out to prevent session fixation.
func (sm *SessionManager) RenewSession(r *http.Request) error {
	return sm.RenewToken(r.Context())
}

// StateStore exposes the visitor sessions as a sanctum state store.
func (sm *SessionManager) StateStore() *SessionStateStore {
	return &SessionStateStore{sessions: sm}
}

// SessionStateStore keeps one AuthState per visitor session. The context
// passed to Load and Save must carry session data, which SessionLoadSave
// arranges for every request.
type SessionStateStore struct {
	sessions *SessionManager
}

func (s *SessionStateStore) Load(ctx context.Context) entities.AuthState {
	data := s.sessions.GetBytes(ctx, SessionKeyAuthState)
	if len(data) == 0 {
		return entities.NewAuthState()
	}

	var state entities.AuthState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("[SESSION] Discarding unreadable auth state: %v", err)
		return entities.NewAuthState()
	}
	return state
}

func (s *SessionStateStore) Save(ctx context.Context, state entities.AuthState) {
	data, err := json.Marshal(state)
	if err != nil {
		log.Printf("[SESSION] Failed to encode auth state: %v", err)
		return
	}
	s.sessions.Put(ctx, SessionKeyAuthState, data)
}
