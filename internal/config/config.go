package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoginBodyEncoding controls how the login payload is put on the wire.
type LoginBodyEncoding string

const (
	LoginBodyString LoginBodyEncoding = "string" // Pre-serialized JSON sent as a plain string body (default)
	LoginBodyJSON   LoginBodyEncoding = "json"   // Encoded like every other operation
)

type (
	Config struct {
		HTTP
		Global
		Sanctum
		Session
		CORS
		Browser
		LoginThrottle
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	// Sanctum holds the backend contract: where the API lives and what it expects.
	Sanctum struct {
		Token             bool // Bearer token mode instead of pure cookie sessions
		BaseURL           string
		Endpoints         Endpoints
		CSRF              CSRF
		Redirects         Redirects
		LoginBodyEncoding LoginBodyEncoding
		RequestTimeout    time.Duration // Zero leaves the http.Client default (no timeout)
	}

	Endpoints struct {
		CSRF                     string
		Register                 string
		ForgotPassword           string
		ResetPassword            string
		VerifyEmail              string
		VerificationNotification string
		Login                    string
		Logout                   string
		User                     string
	}

	CSRF struct {
		HeaderKey      string
		CookieKey      string
		TokenCookieKey string
	}

	Redirects struct {
		Home   string
		Login  string
		Verify string
	}

	// Session configures the frontend's own visitor sessions (server-rendered mode).
	Session struct {
		DatabasePath  string
		CookieName    string
		Lifetime      time.Duration
		Secret        string // CSRF secret for the frontend's own forms; generated if empty
		SecureCookies bool   // Set to false for local dev without HTTPS
	}

	CORS struct {
		AllowedOrigins []string
	}

	// LoginThrottle limits rejected sign-ins per client IP and email.
	LoginThrottle struct {
		MaxAttempts int
		Window      time.Duration
		Lockout     time.Duration
	}

	// Browser configures the CLI, which plays the role of the browser.
	Browser struct {
		StatePath         string
		EncryptionKey     string // base64 AES-256 key for cookie values at rest
		KeyFilePath       string
		KeepaliveSchedule string // Cron format
	}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	v.SetDefault("sanctum_token", false)
	v.SetDefault("sanctum_base_url", DefaultBaseURL)
	v.SetDefault("sanctum_endpoint_csrf", "/sanctum/csrf-cookie")
	v.SetDefault("sanctum_endpoint_register", "/register")
	v.SetDefault("sanctum_endpoint_forgot_password", "/forgot-password")
	v.SetDefault("sanctum_endpoint_reset_password", "/reset-password")
	v.SetDefault("sanctum_endpoint_verify_email", "/verify-email")
	v.SetDefault("sanctum_endpoint_verification_notification", "/verification-notification")
	v.SetDefault("sanctum_endpoint_login", "/login")
	v.SetDefault("sanctum_endpoint_logout", "/logout")
	v.SetDefault("sanctum_endpoint_user", "/user")
	v.SetDefault("sanctum_csrf_header_key", DefaultCSRFHeaderKey)
	v.SetDefault("sanctum_csrf_cookie_key", DefaultCSRFCookieKey)
	v.SetDefault("sanctum_csrf_token_cookie_key", DefaultTokenCookieKey)
	v.SetDefault("sanctum_redirect_home", "/")
	v.SetDefault("sanctum_redirect_login", "/login")
	v.SetDefault("sanctum_redirect_verify", "/verify")
	v.SetDefault("sanctum_login_body_encoding", string(LoginBodyString))
	v.SetDefault("sanctum_request_timeout", "0s")

	v.SetDefault("session_database_path", "./sanctum-frontend.db")
	v.SetDefault("session_cookie_name", "frontend_session")
	v.SetDefault("session_lifetime", "24h")
	v.SetDefault("session_secret", "")
	v.SetDefault("session_secure_cookies", true)

	v.SetDefault("cors_allowed_origins", "")

	v.SetDefault("login_max_attempts", 5)
	v.SetDefault("login_window", "15m")
	v.SetDefault("login_lockout", "30m")

	v.SetDefault("browser_state_path", DefaultBrowserStatePath)
	v.SetDefault("browser_encryption_key", "")
	v.SetDefault("browser_key_file_path", "")
	v.SetDefault("browser_keepalive_schedule", "*/10 * * * *") // Every 10 minutes
}

// NewConfig builds the configuration from the environment. A .env file in the
// working directory is loaded first when present, and SANCTUM_CONFIG_FILE may
// point at any file format viper understands.
func NewConfig() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("SANCTUM_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("WARNING: could not read config file %s: %v", file, err)
		}
	}
	return v
}

// FromViper maps an already populated viper instance onto Config.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Sanctum: Sanctum{
			Token:   v.GetBool("SANCTUM_TOKEN"),
			BaseURL: v.GetString("SANCTUM_BASE_URL"),
			Endpoints: Endpoints{
				CSRF:                     v.GetString("SANCTUM_ENDPOINT_CSRF"),
				Register:                 v.GetString("SANCTUM_ENDPOINT_REGISTER"),
				ForgotPassword:           v.GetString("SANCTUM_ENDPOINT_FORGOT_PASSWORD"),
				ResetPassword:            v.GetString("SANCTUM_ENDPOINT_RESET_PASSWORD"),
				VerifyEmail:              v.GetString("SANCTUM_ENDPOINT_VERIFY_EMAIL"),
				VerificationNotification: v.GetString("SANCTUM_ENDPOINT_VERIFICATION_NOTIFICATION"),
				Login:                    v.GetString("SANCTUM_ENDPOINT_LOGIN"),
				Logout:                   v.GetString("SANCTUM_ENDPOINT_LOGOUT"),
				User:                     v.GetString("SANCTUM_ENDPOINT_USER"),
			},
			CSRF: CSRF{
				HeaderKey:      v.GetString("SANCTUM_CSRF_HEADER_KEY"),
				CookieKey:      v.GetString("SANCTUM_CSRF_COOKIE_KEY"),
				TokenCookieKey: v.GetString("SANCTUM_CSRF_TOKEN_COOKIE_KEY"),
			},
			Redirects: Redirects{
				Home:   v.GetString("SANCTUM_REDIRECT_HOME"),
				Login:  v.GetString("SANCTUM_REDIRECT_LOGIN"),
				Verify: v.GetString("SANCTUM_REDIRECT_VERIFY"),
			},
			LoginBodyEncoding: LoginBodyEncoding(v.GetString("SANCTUM_LOGIN_BODY_ENCODING")),
			RequestTimeout:    v.GetDuration("SANCTUM_REQUEST_TIMEOUT"),
		},
		Session: Session{
			DatabasePath:  v.GetString("SESSION_DATABASE_PATH"),
			CookieName:    v.GetString("SESSION_COOKIE_NAME"),
			Lifetime:      v.GetDuration("SESSION_LIFETIME"),
			Secret:        v.GetString("SESSION_SECRET"),
			SecureCookies: v.GetBool("SESSION_SECURE_COOKIES"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		LoginThrottle: LoginThrottle{
			MaxAttempts: v.GetInt("LOGIN_MAX_ATTEMPTS"),
			Window:      v.GetDuration("LOGIN_WINDOW"),
			Lockout:     v.GetDuration("LOGIN_LOCKOUT"),
		},
		Browser: Browser{
			StatePath:         v.GetString("BROWSER_STATE_PATH"),
			EncryptionKey:     v.GetString("BROWSER_ENCRYPTION_KEY"),
			KeyFilePath:       v.GetString("BROWSER_KEY_FILE_PATH"),
			KeepaliveSchedule: v.GetString("BROWSER_KEEPALIVE_SCHEDULE"),
		},
	}
}

// DefaultSanctum returns the backend contract with every default applied.
func DefaultSanctum() Sanctum {
	v := viper.New()
	setDefaults(v)
	return FromViper(v).Sanctum
}

// splitList turns a comma separated env value into its non-empty parts.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
