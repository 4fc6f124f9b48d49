package entrypoint

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/sanctum-auth/internal/auth"
	"github.com/mrlokans/sanctum-auth/internal/config"
	"github.com/mrlokans/sanctum-auth/internal/crypto"
	http_controllers "github.com/mrlokans/sanctum-auth/internal/http"
	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run serves the server-rendered frontend: visitor sessions in SQLite, every
// backend call made with the visitor's own cookies.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting sanctum-auth v%s", version)
	log.Printf("Backend: %s (token mode: %v)", cfg.Sanctum.BaseURL, cfg.Sanctum.Token)

	sqlDB, err := auth.OpenSessionDB(cfg.Session.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize session database: %v", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Error closing session database: %v", err)
		}
	}()

	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Session)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	client, err := sanctum.NewClient(cfg.Sanctum, sanctum.Options{
		States: sessionManager.StateStore(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize backend client: %v", err)
	}

	csrfSecret, err := resolveCSRFSecret(cfg.Session.Secret)
	if err != nil {
		log.Fatalf("Failed to generate CSRF secret: %v", err)
	}

	if !cfg.Session.SecureCookies {
		log.Printf("WARNING: secure cookies are disabled. Only do this for local development without HTTPS.")
	}

	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfigFrom(cfg.LoginThrottle))

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Client:         client,
		Sessions:       sessionManager,
		SessionDB:      sqlDB,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Session.SecureCookies,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimiter:    rateLimiter,
		Version:        version,
	})

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		rateLimiter.Stop()
	}

	Serve(router, cfg, onShutdown)
}

// resolveCSRFSecret decodes a configured secret, or generates one for this run.
func resolveCSRFSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		// Not hex, use as raw bytes
		return []byte(configured), nil
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set SESSION_SECRET to persist)")
	return base64.StdEncoding.DecodeString(key)
}
