package http

import (
	"html/template"
	"log"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/sanctum-auth/internal/auth"
	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	backend := cfg.Client.Config()

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware(backend.BaseURL))
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// Single page apps on other origins call the /auth endpoints with credentials
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", auth.CSRFTokenHeader, "X-Requested-With"},
			ExposeHeaders:    []string{auth.CSRFTokenHeader},
			AllowCredentials: true,
		}))
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AllowedOrigins))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	router.Use(cfg.Sessions.SessionLoadSave())
	router.Use(auth.RequestContextMiddleware(cfg.SecureCookies))

	router.SetHTMLTemplate(template.Must(template.New("").Parse(pageTemplates)))

	guards := auth.NewGuardRegistry(cfg.Client)
	authController := NewAuthController(cfg.Client, cfg.Sessions, cfg.RateLimiter)
	pages := NewPagesController(cfg.Client)
	health := NewHealthController(cfg.SessionDB, backend.BaseURL+backend.Endpoints.CSRF, cfg.Version)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	authController.RegisterRoutes(router)

	// Pages
	router.GET("/", pages.Home)
	router.GET("/account", guards.Require(sanctum.GuardAuth), pages.Account)
	router.GET("/account/verified", guards.Require(sanctum.GuardVerified), pages.Account)

	// The verify and login pages live at the configured redirect targets when
	// those are free local paths; other targets are only redirected to.
	taken := map[string]bool{}
	for _, route := range router.Routes() {
		if route.Method == "GET" {
			taken[route.Path] = true
		}
	}
	mountRedirectPage(router, taken, backend.Redirects.Verify, guards.Require(sanctum.GuardUnverified), pages.Verify)
	mountRedirectPage(router, taken, backend.Redirects.Login, guards.Require(sanctum.GuardGuest), pages.Login)

	return router
}

func mountRedirectPage(router *gin.Engine, taken map[string]bool, path string, handlers ...gin.HandlerFunc) {
	if !routablePath(path) || taken[path] {
		log.Printf("Not serving a page at %q, it is used as a redirect target only", path)
		return
	}
	taken[path] = true
	router.GET(path, handlers...)
}

// routablePath reports whether path is a plain local path gin can register as is.
func routablePath(path string) bool {
	return auth.SanitizeRedirectPath(path, "") == path && !strings.ContainsAny(path, "?#:*")
}
