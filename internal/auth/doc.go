// Package auth plugs the sanctum client into a server-rendered gin frontend.
//
// Every visitor gets an scs session stored in SQLite; their AuthState lives in
// it, so two visitors never see each other's user. Calls to the backend are
// made through a GinContext, which forwards the visitor's cookies and relays
// the cookies the backend sets.
//
// # Configuration
//
//	SESSION_DATABASE_PATH=./sanctum-frontend.db  # SQLite file for sessions
//	SESSION_COOKIE_NAME=frontend_session
//	SESSION_LIFETIME=24h
//	SESSION_SECRET=<base64-32-bytes>             # Auto-generated if empty
//	SESSION_SECURE_COOKIES=true                  # HTTPS-only cookies
//
// # Usage
//
//	sessions, err := auth.NewSessionManager(db, cfg.Session)
//	client, err := sanctum.NewClient(cfg.Sanctum, sanctum.Options{States: sessions.StateStore()})
//	guards := auth.NewGuardRegistry(client)
//
//	router.Use(sessions.SessionLoadSave(), auth.RequestContextMiddleware(secure))
//	router.GET("/account", guards.Require(sanctum.GuardAuth), showAccount)
//
// Extract the user in handlers behind a guard:
//
//	user := auth.GetUser(c)
package auth
