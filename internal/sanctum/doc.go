// Package sanctum talks to a backend that uses cookie based, CSRF protected
// session authentication, with an optional bearer token mode.
//
// A Client wraps an http.Client with the request interceptor the backend
// expects: JSON Accept header, the anti-forgery header read from the CSRF
// cookie, the bearer token in token mode and, for server-rendered requests, the
// visitor's own cookies. On top of it sit the session operations (register,
// login, forgot/reset password, email verification, logout, current user) and
// the four route guard decisions.
//
// Nothing is ambient. Every call receives:
//
//   - a context.Context, which also carries whatever a StateStore needs to find
//     the visitor's AuthState (for instance an scs session);
//   - a RequestContext, the capability to read and write cookies for the
//     current execution (a browser-like jar, or an inbound server request).
//
// # Usage
//
//	client, err := sanctum.NewClient(cfg.Sanctum, sanctum.Options{})
//	rc, err := sanctum.NewBrowserContext(nil, cfg.Sanctum.BaseURL)
//
//	if _, err := client.Login(ctx, rc, credentials); err != nil {
//		return err
//	}
//	user := client.GetUser(ctx, rc, false)
//
//	redirect, err := client.Check(ctx, rc, sanctum.GuardVerified)
package sanctum
