package config

// Defaults matching the conventions of a stock Sanctum backend
const (
	// DefaultBaseURL is where the backend API is expected during local development
	DefaultBaseURL = "http://localhost:8000"

	// DefaultCSRFHeaderKey is the request header carrying the anti-forgery token
	DefaultCSRFHeaderKey = "X-XSRF-TOKEN"

	// DefaultCSRFCookieKey is the cookie the backend issues the anti-forgery token in
	DefaultCSRFCookieKey = "XSRF-TOKEN"

	// DefaultTokenCookieKey is the frontend cookie holding the bearer token in token mode
	DefaultTokenCookieKey = "nuxt-sanctum-auth-token"

	// DefaultBrowserStatePath is where the CLI keeps its cookie jar
	DefaultBrowserStatePath = "./sanctum-browser.db"
)
