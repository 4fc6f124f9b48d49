package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // backend validation errors and the like
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondBackendError maps a failed backend call onto our response. Client
// errors are relayed with the backend's body so validation messages reach the
// browser; server and transport errors become 502.
func respondBackendError(c *gin.Context, err error, op string) {
	var httpErr *sanctum.HTTPError
	if !errors.As(err, &httpErr) || httpErr.IsServerError() {
		log.Printf("Backend error (%s): %v", op, err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "backend unavailable", Code: "backend_error"})
		return
	}

	status := httpErr.StatusCode
	resp := ErrorResponse{Error: strings.ToLower(http.StatusText(status)), Code: "backend_rejected"}
	if body := backendErrorBody(err); body != nil {
		if msg, ok := body["message"].(string); ok && msg != "" {
			resp.Error = msg
		}
		if details, ok := body["errors"]; ok {
			resp.Details = details
		}
	}
	c.JSON(status, resp)
}

func backendErrorBody(err error) map[string]any {
	var httpErr *sanctum.HTTPError
	if !errors.As(err, &httpErr) || len(bytes.TrimSpace(httpErr.Body)) == 0 {
		return nil
	}
	var body map[string]any
	if json.Unmarshal(httpErr.Body, &body) != nil {
		return nil
	}
	return body
}

// --- Request Parsing ---

// bindPayload reads a JSON or form encoded body into a generic object, which is
// forwarded to the backend as is. A JSON body may already have been cached by
// middleware.
func bindPayload(c *gin.Context) (map[string]any, bool) {
	payload := map[string]any{}
	if c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindBodyWith(&payload, binding.JSON); err != nil {
			respondBadRequest(c, "invalid JSON body")
			return nil, false
		}
		return payload, true
	}

	if err := c.Request.ParseForm(); err != nil {
		respondBadRequest(c, "invalid form body")
		return nil, false
	}
	for key, values := range c.Request.PostForm {
		if key == "gorilla.csrf.Token" || len(values) == 0 {
			continue
		}
		payload[key] = values[0]
	}
	return payload, true
}

// wantsJSON reports whether the caller is browser code rather than a form post.
func wantsJSON(c *gin.Context) bool {
	return c.ContentType() == binding.MIMEJSON ||
		strings.Contains(c.GetHeader("Accept"), "application/json") ||
		c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// redirectWithError sends a form post back to path with an error message.
func redirectWithError(c *gin.Context, path, message string) {
	c.Redirect(http.StatusSeeOther, path+separatorFor(path)+"error="+url.QueryEscape(message))
}

// separatorFor returns the character that appends a query parameter to path.
func separatorFor(path string) string {
	if strings.Contains(path, "?") {
		return "&"
	}
	return "?"
}
