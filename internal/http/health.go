package http

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const backendCheckTimeout = 3 * time.Second

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports on the session store and, when asked with
// ?backend=1, on whether the backend answers at checkURL.
type HealthController struct {
	db       *sql.DB
	checkURL string
	http     *http.Client
	version  string
}

func NewHealthController(db *sql.DB, checkURL, version string) *HealthController {
	return &HealthController{
		db:       db,
		checkURL: checkURL,
		http:     &http.Client{Timeout: backendCheckTimeout},
		version:  version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	ctx := c.Request.Context()
	checks := map[string]string{"sessions": h.checkSessions(ctx)}
	status := "healthy"
	statusCode := http.StatusOK

	if checks["sessions"] != "ok" && checks["sessions"] != "not configured" {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	// The frontend still serves pages while the backend is down
	if c.Query("backend") == "1" || c.Query("backend") == "true" {
		checks["backend"] = h.checkBackend(ctx)
		if checks["backend"] != "ok" && status == "healthy" {
			status = "degraded"
		}
	}

	c.IndentedJSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}

func (h *HealthController) checkSessions(ctx context.Context) string {
	if h.db == nil {
		return "not configured"
	}
	if err := h.db.PingContext(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

// checkBackend treats any answer below 500 as reachable; the request carries no
// cookies, so 401 and 419 are expected.
func (h *HealthController) checkBackend(ctx context.Context) string {
	if h.checkURL == "" {
		return "not configured"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.checkURL, nil)
	if err != nil {
		return "error: " + err.Error()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		return "error: " + err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Sprintf("error: status %d", resp.StatusCode)
	}
	return "ok"
}
