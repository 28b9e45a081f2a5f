package handler

import (
	"net/http"
	"time"

	"promptgate/internal/httputil"
)

// Index is the liveness text endpoint
// GET /
func Index(w http.ResponseWriter, r *http.Request) {
	httputil.RespondText(w, http.StatusOK, "Prompt gateway is running. Use POST /ask.")
}

// HealthCheck is a simple health check endpoint
// GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}
