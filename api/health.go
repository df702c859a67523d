package api

import (
	"net/http"
	"time"
)

var startTime = time.Now()

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, healthResponse{Status: "ok", Uptime: time.Since(startTime).String()})
}
