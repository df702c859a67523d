package api

import (
	"net/http"
	"time"

	"metastore/internal/logger"
)

// loggingMiddleware logs each request's method, path and duration at INFO,
// matching the teacher's per-request logging idiom.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
