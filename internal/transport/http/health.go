package http

import "net/http"

// HealthHandler answers liveness checks. It does not touch the database:
// a saturated pool must not flap the health endpoint.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
