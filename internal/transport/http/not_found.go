package http

import "net/http"

// NotFoundHandler is the catch-all route. It answers in the same JSON
// error shape as every other handler so clients never parse two formats.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
}
