package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusRecorder captures the response code written by a handler so the
// request log can include it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLog assigns each request an ID and records method, path, status and
// duration in the event log.
func (s *Server) withLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		s.events.Log("http %s %s %s -> %d (%s)", reqID, r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	}
}
