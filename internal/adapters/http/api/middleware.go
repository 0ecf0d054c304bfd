package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/surrender/pkg/metrics"
)

// Instrument counts and times every request to route under its
// method and response status.
func Instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(route, r.Method, code)
		metrics.RecordHTTPRequestDuration(route, r.Method, code, float64(time.Since(began).Milliseconds()))
	}
}

// statusRecorder remembers the status a handler wrote. Handlers that only
// call Write leave it at 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
