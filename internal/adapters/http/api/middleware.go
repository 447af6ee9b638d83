package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
	"github.com/sourcegraph/conc/panics"
)

// instrument records request count and latency per endpoint, and turns a
// handler panic into a 500 so one bad request cannot take the server down.
func instrument(log logger.Logger, endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if p := panics.Try(func() { next(rec, r) }); p != nil {
			log.Error(r.Context(), "http handler panicked",
				logger.String("endpoint", endpoint),
				logger.String("panic", p.String()))
			if !rec.wrote {
				writeError(rec, http.StatusInternalServerError, "internal", nil)
			}
			rec.status = http.StatusInternalServerError
		}

		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(time.Since(start).Microseconds())/1e3)
		if rec.status >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http", errorClass(rec.status))
		}
	}
}

func errorClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusConflict:
		return "conflict"
	default:
		return "client_error"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.wrote = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}
