package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hooptrack/backend/pkg/logger"
)

// RequestLogger logs every request with a trace id, echoing the id back in
// the X-Trace-ID header.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get("X-Trace-ID")
			if traceID == "" {
				traceID = uuid.NewString()
			}
			ctx := logger.WithTraceID(r.Context(), traceID)
			w.Header().Set("X-Trace-ID", traceID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			log.WithContext(ctx).
				WithField("method", r.Method).
				WithField("path", r.URL.Path).
				WithField("status", rec.status).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				Info("request handled")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
