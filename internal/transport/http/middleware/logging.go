package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"paycalc/internal/platform/metrics"
	"paycalc/internal/requestctx"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logger writes one access log line per request and feeds the metrics
// collector. It also attaches a request scoped logger for handlers.
func Logger(logger *zap.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := GetRequestID(r.Context())
			scoped := logger.With(zap.String("requestId", requestID))
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(requestctx.WithLogger(r.Context(), scoped)))

			duration := time.Since(start)
			collector.Record(recorder.status, duration)
			scoped.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.status),
				zap.Int64("durationMs", duration.Milliseconds()),
			)
		})
	}
}
