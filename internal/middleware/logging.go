package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/odanieltavares/whatpro-manager/internal/httputil"
	"github.com/odanieltavares/whatpro-manager/internal/tracing"
)

// RequestLogging traces and logs every HTTP request. Each request gets an
// OpenTelemetry span carrying method, route and client address; the
// completion log line includes the span's trace id so log entries can be
// correlated with traces.
func RequestLogging(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.StartSpan(r.Context(), "http.request",
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
				attribute.String("client.address", httputil.ClientIP(r)),
			)
			defer span.End()

			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(wrapper, r.WithContext(ctx))

			duration := time.Since(start)
			span.SetAttributes(attribute.Int("http.status_code", wrapper.statusCode))
			if wrapper.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(wrapper.statusCode))
			}

			fields := logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   wrapper.statusCode,
				"duration": duration.String(),
				"clientIp": httputil.ClientIP(r),
			}
			if traceID := tracing.TraceID(ctx); traceID != "" {
				fields["traceId"] = traceID
			}

			entry := logger.WithFields(fields)
			switch {
			case wrapper.statusCode >= http.StatusInternalServerError:
				entry.Error("Request failed")
			case wrapper.statusCode >= http.StatusBadRequest:
				entry.Warn("Request rejected")
			default:
				entry.Debug("Request completed")
			}
		})
	}
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
