package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the per-request ID back to the client.
const RequestIDHeader = "X-Request-Id"

type ctxKey struct{}

// RequestIDFromContext returns the ID set by the request ID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// requestID reuses an incoming X-Request-Id or mints a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// accessLog must run after requestID so the ID is available.
func accessLog(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l := logger.WithFields(logrus.Fields{
				"request_id": RequestIDFromContext(r.Context()),
				"method":     r.Method,
				"uri":        r.RequestURI,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"latency_ms": time.Since(start).Milliseconds(),
			})

			switch {
			case status >= http.StatusInternalServerError:
				l.Error("Server error")
			case status >= http.StatusBadRequest:
				l.Warn("Client error")
			default:
				l.Info("Request processed")
			}
		})
	}
}
