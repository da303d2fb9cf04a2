package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request and attaches a request scoped log entry
// carrying the request id to the context.
func RequestLogger(base *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newStatusWriter(w)

			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			rw.Header().Set("X-Request-ID", reqID)

			entry := base.WithFields(logrus.Fields{
				"req_id":      reqID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})
			ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
			ctx = WithLogger(ctx, entry)

			next.ServeHTTP(rw, r.WithContext(ctx))

			fields := logrus.Fields{
				"status":      rw.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"user_agent":  r.UserAgent(),
			}
			switch {
			case rw.status >= http.StatusInternalServerError:
				entry.WithFields(fields).Error("http_request")
			case rw.status >= http.StatusBadRequest:
				entry.WithFields(fields).Warn("http_request")
			default:
				entry.WithFields(fields).Info("http_request")
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *statusWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rw *statusWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
