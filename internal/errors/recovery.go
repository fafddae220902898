package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/copyleftdev/newtonopt/internal/logging"
)

// RecoveryMiddleware returns a middleware that recovers from panics and
// answers with a JSON 500.
func RecoveryMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Recovered from panic",
					zap.String("error", fmt.Sprint(rec)),
					zap.ByteString("stack", debug.Stack()),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("query", r.URL.RawQuery),
				)

				WriteJSON(w, http.StatusInternalServerError, Response{
					Error: http.StatusText(http.StatusInternalServerError),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ErrorHandler is a middleware that logs responses with a status of 400 or
// above: client errors at warn level, server errors at error level. The
// request-scoped logger from the context is preferred over logger.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			if rw.status < http.StatusBadRequest {
				return
			}

			l := logger
			if ctxLogger := logging.FromContext(r.Context()); ctxLogger != zap.L() {
				l = ctxLogger
			}
			fields := []zap.Field{
				zap.Int("status", rw.status),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.String("ip", r.RemoteAddr),
			}
			if rw.status >= http.StatusInternalServerError {
				l.Error("Request error", fields...)
			} else {
				l.Warn("Request error", fields...)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// WriteHeader captures the status code before writing the header.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
