package httpapi

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"lesson-quiz/internal/logger"
)

// statusRecorder captures the status code and size of a response and keeps
// the first maxLogBytes of the body for the request log.
type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	maxLogBytes  int
	bytesWritten int
	logBody      bytes.Buffer
	truncated    bool
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytesWritten += n

	if room := r.maxLogBytes - r.logBody.Len(); room > 0 {
		if n > room {
			r.logBody.Write(p[:room])
			r.truncated = true
		} else {
			r.logBody.Write(p[:n])
		}
	} else if r.maxLogBytes > 0 && n > 0 {
		r.truncated = true
	}
	return n, err
}

// requestLogger logs every request. Response bodies of /auth routes carry
// tokens and are never logged.
func requestLogger(log *logger.Logger, maxLogBytes int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK, maxLogBytes: maxLogBytes}
			next.ServeHTTP(recorder, r)

			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"bytes", recorder.bytesWritten,
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			}
			if recorder.logBody.Len() > 0 && !strings.HasPrefix(r.URL.Path, "/auth/") {
				fields = append(fields, "body", recorder.logBody.String(), "truncated", recorder.truncated)
			}
			if recorder.statusCode >= http.StatusInternalServerError {
				log.Warn("request", fields...)
				return
			}
			log.Debug("request", fields...)
		})
	}
}
