package statusserver

import (
	"log/slog"
	"net/http"
	"time"
)

// statusWriter records the status code and body size written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// withRequestLog logs every request after it is served. Reads are logged at debug
// level since they come from periodic scrapers.
func withRequestLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, req)

		level := slog.LevelInfo
		if req.Method == http.MethodGet {
			level = slog.LevelDebug
		}
		logger.Log(req.Context(), level, "HTTP request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", sw.Status(),
			"duration", time.Since(start),
			"size", sw.size,
			"remote_addr", req.RemoteAddr,
		)
	})
}

// withRecovery turns a handler panic into a 500 response.
func withRecovery(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("HTTP handler panic recovered",
					"error", err,
					"path", req.URL.Path,
					"method", req.Method,
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}
