package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/imagegallery/internal/i18n"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// LogRequests logs every request once it has been served
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		level := slog.LevelInfo
		if sw.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

// Localize puts a localizer for the request's Accept-Language in its context
func (h *Handler) Localize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lc := i18n.New(r.Header.Get("Accept-Language"), h.defaultLocale)
		next.ServeHTTP(w, r.WithContext(i18n.WithLocalizer(r.Context(), lc)))
	})
}
