package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/imagegallery/internal/caption"
	"github.com/lehigh-university-libraries/imagegallery/internal/sessions"
	"github.com/lehigh-university-libraries/imagegallery/internal/validation"
)

// SessionCookie holds the browser's session id
const SessionCookie = "gallery_session"

type Handler struct {
	sessionStore  *sessions.Store
	captioner     caption.Provider
	captionConfig caption.Config
	httpClient    *http.Client
	defaultLocale string
}

// Option configures a Handler
type Option func(*Handler)

// WithCaptioner enables caption suggestions
func WithCaptioner(p caption.Provider, config caption.Config) Option {
	return func(h *Handler) {
		h.captioner = p
		h.captionConfig = config
	}
}

// WithHTTPClient sets the client used to download images by URL
func WithHTTPClient(c *http.Client) Option {
	return func(h *Handler) {
		h.httpClient = c
	}
}

// WithDefaultLocale sets the locale used when Accept-Language matches nothing
func WithDefaultLocale(locale string) Option {
	return func(h *Handler) {
		h.defaultLocale = locale
	}
}

func New(store *sessions.Store, opts ...Option) *Handler {
	h := &Handler{
		sessionStore: store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		defaultLocale: "en",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Session helpers

// session returns the caller's session, starting one and setting the
// cookie when the request carries no known id
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *sessions.Session {
	var id string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}

	session, created := h.sessionStore.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    session.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return session
}

// violationMessages flattens a validation result for JSON and templates
func violationMessages(result validation.Result) map[string]string {
	out := make(map[string]string, len(result))
	for field, v := range result {
		out[string(field)] = v.Message
	}
	return out
}
