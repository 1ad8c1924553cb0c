package handlers

import (
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/lehigh-university-libraries/imagegallery/internal/metrics"
)

// Routes wires every endpoint. uploadDir, when set, is served under /uploads/.
func (h *Handler) Routes(uploadDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("POST /images/more", h.HandleMore)
	mux.HandleFunc("GET /images/new", h.HandleNewImage)
	mux.HandleFunc("POST /images", h.HandleCreateImage)
	mux.HandleFunc("POST /images/suggest", h.HandleSuggest)
	mux.HandleFunc("POST /api/upload", h.HandleUpload)
	mux.HandleFunc("POST /api/caption", h.HandleCaption)
	mux.HandleFunc("GET /api/gallery", h.HandleGalleryJSON)
	mux.HandleFunc("GET /static/gallery.css", h.HandleCSS)
	if uploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(noListing{http.Dir(uploadDir)})))
	}
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	return LogRequests(h.Localize(metrics.InstrumentHandler(mux)))
}

// noListing hides directory indexes and the blob index database
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() || !isServable(info.Name()) {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

func isServable(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	}
	return false
}
