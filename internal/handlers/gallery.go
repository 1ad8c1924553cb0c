package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/imagegallery/internal/gallery"
	"github.com/lehigh-university-libraries/imagegallery/internal/models"
)

// HandleIndex renders the grid. The first page is fetched on the first visit;
// later pages only arrive through "load more".
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	store := session.Gallery

	if !store.Loaded() && store.Err() == nil {
		if err := store.FetchNext(r.Context()); err != nil {
			slog.Error("Failed to load first page", "session_id", session.ID, "err", err)
		}
	}

	loaded := store.Loaded()
	failed := store.Err() != nil
	grid := gallery.Project(store.Records(), store.HasMore(), r.URL.Query().Get("preview"))

	h.render(w, r, "index.html", map[string]any{
		"Grid":    grid,
		"Notices": session.TakeNotices(),
		"Error":   failed && !loaded,
		"Loading": !loaded && !failed,
		"Refresh": !loaded && !failed,
	})
}

// HandleMore fetches the next page and goes back to the grid
func (h *Handler) HandleMore(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if err := session.Gallery.FetchNext(r.Context()); err != nil {
		slog.Error("Failed to load next page", "session_id", session.ID, "err", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type galleryResponse struct {
	Data    []models.ImageRecord `json:"data"`
	HasMore bool                 `json:"has_more"`
	Loaded  bool                 `json:"loaded"`
	Error   string               `json:"error,omitempty"`
}

// HandleGalleryJSON returns the session's accumulated records
func (h *Handler) HandleGalleryJSON(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	store := session.Gallery

	resp := galleryResponse{
		Data:    store.Records(),
		HasMore: store.HasMore(),
		Loaded:  store.Loaded(),
	}
	if err := store.Err(); err != nil {
		resp.Error = err.Error()
	}
	h.writeJSON(w, resp)
}
