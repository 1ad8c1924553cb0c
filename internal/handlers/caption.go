package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/imagegallery/internal/caption"
	"github.com/lehigh-university-libraries/imagegallery/internal/i18n"
	"github.com/lehigh-university-libraries/imagegallery/internal/models"
	"github.com/lehigh-university-libraries/imagegallery/internal/validation"
)

func (h *Handler) suggest(r *http.Request, file models.FileUpload) (*caption.Suggestion, error) {
	if h.captioner == nil {
		return nil, caption.ErrNotConfigured
	}
	config := h.captionConfig
	config.Locale = i18n.FromContext(r.Context()).Lang()
	return h.captioner.Suggest(r.Context(), file, config)
}

// HandleCaption suggests a title and description for an image
func (h *Handler) HandleCaption(w http.ResponseWriter, r *http.Request) {
	if h.captioner == nil {
		h.writeError(w, "Caption suggestions are not configured", http.StatusNotFound)
		return
	}

	file, err := h.readImage(w, r)
	if err != nil {
		h.writeError(w, "Failed to read image: "+err.Error(), http.StatusBadRequest)
		return
	}
	draft := models.FormDraft{File: file}
	if v, failed := validation.ValidateField(draft, validation.FieldImage); failed {
		h.writeJSONStatus(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": violationMessages(validation.Result{v.Field: v}),
		})
		return
	}

	suggestion, err := h.suggest(r, *file)
	if err != nil {
		h.writeError(w, "Failed to suggest caption: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, suggestion)
}

// HandleSuggest is the form's suggest button: the image is stored like on
// a normal selection and the form comes back prefilled
func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)

	file, err := h.readImage(w, r)
	if err != nil {
		if !errors.Is(err, errNoImage) {
			slog.Error("Failed to read image", "session_id", session.ID, "err", err)
		}
		session.SetViolations(validation.Result{validation.FieldImage: imageRequired(r)})
		h.redirectToForm(w, r, r.FormValue("title"), r.FormValue("description"))
		return
	}

	selected := session.Flow.SelectFile(r.Context(), *file)
	if len(selected.Violations) > 0 {
		session.SetViolations(selected.Violations)
		h.redirectToForm(w, r, r.FormValue("title"), r.FormValue("description"))
		return
	}
	if selected.Err != nil {
		session.Flash(selected.Notice)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	title, description := r.FormValue("title"), r.FormValue("description")
	suggestion, err := h.suggest(r, *file)
	if err != nil {
		slog.Error("Failed to suggest caption", "session_id", session.ID, "err", err)
	} else {
		title, description = suggestion.Title, suggestion.Description
	}
	h.redirectToForm(w, r, title, description)
}

func imageRequired(r *http.Request) validation.Violation {
	v, _ := validation.ValidateField(models.FormDraft{}, validation.FieldImage)
	v.Message = i18n.FromContext(r.Context()).T(v.MessageID(), v.Message)
	return v
}
