package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/lehigh-university-libraries/imagegallery/internal/i18n"
	"github.com/lehigh-university-libraries/imagegallery/internal/models"
	"github.com/lehigh-university-libraries/imagegallery/internal/notice"
	"github.com/lehigh-university-libraries/imagegallery/internal/storage"
	"github.com/lehigh-university-libraries/imagegallery/internal/upload"
	"github.com/lehigh-university-libraries/imagegallery/internal/validation"
)

const (
	// maxRequestBytes bounds a whole form post. A post over it is reported
	// as a file that is too large rather than as a failed upload.
	maxRequestBytes = 8 << 20
	maxMemory       = 2 << 20
)

var errNoImage = errors.New("no image in request")

// HandleUpload is the file selection step: the image is validated and
// stored, and its URL is returned for the later submit
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)

	file, err := h.readImage(w, r)
	if errors.Is(err, errNoImage) {
		h.writeError(w, "image or image_url is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to read image: "+err.Error(), http.StatusBadRequest)
		return
	}

	out := session.Flow.SelectFile(r.Context(), *file)
	switch {
	case len(out.Violations) > 0:
		h.writeJSONStatus(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": violationMessages(out.Violations),
		})
	case out.Err != nil:
		h.writeJSONStatus(w, http.StatusBadGateway, map[string]any{
			"error":  out.Err.Error(),
			"notice": out.Notice,
		})
	default:
		h.writeJSON(w, map[string]any{
			"url":   out.URL,
			"state": out.State.String(),
		})
	}
}

// HandleNewImage renders the add-image form with the last attempt's errors
func (h *Handler) HandleNewImage(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	h.render(w, r, "new.html", map[string]any{
		"Errors":      violationMessages(session.TakeViolations()),
		"Notices":     session.TakeNotices(),
		"UploadedURL": session.Flow.URL(),
		"Title":       r.URL.Query().Get("title"),
		"Description": r.URL.Query().Get("description"),
		"CanSuggest":  h.captioner != nil,
	})
}

// HandleCreateImage is the form submit. A file sent along with the form is
// stored first, then the metadata is registered.
func (h *Handler) HandleCreateImage(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	ctx := r.Context()

	file, err := h.readImage(w, r)
	if err != nil && !errors.Is(err, errNoImage) {
		slog.Error("Failed to read image", "session_id", session.ID, "err", err)
		session.Flow.Reset()
		session.Flash(notice.New(i18n.FromContext(ctx), notice.UploadFailed))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	title := r.FormValue("title")
	description := r.FormValue("description")

	if file != nil {
		selected := session.Flow.SelectFile(ctx, *file)
		if len(selected.Violations) > 0 {
			session.SetViolations(selected.Violations)
			h.redirectToForm(w, r, title, description)
			return
		}
		if selected.Err != nil {
			session.Flash(selected.Notice)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	out := session.Flow.Submit(ctx, title, description)
	if len(out.Violations) > 0 {
		session.SetViolations(out.Violations)
		h.redirectToForm(w, r, title, description)
		return
	}
	if out.Err != nil && !errors.Is(out.Err, upload.ErrMissingUpload) {
		slog.Error("Image submission failed", "session_id", session.ID, "err", out.Err)
	}
	session.Flash(out.Notice)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) redirectToForm(w http.ResponseWriter, r *http.Request, title, description string) {
	query := url.Values{"title": {title}, "description": {description}}
	http.Redirect(w, r, "/images/new?"+query.Encode(), http.StatusSeeOther)
}

// readImage extracts the selected image from a multipart "image" field, or
// downloads it from "image_url" given as a form value or JSON
func (h *Handler) readImage(w http.ResponseWriter, r *http.Request) (*models.FileUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var request struct {
			ImageURL string `json:"image_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return h.fetchImage(r, request.ImageURL)
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if r.ContentLength > maxRequestBytes {
			return oversized(r.ContentLength), nil
		}
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return oversized(tooLarge.Limit + 1), nil
			}
			return nil, fmt.Errorf("invalid form: %w", err)
		}
		part, header, err := r.FormFile("image")
		if err == nil {
			defer part.Close()
			data, err := io.ReadAll(io.LimitReader(part, validation.MaxFileSize+1))
			if err != nil {
				return nil, fmt.Errorf("failed to read file contents: %w", err)
			}
			if len(data) > 0 {
				file := storage.NewFileUpload(header.Filename, data, header.Header.Get("Content-Type"))
				if header.Size > file.Size {
					file.Size = header.Size
				}
				return &file, nil
			}
		} else if !errors.Is(err, http.ErrMissingFile) {
			return nil, err
		}
	}

	return h.fetchImage(r, r.FormValue("image_url"))
}

// oversized stands in for a file whose body was cut off at the request
// limit; only its size is known, which is enough to fail validation
func oversized(size int64) *models.FileUpload {
	return &models.FileUpload{Size: size}
}

func (h *Handler) fetchImage(r *http.Request, imageURL string) (*models.FileUpload, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, errNoImage
	}
	return storage.Fetch(r.Context(), h.httpClient, imageURL, validation.MaxFileSize)
}
