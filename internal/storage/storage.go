package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/lehigh-university-libraries/imagegallery/internal/models"
)

// ErrUploadFailed wraps every failure to store a file
var ErrUploadFailed = errors.New("upload failed")

// Uploader stores an image and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, file models.FileUpload) (string, error)
}

// SniffContentType returns the MIME type of data, without parameters.
// The declared type is only used when the content gives no answer.
func SniffContentType(data []byte, declared string) string {
	sniffed := http.DetectContentType(data)
	if sniffed == "application/octet-stream" && declared != "" {
		sniffed = declared
	}
	mediaType, _, err := mime.ParseMediaType(sniffed)
	if err != nil {
		return sniffed
	}
	return mediaType
}

// NewFileUpload builds a FileUpload from raw bytes, sniffing its type
func NewFileUpload(name string, data []byte, declared string) models.FileUpload {
	return models.FileUpload{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: SniffContentType(data, declared),
		Data:        data,
	}
}

// Fetch downloads an image from a URL. At most maxBytes+1 bytes are read so
// that oversized files still fail validation instead of being truncated.
func Fetch(ctx context.Context, client *http.Client, imageURL string, maxBytes int64) (*models.FileUpload, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("invalid image url: %s", imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	name := path.Base(parsed.Path)
	if name == "" || name == "/" || name == "." {
		name = "image"
	}

	file := NewFileUpload(name, data, resp.Header.Get("Content-Type"))
	if resp.ContentLength > file.Size {
		file.Size = resp.ContentLength
	}
	return &file, nil
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

func extensionFor(file models.FileUpload) string {
	if ext, ok := extensions[file.ContentType]; ok {
		return ext
	}
	return strings.ToLower(path.Ext(file.Name))
}
