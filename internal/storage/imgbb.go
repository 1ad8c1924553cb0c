package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/lehigh-university-libraries/imagegallery/internal/models"
)

// DefaultImgBBEndpoint is the imgbb upload API
const DefaultImgBBEndpoint = "https://api.imgbb.com/1/upload"

// ImgBB uploads images to imgbb.com and returns the hosted URL
type ImgBB struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
}

// NewImgBB creates an imgbb uploader for the given API key
func NewImgBB(apiKey string) *ImgBB {
	return &ImgBB{
		APIKey:   apiKey,
		Endpoint: DefaultImgBBEndpoint,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type imgbbResponse struct {
	Data struct {
		ID         string `json:"id"`
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the file as multipart form data
func (i *ImgBB) Upload(ctx context.Context, file models.FileUpload) (string, error) {
	if i.APIKey == "" {
		return "", fmt.Errorf("%w: imgbb API key not set", ErrUploadFailed)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", file.Name)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create form file: %w", ErrUploadFailed, err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return "", fmt.Errorf("%w: failed to write form file: %w", ErrUploadFailed, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to close form: %w", ErrUploadFailed, err)
	}

	endpoint := i.Endpoint + "?" + url.Values{"key": {i.APIKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %w", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := i.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("%w: imgbb returned status %d: %s", ErrUploadFailed, resp.StatusCode, string(msg))
	}

	var result imgbbResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode imgbb response: %w", ErrUploadFailed, err)
	}
	if !result.Success || result.Data.URL == "" {
		return "", fmt.Errorf("%w: imgbb rejected upload: %s", ErrUploadFailed, result.Error.Message)
	}
	return result.Data.URL, nil
}
