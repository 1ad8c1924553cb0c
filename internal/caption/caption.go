package caption

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/imagegallery/internal/models"
	"github.com/lehigh-university-libraries/imagegallery/internal/validation"
)

// ErrNotConfigured is returned when no caption provider credentials are set
var ErrNotConfigured = errors.New("caption provider not configured")

// Config represents the configuration for a caption request
type Config struct {
	Model       string
	Temperature float64
	Locale      string
}

// Suggestion is a proposed title and description for an image
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Provider suggests a title and description for an image
type Provider interface {
	Suggest(ctx context.Context, file models.FileUpload, config Config) (*Suggestion, error)
}

// Prompt asks for JSON that fits the form's bounds
func Prompt(locale string) string {
	if locale == "" {
		locale = "en"
	}
	return fmt.Sprintf(`Look at this image and propose a short title and a one-sentence description for a photo gallery.
The title must be between %d and %d characters. The description must be at most %d characters.
Write both in the language with BCP 47 tag %q.
Respond with only a JSON object: {"title": "...", "description": "..."}`,
		validation.TitleMinLength, validation.TitleMaxLength, validation.DescriptionMaxLength, locale)
}

// Parse reads a model response, tolerating markdown code fences, and
// trims the suggestion to the form's bounds
func Parse(text string) (*Suggestion, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var s Suggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("failed to parse caption response: %w", err)
	}
	s.Title = truncate(strings.TrimSpace(s.Title), validation.TitleMaxLength)
	s.Description = truncate(strings.TrimSpace(s.Description), validation.DescriptionMaxLength)
	if s.Title == "" && s.Description == "" {
		return nil, fmt.Errorf("empty caption response")
	}
	return &s, nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
