package caption

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/imagegallery/internal/models"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini is a caption provider for Google Gemini
type Gemini struct {
	apiKey string
}

// NewGemini returns a Gemini provider, or ErrNotConfigured without an API key
func NewGemini(apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", ErrNotConfigured)
	}
	return &Gemini{apiKey: apiKey}, nil
}

// Suggest sends the image and the caption prompt to Gemini
func (g *Gemini) Suggest(ctx context.Context, file models.FileUpload, config Config) (*Suggestion, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	modelName := config.Model
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(float32(config.Temperature))
	model.ResponseMIMEType = "application/json"

	format := strings.TrimPrefix(file.ContentType, "image/")
	resp, err := model.GenerateContent(ctx,
		genai.ImageData(format, file.Data),
		genai.Text(Prompt(config.Locale)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return Parse(string(txt))
	}

	return nil, fmt.Errorf("unexpected response format from Gemini")
}
