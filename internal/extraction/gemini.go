package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// extractTimeout bounds each upstream model call. A timeout is reported
// as ErrExtractorUnavailable, the same as any other upstream failure.
const extractTimeout = 60 * time.Second

// Gemini implements the Extractor interface using Google Gemini.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Extract sends the page images and the variant's prompt to Gemini and
// parses its JSON reply.
func (g *Gemini) Extract(ctx context.Context, images [][]byte, variant PromptVariant) (*Result, error) {
	if len(images) < 1 || len(images) > 2 {
		return nil, fmt.Errorf("exactly one or two images are required, got %d", len(images))
	}

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	parts := make([]genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, genai.ImageData("jpeg", img))
	}
	parts = append(parts, genai.Text(promptText(variant)))

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: request timed out", ErrExtractorUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrExtractorUnavailable, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return parseExtractionJSON(responseText.String())
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
