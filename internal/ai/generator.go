// Package ai suggests the next line of the story.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyai/internal/logging"

	"google.golang.org/genai"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("AI line generation is not configured")

// LineGenerator continues a story by one line.
type LineGenerator interface {
	GenerateLine(ctx context.Context, story []string) (string, error)
}

// =============================================================================
// GOOGLE GENAI LINE GENERATOR
// =============================================================================

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 30 * time.Second

	systemPrompt = "You are co-writing a collaborative story, one line at a time. " +
		"Reply with exactly one new line that continues the story. " +
		"No quotes, no numbering, no commentary."
)

// contentGenerator is the slice of *genai.Models the generator uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIGenerator generates lines with Google's Gemini API.
type GenAIGenerator struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

// NewGenAIGenerator creates a generator for apiKey.
func NewGenAIGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGenerator(client.Models, model, timeout), nil
}

func newGenerator(models contentGenerator, model string, timeout time.Duration) *GenAIGenerator {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GenAIGenerator{models: models, model: model, timeout: timeout}
}

// GenerateLine asks the model for the next line and returns the last
// non-empty line of its reply.
func (g *GenAIGenerator) GenerateLine(ctx context.Context, story []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	timer := logging.StartTimer(logging.CategoryAI, "GenerateLine")
	defer timer.StopWithThreshold(5 * time.Second)

	prompt := "Story so far:\n" + strings.Join(story, "\n") + "\n\nNext line:"
	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.7),
			MaxOutputTokens:   64,
		})
	if err != nil {
		logging.AIError("generate line failed: %v", err)
		return "", fmt.Errorf("failed to generate line: %w", err)
	}

	line := lastLine(resp.Text())
	if line == "" {
		return "", errors.New("failed to generate line: empty response")
	}
	logging.AIDebug("generated %d chars with %s", len(line), g.model)
	return line, nil
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return strings.Trim(l, `"`)
		}
	}
	return ""
}
