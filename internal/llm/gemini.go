// Package llm wraps the generative text backend behind a small
// interface so the pipeline can run against a fake in tests.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/quizforge/quizforge-backend/internal/config"
)

// ErrEmptyResponse reports a completion that carried no text content.
// Callers treat it like any other upstream failure.
var ErrEmptyResponse = errors.New("llm: model returned no text content")

// Prompt is a single text-generation request.
type Prompt struct {
	System      string
	User        string
	Temperature float32
}

// TextGenerator produces free-form text from a prompt. Implementations
// must honor ctx cancellation and deadlines.
type TextGenerator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// GeminiClient is the production TextGenerator backed by the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGeminiClient builds a Gemini client from config. It fails fast when
// no API key is configured rather than erroring on first use.
func NewGeminiClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*GeminiClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("llm: GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  cfg.GeminiModel,
		log:    log.With().Str("component", "gemini").Logger(),
	}, nil
}

// Generate implements TextGenerator.
func (g *GeminiClient) Generate(ctx context.Context, p Prompt) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(p.Temperature)
	if p.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.System)}}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(p.User))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	g.log.Debug().
		Str("model", g.model).
		Int("chars", len(text)).
		Msg("Completion received")

	return text, nil
}

// Close releases the underlying API connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// extractText concatenates the text parts of every returned candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return sb.String()
}
