// Package llm wraps the text-completion backend used to write report overviews.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrEmptyResponse = errors.New("empty completion")

// Summarizer turns a prompt with raw research input into prose.
type Summarizer interface {
	Summarize(ctx context.Context, input string) (string, error)
}

// GeminiSummarizer implements Summarizer with Google Gemini.
type GeminiSummarizer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

var _ Summarizer = (*GeminiSummarizer)(nil)

func NewGeminiSummarizer(ctx context.Context, apiKey, model string, timeout time.Duration, opts ...option.ClientOption) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiSummarizer{client: client, model: model, timeout: timeout}, nil
}

func (g *GeminiSummarizer) Summarize(ctx context.Context, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(3000)

	resp, err := model.GenerateContent(ctx, genai.Text(input))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return textOf(resp)
}

func (g *GeminiSummarizer) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func textOf(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return "", ErrEmptyResponse
	}
	var parts []string
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	out := strings.TrimSpace(strings.Join(parts, ""))
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
