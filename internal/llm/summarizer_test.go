package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextOf(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("world\n")}},
	}}}
	got, err := textOf(resp)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got)
}

func TestTextOf_Empty(t *testing.T) {
	_, err := textOf(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = textOf(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewGeminiSummarizer_RequiresKey(t *testing.T) {
	_, err := NewGeminiSummarizer(context.Background(), "", "", 0)
	require.Error(t, err)
}
