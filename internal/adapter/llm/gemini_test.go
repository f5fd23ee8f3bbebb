package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []genai.Part{
						genai.Text(`{"violations": `),
						genai.Blob{MIMEType: "image/png"},
						genai.Text(`[]}`),
					},
				},
			},
		},
	}

	if got := ResponseText(resp); got != `{"violations": []}` {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestResponseTextEmpty(t *testing.T) {
	if got := ResponseText(nil); got != "" {
		t.Errorf("expected empty text for nil response, got %q", got)
	}
	if got := ResponseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("expected empty text without candidates, got %q", got)
	}
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}
	if got := ResponseText(resp); got != "" {
		t.Errorf("expected empty text without content, got %q", got)
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(t.Context(), ""); err == nil {
		t.Error("expected error without API key")
	}
}
