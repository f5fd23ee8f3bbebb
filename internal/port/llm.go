package port

import (
	"context"

	"compliance/internal/domain"
)

// Reasoner is a (multi-modal) language model.
type Reasoner interface {
	// Generate sends one request made of the prompt followed by every
	// attachment as inline data, and returns the response text.
	Generate(ctx context.Context, prompt string, attachments ...domain.EvidenceFile) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
