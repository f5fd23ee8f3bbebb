package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"compliance/internal/domain"
	"compliance/internal/port"
)

const markdownInstruction = `Convert the attached regulatory document to markdown.
Start every top-level section with a single "# " heading that keeps the section number and title.
Use "##" or deeper for subsections. Keep all rule text, numbers and limits exactly as written.
Output only the markdown.`

// ModelParser asks a multi-modal model to transcribe a document into
// markdown with one "# " heading per section.
type ModelParser struct {
	reasoner port.Reasoner
}

func NewModelParser(reasoner port.Reasoner) *ModelParser {
	return &ModelParser{reasoner: reasoner}
}

func (p *ModelParser) Parse(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	file := domain.NewEvidenceFile(path, data, "application/pdf")
	text, err := p.reasoner.Generate(ctx, markdownInstruction, file)
	if err != nil {
		return "", fmt.Errorf("model transcription failed: %w", err)
	}
	return stripMarkdownFence(text), nil
}

// stripMarkdownFence removes a ```markdown wrapper some models add around
// the whole answer.
func stripMarkdownFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return text
	}
	body := strings.TrimSuffix(trimmed, "```")
	if nl := strings.Index(body, "\n"); nl >= 0 {
		body = body[nl+1:]
	} else {
		return text
	}
	return strings.TrimSpace(body)
}
