package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var promptTemplates embed.FS

// DefaultNote is used in the compliance prompt when the user gave no question.
const DefaultNote = "Perform full compliance check."

var prompts = template.Must(template.ParseFS(promptTemplates, "templates/*.tmpl"))

type compliancePrompt struct {
	Rules    string
	Schedule string
	Note     string
}

type answerPrompt struct {
	Rules    string
	Question string
}

func renderPrompt(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func extractionPrompt() (string, error) {
	return renderPrompt("extract.tmpl", nil)
}
