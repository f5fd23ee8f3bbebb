package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"compliance/internal/domain"
)

type fakeReasoner struct {
	response    string
	err         error
	attachments []domain.EvidenceFile
}

func (f *fakeReasoner) Generate(ctx context.Context, prompt string, attachments ...domain.EvidenceFile) (string, error) {
	f.attachments = attachments
	return f.response, f.err
}

func (f *fakeReasoner) ModelName() string { return "fake" }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTextParser(t *testing.T) {
	path := writeFile(t, "rules.md", "# Section 1\nbody")

	text, err := NewTextParser().Parse(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if text != "# Section 1\nbody" {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestRouterByExtension(t *testing.T) {
	model := &fakeReasoner{response: "```markdown\n# Section 1\nfrom model\n```"}
	router := NewRouter(nil).
		Register(NewTextParser(), ".md", ".txt").
		Register(NewModelParser(model), ".pdf")

	mdPath := writeFile(t, "rules.MD", "# From text")
	text, err := router.Parse(context.Background(), mdPath)
	if err != nil {
		t.Fatal(err)
	}
	if text != "# From text" {
		t.Errorf("expected text parser output, got %q", text)
	}

	pdfPath := writeFile(t, "rules.pdf", "%PDF-1.4")
	text, err = router.Parse(context.Background(), pdfPath)
	if err != nil {
		t.Fatal(err)
	}
	if text != "# Section 1\nfrom model" {
		t.Errorf("expected fence-stripped model output, got %q", text)
	}
	if len(model.attachments) != 1 || model.attachments[0].Kind != domain.EvidencePDF {
		t.Errorf("expected the pdf to be attached, got %+v", model.attachments)
	}
}

func TestRouterErrorsAreParseErrors(t *testing.T) {
	router := NewRouter(nil).Register(NewTextParser(), ".md")

	_, err := router.Parse(context.Background(), writeFile(t, "rules.docx", "x"))
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("expected ErrParse for unsupported type, got %v", err)
	}

	_, err = router.Parse(context.Background(), filepath.Join(t.TempDir(), "missing.md"))
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("expected ErrParse for missing file, got %v", err)
	}

	failing := NewRouter(NewModelParser(&fakeReasoner{err: errors.New("boom")}))
	_, err = failing.Parse(context.Background(), writeFile(t, "rules.pdf", "x"))
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("expected ErrParse for model failure, got %v", err)
	}
}

func TestPromoteHeadings(t *testing.T) {
	re := regexp.MustCompile(DefaultHeadingPattern)
	text := "Foreword\nSection 1 Flight Duty\nlimits apply\n  CHAPTER II Rest\n# Already\nsection of text"

	out := PromoteHeadings(text, re)
	lines := strings.Split(out, "\n")

	if lines[1] != "# Section 1 Flight Duty" {
		t.Errorf("expected section line promoted, got %q", lines[1])
	}
	if lines[3] != "# CHAPTER II Rest" {
		t.Errorf("expected chapter line promoted, got %q", lines[3])
	}
	if lines[4] != "# Already" {
		t.Errorf("expected existing heading untouched, got %q", lines[4])
	}
	if lines[5] != "section of text" {
		t.Errorf("expected prose line untouched, got %q", lines[5])
	}
}

func TestNewPDFParserInvalidPattern(t *testing.T) {
	if _, err := NewPDFParser("("); err == nil {
		t.Error("expected error for invalid heading pattern")
	}
}

func TestStripMarkdownFence(t *testing.T) {
	if got := stripMarkdownFence("# Plain"); got != "# Plain" {
		t.Errorf("expected unfenced text untouched, got %q", got)
	}
	if got := stripMarkdownFence("```\n# A\n```"); got != "# A" {
		t.Errorf("expected fence removed, got %q", got)
	}
}
