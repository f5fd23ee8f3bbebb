package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultHeadingPattern matches the section lines of typical rulebooks,
// e.g. "Section 4 Flight Duty Period" or "CHAPTER 2 - REST".
const DefaultHeadingPattern = `(?i)^(section|chapter|part)\s+[0-9ivxlc]+\b`

const maxPDFSize = 200 << 20

// PDFParser extracts the text layer of a PDF locally and promotes lines
// matching a heading pattern to top-level "# " headings.
type PDFParser struct {
	heading *regexp.Regexp
}

func NewPDFParser(headingPattern string) (*PDFParser, error) {
	if headingPattern == "" {
		headingPattern = DefaultHeadingPattern
	}
	re, err := regexp.Compile(headingPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid heading pattern: %w", err)
	}
	return &PDFParser{heading: re}, nil
}

func (p *PDFParser) Parse(ctx context.Context, path string) (string, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if stat.Size() > maxPDFSize {
		return "", fmt.Errorf("pdf too large for in-memory extraction")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(make(map[string]*pdf.Font))
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return PromoteHeadings(b.String(), p.heading), nil
}

// PromoteHeadings rewrites every line matching heading as a top-level
// markdown heading. Existing "#" lines are left alone.
func PromoteHeadings(text string, heading *regexp.Regexp) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if heading.MatchString(trimmed) {
			lines[i] = "# " + trimmed
		}
	}
	return strings.Join(lines, "\n")
}
