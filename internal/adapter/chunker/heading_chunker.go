package chunker

import (
	"strings"

	"compliance/internal/domain"
)

const headingMarker = "#"

// HeadingChunker splits markdown text at top-level ("# ") headings.
// Sub-headings stay inside their section and fenced code is never split.
type HeadingChunker struct {
	keepPreamble bool
}

func NewHeadingChunker(keepPreamble bool) *HeadingChunker {
	return &HeadingChunker{keepPreamble: keepPreamble}
}

// Chunk returns one chunk per top-level heading in document order.
// Text before the first heading is dropped unless keepPreamble is set; a
// document without any heading yields no chunks either way.
func (c *HeadingChunker) Chunk(document string) ([]domain.RuleChunk, error) {
	lines := strings.Split(strings.ReplaceAll(document, "\r\n", "\n"), "\n")

	var (
		chunks   []domain.RuleChunk
		preamble strings.Builder
		current  *strings.Builder
		title    string
		fence    string
		headings int
	)

	flush := func() {
		if current == nil {
			return
		}
		chunks = append(chunks, domain.RuleChunk{
			SectionTitle: title,
			Text:         strings.TrimRight(current.String(), " \t\n"),
			Order:        len(chunks),
		})
	}

	for _, line := range lines {
		if marker, ok := fenceMarker(line); ok {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(marker, fence):
				fence = ""
			}
		}

		if fence == "" {
			if heading, ok := topLevelHeading(line); ok {
				flush()
				headings++
				title = heading
				current = &strings.Builder{}
				current.WriteString(line)
				continue
			}
		}

		if current == nil {
			preamble.WriteString(line)
			preamble.WriteString("\n")
			continue
		}
		current.WriteString("\n")
		current.WriteString(line)
	}
	flush()

	if headings == 0 {
		return nil, nil
	}

	lead := strings.TrimSpace(preamble.String())
	if c.keepPreamble && lead != "" {
		withLead := make([]domain.RuleChunk, 0, len(chunks)+1)
		withLead = append(withLead, domain.RuleChunk{Text: lead})
		for _, ch := range chunks {
			ch.Order++
			withLead = append(withLead, ch)
		}
		chunks = withLead
	}

	return chunks, nil
}

// topLevelHeading reports whether line is a level-one ATX heading and
// returns its text. Up to three leading spaces are allowed.
func topLevelHeading(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return "", false
	}
	if !strings.HasPrefix(trimmed, headingMarker) {
		return "", false
	}
	rest := trimmed[len(headingMarker):]
	if rest == "" {
		return "", true
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func fenceMarker(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, m := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, m) {
			n := len(trimmed) - len(strings.TrimLeft(trimmed, m[:1]))
			return trimmed[:n], true
		}
	}
	return "", false
}
