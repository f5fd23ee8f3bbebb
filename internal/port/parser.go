package port

import "context"

// DocumentParser converts a rulebook file to markdown-like text with
// top-level "# " headings marking sections.
type DocumentParser interface {
	Parse(ctx context.Context, path string) (string, error)
}
