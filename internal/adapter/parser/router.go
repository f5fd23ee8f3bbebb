package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"compliance/internal/domain"
	"compliance/internal/port"
)

// Router picks a parser by file extension. Every failure is reported as
// domain.ErrParse.
type Router struct {
	byExt    map[string]port.DocumentParser
	fallback port.DocumentParser
}

func NewRouter(fallback port.DocumentParser) *Router {
	return &Router{
		byExt:    make(map[string]port.DocumentParser),
		fallback: fallback,
	}
}

// Register routes the given extensions (".pdf", ".md") to p.
func (r *Router) Register(p port.DocumentParser, exts ...string) *Router {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = p
	}
	return r
}

func (r *Router) Parse(ctx context.Context, path string) (string, error) {
	p, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		p = r.fallback
	}
	if p == nil {
		return "", fmt.Errorf("%w: unsupported file type %q", domain.ErrParse, filepath.Ext(path))
	}

	text, err := p.Parse(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrParse, filepath.Base(path), err)
	}
	return text, nil
}
