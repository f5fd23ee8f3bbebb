package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"

	"compliance/internal/domain"
)

// ExpandEvidence resolves each pattern (a path or a doublestar glob such as
// "schedules/**/*.pdf") to regular files. Matches keep pattern order and are
// sorted within a pattern; duplicates are dropped.
func ExpandEvidence(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		sort.Strings(matches)

		for _, path := range matches {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[abs]; dup {
				continue
			}
			seen[abs] = struct{}{}
			files = append(files, abs)
		}
	}

	return files, nil
}

// LoadEvidence reads every path into an evidence file with a detected MIME type.
func LoadEvidence(paths []string) ([]domain.EvidenceFile, error) {
	files := make([]domain.EvidenceFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read evidence %s: %w", path, err)
		}
		name := filepath.Base(path)
		files = append(files, domain.NewEvidenceFile(name, data, DetectMIME(data, "")))
	}
	return files, nil
}

// DetectMIME returns declared unless it is empty or generic, in which case
// the type is sniffed from the content.
func DetectMIME(data []byte, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	detected := mimetype.Detect(data).String()
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = detected[:i]
	}
	return detected
}
