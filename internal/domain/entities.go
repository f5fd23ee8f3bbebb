package domain

import "strings"

// RuleChunk is one top-level section of an ingested rulebook.
// Text keeps the heading line so retrieved chunks describe themselves.
type RuleChunk struct {
	SectionTitle string `json:"section_title"`
	Text         string `json:"text"`
	Order        int    `json:"order"`
}

// ScoredChunk is a rule chunk returned by a similarity search.
type ScoredChunk struct {
	Chunk RuleChunk
	Score float64
}

type EvidenceKind int

const (
	EvidenceImage EvidenceKind = iota
	EvidencePDF
)

func (k EvidenceKind) String() string {
	if k == EvidencePDF {
		return "pdf"
	}
	return "image"
}

// ResolveEvidenceKind maps a declared MIME type to an evidence kind.
// Anything that is not a PDF is treated as an image.
func ResolveEvidenceKind(mimeType string) EvidenceKind {
	if strings.Contains(strings.ToLower(mimeType), "pdf") {
		return EvidencePDF
	}
	return EvidenceImage
}

// EvidenceFile is an uploaded schedule page. It is owned by the caller
// and never persisted.
type EvidenceFile struct {
	Name     string
	Data     []byte
	MIMEType string
	Kind     EvidenceKind
}

// NewEvidenceFile builds an evidence file with its kind resolved from mimeType.
func NewEvidenceFile(name string, data []byte, mimeType string) EvidenceFile {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return EvidenceFile{
		Name:     name,
		Data:     data,
		MIMEType: mimeType,
		Kind:     ResolveEvidenceKind(mimeType),
	}
}

// AttachmentMIME returns the MIME type used when the file is attached to a
// reasoning request.
func (f EvidenceFile) AttachmentMIME() string {
	if f.Kind == EvidencePDF {
		return "application/pdf"
	}
	if strings.Contains(strings.ToLower(f.MIMEType), "image") {
		return f.MIMEType
	}
	return "image/jpeg"
}

// CheckRequest is one compliance check: an optional question plus
// optional evidence files.
type CheckRequest struct {
	Query string
	Files []EvidenceFile
}

// HasQuery reports whether the request carries a non-blank question.
func (r CheckRequest) HasQuery() bool {
	return strings.TrimSpace(r.Query) != ""
}

type IngestResult struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	ChunksProcessed int    `json:"chunks_processed"`
}
