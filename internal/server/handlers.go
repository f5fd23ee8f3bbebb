package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"compliance/internal/adapter/fs"
	"compliance/internal/domain"
)

// embedRules buffers the uploaded rulebook to the temp dir, ingests it and
// removes the buffer afterwards.
func (s *Server) embedRules(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.respondWithFormError(c, err, "a rulebook must be uploaded as form field \"file\"")
		return
	}

	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		s.respondWithPipelineError(c, fmt.Errorf("failed to create upload dir: %w", err))
		return
	}

	// The parser is chosen by extension, so the original one is kept.
	ext := strings.ToLower(filepath.Ext(header.Filename))
	tempPath := filepath.Join(s.tempDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(header, tempPath); err != nil {
		s.respondWithPipelineError(c, fmt.Errorf("failed to buffer upload: %w", err))
		return
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove buffered upload", "path", tempPath, "error", err)
		}
	}()

	result, err := s.ingest.Ingest(c.Request.Context(), tempPath)
	if err != nil {
		s.respondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// checkCompliance reads the optional query and evidence files and returns
// the compliance report.
func (s *Server) checkCompliance(c *gin.Context) {
	var headers []*multipart.FileHeader
	form, err := c.MultipartForm()
	switch {
	case err == nil:
		headers = append(headers, form.File["files"]...)
		headers = append(headers, form.File["files[]"]...)
	case errors.Is(err, http.ErrNotMultipart):
	default:
		s.respondWithFormError(c, err, "invalid multipart form")
		return
	}

	req := domain.CheckRequest{Query: c.PostForm("query")}
	if len(headers) > 0 {
		files, err := readEvidence(headers)
		if err != nil {
			s.respondWithFormError(c, err, "failed to read uploaded files")
			return
		}
		req.Files = files
	}

	report, err := s.check.Check(c.Request.Context(), req)
	if err != nil {
		s.respondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func readEvidence(headers []*multipart.FileHeader) ([]domain.EvidenceFile, error) {
	files := make([]domain.EvidenceFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Filename, err)
		}
		mimeType := fs.DetectMIME(data, h.Header.Get("Content-Type"))
		files = append(files, domain.NewEvidenceFile(h.Filename, data, mimeType))
	}
	return files, nil
}

func (s *Server) respondWithFormError(c *gin.Context, err error, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondWithError(c, http.StatusRequestEntityTooLarge, "request_too_large",
			"request body exceeds maximum size")
		return
	}
	if errors.Is(err, http.ErrMissingFile) {
		respondWithError(c, http.StatusBadRequest, "invalid_request", message)
		return
	}
	s.respondWithPipelineError(c, fmt.Errorf("%w: %s: %v", domain.ErrInvalidRequest, message, err))
}
