package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance/internal/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{domain.ErrNoSections, http.StatusUnprocessableEntity, "no_sections"},
	{domain.ErrParse, http.StatusUnprocessableEntity, "parse_failed"},
	{domain.ErrStoreBusy, http.StatusConflict, "store_busy"},
	{domain.ErrStoreRead, http.StatusServiceUnavailable, "store_unavailable"},
	{domain.ErrExtraction, http.StatusBadGateway, "extraction_failed"},
	{domain.ErrReasoning, http.StatusBadGateway, "reasoning_failed"},
	{domain.ErrStoreWrite, http.StatusInternalServerError, "store_write_failed"},
}

// StatusFor maps a pipeline error to its HTTP status and error code.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func respondWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{ErrorCode: code, Message: message})
}

func (s *Server) respondWithPipelineError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	logger := s.logger.With("request_id", GetRequestID(c), "path", c.FullPath())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error_code", code, "error", err)
	} else {
		logger.Warn("request rejected", "error_code", code, "error", err)
	}
	respondWithError(c, status, code, err.Error())
}
