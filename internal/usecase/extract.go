package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"compliance/internal/domain"
	"compliance/internal/port"
)

// EmptyExtractionPlaceholder stands in for a blank extraction response so a
// request with evidence still gets a schedule compliance check.
const EmptyExtractionPlaceholder = "No schedule details could be extracted from the provided files."

// ScheduleExtractor reads a pilot schedule out of uploaded pages with one
// multi-modal reasoning call.
type ScheduleExtractor struct {
	reasoner port.Reasoner
	logger   *slog.Logger
}

func NewScheduleExtractor(reasoner port.Reasoner, logger *slog.Logger) *ScheduleExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleExtractor{reasoner: reasoner, logger: logger}
}

// Extract returns the schedule text. With no files it returns "" without
// calling the model.
func (e *ScheduleExtractor) Extract(ctx context.Context, files []domain.EvidenceFile) (string, error) {
	if len(files) == 0 {
		return "", nil
	}

	prompt, err := extractionPrompt()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	schedule, err := e.reasoner.Generate(ctx, prompt, files...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	if strings.TrimSpace(schedule) == "" {
		e.logger.Warn("extraction returned no text", "files", len(files))
		return EmptyExtractionPlaceholder, nil
	}
	return schedule, nil
}
