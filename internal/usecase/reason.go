package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"compliance/internal/domain"
	"compliance/internal/port"
)

// ComplianceReasoner produces the final report with one reasoning call.
type ComplianceReasoner struct {
	reasoner port.Reasoner
	logger   *slog.Logger
}

func NewComplianceReasoner(reasoner port.Reasoner, logger *slog.Logger) *ComplianceReasoner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplianceReasoner{reasoner: reasoner, logger: logger}
}

// CheckSchedule checks an extracted schedule against the rules. An
// undecodable response is kept verbatim in the report's email_report.
func (r *ComplianceReasoner) CheckSchedule(ctx context.Context, rules, schedule, question string) (domain.ComplianceReport, error) {
	note := question
	if strings.TrimSpace(note) == "" {
		note = DefaultNote
	}

	prompt, err := renderPrompt("compliance.tmpl", compliancePrompt{
		Rules:    rules,
		Schedule: schedule,
		Note:     note,
	})
	if err != nil {
		return domain.ComplianceReport{}, fmt.Errorf("%w: %v", domain.ErrReasoning, err)
	}

	response, err := r.reasoner.Generate(ctx, prompt)
	if err != nil {
		return domain.ComplianceReport{}, fmt.Errorf("%w: %v", domain.ErrReasoning, err)
	}

	result := DecodeReport(response)
	if fallback, ok := result.(domain.FallbackRaw); ok {
		r.logger.Warn("compliance response is not valid JSON, returning raw text",
			"reason", fallback.Reason, "response_chars", len(fallback.Text))
	}
	return ScheduleReport(result, question), nil
}

// Answer answers a question strictly from the rules.
func (r *ComplianceReasoner) Answer(ctx context.Context, rules, question string) (domain.ComplianceReport, error) {
	prompt, err := renderPrompt("answer.tmpl", answerPrompt{
		Rules:    rules,
		Question: question,
	})
	if err != nil {
		return domain.ComplianceReport{}, fmt.Errorf("%w: %v", domain.ErrReasoning, err)
	}

	response, err := r.reasoner.Generate(ctx, prompt)
	if err != nil {
		return domain.ComplianceReport{}, fmt.Errorf("%w: %v", domain.ErrReasoning, err)
	}
	return AnswerReport(response), nil
}
