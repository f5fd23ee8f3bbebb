package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"compliance/internal/domain"
)

const DefaultMaxFiles = 5

// CheckUseCase runs one compliance request: extract the schedule, retrieve
// rules, then reason. Branch A runs whenever files are present, branch B
// otherwise.
type CheckUseCase struct {
	extractor *ScheduleExtractor
	retriever *RetrieveUseCase
	reasoner  *ComplianceReasoner
	maxFiles  int
	logger    *slog.Logger
}

func NewCheckUseCase(
	extractor *ScheduleExtractor,
	retriever *RetrieveUseCase,
	reasoner *ComplianceReasoner,
	maxFiles int,
	logger *slog.Logger,
) *CheckUseCase {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckUseCase{
		extractor: extractor,
		retriever: retriever,
		reasoner:  reasoner,
		maxFiles:  maxFiles,
		logger:    logger,
	}
}

// Validate rejects requests before any external call is made.
func (u *CheckUseCase) Validate(req domain.CheckRequest) error {
	if !req.HasQuery() && len(req.Files) == 0 {
		return fmt.Errorf("%w: provide a query or at least one file", domain.ErrInvalidRequest)
	}
	if len(req.Files) > u.maxFiles {
		return fmt.Errorf("%w: %d files supplied, at most %d allowed", domain.ErrInvalidRequest, len(req.Files), u.maxFiles)
	}
	return nil
}

func (u *CheckUseCase) Check(ctx context.Context, req domain.CheckRequest) (domain.ComplianceReport, error) {
	if err := u.Validate(req); err != nil {
		return domain.ComplianceReport{}, err
	}

	ctx, span := otel.Tracer("compliance-pipeline").Start(ctx, "compliance.check")
	defer span.End()
	span.SetAttributes(
		attribute.Int("compliance.files", len(req.Files)),
		attribute.Bool("compliance.has_query", req.HasQuery()),
	)

	report, err := u.run(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.ComplianceReport{}, err
	}
	return report, nil
}

func (u *CheckUseCase) run(ctx context.Context, req domain.CheckRequest) (domain.ComplianceReport, error) {
	start := time.Now()

	schedule, err := u.extractor.Extract(ctx, req.Files)
	if err != nil {
		return domain.ComplianceReport{}, err
	}

	rules, results, err := u.retriever.Retrieve(ctx, req.Query, schedule)
	if err != nil {
		return domain.ComplianceReport{}, err
	}

	var report domain.ComplianceReport
	branch := "answer"
	if len(req.Files) > 0 {
		branch = "schedule"
		report, err = u.reasoner.CheckSchedule(ctx, rules, schedule, req.Query)
	} else {
		report, err = u.reasoner.Answer(ctx, rules, req.Query)
	}
	if err != nil {
		return domain.ComplianceReport{}, err
	}

	u.logger.Info("compliance check complete",
		"branch", branch,
		"files", len(req.Files),
		"rules", len(results),
		"violations", len(report.Violations),
		"duration", time.Since(start))
	return report, nil
}
