package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"compliance/internal/domain"
)

const validReport = `{
  "schedule_summary": {"key_points": ["Two legs on 12 March", "Rest 9h between legs"]},
  "violations": [{"rule_reference": "Section 2", "description": "Rest below 10 hours"}],
  "email_report": "<p>Rest violation</p>"
}`

func newCheckStack(t *testing.T, reasoner *fakeReasoner) (*CheckUseCase, *countingStore) {
	t.Helper()
	stack := newTestStack(map[string]string{
		"rules.md": rulebook(
			"Section 1 Flight Duty Period\nMaximum flight duty period is 13 hours.",
			"Section 2 Rest\nMinimum rest before duty is 10 hours.",
		),
	})
	if _, err := stack.ingest.Ingest(context.Background(), "rules.md"); err != nil {
		t.Fatal(err)
	}

	check := NewCheckUseCase(
		NewScheduleExtractor(reasoner, nil),
		NewRetrieveUseCase(stack.store, 5, 500),
		NewComplianceReasoner(reasoner, nil),
		0,
		nil,
	)
	return check, stack.store
}

func evidence(n int) []domain.EvidenceFile {
	files := make([]domain.EvidenceFile, n)
	for i := range files {
		files[i] = domain.NewEvidenceFile("page.png", []byte{0x89, 'P', 'N', 'G'}, "image/png")
	}
	return files
}

func TestCheckRejectsEmptyRequest(t *testing.T) {
	reasoner := &fakeReasoner{}
	check, store := newCheckStack(t, reasoner)

	_, err := check.Check(context.Background(), domain.CheckRequest{Query: "   "})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if reasoner.callCount() != 0 || store.searches != 0 {
		t.Errorf("expected no external calls, got %d reasoning and %d searches", reasoner.callCount(), store.searches)
	}
}

func TestCheckRejectsTooManyFiles(t *testing.T) {
	reasoner := &fakeReasoner{}
	check, store := newCheckStack(t, reasoner)

	_, err := check.Check(context.Background(), domain.CheckRequest{Query: "check", Files: evidence(DefaultMaxFiles + 1)})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if reasoner.callCount() != 0 || store.searches != 0 {
		t.Errorf("expected no external calls, got %d reasoning and %d searches", reasoner.callCount(), store.searches)
	}
}

func TestCheckScheduleBranch(t *testing.T) {
	reasoner := &fakeReasoner{responses: []string{
		"12MAR FL100 Dep 06:00Z Arr 09:00Z rest 9h",
		"```json\n" + validReport + "\n```",
	}}
	check, store := newCheckStack(t, reasoner)

	report, err := check.Check(context.Background(), domain.CheckRequest{Query: "Is my rest legal?", Files: evidence(2)})
	if err != nil {
		t.Fatal(err)
	}

	if reasoner.callCount() != 2 {
		t.Fatalf("expected extraction and compliance calls, got %d", reasoner.callCount())
	}
	if len(reasoner.calls[0].attachments) != 2 {
		t.Errorf("expected both files attached to the extraction call, got %d", len(reasoner.calls[0].attachments))
	}
	if len(reasoner.calls[1].attachments) != 0 {
		t.Errorf("expected no attachments on the compliance call")
	}
	if !strings.Contains(reasoner.calls[1].prompt, "12MAR FL100") {
		t.Error("expected the extracted schedule in the compliance prompt")
	}
	if !strings.Contains(reasoner.calls[1].prompt, "Minimum rest before duty") {
		t.Error("expected retrieved rules in the compliance prompt")
	}
	if store.lastQuery != "Is my rest legal? 12MAR FL100 Dep 06:00Z Arr 09:00Z rest 9h" {
		t.Errorf("unexpected search string: %q", store.lastQuery)
	}

	if len(report.Violations) != 1 || report.Violations[0].RuleReference != "Section 2" {
		t.Errorf("unexpected violations: %+v", report.Violations)
	}
	if report.EmailReport == nil || *report.EmailReport != "<p>Rest violation</p>" {
		t.Errorf("unexpected email report: %v", report.EmailReport)
	}
}

func TestCheckScheduleBranchWithoutQuery(t *testing.T) {
	reasoner := &fakeReasoner{responses: []string{"schedule", validReport}}
	check, _ := newCheckStack(t, reasoner)

	if _, err := check.Check(context.Background(), domain.CheckRequest{Files: evidence(1)}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reasoner.calls[1].prompt, DefaultNote) {
		t.Error("expected the default note in the compliance prompt")
	}
}

func TestCheckMalformedResponseKeepsRawText(t *testing.T) {
	raw := "The schedule violates Section 2 because rest is 9 hours."
	reasoner := &fakeReasoner{responses: []string{"schedule", raw}}
	check, _ := newCheckStack(t, reasoner)

	report, err := check.Check(context.Background(), domain.CheckRequest{Query: "check rest", Files: evidence(1)})
	if err != nil {
		t.Fatal(err)
	}

	if report.Violations == nil || len(report.Violations) != 0 {
		t.Errorf("expected empty violations, got %v", report.Violations)
	}
	if report.EmailReport == nil || *report.EmailReport != raw {
		t.Errorf("expected raw response in email report, got %v", report.EmailReport)
	}

	summary, ok := report.ScheduleSummary.(domain.KeyPoints)
	if !ok {
		t.Fatalf("expected key points summary, got %T", report.ScheduleSummary)
	}
	if len(summary.KeyPoints) != 2 || !strings.HasPrefix(summary.KeyPoints[0], domain.DecodeFailureNote) || summary.KeyPoints[1] != "check rest" {
		t.Errorf("unexpected key points: %v", summary.KeyPoints)
	}
}

func TestCheckAnswerBranch(t *testing.T) {
	reasoner := &fakeReasoner{responses: []string{"Minimum rest is 10 hours."}}
	check, store := newCheckStack(t, reasoner)

	report, err := check.Check(context.Background(), domain.CheckRequest{Query: "What is the minimum rest?"})
	if err != nil {
		t.Fatal(err)
	}

	if reasoner.callCount() != 1 {
		t.Errorf("expected a single reasoning call, got %d", reasoner.callCount())
	}
	if store.lastQuery != "What is the minimum rest?" {
		t.Errorf("expected the bare question as search string, got %q", store.lastQuery)
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["schedule_summary"] != domain.NoScheduleSummary {
		t.Errorf("unexpected schedule summary: %v", out["schedule_summary"])
	}
	if out["email_report"] != nil {
		t.Errorf("expected null email report, got %v", out["email_report"])
	}
	if out["answer"] != "Minimum rest is 10 hours." {
		t.Errorf("unexpected answer: %v", out["answer"])
	}
}

func TestCheckBranchDependsOnlyOnFiles(t *testing.T) {
	query := "Please check my schedule for violations"

	withFile := &fakeReasoner{responses: []string{"schedule", validReport}}
	check, _ := newCheckStack(t, withFile)
	report, err := check.Check(context.Background(), domain.CheckRequest{Query: query, Files: evidence(1)})
	if err != nil {
		t.Fatal(err)
	}
	if report.Answer != nil || report.ScheduleSummary == domain.NoScheduleSummary {
		t.Error("expected the schedule branch when a file is supplied")
	}

	withoutFile := &fakeReasoner{responses: []string{"answer"}}
	check, _ = newCheckStack(t, withoutFile)
	report, err = check.Check(context.Background(), domain.CheckRequest{Query: query})
	if err != nil {
		t.Fatal(err)
	}
	if report.Answer == nil || report.ScheduleSummary != domain.NoScheduleSummary {
		t.Error("expected the answer branch without files")
	}
}

func TestCheckEmptyExtractionStillChecksSchedule(t *testing.T) {
	reasoner := &fakeReasoner{responses: []string{"  ", validReport}}
	check, _ := newCheckStack(t, reasoner)

	report, err := check.Check(context.Background(), domain.CheckRequest{Files: evidence(1)})
	if err != nil {
		t.Fatal(err)
	}
	if report.Answer != nil {
		t.Error("expected the schedule branch")
	}
	if !strings.Contains(reasoner.calls[1].prompt, EmptyExtractionPlaceholder) {
		t.Error("expected the placeholder schedule in the compliance prompt")
	}
}

func TestCheckExtractionFailureStopsPipeline(t *testing.T) {
	reasoner := &fakeReasoner{errs: []error{errors.New("quota exceeded")}}
	check, store := newCheckStack(t, reasoner)

	_, err := check.Check(context.Background(), domain.CheckRequest{Files: evidence(1)})
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if store.searches != 0 {
		t.Errorf("expected no retrieval after failed extraction, got %d searches", store.searches)
	}
}

func TestCheckReasoningFailure(t *testing.T) {
	reasoner := &fakeReasoner{errs: []error{errors.New("timeout")}}
	check, _ := newCheckStack(t, reasoner)

	_, err := check.Check(context.Background(), domain.CheckRequest{Query: "rest?"})
	if !errors.Is(err, domain.ErrReasoning) {
		t.Fatalf("expected ErrReasoning, got %v", err)
	}
}

func TestSearchString(t *testing.T) {
	if got := SearchString("rest?", "", 500); got != "rest?" {
		t.Errorf("expected bare query, got %q", got)
	}

	schedule := strings.Repeat("é", 600)
	got := SearchString("q", schedule, 500)
	if got != "q "+strings.Repeat("é", 500) {
		t.Errorf("expected a 500 character prefix, got %d runes", len([]rune(got)))
	}

	if got := SearchString("", "abc", 500); got != " abc" {
		t.Errorf("expected space-joined schedule, got %q", got)
	}
}
