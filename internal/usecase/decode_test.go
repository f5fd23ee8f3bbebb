package usecase

import (
	"reflect"
	"testing"

	"compliance/internal/domain"
)

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```JSON\n{\"a\":1}\n```\n", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"```json {\"a\":1}```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"Here it is:\n```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```json\n{\"a\":1}\n```\nExample email:\n```html\n<p>hi</p>\n```", `{"a":1}`},
		{"```json\n{\"a\":\"x```y\"}\n```", "{\"a\":\"x```y\"}"},
	}
	for _, tc := range cases {
		if got := StripCodeFence(tc.in); got != tc.want {
			t.Errorf("StripCodeFence(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestDecodeFenceEquivalence(t *testing.T) {
	plain := DecodeReport(validReport)
	fenced := DecodeReport("```json\n" + validReport + "\n```")

	p, ok := plain.(domain.Decoded)
	if !ok {
		t.Fatalf("expected plain report to decode, got %T", plain)
	}
	f, ok := fenced.(domain.Decoded)
	if !ok {
		t.Fatalf("expected fenced report to decode, got %T", fenced)
	}
	if !reflect.DeepEqual(p.Fields, f.Fields) {
		t.Errorf("fenced and plain decode differ:\n%v\n%v", p.Fields, f.Fields)
	}
}

func TestDecodeFirstFencedBlock(t *testing.T) {
	text := "```json\n" + validReport + "\n```\nThe email body again:\n```html\n<p>Dear Captain</p>\n```"

	if _, ok := DecodeReport(text).(domain.Decoded); !ok {
		t.Errorf("expected the first fenced block to decode, got %T", DecodeReport(text))
	}
}

func TestDecodeFallback(t *testing.T) {
	cases := []string{
		"not json at all",
		"[1, 2, 3]",
		"null",
		`{"a": 1} trailing`,
		"",
	}
	for _, in := range cases {
		result := DecodeReport(in)
		raw, ok := result.(domain.FallbackRaw)
		if !ok {
			t.Errorf("DecodeReport(%q): expected fallback, got %T", in, result)
			continue
		}
		if raw.Text != in {
			t.Errorf("expected raw text kept verbatim, got %q", raw.Text)
		}
		if raw.Reason == "" {
			t.Errorf("expected a reason for %q", in)
		}
	}
}

func TestScheduleReportDefaults(t *testing.T) {
	report := ScheduleReport(domain.Decoded{Fields: map[string]any{"confidence": "high"}}, "q")

	if report.Violations == nil || len(report.Violations) != 0 {
		t.Errorf("expected empty violations, got %v", report.Violations)
	}
	if report.EmailReport != nil {
		t.Errorf("expected nil email report, got %v", *report.EmailReport)
	}
	summary, ok := report.ScheduleSummary.(domain.KeyPoints)
	if !ok || summary.KeyPoints == nil || len(summary.KeyPoints) != 0 {
		t.Errorf("expected empty key points, got %#v", report.ScheduleSummary)
	}
	if report.Extra["confidence"] != "high" {
		t.Errorf("expected unknown key preserved, got %v", report.Extra)
	}
}

func TestScheduleReportCoercesViolations(t *testing.T) {
	fields := map[string]any{
		"violations": []any{
			map[string]any{"rule_reference": 4.2, "description": "FDP exceeded"},
			map[string]any{"description": map[string]any{"hours": 14.0}},
			"Rest too short",
			nil,
		},
		"email_report": nil,
	}

	report := ScheduleReport(domain.Decoded{Fields: fields}, "")

	want := []domain.Violation{
		{RuleReference: "4.2", Description: "FDP exceeded"},
		{RuleReference: "", Description: `{"hours":14}`},
		{Description: "Rest too short"},
	}
	if !reflect.DeepEqual(report.Violations, want) {
		t.Errorf("expected %+v, got %+v", want, report.Violations)
	}
}

func TestScheduleReportSingleViolationObject(t *testing.T) {
	fields := map[string]any{
		"violations": map[string]any{"rule_reference": "Section 3", "description": "Alcohol"},
	}

	report := ScheduleReport(domain.Decoded{Fields: fields}, "")
	if len(report.Violations) != 1 || report.Violations[0].RuleReference != "Section 3" {
		t.Errorf("unexpected violations: %+v", report.Violations)
	}
}

func TestAnswerReport(t *testing.T) {
	report := AnswerReport("ten hours")

	if report.ScheduleSummary != domain.NoScheduleSummary {
		t.Errorf("unexpected summary: %v", report.ScheduleSummary)
	}
	if report.Answer == nil || *report.Answer != "ten hours" {
		t.Errorf("unexpected answer: %v", report.Answer)
	}
	if report.EmailReport != nil || len(report.Violations) != 0 {
		t.Error("expected no email report and no violations")
	}
}
