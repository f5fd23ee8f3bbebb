package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"compliance/internal/domain"
)

const fence = "```"

// StripCodeFence returns the body of the first fenced block (```json ... ```)
// if the text contains one, otherwise the trimmed text.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)

	open := strings.Index(trimmed, fence)
	if open < 0 {
		return trimmed
	}
	body := trimmed[open+len(fence):]

	// Drop the info string ("json", "JSON", ...) up to the end of the line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && isInfoString(body[:nl]) {
		body = body[nl+1:]
	} else {
		body = strings.TrimLeft(body, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}

	// Close at the first fence that starts a line; later blocks are ignored.
	// A block closed on its own content line has no such fence.
	if end := strings.Index(body, "\n"+fence); end >= 0 {
		body = body[:end]
	} else if end := strings.LastIndex(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func isInfoString(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// DecodeReport strictly decodes a reasoning response into its top-level
// fields. Anything that is not exactly one JSON object falls back to the raw text.
func DecodeReport(text string) domain.DecodeResult {
	fields, err := decodeObject(strings.TrimSpace(text))
	if err != nil && strings.Contains(text, fence) {
		fields, err = decodeObject(StripCodeFence(text))
	}
	if err != nil {
		return domain.FallbackRaw{Text: text, Reason: err.Error()}
	}
	return domain.Decoded{Fields: fields}
}

func decodeObject(body string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected content after JSON object")
	}
	return fields, nil
}

// ScheduleReport normalizes a decode result into a branch A report.
func ScheduleReport(result domain.DecodeResult, question string) domain.ComplianceReport {
	switch r := result.(type) {
	case domain.Decoded:
		return reportFromFields(r.Fields)
	case domain.FallbackRaw:
		return domain.ComplianceReport{
			ScheduleSummary: domain.KeyPoints{
				KeyPoints: []string{domain.DecodeFailureNote + ": " + r.Reason, question},
			},
			Violations:  []domain.Violation{},
			EmailReport: domain.StringPtr(r.Text),
		}
	default:
		panic(fmt.Sprintf("unknown decode result %T", result))
	}
}

// AnswerReport builds the branch B report for a question-only request.
func AnswerReport(answer string) domain.ComplianceReport {
	return domain.ComplianceReport{
		ScheduleSummary: domain.NoScheduleSummary,
		Violations:      []domain.Violation{},
		Answer:          domain.StringPtr(answer),
	}
}

func reportFromFields(fields map[string]any) domain.ComplianceReport {
	report := domain.ComplianceReport{
		ScheduleSummary: domain.KeyPoints{KeyPoints: []string{}},
		Violations:      []domain.Violation{},
	}

	for key, value := range fields {
		switch key {
		case "schedule_summary":
			if value != nil {
				report.ScheduleSummary = value
			}
		case "violations":
			report.Violations = coerceViolations(value)
		case "email_report":
			report.EmailReport = optionalText(value)
		case "answer":
			report.Answer = optionalText(value)
		default:
			if report.Extra == nil {
				report.Extra = make(map[string]any)
			}
			report.Extra[key] = value
		}
	}

	return report
}

func coerceViolations(value any) []domain.Violation {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	case nil:
		return []domain.Violation{}
	default:
		items = []any{v}
	}

	violations := make([]domain.Violation, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			violations = append(violations, domain.Violation{
				RuleReference: asText(v["rule_reference"]),
				Description:   asText(v["description"]),
			})
		case nil:
		default:
			violations = append(violations, domain.Violation{Description: asText(v)})
		}
	}
	return violations
}

func optionalText(value any) *string {
	if value == nil {
		return nil
	}
	return domain.StringPtr(asText(value))
}

// asText renders any JSON value as text: strings as-is, missing as "",
// everything else as compact JSON.
func asText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
