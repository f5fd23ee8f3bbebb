package domain

import "encoding/json"

const (
	// NoScheduleSummary is the schedule summary of a question-only report.
	NoScheduleSummary = "N/A - Text Query Only"

	// DecodeFailureNote leads the key points of a report recovered from an
	// undecodable reasoning response.
	DecodeFailureNote = "Error parsing JSON"
)

type Violation struct {
	RuleReference string `json:"rule_reference"`
	Description   string `json:"description"`
}

// ComplianceReport is the payload returned for every compliance check.
// Extra carries unexpected top-level keys from a decoded reasoning response;
// they are emitted alongside the known keys.
type ComplianceReport struct {
	ScheduleSummary any
	Violations      []Violation
	EmailReport     *string
	Answer          *string
	Extra           map[string]any
}

// MarshalJSON always emits violations as an array and flattens Extra into
// the top-level object. Known keys win over extras with the same name.
func (r ComplianceReport) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+4)
	for k, v := range r.Extra {
		out[k] = v
	}

	violations := r.Violations
	if violations == nil {
		violations = []Violation{}
	}

	out["schedule_summary"] = r.ScheduleSummary
	out["violations"] = violations
	out["email_report"] = r.EmailReport
	out["answer"] = r.Answer

	return json.Marshal(out)
}

// KeyPoints is the structured schedule summary shape requested from the model.
type KeyPoints struct {
	KeyPoints []string `json:"key_points"`
}

// DecodeResult is the outcome of decoding a structured reasoning response:
// either Decoded or FallbackRaw.
type DecodeResult interface {
	decodeResult()
}

// Decoded holds the top-level fields of a response that parsed as a JSON object.
type Decoded struct {
	Fields map[string]any
}

// FallbackRaw holds a response that could not be decoded, kept verbatim.
type FallbackRaw struct {
	Text   string
	Reason string
}

func (Decoded) decodeResult()     {}
func (FallbackRaw) decodeResult() {}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
