package secrets

import "sort"

// Result is the output of one redaction pass.
type Result struct {
	// Content is the input with every detected secret replaced by a placeholder.
	Content string `json:"content"`

	// RedactionCount sums per-rule match counts over the original input.
	RedactionCount int `json:"redaction_count"`

	// RedactedTypes lists the rule IDs that fired, sorted.
	RedactedTypes []string `json:"redacted_types"`

	// ByType maps rule IDs to match counts.
	ByType map[string]int `json:"by_type,omitempty"`
}

// Redacted returns true if anything was redacted.
func (r Result) Redacted() bool {
	return r.RedactionCount > 0
}

func (r *Result) record(ruleID string, n int) {
	if n == 0 {
		return
	}
	if r.ByType == nil {
		r.ByType = make(map[string]int)
	}
	if r.ByType[ruleID] == 0 {
		r.RedactedTypes = append(r.RedactedTypes, ruleID)
	}
	r.ByType[ruleID] += n
	r.RedactionCount += n
}

func (r *Result) finish() {
	sort.Strings(r.RedactedTypes)
}
