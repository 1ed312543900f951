package budget

// Severity ranks a budget warning.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// suggestionStep rounds suggested ceilings up to a round number.
const suggestionStep = 10000

// Warning reports that a high-priority category lost files to the budget.
// It is advisory; the suggested budget is never applied automatically.
type Warning struct {
	Severity        Severity `json:"severity" yaml:"severity"`
	Category        Category `json:"category" yaml:"category"`
	OmittedCount    int      `json:"omitted_count" yaml:"omitted_count"`
	OmittedTokens   int      `json:"omitted_tokens" yaml:"omitted_tokens"`
	SuggestedBudget int      `json:"suggested_budget" yaml:"suggested_budget"`
}

// warnedCategories are the only categories that produce warnings.
var warnedCategories = map[Category]Severity{
	Explicit: SeverityHigh,
	Session:  SeverityMedium,
}

// Warn returns a warning for c when it had budget_exceeded omissions.
// Only the explicit and session categories warn.
func (a *Allocator) Warn(c Category, omittedCount, omittedTokens int) (Warning, bool) {
	severity, ok := warnedCategories[c]
	if !ok || omittedCount == 0 {
		return Warning{}, false
	}
	return Warning{
		Severity:        severity,
		Category:        c,
		OmittedCount:    omittedCount,
		OmittedTokens:   omittedTokens,
		SuggestedBudget: SuggestBudget(a.ceiling, omittedTokens, a.margin),
	}, true
}

// SuggestBudget returns ceiling + omitted + margin rounded up to the next
// multiple of 10,000.
func SuggestBudget(ceiling, omitted, margin int) int {
	total := ceiling + omitted + margin
	return ((total + suggestionStep - 1) / suggestionStep) * suggestionStep
}
