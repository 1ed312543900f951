package secrets

import (
	"strings"
	"sync"
)

// placeholderPrefix opens every redaction placeholder.
const placeholderPrefix = "[REDACTED:"

// Placeholder returns the marker that replaces a secret matched by ruleID.
func Placeholder(ruleID string) string {
	return placeholderPrefix + ruleID + "]"
}

// Redactor replaces secret-shaped substrings with typed placeholders.
type Redactor interface {
	// Redact returns content with secrets replaced. It never fails.
	Redact(content string) Result

	// IsEnabled returns whether redaction is active.
	IsEnabled() bool
}

type redactor struct {
	config *Config
	deep   *deepScanner

	mu sync.Mutex // guards deep, which is not safe for concurrent use
}

// New creates a Redactor from cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) (Redactor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &redactor{config: cfg}
	if cfg.Enabled && cfg.DeepScan {
		deep, err := newDeepScanner(cfg)
		if err != nil {
			return nil, err
		}
		r.deep = deep
	}
	return r, nil
}

// MustNew creates a Redactor, panicking on error.
func MustNew(cfg *Config) Redactor {
	r, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// Redact applies every rule in order. For each rule, matches are counted in
// the original content, then replaced in the working copy. Matches that
// already contain a placeholder are left alone, which keeps Redact
// idempotent.
func (r *redactor) Redact(content string) Result {
	result := Result{Content: content, RedactedTypes: []string{}}
	if !r.config.Enabled || content == "" {
		return result
	}

	lowered := strings.ToLower(content)
	working := content

	for _, rule := range r.config.compiledRules {
		if !rule.applies(lowered) {
			continue
		}

		count := 0
		for _, m := range rule.pattern.FindAllString(content, -1) {
			if !strings.Contains(m, placeholderPrefix) && !r.allowed(m) {
				count++
			}
		}
		if count == 0 {
			continue
		}
		result.record(rule.ID, count)

		placeholder := Placeholder(rule.ID)
		working = rule.pattern.ReplaceAllStringFunc(working, func(m string) string {
			if strings.Contains(m, placeholderPrefix) || r.allowed(m) {
				return m
			}
			return placeholder
		})
	}

	if r.deep != nil {
		r.mu.Lock()
		working = r.deep.redact(working, &result, r.allowed)
		r.mu.Unlock()
	}

	result.Content = working
	result.finish()
	return result
}

// IsEnabled returns whether redaction is enabled.
func (r *redactor) IsEnabled() bool {
	return r.config.Enabled
}

// allowed reports whether a match is exempt via allow list or stop words.
func (r *redactor) allowed(match string) bool {
	for _, re := range r.config.compiledAllowList {
		if re.MatchString(match) {
			return true
		}
	}
	if len(r.config.lowerStopWords) > 0 {
		lower := strings.ToLower(match)
		for _, w := range r.config.lowerStopWords {
			if strings.Contains(lower, w) {
				return true
			}
		}
	}
	return false
}

// applies checks the keyword gate against lowercased content.
func (c *compiledRule) applies(lowered string) bool {
	if len(c.keywords) == 0 {
		return true
	}
	for _, kw := range c.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Noop returns a Redactor that passes content through unchanged.
func Noop() Redactor {
	return noopRedactor{}
}

type noopRedactor struct{}

func (noopRedactor) Redact(content string) Result {
	return Result{Content: content, RedactedTypes: []string{}}
}

func (noopRedactor) IsEnabled() bool { return false }
