package secrets

import (
	"fmt"
	"regexp"
	"strings"
)

// Config configures the redactor.
type Config struct {
	// Enabled controls whether redaction is active (default: true)
	Enabled bool `koanf:"enabled"`

	// Rules are evaluated in order; earlier rules claim overlapping text.
	Rules []Rule `koanf:"rules"`

	// AllowList contains regexes; a match that also matches one is left intact.
	AllowList []string `koanf:"allow_list"`

	// StopWords exempt any match containing one of them (case-insensitive).
	StopWords []string `koanf:"stop_words"`

	// DeepScan runs the gitleaks default rule set after the ordered rules.
	DeepScan bool `koanf:"deep_scan"`

	// UserAllowlist is a TOML allowlist file merged with the project's .gitleaks.toml.
	UserAllowlist string `koanf:"user_allowlist"`

	compiledRules     []*compiledRule
	compiledAllowList []*regexp.Regexp
	lowerStopWords    []string
}

// Rule defines a named redaction pattern.
type Rule struct {
	// ID names the rule and appears in the placeholder.
	ID string `koanf:"id"`

	// Description explains what this rule detects
	Description string `koanf:"description"`

	// Pattern is the regex pattern to match secrets
	Pattern string `koanf:"pattern"`

	// Keywords gate the rule: it only runs when one appears in the content.
	Keywords []string `koanf:"keywords"`

	// Severity indicates the importance (high, medium, low)
	Severity string `koanf:"severity"`
}

type compiledRule struct {
	Rule
	pattern  *regexp.Regexp
	keywords []string
}

// DefaultConfig returns a configuration with the built-in rules.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Rules:     DefaultRules(),
		AllowList: []string{},
	}
}

// Merge folds a loaded allowlist into the config. Call Validate afterwards.
func (c *Config) Merge(a *Allowlist) {
	if a == nil {
		return
	}
	c.AllowList = append(c.AllowList, a.Regexes...)
	c.StopWords = append(c.StopWords, a.StopWords...)
}

// Validate validates and compiles the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	seen := make(map[string]bool, len(c.Rules))
	c.compiledRules = make([]*compiledRule, 0, len(c.Rules))
	for i, rule := range c.Rules {
		if rule.ID == "" {
			return fmt.Errorf("%w: rule %d: ID is required", ErrInvalidRule, i)
		}
		if seen[rule.ID] {
			return fmt.Errorf("%w: rule %s: duplicate ID", ErrInvalidRule, rule.ID)
		}
		seen[rule.ID] = true
		if rule.Pattern == "" {
			return fmt.Errorf("%w: rule %s: pattern is required", ErrInvalidRule, rule.ID)
		}

		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("%w: rule %s: %v", ErrInvalidRegex, rule.ID, err)
		}

		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			keywords = append(keywords, strings.ToLower(kw))
		}

		c.compiledRules = append(c.compiledRules, &compiledRule{
			Rule:     rule,
			pattern:  pattern,
			keywords: keywords,
		})
	}

	c.compiledAllowList = make([]*regexp.Regexp, 0, len(c.AllowList))
	for i, pattern := range c.AllowList {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: allow_list %d: %v", ErrInvalidRegex, i, err)
		}
		c.compiledAllowList = append(c.compiledAllowList, compiled)
	}

	c.lowerStopWords = make([]string, 0, len(c.StopWords))
	for _, w := range c.StopWords {
		if w != "" {
			c.lowerStopWords = append(c.lowerStopWords, strings.ToLower(w))
		}
	}

	return nil
}
