package secrets

import (
	"fmt"
	"strings"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// deepScanner runs the gitleaks default rule set (800+ patterns) over content
// that has already been through the ordered rules.
type deepScanner struct {
	detector *detect.Detector
}

func newDeepScanner(cfg *Config) (*deepScanner, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectorInit, err)
	}
	applyAllowlist(&detector.Config, cfg)
	return &deepScanner{detector: detector}, nil
}

// redact replaces every gitleaks finding in working and records it under the
// gitleaks rule ID. Findings inside existing placeholders are ignored.
func (d *deepScanner) redact(working string, result *Result, allowed func(string) bool) string {
	for _, f := range d.detector.DetectString(working) {
		secret := f.Secret
		if secret == "" {
			secret = f.Match
		}
		if secret == "" || strings.Contains(secret, "REDACTED:") || allowed(secret) {
			continue
		}
		n := strings.Count(working, secret)
		if n == 0 {
			continue
		}
		result.record(f.RuleID, n)
		working = strings.ReplaceAll(working, secret, Placeholder(f.RuleID))
	}
	return working
}

// applyAllowlist mirrors the configured allow list and stop words into the
// gitleaks config so both passes exempt the same text.
func applyAllowlist(cfg *gitleaksConfig.Config, c *Config) {
	if len(c.compiledAllowList) == 0 && len(c.StopWords) == 0 {
		return
	}
	allowlist := &gitleaksConfig.Allowlist{
		Description: "ctxpack allow list",
		StopWords:   append([]string(nil), c.StopWords...),
	}
	for _, re := range c.compiledAllowList {
		allowlist.Regexes = append(allowlist.Regexes, gitleaksRegexp.MustCompile(re.String()))
	}
	cfg.Allowlists = append(cfg.Allowlists, allowlist)
}
