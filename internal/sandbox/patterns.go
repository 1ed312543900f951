package sandbox

import (
	"fmt"
	"regexp"
)

// sensitivePatterns match slash-separated paths that must never be read,
// regardless of project boundaries or explicit user request.
var sensitivePatterns = []string{
	// version control internals
	`(^|/)\.(git|svn|hg|bzr)(/|$)`,

	// ssh and gpg material
	`(^|/)\.ssh(/|$)`,
	`(^|/)\.gnupg(/|$)`,
	`(^|/)id_(rsa|dsa|ecdsa|ed25519)(\.pub)?$`,
	`(?i)\.(pem|key|p12|pfx|jks|keystore|asc|gpg)$`,

	// cloud provider credentials
	`(^|/)\.aws(/|$)`,
	`(^|/)\.azure(/|$)`,
	`(^|/)\.config/gcloud(/|$)`,
	`(^|/)\.kube/config$`,
	`(^|/)\.docker/config\.json$`,
	`(^|/)\.oci(/|$)`,

	// package manager auth
	`(^|/)\.npmrc$`,
	`(^|/)\.yarnrc(\.yml)?$`,
	`(^|/)\.pypirc$`,
	`(^|/)\.netrc$`,
	`(^|/)\.gem/credentials$`,
	`(^|/)\.cargo/credentials(\.toml)?$`,
	`(^|/)\.composer/auth\.json$`,
	`(^|/)\.m2/settings(-security)?\.xml$`,

	// generic credential files
	`(?i)(^|/)credentials(\.json)?$`,
	`(?i)(^|/)[^/]*service[-_]?account[^/]*\.json$`,
	`(?i)(^|/)client[-_]?secret[^/]*\.json$`,

	// environment files
	`(^|/)\.env($|\.)`,
	`(^|/)\.envrc$`,
	`(^|/)[^/]+\.env$`,

	// infrastructure state and variables
	`\.tfstate(\.backup)?$`,
	`\.tfvars(\.json)?$`,
	`(^|/)\.terraform(/|$)`,

	// kubernetes secret manifests
	`(?i)(^|/)[^/]*secrets?[^/]*\.ya?ml$`,

	// shell history
	`(^|/)\.[a-z_]*_history$`,
	`(^|/)\.zhistory$`,
	`(^|/)fish_history$`,
}

// SensitivePatterns returns a copy of the built-in sensitive path patterns.
func SensitivePatterns() []string {
	out := make([]string, len(sensitivePatterns))
	copy(out, sensitivePatterns)
	return out
}

func compilePatterns(extra []string) ([]*regexp.Regexp, error) {
	all := append(SensitivePatterns(), extra...)
	compiled := make([]*regexp.Regexp, 0, len(all))
	for _, p := range all {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// ValidatePatterns reports whether every extra pattern compiles.
func ValidatePatterns(extra []string) error {
	_, err := compilePatterns(extra)
	return err
}
