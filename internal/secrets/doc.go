// Package secrets redacts secret-shaped substrings from file content before
// it leaves the trust boundary.
//
// Rules run in a fixed order, most specific first, and each match is replaced
// with a placeholder naming the rule that claimed it, e.g.
// [REDACTED:github-token]. An optional deep pass runs the gitleaks default
// rule set over whatever the ordered rules left behind.
package secrets
