// Package ignore matches project paths against gitignore-style files.
package ignore

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/fyrsmithlabs/ctxpack/internal/fsys"
)

// DefaultIgnoreFiles are read from the project root, in order.
var DefaultIgnoreFiles = []string{".gitignore", ".ignore"}

// Parser reads and parses gitignore-style files.
type Parser struct {
	// IgnoreFiles is the list of ignore file names to look for.
	IgnoreFiles []string

	// FallbackPatterns are used when no ignore files are found.
	FallbackPatterns []string
}

// NewParser creates a new ignore file parser with the given configuration.
func NewParser(ignoreFiles, fallbackPatterns []string) *Parser {
	return &Parser{
		IgnoreFiles:      ignoreFiles,
		FallbackPatterns: fallbackPatterns,
	}
}

// Matcher reports whether project-relative paths are ignored.
type Matcher struct {
	matcher  gitignore.Matcher
	patterns []string
}

// ParseProject reads all ignore files from the project root and returns a
// combined matcher. If no ignore files are found, the fallback patterns are
// used. Unreadable ignore files other than missing ones are returned as errors.
func (p *Parser) ParseProject(filesystem fsys.FS, projectRoot string) (*Matcher, error) {
	var lines []string
	foundAny := false

	for _, ignoreFile := range p.IgnoreFiles {
		data, err := filesystem.ReadFile(filepath.Join(projectRoot, ignoreFile))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		parsed, err := parseLines(data)
		if err != nil {
			return nil, err
		}
		lines = append(lines, parsed...)
		foundAny = true
	}

	if !foundAny {
		lines = p.FallbackPatterns
	}

	return NewMatcher(deduplicate(lines)), nil
}

// NewMatcher compiles gitignore lines rooted at the project root.
func NewMatcher(lines []string) *Matcher {
	patterns := make([]gitignore.Pattern, 0, len(lines))
	for _, line := range lines {
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return &Matcher{
		matcher:  gitignore.NewMatcher(patterns),
		patterns: lines,
	}
}

// Match reports whether rel, a slash or OS separated path relative to the
// project root, is ignored. A nil Matcher ignores nothing.
func (m *Matcher) Match(rel string, isDir bool) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == "" || rel == "." {
		return false
	}
	return m.matcher.Match(strings.Split(rel, "/"), isDir)
}

// Patterns returns the source lines the matcher was built from.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.patterns
}

func parseLines(data []byte) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := parseLine(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// parseLine returns the pattern on line, or "" for comments and blank lines.
// Negations are kept; the matcher applies them in file order.
func parseLine(line string) string {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	return line
}

// deduplicate removes duplicate patterns while preserving order.
func deduplicate(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	return result
}
