package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// ProjectAllowlistFile is read from the project root when present.
const ProjectAllowlistFile = ".gitleaks.toml"

// Allowlist holds exemptions loaded from gitleaks-style TOML files.
type Allowlist struct {
	Regexes   []string
	StopWords []string
}

// LoadAllowlists loads and merges the project and user allowlists.
// Missing files are skipped. Invalid TOML or regexes return errors.
//
// projectRoot: directory containing .gitleaks.toml (empty to skip)
// userPath: full path to a user allowlist file (empty to skip)
func LoadAllowlists(projectRoot, userPath string) (*Allowlist, error) {
	merged := &Allowlist{}

	paths := make([]string, 0, 2)
	if projectRoot != "" {
		paths = append(paths, filepath.Join(projectRoot, ProjectAllowlistFile))
	}
	if userPath != "" {
		paths = append(paths, userPath)
	}

	for _, path := range paths {
		a, err := loadTOML(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		merged.Regexes = append(merged.Regexes, a.Regexes...)
		merged.StopWords = append(merged.StopWords, a.StopWords...)
	}

	return merged, nil
}

func loadTOML(path string) (*Allowlist, error) {
	var doc struct {
		Allowlist struct {
			Regexes   []string `toml:"regexes"`
			StopWords []string `toml:"stopwords"`
		} `toml:"allowlist"`
	}

	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	for _, pattern := range doc.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: %q in %s: %v", ErrInvalidRegex, pattern, path, err)
		}
	}

	return &Allowlist{
		Regexes:   doc.Allowlist.Regexes,
		StopWords: doc.Allowlist.StopWords,
	}, nil
}
