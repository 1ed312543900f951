package finders

import (
	"path/filepath"
	"strings"
)

// testDirs are directory names that hold tests.
var testDirs = map[string]bool{
	"test": true, "tests": true, "__tests__": true, "spec": true, "specs": true,
}

// IsTestFile reports whether path follows a common test naming convention,
// either by its base name or by a test directory in its path.
func IsTestFile(path string) bool {
	p := filepath.ToSlash(path)
	base := strings.ToLower(filepath.Base(p))

	if strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.Contains(base, "_test.") ||
		strings.Contains(base, "-test.") ||
		strings.HasPrefix(base, "test_") ||
		strings.Contains(base, "_spec.") {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(p)), "/") {
		if testDirs[strings.ToLower(strings.TrimSpace(part))] {
			return true
		}
	}
	return false
}

// IsTypeFile reports whether path looks like a type-definition module.
func IsTypeFile(path string) bool {
	p := filepath.ToSlash(path)
	base := strings.ToLower(filepath.Base(p))
	if strings.HasSuffix(base, ".d.ts") || strings.Contains(base, ".types.") {
		return true
	}
	switch stem(base) {
	case "types", "type", "typings", "interfaces":
		return true
	}
	dir := strings.ToLower(filepath.Base(filepath.Dir(p)))
	return dir == "types" || dir == "@types" || dir == "typings"
}

// splitName splits a base name into stem and extension. A ".d.ts" file
// keeps ".d" in its stem so its extension stays ".ts".
func splitName(base string) (string, string) {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

func stem(base string) string {
	s, _ := splitName(base)
	return strings.TrimSuffix(s, ".d")
}

// testNames returns the conventional test file names for a source file.
func testNames(base string) []string {
	s, ext := splitName(base)
	if ext == "" {
		return nil
	}
	names := []string{
		s + ".test" + ext,
		s + ".spec" + ext,
		s + "_test" + ext,
		s + "-test" + ext,
		s + "_spec" + ext,
		"test_" + s + ext,
	}
	// Component tests are often plain .ts or .js.
	if alt, ok := componentTestExt[ext]; ok {
		names = append(names, s+".test"+alt, s+".spec"+alt)
	}
	return names
}

var componentTestExt = map[string]string{".tsx": ".ts", ".jsx": ".js"}

// jsLike reports whether ext belongs to the JavaScript family.
func jsLike(ext string) bool {
	switch ext {
	case ".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs":
		return true
	}
	return false
}
