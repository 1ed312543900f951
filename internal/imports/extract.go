package imports

import (
	"regexp"
	"strings"
)

// Import syntaxes recognised by ExtractImports. Matching is textual; comments
// and string literals that look like imports are matched too.
var (
	esImportFrom = regexp.MustCompile(`\bimport\s+(?:type\s+)?[\w*{}\s,$]+?\s+from\s+['"]([^'"\n]+)['"]`)
	esSideEffect = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"\n]+)['"]`)
	esExportFrom = regexp.MustCompile(`\bexport\s+(?:type\s+)?(?:\*(?:\s+as\s+\w+)?|\{[^}]*\})\s+from\s+['"]([^'"\n]+)['"]`)
	esDynamic    = regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"\n]+)['"]\s*\)`)
	cjsRequire   = regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"\n]+)['"]\s*\)`)
	cssImport    = regexp.MustCompile(`@(?:import|use|forward)\s+(?:url\(\s*)?['"]([^'"\n]+)['"]`)
	cInclude     = regexp.MustCompile(`(?m)^\s*#\s*include\s+"([^"\n]+)"`)
	pyRelative   = regexp.MustCompile(`(?m)^\s*from\s+(\.+)([\w.]*)\s+import\s+\(?\s*(\w+)`)
)

// ExtractImports returns the import specifiers found in source, deduplicated
// in first-seen order.
//
// CSS and C include targets are relative to the importing file, so bare names
// are returned with a "./" prefix. Python relative imports are rewritten to
// path form: "from .utils import x" yields "./utils" and "from ..pkg.mod
// import x" yields "../pkg/mod".
func ExtractImports(source string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(spec string) {
		spec = strings.TrimSpace(spec)
		if spec == "" || seen[spec] {
			return
		}
		seen[spec] = true
		out = append(out, spec)
	}

	for _, re := range []*regexp.Regexp{esImportFrom, esSideEffect, esExportFrom, esDynamic, cjsRequire} {
		for _, m := range re.FindAllStringSubmatch(source, -1) {
			add(m[1])
		}
	}

	for _, m := range cssImport.FindAllStringSubmatch(source, -1) {
		if spec, ok := relativeStyleImport(m[1]); ok {
			add(spec)
		}
	}

	for _, m := range cInclude.FindAllStringSubmatch(source, -1) {
		add(dotRelative(m[1]))
	}

	for _, m := range pyRelative.FindAllStringSubmatch(source, -1) {
		add(pythonSpecifier(m[1], m[2], m[3]))
	}

	return out
}

// relativeStyleImport filters out remote and built-in stylesheet modules.
func relativeStyleImport(spec string) (string, bool) {
	if strings.Contains(spec, "://") || strings.HasPrefix(spec, "//") || strings.HasPrefix(spec, "sass:") {
		return "", false
	}
	return dotRelative(spec), true
}

func dotRelative(spec string) string {
	if hasPathMarker(spec) {
		return spec
	}
	return "./" + spec
}

// pythonSpecifier converts a relative module reference to a path specifier.
// With no module after the dots, the first imported name is the module.
func pythonSpecifier(dots, module, name string) string {
	prefix := "./"
	if len(dots) > 1 {
		prefix = strings.Repeat("../", len(dots)-1)
	}
	if module == "" {
		module = name
	}
	return prefix + strings.ReplaceAll(strings.Trim(module, "."), ".", "/")
}

func hasPathMarker(spec string) bool {
	return strings.HasPrefix(spec, "./") ||
		strings.HasPrefix(spec, "../") ||
		strings.HasPrefix(spec, "/") ||
		spec == "." || spec == ".."
}
