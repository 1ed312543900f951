package bundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxpack/internal/budget"
	"github.com/fyrsmithlabs/ctxpack/internal/fsys"
	"github.com/fyrsmithlabs/ctxpack/internal/sandbox"
	"github.com/fyrsmithlabs/ctxpack/internal/secrets"
)

// run is the state of one Build call.
type run struct {
	b     *Bundler
	sb    *sandbox.Sandbox
	root  string
	alloc *budget.Allocator

	// cache holds session content keyed by normalized path.
	cache map[string]string

	// claimed marks paths already admitted or omitted.
	claimed map[string]bool

	modified      map[string]bool
	modifiedOrder []string

	types map[string]bool
	out   *ContextBundle
}

// policy selects the admission checks for a category.
type policy struct {
	// checkBoundary omits files outside the project root.
	checkBoundary bool

	// dropExternal skips files outside the project root without recording them.
	dropExternal bool

	// smallestFirst offers cheaper files to the budget first.
	smallestFirst bool
}

// candidate is a file that passed the path checks and was read and redacted.
type candidate struct {
	path      string
	content   string
	tokens    int
	redaction secrets.Result
}

func candidateTokens(c candidate) int { return c.tokens }

// explicit classifies each requested path through the sandbox and admits
// what it includes. Blocked paths are recorded with the sandbox's reason.
func (r *run) explicit(ctx context.Context, inputs []string) {
	var paths []string
	for _, in := range inputs {
		c := r.sb.Classify(in)
		for _, bl := range c.Blocked {
			key := bl.Path
			if bl.RealPath != "" {
				key = bl.RealPath
			}
			r.omit(key, OmittedFile{
				Path:     bl.Path,
				Category: budget.Explicit,
				Reason:   Reason(bl.Reason),
			})
		}
		paths = append(paths, c.Included...)
	}
	r.admit(ctx, budget.Explicit, paths, policy{})
}

// admit is the single admission path for every category. It filters and
// loads paths, then spends the category's effective budget greedily.
func (r *run) admit(ctx context.Context, c budget.Category, paths []string, p policy) {
	ctx, span := r.b.tracer.Start(ctx, "ctxpack.bundle."+string(c))
	defer span.End()

	var candidates []candidate
	offered := make(map[string]bool)
	for _, path := range paths {
		cand, ok := r.prepare(c, path, p)
		if !ok || offered[cand.path] {
			continue
		}
		offered[cand.path] = true
		candidates = append(candidates, cand)
	}
	if len(candidates) == 0 {
		r.alloc.Skip(c)
		span.SetAttributes(attribute.Bool("category.skipped", true))
		return
	}

	if p.smallestFirst {
		budget.SortSmallestFirst(candidates, candidateTokens)
	}

	effective := r.alloc.Begin(c)
	admitted, rejected, used := budget.Admit(candidates, candidateTokens, effective)
	r.alloc.Finish(c, used)

	for _, cand := range admitted {
		r.accept(c, cand)
	}
	omittedTokens := 0
	for _, cand := range rejected {
		omittedTokens += cand.tokens
		r.omit(cand.path, OmittedFile{
			Path:          cand.path,
			Category:      c,
			TokenEstimate: cand.tokens,
			Reason:        ReasonBudgetExceeded,
		})
	}
	if w, ok := r.alloc.Warn(c, len(rejected), omittedTokens); ok {
		r.out.BudgetWarnings = append(r.out.BudgetWarnings, w)
		r.b.logger.Warn(ctx, "category over budget",
			zap.String("category", string(c)),
			zap.Int("omitted_files", w.OmittedCount),
			zap.Int("omitted_tokens", w.OmittedTokens),
			zap.Int("suggested_budget", w.SuggestedBudget),
		)
	}

	span.SetAttributes(
		attribute.Int("category.effective", effective),
		attribute.Int("category.used", used),
		attribute.Int("category.admitted", len(admitted)),
		attribute.Int("category.rejected", len(rejected)),
	)
	r.b.logger.Debug(ctx, "category admitted",
		zap.String("category", string(c)),
		zap.Int("effective", effective),
		zap.Int("used", used),
		zap.Int("admitted", len(admitted)),
		zap.Int("rejected", len(rejected)),
	)
}

// skip records an absent category so its budget flows forward.
func (r *run) skip(ctx context.Context, c budget.Category) {
	_, span := r.b.tracer.Start(ctx, "ctxpack.bundle."+string(c))
	span.SetAttributes(attribute.Bool("category.skipped", true))
	span.End()
	r.alloc.Skip(c)
}

// prepare applies the path checks to one offered path and loads it.
//
// Paths already claimed by an earlier category are dropped. Sensitive paths
// are always recorded. Paths outside the project are recorded or dropped
// per p. Missing, unreadable, binary and oversized files are dropped.
func (r *run) prepare(c budget.Category, path string, p policy) (candidate, bool) {
	norm := r.sb.Normalize(path)
	if r.claimed[norm] {
		return candidate{}, false
	}
	if r.sb.IsSensitive(norm) {
		r.omit(norm, OmittedFile{Path: norm, Category: c, Reason: ReasonSensitivePath})
		return candidate{}, false
	}

	canonical, content, ok := r.load(norm)
	if !ok || r.claimed[canonical] {
		return candidate{}, false
	}
	if r.sb.IsSensitive(canonical) {
		r.omit(canonical, OmittedFile{Path: canonical, Category: c, Reason: ReasonSensitivePath})
		return candidate{}, false
	}
	if p.checkBoundary && !r.sb.Within(canonical) {
		if p.dropExternal {
			return candidate{}, false
		}
		r.omit(canonical, OmittedFile{Path: canonical, Category: c, Reason: ReasonOutsideProject})
		return candidate{}, false
	}

	res := r.b.redactor.Redact(content)
	return candidate{
		path:      canonical,
		content:   res.Content,
		tokens:    budget.EstimateTokens(res.Content),
		redaction: res,
	}, true
}

// load reads norm and returns its canonical path and content. A file
// missing from disk falls back to the session cache.
func (r *run) load(norm string) (string, string, bool) {
	info, err := r.b.fs.Stat(norm)
	if err != nil {
		cached, ok := r.cache[norm]
		if !ok || !errors.Is(err, fs.ErrNotExist) {
			return "", "", false
		}
		if !r.readable([]byte(cached)) {
			return "", "", false
		}
		return r.canonicalMissing(norm), cached, true
	}
	if !info.Mode().IsRegular() || info.Size() > r.b.maxFileBytes {
		return "", "", false
	}

	canonical, err := r.b.fs.RealPath(norm)
	if err != nil {
		return "", "", false
	}
	data, err := r.b.fs.ReadFile(canonical)
	if err != nil || !r.readable(data) {
		return "", "", false
	}
	return canonical, string(data), true
}

// readable rejects oversized and binary content.
func (r *run) readable(data []byte) bool {
	return int64(len(data)) <= r.b.maxFileBytes && bytes.IndexByte(data, 0) < 0
}

// canonicalMissing maps a path that no longer exists onto the real root so
// it compares equal to paths resolved while it still existed.
func (r *run) canonicalMissing(norm string) string {
	if !fsys.Within(norm, r.sb.Root()) {
		return norm
	}
	rel, err := filepath.Rel(r.sb.Root(), norm)
	if err != nil {
		return norm
	}
	return filepath.Join(r.sb.RealRoot(), rel)
}

func (r *run) accept(c budget.Category, cand candidate) {
	r.claimed[cand.path] = true
	r.out.Files = append(r.out.Files, FileEntry{
		Path:          cand.path,
		Content:       cand.content,
		Category:      c,
		TokenEstimate: cand.tokens,
		ContentHash:   contentHash(cand.content),
	})
	r.recordRedaction(cand.redaction, true)
	r.b.metrics.recordAdmitted(c, cand.tokens)
}

// omit records a rejected candidate once; key is the path it is claimed under.
func (r *run) omit(key string, f OmittedFile) {
	if r.claimed[key] {
		return
	}
	r.claimed[key] = true
	r.out.OmittedFiles = append(r.out.OmittedFiles, f)
	r.b.metrics.recordOmitted(f.Category, f.Reason)
}

func (r *run) recordRedaction(res secrets.Result, file bool) {
	if !res.Redacted() {
		return
	}
	r.out.RedactionStats.TotalRedactions += res.RedactionCount
	if file {
		r.out.RedactionStats.FilesRedacted++
	}
	for _, t := range res.RedactedTypes {
		r.types[t] = true
	}
	r.b.metrics.recordRedactions(res.ByType)
}

// addModified adds a written, edited or changed file to the set that drives
// dependency, dependent, test and type discovery. Files outside the project
// or on sensitive paths are not followed.
func (r *run) addModified(path string) {
	norm := r.sb.Normalize(path)
	if r.sb.IsSensitive(norm) {
		return
	}
	canonical, err := r.b.fs.RealPath(norm)
	if err != nil {
		canonical = r.canonicalMissing(norm)
	}
	if r.sb.IsSensitive(canonical) || !r.sb.Within(canonical) || r.modified[canonical] {
		return
	}
	r.modified[canonical] = true
	r.modifiedOrder = append(r.modifiedOrder, canonical)
}

// modifiedFiles returns the modified set, sorted.
func (r *run) modifiedFiles() []string {
	out := make([]string, len(r.modifiedOrder))
	copy(out, r.modifiedOrder)
	sort.Strings(out)
	return out
}

// contentHash returns the hex xxh3 digest of content.
func contentHash(content string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(content))
}
