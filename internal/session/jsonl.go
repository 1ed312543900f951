package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxpack/internal/bundle"
)

// JSONL is a bundle.SessionSource backed by a JSONL session log.
//
// With WithPath the log is fixed. Otherwise the newest *.jsonl file in the
// project's directory under the projects directory is used, where the
// project's directory name is ProjectDirName(projectRoot).
type JSONL struct {
	path        string
	projectsDir string
	logger      *zap.Logger
}

// Option configures a JSONL source.
type Option func(*JSONL)

// WithPath reads a specific log file.
func WithPath(path string) Option {
	return func(j *JSONL) { j.path = path }
}

// WithProjectsDir sets the directory that holds one log directory per
// project.
func WithProjectsDir(dir string) Option {
	return func(j *JSONL) { j.projectsDir = dir }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(j *JSONL) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// NewJSONL creates a JSONL session source.
func NewJSONL(opts ...Option) *JSONL {
	j := &JSONL{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

var _ bundle.SessionSource = (*JSONL)(nil)

// Load parses the session log for projectRoot.
func (j *JSONL) Load(ctx context.Context, projectRoot string) (*bundle.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := j.Locate(projectRoot)
	if err != nil {
		return nil, err
	}

	result, err := ParseFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSession, path)
		}
		return nil, err
	}
	if result.ErrorCount > 0 {
		j.logger.Warn("session log has unparseable lines",
			zap.String("path", path),
			zap.Int("errors", result.ErrorCount),
			zap.Any("first_errors", result.Errors))
	}

	sess := Collect(result.Messages, projectRoot)
	j.logger.Debug("session loaded",
		zap.String("path", path),
		zap.Int("messages", len(result.Messages)),
		zap.Int("read", len(sess.Read)),
		zap.Int("written", len(sess.Written)),
		zap.Int("edited", len(sess.Edited)))
	return sess, nil
}

// Locate returns the log file to read for projectRoot.
func (j *JSONL) Locate(projectRoot string) (string, error) {
	if j.path != "" {
		return j.path, nil
	}
	if j.projectsDir == "" {
		return "", fmt.Errorf("%w: no session path or projects directory configured", ErrNoSession)
	}

	dir := filepath.Join(j.projectsDir, ProjectDirName(projectRoot))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNoSession, dir)
		}
		return "", fmt.Errorf("reading session directory: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w: %s", ErrNoSession, dir)
	}
	return newest, nil
}

// ProjectDirName maps a project root to its log directory name: every
// character other than an ASCII letter or digit becomes "-".
func ProjectDirName(projectRoot string) string {
	var sb strings.Builder
	for _, r := range filepath.ToSlash(projectRoot) {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Collect folds messages into a bundle.Session. Relative tool paths are
// anchored at projectRoot.
//
// The cache tracks written content and follows later single edits of the
// same file; a multi-edit or an edit whose old text is missing drops the
// entry because its content is no longer known.
func Collect(messages []Message, projectRoot string) *bundle.Session {
	var (
		read, written, edited pathSet
		transcript            []string
	)
	cache := make(map[string]string)

	for _, msg := range messages {
		if msg.Text != "" {
			transcript = append(transcript, string(msg.Role)+": "+msg.Text)
		}
		for _, call := range msg.ToolCalls {
			path := toolPath(call, projectRoot)
			if path == "" {
				continue
			}
			switch call.Name {
			case ToolRead:
				read.add(path)
			case ToolWrite:
				written.add(path)
				if content, ok := call.Input["content"]; ok {
					cache[path] = content
				}
			case ToolEdit:
				edited.add(path)
				applyEdit(cache, path, call.Input)
			case ToolMultiEdit, ToolNotebookEdit:
				edited.add(path)
				delete(cache, path)
			}
		}
	}

	return &bundle.Session{
		Read:       read.list,
		Written:    written.list,
		Edited:     edited.list,
		Cache:      cache,
		Transcript: strings.Join(transcript, "\n\n"),
	}
}

func toolPath(call ToolCall, projectRoot string) string {
	p := call.Input["file_path"]
	if p == "" {
		p = call.Input["notebook_path"]
	}
	if p == "" {
		return ""
	}
	if !filepath.IsAbs(p) && !strings.HasPrefix(p, "~") {
		p = filepath.Join(projectRoot, p)
	}
	return filepath.Clean(p)
}

func applyEdit(cache map[string]string, path string, input map[string]string) {
	content, ok := cache[path]
	if !ok {
		return
	}
	oldText, newText := input["old_string"], input["new_string"]
	if oldText == "" || !strings.Contains(content, oldText) {
		delete(cache, path)
		return
	}
	n := 1
	if all, _ := strconv.ParseBool(input["replace_all"]); all {
		n = -1
	}
	cache[path] = strings.Replace(content, oldText, newText, n)
}

// pathSet is an insertion-ordered set of paths.
type pathSet struct {
	seen map[string]bool
	list []string
}

func (s *pathSet) add(p string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[p] {
		return
	}
	s.seen[p] = true
	s.list = append(s.list, p)
}
