package bundle

import (
	"context"

	"github.com/fyrsmithlabs/ctxpack/internal/budget"
	"github.com/fyrsmithlabs/ctxpack/internal/sandbox"
)

// Reason explains why a candidate file was omitted.
type Reason string

const (
	ReasonBudgetExceeded              Reason = "budget_exceeded"
	ReasonOutsideProject              Reason = Reason(sandbox.ReasonOutsideProject)
	ReasonSensitivePath               Reason = Reason(sandbox.ReasonSensitivePath)
	ReasonOutsideProjectRequiresAllow Reason = Reason(sandbox.ReasonOutsideProjectRequiresAllow)
)

// FileEntry is one admitted file. Content is already redacted.
type FileEntry struct {
	Path          string          `json:"path" yaml:"path"`
	Content       string          `json:"content" yaml:"content"`
	Category      budget.Category `json:"category" yaml:"category"`
	TokenEstimate int             `json:"token_estimate" yaml:"token_estimate"`

	// ContentHash is the hex xxh3 digest of Content.
	ContentHash string `json:"content_hash" yaml:"content_hash"`
}

// OmittedFile is a candidate that was rejected, and why.
type OmittedFile struct {
	Path          string          `json:"path" yaml:"path"`
	Category      budget.Category `json:"category" yaml:"category"`
	TokenEstimate int             `json:"token_estimate" yaml:"token_estimate"`
	Reason        Reason          `json:"reason" yaml:"reason"`
}

// RedactionStats summarizes redaction across the bundle.
type RedactionStats struct {
	TotalRedactions int      `json:"total_redactions" yaml:"total_redactions"`
	FilesRedacted   int      `json:"files_redacted" yaml:"files_redacted"`
	RedactedTypes   []string `json:"redacted_types" yaml:"redacted_types"`
}

// ContextBundle is the result of one bundling run. It is fully populated
// before Build returns and not modified afterwards.
type ContextBundle struct {
	ID           string `json:"id" yaml:"id"`
	ProjectRoot  string `json:"project_root" yaml:"project_root"`
	TokenCeiling int    `json:"token_ceiling" yaml:"token_ceiling"`

	ConversationContext string                  `json:"conversation_context,omitempty" yaml:"conversation_context,omitempty"`
	Files               []FileEntry             `json:"files" yaml:"files"`
	OmittedFiles        []OmittedFile           `json:"omitted_files" yaml:"omitted_files"`
	TotalTokens         int                     `json:"total_tokens" yaml:"total_tokens"`
	Categories          map[budget.Category]int `json:"categories" yaml:"categories"`
	RedactionStats      RedactionStats          `json:"redaction_stats" yaml:"redaction_stats"`
	BudgetWarnings      []budget.Warning        `json:"budget_warnings" yaml:"budget_warnings"`
	Budgets             []budget.Entry          `json:"budgets" yaml:"budgets"`
}

// Request describes one bundling run.
type Request struct {
	// ProjectRoot must be an absolute path to an existing directory.
	ProjectRoot string `json:"project_root"`

	// IncludePaths are explicitly requested files or directories, relative
	// to ProjectRoot or absolute. A leading "~" names the home directory.
	IncludePaths []string `json:"include_paths"`

	// AllowExternal lets explicit paths resolve outside ProjectRoot. It has
	// no effect on discovered files.
	AllowExternal bool `json:"allow_external"`

	// TokenCeiling caps the bundle. Zero uses the bundler default.
	TokenCeiling int `json:"token_ceiling"`

	IncludeConversation bool `json:"include_conversation"`
	IncludeDependencies bool `json:"include_dependencies"`
	IncludeDependents   bool `json:"include_dependents"`
	IncludeTests        bool `json:"include_tests"`
	IncludeTypes        bool `json:"include_types"`
}

// Session is what the bundler needs from an editing session.
type Session struct {
	Read    []string
	Written []string
	Edited  []string

	// Cache maps paths to the last content seen in the session. It backs
	// files that no longer exist on disk.
	Cache map[string]string

	Transcript string
}

// SessionSource loads the editing session for a project.
type SessionSource interface {
	Load(ctx context.Context, projectRoot string) (*Session, error)
}

// ChangeSource lists files with uncommitted changes.
type ChangeSource interface {
	Changed(ctx context.Context, projectRoot string) ([]string, error)
}

// FileFinder finds files related to sources, such as their tests.
type FileFinder interface {
	Find(ctx context.Context, sources []string, projectRoot string) ([]string, error)
}
