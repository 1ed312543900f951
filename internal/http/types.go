package http

import (
	"github.com/fyrsmithlabs/ctxpack/internal/telemetry"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// RedactRequest is the request body for POST /api/v1/redact.
type RedactRequest struct {
	Content string `json:"content"`
}

// RedactResponse is the response body for POST /api/v1/redact.
type RedactResponse struct {
	Content        string         `json:"content"`
	RedactionCount int            `json:"redaction_count"`
	RedactedTypes  []string       `json:"redacted_types"`
	ByType         map[string]int `json:"by_type,omitempty"`
}

// BundleRequest is the request body for POST /api/v1/bundle. The project
// root is fixed by the server. Unset include flags take the server's
// defaults.
type BundleRequest struct {
	IncludePaths  []string `json:"include_paths"`
	TokenCeiling  int      `json:"token_ceiling"`
	AllowExternal bool     `json:"allow_external"`

	IncludeConversation *bool `json:"include_conversation,omitempty"`
	IncludeDependencies *bool `json:"include_dependencies,omitempty"`
	IncludeDependents   *bool `json:"include_dependents,omitempty"`
	IncludeTests        *bool `json:"include_tests,omitempty"`
	IncludeTypes        *bool `json:"include_types,omitempty"`
}

// BundleDefaults are the include flags used when a request leaves them unset.
type BundleDefaults struct {
	IncludeConversation bool
	IncludeDependencies bool
	IncludeDependents   bool
	IncludeTests        bool
	IncludeTypes        bool
}
