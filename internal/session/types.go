package session

import "errors"

// ErrNoSession is returned when no session log exists for a project.
var ErrNoSession = errors.New("no session log found")

// Role is the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Tool names that touch files.
const (
	ToolRead         = "Read"
	ToolWrite        = "Write"
	ToolEdit         = "Edit"
	ToolMultiEdit    = "MultiEdit"
	ToolNotebookEdit = "NotebookEdit"
)

// Message is one parsed user or assistant record.
type Message struct {
	UUID      string
	Role      Role
	Text      string
	ToolCalls []ToolCall
}

// ToolCall is a tool invocation within a message. Input keeps string and
// boolean parameters; nested values are dropped.
type ToolCall struct {
	Name  string
	Input map[string]string
}

// ParseError is a line that could not be parsed.
type ParseError struct {
	Line  int
	Error string
}

// ParseResult holds the messages of one log plus the lines that failed.
type ParseResult struct {
	Messages   []Message
	ErrorCount int
	Errors     []ParseError
}
