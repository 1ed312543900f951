package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	log := `{"type":"user","message":{"role":"user","content":[{"type":"text","text":"Fix the login bug"}]},"uuid":"u1"}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"Reading the handler."},{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"/proj/login.go","limit":20}}]},"uuid":"u2"}
{"type":"summary","summary":"ignored"}
{"type":"user","message":"plain string message","uuid":"u3"}`

	res, err := Parse(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, res.Messages, 3)
	assert.Zero(t, res.ErrorCount)

	assert.Equal(t, RoleUser, res.Messages[0].Role)
	assert.Equal(t, "Fix the login bug", res.Messages[0].Text)

	assert.Equal(t, RoleAssistant, res.Messages[1].Role)
	require.Len(t, res.Messages[1].ToolCalls, 1)
	assert.Equal(t, ToolCall{Name: "Read", Input: map[string]string{"file_path": "/proj/login.go"}}, res.Messages[1].ToolCalls[0])

	assert.Equal(t, "plain string message", res.Messages[2].Text)
	assert.Equal(t, "u3", res.Messages[2].UUID)
}

func TestParse_NestedToolUse(t *testing.T) {
	log := `{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","tool_use":{"name":"Write","input":{"file_path":"a.go","content":"package a"}}}]}}`

	res, err := Parse(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Write", res.Messages[0].ToolCalls[0].Name)
	assert.Equal(t, "package a", res.Messages[0].ToolCalls[0].Input["content"])
}

func TestParse_StringContent(t *testing.T) {
	res, err := Parse(strings.NewReader(`{"type":"user","message":{"role":"user","content":"hello"}}`))
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "hello", res.Messages[0].Text)
}

func TestParse_Empty(t *testing.T) {
	res, err := Parse(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Messages)
}

func TestParse_InvalidLinesAreCounted(t *testing.T) {
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, "not json")
	}
	lines = append(lines,
		`{"type":"user","message":{"role":"user","content":42}}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"text","text":"ok"}]}}`,
	)

	res, err := Parse(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, 13, res.ErrorCount)
	assert.Len(t, res.Errors, maxStoredErrors)
	assert.Equal(t, 1, res.Errors[0].Line)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "ok", res.Messages[0].Text)
}

func TestParse_SkipsEmptyMessages(t *testing.T) {
	res, err := Parse(strings.NewReader(`{"type":"assistant","message":{"role":"assistant","content":[{"type":"thinking"}]}}`))
	require.NoError(t, err)
	assert.Empty(t, res.Messages)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile("/nonexistent/session.jsonl")
	assert.Error(t, err)
}

func TestParse_OversizedLineIsSkipped(t *testing.T) {
	old := maxLineSize
	maxLineSize = 1024
	t.Cleanup(func() { maxLineSize = old })

	first := `{"type":"user","message":{"role":"user","content":"before"},"uuid":"u1"}`
	huge := `{"type":"user","message":{"role":"user","content":"` + strings.Repeat("x", 100*1024) + `"}}`
	last := `{"type":"assistant","message":{"role":"assistant","content":"after"},"uuid":"u2"}`

	tests := []struct {
		name string
		log  string
	}{
		{"middle", strings.Join([]string{first, huge, last}, "\n")},
		{"crlf", strings.Join([]string{first, huge, last}, "\r\n")},
		{"trailing newline", strings.Join([]string{first, huge, last}, "\n") + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(strings.NewReader(tt.log))
			require.NoError(t, err)
			require.Len(t, res.Messages, 2)
			assert.Equal(t, "before", res.Messages[0].Text)
			assert.Equal(t, "after", res.Messages[1].Text)
			assert.Equal(t, 1, res.ErrorCount)
			require.Len(t, res.Errors, 1)
			assert.Equal(t, 2, res.Errors[0].Line)
			assert.Contains(t, res.Errors[0].Error, "exceeds")
		})
	}
}

func TestParse_LineAtLimitIsKept(t *testing.T) {
	old := maxLineSize
	t.Cleanup(func() { maxLineSize = old })

	line := `{"type":"user","message":{"role":"user","content":"fits"}}`
	maxLineSize = len(line)

	res, err := Parse(strings.NewReader(line))
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Zero(t, res.ErrorCount)
}
