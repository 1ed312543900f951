package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// maxLineSize bounds a single JSONL record. Longer records are skipped and
// counted as errors.
var maxLineSize = 10 * 1024 * 1024

// maxStoredErrors caps ParseResult.Errors; ErrorCount keeps counting.
const maxStoredErrors = 10

type record struct {
	UUID    string          `json:"uuid"`
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
}

type messageBody struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// Older logs nest the call.
	ToolUse *struct {
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"tool_use,omitempty"`
}

// ParseFile parses the JSONL log at path.
func ParseFile(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads JSONL records from r. Lines that are not valid records are
// counted in the result; only read failures are returned as errors.
func Parse(r io.Reader) (*ParseResult, error) {
	result := &ParseResult{
		Messages: []Message{},
		Errors:   []ParseError{},
	}

	br := bufio.NewReaderSize(r, 64*1024)

	lineNum := 0
	for {
		raw, oversized, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading session log: %w", err)
		}
		lineNum++
		if oversized {
			result.addError(lineNum, fmt.Sprintf("line exceeds %d bytes", maxLineSize))
			continue
		}
		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			result.addError(lineNum, fmt.Sprintf("JSON parse error: %v", err))
			continue
		}
		if rec.Type != string(RoleUser) && rec.Type != string(RoleAssistant) {
			continue
		}

		msg, err := parseMessage(rec)
		if err != nil {
			result.addError(lineNum, fmt.Sprintf("message parse error: %v", err))
			continue
		}
		if msg.Text == "" && len(msg.ToolCalls) == 0 {
			continue
		}
		result.Messages = append(result.Messages, msg)
	}
	return result, nil
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is drained and reported as oversized with no content. io.EOF is
// returned only when no bytes remain.
func readLine(br *bufio.Reader) ([]byte, bool, error) {
	var (
		buf       []byte
		oversized bool
		read      bool
	)
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if err == io.EOF && read {
				return buf, oversized, nil
			}
			return nil, false, err
		}
		read = true
		if !oversized {
			if len(buf)+len(chunk) > maxLineSize {
				oversized = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			if oversized {
				return nil, true, nil
			}
			return buf, false, nil
		}
	}
}

func (r *ParseResult) addError(line int, msg string) {
	r.ErrorCount++
	if len(r.Errors) < maxStoredErrors {
		r.Errors = append(r.Errors, ParseError{Line: line, Error: msg})
	}
}

func parseMessage(rec record) (Message, error) {
	msg := Message{UUID: rec.UUID, Role: Role(rec.Type)}
	if len(rec.Message) == 0 {
		return msg, nil
	}

	// User messages are sometimes a bare string.
	var plain string
	if err := json.Unmarshal(rec.Message, &plain); err == nil {
		msg.Text = plain
		return msg, nil
	}

	var body messageBody
	if err := json.Unmarshal(rec.Message, &body); err != nil {
		return msg, err
	}
	if len(body.Content) == 0 {
		return msg, nil
	}
	if err := json.Unmarshal(body.Content, &plain); err == nil {
		msg.Text = plain
		return msg, nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(body.Content, &blocks); err != nil {
		return msg, err
	}
	msg.Text, msg.ToolCalls = extractContent(blocks)
	return msg, nil
}

func extractContent(blocks []contentBlock) (string, []ToolCall) {
	var text []string
	var calls []ToolCall
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if b.Text != "" {
				text = append(text, b.Text)
			}
		case "tool_use":
			name, input := b.Name, b.Input
			if b.ToolUse != nil {
				name, input = b.ToolUse.Name, b.ToolUse.Input
			}
			if name == "" {
				continue
			}
			calls = append(calls, ToolCall{Name: name, Input: stringParams(input)})
		}
	}
	return strings.Join(text, "\n"), calls
}

func stringParams(raw json.RawMessage) map[string]string {
	params := make(map[string]string)
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return params
	}
	for k, v := range input {
		switch v := v.(type) {
		case string:
			params[k] = v
		case bool:
			params[k] = strconv.FormatBool(v)
		}
	}
	return params
}
