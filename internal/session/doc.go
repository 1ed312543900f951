// Package session reads editing-session logs in JSONL format and turns them
// into the file lists, cached content and transcript the bundler consumes.
//
// Each line of a log is one message record:
//
//	{"type":"assistant","message":{"role":"assistant","content":[
//	    {"type":"text","text":"Reading the handler."},
//	    {"type":"tool_use","name":"Read","input":{"file_path":"/proj/main.go"}}]}}
//
// Read tool calls mark files as read, Write calls as written (with the
// written content kept as a cache entry), and Edit, MultiEdit and
// NotebookEdit calls as edited. User and assistant text forms the
// transcript. Malformed lines are counted and skipped.
package session
