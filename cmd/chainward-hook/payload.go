package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chainward/chainward/internal/gate"
)

// hookPayload is the lenient on-the-wire shape of a pre-tool-use
// invocation ("{tool: json-string, cwd, prompt?}"). In
// practice hosts send "tool" two different ways — a bare tool name
// alongside a sibling "input" object, or the whole tool call
// double-encoded as a JSON string under "tool" — so Tool is decoded as
// raw bytes and reconciled by resolveToolCall rather than a fixed Go
// type.
type hookPayload struct {
	Tool   json.RawMessage `json:"tool"`
	Input  map[string]any  `json:"input,omitempty"`
	Cwd    string          `json:"cwd"`
	Prompt string          `json:"prompt,omitempty"`
}

// stopPayload is the session-stop signal's shape ("{cwd}").
type stopPayload struct {
	Cwd string `json:"cwd"`
}

// readStdinJSON reads and parses stdin as JSON into v. An empty stdin
// (e.g. a TTY with nothing piped in) is not an error — the caller falls
// back to flag overrides.
func readStdinJSON(v any) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing stdin payload: %w", err)
	}
	return nil
}

// flagOverrides holds command-line overrides for the stdin payload.
type flagOverrides struct {
	cwd, tool, input, prompt string
}

func parseFlags(args []string) flagOverrides {
	var f flagOverrides
	for _, a := range args {
		k, v, ok := strings.Cut(strings.TrimPrefix(a, "-"), "=")
		if !ok || !strings.HasPrefix(a, "-") {
			continue
		}
		switch k {
		case "cwd":
			f.cwd = v
		case "tool":
			f.tool = v
		case "input":
			f.input = v
		case "prompt":
			f.prompt = v
		}
	}
	return f
}

func (f flagOverrides) apply(p *hookPayload) error {
	if f.cwd != "" {
		p.Cwd = f.cwd
	}
	if f.prompt != "" {
		p.Prompt = f.prompt
	}
	if f.tool != "" {
		p.Tool = json.RawMessage(strconvQuote(f.tool))
	}
	if f.input != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(f.input), &m); err != nil {
			return fmt.Errorf("parsing -input: %w", err)
		}
		p.Input = m
	}
	return nil
}

// strconvQuote produces a JSON string literal for a raw flag value so
// it round-trips through hookPayload.Tool the same as a quoted stdin
// field would.
func strconvQuote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// resolveToolCall reconciles hookPayload's lenient "tool" encoding into
// a gate.ToolCall. Three shapes are accepted, tried in order:
//  1. tool is a bare JSON string (the tool name) with input alongside.
//  2. tool is a JSON object {name, input} directly.
//  3. tool is a JSON string that is itself the JSON encoding of (2) —
//     the double-encoded form some hosts emit.
func resolveToolCall(p hookPayload) (gate.ToolCall, error) {
	if len(p.Tool) == 0 {
		return gate.ToolCall{}, nil
	}

	var name string
	if err := json.Unmarshal(p.Tool, &name); err == nil {
		if strings.HasPrefix(strings.TrimSpace(name), "{") {
			var nested struct {
				Name  string         `json:"name"`
				Input map[string]any `json:"input"`
			}
			if err := json.Unmarshal([]byte(name), &nested); err == nil && nested.Name != "" {
				return gate.ToolCall{Name: nested.Name, Input: nested.Input}, nil
			}
			return gate.ToolCall{}, fmt.Errorf("tool field was a double-encoded string but did not parse as {name, input}")
		}
		return gate.ToolCall{Name: name, Input: p.Input}, nil
	}

	var obj struct {
		Name  string         `json:"name"`
		Input map[string]any `json:"input"`
	}
	if err := json.Unmarshal(p.Tool, &obj); err == nil && obj.Name != "" {
		return gate.ToolCall{Name: obj.Name, Input: obj.Input}, nil
	}

	return gate.ToolCall{}, fmt.Errorf("could not interpret \"tool\" field: %s", string(p.Tool))
}
