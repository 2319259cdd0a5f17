package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainward/chainward/internal/gate"
	"github.com/chainward/chainward/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// ExplainTool handles the chain_explain MCP tool: it classifies a
// hypothetical tool invocation and reports which intents it would map
// to and whether those intents are currently blocked, without
// performing the gate decision itself.
type ExplainTool struct {
	store session.Store
}

// NewExplainTool creates an ExplainTool.
func NewExplainTool(store session.Store) *ExplainTool {
	return &ExplainTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ExplainTool) Definition() mcp.Tool {
	return mcp.NewTool("chain_explain",
		mcp.WithDescription(
			"Explain why a hypothetical tool call would or would not be blocked "+
				"by the current workflow session, without actually gating it. "+
				"Useful for the assistant to self-check before attempting a tool call.",
		),
		mcp.WithString("tool",
			mcp.Description("Tool name, e.g. \"Write\" or \"Bash\"."),
			mcp.Required(),
		),
		mcp.WithString("command",
			mcp.Description("For shell-class tools, the command string to classify."),
		),
	)
}

// Handle processes the chain_explain tool call.
func (t *ExplainTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolName := req.GetString("tool", "")
	if toolName == "" {
		return mcp.NewToolResultError("tool is required"), nil
	}
	command := req.GetString("command", "")

	workDir, err := findWorkDir()
	if err != nil {
		return nil, fmt.Errorf("finding work dir: %w", err)
	}

	tc := gate.ToolCall{Name: toolName}
	if command != "" {
		tc.Input = map[string]any{"command": command}
	}
	intents := gate.ClassifyIntents(tc)

	s, err := t.store.LoadCurrent(workDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# chain_explain: %s\n\n", toolName)
	if len(intents) == 0 {
		b.WriteString("Maps to no intents — never blocked by the policy gate.\n")
		return mcp.NewToolResultText(b.String()), nil
	}

	names := make([]string, len(intents))
	for i, in := range intents {
		names[i] = string(in)
	}
	fmt.Fprintf(&b, "**Intents:** %s\n\n", strings.Join(names, ", "))

	if s == nil {
		b.WriteString("No active session — nothing to block this call.\n")
		return mcp.NewToolResultText(b.String()), nil
	}

	blockedAny := false
	for _, intent := range intents {
		blocked, ok := s.BlockedIntents[intent]
		if !ok {
			continue
		}
		blockedAny = true
		fmt.Fprintf(&b, "- `%s` is BLOCKED: %s (skill: %s, until: `%s`)\n",
			intent, blocked.Reason, blocked.Skill, blocked.UntilCapability)
	}
	if !blockedAny {
		b.WriteString("Would be allowed — no matching intent is currently blocked.\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}
