package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainward/chainward/internal/audit"
	"github.com/chainward/chainward/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// StatusTool handles the chain_status MCP tool: a read-only view of
// the current session for the working directory the server process is
// running in.
type StatusTool struct {
	store session.Store
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(store session.Store) *StatusTool {
	return &StatusTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("chain_status",
		mcp.WithDescription(
			"Read the current workflow enforcement session: active profile, "+
				"resolved skill chain, satisfied and required capabilities, "+
				"currently blocked intents, and recent gate decisions. "+
				"Read-only — never activates, allows, or denies anything.",
		),
		mcp.WithNumber("recent_decisions",
			mcp.Description("How many recent decision-log entries to include. 0 (default) omits the log."),
		),
	)
}

// Handle processes the chain_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workDir, err := findWorkDir()
	if err != nil {
		return nil, fmt.Errorf("finding work dir: %w", err)
	}

	s, err := t.store.LoadCurrent(workDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s == nil {
		return mcp.NewToolResultText("No active workflow session in this directory."), nil
	}

	var recentN int
	if args := req.GetArguments(); args != nil {
		if v, ok := args["recent_decisions"].(float64); ok {
			recentN = int(v)
		}
	}

	return mcp.NewToolResultText(t.render(s, workDir, recentN)), nil
}

func (t *StatusTool) render(s *session.State, workDir string, recentN int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Chain Session: %s\n\n", s.SessionID)
	fmt.Fprintf(&b, "**Profile:** %s\n", s.ProfileID)
	fmt.Fprintf(&b, "**Strictness:** %s\n", s.Strictness)
	fmt.Fprintf(&b, "**Status:** %s\n", s.Status)
	fmt.Fprintf(&b, "**Activated:** %s\n\n", s.ActivatedAt)

	fmt.Fprintf(&b, "## Chain\n\n")
	if len(s.Chain) == 0 {
		b.WriteString("(empty — no skills required)\n\n")
	} else {
		for i, name := range s.Chain {
			fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		}
		b.WriteString("\n")
	}

	satisfied := s.SatisfiedSet()
	fmt.Fprintf(&b, "## Capabilities (%d/%d satisfied)\n\n", len(satisfied), len(s.CapabilitiesRequired))
	for _, c := range s.CapabilitiesRequired {
		mark := "pending"
		if satisfied[c] {
			mark = "satisfied"
		}
		fmt.Fprintf(&b, "- `%s` — %s\n", c, mark)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Blocked Intents (%d)\n\n", len(s.BlockedIntents))
	if len(s.BlockedIntents) == 0 {
		b.WriteString("(none)\n")
	} else {
		for intent, blocked := range s.BlockedIntents {
			fmt.Fprintf(&b, "- `%s`: %s (skill: %s, until: %s)\n", intent, blocked.Reason, blocked.Skill, blocked.UntilCapability)
		}
	}

	if recentN > 0 {
		// The audit database is opened on demand, scoped to the workDir
		// resolved for this call — the decision log is ambient
		// observability, never load-bearing for the
		// session summary itself, so a failure here is swallowed.
		if store, err := audit.New(audit.DefaultConfig(workDir)); err == nil {
			defer store.Close()
			if summary, err := store.FormatSummary(s.SessionID, recentN); err == nil && summary != "" {
				b.WriteString("\n")
				b.WriteString(summary)
			}
		}
	}

	return b.String()
}
