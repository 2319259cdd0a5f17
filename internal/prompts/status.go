package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the chain-status MCP prompt. It instructs the
// AI to read and present the current workflow session state.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("chain-status",
		mcp.WithPromptDescription(
			"Check the current workflow enforcement session. Shows the "+
				"active profile, resolved skill chain, satisfied and pending "+
				"capabilities, and what's currently blocked.",
		),
	)
}

// Handle processes the chain-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Chain Session Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please call `chain_status` to check the current workflow session.\n\n" +
						"Then:\n" +
						"1. Show me the active profile, resolved chain, and capability " +
						"progress in a clear, visual format\n" +
						"2. Highlight any currently blocked intents and why\n" +
						"3. Tell me exactly what evidence I need to produce next",
				),
			},
		},
	}, nil
}
