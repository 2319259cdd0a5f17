// Package prompts implements MCP prompt handlers for the workflow
// enforcement core's introspection surface. MCP prompts are
// user-triggered workflows (like slash commands); unlike tools, the
// user invokes them, not the assistant.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ActivatePrompt handles the chainward-activate MCP prompt. It returns
// instructions naming a profile; it does not create a session itself.
// Sessions are created only by chainward-hook, when its router matches
// a user prompt to a profile with immediate confidence.
type ActivatePrompt struct{}

// NewActivatePrompt creates an ActivatePrompt.
func NewActivatePrompt() *ActivatePrompt {
	return &ActivatePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ActivatePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("chainward-activate",
		mcp.WithPromptDescription(
			"Returns instructions for working under a workflow profile named "+
				"by the caller. The prompt does not itself resolve a skill chain "+
				"or start a session; chainward-hook starts one only when its "+
				"router matches a user prompt to a profile.",
		),
		mcp.WithArgument("profile",
			mcp.ArgumentDescription("Name of the profile to activate, e.g. \"bug-fix\"."),
		),
	)
}

// Handle processes the chainward-activate prompt request.
func (p *ActivatePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	profile := "the appropriate profile"
	if args := req.Params.Arguments; args != nil {
		if name, ok := args["profile"]; ok && name != "" {
			profile = name
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Activate workflow profile: %s", profile),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Activate the %q workflow profile for this working directory.\n\n"+
						"Please:\n"+
						"1. Note that this prompt does not start a session: chainward-hook "+
						"starts one only when its router matches a user prompt to this "+
						"profile with immediate confidence.\n"+
						"2. Once active, call `chain_status` to confirm the resolved chain "+
						"and which intents are currently blocked.\n"+
						"3. Proceed with the work, satisfying each blocked capability's "+
						"artifacts before attempting the blocked action again.",
					profile,
				)),
			},
		},
	}, nil
}
