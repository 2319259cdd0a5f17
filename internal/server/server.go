// Package server wires the MCP introspection surface and creates the
// server instance.
//
// This is the composition root (DIP): it creates concrete
// implementations and injects them into the tools/prompts/resources
// that depend on abstractions. No business logic lives here — only
// wiring. The MCP server never itself allows or denies a tool call;
// only cmd/chainward-hook does, keeping the gate's decision authority
// singular.
package server

import (
	"github.com/chainward/chainward/internal/mcptools"
	"github.com/chainward/chainward/internal/prompts"
	"github.com/chainward/chainward/internal/resources"
	"github.com/chainward/chainward/internal/session"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
func New() (*server.MCPServer, error) {
	store := session.NewFileStore()

	s := server.NewMCPServer(
		"chainward",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register introspection tools ---

	statusTool := mcptools.NewStatusTool(store)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	explainTool := mcptools.NewExplainTool(store)
	s.AddTool(explainTool.Definition(), explainTool.Handle)

	// --- Register prompts ---

	activatePrompt := prompts.NewActivatePrompt()
	s.AddPrompt(activatePrompt.Definition(), activatePrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(store)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s, nil
}

func serverInstructions() string {
	return `You have access to chainward, a workflow enforcement MCP server.

chainward is not something you call directly to gate a tool call — that
decision is made by the chainward-hook binary your host runs before
every tool invocation. This server exists so you can introspect the
same state the hook consults.

## When to use chain_status
Call chain_status at the start of a session, or whenever a tool call
comes back denied, to see: the active profile, the resolved skill
chain, which capabilities are satisfied vs. pending, and which intents
are currently blocked.

## When to use chain_explain
Before attempting a risky tool call (a commit, a push, a delete, a
deploy), call chain_explain with the tool name (and command, for
shell-class tools) to see whether it would be blocked and why — without
actually attempting it.

## Activating a profile
If no session is active and your host's auto-routing didn't pick one up
from your prompt, the chainward-activate prompt gives instructions for
a profile named explicitly; it does not itself start a session.

## What blocks you
A blocked intent names the capability you need to demonstrate and the
skill that provides it. Produce the skill's declared evidence — a file
that exists, a marker found in a file, a command that exits
successfully — then retry the tool call. The hook re-evaluates evidence
on every invocation; nothing needs to be manually unblocked.`
}
