// chainward-mcp: read-only MCP introspection server for the workflow
// enforcement core.
//
// It exposes the same session state cmd/chainward-hook gates tool
// calls against, as MCP tools/resources/prompts, for hosts that want
// to query the core outside the hook lifecycle. It never itself allows
// or denies a tool call.
//
// Usage:
//
//	chainward-mcp serve    # Start MCP server (stdio transport)
package main

import (
	"fmt"
	"os"

	chainwardserver "github.com/chainward/chainward/internal/server"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("chainward-mcp v%s\n", chainwardserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, err := chainwardserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `chainward-mcp v%s — workflow enforcement introspection server

Usage:
  chainward-mcp serve    Start the MCP server (stdio transport)

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "chainward": {
        "command": "chainward-mcp",
        "args": ["serve"]
      }
    }
  }

This server is read-only. Tool calls are gated by chainward-hook,
wired as a pre-tool-use hook in your host's configuration.
`, chainwardserver.Version)
}
