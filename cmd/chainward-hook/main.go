// chainward-hook: the policy gate's process boundary.
//
// A host spawns one instance of this binary per tool invocation (or per
// session-stop signal) and reads its exit code:
//
//	0  allow   — no output, or informational output on stdout.
//	1  deny    — a structured markdown denial on stdout.
//	2  error   — an internal error; message on stderr.
//
// Usage:
//
//	chainward-hook pre-tool-use [-cwd=DIR] [-tool=NAME] [-input=JSON] [-prompt=TEXT]
//	chainward-hook stop [-cwd=DIR]
//
// Each subcommand also reads its payload from stdin as JSON; flags,
// if given, override the corresponding stdin field.
package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "pre-tool-use":
		os.Exit(runPreToolUse(os.Args[2:]))
	case "stop":
		os.Exit(runStop(os.Args[2:]))
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("chainward-hook v%s\n", Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `chainward-hook v%s — workflow enforcement gate

Usage:
  chainward-hook pre-tool-use   Gate one pending tool invocation
  chainward-hook stop           Gate a session-stop signal

Both subcommands read a JSON payload from stdin:
  pre-tool-use: {"tool": "Write", "input": {...}, "cwd": ".", "prompt": "..."}
  stop:         {"cwd": "."}

Flags (-cwd, -tool, -input, -prompt) override the corresponding stdin
field when present.

Exit codes: 0 allow, 1 deny (markdown denial on stdout), 2 internal error.

Configuration (environment):
  CHAIN_STRICTNESS_OVERRIDE, CHAIN_IMMEDIATE_THRESHOLD,
  CHAIN_SUGGESTION_THRESHOLD, CHAIN_COMMAND_TIMEOUT_MS, CHAIN_DISABLE.
`, Version)
}
