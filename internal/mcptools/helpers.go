// Package mcptools implements the read-only MCP introspection surface:
// chain_status and chain_explain. Neither tool
// allows or denies a tool call — only cmd/chainward-hook does that —
// these exist so a host can query the core's view of the world outside
// the hook lifecycle.
package mcptools

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainward/chainward/internal/catalog"
)

// findWorkDir walks up from the process's current directory looking
// for a chains/ subdirectory to locate the project root a tool call
// should operate against.
func findWorkDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	current := dir
	for {
		candidate := filepath.Join(current, catalog.ChainsDir)
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir, nil
		}
		current = parent
	}
}
