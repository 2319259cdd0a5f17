// Package resources implements the MCP resource handlers for the
// workflow enforcement core: a read-only, URI-addressed view of the
// active session.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainward/chainward/internal/catalog"
	"github.com/chainward/chainward/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages chain resource endpoints.
type Handler struct {
	store session.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store session.Store) *Handler {
	return &Handler{store: store}
}

// StatusResource returns the MCP resource definition for session status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"chain://session/status",
		"Chain Session Status",
		mcp.WithResourceDescription("The active workflow session: profile, chain, capabilities, blocked intents"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the current session as JSON, or an explicit
// null-session marker when no session is active.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	workDir, err := findRoot()
	if err != nil {
		return nil, fmt.Errorf("finding work dir: %w", err)
	}

	s, err := h.store.LoadCurrent(workDir)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if s == nil {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"active":false}`,
			},
		}, nil
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling session: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}

// findRoot walks up from cwd looking for chains/, the catalog
// directory every working directory with an active chain workflow has.
func findRoot() (string, error) {
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
