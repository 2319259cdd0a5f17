// Package gate implements the policy gate: it classifies a pending
// tool invocation into intents, intersects them with the
// active session's blocked_intents, and renders an allow/deny decision.
// It also runs the completion gate on session-stop signals.
package gate

import (
	"regexp"
	"strings"

	"github.com/chainward/chainward/internal/catalog"
	"github.com/spf13/cast"
)

// ToolCall is the gate's view of a pending tool invocation.
type ToolCall struct {
	Name  string
	Input map[string]any
}

// staticIntents maps named tools directly to an intent, bypassing
// regex classification entirely.
var staticIntents = map[string]catalog.Intent{
	"Read":         catalog.IntentRead,
	"Grep":         catalog.IntentRead,
	"Glob":         catalog.IntentRead,
	"NotebookRead": catalog.IntentRead,
	"Write":        catalog.IntentWrite,
	"Edit":         catalog.IntentEdit,
	"NotebookEdit": catalog.IntentEdit,
}

// shellTools are scanned against bashPatterns instead of being looked
// up in staticIntents.
var shellTools = map[string]bool{
	"Bash":    true,
	"Shell":   true,
	"Execute": true,
}

// bashPattern pairs a compiled regex with the intent it contributes.
// Patterns are evaluated independently; a command may match several.
type bashPattern struct {
	re     *regexp.Regexp
	intent catalog.Intent
}

// bashPatterns is the canonical ordered list of command classifiers.
// Order only matters for test readability; matching is independent and
// the result is a set union.
var bashPatterns = []bashPattern{
	{regexp.MustCompile(`\bgit\s+commit\b`), catalog.IntentCommit},
	{regexp.MustCompile(`\bgit\s+push\b`), catalog.IntentPush},
	{regexp.MustCompile(`\brm\s+-r[f]?\b`), catalog.IntentDelete},
	{regexp.MustCompile(`\bgit\s+branch\s+-[dD]\b`), catalog.IntentDelete},
	{regexp.MustCompile(`\bgit\s+push\b.*--delete\b`), catalog.IntentDelete},
	{regexp.MustCompile(`\b(npm|yarn|pnpm)\s+publish\b`), catalog.IntentDeploy},
	{regexp.MustCompile(`\bdeploy\b`), catalog.IntentDeploy},
	{regexp.MustCompile(`\b(echo|cat)\s+.*>\s`), catalog.IntentWrite},
	{regexp.MustCompile(`\btee\b`), catalog.IntentWrite},
	{regexp.MustCompile(`\bmkdir\b`), catalog.IntentWrite},
	{regexp.MustCompile(`\btouch\b`), catalog.IntentWrite},
}

// ClassifyIntents maps tc to its set of intents. A tool with no
// recognized name and no matching shell pattern maps to zero intents
// and is never denied by this gate.
func ClassifyIntents(tc ToolCall) []catalog.Intent {
	if intent, ok := staticIntents[tc.Name]; ok {
		return []catalog.Intent{intent}
	}
	if !shellTools[tc.Name] {
		return nil
	}

	// Hook payloads are decoded from JSON, so "command" can arrive as
	// any scalar depending on what the host's tool schema puts there;
	// cast coerces rather than panicking on an unexpected type.
	command := cast.ToString(tc.Input["command"])
	if strings.TrimSpace(command) == "" {
		return nil
	}

	seen := make(map[catalog.Intent]bool)
	var intents []catalog.Intent
	for _, p := range bashPatterns {
		if p.re.MatchString(command) && !seen[p.intent] {
			seen[p.intent] = true
			intents = append(intents, p.intent)
		}
	}
	return intents
}
