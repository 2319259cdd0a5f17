package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainward/chainward/internal/activator"
	"github.com/chainward/chainward/internal/audit"
	"github.com/chainward/chainward/internal/catalog"
	"github.com/chainward/chainward/internal/chainconfig"
	"github.com/chainward/chainward/internal/chainerr"
	"github.com/chainward/chainward/internal/evidence"
	"github.com/chainward/chainward/internal/gate"
	"github.com/chainward/chainward/internal/router"
	"github.com/chainward/chainward/internal/session"
	"github.com/chainward/chainward/internal/templates"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

// runPreToolUse implements the pre-tool-use hook invocation and returns
// the process exit code.
func runPreToolUse(args []string) int {
	cfg := chainconfig.Load()
	if cfg.Disabled {
		return 0
	}

	payload, err := loadPreToolUsePayload(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	workDir, err := resolveWorkDir(payload.Cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	lib, err := loadLibraryOrNil(workDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if lib == nil {
		// No chains/ catalog configured for this working directory —
		// nothing to enforce.
		return 0
	}

	tc, err := resolveToolCall(payload)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	store := session.NewFileStore()

	if payload.Prompt != "" {
		if err := autoActivate(workDir, payload.Prompt, lib, store, cfg); err != nil {
			if chainerr.Is(err, chainerr.IdempotencyConflict) {
				// A session is already active under a different
				// request_id — the router's suggestion loses to
				// whatever is already in flight; proceed to gate
				// against the existing session instead of failing
				// the whole invocation.
			} else {
				fmt.Fprintln(os.Stderr, err)
				return 2
			}
		}
	}

	checker := evidence.New(workDir)
	checker.CommandTimeout = cfg.CommandTimeout
	checker.Acknowledged = func(artifactName string) bool {
		s, err := store.LoadCurrent(workDir)
		if err != nil || s == nil {
			return false
		}
		return s.ManualAcks[artifactName]
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	auditStore, recorder := openRecorder(workDir)
	if auditStore != nil {
		defer auditStore.Close()
	}

	g := gate.New(store, checker, renderer, recorder)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CommandTimeout)
	defer cancel()

	if err := g.RefreshEvidence(ctx, workDir, lib); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	// session_corrupt always exits 2: the gate refuses to
	// allow or deny against state it cannot trust.
	s, err := store.LoadCurrent(workDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	strictness := cfg.ResolveStrictness(catalog.StrictnessStrict)
	if s != nil {
		strictness = cfg.ResolveStrictness(s.Strictness)
	}

	decision, err := g.Evaluate(workDir, tc, lib, strictness)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if decision.Payload != "" {
		fmt.Println(highlightIfTTY(decision.Payload))
	}
	if !decision.Allow {
		return 1
	}
	return 0
}

func loadPreToolUsePayload(args []string) (hookPayload, error) {
	var p hookPayload
	if err := readStdinJSON(&p); err != nil {
		return p, err
	}
	if err := parseFlags(args).apply(&p); err != nil {
		return p, err
	}
	return p, nil
}

// loadLibraryOrNil returns (nil, nil) when no chains/ catalog exists for
// workDir — the hook has nothing to enforce in that case rather than
// treating an unconfigured project as a spec error.
func loadLibraryOrNil(workDir string) (*catalog.Library, error) {
	if _, err := os.Stat(catalog.SkillsPath(workDir)); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
	}
	lib, err := catalog.Load(workDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return lib, nil
}

// resolveWorkDir returns cwd if set, else the process's own working
// directory.
func resolveWorkDir(cwd string) (string, error) {
	if cwd != "" {
		return filepath.Abs(cwd)
	}
	return os.Getwd()
}

// autoActivate runs the semantic router against prompt and, on an
// immediate match, activates the winning profile.
// A suggestion-mode match is left for the host to surface conversationally
// rather than committing a session the user never asked for.
func autoActivate(workDir, prompt string, lib *catalog.Library, store session.Store, cfg chainconfig.Config) error {
	vsPath := filepath.Join(workDir, ".chain", "vector_store.json")
	vs, err := router.LoadVectorStore(vsPath, cfg.EmbeddingModel)
	if err != nil {
		// A malformed or model-mismatched vector store disables the
		// embedding path for this invocation rather than failing
		// gating outright — embeddings are optional.
		fmt.Fprintln(os.Stderr, "warning: "+err.Error())
		vs = nil
	}

	embedder := buildEmbedder(cfg)
	r := router.New(lib, embedder, vs)
	r.ImmediateThreshold = cfg.ImmediateThreshold
	r.SuggestionThreshold = cfg.SuggestionThreshold

	requestID := deriveRequestID(workDir, prompt)
	decision, err := r.Route(context.Background(), requestID, prompt)
	if err != nil {
		return err
	}
	if decision.Mode != router.ModeImmediate || decision.SelectedProfile == "" {
		return nil
	}

	act := activator.New(lib, store, uuid.NewString, nowRFC3339)
	_, err = act.Activate(workDir, decision.SelectedProfile, requestID)
	return err
}

func buildEmbedder(cfg chainconfig.Config) router.Embedder {
	if cfg.EmbeddingEndpoint == "" {
		return router.NullEmbedder{}
	}
	return router.NewHTTPEmbedder(cfg.EmbeddingEndpoint, cfg.EmbeddingModel, cfg.EmbeddingAPIKey)
}

// deriveRequestID derives a stable id from (workDir, prompt) so that
// repeated invocations of the same prompt against the same working
// directory are naturally idempotent even though the hook protocol's
// pre-tool-use payload carries no explicit request_id field.
func deriveRequestID(workDir, prompt string) string {
	sum := sha256.Sum256([]byte(workDir + "\x00" + prompt))
	return "auto-" + hex.EncodeToString(sum[:])[:16]
}

// openRecorder opens the audit store for workDir, if possible. A
// failure to open it is logged and swallowed — the decision log is
// ambient observability, never load-bearing for the gate
// decision itself. The returned *audit.Store is nil in that case and
// the caller must not try to close it.
func openRecorder(workDir string) (*audit.Store, gate.Recorder) {
	store, err := audit.New(audit.DefaultConfig(workDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: audit log unavailable: "+err.Error())
		return nil, nil
	}
	return store, audit.GateRecorder{Store: store}
}

// highlightIfTTY adds a minimal ANSI highlight to the "BLOCKED" /
// "STOP BLOCKED" header line when stdout is a terminal; a host that
// captures stdout (the common case) sees plain markdown.
func highlightIfTTY(payload string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return payload
	}
	const (
		red   = "\x1b[31;1m"
		reset = "\x1b[0m"
	)
	lines := strings.Split(payload, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# CHAIN ENFORCEMENT:") {
			lines[i] = red + line + reset
		}
	}
	return strings.Join(lines, "\n")
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
