package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chainward/chainward/internal/chainconfig"
	"github.com/chainward/chainward/internal/evidence"
	"github.com/chainward/chainward/internal/gate"
	"github.com/chainward/chainward/internal/session"
	"github.com/chainward/chainward/internal/templates"
)

// runStop implements the session-stop hook invocation (the completion
// gate) and returns the process exit code.
func runStop(args []string) int {
	cfg := chainconfig.Load()
	if cfg.Disabled {
		return 0
	}

	var p stopPayload
	if err := readStdinJSON(&p); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if f := parseFlags(args); f.cwd != "" {
		p.Cwd = f.cwd
	}

	workDir, err := resolveWorkDir(p.Cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	store := session.NewFileStore()
	s, err := store.LoadCurrent(workDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if s == nil {
		return 0
	}

	lib, err := loadLibraryOrNil(workDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if lib == nil {
		return 0
	}
	profile, ok := lib.Profile(s.ProfileID)
	if !ok {
		// The active session references a profile no longer present in
		// the catalog — nothing to check completion against; allow the
		// stop rather than wedging the host on stale local state.
		return 0
	}

	checker := evidence.New(workDir)
	checker.CommandTimeout = cfg.CommandTimeout
	checker.Acknowledged = func(artifactName string) bool {
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

	strictness := cfg.ResolveStrictness(profile.Strictness)
	decision, err := g.CheckCompletion(ctx, workDir, profile, strictness)
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
