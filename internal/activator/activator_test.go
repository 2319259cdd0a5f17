package activator

import (
	"testing"

	"github.com/chainward/chainward/internal/catalog"
	"github.com/chainward/chainward/internal/chainerr"
	"github.com/chainward/chainward/internal/session"
)

const bugFixSkillsYAML = `
skills:
  - name: tdd
    skill_path: a
    provides: [test_written, test_green]
    tool_policy:
      deny_until:
        write:
          until: test_written
          reason: "Tests must be written first"
`

const bugFixProfilesYAML = `
profiles:
  - name: bug-fix
    match: [fix, bug]
    capabilities_required: [test_written, test_green]
    strictness: strict
    priority: 10
`

func newActivator(t *testing.T) *Activator {
	t.Helper()
	lib, err := catalog.LoadBytes([]byte(bugFixSkillsYAML), []byte(bugFixProfilesYAML))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	ids := []string{"sess-a", "sess-b"}
	i := 0
	idGen := func() string {
		id := ids[i]
		i++
		return id
	}
	now := func() string { return "2026-01-01T00:00:00Z" }
	return New(lib, session.NewFileStore(), idGen, now)
}

// Re-activating with the same request_id replays the existing session.
func TestActivate_IdempotentOnSameRequestID(t *testing.T) {
	dir := t.TempDir()
	a := newActivator(t)

	first, err := a.Activate(dir, "bug-fix", "req-1")
	if err != nil {
		t.Fatalf("first Activate: %v", err)
	}
	if first.Idempotent {
		t.Fatal("first activation should not be idempotent")
	}

	second, err := a.Activate(dir, "bug-fix", "req-1")
	if err != nil {
		t.Fatalf("second Activate: %v", err)
	}
	if !second.Idempotent {
		t.Error("second activation with same request_id should be idempotent")
	}
	if second.SessionID != first.SessionID {
		t.Errorf("SessionID changed: %q -> %q", first.SessionID, second.SessionID)
	}
}

func TestActivate_ConflictOnDifferentRequestID(t *testing.T) {
	dir := t.TempDir()
	a := newActivator(t)

	if _, err := a.Activate(dir, "bug-fix", "req-1"); err != nil {
		t.Fatalf("first Activate: %v", err)
	}

	_, err := a.Activate(dir, "bug-fix", "req-2")
	if err == nil {
		t.Fatal("expected idempotency_conflict error")
	}
	if !chainerr.Is(err, chainerr.IdempotencyConflict) {
		t.Errorf("expected IdempotencyConflict kind, got %v", err)
	}
}

func TestActivate_UnknownProfile(t *testing.T) {
	dir := t.TempDir()
	a := newActivator(t)

	_, err := a.Activate(dir, "nonexistent", "req-1")
	if err == nil {
		t.Fatal("expected resolution_failure for unknown profile")
	}
	if !chainerr.Is(err, chainerr.ResolutionFailure) {
		t.Errorf("expected ResolutionFailure kind, got %v", err)
	}
}

func TestActivate_PersistsChainAndBlockedIntents(t *testing.T) {
	dir := t.TempDir()
	a := newActivator(t)

	result, err := a.Activate(dir, "bug-fix", "req-1")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if len(result.Chain) != 1 || result.Chain[0] != "tdd" {
		t.Errorf("Chain = %v, want [tdd]", result.Chain)
	}
	blocked, ok := result.BlockedIntents[catalog.IntentWrite]
	if !ok || blocked.Reason != "Tests must be written first" {
		t.Errorf("BlockedIntents = %+v, want write blocked", result.BlockedIntents)
	}

	stored, err := session.NewFileStore().LoadCurrent(dir)
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if stored == nil || stored.RequestID != "req-1" {
		t.Fatalf("stored session = %+v", stored)
	}
}

// Conflicting skills fail activation and no
// session is written.
func TestActivate_ConflictingSkillsFailsWithoutWritingSession(t *testing.T) {
	dir := t.TempDir()
	lib, err := catalog.LoadBytes([]byte(`
skills:
  - name: approach-a
    skill_path: a
    provides: [cap_x, test_green]
    conflicts: [approach-b]
  - name: approach-b
    skill_path: b
    provides: [cap_y, test_green]
    conflicts: [approach-a]
`), []byte(`
profiles:
  - name: conflicted
    match: [x]
    capabilities_required: [cap_x, cap_y]
    strictness: strict
    priority: 1
`))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}

	a := New(lib, session.NewFileStore(), func() string { return "sess-x" }, func() string { return "2026-01-01T00:00:00Z" })
	_, err = a.Activate(dir, "conflicted", "req-1")
	if err == nil {
		t.Fatal("expected resolution_failure: conflict")
	}
	if !chainerr.Is(err, chainerr.ResolutionFailure) {
		t.Errorf("expected ResolutionFailure kind, got %v", err)
	}

	stored, err := session.NewFileStore().LoadCurrent(dir)
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if stored != nil {
		t.Error("expected no session written after a failed activation")
	}
}
