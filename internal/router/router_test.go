package router

import (
	"context"
	"testing"

	"github.com/chainward/chainward/internal/catalog"
)

func mustLib(t *testing.T, profilesYAML string) *catalog.Library {
	t.Helper()
	lib, err := catalog.LoadBytes([]byte(`skills: []`), []byte(profilesYAML))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	return lib
}

// Keyword routing: both profiles match
// the prompt; when their keyword scores tie, priority decides.
func TestRoute_KeywordMatch_HigherPriorityWinsOnTie(t *testing.T) {
	lib := mustLib(t, `
profiles:
  - name: bug-fix
    match: [fix]
    capabilities_required: []
    strictness: strict
    priority: 10
  - name: new-feature
    match: [add]
    capabilities_required: []
    strictness: strict
    priority: 5
`)

	r := New(lib, NullEmbedder{}, nil)
	decision, err := r.Route(context.Background(), "req-1", "add a fix for the button")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.SelectedProfile != "bug-fix" {
		t.Fatalf("SelectedProfile = %q, want bug-fix (tie broken by priority)", decision.SelectedProfile)
	}
}

// A strictly higher keyword score wins outright even against a
// higher-priority profile — priority only breaks exact ties.
func TestRoute_KeywordMatch_HigherScoreBeatsPriority(t *testing.T) {
	lib := mustLib(t, `
profiles:
  - name: bug-fix
    match: [fix, bug, error]
    capabilities_required: []
    strictness: strict
    priority: 10
  - name: new-feature
    match: [add]
    capabilities_required: []
    strictness: strict
    priority: 1
`)

	r := New(lib, NullEmbedder{}, nil)
	decision, err := r.Route(context.Background(), "req-1", "add a new thing")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.SelectedProfile != "new-feature" {
		t.Fatalf("SelectedProfile = %q, want new-feature (higher raw score)", decision.SelectedProfile)
	}
}

func TestRoute_EmptyPrompt_AlwaysChat(t *testing.T) {
	lib := mustLib(t, `
profiles:
  - name: bug-fix
    match: [fix]
    capabilities_required: []
    strictness: strict
    priority: 1
`)
	r := New(lib, NullEmbedder{}, nil)
	decision, err := r.Route(context.Background(), "req-1", "")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.Mode != ModeChat {
		t.Errorf("Mode = %v, want chat", decision.Mode)
	}
	if decision.SelectedProfile != "" {
		t.Errorf("SelectedProfile = %q, want empty", decision.SelectedProfile)
	}
}

func TestRoute_NoProfiles_AlwaysChat(t *testing.T) {
	lib := mustLib(t, `profiles: []`)
	r := New(lib, NullEmbedder{}, nil)
	decision, err := r.Route(context.Background(), "req-1", "fix the bug")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.Mode != ModeChat {
		t.Errorf("Mode = %v, want chat", decision.Mode)
	}
}

func TestRoute_EmptyMatchListNeverSelected(t *testing.T) {
	lib := mustLib(t, `
profiles:
  - name: catch-all
    match: []
    capabilities_required: []
    strictness: strict
    priority: 100
  - name: bug-fix
    match: [fix]
    capabilities_required: []
    strictness: strict
    priority: 1
`)
	r := New(lib, NullEmbedder{}, nil)
	decision, err := r.Route(context.Background(), "req-1", "please fix this")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.SelectedProfile == "catch-all" {
		t.Fatal("profile with empty match list must never be selected")
	}
	if decision.SelectedProfile != "bug-fix" {
		t.Errorf("SelectedProfile = %q, want bug-fix", decision.SelectedProfile)
	}
}

func TestRoute_NoKeywordMatch_AllProfilesZeroScore_Chat(t *testing.T) {
	lib := mustLib(t, `
profiles:
  - name: bug-fix
    match: [fix, bug]
    capabilities_required: []
    strictness: strict
    priority: 1
`)
	r := New(lib, NullEmbedder{}, nil)
	decision, err := r.Route(context.Background(), "req-1", "write the quarterly report")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.Mode != ModeChat {
		t.Errorf("Mode = %v, want chat for a zero-score match", decision.Mode)
	}
}

func TestKeywordScore_CapsAtOne(t *testing.T) {
	score := keywordScore([]string{"fix"}, "fix fix fix")
	if score != 1.0 {
		t.Errorf("score = %v, want 1.0", score)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	sim, err := CosineSimilarity([]float64{1, 0}, []float64{0, 1})
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if sim != 0 {
		t.Errorf("sim = %v, want 0", sim)
	}
}

func TestCosineSimilarity_Identical(t *testing.T) {
	sim, err := CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if sim < 0.999 {
		t.Errorf("sim = %v, want ~1.0", sim)
	}
}

func TestCosineSimilarity_MismatchedLength(t *testing.T) {
	if _, err := CosineSimilarity([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for mismatched vector lengths")
	}
}
