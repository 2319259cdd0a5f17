package evidence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chainward/chainward/internal/catalog"
)

func TestChecker_FileExists_Pass(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "login.test.ts"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c := New(dir)
	spec := catalog.ArtifactSpec{Name: "test-file", Kind: catalog.ArtifactFileExists, Pattern: "*.test.ts"}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if !results[0].Passed {
		t.Fatalf("expected pass, got %+v", results[0])
	}
}

func TestChecker_FileExists_ZeroMatches(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	spec := catalog.ArtifactSpec{Name: "test-file", Kind: catalog.ArtifactFileExists, Pattern: "*.test.ts"}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if results[0].Passed {
		t.Fatal("expected fail on zero matches")
	}
	if results[0].Diagnostic == "" {
		t.Error("expected non-empty diagnostic naming the glob")
	}
}

func TestChecker_FileExists_DoubleStarMatchesAnyDepth(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src", "auth"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "auth", "login.test.ts"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c := New(dir)
	spec := catalog.ArtifactSpec{Name: "test-file", Kind: catalog.ArtifactFileExists, Pattern: "**/*.test.ts"}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if !results[0].Passed {
		t.Fatalf("expected pass for nested file, got %+v", results[0])
	}
}

func TestChecker_FileExists_DoubleStarMatchesRootLevel(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "login.test.ts"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c := New(dir)
	spec := catalog.ArtifactSpec{Name: "test-file", Kind: catalog.ArtifactFileExists, Pattern: "**/*.test.ts"}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if !results[0].Passed {
		t.Fatalf("expected ** to match a root-level file, got %+v", results[0])
	}
}

func TestChecker_MarkerFound_Pass(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "login.ts")
	if err := os.WriteFile(path, []byte("describe('login', () => {})"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c := New(dir)
	spec := catalog.ArtifactSpec{Name: "marker", Kind: catalog.ArtifactMarkerFound, File: "login.ts", Pattern: `describe\(`}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if !results[0].Passed {
		t.Fatalf("expected pass, got %+v", results[0])
	}
}

func TestChecker_MarkerFound_FileNotFound(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	spec := catalog.ArtifactSpec{Name: "marker", Kind: catalog.ArtifactMarkerFound, File: "missing.ts", Pattern: `x`}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if results[0].Passed {
		t.Fatal("expected fail on missing file")
	}
	if results[0].Diagnostic != "file_not_found: missing.ts" {
		t.Errorf("Diagnostic = %q, want file_not_found prefix", results[0].Diagnostic)
	}
}

func TestChecker_MarkerFound_Streamed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.log")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for i := 0; i < 70000; i++ {
		if _, err := f.WriteString("filler line that pads the file out past one meg\n"); err != nil {
			t.Fatalf("WriteString failed: %v", err)
		}
	}
	if _, err := f.WriteString("MARKER_TOKEN\n"); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	f.Close()

	c := New(dir)
	spec := catalog.ArtifactSpec{Name: "marker", Kind: catalog.ArtifactMarkerFound, File: "big.log", Pattern: `MARKER_TOKEN`}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if !results[0].Passed {
		t.Fatalf("expected pass scanning large file, got %+v", results[0])
	}
}

func TestChecker_CommandSuccess_DefaultExitCode(t *testing.T) {
	c := New(t.TempDir())
	spec := catalog.ArtifactSpec{Name: "cmd", Kind: catalog.ArtifactCommandSuccess, Command: "true"}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if !results[0].Passed {
		t.Fatalf("expected pass, got %+v", results[0])
	}
}

func TestChecker_CommandSuccess_ExpectedNonZero(t *testing.T) {
	c := New(t.TempDir())
	spec := catalog.ArtifactSpec{Name: "cmd", Kind: catalog.ArtifactCommandSuccess, Command: "exit 3", ExpectedExitCode: 3}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if !results[0].Passed {
		t.Fatalf("expected pass on matching expected exit code, got %+v", results[0])
	}
}

func TestChecker_CommandSuccess_Mismatch(t *testing.T) {
	c := New(t.TempDir())
	spec := catalog.ArtifactSpec{Name: "cmd", Kind: catalog.ArtifactCommandSuccess, Command: "exit 1"}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if results[0].Passed {
		t.Fatal("expected fail on exit code mismatch")
	}
}

func TestChecker_CommandSuccess_Timeout(t *testing.T) {
	c := New(t.TempDir())
	c.CommandTimeout = 10 * 1_000_000 // 10ms in time.Duration units (nanoseconds)
	spec := catalog.ArtifactSpec{Name: "cmd", Kind: catalog.ArtifactCommandSuccess, Command: "sleep 2"}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if results[0].Passed {
		t.Fatal("expected fail on timeout")
	}
	if results[0].Diagnostic == "" {
		t.Error("expected non-empty timeout diagnostic")
	}
}

func TestChecker_Manual_UncheckedByDefault(t *testing.T) {
	c := New(t.TempDir())
	spec := catalog.ArtifactSpec{Name: "manual-review", Kind: catalog.ArtifactManual}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if results[0].Passed {
		t.Fatal("expected manual artifact unchecked without acknowledgment")
	}
}

func TestChecker_Manual_Acknowledged(t *testing.T) {
	c := New(t.TempDir())
	c.Acknowledged = func(name string) bool { return name == "manual-review" }
	spec := catalog.ArtifactSpec{Name: "manual-review", Kind: catalog.ArtifactManual}
	results := c.Evaluate(context.Background(), []catalog.ArtifactSpec{spec})

	if !results[0].Passed {
		t.Fatal("expected pass once acknowledged")
	}
}

func TestAllPass(t *testing.T) {
	pass := []Result{{Passed: true}, {Passed: true}}
	if !AllPass(pass) {
		t.Error("expected AllPass true when every result passed")
	}

	mixed := []Result{{Passed: true}, {Passed: false}}
	if AllPass(mixed) {
		t.Error("expected AllPass false when any result failed")
	}
}

func TestChecker_SatisfiesCapability(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "login.test.ts"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	c := New(dir)
	skill := catalog.Skill{
		Name: "tdd",
		Artifacts: []catalog.ArtifactSpec{
			{Name: "test-file", Kind: catalog.ArtifactFileExists, Pattern: "*.test.ts"},
		},
	}

	ok, results := c.SatisfiesCapability(context.Background(), skill)
	if !ok {
		t.Fatalf("expected satisfied, got results %+v", results)
	}
}
