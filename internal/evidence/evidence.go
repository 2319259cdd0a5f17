// Package evidence implements the evidence checker: it evaluates
// ArtifactSpec predicates against the filesystem and
// subprocess results, and reduces a skill's artifacts into a single
// capability-satisfied verdict.
package evidence

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/chainward/chainward/internal/catalog"
	"github.com/dustin/go-humanize"
)

// Result is the outcome of evaluating a single ArtifactSpec.
type Result struct {
	Artifact   catalog.ArtifactSpec
	Passed     bool
	Diagnostic string
}

// Checker evaluates artifacts against a working directory.
type Checker struct {
	WorkDir        string
	CommandTimeout time.Duration
	// Acknowledged reports whether a manual artifact has been recorded
	// as acknowledged in session state. Injected so the checker doesn't
	// import the session package (keeps the dependency graph a DAG:
	// session depends on catalog, evidence depends on catalog, the
	// activator/gate wire them together).
	Acknowledged func(artifactName string) bool
}

// New creates a Checker with the default 30s command timeout.
func New(workDir string) *Checker {
	return &Checker{WorkDir: workDir, CommandTimeout: 30 * time.Second}
}

// Evaluate runs every artifact in specs and returns one Result per spec.
func (c *Checker) Evaluate(ctx context.Context, specs []catalog.ArtifactSpec) []Result {
	results := make([]Result, len(specs))
	for i, spec := range specs {
		results[i] = c.evaluateOne(ctx, spec)
	}
	return results
}

// AllPass reports whether every result in results passed.
func AllPass(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func (c *Checker) evaluateOne(ctx context.Context, spec catalog.ArtifactSpec) Result {
	switch spec.Kind {
	case catalog.ArtifactFileExists:
		return c.checkFileExists(spec)
	case catalog.ArtifactMarkerFound:
		return c.checkMarkerFound(spec)
	case catalog.ArtifactCommandSuccess:
		return c.checkCommandSuccess(ctx, spec)
	case catalog.ArtifactManual:
		return c.checkManual(spec)
	default:
		return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("unknown artifact type %q", spec.Kind)}
	}
}

func (c *Checker) checkFileExists(spec catalog.ArtifactSpec) Result {
	var (
		matches int
		err     error
	)
	if strings.Contains(spec.Pattern, "**") {
		matches, err = globRecursive(c.WorkDir, spec.Pattern)
	} else {
		var found []string
		found, err = filepath.Glob(filepath.Join(c.WorkDir, spec.Pattern))
		matches = len(found)
	}
	if err != nil {
		return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("invalid glob %q: %v", spec.Pattern, err)}
	}
	if matches == 0 {
		return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("no files matched glob %q", spec.Pattern)}
	}
	return Result{Artifact: spec, Passed: true, Diagnostic: fmt.Sprintf("matched %d file(s)", matches)}
}

// globRecursive counts files under root whose relative path matches a
// pattern containing ** segments. filepath.Glob has no recursive
// wildcard, and skill artifacts lean on "**/*.test.ts"-style patterns,
// so ** is matched here as zero or more path segments.
func globRecursive(root, pattern string) (int, error) {
	segments := strings.Split(filepath.ToSlash(pattern), "/")
	matches := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		ok, merr := matchSegments(segments, strings.Split(filepath.ToSlash(rel), "/"))
		if merr != nil {
			return merr
		}
		if ok {
			matches++
		}
		return nil
	})
	return matches, err
}

func matchSegments(pattern, parts []string) (bool, error) {
	if len(pattern) == 0 {
		return len(parts) == 0, nil
	}
	if pattern[0] == "**" {
		for skip := 0; skip <= len(parts); skip++ {
			ok, err := matchSegments(pattern[1:], parts[skip:])
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	if len(parts) == 0 {
		return false, nil
	}
	ok, err := filepath.Match(pattern[0], parts[0])
	if err != nil || !ok {
		return false, err
	}
	return matchSegments(pattern[1:], parts[1:])
}

// maxMarkerScanBytes bounds how much of a marker_found file is read
// into memory at once; larger files are scanned line-by-line.
const maxMarkerScanBytes = 1 << 20 // 1 MiB

// commandKillGrace is how long a command_success subprocess gets between
// SIGTERM and the forceful SIGKILL once its deadline expires.
const commandKillGrace = 5 * time.Second

func (c *Checker) checkMarkerFound(spec catalog.ArtifactSpec) Result {
	path := filepath.Join(c.WorkDir, spec.File)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Artifact: spec, Passed: false, Diagnostic: "file_not_found: " + spec.File}
		}
		return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("stat %s: %v", spec.File, err)}
	}

	re, err := regexp.Compile(spec.Pattern)
	if err != nil {
		return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("invalid pattern %q: %v", spec.Pattern, err)}
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("opening %s: %v", spec.File, err)}
	}
	defer f.Close()

	if info.Size() <= maxMarkerScanBytes {
		data := make([]byte, info.Size())
		if _, err := io.ReadFull(f, data); err != nil {
			return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("reading %s: %v", spec.File, err)}
		}
		if re.Match(data) {
			return Result{Artifact: spec, Passed: true, Diagnostic: fmt.Sprintf("pattern matched in %s (%s)", spec.File, humanize.Bytes(uint64(info.Size())))}
		}
		return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("pattern %q not found in %s", spec.Pattern, spec.File)}
	}

	// Stream large files line by line rather than loading them whole.
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		if re.Match(scanner.Bytes()) {
			return Result{Artifact: spec, Passed: true, Diagnostic: fmt.Sprintf("pattern matched in %s (streamed, %s)", spec.File, humanize.Bytes(uint64(info.Size())))}
		}
	}
	return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("pattern %q not found in %s (streamed, %s)", spec.Pattern, spec.File, humanize.Bytes(uint64(info.Size())))}
}

func (c *Checker) checkCommandSuccess(ctx context.Context, spec catalog.ArtifactSpec) Result {
	timeout := c.CommandTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "sh", "-c", spec.Command)
	cmd.Dir = c.WorkDir
	// On context cancellation, exec.Cmd defaults to an immediate SIGKILL.
	// The subprocess gets SIGTERM first, with a grace interval before the
	// forceful kill.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = commandKillGrace

	err := cmd.Run()
	if cctx.Err() == context.DeadlineExceeded {
		return Result{Artifact: spec, Passed: false, Diagnostic: "command_error: timeout after " + timeout.String()}
	}

	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("command_error: could not spawn: %v", err)}
		}
		exitCode = exitErr.ExitCode()
	}

	want := spec.ExpectedExitCode
	if want == 0 && exitCode == 0 {
		return Result{Artifact: spec, Passed: true, Diagnostic: "exit code 0 as expected"}
	}
	if exitCode == want {
		return Result{Artifact: spec, Passed: true, Diagnostic: fmt.Sprintf("exit code %d as expected", exitCode)}
	}
	return Result{Artifact: spec, Passed: false, Diagnostic: fmt.Sprintf("exit code %d, expected %d", exitCode, want)}
}

func (c *Checker) checkManual(spec catalog.ArtifactSpec) Result {
	if c.Acknowledged != nil && c.Acknowledged(spec.Name) {
		return Result{Artifact: spec, Passed: true, Diagnostic: "manually acknowledged"}
	}
	return Result{Artifact: spec, Passed: false, Diagnostic: "unchecked: requires manual acknowledgment"}
}

// SatisfiesCapability reduces a skill's artifacts into a pass/fail for
// the capability it provides: every declared artifact of the
// earliest-in-chain provider skill must pass.
func (c *Checker) SatisfiesCapability(ctx context.Context, skill catalog.Skill) (bool, []Result) {
	results := c.Evaluate(ctx, skill.Artifacts)
	return AllPass(results), results
}
