package templates

import (
	"strings"
	"testing"
)

func TestNewRenderer_Succeeds(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() failed: %v", err)
	}
	if r == nil {
		t.Fatal("NewRenderer() returned nil")
	}
}

func TestRender_Denial(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	data := DenialData{
		Intent: "write",
		Reason: "Tests must be written first",
		Skill:  "tdd",
		Capabilities: []BlockedCapability{
			{Capability: "test_written", Skill: "tdd"},
		},
		NextSkill: "tdd",
	}

	result, err := r.Render(Denial, data)
	if err != nil {
		t.Fatalf("Render(Denial) failed: %v", err)
	}

	checks := []string{
		"CHAIN ENFORCEMENT: BLOCKED",
		"Tests must be written first",
		`Skill(skill: "tdd")`,
		"test_written",
		"NEXT STEP",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("Denial output missing: %q\ngot:\n%s", check, result)
		}
	}
}

func TestRender_Denial_Advisory(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	result, err := r.Render(Denial, DenialData{Intent: "write", Reason: "r", Skill: "s", Advisory: true})
	if err != nil {
		t.Fatalf("Render(Denial) failed: %v", err)
	}
	if !strings.Contains(result, "(advisory)") {
		t.Errorf("advisory denial missing marker:\n%s", result)
	}
}

func TestRender_Denial_NoNextStepWhenNoNextSkill(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	result, err := r.Render(Denial, DenialData{Intent: "write", Reason: "r", Skill: "s"})
	if err != nil {
		t.Fatalf("Render(Denial) failed: %v", err)
	}
	if strings.Contains(result, "NEXT STEP") {
		t.Error("NEXT STEP section should not render without a NextSkill")
	}
}

func TestRender_StopBlocked(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	data := StopBlockedData{
		ProfileID: "bug-fix",
		Missing: []MissingRequirement{
			{Name: "npm test", Diagnostic: "command_error: exit code 1, expected 0"},
		},
	}

	result, err := r.Render(StopBlocked, data)
	if err != nil {
		t.Fatalf("Render(StopBlocked) failed: %v", err)
	}

	checks := []string{
		"CHAIN ENFORCEMENT: STOP BLOCKED",
		"bug-fix",
		"npm test",
		"exit code 1",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("StopBlocked output missing: %q\ngot:\n%s", check, result)
		}
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	if _, err := r.Render("nonexistent.md.tmpl", nil); err == nil {
		t.Fatal("Render(nonexistent) should fail")
	}
}

func TestEmbedRenderer_ImplementsRenderer(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	var _ Renderer = r
}
