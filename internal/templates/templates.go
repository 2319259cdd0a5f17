// Package templates renders the structured markdown payloads the
// policy gate prints on denial and on a blocked session-stop.
// Rendering is isolated here so the gate itself stays free of
// string-building.
package templates

import (
	"strings"
	"text/template"
)

// Name identifies a template registered with a Renderer.
type Name string

const (
	Denial      Name = "denial.md.tmpl"
	StopBlocked Name = "stop_blocked.md.tmpl"
)

// Renderer renders a named template against arbitrary data.
type Renderer interface {
	Render(name Name, data any) (string, error)
}

// BlockedCapability names one unsatisfied capability standing between
// the caller and an allowed intent.
type BlockedCapability struct {
	Capability string
	Skill      string
}

// DenialData feeds the Denial template.
type DenialData struct {
	Intent       string
	Reason       string
	Skill        string
	Capabilities []BlockedCapability
	NextSkill    string
	NextStep     string
	Advisory     bool
}

// MissingRequirement names one failed completion_requirements artifact.
type MissingRequirement struct {
	Name       string
	Diagnostic string
}

// StopBlockedData feeds the StopBlocked template.
type StopBlockedData struct {
	ProfileID string
	Missing   []MissingRequirement
}

const denialTmpl = `# CHAIN ENFORCEMENT: BLOCKED
{{- if .Advisory }} (advisory)
{{- end }}

**Intent:** {{ .Intent }}
**Reason:** {{ .Reason }}
**Skill(skill: "{{ .Skill }}")**

## Unsatisfied Capabilities
{{ range .Capabilities -}}
- {{ .Capability }} (provided by: {{ .Skill }})
{{ end -}}
{{ if .NextSkill }}
## NEXT STEP
Run skill **{{ .NextSkill }}**.
{{- if .NextStep }} {{ .NextStep }}{{ end }}
{{ end -}}
`

const stopBlockedTmpl = `# CHAIN ENFORCEMENT: STOP BLOCKED

**Profile:** {{ .ProfileID }}

## Missing Completion Requirements
{{ range .Missing -}}
- {{ .Name }}: {{ .Diagnostic }}
{{ end -}}
`

// embedRenderer holds the parsed template set: one renderer backing
// every gate payload kind.
type embedRenderer struct {
	tmpl *template.Template
}

// NewRenderer parses the built-in templates once; callers should reuse
// the returned Renderer rather than constructing a new one per call.
func NewRenderer() (*embedRenderer, error) {
	t := template.New("templates")
	t, err := t.New(string(Denial)).Parse(denialTmpl)
	if err != nil {
		return nil, err
	}
	if _, err := t.New(string(StopBlocked)).Parse(stopBlockedTmpl); err != nil {
		return nil, err
	}
	return &embedRenderer{tmpl: t}, nil
}

// Render executes the named template against data and returns the
// rendered markdown exactly as the template produced it.
func (r *embedRenderer) Render(name Name, data any) (string, error) {
	var buf strings.Builder
	if err := r.tmpl.ExecuteTemplate(&buf, string(name), data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
