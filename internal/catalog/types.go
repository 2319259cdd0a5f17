// Package catalog loads and validates the skills and profiles catalogs
// that drive the workflow enforcement core, and holds the data types
// shared by every other component: Capability, ArtifactSpec, Skill,
// Profile.
//
// Design principles:
// - SRP: types, defaults, and loading in separate files
// - DIP: the resolver, gate, and activator depend on Library, not on
//   the YAML documents themselves
package catalog

// Capability is an opaque token denoting a unit of demonstrated
// progress (e.g. "test_written", "test_green"). It is never declared
// on its own — it exists by virtue of appearing in a Skill's Provides,
// Requires, a DenyUntil.Until, or a Profile's CapabilitiesRequired.
type Capability string

// Risk ranks a skill's blast radius. Ordered low < medium < high < critical.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskMedium   Risk = "medium"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

var riskRank = map[Risk]int{
	RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3,
}

// Less reports whether r ranks below other (lower risk sorts first).
func (r Risk) Less(other Risk) bool { return riskRank[r] < riskRank[other] }

// Cost ranks a skill's resource cost. Ordered low < medium < high.
type Cost string

const (
	CostLow    Cost = "low"
	CostMedium Cost = "medium"
	CostHigh   Cost = "high"
)

var costRank = map[Cost]int{
	CostLow: 0, CostMedium: 1, CostHigh: 2,
}

// Less reports whether c ranks below other (lower cost sorts first).
func (c Cost) Less(other Cost) bool { return costRank[c] < costRank[other] }

// Strictness governs how the policy gate behaves on a denied intent.
type Strictness string

const (
	// StrictnessStrict blocks the tool invocation.
	StrictnessStrict Strictness = "strict"
	// StrictnessAdvisory allows but emits a warning denial payload.
	StrictnessAdvisory Strictness = "advisory"
	// StrictnessPermissive never blocks.
	StrictnessPermissive Strictness = "permissive"
)

// Intent is a coarse classification of a tool invocation.
type Intent string

const (
	IntentRead   Intent = "read"
	IntentWrite  Intent = "write"
	IntentEdit   Intent = "edit"
	IntentCommit Intent = "commit"
	IntentPush   Intent = "push"
	IntentDeploy Intent = "deploy"
	IntentDelete Intent = "delete"
	IntentRun    Intent = "run"
)

// ArtifactKind discriminates ArtifactSpec variants.
type ArtifactKind string

const (
	ArtifactFileExists     ArtifactKind = "file_exists"
	ArtifactMarkerFound    ArtifactKind = "marker_found"
	ArtifactCommandSuccess ArtifactKind = "command_success"
	ArtifactManual         ArtifactKind = "manual"
)

// ArtifactSpec is a named, typed predicate the evidence checker
// evaluates. Only the fields relevant to Kind are populated; unused
// fields are simply left zero.
type ArtifactSpec struct {
	Name   string       `yaml:"name" json:"name"`
	Kind   ArtifactKind `yaml:"type" json:"type"`
	// Pattern is a glob for file_exists, a regex for marker_found.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	// File is the target path for marker_found.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
	// Command is the shell command for command_success.
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	// ExpectedExitCode defaults to 0 for command_success.
	ExpectedExitCode int `yaml:"expected_exit_code,omitempty" json:"expected_exit_code,omitempty"`
}

// DenyUntilRule says: an invocation mapping to Intent is denied until
// Until appears in the session's satisfied-capability set.
type DenyUntilRule struct {
	Until  Capability `yaml:"until" json:"until"`
	Reason string     `yaml:"reason" json:"reason"`
}

// ToolPolicy is a skill's contribution to the gate's blocked-intents set.
type ToolPolicy struct {
	DenyUntil map[Intent]DenyUntilRule `yaml:"deny_until,omitempty" json:"deny_until,omitempty"`
}

// Skill is a reusable workflow unit.
type Skill struct {
	Name        string                `yaml:"name" json:"name"`
	SkillPath   string                `yaml:"skill_path" json:"skill_path"`
	Description string                `yaml:"description,omitempty" json:"description,omitempty"`
	Provides    []Capability          `yaml:"provides" json:"provides"`
	Requires    []Capability          `yaml:"requires" json:"requires"`
	Conflicts   []string              `yaml:"conflicts" json:"conflicts"`
	Risk        Risk                  `yaml:"risk" json:"risk"`
	Cost        Cost                  `yaml:"cost" json:"cost"`
	Artifacts   []ArtifactSpec        `yaml:"artifacts" json:"artifacts"`
	ToolPolicy  *ToolPolicy           `yaml:"tool_policy,omitempty" json:"tool_policy,omitempty"`
}

// ProvidesCapability reports whether the skill provides c.
func (s Skill) ProvidesCapability(c Capability) bool {
	for _, p := range s.Provides {
		if p == c {
			return true
		}
	}
	return false
}

// Profile is a concrete workflow selection.
type Profile struct {
	Name                  string         `yaml:"name" json:"name"`
	Description           string         `yaml:"description,omitempty" json:"description,omitempty"`
	Match                 []string       `yaml:"match" json:"match"`
	CapabilitiesRequired  []Capability   `yaml:"capabilities_required" json:"capabilities_required"`
	Strictness            Strictness     `yaml:"strictness" json:"strictness"`
	Priority              int            `yaml:"priority" json:"priority"`
	CompletionRequirements []ArtifactSpec `yaml:"completion_requirements" json:"completion_requirements"`
}

// Library is the read-only, validated view of both catalogs — the
// only thing the resolver, gate, router, and activator depend on.
// Any mutation requires a fresh Load.
type Library struct {
	SkillsVersion   string
	ProfilesVersion string
	skills          map[string]Skill
	skillOrder      []string
	profiles        map[string]Profile
	profileOrder    []string
}

// Skill returns the named skill and whether it exists.
func (l *Library) Skill(name string) (Skill, bool) {
	s, ok := l.skills[name]
	return s, ok
}

// Skills returns all skills in catalog-declared order.
func (l *Library) Skills() []Skill {
	out := make([]Skill, 0, len(l.skillOrder))
	for _, name := range l.skillOrder {
		out = append(out, l.skills[name])
	}
	return out
}

// Profile returns the named profile and whether it exists.
func (l *Library) Profile(name string) (Profile, bool) {
	p, ok := l.profiles[name]
	return p, ok
}

// Profiles returns all profiles in catalog-declared order.
func (l *Library) Profiles() []Profile {
	out := make([]Profile, 0, len(l.profileOrder))
	for _, name := range l.profileOrder {
		out = append(out, l.profiles[name])
	}
	return out
}

// ProvidersOf returns every skill in the library that provides c, in
// catalog-declared order (callers apply their own tie-break).
func (l *Library) ProvidersOf(c Capability) []Skill {
	var out []Skill
	for _, name := range l.skillOrder {
		if l.skills[name].ProvidesCapability(c) {
			out = append(out, l.skills[name])
		}
	}
	return out
}

func (s ArtifactKind) String() string { return string(s) }

func validIntent(i Intent) bool {
	switch i {
	case IntentRead, IntentWrite, IntentEdit, IntentCommit, IntentPush, IntentDeploy, IntentDelete, IntentRun:
		return true
	}
	return false
}

func validStrictness(s Strictness) bool {
	switch s {
	case StrictnessStrict, StrictnessAdvisory, StrictnessPermissive:
		return true
	}
	return false
}

func validRisk(r Risk) bool {
	_, ok := riskRank[r]
	return ok
}

func validCost(c Cost) bool {
	_, ok := costRank[c]
	return ok
}

func validArtifactKind(k ArtifactKind) bool {
	switch k {
	case ArtifactFileExists, ArtifactMarkerFound, ArtifactCommandSuccess, ArtifactManual:
		return true
	}
	return false
}

func capabilitySet(caps []Capability) map[Capability]bool {
	out := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		out[c] = true
	}
	return out
}

func intersects(a, b map[Capability]bool) []Capability {
	var shared []Capability
	for c := range a {
		if b[c] {
			shared = append(shared, c)
		}
	}
	return shared
}

func fmtCapabilities(caps []Capability) string {
	if len(caps) == 0 {
		return "(none)"
	}
	s := ""
	for i, c := range caps {
		if i > 0 {
			s += ", "
		}
		s += string(c)
	}
	return s
}
