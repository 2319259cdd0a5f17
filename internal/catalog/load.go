package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainward/chainward/internal/chainerr"
	"gopkg.in/yaml.v3"
)

// SkillsFile and ProfilesFile are the canonical catalog filenames,
// relative to the chains/ subdirectory of the working directory.
const (
	ChainsDir     = "chains"
	SkillsFile    = "skills.yaml"
	ProfilesFile  = "profiles.yaml"
	defaultVersion = "1.0"
)

// SkillsPath returns the absolute path to chains/skills.yaml.
func SkillsPath(workDir string) string {
	return filepath.Join(workDir, ChainsDir, SkillsFile)
}

// ProfilesPath returns the absolute path to chains/profiles.yaml.
func ProfilesPath(workDir string) string {
	return filepath.Join(workDir, ChainsDir, ProfilesFile)
}

// skillsDocument is the on-disk shape of chains/skills.yaml.
type skillsDocument struct {
	Version string  `yaml:"version"`
	Skills  []Skill `yaml:"skills"`
}

// profilesDocument is the on-disk shape of chains/profiles.yaml.
type profilesDocument struct {
	Version  string    `yaml:"version"`
	Profiles []Profile `yaml:"profiles"`
}

// Load reads and validates both catalogs from workDir/chains/ and
// returns a read-only Library. Any schema or invariant violation
// across either document is aggregated into a single spec_invalid
// error so the operator sees every offending field in one pass.
func Load(workDir string) (*Library, error) {
	skillsData, err := os.ReadFile(SkillsPath(workDir))
	if err != nil {
		return nil, chainerr.Wrap(chainerr.SpecInvalid, err, "reading "+SkillsFile)
	}
	profilesData, err := os.ReadFile(ProfilesPath(workDir))
	if err != nil {
		return nil, chainerr.Wrap(chainerr.SpecInvalid, err, "reading "+ProfilesFile)
	}
	return LoadBytes(skillsData, profilesData)
}

// LoadBytes parses and validates catalog documents already in memory —
// the path used by tests and by any caller that fetches the catalogs
// from somewhere other than the filesystem.
func LoadBytes(skillsYAML, profilesYAML []byte) (*Library, error) {
	var sdoc skillsDocument
	if err := yaml.Unmarshal(skillsYAML, &sdoc); err != nil {
		return nil, chainerr.Wrap(chainerr.SpecInvalid, err, "parsing "+SkillsFile)
	}
	var pdoc profilesDocument
	if err := yaml.Unmarshal(profilesYAML, &pdoc); err != nil {
		return nil, chainerr.Wrap(chainerr.SpecInvalid, err, "parsing "+ProfilesFile)
	}

	normalizeSkills(&sdoc)
	normalizeProfiles(&pdoc)

	var problems []string
	problems = append(problems, validateSkills(sdoc.Skills)...)
	problems = append(problems, validateProfiles(pdoc.Profiles)...)

	if len(problems) > 0 {
		err := chainerr.Newf(chainerr.SpecInvalid, "catalog validation failed with %d problem(s): %s",
			len(problems), strings.Join(problems, "; "))
		for i, p := range problems {
			err.With(fmt.Sprintf("problem_%d", i), p)
		}
		return nil, err
	}

	lib := &Library{
		SkillsVersion:   sdoc.Version,
		ProfilesVersion: pdoc.Version,
		skills:          make(map[string]Skill, len(sdoc.Skills)),
		profiles:        make(map[string]Profile, len(pdoc.Profiles)),
	}
	for _, s := range sdoc.Skills {
		lib.skills[s.Name] = s
		lib.skillOrder = append(lib.skillOrder, s.Name)
	}
	for _, p := range pdoc.Profiles {
		lib.profiles[p.Name] = p
		lib.profileOrder = append(lib.profileOrder, p.Name)
	}
	return lib, nil
}

func normalizeSkills(doc *skillsDocument) {
	if doc.Version == "" {
		doc.Version = defaultVersion
	}
	for i := range doc.Skills {
		s := &doc.Skills[i]
		if s.Risk == "" {
			s.Risk = RiskMedium
		}
		if s.Cost == "" {
			s.Cost = CostMedium
		}
		if s.Provides == nil {
			s.Provides = []Capability{}
		}
		if s.Requires == nil {
			s.Requires = []Capability{}
		}
		if s.Conflicts == nil {
			s.Conflicts = []string{}
		}
		if s.Artifacts == nil {
			s.Artifacts = []ArtifactSpec{}
		}
	}
}

func normalizeProfiles(doc *profilesDocument) {
	if doc.Version == "" {
		doc.Version = defaultVersion
	}
	for i := range doc.Profiles {
		p := &doc.Profiles[i]
		if p.Strictness == "" {
			p.Strictness = StrictnessStrict
		}
		if p.Match == nil {
			p.Match = []string{}
		}
		if p.CapabilitiesRequired == nil {
			p.CapabilitiesRequired = []Capability{}
		}
		if p.CompletionRequirements == nil {
			p.CompletionRequirements = []ArtifactSpec{}
		}
	}
}

func validateSkills(skills []Skill) []string {
	var problems []string
	seen := make(map[string]bool, len(skills))

	for _, s := range skills {
		if s.Name == "" {
			problems = append(problems, "skill with empty name")
			continue
		}
		if seen[s.Name] {
			problems = append(problems, fmt.Sprintf("duplicate skill name %q", s.Name))
		}
		seen[s.Name] = true

		if !validRisk(s.Risk) {
			problems = append(problems, fmt.Sprintf("skill %q: invalid risk %q", s.Name, s.Risk))
		}
		if !validCost(s.Cost) {
			problems = append(problems, fmt.Sprintf("skill %q: invalid cost %q", s.Name, s.Cost))
		}
		for _, conflict := range s.Conflicts {
			if conflict == s.Name {
				problems = append(problems, fmt.Sprintf("skill %q: conflicts with itself", s.Name))
			}
		}
		if shared := intersects(capabilitySet(s.Provides), capabilitySet(s.Requires)); len(shared) > 0 {
			problems = append(problems, fmt.Sprintf("skill %q: provides and requires overlap on %s", s.Name, fmtCapabilities(shared)))
		}
		for _, a := range s.Artifacts {
			if !validArtifactKind(a.Kind) {
				problems = append(problems, fmt.Sprintf("skill %q: artifact %q has invalid type %q", s.Name, a.Name, a.Kind))
			}
		}
		if s.ToolPolicy != nil {
			for intent := range s.ToolPolicy.DenyUntil {
				if !validIntent(intent) {
					problems = append(problems, fmt.Sprintf("skill %q: tool_policy has invalid intent %q", s.Name, intent))
				}
			}
		}
	}
	return problems
}

func validateProfiles(profiles []Profile) []string {
	var problems []string
	seen := make(map[string]bool, len(profiles))

	for _, p := range profiles {
		if p.Name == "" {
			problems = append(problems, "profile with empty name")
			continue
		}
		if seen[p.Name] {
			problems = append(problems, fmt.Sprintf("duplicate profile name %q", p.Name))
		}
		seen[p.Name] = true

		if !validStrictness(p.Strictness) {
			problems = append(problems, fmt.Sprintf("profile %q: invalid strictness %q", p.Name, p.Strictness))
		}
		for _, a := range p.CompletionRequirements {
			if !validArtifactKind(a.Kind) {
				problems = append(problems, fmt.Sprintf("profile %q: completion requirement %q has invalid type %q", p.Name, a.Name, a.Kind))
			}
		}
	}
	return problems
}
