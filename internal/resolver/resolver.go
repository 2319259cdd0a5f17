// Package resolver implements the skill graph resolver: given a
// profile's required capabilities and a skill library, it
// produces a topologically ordered chain satisfying every requirement,
// or fails with a structured resolution_failure error.
//
// The resolver is a pure function over (Library, []Capability) — no
// I/O, no package-level state — so it is fully exercised by unit
// tests without a filesystem.
package resolver

import (
	"fmt"
	"sort"

	"github.com/chainward/chainward/internal/catalog"
	"github.com/chainward/chainward/internal/chainerr"
)

// Result is the output of a successful resolution.
type Result struct {
	// Chain is the topologically sorted list of active skill names —
	// the order clients may display.
	Chain []string
	// CapabilitiesRequired echoes the input requirement set.
	CapabilitiesRequired []catalog.Capability
	// BlockedIntents is the union, over active skills, of every
	// deny_until entry whose Until capability is not in AlreadySatisfied,
	// keyed by intent with the first-encountered reason (chain order).
	BlockedIntents map[catalog.Intent]BlockedIntent
	// Diagnostics carries non-fatal notes about the resolution (currently
	// unused by any path but kept so callers have a stable field to
	// append operator-facing notes to without changing the Result shape).
	Diagnostics []string
}

// BlockedIntent pairs a denial reason with the skill that produced it.
type BlockedIntent struct {
	Reason       string
	Skill        string
	UntilCapability catalog.Capability
}

// Resolve computes the Result for the given required capabilities
// against lib. alreadySatisfied (may be nil) is folded into the
// blocked-intents computation so a fresh resolution against a session
// that already has some capabilities satisfied doesn't report them as
// blocking.
func Resolve(lib *catalog.Library, required []catalog.Capability, alreadySatisfied map[catalog.Capability]bool) (*Result, error) {
	active := make(map[string]catalog.Skill) // selected skill name -> skill

	var visit func(c catalog.Capability, path []catalog.Capability) error
	visit = func(c catalog.Capability, path []catalog.Capability) error {
		if alreadySatisfied[c] {
			return nil
		}
		candidates := lib.ProvidersOf(c)
		if len(candidates) == 0 {
			return chainerr.Newf(chainerr.ResolutionFailure, "missing_provider(%s)", c).With("capability", string(c))
		}

		winner := pickWinner(candidates)
		if _, already := active[winner.Name]; already {
			return nil
		}

		// Cycle check: if c already appears in the current
		// capability-resolution path, we have a cycle through requires.
		for _, p := range path {
			if p == c {
				return chainerr.Newf(chainerr.ResolutionFailure, "cycle(%s)", capabilityPath(append(path, c))).With("capability", string(c))
			}
		}

		active[winner.Name] = winner

		for _, req := range winner.Requires {
			if err := visit(req, append(path, c)); err != nil {
				return err
			}
		}
		return nil
	}

	for _, c := range required {
		if err := visit(c, nil); err != nil {
			return nil, err
		}
	}

	if err := checkConflicts(active); err != nil {
		return nil, err
	}

	chain, err := topoSort(active)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Chain:                chain,
		CapabilitiesRequired: required,
		BlockedIntents:       blockedIntents(lib, chain, alreadySatisfied),
	}
	return result, nil
}

// CompareCandidates implements the deterministic provider tie-break:
// (a) fewer unresolved requires, (b) lower risk,
// (c) lower cost, (d) lexicographic name. It returns true if a sorts
// before b (a is preferred). Exported so tests and the activator can
// assert on "first" without re-deriving the ordering from Resolve's
// output alone.
func CompareCandidates(a, b catalog.Skill, alreadySatisfied map[catalog.Capability]bool) bool {
	ua, ub := unresolvedCount(a, alreadySatisfied), unresolvedCount(b, alreadySatisfied)
	if ua != ub {
		return ua < ub
	}
	if a.Risk != b.Risk {
		return a.Risk.Less(b.Risk)
	}
	if a.Cost != b.Cost {
		return a.Cost.Less(b.Cost)
	}
	return a.Name < b.Name
}

func unresolvedCount(s catalog.Skill, alreadySatisfied map[catalog.Capability]bool) int {
	n := 0
	for _, r := range s.Requires {
		if !alreadySatisfied[r] {
			n++
		}
	}
	return n
}

// pickWinner selects the winning provider purely via CompareCandidates's
// four-key tie-break. It does not special-case a
// candidate that happens to already be active for another capability —
// that would let incidental activation order override the documented
// risk/cost/name ordering.
func pickWinner(candidates []catalog.Skill) catalog.Skill {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if CompareCandidates(c, best, nil) {
			best = c
		}
	}
	return best
}

func checkConflicts(active map[string]catalog.Skill) error {
	names := make([]string, 0, len(active))
	for n := range active {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, x := range names {
		for _, conflictName := range active[x].Conflicts {
			if _, ok := active[conflictName]; ok {
				return chainerr.Newf(chainerr.ResolutionFailure, "conflict(%s, %s)", x, conflictName).
					With("skill_a", x).With("skill_b", conflictName)
			}
		}
	}
	return nil
}

// topoSort produces a Kahn's-algorithm topological order over the
// induced requires-subgraph of active skills. Within a topological
// layer (no dependency edges between the ready nodes), ties are broken
// by CompareCandidates so the order is total and stable.
func topoSort(active map[string]catalog.Skill) ([]string, error) {
	inDegree := make(map[string]int, len(active))
	dependents := make(map[string][]string, len(active)) // provider -> dependents needing it

	for name := range active {
		inDegree[name] = 0
	}
	for name, skill := range active {
		for _, req := range skill.Requires {
			for _, provider := range active {
				if provider.ProvidesCapability(req) {
					if _, ok := active[provider.Name]; ok {
						dependents[provider.Name] = append(dependents[provider.Name], name)
						inDegree[name]++
					}
				}
			}
		}
	}

	var ready []string
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}

	var chain []string
	remaining := len(active)
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return CompareCandidates(active[ready[i]], active[ready[j]], nil)
		})
		next := ready[0]
		ready = ready[1:]
		chain = append(chain, next)
		remaining--

		for _, dep := range dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if remaining > 0 {
		var stuck []string
		for name, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, chainerr.Newf(chainerr.ResolutionFailure, "cycle(%v)", stuck).With("skills", fmt.Sprint(stuck))
	}

	return chain, nil
}

// RecomputeBlockedIntents re-derives blocked_intents for an already
// resolved chain against an updated satisfied set. It is the same
// computation Resolve uses for the initial set, exported so callers
// can re-run it without re-resolving the whole chain.
func RecomputeBlockedIntents(lib *catalog.Library, chain []string, satisfied map[catalog.Capability]bool) map[catalog.Intent]BlockedIntent {
	return blockedIntents(lib, chain, satisfied)
}

// blockedIntents computes the initial blocked-intents set: the union,
// over active skills in chain order, of every deny_until entry whose
// Until capability is not already satisfied. The first skill in chain
// order to declare a deny_until for a given intent wins the reason.
func blockedIntents(lib *catalog.Library, chain []string, alreadySatisfied map[catalog.Capability]bool) map[catalog.Intent]BlockedIntent {
	blocked := make(map[catalog.Intent]BlockedIntent)
	for _, name := range chain {
		skill, ok := lib.Skill(name)
		if !ok || skill.ToolPolicy == nil {
			continue
		}
		for intent, rule := range skill.ToolPolicy.DenyUntil {
			if alreadySatisfied[rule.Until] {
				continue
			}
			if _, already := blocked[intent]; already {
				continue
			}
			blocked[intent] = BlockedIntent{Reason: rule.Reason, Skill: name, UntilCapability: rule.Until}
		}
	}
	return blocked
}

func capabilityPath(path []catalog.Capability) string {
	s := ""
	for i, c := range path {
		if i > 0 {
			s += " -> "
		}
		s += string(c)
	}
	return s
}
