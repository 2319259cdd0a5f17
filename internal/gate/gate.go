package gate

import (
	"context"
	"time"

	"github.com/chainward/chainward/internal/catalog"
	"github.com/chainward/chainward/internal/chainerr"
	"github.com/chainward/chainward/internal/evidence"
	"github.com/chainward/chainward/internal/resolver"
	"github.com/chainward/chainward/internal/session"
	"github.com/chainward/chainward/internal/templates"
)

// Decision is the gate's allow/deny verdict for a single tool
// invocation or a session-stop signal.
type Decision struct {
	Allow          bool
	Advisory       bool
	BlockedIntents []catalog.Intent
	Payload        string
}

// RecordedDecision is the observability-log shape of one gate
// verdict. It carries no SQL or storage detail so the gate stays
// decoupled from the concrete audit backend.
type RecordedDecision struct {
	SessionID string
	RequestID string
	ProfileID string
	ToolName  string
	Intent    string
	Outcome   string
	Reason    string
	Skill     string
}

// Recorder persists a RecordedDecision. A nil Recorder on Gate disables
// recording entirely — useful for tests that don't care about the log.
type Recorder interface {
	Record(d RecordedDecision) error
}

// Gate composes the session store, the evidence checker, a template
// renderer, and an optional decision recorder into the allow/deny
// decision for a pending tool invocation.
type Gate struct {
	Store    session.Store
	Checker  *evidence.Checker
	Renderer templates.Renderer
	Recorder Recorder
}

// New builds a Gate from its collaborators. recorder may be nil.
func New(store session.Store, checker *evidence.Checker, renderer templates.Renderer, recorder Recorder) *Gate {
	return &Gate{Store: store, Checker: checker, Renderer: renderer, Recorder: recorder}
}

func (g *Gate) record(d RecordedDecision) {
	if g.Recorder == nil {
		return
	}
	// Recording failures never surface as policy failures — an audit
	// backend outage must not change what the gate allows or denies.
	_ = g.Recorder.Record(d)
}

// Evaluate decides whether tc is allowed against the session currently
// active in workDir. strictness is the profile's strictness, already
// resolved with any CHAIN_STRICTNESS_OVERRIDE applied by the caller.
// A working directory with no active session always allows — there is
// no workflow to enforce.
func (g *Gate) Evaluate(workDir string, tc ToolCall, lib *catalog.Library, strictness catalog.Strictness) (*Decision, error) {
	s, err := g.Store.LoadCurrent(workDir)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return &Decision{Allow: true}, nil
	}

	intents := ClassifyIntents(tc)
	blocked := intersectBlocked(intents, s.BlockedIntents)
	if len(blocked) == 0 {
		g.record(RecordedDecision{SessionID: s.SessionID, ProfileID: s.ProfileID, ToolName: tc.Name, Outcome: "allow"})
		return &Decision{Allow: true}, nil
	}

	if strictness == catalog.StrictnessPermissive {
		g.record(RecordedDecision{
			SessionID: s.SessionID, ProfileID: s.ProfileID, ToolName: tc.Name,
			Intent: string(blocked[0]), Outcome: "allow", Reason: "permissive strictness",
		})
		return &Decision{Allow: true, Advisory: false, BlockedIntents: blocked}, nil
	}

	payload, err := g.renderDenial(lib, s, blocked, strictness == catalog.StrictnessAdvisory)
	if err != nil {
		return nil, chainerr.Wrap(chainerr.SpecInvalid, err, "rendering denial payload")
	}

	advisory := strictness == catalog.StrictnessAdvisory
	primary := s.BlockedIntents[blocked[0]]
	outcome := "deny"
	if advisory {
		outcome = "advisory"
	}
	g.record(RecordedDecision{
		SessionID: s.SessionID, ProfileID: s.ProfileID, ToolName: tc.Name,
		Intent: string(blocked[0]), Outcome: outcome, Reason: primary.Reason, Skill: primary.Skill,
	})
	return &Decision{
		Allow:          advisory,
		Advisory:       advisory,
		BlockedIntents: blocked,
		Payload:        payload,
	}, nil
}

// RefreshEvidence re-checks every required capability not yet recorded
// as satisfied, against the earliest chain skill that provides it
// (evidence is re-evaluated on every hook invocation, not
// just once at activation). Newly-passing capabilities are recorded
// monotonically on the session, blocked_intents is recomputed from the
// updated satisfied set, and the result is persisted before Evaluate
// runs its allow/deny check. A working directory with no active
// session is a no-op.
func (g *Gate) RefreshEvidence(ctx context.Context, workDir string, lib *catalog.Library) error {
	s, err := g.Store.LoadCurrent(workDir)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}

	satisfied := s.SatisfiedSet()
	changed := false

	for _, cap := range s.CapabilitiesRequired {
		if satisfied[cap] {
			continue
		}
		providerName := chainProviderOf(lib, s.Chain, cap)
		if providerName == "" {
			continue
		}
		skill, ok := lib.Skill(providerName)
		if !ok {
			continue
		}

		passed, _ := g.Checker.SatisfiesCapability(ctx, skill)
		if !passed {
			continue
		}

		s.MarkSatisfied(cap, providerName, time.Now().UTC().Format(time.RFC3339))
		satisfied[cap] = true
		changed = true
	}

	if !changed {
		return nil
	}

	s.BlockedIntents = toSessionBlockedIntents(resolver.RecomputeBlockedIntents(lib, s.Chain, satisfied))
	return g.Store.Save(workDir, s)
}

// toSessionBlockedIntents converts resolver's blocked-intent shape into
// the one session.State persists (session cannot import resolver
// directly — see session.BlockedIntent's doc comment).
func toSessionBlockedIntents(in map[catalog.Intent]resolver.BlockedIntent) map[catalog.Intent]session.BlockedIntent {
	out := make(map[catalog.Intent]session.BlockedIntent, len(in))
	for intent, bi := range in {
		out[intent] = session.BlockedIntent{
			Reason:          bi.Reason,
			Skill:           bi.Skill,
			UntilCapability: bi.UntilCapability,
		}
	}
	return out
}

// CheckCompletion runs the completion gate on a
// session-stop signal: every entry of profile.CompletionRequirements
// must pass. On success the session is archived and the stop is
// allowed. On failure, strict profiles produce a stop-blocked payload;
// advisory/permissive profiles allow the stop anyway.
func (g *Gate) CheckCompletion(ctx context.Context, workDir string, profile catalog.Profile, strictness catalog.Strictness) (*Decision, error) {
	s, err := g.Store.LoadCurrent(workDir)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return &Decision{Allow: true}, nil
	}

	results := g.Checker.Evaluate(ctx, profile.CompletionRequirements)
	if evidence.AllPass(results) {
		if _, err := g.Store.Archive(workDir, s); err != nil {
			return nil, err
		}
		g.record(RecordedDecision{SessionID: s.SessionID, ProfileID: s.ProfileID, Outcome: "allow", Reason: "completion requirements satisfied"})
		return &Decision{Allow: true}, nil
	}

	if strictness != catalog.StrictnessStrict {
		g.record(RecordedDecision{SessionID: s.SessionID, ProfileID: s.ProfileID, Outcome: "allow", Reason: "completion requirements unsatisfied, non-strict"})
		return &Decision{Allow: true}, nil
	}

	payload, err := g.renderStopBlocked(s.ProfileID, results)
	if err != nil {
		return nil, chainerr.Wrap(chainerr.SpecInvalid, err, "rendering stop-blocked payload")
	}
	g.record(RecordedDecision{SessionID: s.SessionID, ProfileID: s.ProfileID, Outcome: "stop_blocked", Reason: "completion requirements unsatisfied"})
	return &Decision{Allow: false, Payload: payload}, nil
}

func intersectBlocked(intents []catalog.Intent, blocked map[catalog.Intent]session.BlockedIntent) []catalog.Intent {
	var out []catalog.Intent
	for _, i := range intents {
		if _, ok := blocked[i]; ok {
			out = append(out, i)
		}
	}
	return out
}

// renderDenial builds the structured denial payload for the first
// blocked intent (chosen deterministically from intents' classification
// order), listing every unsatisfied capability across all blocked
// intents and suggesting the earliest chain skill that provides one.
func (g *Gate) renderDenial(lib *catalog.Library, s *session.State, blocked []catalog.Intent, advisory bool) (string, error) {
	primary := s.BlockedIntents[blocked[0]]

	caps := make([]templates.BlockedCapability, 0, len(blocked))
	seen := make(map[catalog.Capability]bool)
	var nextSkill string
	for _, intent := range blocked {
		bi := s.BlockedIntents[intent]
		if seen[bi.UntilCapability] {
			continue
		}
		seen[bi.UntilCapability] = true
		caps = append(caps, templates.BlockedCapability{
			Capability: string(bi.UntilCapability),
			Skill:      bi.Skill,
		})
		if nextSkill == "" {
			nextSkill = chainProviderOf(lib, s.Chain, bi.UntilCapability)
		}
	}

	data := templates.DenialData{
		Intent:       string(blocked[0]),
		Reason:       primary.Reason,
		Skill:        primary.Skill,
		Capabilities: caps,
		NextSkill:    nextSkill,
		Advisory:     advisory,
	}
	return g.Renderer.Render(templates.Denial, data)
}

func (g *Gate) renderStopBlocked(profileID string, results []evidence.Result) (string, error) {
	var missing []templates.MissingRequirement
	for _, r := range results {
		if r.Passed {
			continue
		}
		name := r.Artifact.Name
		if name == "" {
			name = string(r.Artifact.Kind)
		}
		missing = append(missing, templates.MissingRequirement{Name: name, Diagnostic: r.Diagnostic})
	}
	return g.Renderer.Render(templates.StopBlocked, templates.StopBlockedData{
		ProfileID: profileID,
		Missing:   missing,
	})
}

// chainProviderOf returns the earliest skill in chain that provides c,
// or "" if none does (the capability must then come from outside the
// resolved chain, e.g. a manual acknowledgment).
func chainProviderOf(lib *catalog.Library, chain []string, c catalog.Capability) string {
	for _, name := range chain {
		skill, ok := lib.Skill(name)
		if ok && skill.ProvidesCapability(c) {
			return name
		}
	}
	return ""
}
