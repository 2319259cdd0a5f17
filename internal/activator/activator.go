// Package activator turns a router decision or an explicit profile
// selection into a persisted session, idempotent on request_id.
package activator

import (
	"github.com/chainward/chainward/internal/catalog"
	"github.com/chainward/chainward/internal/chainerr"
	"github.com/chainward/chainward/internal/resolver"
	"github.com/chainward/chainward/internal/session"
)

// Result is the outcome of an activation attempt.
type Result struct {
	Activated  bool
	Idempotent bool
	SessionID  string
	ProfileID  string
	Chain      []string
	BlockedIntents map[catalog.Intent]resolver.BlockedIntent
}

// Activator composes the skill resolver and the session store.
type Activator struct {
	Lib       *catalog.Library
	Store     session.Store
	NewSessionID func() string
	Now          func() string
}

// New builds an Activator. idGen and now are injected so activation is
// deterministic under test; production callers pass uuid.NewString and
// a wall-clock RFC3339 formatter.
func New(lib *catalog.Library, store session.Store, idGen func() string, now func() string) *Activator {
	return &Activator{Lib: lib, Store: store, NewSessionID: idGen, Now: now}
}

// Activate resolves profileID's capabilities and persists (or returns)
// a session for workDir, keyed on requestID for idempotency.
func (a *Activator) Activate(workDir, profileID, requestID string) (*Result, error) {
	current, err := a.Store.LoadCurrent(workDir)
	if err != nil {
		return nil, err
	}

	if current != nil {
		if requestID != "" && current.RequestID == requestID {
			return &Result{
				Activated:      true,
				Idempotent:     true,
				SessionID:      current.SessionID,
				ProfileID:      current.ProfileID,
				Chain:          current.Chain,
				BlockedIntents: toResolverBlocked(current.BlockedIntents),
			}, nil
		}
		return nil, chainerr.Newf(chainerr.IdempotencyConflict, "session already active with a different request_id").
			With("active_session_id", current.SessionID).With("active_request_id", current.RequestID)
	}

	profile, ok := a.Lib.Profile(profileID)
	if !ok {
		return nil, chainerr.Newf(chainerr.ResolutionFailure, "unknown profile %q", profileID).With("profile_id", profileID)
	}

	resolved, err := resolver.Resolve(a.Lib, profile.CapabilitiesRequired, nil)
	if err != nil {
		return nil, err
	}

	now := a.Now()
	state := &session.State{
		SessionID:            a.NewSessionID(),
		ProfileID:            profileID,
		Strictness:           profile.Strictness,
		Chain:                resolved.Chain,
		CapabilitiesRequired: resolved.CapabilitiesRequired,
		BlockedIntents:       toSessionBlocked(resolved.BlockedIntents),
		ActivatedAt:          now,
		LastUpdated:          now,
		RequestID:            requestID,
		Status:               session.StatusActive,
	}

	if err := a.Store.Save(workDir, state); err != nil {
		return nil, err
	}

	return &Result{
		Activated:      true,
		Idempotent:     false,
		SessionID:      state.SessionID,
		ProfileID:      profileID,
		Chain:          resolved.Chain,
		BlockedIntents: resolved.BlockedIntents,
	}, nil
}

func toSessionBlocked(in map[catalog.Intent]resolver.BlockedIntent) map[catalog.Intent]session.BlockedIntent {
	out := make(map[catalog.Intent]session.BlockedIntent, len(in))
	for k, v := range in {
		out[k] = session.BlockedIntent{Reason: v.Reason, Skill: v.Skill, UntilCapability: v.UntilCapability}
	}
	return out
}

func toResolverBlocked(in map[catalog.Intent]session.BlockedIntent) map[catalog.Intent]resolver.BlockedIntent {
	out := make(map[catalog.Intent]resolver.BlockedIntent, len(in))
	for k, v := range in {
		out[k] = resolver.BlockedIntent{Reason: v.Reason, Skill: v.Skill, UntilCapability: v.UntilCapability}
	}
	return out
}
