// Package session implements the durable per-working-directory session
// state: the single source of truth every gating decision consults.
// Only one active session may exist per working directory; the store
// enforces that invariant across writes.
package session

import (
	"github.com/chainward/chainward/internal/catalog"
)

// SatisfiedCapability records when and how a capability was satisfied.
type SatisfiedCapability struct {
	Capability     catalog.Capability `json:"capability"`
	EvidenceSource string             `json:"evidence_source"`
	At             string             `json:"at"` // RFC3339
}

// BlockedIntent mirrors resolver.BlockedIntent in the persisted shape —
// the session package does not import resolver to keep the dependency
// graph from catalog -> session -> (resolver, evidence) acyclic; the
// activator is responsible for translating resolver.Result into this
// shape when it builds a State.
type BlockedIntent struct {
	Reason          string             `json:"reason"`
	Skill           string             `json:"skill"`
	UntilCapability catalog.Capability `json:"until_capability"`
}

// State is the durable per-working-directory session record.
type State struct {
	SessionID            string                           `json:"session_id"`
	ProfileID             string                           `json:"profile_id"`
	Strictness            catalog.Strictness               `json:"strictness"`
	Chain                 []string                         `json:"chain"`
	CapabilitiesRequired  []catalog.Capability              `json:"capabilities_required"`
	CapabilitiesSatisfied []SatisfiedCapability             `json:"capabilities_satisfied"`
	BlockedIntents        map[catalog.Intent]BlockedIntent `json:"blocked_intents"`
	ManualAcks            map[string]bool                   `json:"manual_acks,omitempty"`
	ActivatedAt           string                            `json:"activated_at"`
	LastUpdated           string                            `json:"last_updated"`
	RequestID             string                            `json:"request_id,omitempty"`
	Status                string                            `json:"status"` // active | archived
}

// IsSatisfied reports whether c is already recorded as satisfied.
func (s *State) IsSatisfied(c catalog.Capability) bool {
	for _, sc := range s.CapabilitiesSatisfied {
		if sc.Capability == c {
			return true
		}
	}
	return false
}

// SatisfiedSet returns the satisfied capabilities as a lookup set.
func (s *State) SatisfiedSet() map[catalog.Capability]bool {
	set := make(map[catalog.Capability]bool, len(s.CapabilitiesSatisfied))
	for _, sc := range s.CapabilitiesSatisfied {
		set[sc.Capability] = true
	}
	return set
}

// MarkSatisfied appends a new satisfaction record unless c is already
// satisfied — satisfaction is monotonic within a session:
// once recorded, it is never revoked even if evidence later disappears.
func (s *State) MarkSatisfied(c catalog.Capability, evidenceSource, at string) {
	if s.IsSatisfied(c) {
		return
	}
	s.CapabilitiesSatisfied = append(s.CapabilitiesSatisfied, SatisfiedCapability{
		Capability:     c,
		EvidenceSource: evidenceSource,
		At:             at,
	})
}

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)
