package audit

import (
	"github.com/chainward/chainward/internal/gate"
)

// GateRecorder adapts a Store to gate.Recorder, translating the gate's
// observability shape into this package's RecordParams. It is the
// concrete collaborator cmd/chainward-hook wires into gate.New so every
// allow/deny/advisory/stop_blocked decision, allows included, lands
// in .chain/audit.db.
type GateRecorder struct {
	Store *Store
}

// Record implements gate.Recorder. A write failure is returned to the
// caller, which (per gate.Gate.record) always swallows it — the audit
// log is never load-bearing for a policy decision.
func (r GateRecorder) Record(d gate.RecordedDecision) error {
	_, err := r.Store.Record(RecordParams{
		SessionID: d.SessionID,
		RequestID: d.RequestID,
		ProfileID: d.ProfileID,
		ToolName:  d.ToolName,
		Intent:    d.Intent,
		Outcome:   Outcome(d.Outcome),
		Reason:    d.Reason,
		Skill:     d.Skill,
	})
	return err
}
