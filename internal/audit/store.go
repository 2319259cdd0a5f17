// Package audit implements the decision log: every gate decision,
// allow or deny, is recorded so a session can be
// reconstructed after the fact. SQLite + FTS5 backed, with a single
// append-only decisions table.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Outcome is the result of a single gate evaluation.
type Outcome string

const (
	OutcomeAllow       Outcome = "allow"
	OutcomeDeny        Outcome = "deny"
	OutcomeAdvisory    Outcome = "advisory"
	OutcomeStopBlocked Outcome = "stop_blocked"
)

// Decision is one recorded gate evaluation.
type Decision struct {
	ID        int64   `json:"id"`
	SessionID string  `json:"session_id"`
	RequestID string  `json:"request_id"`
	ProfileID string  `json:"profile_id"`
	ToolName  string  `json:"tool_name"`
	Intent    string  `json:"intent"`
	Outcome   Outcome `json:"outcome"`
	Reason    string  `json:"reason,omitempty"`
	Skill     string  `json:"skill,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// RecordParams holds the input for recording a decision.
type RecordParams struct {
	SessionID string
	RequestID string
	ProfileID string
	ToolName  string
	Intent    string
	Outcome   Outcome
	Reason    string
	Skill     string
}

// Stats holds aggregate counts by outcome.
type Stats struct {
	Total       int            `json:"total"`
	ByOutcome   map[Outcome]int `json:"by_outcome"`
	BySession   int            `json:"distinct_sessions"`
}

// Config holds audit store configuration.
type Config struct {
	DataDir      string
	MaxResults   int
}

// DefaultConfig returns the default configuration, rooted under the
// working directory's .chain state dir.
func DefaultConfig(workDir string) Config {
	return Config{
		DataDir:    filepath.Join(workDir, ".chain"),
		MaxResults: 50,
	}
}

// Store is the append-only decision log backed by SQLite + FTS5.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New creates a Store, creating the data directory and running
// migrations as needed.
func New(cfg Config) (*Store, error) {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("audit: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "audit.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("audit: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("audit: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS decisions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT    NOT NULL,
			request_id TEXT,
			profile_id TEXT,
			tool_name  TEXT,
			intent     TEXT,
			outcome    TEXT    NOT NULL,
			reason     TEXT,
			skill      TEXT,
			created_at TEXT    NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_dec_session ON decisions(session_id);
		CREATE INDEX IF NOT EXISTS idx_dec_outcome ON decisions(outcome);
		CREATE INDEX IF NOT EXISTS idx_dec_created ON decisions(created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS decisions_fts USING fts5(
			reason,
			skill,
			content='decisions',
			content_rowid='id'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='dec_fts_insert'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER dec_fts_insert AFTER INSERT ON decisions BEGIN
				INSERT INTO decisions_fts(rowid, reason, skill)
				VALUES (new.id, new.reason, new.skill);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	}
	return nil
}

// Record appends a single gate decision. Recording never fails the
// calling gate evaluation's own outcome — callers discard the error and
// continue rather than surfacing an audit failure as a policy failure.
func (s *Store) Record(p RecordParams) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO decisions (session_id, request_id, profile_id, tool_name, intent, outcome, reason, skill)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SessionID, nullableString(p.RequestID), nullableString(p.ProfileID),
		nullableString(p.ToolName), nullableString(p.Intent), string(p.Outcome),
		nullableString(p.Reason), nullableString(p.Skill),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentDecisions returns the most recent decisions for a session, most
// recent first.
func (s *Store) RecentDecisions(sessionID string, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}
	rows, err := s.db.Query(
		`SELECT id, session_id, ifnull(request_id,''), ifnull(profile_id,''), ifnull(tool_name,''),
		        ifnull(intent,''), outcome, ifnull(reason,''), ifnull(skill,''), created_at
		 FROM decisions WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// Search performs full-text search across decision reasons and skills.
func (s *Store) Search(query string, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}
	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT d.id, d.session_id, ifnull(d.request_id,''), ifnull(d.profile_id,''), ifnull(d.tool_name,''),
		        ifnull(d.intent,''), d.outcome, ifnull(d.reason,''), ifnull(d.skill,''), d.created_at
		 FROM decisions_fts fts
		 JOIN decisions d ON d.id = fts.rowid
		 WHERE decisions_fts MATCH ?
		 ORDER BY fts.rank LIMIT ?`,
		ftsQuery, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: search: %w", err)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// Stats returns aggregate counts across all recorded decisions.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ByOutcome: map[Outcome]int{}}

	_ = s.db.QueryRow("SELECT COUNT(*) FROM decisions").Scan(&stats.Total)
	_ = s.db.QueryRow("SELECT COUNT(DISTINCT session_id) FROM decisions").Scan(&stats.BySession)

	rows, err := s.db.Query("SELECT outcome, COUNT(*) FROM decisions GROUP BY outcome")
	if err != nil {
		return stats, nil
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err == nil {
			stats.ByOutcome[Outcome(outcome)] = n
		}
	}
	return stats, nil
}

// FormatSummary returns a markdown rendering of a session's recent
// decisions, suitable for the chain_status MCP tool.
func (s *Store) FormatSummary(sessionID string, limit int) (string, error) {
	decisions, err := s.RecentDecisions(sessionID, limit)
	if err != nil {
		return "", err
	}
	if len(decisions) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Decision Log (%s)\n\n", sessionID)
	for _, d := range decisions {
		line := fmt.Sprintf("- `%s` **%s**", d.CreatedAt, d.Outcome)
		if d.Intent != "" {
			line += fmt.Sprintf(" intent=%s", d.Intent)
		}
		if d.Skill != "" {
			line += fmt.Sprintf(" skill=%s", d.Skill)
		}
		if d.Reason != "" {
			line += fmt.Sprintf(": %s", d.Reason)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func scanDecisions(rows *sql.Rows) ([]Decision, error) {
	var results []Decision
	for rows.Next() {
		var d Decision
		var outcome string
		if err := rows.Scan(
			&d.ID, &d.SessionID, &d.RequestID, &d.ProfileID, &d.ToolName,
			&d.Intent, &outcome, &d.Reason, &d.Skill, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		d.Outcome = Outcome(outcome)
		results = append(results, d)
	}
	return results, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.Trim(w, `"`)
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

// Now returns the current time formatted for SQLite, exposed for
// callers that stamp records outside of Record (e.g. cache keys).
func Now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
