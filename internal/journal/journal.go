// Package journal records patch runs in a SQLite database so operators can
// audit which rules ran, what they changed and which warnings they raised.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formpatch/pkg/rules"
)

// Run statuses.
const (
	StatusApplied   = "applied"
	StatusDryRun    = "dry-run"
	StatusFailed    = "failed"
	StatusValidated = "validated"
)

// Entry is one recorded run.
type Entry struct {
	RunID      string          `json:"run_id"`
	RecordedAt time.Time       `json:"recorded_at"`
	Source     string          `json:"source"`
	Target     string          `json:"target,omitempty"`
	Rules      []string        `json:"rules"`
	Changed    int             `json:"changed"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Warnings   []rules.Warning `json:"warnings,omitempty"`
}

// Journal is a handle on the run database.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating when needed) the database at path and applies
// pending migrations.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores entry. A zero RecordedAt is set to the current time.
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	if entry.RunID == "" {
		return errors.New("journal: run id is required")
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = j.now()
	}
	ruleNames, err := json.Marshal(entry.Rules)
	if err != nil {
		return fmt.Errorf("journal: encode rules: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs(id, recorded_at, source, target, rules, changed, status, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.RecordedAt.UTC().Format(time.RFC3339Nano), entry.Source, entry.Target,
		string(ruleNames), entry.Changed, entry.Status, entry.Error)
	if err != nil {
		return fmt.Errorf("journal: insert run: %w", err)
	}
	for seq, w := range entry.Warnings {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_warnings(run_id, seq, rule, path, message) VALUES (?, ?, ?, ?, ?)`,
			entry.RunID, seq, w.Rule, w.Path, w.Message)
		if err != nil {
			return fmt.Errorf("journal: insert warning: %w", err)
		}
	}
	return tx.Commit()
}

// List returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, recorded_at, source, target, rules, changed, status, error FROM runs ORDER BY recorded_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			recordedAt string
			ruleNames  string
		)
		if err := rows.Scan(&e.RunID, &recordedAt, &e.Source, &e.Target, &ruleNames, &e.Changed, &e.Status, &e.Error); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("journal: run %s: %w", e.RunID, err)
		}
		if err := json.Unmarshal([]byte(ruleNames), &e.Rules); err != nil {
			return nil, fmt.Errorf("journal: run %s rules: %w", e.RunID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}

	for idx := range entries {
		warnings, err := j.warnings(ctx, entries[idx].RunID)
		if err != nil {
			return nil, err
		}
		entries[idx].Warnings = warnings
	}
	return entries, nil
}

func (j *Journal) warnings(ctx context.Context, runID string) ([]rules.Warning, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT rule, path, message FROM run_warnings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: warnings: %w", err)
	}
	defer rows.Close()

	var out []rules.Warning
	for rows.Next() {
		var w rules.Warning
		if err := rows.Scan(&w.Rule, &w.Path, &w.Message); err != nil {
			return nil, fmt.Errorf("journal: scan warning: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
