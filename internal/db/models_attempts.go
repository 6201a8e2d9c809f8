package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Outcome values stored in attempts.outcome.
const (
	OutcomeSuccess            = "success"
	OutcomeRolledBack         = "rolled_back"
	OutcomeManualIntervention = "manual_intervention"
	OutcomeFailed             = "failed"
	OutcomeMigrationFailed    = "migration_failed"
)

// Attempt is one finished orchestrator run.
type Attempt struct {
	ID          string
	AppName     string
	PreviousTag string
	TargetTag   string
	Outcome     string
	ExitCode    int
	Detail      string
	StartedAt   time.Time
	FinishedAt  time.Time
}

func createAttemptsTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS attempts (
    id TEXT PRIMARY KEY,                    -- ULID, sorts by start time
    app_name TEXT NOT NULL,
    previous_tag TEXT NOT NULL,
    target_tag TEXT NOT NULL,
    outcome TEXT NOT NULL,                  -- success, rolled_back, manual_intervention, ...
    exit_code INTEGER NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL,               -- RFC3339Nano, UTC
    finished_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_app_name ON attempts(app_name);
CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome);
`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create attempts table: %w", err)
	}
	return nil
}

func (db *DB) SaveAttempt(a Attempt) error {
	query := `INSERT INTO attempts (id, app_name, previous_tag, target_tag, outcome, exit_code, detail, started_at, finished_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.Exec(query, a.ID, a.AppName, a.PreviousTag, a.TargetTag, a.Outcome, a.ExitCode, a.Detail,
		a.StartedAt.UTC().Format(time.RFC3339Nano), a.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save attempt %s: %w", a.ID, err)
	}
	return nil
}

// GetAttempt returns the attempt with id, or an error wrapping sql.ErrNoRows.
func (db *DB) GetAttempt(id string) (Attempt, error) {
	query := `SELECT id, app_name, previous_tag, target_tag, outcome, exit_code, detail, started_at, finished_at
              FROM attempts WHERE id = ?`
	a, err := scanAttempt(db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, fmt.Errorf("attempt %s not found: %w", id, err)
	}
	return a, err
}

// GetAttemptHistory returns the newest limit attempts for appName.
func (db *DB) GetAttemptHistory(appName string, limit int) ([]Attempt, error) {
	query := `SELECT id, app_name, previous_tag, target_tag, outcome, exit_code, detail, started_at, finished_at
              FROM attempts
              WHERE app_name = ?
              ORDER BY id DESC
              LIMIT ?`
	rows, err := db.Query(query, appName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt history: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// LastGoodTag returns the tag that was live after the newest attempt which
// left the app on a known-good release, or "" if there is none.
func (db *DB) LastGoodTag(appName string) (string, error) {
	query := `SELECT outcome, previous_tag, target_tag FROM attempts
              WHERE app_name = ? AND outcome IN (?, ?)
              ORDER BY id DESC
              LIMIT 1`
	var outcome, previous, target string
	err := db.QueryRow(query, appName, OutcomeSuccess, OutcomeRolledBack).Scan(&outcome, &previous, &target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last good tag: %w", err)
	}
	if outcome == OutcomeRolledBack {
		return previous, nil
	}
	return target, nil
}

func (db *DB) PruneOldAttempts(appName string, attemptsToKeep int) (int64, error) {
	query := `
        DELETE FROM attempts
        WHERE app_name = ?
        AND id NOT IN (
            SELECT id FROM attempts
            WHERE app_name = ?
            ORDER BY id DESC
            LIMIT ?
        )
    `

	result, err := db.Exec(query, appName, appName, attemptsToKeep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune old attempts: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var (
		a                 Attempt
		started, finished string
	)
	if err := row.Scan(&a.ID, &a.AppName, &a.PreviousTag, &a.TargetTag, &a.Outcome, &a.ExitCode, &a.Detail, &started, &finished); err != nil {
		return Attempt{}, err
	}

	var err error
	if a.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Attempt{}, fmt.Errorf("invalid started_at for attempt %s: %w", a.ID, err)
	}
	if a.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Attempt{}, fmt.Errorf("invalid finished_at for attempt %s: %w", a.ID, err)
	}
	return a, nil
}
