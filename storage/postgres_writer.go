package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"cp-tickets/models"
	"cp-tickets/utils"
)

// PostgresReportWriter records run reports in PostgreSQL.
type PostgresReportWriter struct {
	db *sql.DB
}

// NewPostgresReportWriter opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use writer.
func NewPostgresReportWriter(dsn string, logger *utils.Logger) (*PostgresReportWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresReportWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresReportWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS scenario_runs (
			run_id       VARCHAR(64)  PRIMARY KEY,
			started_at   TIMESTAMPTZ  NOT NULL,
			finished_at  TIMESTAMPTZ,
			duration_ms  BIGINT       NOT NULL DEFAULT 0,
			state        VARCHAR(32)  NOT NULL,
			failed_step  VARCHAR(32)  NOT NULL DEFAULT '',
			error        TEXT         NOT NULL DEFAULT '',
			final_url    TEXT         NOT NULL DEFAULT '',
			origin       TEXT         NOT NULL,
			destination  TEXT         NOT NULL,
			travel_date  DATE         NOT NULL,
			passengers   INT          NOT NULL,
			fare_class   TEXT         NOT NULL DEFAULT '',
			service      TEXT         NOT NULL DEFAULT '',
			departure    VARCHAR(5)   NOT NULL DEFAULT '',
			arrival      VARCHAR(5)   NOT NULL DEFAULT '',
			artifact_dir TEXT         NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS scenario_transitions (
			id         SERIAL PRIMARY KEY,
			run_id     VARCHAR(64) NOT NULL REFERENCES scenario_runs(run_id) ON DELETE CASCADE,
			seq        INT         NOT NULL,
			state      VARCHAR(32) NOT NULL,
			entered_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scenario_runs_state   ON scenario_runs(state);
		CREATE INDEX IF NOT EXISTS idx_scenario_transitions_run ON scenario_transitions(run_id);
	`)
	return err
}

// Write inserts the run and its state transitions in one transaction.
func (pw *PostgresReportWriter) Write(r *models.RunReport) error {
	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := reportRow(r)
	var finished interface{}
	if !r.FinishedAt.IsZero() {
		finished = r.FinishedAt
	}

	_, err = tx.Exec(`
		INSERT INTO scenario_runs (
			run_id, started_at, finished_at, duration_ms, state, failed_step, error, final_url,
			origin, destination, travel_date, passengers, fare_class,
			service, departure, arrival, artifact_dir
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (run_id) DO NOTHING
	`,
		r.RunID, r.StartedAt, finished, r.Duration().Milliseconds(), row[4], row[5], row[6], row[7],
		row[8], row[9], row[10], r.Criteria.Passengers(), row[12],
		row[13], row[14], row[15], row[16],
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	if len(r.Transitions) > 0 {
		query, args := transitionInsert(r.RunID, r.Transitions)
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert transitions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// transitionInsert builds a single multi-row INSERT for the transitions.
func transitionInsert(runID string, transitions []models.Transition) (string, []interface{}) {
	valueStrings := make([]string, 0, len(transitions))
	valueArgs := make([]interface{}, 0, len(transitions)*4)

	for idx, t := range transitions {
		base := idx * 4
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4))
		valueArgs = append(valueArgs, runID, idx, string(t.State), t.At)
	}

	query := fmt.Sprintf(
		"INSERT INTO scenario_transitions (run_id, seq, state, entered_at) VALUES %s",
		strings.Join(valueStrings, ","))
	return query, valueArgs
}

func (pw *PostgresReportWriter) Close() error {
	return pw.db.Close()
}
