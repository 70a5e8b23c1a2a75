package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mattn/go-sqlite3"

	apperrors "heston-greeks/internal/errors"
	"heston-greeks/internal/models"
)

// SQLiteLedger implements RunLedger using SQLite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (or creates) the ledger database at dbPath.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ledger := &SQLiteLedger{db: db}
	if err := ledger.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return ledger, nil
}

// initSchema creates all required tables and indexes.
func (l *SQLiteLedger) initSchema() error {
	schema := `
	-- One row per completed batch
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		workflow TEXT NOT NULL,
		scheme TEXT NOT NULL,
		seed INTEGER NOT NULL,
		paths INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		bump REAL NOT NULL,
		sampling TEXT NOT NULL,
		trials INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		duration INTEGER NOT NULL,
		output_dir TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Index-aligned trial rows
	CREATE TABLE IF NOT EXISTS trial_results (
		run_id TEXT NOT NULL,
		trial INTEGER NOT NULL,
		spot REAL,
		price REAL,
		std_error REAL,
		delta REAL,
		gamma REAL,
		asset_price REAL,
		PRIMARY KEY (run_id, trial),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_workflow_scheme ON runs(workflow, scheme);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// SaveRun records a run and all of its trial rows in one transaction.
func (l *SQLiteLedger) SaveRun(ctx context.Context, run models.Run, series *models.ResultSeries) error {
	if series == nil {
		return apperrors.NewPersistError("ledger", run.ID, apperrors.ErrEmptyBatch)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", apperrors.ErrDatabaseError, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, workflow, scheme, seed, paths, steps, bump, sampling, trials, started_at, duration, output_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Workflow, run.Scheme, int64(run.Seed), run.Paths, run.Steps, run.Bump, run.Sampling, run.Trials, run.StartedAt.UTC(), run.Duration.Nanoseconds(), run.OutputDir)
	if err != nil {
		return apperrors.NewPersistError("ledger", run.ID, transient(err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trial_results (run_id, trial, spot, price, std_error, delta, gamma, asset_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare statement: %v", apperrors.ErrDatabaseError, err)
	}
	defer stmt.Close()

	for i := 0; i < series.Len(); i++ {
		r := series.At(i)
		_, err := stmt.ExecContext(ctx, run.ID, i,
			nullable(r.Spot), nullable(r.Price), nullable(r.StdError),
			nullable(r.Delta), nullable(r.Gamma), nullable(r.AssetPrice))
		if err != nil {
			return apperrors.NewPersistError("ledger", run.ID, fmt.Errorf("trial %d: %w", i, transient(err)))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistError("ledger", run.ID, transient(err))
	}
	return nil
}

// ListRuns returns runs newest first.
func (l *SQLiteLedger) ListRuns(ctx context.Context, filter RunFilter) ([]models.Run, error) {
	query := "SELECT id, workflow, scheme, seed, paths, steps, bump, sampling, trials, started_at, duration, output_dir FROM runs WHERE 1=1"
	args := []interface{}{}

	if filter.Workflow != "" {
		query += " AND workflow = ?"
		args = append(args, filter.Workflow)
	}
	if filter.Scheme != "" {
		query += " AND scheme = ?"
		args = append(args, filter.Scheme)
	}

	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query runs: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetRun retrieves one run by id.
func (l *SQLiteLedger) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, workflow, scheme, seed, paths, steps, bump, sampling, trials, started_at, duration, output_dir
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: run %s", apperrors.ErrDataNotFound, id)
	}
	return run, err
}

// GetSeries rebuilds the result series recorded for a run.
func (l *SQLiteLedger) GetSeries(ctx context.Context, id string) (*models.ResultSeries, error) {
	var n int
	err := l.db.QueryRowContext(ctx, "SELECT trials FROM runs WHERE id = ?", id).Scan(&n)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: run %s", apperrors.ErrDataNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT trial, spot, price, std_error, delta, gamma, asset_price
		FROM trial_results WHERE run_id = ? ORDER BY trial ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query trials: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	series := models.NewResultSeries(n)
	for rows.Next() {
		var trial int
		var spot, price, stdErr, delta, gamma, asset sql.NullFloat64
		if err := rows.Scan(&trial, &spot, &price, &stdErr, &delta, &gamma, &asset); err != nil {
			return nil, fmt.Errorf("%w: failed to scan trial: %v", apperrors.ErrDatabaseError, err)
		}
		err := series.Record(trial, models.TrialResult{
			Spot:       fromNullable(spot),
			Price:      fromNullable(price),
			StdError:   fromNullable(stdErr),
			Delta:      fromNullable(delta),
			Gamma:      fromNullable(gamma),
			AssetPrice: fromNullable(asset),
		})
		if err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return series, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*models.Run, error) {
	var run models.Run
	var seed, durationNs int64
	var outputDir sql.NullString

	err := s.Scan(&run.ID, &run.Workflow, &run.Scheme, &seed, &run.Paths, &run.Steps, &run.Bump,
		&run.Sampling, &run.Trials, &run.StartedAt, &durationNs, &outputDir)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan run: %v", apperrors.ErrDatabaseError, err)
	}

	run.Seed = uint64(seed)
	run.Duration = time.Duration(durationNs)
	run.OutputDir = outputDir.String
	return &run, nil
}

// transient marks lock contention as ErrDatabaseError so writers can retry it.
func transient(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %w", apperrors.ErrDatabaseError, err)
	}
	return err
}

// SQLite stores NaN as NULL, so NaN travels as NULL both ways.
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
