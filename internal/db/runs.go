package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by GetProcessingRun for an unknown run ID.
var ErrRunNotFound = errors.New("processing run not found")

// ProcessingRun is one recorded ltr-process run.
type ProcessingRun struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Strategy   string    `json:"strategy"`
	InputDir   string    `json:"input_dir"`
	OutputDir  string    `json:"output_dir"`

	EpicsRows       int `json:"epics_rows"`
	MaintenanceRows int `json:"maintenance_rows"`
	UtilizationRows int `json:"utilization_rows"`
	// WeeklyRows is the length of the joined weekly table.
	WeeklyRows int `json:"weekly_rows"`

	CorrelationAvailable bool `json:"correlation_available"`
	// Failures lists the output files that could not be written, one per line.
	Failures string `json:"failures"`
}

// ProcessingWarning is a non-fatal problem recorded against a run.
type ProcessingWarning struct {
	ID      int    `json:"id"`
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Dataset string `json:"dataset"`
	Message string `json:"message"`
}

// Fixed width, so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// CreateProcessingRun inserts a run record.
func (db *DB) CreateProcessingRun(run *ProcessingRun) error {
	query := `
		INSERT INTO processing_runs (
			run_id, started_at, finished_at, strategy, input_dir, output_dir,
			epics_rows, maintenance_rows, utilization_rows, weekly_rows,
			correlation_available, failures
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(
		query,
		run.RunID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Strategy,
		run.InputDir,
		run.OutputDir,
		run.EpicsRows,
		run.MaintenanceRows,
		run.UtilizationRows,
		run.WeeklyRows,
		run.CorrelationAvailable,
		run.Failures,
	)
	if err != nil {
		return fmt.Errorf("failed to create processing run: %w", err)
	}
	return nil
}

const runColumns = `
	run_id, started_at, finished_at, strategy, input_dir, output_dir,
	epics_rows, maintenance_rows, utilization_rows, weekly_rows,
	correlation_available, failures`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*ProcessingRun, error) {
	var run ProcessingRun
	var started, finished string
	err := s.Scan(
		&run.RunID,
		&started,
		&finished,
		&run.Strategy,
		&run.InputDir,
		&run.OutputDir,
		&run.EpicsRows,
		&run.MaintenanceRows,
		&run.UtilizationRows,
		&run.WeeklyRows,
		&run.CorrelationAvailable,
		&run.Failures,
	)
	if err != nil {
		return nil, err
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("failed to parse started_at %q: %w", started, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("failed to parse finished_at %q: %w", finished, err)
	}
	return &run, nil
}

// GetProcessingRun retrieves a run by ID.
func (db *DB) GetProcessingRun(runID string) (*ProcessingRun, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM processing_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get processing run: %w", err)
	}
	return run, nil
}

// ListProcessingRuns returns the most recent runs, newest first.
func (db *DB) ListProcessingRuns(limit int) ([]ProcessingRun, error) {
	rows, err := db.Query(`SELECT `+runColumns+`
		FROM processing_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing runs: %w", err)
	}
	defer rows.Close()

	var runs []ProcessingRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan processing run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating processing runs: %w", err)
	}
	return runs, nil
}

// AddProcessingWarning records a warning against an existing run.
func (db *DB) AddProcessingWarning(w *ProcessingWarning) error {
	result, err := db.Exec(`
		INSERT INTO processing_warnings (run_id, stage, dataset, message)
		VALUES (?, ?, ?, ?)
	`, w.RunID, w.Stage, w.Dataset, w.Message)
	if err != nil {
		return fmt.Errorf("failed to add processing warning: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	w.ID = int(id)
	return nil
}

// ListProcessingWarnings returns the warnings of a run in insertion order.
func (db *DB) ListProcessingWarnings(runID string) ([]ProcessingWarning, error) {
	rows, err := db.Query(`
		SELECT warning_id, run_id, stage, dataset, message
		FROM processing_warnings
		WHERE run_id = ?
		ORDER BY warning_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing warnings: %w", err)
	}
	defer rows.Close()

	var warnings []ProcessingWarning
	for rows.Next() {
		var w ProcessingWarning
		if err := rows.Scan(&w.ID, &w.RunID, &w.Stage, &w.Dataset, &w.Message); err != nil {
			return nil, fmt.Errorf("failed to scan processing warning: %w", err)
		}
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}
