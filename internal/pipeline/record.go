package pipeline

import (
	"fmt"
	"strings"

	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/db"
)

// RunStore persists run history. *db.DB implements it.
type RunStore interface {
	CreateProcessingRun(run *db.ProcessingRun) error
	AddProcessingWarning(w *db.ProcessingWarning) error
}

// Record stores res, the outputs written for it and its warnings. out may
// be nil when nothing was written.
func Record(store RunStore, res *Result, inputDir string, out *Outputs) error {
	run := &db.ProcessingRun{
		RunID:                res.RunID,
		StartedAt:            res.StartedAt,
		FinishedAt:           res.FinishedAt,
		Strategy:             res.Strategy,
		InputDir:             inputDir,
		EpicsRows:            res.Dataset(config.Epics).Len(),
		MaintenanceRows:      res.Dataset(config.Maintenance).Len(),
		UtilizationRows:      res.Dataset(config.Utilization).Len(),
		CorrelationAvailable: res.CorrelationAvailable(),
	}
	if res.Correlation != nil {
		run.WeeklyRows = res.Correlation.Weekly.Len()
	}
	if out != nil {
		run.OutputDir = out.Dir
		var failures []string
		for _, f := range out.Failures {
			failures = append(failures, fmt.Sprintf("%s: %v", f.Path, f.Err))
		}
		run.Failures = strings.Join(failures, "\n")
	}

	if err := store.CreateProcessingRun(run); err != nil {
		return err
	}
	for _, w := range res.Warnings {
		pw := &db.ProcessingWarning{RunID: res.RunID, Stage: w.Stage, Dataset: w.Dataset, Message: w.Err.Error()}
		if err := store.AddProcessingWarning(pw); err != nil {
			return err
		}
	}
	if out != nil {
		for _, f := range out.Failures {
			pw := &db.ProcessingWarning{RunID: res.RunID, Stage: StageWrite, Message: fmt.Sprintf("%s: %v", f.Path, f.Err)}
			if err := store.AddProcessingWarning(pw); err != nil {
				return err
			}
		}
	}
	return nil
}
