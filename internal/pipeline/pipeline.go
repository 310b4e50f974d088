// Package pipeline drives one processing run: every source dataset is
// normalized, coerced, imputed and bucketed in turn, and the maintenance
// and utilization results are correlated by week.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/ltr.report/internal/clean"
	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/correlate"
	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/fsutil"
	"github.com/banshee-data/ltr.report/internal/monitoring"
	"github.com/banshee-data/ltr.report/internal/source"
	"github.com/banshee-data/ltr.report/internal/timeutil"
)

// Stage names used in warnings.
const (
	StageImpute    = "impute"
	StageBucket    = "bucket"
	StageCorrelate = "correlate"
	StageWrite     = "write"
)

// Warning is a non-fatal problem met during a run.
type Warning struct {
	Stage   string
	Dataset string
	Err     error
}

func (w Warning) String() string {
	if w.Dataset == "" {
		return fmt.Sprintf("%s: %v", w.Stage, w.Err)
	}
	return fmt.Sprintf("%s %s: %v", w.Stage, w.Dataset, w.Err)
}

// Result is everything a run produced. It is passed explicitly to the
// output writers and the run recorder.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Strategy   string

	// Order lists the dataset names in processing order.
	Order    []string
	Datasets map[string]*dataset.Dataset
	Reports  map[string]clean.ImputeReport

	// Correlation is nil when the correlation could not be computed;
	// CorrelationErr then says why.
	Correlation    *correlate.Result
	CorrelationErr error

	Warnings []Warning
}

// Dataset returns a processed dataset by logical name, or nil.
func (r *Result) Dataset(name string) *dataset.Dataset {
	return r.Datasets[name]
}

// CorrelationAvailable reports whether correlation outputs exist.
func (r *Result) CorrelationAvailable() bool {
	return r.Correlation != nil
}

func (r *Result) warn(stage, name string, err error) {
	r.Warnings = append(r.Warnings, Warning{Stage: stage, Dataset: name, Err: err})
	monitoring.Warnf("%s", Warning{Stage: stage, Dataset: name, Err: err})
}

// Options configure Process. The zero value uses the median strategy,
// the default rename rules and the real clock.
type Options struct {
	Strategy clean.ImputationStrategy
	Rules    []clean.RenameRule
	Clock    timeutil.Clock
}

func (o Options) withDefaults() Options {
	if o.Strategy == nil {
		o.Strategy = clean.DefaultStrategy()
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	return o
}

// ErrMissingDataset is returned when Process is not given a dataset for
// every spec.
var ErrMissingDataset = errors.New("dataset not loaded")

// Process cleans each raw dataset according to its spec and correlates
// the maintenance and utilization results. raw is not modified.
func Process(raw map[string]*dataset.Dataset, specs []config.DatasetSpec, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: opts.Clock.Now(),
		Strategy:  opts.Strategy.Name(),
		Datasets:  make(map[string]*dataset.Dataset, len(specs)),
		Reports:   make(map[string]clean.ImputeReport, len(specs)),
	}

	for _, spec := range specs {
		d, ok := raw[spec.Name]
		if !ok || d == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingDataset, spec.Name)
		}
		monitoring.Logf("Processing %s data...", spec.Name)
		res.Order = append(res.Order, spec.Name)
		res.Datasets[spec.Name] = res.clean(d, spec, opts)
	}

	maint, util := res.Datasets[config.Maintenance], res.Datasets[config.Utilization]
	if maint != nil && util != nil {
		corr, err := correlate.Correlate(maint, util, correlate.Options{KeyColumn: clean.WeekKeyColumn})
		if err != nil {
			res.CorrelationErr = err
			res.warn(StageCorrelate, "", err)
		} else {
			res.Correlation = corr
		}
	}

	res.FinishedAt = opts.Clock.Now()
	monitoring.Logf("Processing run %s finished: %d dataset(s), correlation available: %t",
		res.RunID, len(res.Order), res.CorrelationAvailable())
	return res, nil
}

func (r *Result) clean(d *dataset.Dataset, spec config.DatasetSpec, opts Options) *dataset.Dataset {
	d = clean.NormalizeColumns(d, opts.Rules)
	d = clean.CoerceTimestamps(d, spec.DateColumns)

	d, report := opts.Strategy.Resolve(d)
	r.Reports[spec.Name] = report
	// The resolver has already logged these.
	for _, issue := range report.Issues {
		r.Warnings = append(r.Warnings, Warning{Stage: StageImpute, Dataset: spec.Name, Err: fmt.Errorf("%s: %w", issue.Column, issue.Err)})
	}

	bucketed, err := clean.AddWeekColumns(d, spec.WeekColumn)
	if err != nil {
		r.warn(StageBucket, spec.Name, err)
		return d
	}
	return bucketed
}

// Run loads the sources named by cfg from fsys and processes them.
// A missing source file aborts the run with a *source.MissingSourceError.
func Run(fsys fsutil.FileSystem, cfg *config.PipelineConfig, clock timeutil.Clock) (*Result, error) {
	strategy, err := clean.ParseStrategy(cfg.GetStrategy())
	if err != nil {
		return nil, err
	}
	specs := cfg.Datasets()

	raw, err := source.Load(fsys, cfg.GetInputDir(), specs)
	if err != nil {
		return nil, err
	}
	return Process(raw, specs, Options{Strategy: strategy, Clock: clock})
}
