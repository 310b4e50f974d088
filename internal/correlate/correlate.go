package correlate

import (
	"fmt"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/monitoring"
)

// Options selects the week key and the per-dataset aggregates. The zero
// value uses the "YearWeek" key and the default aggregates.
type Options struct {
	KeyColumn   string
	Maintenance []AggSpec
	Utilization []AggSpec
}

func (o Options) withDefaults() Options {
	if o.KeyColumn == "" {
		o.KeyColumn = "YearWeek"
	}
	if o.Maintenance == nil {
		o.Maintenance = MaintenanceAggregates
	}
	if o.Utilization == nil {
		o.Utilization = UtilizationAggregates
	}
	return o
}

// Result is the joined weekly table and its correlation matrix.
type Result struct {
	Weekly *dataset.Dataset
	Matrix *Matrix
}

// Correlate aggregates both datasets to weeks, inner-joins them and
// computes the correlation matrix of the joined table's numeric columns.
//
// A missing week key, a missing aggregate column or an empty join returns
// an error and no result. None of these are fatal to a processing run;
// callers should treat correlation metrics as unavailable.
func Correlate(maintenance, utilization *dataset.Dataset, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	if !maintenance.Has(opts.KeyColumn) || !utilization.Has(opts.KeyColumn) {
		monitoring.Warnf("%s column missing in one or both datasets", opts.KeyColumn)
		return nil, fmt.Errorf("%w: %q", ErrMissingWeekKey, opts.KeyColumn)
	}

	mWeekly, err := Weekly(maintenance, opts.KeyColumn, opts.Maintenance)
	if err != nil {
		return nil, err
	}
	uWeekly, err := Weekly(utilization, opts.KeyColumn, opts.Utilization)
	if err != nil {
		return nil, err
	}

	joined, err := InnerJoin(mWeekly, uWeekly, opts.KeyColumn)
	if err != nil {
		return nil, err
	}
	if joined.Len() == 0 {
		return nil, fmt.Errorf("%w: %d maintenance week(s), %d utilization week(s)",
			ErrEmptyJoin, mWeekly.Len(), uWeekly.Len())
	}

	monitoring.Logf("Correlation Analysis Complete (%d weeks)", joined.Len())
	return &Result{Weekly: joined, Matrix: Pearson(joined)}, nil
}
