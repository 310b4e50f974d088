package clean

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/monitoring"
)

// UnknownCategory fills missing text cells.
const UnknownCategory = "Unknown"

// ErrAllNull marks a numeric column that has no values to derive a fill
// value from. The column is left as-is and must be treated as a data
// quality problem by the caller.
var ErrAllNull = errors.New("numeric column has no non-null values")

// ErrUnknownStrategy is returned by ParseStrategy.
var ErrUnknownStrategy = errors.New("unknown missing-value strategy")

// NumericImputationPolicy derives the fill value for a numeric column from
// its non-null values.
type NumericImputationPolicy interface {
	Name() string
	FillValue(values []float64) (float64, error)
}

// CategoricalImputationPolicy derives the fill value for a text column.
type CategoricalImputationPolicy interface {
	FillText(values []string) string
}

// MedianPolicy fills with the median; an even count averages the two
// middle values.
type MedianPolicy struct{}

func (MedianPolicy) Name() string { return "median" }

func (MedianPolicy) FillValue(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrAllNull
	}
	return Median(values), nil
}

// MeanPolicy fills with the arithmetic mean.
type MeanPolicy struct{}

func (MeanPolicy) Name() string { return "mean" }

func (MeanPolicy) FillValue(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrAllNull
	}
	return stat.Mean(values, nil), nil
}

// ConstantCategory fills every missing text cell with Value.
type ConstantCategory struct {
	Value string
}

func (c ConstantCategory) FillText([]string) string { return c.Value }

// Median returns the median of values without modifying the slice.
func Median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// ColumnIssue is a column the resolver could not fill.
type ColumnIssue struct {
	Column string
	Err    error
}

// ImputeReport summarises what a resolver did.
type ImputeReport struct {
	Strategy     string
	MissingByCol map[string]int
	Filled       []string
	Issues       []ColumnIssue
	RowsBefore   int
	RowsAfter    int
}

// ImputationStrategy resolves the missing values of a dataset.
type ImputationStrategy interface {
	Name() string
	Resolve(d *dataset.Dataset) (*dataset.Dataset, ImputeReport)
}

// ParseStrategy maps "median", "mean" or "drop" to a strategy.
func ParseStrategy(name string) (ImputationStrategy, error) {
	switch name {
	case "", "median":
		return Fill{Numeric: MedianPolicy{}, Categorical: ConstantCategory{Value: UnknownCategory}}, nil
	case "mean":
		return Fill{Numeric: MeanPolicy{}, Categorical: ConstantCategory{Value: UnknownCategory}}, nil
	case "drop":
		return Drop{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// DefaultStrategy fills with medians and "Unknown".
func DefaultStrategy() ImputationStrategy {
	s, _ := ParseStrategy("median")
	return s
}

// Drop removes every row holding at least one null, timestamps included.
type Drop struct{}

func (Drop) Name() string { return "drop" }

func (Drop) Resolve(d *dataset.Dataset) (*dataset.Dataset, ImputeReport) {
	rep := newReport("drop", d)
	out := d.Clone()
	kept := out.Rows[:0]
	for _, row := range out.Rows {
		complete := true
		for _, v := range row {
			if v.IsNull() {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, row)
		}
	}
	out.Rows = kept
	rep.RowsAfter = len(kept)
	monitoring.Logf("Dropped rows with missing values. Remaining rows: %d", rep.RowsAfter)
	return out, rep
}

// Fill imputes numeric columns with Numeric and text columns with
// Categorical. Timestamp columns are never filled.
type Fill struct {
	Numeric     NumericImputationPolicy
	Categorical CategoricalImputationPolicy
}

func (f Fill) Name() string { return f.Numeric.Name() }

func (f Fill) Resolve(d *dataset.Dataset) (*dataset.Dataset, ImputeReport) {
	rep := newReport(f.Name(), d)
	out := d.Clone()

	for j, col := range out.Columns {
		if out.NullCount(j) == 0 {
			continue
		}
		switch col.Type {
		case dataset.Number:
			fill, err := f.Numeric.FillValue(out.NumbersAt(j))
			if err != nil {
				rep.Issues = append(rep.Issues, ColumnIssue{Column: col.Name, Err: err})
				monitoring.Warnf("%s: cannot fill '%s': %v", d.Name, col.Name, err)
				continue
			}
			fillColumn(out, j, dataset.NumberValue(fill))
			monitoring.Logf("  Filled '%s' missing values with %s", col.Name, f.Numeric.Name())
		case dataset.Text:
			fill := f.Categorical.FillText(textValues(out, j))
			fillColumn(out, j, dataset.TextValue(fill))
			monitoring.Logf("  Filled '%s' missing values with '%s'", col.Name, fill)
		default:
			continue
		}
		rep.Filled = append(rep.Filled, col.Name)
	}
	rep.RowsAfter = out.Len()
	return out, rep
}

func newReport(strategy string, d *dataset.Dataset) ImputeReport {
	rep := ImputeReport{
		Strategy:     strategy,
		MissingByCol: make(map[string]int),
		RowsBefore:   d.Len(),
	}
	monitoring.Logf("Missing values per column:")
	for j, col := range d.Columns {
		if n := d.NullCount(j); n > 0 {
			rep.MissingByCol[col.Name] = n
			monitoring.Logf("  %s: %d", col.Name, n)
		}
	}
	return rep
}

func fillColumn(d *dataset.Dataset, idx int, v dataset.Value) {
	for _, row := range d.Rows {
		if row[idx].IsNull() {
			row[idx] = v
		}
	}
}

func textValues(d *dataset.Dataset, idx int) []string {
	var out []string
	for _, row := range d.Rows {
		if row[idx].Kind == dataset.Text {
			out = append(out, row[idx].Str)
		}
	}
	return out
}
