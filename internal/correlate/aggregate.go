// Package correlate rolls the maintenance and utilization datasets up to
// ISO weeks, joins them on the week key and computes the Pearson
// correlation matrix of the joined weekly table.
package correlate

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ltr.report/internal/dataset"
)

var (
	// ErrMissingWeekKey is returned when an input has no week key column.
	ErrMissingWeekKey = errors.New("week key column missing")
	// ErrMissingColumn is returned when an aggregated column is absent or
	// not numeric.
	ErrMissingColumn = errors.New("aggregate column missing or not numeric")
	// ErrEmptyJoin is returned when no week is present in both inputs.
	ErrEmptyJoin = errors.New("no overlapping weeks between datasets")
)

// AggFunc reduces the values of one week.
type AggFunc int

const (
	Sum AggFunc = iota
	Mean
)

func (f AggFunc) String() string {
	if f == Mean {
		return "mean"
	}
	return "sum"
}

// AggSpec names a column and how it is reduced per week.
type AggSpec struct {
	Column string
	Func   AggFunc
}

// MaintenanceAggregates are the weekly maintenance measures.
var MaintenanceAggregates = []AggSpec{
	{Column: "SumMaintenance_Hours", Func: Sum},
	{Column: "Total_Maintenance_Tickets_By_Week", Func: Mean},
	{Column: "Maintenance_Time_Allocation_Percentage", Func: Mean},
}

// UtilizationAggregates are the weekly utilization measures.
var UtilizationAggregates = []AggSpec{
	{Column: "SumRuntime_duration__mins_", Func: Sum},
	{Column: "Machine_Utilization__", Func: Mean},
	{Column: "Idle_Percentage__", Func: Mean},
	{Column: "Desktop_Flow_Success_Rate_Goal", Func: Mean},
	{Column: "Desktop_Run_Percent_Success", Func: Mean},
}

// Weekly groups d by keyColumn and reduces each spec column. Rows with a
// null key are skipped. Output rows are sorted by key; the key column is
// first, followed by one Number column per spec in order.
//
// A week whose values for a column are all null sums to 0 and has a null
// mean.
func Weekly(d *dataset.Dataset, keyColumn string, specs []AggSpec) (*dataset.Dataset, error) {
	keyIdx := d.Index(keyColumn)
	if keyIdx < 0 {
		return nil, fmt.Errorf("%s: %w", d.Name, ErrMissingWeekKey)
	}

	colIdx := make([]int, len(specs))
	for i, s := range specs {
		idx := d.Index(s.Column)
		if idx < 0 || d.Columns[idx].Type != dataset.Number {
			return nil, fmt.Errorf("%s: %w: %q", d.Name, ErrMissingColumn, s.Column)
		}
		colIdx[i] = idx
	}

	groups := make(map[string][][]float64)
	for _, row := range d.Rows {
		key := row[keyIdx]
		if key.Kind != dataset.Text {
			continue
		}
		vals, ok := groups[key.Str]
		if !ok {
			vals = make([][]float64, len(specs))
		}
		for i, idx := range colIdx {
			if row[idx].Kind == dataset.Number {
				vals[i] = append(vals[i], row[idx].Num)
			}
		}
		groups[key.Str] = vals
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := []dataset.Column{{Name: keyColumn, Type: dataset.Text}}
	for _, s := range specs {
		cols = append(cols, dataset.Column{Name: s.Column, Type: dataset.Number})
	}
	out := dataset.New(d.Name+"_weekly", cols...)
	for _, k := range keys {
		row := []dataset.Value{dataset.TextValue(k)}
		for i, s := range specs {
			row = append(row, reduce(s.Func, groups[k][i]))
		}
		out.AppendRow(row...)
	}
	return out, nil
}

func reduce(f AggFunc, vals []float64) dataset.Value {
	switch f {
	case Mean:
		if len(vals) == 0 {
			return dataset.NullValue()
		}
		return dataset.NumberValue(stat.Mean(vals, nil))
	default:
		return dataset.NumberValue(floats.Sum(vals))
	}
}
