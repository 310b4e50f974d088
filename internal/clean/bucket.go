package clean

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/monitoring"
)

// Derived column names.
const (
	YearColumn    = "Year"
	WeekColumn    = "Week"
	WeekKeyColumn = "YearWeek"
)

var (
	// ErrColumnNotFound is returned when the bucketing column is absent.
	ErrColumnNotFound = errors.New("column not found")
	// ErrNotTimestamp is returned when the bucketing column is not a
	// timestamp column.
	ErrNotTimestamp = errors.New("column is not in datetime format")
)

// WeekKey formats the ISO year and zero-padded ISO week of t, e.g. "202503".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d%02d", year, week)
}

// AddWeekColumns returns a copy of d with Year, Week and YearWeek derived
// from the ISO calendar of column. Rows whose timestamp is null get null in
// all three columns and take no part in weekly aggregation.
//
// When column is missing or not a timestamp column, d is returned unchanged
// together with a warning error; the caller decides whether to continue.
func AddWeekColumns(d *dataset.Dataset, column string) (*dataset.Dataset, error) {
	idx := d.Index(column)
	if idx < 0 {
		monitoring.Warnf("Column '%s' not found in %s", column, d.Name)
		return d, fmt.Errorf("%s: %w: %q", d.Name, ErrColumnNotFound, column)
	}
	if d.Columns[idx].Type != dataset.Time {
		monitoring.Warnf("Column '%s' is not in datetime format", column)
		return d, fmt.Errorf("%s: %w: %q", d.Name, ErrNotTimestamp, column)
	}

	out := d.Clone()
	years := make([]dataset.Value, out.Len())
	weeks := make([]dataset.Value, out.Len())
	keys := make([]dataset.Value, out.Len())
	for i, row := range out.Rows {
		if row[idx].Kind != dataset.Time {
			continue
		}
		year, week := row[idx].Time.ISOWeek()
		years[i] = dataset.NumberValue(float64(year))
		weeks[i] = dataset.NumberValue(float64(week))
		keys[i] = dataset.TextValue(WeekKey(row[idx].Time))
	}
	out.SetColumn(YearColumn, dataset.Number, years)
	out.SetColumn(WeekColumn, dataset.Number, weeks)
	out.SetColumn(WeekKeyColumn, dataset.Text, keys)

	monitoring.Logf("Created week columns based on '%s'", column)
	return out, nil
}
