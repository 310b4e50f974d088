package report

import (
	"sort"
	"time"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/monitoring"
)

// EpicFilter selects epics. Empty value lists match anything; a zero
// From or To leaves that end of the created date range open.
type EpicFilter struct {
	Statuses   []string
	Priorities []string
	Assignees  []string
	From       time.Time
	To         time.Time
}

// IsZero reports whether the filter matches every row.
func (f EpicFilter) IsZero() bool {
	return len(f.Statuses) == 0 && len(f.Priorities) == 0 && len(f.Assignees) == 0 &&
		f.From.IsZero() && f.To.IsZero()
}

// Apply returns the rows of d that match f. Both ends of the date range
// are inclusive and compared by calendar day. A filter on a column that d
// does not have is ignored with a warning.
func (f EpicFilter) Apply(d *dataset.Dataset) *dataset.Dataset {
	out := dataset.New(d.Name, d.Columns...)

	var checks []func(row []dataset.Value) bool
	addIn := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		idx := d.Index(column)
		if idx < 0 {
			monitoring.Warnf("filter on %q ignored: column not found in %s", column, d.Name)
			return
		}
		set := make(map[string]bool, len(values))
		for _, v := range values {
			set[v] = true
		}
		checks = append(checks, func(row []dataset.Value) bool {
			return set[dataset.FormatValue(row[idx])]
		})
	}
	addIn(StatusColumn, f.Statuses)
	addIn(PriorityColumn, f.Priorities)
	addIn(AssigneeColumn, f.Assignees)

	if !f.From.IsZero() || !f.To.IsZero() {
		if idx := d.Index(CreatedColumn); idx < 0 {
			monitoring.Warnf("date filter ignored: column %q not found in %s", CreatedColumn, d.Name)
		} else {
			from, to := day(f.From), day(f.To)
			checks = append(checks, func(row []dataset.Value) bool {
				if row[idx].Kind != dataset.Time {
					return false
				}
				created := day(row[idx].Time)
				return (from.IsZero() || !created.Before(from)) && (to.IsZero() || !created.After(to))
			})
		}
	}

rows:
	for _, row := range d.Rows {
		for _, check := range checks {
			if !check(row) {
				continue rows
			}
		}
		out.AppendRow(row...)
	}
	return out
}

// Unmatched lists, as "column=value", the status, priority and assignee
// values of f that no row of d holds. Columns d lacks are skipped.
func (f EpicFilter) Unmatched(d *dataset.Dataset) []string {
	var out []string
	check := func(column string, values []string) {
		if len(values) == 0 || d == nil || !d.Has(column) {
			return
		}
		present := DistinctValues(d, column)
		for _, v := range values {
			i := sort.SearchStrings(present, v)
			if i == len(present) || present[i] != v {
				out = append(out, column+"="+v)
			}
		}
	}
	check(StatusColumn, f.Statuses)
	check(PriorityColumn, f.Priorities)
	check(AssigneeColumn, f.Assignees)
	return out
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Count is the number of rows holding one value.
type Count struct {
	Value string
	N     int
}

// ValueCounts counts the non-null values of a column, most frequent
// first and ties by value. It returns nil when the column is missing.
func ValueCounts(d *dataset.Dataset, column string) []Count {
	if d == nil {
		return nil
	}
	idx := d.Index(column)
	if idx < 0 {
		return nil
	}
	counts := map[string]int{}
	for _, row := range d.Rows {
		if row[idx].IsNull() {
			continue
		}
		counts[dataset.FormatValue(row[idx])]++
	}
	out := make([]Count, 0, len(counts))
	for v, n := range counts {
		out = append(out, Count{Value: v, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// DistinctValues returns the sorted distinct non-null values of a column.
func DistinctValues(d *dataset.Dataset, column string) []string {
	counts := ValueCounts(d, column)
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Value
	}
	sort.Strings(out)
	return out
}

// Total is the sum of a numeric column over the rows holding one value.
type Total struct {
	Value string
	Sum   float64
}

// SumBy sums column val per non-null value of column key, largest first
// and ties by value. Non-numeric cells add nothing, so a group whose
// cells are all null totals zero. It returns nil when either column is
// missing.
func SumBy(d *dataset.Dataset, key, val string) []Total {
	if d == nil {
		return nil
	}
	k, v := d.Index(key), d.Index(val)
	if k < 0 || v < 0 {
		return nil
	}
	sums := map[string]float64{}
	for _, row := range d.Rows {
		if row[k].IsNull() {
			continue
		}
		name := dataset.FormatValue(row[k])
		total := sums[name]
		if row[v].Kind == dataset.Number {
			total += row[v].Num
		}
		sums[name] = total
	}
	out := make([]Total, 0, len(sums))
	for name, s := range sums {
		out = append(out, Total{Value: name, Sum: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sum != out[j].Sum {
			return out[i].Sum > out[j].Sum
		}
		return out[i].Value < out[j].Value
	})
	return out
}
