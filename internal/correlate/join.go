package correlate

import (
	"fmt"

	"github.com/banshee-data/ltr.report/internal/dataset"
)

// InnerJoin keeps the rows of left whose key also appears in right, in
// left order, followed by every matching right row. The key column appears
// once; other columns present on both sides get "_x" and "_y" suffixes.
func InnerJoin(left, right *dataset.Dataset, key string) (*dataset.Dataset, error) {
	lk, rk := left.Index(key), right.Index(key)
	if lk < 0 {
		return nil, fmt.Errorf("%s: %w", left.Name, ErrMissingWeekKey)
	}
	if rk < 0 {
		return nil, fmt.Errorf("%s: %w", right.Name, ErrMissingWeekKey)
	}

	shared := make(map[string]bool)
	for j, c := range left.Columns {
		if j != lk && right.Has(c.Name) && c.Name != key {
			shared[c.Name] = true
		}
	}
	cols := []dataset.Column{left.Columns[lk]}
	for j, c := range left.Columns {
		if j == lk {
			continue
		}
		if shared[c.Name] {
			c.Name += "_x"
		}
		cols = append(cols, c)
	}
	for j, c := range right.Columns {
		if j == rk {
			continue
		}
		if shared[c.Name] {
			c.Name += "_y"
		}
		cols = append(cols, c)
	}

	byKey := make(map[string][]int)
	for i, row := range right.Rows {
		if k := row[rk]; k.Kind == dataset.Text {
			byKey[k.Str] = append(byKey[k.Str], i)
		}
	}

	out := dataset.New("correlation", cols...)
	for _, lrow := range left.Rows {
		k := lrow[lk]
		if k.Kind != dataset.Text {
			continue
		}
		for _, ri := range byKey[k.Str] {
			rrow := right.Rows[ri]
			row := make([]dataset.Value, 0, len(cols))
			row = append(row, k)
			for j, v := range lrow {
				if j != lk {
					row = append(row, v)
				}
			}
			for j, v := range rrow {
				if j != rk {
					row = append(row, v)
				}
			}
			out.AppendRow(row...)
		}
	}
	return out, nil
}
