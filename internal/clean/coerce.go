package clean

import (
	"strings"
	"time"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/monitoring"
)

// timeLayouts are tried in order. Jira exports use the millisecond
// "+0000" form; Dataverse exports use US dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"02-Jan-2006",
	"02/Jan/06 3:04 PM",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseTime parses s with the first matching known layout.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceTimestamps returns a copy of d in which each named column that
// exists has been parsed into timestamps. Cells that do not parse become
// null; names that are not columns of d are skipped.
func CoerceTimestamps(d *dataset.Dataset, columns []string) *dataset.Dataset {
	out := d.Clone()
	for _, name := range columns {
		idx := out.Index(name)
		if idx < 0 {
			continue
		}
		failed := 0
		for _, row := range out.Rows {
			v := row[idx]
			switch v.Kind {
			case dataset.Time, dataset.Null:
				continue
			case dataset.Text:
				if t, ok := ParseTime(v.Str); ok {
					row[idx] = dataset.TimeValue(t)
					continue
				}
			}
			row[idx] = dataset.NullValue()
			failed++
		}
		out.Columns[idx].Type = dataset.Time
		if failed > 0 {
			monitoring.Warnf("%s: %d value(s) in '%s' could not be parsed and were set to null", d.Name, failed, name)
		}
		monitoring.Logf("Converted column '%s' to datetime", name)
	}
	return out
}
