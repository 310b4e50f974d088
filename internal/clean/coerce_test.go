package clean

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/testutil"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-15", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-01-15 10:30:00", time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2025-01-15T10:30:00Z", time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2025-01-15T10:30:00.000+0000", time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"01/15/2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"1/5/2025 3:04:05 PM", time.Date(2025, 1, 5, 15, 4, 5, 0, time.UTC)},
		{"15-Jan-2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"Jan 15, 2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTime(tt.in)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}

	for _, bad := range []string{"", "not a date", "2025-13-45", "yesterday"} {
		_, ok := ParseTime(bad)
		assert.False(t, ok, "ParseTime(%q) should fail", bad)
	}
}

func TestCoerceTimestamps_BadValuesBecomeNull(t *testing.T) {
	testutil.MuteLogs(t)
	raw := testutil.CSV(t, "epics", "created,duedate,Status\n"+
		"2025-01-02,garbage,Done\n"+
		"not-a-date,2025-02-01,Open\n"+
		",,Open\n")

	out := CoerceTimestamps(raw, []string{"created", "duedate", "Start Date"})

	require.Equal(t, raw.Len(), out.Len())
	assert.Equal(t, dataset.Time, out.Columns[0].Type)
	assert.Equal(t, dataset.Time, out.Columns[1].Type)
	assert.Equal(t, dataset.Text, out.Columns[2].Type)

	assert.Equal(t, dataset.Time, out.Rows[0][0].Kind)
	assert.True(t, out.Rows[0][1].IsNull())
	assert.True(t, out.Rows[1][0].IsNull())
	assert.Equal(t, dataset.Time, out.Rows[1][1].Kind)
	assert.True(t, out.Rows[2][0].IsNull())

	// input untouched
	assert.Equal(t, dataset.Text, raw.Columns[0].Type)
	assert.Equal(t, dataset.TextValue("2025-01-02"), raw.Rows[0][0])
}

func TestCoerceTimestamps_NumericCellsBecomeNull(t *testing.T) {
	testutil.MuteLogs(t)
	raw := testutil.CSV(t, "x", "Date\n20250101\n5\n")

	out := CoerceTimestamps(raw, []string{"Date"})
	assert.Equal(t, 2, out.NullCount(0))
	assert.Equal(t, 2, out.Len())
}

func TestCoerceTimestamps_AlreadyTyped(t *testing.T) {
	testutil.MuteLogs(t)
	raw := testutil.CSV(t, "x", "created\n2025-01-02\n")
	once := CoerceTimestamps(raw, []string{"created"})
	twice := CoerceTimestamps(once, []string{"created"})

	assert.True(t, once.Rows[0][0].Time.Equal(twice.Rows[0][0].Time))
}
