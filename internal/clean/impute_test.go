package clean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/testutil"
)

const gappyCSV = "created,Hours,Team,Score\n" +
	"2025-01-01,1,Ops,10\n" +
	"2025-01-02,,Dev,20\n" +
	",3,,30\n" +
	"2025-01-04,10,Ops,\n"

func gappy(t *testing.T) *dataset.Dataset {
	t.Helper()
	return CoerceTimestamps(testutil.CSV(t, "gappy", gappyCSV), []string{"created"})
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))

	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in, "Median must not reorder its input")
}

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{"median", "mean", "drop"} {
		s, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, "median", s.Name())

	_, err = ParseStrategy("mode")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestFill_Median(t *testing.T) {
	testutil.MuteLogs(t)
	in := gappy(t)

	out, rep := DefaultStrategy().Resolve(in)

	assert.Equal(t, 3.0, out.Rows[1][1].Num, "median of 1,3,10")
	assert.Equal(t, dataset.TextValue(UnknownCategory), out.Rows[2][2])
	assert.Equal(t, 20.0, out.Rows[3][3].Num, "median of 10,20,30")
	assert.True(t, out.Rows[2][0].IsNull(), "timestamps are exempt")

	assert.Equal(t, map[string]int{"created": 1, "Hours": 1, "Team": 1, "Score": 1}, rep.MissingByCol)
	assert.ElementsMatch(t, []string{"Hours", "Team", "Score"}, rep.Filled)
	assert.Equal(t, 4, rep.RowsAfter)

	// input untouched
	assert.True(t, in.Rows[1][1].IsNull())
}

func TestFill_Mean(t *testing.T) {
	testutil.MuteLogs(t)
	s, err := ParseStrategy("mean")
	require.NoError(t, err)

	out, _ := s.Resolve(gappy(t))
	assert.InDelta(t, 14.0/3.0, out.Rows[1][1].Num, 1e-12)
}

func TestFill_Completeness(t *testing.T) {
	testutil.MuteLogs(t)
	for _, name := range []string{"median", "mean"} {
		t.Run(name, func(t *testing.T) {
			s, err := ParseStrategy(name)
			require.NoError(t, err)
			out, _ := s.Resolve(gappy(t))
			for j, col := range out.Columns {
				if col.Type == dataset.Time {
					continue
				}
				assert.Zero(t, out.NullCount(j), "column %s still has nulls", col.Name)
			}
		})
	}
}

func TestFill_AllNullNumericColumnReported(t *testing.T) {
	testutil.MuteLogs(t)
	in := testutil.CSV(t, "x", "Empty,Name\n,a\n,\n")

	out, rep := DefaultStrategy().Resolve(in)

	require.Len(t, rep.Issues, 1)
	assert.Equal(t, "Empty", rep.Issues[0].Column)
	assert.ErrorIs(t, rep.Issues[0].Err, ErrAllNull)
	assert.Equal(t, 2, out.NullCount(0))
	assert.Zero(t, out.NullCount(1))
}

func TestDrop(t *testing.T) {
	testutil.MuteLogs(t)
	s, err := ParseStrategy("drop")
	require.NoError(t, err)

	in := gappy(t)
	out, rep := s.Resolve(in)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, 1.0, out.Rows[0][1].Num)
	assert.Equal(t, 4, rep.RowsBefore)
	assert.Equal(t, 1, rep.RowsAfter)
	assert.Equal(t, 4, in.Len())
}
