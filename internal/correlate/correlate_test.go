package correlate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ltr.report/internal/clean"
	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/testutil"
)

func bucketed(t *testing.T, name, doc, dateCol string) *dataset.Dataset {
	t.Helper()
	d := clean.CoerceTimestamps(testutil.CSV(t, name, doc), []string{dateCol})
	out, err := clean.AddWeekColumns(d, dateCol)
	require.NoError(t, err)
	return out
}

func TestWeekly_SumAndMean(t *testing.T) {
	testutil.MuteLogs(t)
	m := bucketed(t, "maintenance", testutil.MaintenanceCSV, "created")

	w, err := Weekly(m, "YearWeek", MaintenanceAggregates)
	require.NoError(t, err)

	assert.Equal(t, []string{"YearWeek", "SumMaintenance_Hours", "Total_Maintenance_Tickets_By_Week", "Maintenance_Time_Allocation_Percentage"}, w.ColumnNames())
	require.Equal(t, 3, w.Len())
	assert.Equal(t, "202502", w.Rows[0][0].Str)
	assert.Equal(t, 6.0, w.Rows[0][1].Num)
	assert.Equal(t, 4.0, w.Rows[0][2].Num)
	assert.InDelta(t, 0.3, w.Rows[0][3].Num, 1e-12)
	assert.Equal(t, "202504", w.Rows[2][0].Str)
}

func TestWeekly_NullHandling(t *testing.T) {
	d := dataset.New("x",
		dataset.Column{Name: "YearWeek", Type: dataset.Text},
		dataset.Column{Name: "v", Type: dataset.Number},
	)
	d.AppendRow(dataset.TextValue("202501"), dataset.NullValue())
	d.AppendRow(dataset.NullValue(), dataset.NumberValue(100))

	w, err := Weekly(d, "YearWeek", []AggSpec{{Column: "v", Func: Sum}})
	require.NoError(t, err)
	require.Equal(t, 1, w.Len(), "rows without a week key are excluded")
	assert.Equal(t, dataset.NumberValue(0), w.Rows[0][1])

	w, err = Weekly(d, "YearWeek", []AggSpec{{Column: "v", Func: Mean}})
	require.NoError(t, err)
	assert.True(t, w.Rows[0][1].IsNull())
}

func TestWeekly_MissingColumn(t *testing.T) {
	d := dataset.New("x", dataset.Column{Name: "YearWeek", Type: dataset.Text}, dataset.Column{Name: "label", Type: dataset.Text})

	_, err := Weekly(d, "YearWeek", []AggSpec{{Column: "absent"}})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Weekly(d, "YearWeek", []AggSpec{{Column: "label"}})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Weekly(d, "Week", nil)
	assert.ErrorIs(t, err, ErrMissingWeekKey)
}

func weekly(keys []string, col string, vals []float64) *dataset.Dataset {
	d := dataset.New(col,
		dataset.Column{Name: "YearWeek", Type: dataset.Text},
		dataset.Column{Name: col, Type: dataset.Number},
	)
	for i, k := range keys {
		d.AppendRow(dataset.TextValue(k), dataset.NumberValue(vals[i]))
	}
	return d
}

func TestInnerJoin_OnlySharedWeeksSurvive(t *testing.T) {
	left := weekly([]string{"202501", "202502"}, "hours", []float64{1, 2})
	right := weekly([]string{"202502", "202503"}, "runtime", []float64{20, 30})

	j, err := InnerJoin(left, right, "YearWeek")
	require.NoError(t, err)

	want := [][]dataset.Value{{dataset.TextValue("202502"), dataset.NumberValue(2), dataset.NumberValue(20)}}
	if diff := cmp.Diff(want, j.Rows); diff != "" {
		t.Errorf("join rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"YearWeek", "hours", "runtime"}, j.ColumnNames())
}

func TestInnerJoin_SuffixesSharedColumns(t *testing.T) {
	left := weekly([]string{"202501"}, "v", []float64{1})
	right := weekly([]string{"202501"}, "v", []float64{2})

	j, err := InnerJoin(left, right, "YearWeek")
	require.NoError(t, err)
	assert.Equal(t, []string{"YearWeek", "v_x", "v_y"}, j.ColumnNames())
}

func TestPearson_BoundsAndDiagonal(t *testing.T) {
	d := dataset.New("w",
		dataset.Column{Name: "YearWeek", Type: dataset.Text},
		dataset.Column{Name: "a", Type: dataset.Number},
		dataset.Column{Name: "b", Type: dataset.Number},
		dataset.Column{Name: "c", Type: dataset.Number},
	)
	rows := [][3]float64{{1, 2, 9}, {2, 4, 7}, {3, 6, 8}, {4, 8, 1}}
	for i, r := range rows {
		d.AppendRow(dataset.TextValue(string(rune('a'+i))), dataset.NumberValue(r[0]), dataset.NumberValue(r[1]), dataset.NumberValue(r[2]))
	}

	m := Pearson(d)
	require.Equal(t, []string{"a", "b", "c"}, m.Labels)
	for i := 0; i < m.Size(); i++ {
		assert.Equal(t, 1.0, m.At(i, i))
		for j := 0; j < m.Size(); j++ {
			v := m.At(i, j)
			assert.GreaterOrEqual(t, v, -1.0)
			assert.LessOrEqual(t, v, 1.0)
			assert.Equal(t, v, m.At(j, i), "symmetric")
		}
	}
	ab, ok := m.Get("a", "b")
	require.True(t, ok)
	assert.InDelta(t, 1.0, ab, 1e-12)
	ac, _ := m.Get("a", "c")
	assert.Less(t, ac, 0.0)

	_, ok = m.Get("a", "missing")
	assert.False(t, ok)
}

func TestPearson_PairwiseCompleteAndUndefined(t *testing.T) {
	d := dataset.New("w",
		dataset.Column{Name: "x", Type: dataset.Number},
		dataset.Column{Name: "y", Type: dataset.Number},
		dataset.Column{Name: "flat", Type: dataset.Number},
	)
	d.AppendRow(dataset.NumberValue(1), dataset.NumberValue(10), dataset.NumberValue(5))
	d.AppendRow(dataset.NumberValue(2), dataset.NullValue(), dataset.NumberValue(5))
	d.AppendRow(dataset.NumberValue(3), dataset.NumberValue(30), dataset.NumberValue(5))
	d.AppendRow(dataset.NullValue(), dataset.NumberValue(40), dataset.NumberValue(5))

	m := Pearson(d)
	xy, _ := m.Get("x", "y")
	assert.InDelta(t, 1.0, xy, 1e-12, "uses rows 1 and 3 only")

	flat, _ := m.Get("flat", "flat")
	assert.True(t, math.IsNaN(flat), "constant column has no defined correlation")
}

func TestPearson_NoNumericColumns(t *testing.T) {
	m := Pearson(dataset.New("w", dataset.Column{Name: "YearWeek", Type: dataset.Text}))
	assert.Zero(t, m.Size())
	assert.Nil(t, m.Coef)
}

func TestCorrelate(t *testing.T) {
	testutil.MuteLogs(t)
	m := bucketed(t, "maintenance", testutil.MaintenanceCSV, "created")
	u := bucketed(t, "utilization", testutil.UtilizationCSV, "Created On")

	res, err := Correlate(m, u, Options{})
	require.NoError(t, err)

	require.Equal(t, 3, res.Weekly.Len())
	assert.Len(t, res.Weekly.Columns, 1+len(MaintenanceAggregates)+len(UtilizationAggregates))
	assert.Equal(t, len(MaintenanceAggregates)+len(UtilizationAggregates), res.Matrix.Size())

	hoursRuntime, ok := res.Matrix.Get("SumMaintenance_Hours", "SumRuntime_duration__mins_")
	require.True(t, ok)
	assert.False(t, math.IsNaN(hoursRuntime))
}

func TestCorrelate_Preconditions(t *testing.T) {
	testutil.MuteLogs(t)
	m := bucketed(t, "maintenance", testutil.MaintenanceCSV, "created")
	raw := testutil.CSV(t, "utilization", testutil.UtilizationCSV)

	_, err := Correlate(m, raw, Options{})
	assert.ErrorIs(t, err, ErrMissingWeekKey)

	later := bucketed(t, "utilization", "Created On,SumRuntime_duration__mins_,Machine_Utilization__,Idle_Percentage__,Desktop_Flow_Success_Rate_Goal,Desktop_Run_Percent_Success\n2026-06-01,1,1,1,1,1\n", "Created On")
	_, err = Correlate(m, later, Options{})
	assert.ErrorIs(t, err, ErrEmptyJoin)
}
