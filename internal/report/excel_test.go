package report

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/source"
	"github.com/banshee-data/ltr.report/internal/testutil"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteWorkbook(t *testing.T) {
	s := Build(processed(t, true), reportDate)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, s))
	f := openWorkbook(t, buf.Bytes())

	assert.Equal(t, []string{SheetDataSources, SheetMetrics, SheetInsights, SheetRecommendations}, f.GetSheetList())

	sources, err := f.GetRows(SheetDataSources)
	require.NoError(t, err)
	assert.Equal(t, []string{"Source", "Measure", "Value"}, sources[0])
	assert.Equal(t, []string{"jira_epics", "total_records", "4"}, sources[1])
	assert.Equal(t, []string{"jira_epics", "date_range", "2025-01-02 to 2025-02-03"}, sources[2])
	assert.Equal(t, []string{"maintenance", "total_hours", "13"}, sources[6])

	efficiency, err := f.GetCellValue(SheetMetrics, "A2")
	require.NoError(t, err)
	v, err := strconv.ParseFloat(efficiency, 64)
	require.NoError(t, err)
	assert.InDelta(t, 57.5, v, 1e-9)

	insights, err := f.GetRows(SheetInsights)
	require.NoError(t, err)
	assert.Len(t, insights, 4)

	recs, err := f.GetRows(SheetRecommendations)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "Recommendations", recs[0][0])
	assert.Equal(t, Recommendations[0], recs[1][0])
}

func TestWriteWorkbook_UnavailableMetricsAreBlank(t *testing.T) {
	s := Build(&source.Processed{}, reportDate)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, s))
	f := openWorkbook(t, buf.Bytes())

	for _, cell := range []string{"A2", "B2", "C2"} {
		v, err := f.GetCellValue(SheetMetrics, cell)
		require.NoError(t, err)
		assert.Empty(t, v, cell)
	}
	insights, err := f.GetRows(SheetInsights)
	require.NoError(t, err)
	assert.Len(t, insights, 1, "header only")
}

func TestWriteDataWorkbook(t *testing.T) {
	p := processed(t, true)

	var buf bytes.Buffer
	require.NoError(t, WriteDataWorkbook(&buf,
		p.Dataset(config.Epics), p.Dataset(config.Maintenance), nil, p.Weekly))
	f := openWorkbook(t, buf.Bytes())

	assert.Equal(t, []string{"epics", "maintenance", "correlation"}, f.GetSheetList())

	rows, err := f.GetRows("maintenance")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, p.Dataset(config.Maintenance).ColumnNames(), rows[0])
	assert.Equal(t, []string{"2025-01-06 00:00:00", "Bug", "High", "4", "3", "0.2"}, rows[1])

	week, err := f.GetCellValue("correlation", "A2")
	require.NoError(t, err)
	assert.Equal(t, "202502", week)

	// Null cells are left empty.
	epics, err := f.GetRows("epics")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-02-03 00:00:00", "To Do", "High", "Cy", "", "", "", "Vendor onboarding", "2025-03-01 00:00:00"}, epics[4])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet", sheetName(""))
	assert.Equal(t, "epics", sheetName("epics"))
	assert.Len(t, sheetName("a_very_long_dataset_name_that_overflows"), maxSheetName)

	long := sheetName(strings.Repeat("é", 40))
	assert.True(t, utf8.ValidString(long))
	assert.Equal(t, maxSheetName, utf8.RuneCountInString(long))
}

func TestCellValue(t *testing.T) {
	assert.Nil(t, cellValue(dataset.NullValue()))
	assert.Equal(t, 1.5, cellValue(dataset.NumberValue(1.5)))
	assert.Equal(t, "Done", cellValue(dataset.TextValue("Done")))
	assert.Equal(t, "2025-01-06 00:00:00", cellValue(dataset.TimeValue(testutil.Date(2025, 1, 6))))
}
