package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/testutil"
)

func keys(t *testing.T, d *dataset.Dataset) []string {
	t.Helper()
	idx := d.Index(CreatedColumn)
	require.GreaterOrEqual(t, idx, 0)
	var out []string
	for _, row := range d.Rows {
		out = append(out, row[idx].Time.Format("01-02"))
	}
	return out
}

func TestEpicFilter(t *testing.T) {
	epics := processed(t, false).Dataset(config.Epics)

	tests := []struct {
		name   string
		filter EpicFilter
		want   []string
	}{
		{name: "zero filter keeps everything", want: []string{"01-02", "01-09", "01-20", "02-03"}},
		{name: "status", filter: EpicFilter{Statuses: []string{"Done"}}, want: []string{"01-02", "01-20"}},
		{name: "several statuses", filter: EpicFilter{Statuses: []string{"Done", "To Do"}}, want: []string{"01-02", "01-20", "02-03"}},
		{name: "assignee and priority", filter: EpicFilter{Assignees: []string{"Ana"}, Priorities: []string{"Low"}}, want: []string{"01-20"}},
		{name: "inclusive range", filter: EpicFilter{From: testutil.Date(2025, 1, 9), To: testutil.Date(2025, 1, 20)}, want: []string{"01-09", "01-20"}},
		{name: "open start", filter: EpicFilter{To: testutil.Date(2025, 1, 9)}, want: []string{"01-02", "01-09"}},
		{name: "open end", filter: EpicFilter{From: testutil.Date(2025, 1, 21)}, want: []string{"02-03"}},
		{name: "nothing matches", filter: EpicFilter{Statuses: []string{"Cancelled"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(epics)
			assert.Equal(t, tt.want, keys(t, got))
			assert.Equal(t, epics.ColumnNames(), got.ColumnNames())
		})
	}
	assert.Equal(t, 4, epics.Len(), "input is not modified")
}

func TestEpicFilter_RangeComparesCalendarDays(t *testing.T) {
	d := dataset.New("epics", dataset.Column{Name: CreatedColumn, Type: dataset.Time})
	d.AppendRow(dataset.TimeValue(time.Date(2025, 1, 20, 23, 59, 0, 0, time.UTC)))

	got := EpicFilter{From: testutil.Date(2025, 1, 20), To: testutil.Date(2025, 1, 20)}.Apply(d)
	assert.Equal(t, 1, got.Len())
}

func TestEpicFilter_MissingColumnIsIgnored(t *testing.T) {
	testutil.MuteLogs(t)
	d := testutil.CSV(t, "epics", "Status\nDone\nTo Do\n")

	got := EpicFilter{Statuses: []string{"Done"}, Assignees: []string{"Ana"}, From: testutil.Date(2025, 1, 1)}.Apply(d)
	assert.Equal(t, 1, got.Len())
}

func TestEpicFilter_NullCreatedFailsDateRange(t *testing.T) {
	d := dataset.New("epics",
		dataset.Column{Name: CreatedColumn, Type: dataset.Time},
		dataset.Column{Name: StatusColumn, Type: dataset.Text},
	)
	d.AppendRow(dataset.NullValue(), dataset.TextValue("Done"))

	assert.Equal(t, 1, EpicFilter{Statuses: []string{"Done"}}.Apply(d).Len())
	assert.Equal(t, 0, EpicFilter{From: testutil.Date(2025, 1, 1)}.Apply(d).Len())
}

func TestValueCounts(t *testing.T) {
	epics := processed(t, false).Dataset(config.Epics)

	assert.Equal(t, []Count{{"Done", 2}, {"In Progress", 1}, {"To Do", 1}}, ValueCounts(epics, StatusColumn))
	assert.Equal(t, []Count{{"High", 2}, {"Low", 1}, {"Medium", 1}}, ValueCounts(epics, PriorityColumn))
	assert.Nil(t, ValueCounts(epics, "missing"))
	assert.Nil(t, ValueCounts(nil, StatusColumn))

	assert.Equal(t, []string{"Ana", "Ben", "Cy"}, DistinctValues(epics, AssigneeColumn))
	assert.Empty(t, DistinctValues(epics, "missing"))
}

func TestEpicFilter_Unmatched(t *testing.T) {
	epics := processed(t, false).Dataset(config.Epics)

	f := EpicFilter{
		Statuses:   []string{"Done", "Blocked"},
		Priorities: []string{"High"},
		Assignees:  []string{"Dee"},
	}
	assert.Equal(t, []string{"Status=Blocked", "Assignee=Dee"}, f.Unmatched(epics))
	assert.Empty(t, EpicFilter{Statuses: []string{"Done"}}.Unmatched(epics))
	assert.Empty(t, f.Unmatched(testutil.CSV(t, "epics", "created\n2025-01-01\n")))
}
