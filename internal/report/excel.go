package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/ltr.report/internal/dataset"
)

// Report workbook sheets, in order.
const (
	SheetDataSources     = "Data_Sources"
	SheetMetrics         = "Metrics"
	SheetInsights        = "Insights"
	SheetRecommendations = "Recommendations"
)

// LTR workbook sheets, in order. Line_Items is only written for the
// Kaluza report.
const (
	SheetLineItems      = "Line_Items"
	SheetKeyUpdates     = "Key_Updates"
	SheetExecView       = "Exec_LTR_View"
	SheetRoadmapUpdates = "Roadmap_Updates"
	SheetDetailNotes    = "Detail_Notes"
	SheetDeepDives      = "Deep_Dives"
	SheetFiles          = "Files"
)

// maxSheetName is the spreadsheet limit on sheet name length, in
// characters.
const maxSheetName = 31

// WriteWorkbook writes the report as an xlsx workbook.
func WriteWorkbook(w io.Writer, s *Summary) error {
	f, err := newWorkbook(SheetDataSources, SheetMetrics, SheetInsights, SheetRecommendations)
	if err != nil {
		return err
	}
	defer f.Close()

	sources := [][]interface{}{
		{"Source", "Measure", "Value"},
		{"jira_epics", "total_records", s.Epics.Records},
		{"jira_epics", "date_range", s.Epics.DateRange()},
		{"jira_epics", "completion_rate", s.Epics.CompletionRate.Cell()},
		{"jira_epics", "avg_cycle_time", s.Epics.AvgCycleDays.Cell()},
		{"maintenance", "total_records", s.Maintenance.Records},
		{"maintenance", "total_hours", s.Maintenance.TotalHours.Cell()},
		{"maintenance", "avg_tickets_per_week", s.Maintenance.AvgTicketsPerWeek.Cell()},
		{"maintenance", "maintenance_allocation", s.Maintenance.Allocation.Cell()},
		{"utilization", "total_records", s.Utilization.Records},
		{"utilization", "avg_utilization_rate", s.Utilization.AvgUtilization.Cell()},
		{"utilization", "total_available_hours", s.Utilization.AvailableHours.Cell()},
		{"utilization", "total_utilized_hours", s.Utilization.UtilizedHours.Cell()},
	}
	if err := writeRows(f, SheetDataSources, sources); err != nil {
		return err
	}

	metrics := [][]interface{}{
		{"overall_efficiency", "maintenance_impact", "epic_completion_rate"},
		{s.Metrics.OverallEfficiency.Cell(), s.Metrics.MaintenanceImpact.Cell(), s.Metrics.EpicCompletionRate.Cell()},
	}
	if err := writeRows(f, SheetMetrics, metrics); err != nil {
		return err
	}
	if err := writeRows(f, SheetInsights, column("Insights", s.Insights)); err != nil {
		return err
	}
	if err := writeRows(f, SheetRecommendations, column("Recommendations", s.Recommendations)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteLTRWorkbook writes an LTR report as an xlsx workbook, one sheet
// per section.
func WriteLTRWorkbook(w io.Writer, l *LTR) error {
	sheets := []string{SheetKeyUpdates, SheetExecView, SheetRoadmapUpdates, SheetDetailNotes, SheetDeepDives, SheetFiles}
	if l.Format == FormatKaluza {
		sheets = append([]string{SheetLineItems}, sheets...)
	}
	f, err := newWorkbook(sheets...)
	if err != nil {
		return err
	}
	defer f.Close()

	content := map[string][][]interface{}{
		SheetExecView: {
			{"completion_rate", "avg_utilization", "maintenance_impact", "success_rate"},
			{l.Exec.CompletionRate.Cell(), l.Exec.AvgUtilization.Cell(), l.Exec.MaintenanceHours.Cell(), l.Exec.SuccessRate.Cell()},
		},
		SheetDetailNotes: column("Notes", l.DetailNotes),
		SheetFiles:       column("Files", l.Files),
	}

	items := [][]interface{}{{"description", "definition", "owner", "goal", "current_value"}}
	for _, it := range l.LineItems {
		items = append(items, []interface{}{it.Description, it.Definition, it.Owner, it.Goal, it.Current.Cell()})
	}
	content[SheetLineItems] = items

	updates := [][]interface{}{{"title", "impact", "date"}}
	for _, u := range l.KeyUpdates {
		updates = append(updates, []interface{}{u.Title, u.Impact, u.Date})
	}
	content[SheetKeyUpdates] = updates

	roadmap := [][]interface{}{{"title", "due_date", "owner", "impact"}}
	for _, r := range l.Roadmap {
		roadmap = append(roadmap, []interface{}{r.Title, r.DueDate, r.Owner, r.Impact})
	}
	content[SheetRoadmapUpdates] = roadmap

	dives := [][]interface{}{{"title", "status", "priority"}}
	for _, d := range l.DeepDives {
		dives = append(dives, []interface{}{d.Title, d.Status, d.Priority})
	}
	content[SheetDeepDives] = dives

	for _, name := range sheets {
		if err := writeRows(f, name, content[name]); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// newWorkbook creates a workbook whose sheets are named, in order, sheets.
func newWorkbook(sheets ...string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheets[0]); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	for _, name := range sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}
	return f, nil
}

// WriteDataWorkbook writes each dataset to its own sheet, named after the
// dataset. Nil datasets are skipped.
func WriteDataWorkbook(w io.Writer, datasets ...*dataset.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, d := range datasets {
		if d == nil {
			continue
		}
		name := sheetName(d.Name)
		if first {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("failed to name sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}

		rows := make([][]interface{}, 0, d.Len()+1)
		header := make([]interface{}, len(d.Columns))
		for j, c := range d.Columns {
			header[j] = c.Name
		}
		rows = append(rows, header)
		for _, row := range d.Rows {
			cells := make([]interface{}, len(row))
			for j, v := range row {
				cells[j] = cellValue(v)
			}
			rows = append(rows, cells)
		}
		if err := writeRows(f, name, rows); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func column(header string, values []string) [][]interface{} {
	rows := [][]interface{}{{header}}
	for _, v := range values {
		rows = append(rows, []interface{}{v})
	}
	return rows
}

func cellValue(v dataset.Value) interface{} {
	switch v.Kind {
	case dataset.Text:
		return v.Str
	case dataset.Number:
		return v.Num
	case dataset.Time:
		return dataset.FormatValue(v)
	default:
		return nil
	}
}

func sheetName(name string) string {
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}
