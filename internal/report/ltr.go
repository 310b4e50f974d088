package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/source"
)

// Format selects which report Generate renders.
type Format string

// Report formats.
const (
	FormatStandard Format = "standard"
	FormatRPA      Format = "rpa"
	FormatKaluza   Format = "kaluza"
)

// ErrUnknownFormat is returned for a report format name that is not one
// of the Format constants.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat resolves a format name. The empty name is the standard
// report.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case "":
		return FormatStandard, nil
	case FormatStandard, FormatRPA, FormatKaluza:
		return f, nil
	}
	return "", fmt.Errorf("%w %q (want standard, rpa or kaluza)", ErrUnknownFormat, name)
}

// Epic columns read by the LTR reports only.
const (
	SummaryColumn         = "summary"
	DueDateColumn         = "duedate"
	FinancialImpactColumn = "Estimated Financial Impact"
)

// notAvailable stands in for a missing cell.
const notAvailable = "N/A"

// KeyUpdate is a recently completed epic.
type KeyUpdate struct {
	Title  string
	Impact string
	Date   string
}

// RoadmapItem is an open epic, soonest due first.
type RoadmapItem struct {
	Title   string
	DueDate string
	Owner   string
	Impact  string
}

// DeepDive is a recently created epic.
type DeepDive struct {
	Title    string
	Status   string
	Priority string
}

// ExecView holds the executive headline figures.
type ExecView struct {
	CompletionRate   Metric
	AvgUtilization   Metric
	MaintenanceHours Metric
	// SuccessRate is the share of desktop runs with status "Succeeded".
	SuccessRate Metric
}

// LineItem is a tracked measure with an owner and a goal.
type LineItem struct {
	Description string
	Definition  string
	Owner       string
	Goal        float64
	Current     Metric
	Unit        string
}

// GoalText renders the goal with the item's unit.
func (l LineItem) GoalText() string {
	return Metric{Value: l.Goal, Valid: true}.Format(0, l.Unit)
}

// CurrentText renders the current value with the item's unit.
func (l LineItem) CurrentText() string {
	return l.Current.Format(1, l.Unit)
}

// LTR is an RPA or Kaluza LTR report.
type LTR struct {
	Format      Format
	Title       string
	GeneratedAt time.Time
	// LineItems is only filled for the Kaluza report.
	LineItems   []LineItem
	KeyUpdates  []KeyUpdate
	Exec        ExecView
	Roadmap     []RoadmapItem
	DetailNotes []string
	DeepDives   []DeepDive
	// Files names the companion outputs of the same generation.
	Files []string
}

type ltrLayout struct {
	title     string
	roadmap   int
	deepDives int
	lineItems bool
}

const keyUpdateLimit = 3

var ltrLayouts = map[Format]ltrLayout{
	FormatRPA:    {title: "RPA LTR Report", roadmap: 4, deepDives: 3},
	FormatKaluza: {title: "Kaluza LTR Report", roadmap: 3, deepDives: 5, lineItems: true},
}

// BuildLTR computes an LTR report of the given format from processed data.
// Missing columns leave the affected fields "N/A" rather than failing.
func BuildLTR(p *source.Processed, format Format, at time.Time) (*LTR, error) {
	layout, ok := ltrLayouts[format]
	if !ok {
		return nil, fmt.Errorf("%w %q for an LTR report", ErrUnknownFormat, format)
	}
	epics := p.Dataset(config.Epics)
	maint := p.Dataset(config.Maintenance)
	util := p.Dataset(config.Utilization)

	r := &LTR{
		Format:      format,
		Title:       layout.title,
		GeneratedAt: at,
		Exec: ExecView{
			CompletionRate:   epicStats(epics).CompletionRate,
			AvgUtilization:   utilizationStats(util, nil).AvgUtilization,
			MaintenanceHours: sum(maint, MaintenanceHoursColumn),
			SuccessRate:      botSuccessRate(util, nil),
		},
	}

	if layout.lineItems {
		r.LineItems = []LineItem{
			{
				Description: "Epic Completion Rate",
				Definition:  "Percentage of epics completed on time",
				Owner:       "Project Manager",
				Goal:        95,
				Current:     r.Exec.CompletionRate,
				Unit:        "%",
			},
			{
				Description: "Machine Utilization",
				Definition:  "Percentage of time machines are actively running tasks",
				Owner:       "Operations Manager",
				Goal:        80,
				Current:     r.Exec.AvgUtilization,
				Unit:        "%",
			},
			{
				Description: "Maintenance Impact",
				Definition:  "Total hours spent on maintenance activities",
				Owner:       "Maintenance Lead",
				Goal:        20,
				Current:     r.Exec.MaintenanceHours,
				Unit:        " hours",
			},
		}
	}

	done := statusIs(epics, DoneStatus)
	for _, row := range pickRows(epics, done, CompletedDateColumn, true, keyUpdateLimit) {
		r.KeyUpdates = append(r.KeyUpdates, KeyUpdate{
			Title:  cellText(epics, row, SummaryColumn),
			Impact: cellText(epics, row, FinancialImpactColumn),
			Date:   cellText(epics, row, CompletedDateColumn),
		})
	}

	open := func(row []dataset.Value) bool { return !done(row) }
	for _, row := range pickRows(epics, open, DueDateColumn, false, layout.roadmap) {
		r.Roadmap = append(r.Roadmap, RoadmapItem{
			Title:   cellText(epics, row, SummaryColumn),
			DueDate: cellText(epics, row, DueDateColumn),
			Owner:   cellText(epics, row, AssigneeColumn),
			Impact:  cellText(epics, row, FinancialImpactColumn),
		})
	}

	r.DetailNotes = []string{
		fmt.Sprintf("Total Epics: %d", epics.Len()),
		"Total Maintenance Hours: " + r.Exec.MaintenanceHours.Format(1, ""),
		"Average Machine Utilization: " + r.Exec.AvgUtilization.Format(1, "%"),
	}

	for _, row := range pickRows(epics, nil, CreatedColumn, true, layout.deepDives) {
		r.DeepDives = append(r.DeepDives, DeepDive{
			Title:    cellText(epics, row, SummaryColumn),
			Status:   cellText(epics, row, StatusColumn),
			Priority: cellText(epics, row, PriorityColumn),
		})
	}
	return r, nil
}

// statusIs matches rows whose Status is status. Without a Status column
// nothing matches.
func statusIs(d *dataset.Dataset, status string) func([]dataset.Value) bool {
	idx := -1
	if d != nil {
		idx = d.Index(StatusColumn)
	}
	return func(row []dataset.Value) bool {
		return idx >= 0 && row[idx].Kind == dataset.Text && row[idx].Str == status
	}
}

// pickRows returns up to limit rows of d that keep accepts (nil keeps
// all), ordered by column with nulls last. Ties, and every row when the
// column is missing, keep file order.
func pickRows(d *dataset.Dataset, keep func([]dataset.Value) bool, column string, desc bool, limit int) [][]dataset.Value {
	if d == nil {
		return nil
	}
	var rows [][]dataset.Value
	for _, row := range d.Rows {
		if keep == nil || keep(row) {
			rows = append(rows, row)
		}
	}
	if idx := d.Index(column); idx >= 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i][idx], rows[j][idx]
			if a.IsNull() || b.IsNull() {
				return !a.IsNull() && b.IsNull()
			}
			if desc {
				return valueLess(b, a)
			}
			return valueLess(a, b)
		})
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func valueLess(a, b dataset.Value) bool {
	switch {
	case a.Kind == dataset.Time && b.Kind == dataset.Time:
		return a.Time.Before(b.Time)
	case a.Kind == dataset.Number && b.Kind == dataset.Number:
		return a.Num < b.Num
	}
	return dataset.FormatValue(a) < dataset.FormatValue(b)
}

// cellText renders a cell for the report: dates as YYYY-MM-DD, nulls and
// missing columns as "N/A".
func cellText(d *dataset.Dataset, row []dataset.Value, column string) string {
	idx := d.Index(column)
	if idx < 0 || row[idx].IsNull() {
		return notAvailable
	}
	if v := row[idx]; v.Kind == dataset.Time {
		return v.Time.Format("2006-01-02")
	}
	return dataset.FormatValue(row[idx])
}
