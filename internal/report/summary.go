// Package report builds the comprehensive LTR report from the processed
// datasets and renders it as HTML, a spreadsheet, a management email and
// an interactive chart dashboard.
package report

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/source"
	"github.com/banshee-data/ltr.report/internal/units"
)

// Column names read by the report.
const (
	StatusColumn        = "Status"
	PriorityColumn      = "priority"
	AssigneeColumn      = "Assignee"
	CreatedColumn       = "created"
	StartDateColumn     = "Start Date"
	CompletedDateColumn = "Completed Date"

	MaintenanceHoursColumn = "SumMaintenance_Hours"
	TicketsByWeekColumn    = "Total_Maintenance_Tickets_By_Week"
	AllocationColumn       = "Maintenance_Time_Allocation_Percentage"

	UtilizationCreatedColumn = "Created On"
	RuntimeColumn            = "SumRuntime_duration__mins_"
	UtilizationRateColumn    = "Machine_Utilization__"
	RunSuccessColumn         = "Desktop_Run_Percent_Success"
	TaskStatusColumn         = "desktop_taskstatus"
)

// DoneStatus marks a completed epic.
const DoneStatus = "Done"

// Insight thresholds.
const (
	EfficiencyTarget     = 80.0
	MaintenanceImpactCap = 20.0
	CycleTimeLimitDays   = 14.0
)

// Recommendations are included in every report.
var Recommendations = []string{
	"Implement predictive maintenance scheduling to reduce unplanned downtime",
	"Review and optimize epic workflow processes to reduce cycle time",
	"Consider capacity planning based on current utilization patterns",
}

// Metric is a number that may be unavailable because its source columns
// are missing or empty.
type Metric struct {
	Value float64
	Valid bool
}

func metric(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Metric{}
	}
	return Metric{Value: v, Valid: true}
}

// Format renders the value with prec decimals followed by suffix, or
// "N/A".
func (m Metric) Format(prec int, suffix string) string {
	if !m.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.*f%s", prec, m.Value, suffix)
}

// Cell returns the value for a spreadsheet cell: nil when unavailable.
func (m Metric) Cell() interface{} {
	if !m.Valid {
		return nil
	}
	return m.Value
}

// EpicStats summarises the project-tracker epics.
type EpicStats struct {
	Records        int
	FirstCreated   time.Time
	LastCreated    time.Time
	CompletionRate Metric
	// AvgCycleDays is the mean of Completed Date minus Start Date, in
	// whole days.
	AvgCycleDays Metric
}

// DateRange renders the created date span, or "N/A".
func (e EpicStats) DateRange() string {
	if e.FirstCreated.IsZero() {
		return "N/A"
	}
	return e.FirstCreated.Format("2006-01-02") + " to " + e.LastCreated.Format("2006-01-02")
}

// MaintenanceStats summarises the maintenance tickets.
type MaintenanceStats struct {
	Records           int
	TotalHours        Metric
	AvgTicketsPerWeek Metric
	Allocation        Metric
}

// UtilizationStats summarises the machine-utilization log.
type UtilizationStats struct {
	Records        int
	AvgUtilization Metric
	AvailableHours Metric
	UtilizedHours  Metric
	BotSuccessRate Metric
}

// Metrics are the headline figures derived across sources.
type Metrics struct {
	OverallEfficiency  Metric
	MaintenanceImpact  Metric
	EpicCompletionRate Metric
}

// Summary is the comprehensive report.
type Summary struct {
	GeneratedAt     time.Time
	Epics           EpicStats
	Maintenance     MaintenanceStats
	Utilization     UtilizationStats
	Metrics         Metrics
	Insights        []string
	Recommendations []string
}

// KPI is a labelled, formatted figure.
type KPI struct {
	Name  string
	Value string
}

// KPIs lists the headline figures in display order.
func (s *Summary) KPIs() []KPI {
	return []KPI{
		{"Epic Completion Rate", s.Metrics.EpicCompletionRate.Format(1, "%")},
		{"Average Machine Utilization", s.Utilization.AvgUtilization.Format(1, "%")},
		{"Maintenance Impact", s.Metrics.MaintenanceImpact.Format(1, "%")},
		{"Average Epic Cycle Time", s.Epics.AvgCycleDays.Format(1, " days")},
		{"Bot Success Rate", s.Utilization.BotSuccessRate.Format(1, "%")},
	}
}

// Build computes the report from processed data. Any dataset may be nil;
// metrics whose inputs are missing are left unavailable.
func Build(p *source.Processed, at time.Time) *Summary {
	s := &Summary{
		GeneratedAt: at,
		Epics:       epicStats(p.Dataset(config.Epics)),
		Maintenance: maintenanceStats(p.Dataset(config.Maintenance)),
		Utilization: utilizationStats(p.Dataset(config.Utilization), weekly(p)),
	}

	s.Metrics.OverallEfficiency = s.Utilization.AvgUtilization
	s.Metrics.EpicCompletionRate = s.Epics.CompletionRate
	if s.Maintenance.TotalHours.Valid && s.Utilization.AvailableHours.Valid && s.Utilization.AvailableHours.Value > 0 {
		s.Metrics.MaintenanceImpact = metric(units.Percent(s.Maintenance.TotalHours.Value / s.Utilization.AvailableHours.Value))
	}

	if m := s.Metrics.OverallEfficiency; m.Valid && m.Value < EfficiencyTarget {
		s.Insights = append(s.Insights, "Machine utilization efficiency is below target (80%). Consider optimizing scheduling.")
	}
	if m := s.Metrics.MaintenanceImpact; m.Valid && m.Value > MaintenanceImpactCap {
		s.Insights = append(s.Insights, "Maintenance activities are consuming more than 20% of available time. Review maintenance schedules.")
	}
	if m := s.Epics.AvgCycleDays; m.Valid && m.Value > CycleTimeLimitDays {
		s.Insights = append(s.Insights, "Average epic cycle time exceeds two weeks. Review workflow bottlenecks.")
	}
	s.Recommendations = append([]string(nil), Recommendations...)
	return s
}

func weekly(p *source.Processed) *dataset.Dataset {
	if p == nil {
		return nil
	}
	return p.Weekly
}

func epicStats(d *dataset.Dataset) EpicStats {
	st := EpicStats{Records: d.Len()}
	if d.Len() == 0 {
		return st
	}

	if idx := d.Index(CreatedColumn); idx >= 0 {
		for _, row := range d.Rows {
			t := row[idx]
			if t.Kind != dataset.Time {
				continue
			}
			if st.FirstCreated.IsZero() || t.Time.Before(st.FirstCreated) {
				st.FirstCreated = t.Time
			}
			if t.Time.After(st.LastCreated) {
				st.LastCreated = t.Time
			}
		}
	}

	if idx := d.Index(StatusColumn); idx >= 0 {
		done := 0
		for _, row := range d.Rows {
			if row[idx].Kind == dataset.Text && row[idx].Str == DoneStatus {
				done++
			}
		}
		st.CompletionRate = metric(units.Percent(float64(done) / float64(d.Len())))
	}

	start, end := d.Index(StartDateColumn), d.Index(CompletedDateColumn)
	if start >= 0 && end >= 0 {
		var hours []float64
		for _, row := range d.Rows {
			if row[start].Kind != dataset.Time || row[end].Kind != dataset.Time {
				continue
			}
			hours = append(hours, row[end].Time.Sub(row[start].Time).Hours())
		}
		if len(hours) > 0 {
			st.AvgCycleDays = metric(math.Floor(units.HoursToDays(stat.Mean(hours, nil))))
		}
	}
	return st
}

func maintenanceStats(d *dataset.Dataset) MaintenanceStats {
	return MaintenanceStats{
		Records:           d.Len(),
		TotalHours:        sum(d, MaintenanceHoursColumn),
		AvgTicketsPerWeek: mean(d, TicketsByWeekColumn),
		Allocation:        mean(d, AllocationColumn),
	}
}

func utilizationStats(d, weekly *dataset.Dataset) UtilizationStats {
	st := UtilizationStats{Records: d.Len()}
	if rate := mean(d, UtilizationRateColumn); rate.Valid {
		st.AvgUtilization = metric(units.Percent(rate.Value))
	}
	if runtime := sum(d, RuntimeColumn); runtime.Valid {
		st.AvailableHours = metric(units.MinutesToHours(runtime.Value))
		st.UtilizedHours = st.AvailableHours
	}
	st.BotSuccessRate = botSuccessRate(d, weekly)
	return st
}

// botSuccessRate prefers the weekly success percentage and falls back to
// the share of runs with status "Succeeded".
func botSuccessRate(d, weekly *dataset.Dataset) Metric {
	if m := mean(weekly, RunSuccessColumn); m.Valid {
		return metric(units.Percent(m.Value))
	}
	idx := -1
	if d != nil {
		idx = d.Index(TaskStatusColumn)
	}
	if idx < 0 || d.Len() == 0 {
		return Metric{}
	}
	ok := 0
	for _, row := range d.Rows {
		if row[idx].Kind == dataset.Text && row[idx].Str == "Succeeded" {
			ok++
		}
	}
	return metric(units.Percent(float64(ok) / float64(d.Len())))
}

func sum(d *dataset.Dataset, column string) Metric {
	vals := numbers(d, column)
	if len(vals) == 0 {
		return Metric{}
	}
	return metric(floats.Sum(vals))
}

func mean(d *dataset.Dataset, column string) Metric {
	vals := numbers(d, column)
	if len(vals) == 0 {
		return Metric{}
	}
	return metric(stat.Mean(vals, nil))
}

func numbers(d *dataset.Dataset, column string) []float64 {
	if d == nil {
		return nil
	}
	return d.Numbers(column)
}
