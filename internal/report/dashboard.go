package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/ltr.report/internal/clean"
	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/correlate"
	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/heatmap"
	"github.com/banshee-data/ltr.report/internal/monitoring"
	"github.com/banshee-data/ltr.report/internal/source"
	"github.com/banshee-data/ltr.report/internal/units"
)

// Chart titles.
const (
	StatusChartTitle      = "Epic Status Distribution"
	PriorityChartTitle    = "Epic Priority Distribution"
	UtilizationChartTitle = "Daily Average Machine Utilization"
	WeeklyChartTitle      = "Weekly Maintenance Hours vs. Machine Runtime"
	ImpactStatusTitle     = "Estimated Financial Impact by Status"
	ImpactAssigneeTitle   = "Estimated Financial Impact by Assignee"
	MaintPriorityTitle    = "Maintenance Hours by Priority"
	MachineGroupTitle     = "Machine Utilization by Group"
)

// MachineGroupColumn names the utilization column grouping runs by
// machine.
const MachineGroupColumn = "Flow Machine Group"

var divergingColors = []string{"#3b4cc0", "#7b9ff9", "#c0d4f5", "#f2f2f2", "#f5c4ac", "#ee8468", "#b40426"}

// Dashboard builds the chart page for the processed data. Charts whose
// inputs are missing are left out.
func Dashboard(p *source.Processed) *components.Page {
	page := components.NewPage()

	epics := p.Dataset(config.Epics)
	if bar := statusChart(epics); bar != nil {
		page.AddCharts(bar)
	}
	if pie := priorityChart(epics); pie != nil {
		page.AddCharts(pie)
	}
	if bar := impactStatusChart(epics); bar != nil {
		page.AddCharts(bar)
	}
	if pie := impactAssigneeChart(epics); pie != nil {
		page.AddCharts(pie)
	}
	if bar := maintPriorityChart(p.Dataset(config.Maintenance)); bar != nil {
		page.AddCharts(bar)
	}
	util := p.Dataset(config.Utilization)
	if line := utilizationChart(util); line != nil {
		page.AddCharts(line)
	}
	if bar := machineGroupChart(util); bar != nil {
		page.AddCharts(bar)
	}
	if p != nil && p.Weekly != nil {
		if line := weeklyChart(p.Weekly); line != nil {
			page.AddCharts(line)
		}
		if hm := correlationChart(correlate.Pearson(p.Weekly)); hm != nil {
			page.AddCharts(hm)
		}
	} else {
		monitoring.Warnf("weekly correlation data not available; dashboard omits weekly charts")
	}
	return page
}

// WriteDashboard renders the chart page as HTML.
func WriteDashboard(w io.Writer, p *source.Processed) error {
	if err := Dashboard(p).Render(w); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

func statusChart(d *dataset.Dataset) *charts.Bar {
	counts := ValueCounts(d, StatusColumn)
	if len(counts) == 0 {
		return nil
	}
	x := make([]string, len(counts))
	y := make([]opts.BarData, len(counts))
	for i, c := range counts {
		x[i] = c.Value
		y[i] = opts.BarData{Value: c.N}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: StatusChartTitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("Count", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func priorityChart(d *dataset.Dataset) *charts.Pie {
	counts := ValueCounts(d, PriorityColumn)
	if len(counts) == 0 {
		return nil
	}
	data := make([]opts.PieData, len(counts))
	for i, c := range counts {
		data[i] = opts.PieData{Name: c.Value, Value: c.N}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: PriorityChartTitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	pie.AddSeries("Priority", data)
	return pie
}

func totalsBar(title, series string, totals []Total) *charts.Bar {
	if len(totals) == 0 {
		return nil
	}
	x := make([]string, len(totals))
	y := make([]opts.BarData, len(totals))
	for i, t := range totals {
		x[i] = t.Value
		y[i] = opts.BarData{Value: round(t.Sum, 2)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries(series, y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func impactStatusChart(d *dataset.Dataset) *charts.Bar {
	return totalsBar(ImpactStatusTitle, "Financial Impact", SumBy(d, StatusColumn, FinancialImpactColumn))
}

func impactAssigneeChart(d *dataset.Dataset) *charts.Pie {
	totals := SumBy(d, AssigneeColumn, FinancialImpactColumn)
	if len(totals) == 0 {
		return nil
	}
	data := make([]opts.PieData, len(totals))
	for i, t := range totals {
		data[i] = opts.PieData{Name: t.Value, Value: round(t.Sum, 2)}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: ImpactAssigneeTitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	pie.AddSeries("Financial Impact", data)
	return pie
}

func maintPriorityChart(d *dataset.Dataset) *charts.Bar {
	return totalsBar(MaintPriorityTitle, "Maintenance Hours", SumBy(d, PriorityColumn, MaintenanceHoursColumn))
}

// MachineGroup summarises the desktop runs of one Flow Machine Group.
type MachineGroup struct {
	Name string
	Runs int
	// Utilization is the mean utilization rate, as a percentage.
	Utilization float64
	// SuccessRate is the share of runs with status "Succeeded", as a
	// percentage.
	SuccessRate  float64
	RuntimeHours float64
}

// MachineGroups aggregates utilization rows per Flow Machine Group, most
// utilized first. It returns nil when the group column is missing.
func MachineGroups(d *dataset.Dataset) []MachineGroup {
	if d == nil {
		return nil
	}
	group := d.Index(MachineGroupColumn)
	if group < 0 {
		return nil
	}
	rate, runtime, status := d.Index(UtilizationRateColumn), d.Index(RuntimeColumn), d.Index(TaskStatusColumn)

	type acc struct {
		runs, rated, ok int
		rate, minutes   float64
	}
	byName := map[string]*acc{}
	var names []string
	for _, row := range d.Rows {
		if row[group].IsNull() {
			continue
		}
		name := dataset.FormatValue(row[group])
		a := byName[name]
		if a == nil {
			a = &acc{}
			byName[name] = a
			names = append(names, name)
		}
		a.runs++
		if rate >= 0 && row[rate].Kind == dataset.Number {
			a.rate += row[rate].Num
			a.rated++
		}
		if runtime >= 0 && row[runtime].Kind == dataset.Number {
			a.minutes += row[runtime].Num
		}
		if status >= 0 && row[status].Kind == dataset.Text && row[status].Str == "Succeeded" {
			a.ok++
		}
	}

	out := make([]MachineGroup, 0, len(names))
	for _, name := range names {
		a := byName[name]
		g := MachineGroup{
			Name:         name,
			Runs:         a.runs,
			SuccessRate:  units.Percent(float64(a.ok) / float64(a.runs)),
			RuntimeHours: units.MinutesToHours(a.minutes),
		}
		if a.rated > 0 {
			g.Utilization = units.Percent(a.rate / float64(a.rated))
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Utilization > out[j].Utilization })
	return out
}

func machineGroupChart(d *dataset.Dataset) *charts.Bar {
	groups := MachineGroups(d)
	if len(groups) == 0 {
		return nil
	}
	x := make([]string, len(groups))
	util := make([]opts.BarData, len(groups))
	success := make([]opts.BarData, len(groups))
	hours := make([]opts.BarData, len(groups))
	for i, g := range groups {
		x[i] = g.Name
		util[i] = opts.BarData{Value: round(g.Utilization, 2)}
		success[i] = opts.BarData{Value: round(g.SuccessRate, 2)}
		hours[i] = opts.BarData{Value: round(g.RuntimeHours, 2)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: MachineGroupTitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Machine Group"}),
	)
	bar.SetXAxis(x).
		AddSeries("Utilization (%)", util).
		AddSeries("Success Rate (%)", success).
		AddSeries("Runtime Hours", hours)
	return bar
}

// DailyUtilization averages the utilization rate per calendar day of
// "Created On", as a percentage, in date order.
func DailyUtilization(d *dataset.Dataset) (days []string, percent []float64) {
	if d == nil {
		return nil, nil
	}
	at, rate := d.Index(UtilizationCreatedColumn), d.Index(UtilizationRateColumn)
	if at < 0 || rate < 0 {
		return nil, nil
	}
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, row := range d.Rows {
		if row[at].Kind != dataset.Time || row[rate].Kind != dataset.Number {
			continue
		}
		key := row[at].Time.Format("2006-01-02")
		sums[key] += row[rate].Num
		counts[key]++
	}
	for key := range sums {
		days = append(days, key)
	}
	sort.Strings(days)
	percent = make([]float64, len(days))
	for i, key := range days {
		percent[i] = units.Percent(sums[key] / float64(counts[key]))
	}
	return days, percent
}

func utilizationChart(d *dataset.Dataset) *charts.Line {
	days, percent := DailyUtilization(d)
	if len(days) == 0 {
		return nil
	}
	data := make([]opts.LineData, len(percent))
	for i, v := range percent {
		data[i] = opts.LineData{Value: round(v, 2)}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: UtilizationChartTitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Utilization (%)"}),
	)
	line.SetXAxis(days).AddSeries("Machine Utilization (%)", data)
	return line
}

func weeklyChart(weekly *dataset.Dataset) *charts.Line {
	key := weekly.Index(clean.WeekKeyColumn)
	hours, runtime := weekly.Index(MaintenanceHoursColumn), weekly.Index(RuntimeColumn)
	if key < 0 || hours < 0 || runtime < 0 {
		return nil
	}
	weeks := make([]string, 0, weekly.Len())
	maint := make([]opts.LineData, 0, weekly.Len())
	run := make([]opts.LineData, 0, weekly.Len())
	for _, row := range weekly.Rows {
		weeks = append(weeks, dataset.FormatValue(row[key]))
		maint = append(maint, lineValue(row[hours], nil))
		run = append(run, lineValue(row[runtime], units.MinutesToHours))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: WeeklyChartTitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Hours"}),
	)
	line.SetXAxis(weeks).
		AddSeries("Maintenance Hours", maint).
		AddSeries("Runtime Hours", run)
	return line
}

func lineValue(v dataset.Value, convert func(float64) float64) opts.LineData {
	if v.Kind != dataset.Number {
		return opts.LineData{Value: "-"}
	}
	n := v.Num
	if convert != nil {
		n = convert(n)
	}
	return opts.LineData{Value: round(n, 2)}
}

func correlationChart(m *correlate.Matrix) *charts.HeatMap {
	n := m.Size()
	if n == 0 {
		return nil
	}
	data := make([]opts.HeatMapData, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var v interface{} = "-"
			if r := m.At(i, j); !math.IsNaN(r) {
				v = round(r, 2)
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: heatmap.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: m.Labels}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: divergingColors},
		}),
	)
	hm.SetXAxis(m.Labels).AddSeries("correlation", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}),
	)
	return hm
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
