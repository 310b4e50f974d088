package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/fsutil"
	"github.com/banshee-data/ltr.report/internal/monitoring"
	"github.com/banshee-data/ltr.report/internal/security"
	"github.com/banshee-data/ltr.report/internal/source"
)

// DefaultPrefix starts every report file name.
const DefaultPrefix = "ltr_report"

// DashboardFile is the chart page written next to the reports.
const DashboardFile = "dashboard.html"

// DataWorkbookFile holds the processed datasets, one sheet each.
const DataWorkbookFile = "dashboard_data.xlsx"

// Files are the names of one report generation's outputs.
type Files struct {
	HTML      string
	Workbook  string
	Email     string
	Dashboard string
	Data      string
}

// Names lists the file names in write order.
func (f Files) Names() []string {
	return []string{f.HTML, f.Workbook, f.Email, f.Dashboard, f.Data}
}

// FileNames returns the output names for a report generated at at:
// <prefix>_YYYYMMDD_HHMMSS.{html,xlsx,txt} plus the dashboard and data
// workbook. LTR formats insert their name after the prefix. The prefix
// is sanitized.
func FileNames(prefix string, format Format, at time.Time) Files {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	stem := security.SanitizeFilename(prefix)
	if format != "" && format != FormatStandard {
		stem += "_" + string(format)
	}
	stem += "_" + at.Format("20060102_150405")
	return Files{
		HTML:      stem + ".html",
		Workbook:  stem + ".xlsx",
		Email:     stem + ".txt",
		Dashboard: DashboardFile,
		Data:      DataWorkbookFile,
	}
}

// Options configure Generate.
type Options struct {
	Prefix string
	// Format picks the HTML and workbook layout. The zero value is the
	// standard report.
	Format Format
	Filter EpicFilter
	Sender string
	Now    time.Time
}

// Generate filters the epics, builds the summary and writes every report
// output into dir. For an LTR format the HTML page and workbook hold the
// LTR report instead of the summary. It stops at the first failure and returns the paths
// written so far.
func Generate(fsys fsutil.FileSystem, dir string, p *source.Processed, opts Options) ([]string, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}

	data := Filtered(p, opts.Filter)
	summary := Build(data, opts.Now)
	files := FileNames(opts.Prefix, opts.Format, opts.Now)

	renderers := map[string]func(io.Writer) error{
		files.HTML:      func(w io.Writer) error { return WriteHTML(w, summary) },
		files.Workbook:  func(w io.Writer) error { return WriteWorkbook(w, summary) },
		files.Email:     func(w io.Writer) error { return WriteEmail(w, summary, opts.Sender) },
		files.Dashboard: func(w io.Writer) error { return WriteDashboard(w, data) },
		files.Data: func(w io.Writer) error {
			return WriteDataWorkbook(w, data.Dataset(config.Epics), data.Dataset(config.Maintenance),
				data.Dataset(config.Utilization), data.Weekly)
		},
	}
	if opts.Format != "" && opts.Format != FormatStandard {
		ltr, err := BuildLTR(data, opts.Format, opts.Now)
		if err != nil {
			return nil, err
		}
		ltr.Files = []string{files.Email, files.Dashboard, files.Data}
		renderers[files.HTML] = func(w io.Writer) error { return WriteLTRHTML(w, ltr) }
		renderers[files.Workbook] = func(w io.Writer) error { return WriteLTRWorkbook(w, ltr) }
	}

	var written []string
	for _, name := range files.Names() {
		if err := security.ValidateOutputName(name); err != nil {
			return written, err
		}
		var buf bytes.Buffer
		if err := renderers[name](&buf); err != nil {
			return written, fmt.Errorf("failed to render %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		monitoring.Logf("Report written to %s", path)
		written = append(written, path)
	}
	return written, nil
}

// Filtered returns a copy of p whose epics have been filtered. p itself
// is not modified.
func Filtered(p *source.Processed, f EpicFilter) *source.Processed {
	out := &source.Processed{Datasets: map[string]*dataset.Dataset{}}
	if p == nil {
		return out
	}
	for name, d := range p.Datasets {
		out.Datasets[name] = d
	}
	out.Weekly = p.Weekly
	if epics := p.Dataset(config.Epics); epics != nil && !f.IsZero() {
		for _, u := range f.Unmatched(epics) {
			monitoring.Warnf("epic filter %s matches no epics", u)
		}
		out.Datasets[config.Epics] = f.Apply(epics)
		monitoring.Logf("Epic filter kept %d of %d rows", out.Datasets[config.Epics].Len(), epics.Len())
	}
	return out
}
