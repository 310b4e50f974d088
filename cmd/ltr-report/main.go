// Command ltr-report renders the LTR comprehensive report, management
// email and chart dashboard from the files written by ltr-process. With
// -format rpa or kaluza the HTML page and workbook hold that LTR report.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/fsutil"
	"github.com/banshee-data/ltr.report/internal/report"
	"github.com/banshee-data/ltr.report/internal/security"
	"github.com/banshee-data/ltr.report/internal/source"
	"github.com/banshee-data/ltr.report/internal/timeutil"
	"github.com/banshee-data/ltr.report/internal/units"
	"github.com/banshee-data/ltr.report/internal/version"
)

const dateLayout = "2006-01-02"

var (
	configPath  = flag.String("config", "", "Path to a JSON pipeline config")
	dataDir     = flag.String("data", config.DefaultOutputDir, "Directory holding the processed files")
	outDir      = flag.String("out", "reports", "Directory for the generated reports")
	prefix      = flag.String("prefix", report.DefaultPrefix, "File name prefix for the report files")
	sender      = flag.String("sender", report.DefaultSender, "Signature line of the management email")
	statuses    = flag.String("status", "", "Comma-separated epic statuses to include")
	priorities  = flag.String("priority", "", "Comma-separated epic priorities to include")
	assignees   = flag.String("assignee", "", "Comma-separated epic assignees to include")
	from        = flag.String("from", "", "Earliest epic created date, YYYY-MM-DD (inclusive)")
	to          = flag.String("to", "", "Latest epic created date, YYYY-MM-DD (inclusive)")
	format      = flag.String("format", string(report.FormatStandard), "Report layout: standard, rpa or kaluza")
	timezone    = flag.String("tz", "", "Timezone for report dates (default from config, else UTC)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("ltr-report"))
		return
	}

	filter, err := parseFilter(*statuses, *priorities, *assignees, *from, *to)
	if err != nil {
		log.Fatalf("invalid filter: %v", err)
	}

	reportFormat, err := report.ParseFormat(*format)
	if err != nil {
		log.Fatalf("invalid -format: %v", err)
	}

	cfg := config.EmptyPipelineConfig()
	if *configPath != "" {
		if cfg, err = config.LoadPipelineConfig(*configPath); err != nil {
			log.Fatalf("invalid configuration: %v", err)
		}
	}
	if *timezone != "" {
		cfg.Timezone = timezone
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid configuration: %v", err)
		}
	}

	opts := report.Options{Prefix: *prefix, Format: reportFormat, Filter: filter, Sender: *sender}
	written, err := run(fsutil.OSFileSystem{}, cfg, *dataDir, *outDir, opts, timeutil.RealClock{})
	if err != nil {
		log.Fatalf("report generation failed: %v", err)
	}
	for _, path := range written {
		fmt.Println(path)
	}
}

func run(fsys fsutil.FileSystem, cfg *config.PipelineConfig, dataDir, outDir string, opts report.Options, clock timeutil.Clock) ([]string, error) {
	p, err := source.LoadProcessed(fsys, dataDir, cfg.Datasets())
	if err != nil {
		return nil, fmt.Errorf("failed to load processed data (run ltr-process first): %w", err)
	}

	if opts.Now, err = units.ConvertTime(clock.Now(), cfg.GetTimezone()); err != nil {
		return nil, err
	}
	if err := fsys.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", outDir, err)
	}
	for _, name := range report.FileNames(opts.Prefix, opts.Format, opts.Now).Names() {
		if err := security.ValidatePathWithinDirectory(filepath.Join(outDir, name), outDir); err != nil {
			return nil, err
		}
	}
	return report.Generate(fsys, outDir, p, opts)
}

func parseFilter(statuses, priorities, assignees, from, to string) (report.EpicFilter, error) {
	f := report.EpicFilter{
		Statuses:   parseList(statuses),
		Priorities: parseList(priorities),
		Assignees:  parseList(assignees),
	}
	var err error
	if f.From, err = parseDate(from); err != nil {
		return f, fmt.Errorf("invalid -from: %w", err)
	}
	if f.To, err = parseDate(to); err != nil {
		return f, fmt.Errorf("invalid -to: %w", err)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("-to %s is before -from %s", to, from)
	}
	return f, nil
}

// parseList splits a comma-separated flag value, dropping empty items.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
