// Command ltr-process cleans the three LTR source extracts, correlates
// maintenance with machine utilization by ISO week and writes the
// processed tables and the correlation heatmap. With no flags it reads the
// current directory and writes to processed_data.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/db"
	"github.com/banshee-data/ltr.report/internal/fsutil"
	"github.com/banshee-data/ltr.report/internal/pipeline"
	"github.com/banshee-data/ltr.report/internal/security"
	"github.com/banshee-data/ltr.report/internal/source"
	"github.com/banshee-data/ltr.report/internal/timeutil"
	"github.com/banshee-data/ltr.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON pipeline config")
	inputDir    = flag.String("input", "", "Directory holding the source CSV extracts (default: current directory)")
	outputDir   = flag.String("output", "", "Directory for processed files (default: "+config.DefaultOutputDir+")")
	strategy    = flag.String("strategy", "", "Missing-value strategy: median, mean or drop (default: median)")
	dbPath      = flag.String("db", "", "Optional sqlite database that records run history")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// errWriteFailed marks a run whose outputs were only partly written.
var errWriteFailed = errors.New("some outputs could not be written")

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("ltr-process"))
		return
	}

	cfg, err := loadConfig(*configPath, *inputDir, *outputDir, *strategy, *dbPath)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := run(fsutil.OSFileSystem{}, cfg, timeutil.RealClock{}); err != nil {
		if errors.Is(err, errWriteFailed) {
			log.Print(err)
			os.Exit(1)
		}
		log.Fatalf("processing failed: %v", err)
	}
	fmt.Println("Data processing complete!")
}

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(path, input, output, strategy, dbPath string) (*config.PipelineConfig, error) {
	cfg := config.EmptyPipelineConfig()
	if path != "" {
		loaded, err := config.LoadPipelineConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if input != "" {
		cfg.InputDir = config.StringPtr(input)
	}
	if output != "" {
		cfg.OutputDir = config.StringPtr(output)
	}
	if strategy != "" {
		cfg.Strategy = config.StringPtr(strategy)
	}
	if dbPath != "" {
		cfg.DBPath = config.StringPtr(dbPath)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(fsys fsutil.FileSystem, cfg *config.PipelineConfig, clock timeutil.Clock) error {
	res, err := pipeline.Run(fsys, cfg, clock)
	if err != nil {
		return err
	}

	dir := cfg.GetOutputDir()
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	if err := validateOutputPaths(dir, cfg.Datasets()); err != nil {
		return err
	}

	out, err := pipeline.WriteOutputs(fsys, dir, res)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		log.Printf("warning: %s", w)
	}
	log.Printf("Run %s wrote %d file(s) to %s", res.RunID, len(out.Written), dir)

	if path := cfg.GetDBPath(); path != "" {
		if err := record(path, res, cfg.GetInputDir(), out); err != nil {
			log.Printf("failed to record run history: %v", err)
		}
	}

	if err := out.Err(); err != nil {
		return fmt.Errorf("%w: %v", errWriteFailed, err)
	}
	return nil
}

// validateOutputPaths refuses to write through a symlink that leaves dir.
func validateOutputPaths(dir string, specs []config.DatasetSpec) error {
	names := []string{source.CorrelationDataFile, source.CorrelationMatrixFile}
	for _, spec := range specs {
		names = append(names, source.ProcessedFileName(spec.Name))
	}
	for _, name := range names {
		if err := security.ValidatePathWithinDirectory(filepath.Join(dir, name), dir); err != nil {
			return err
		}
	}
	return nil
}

func record(path string, res *pipeline.Result, inputDir string, out *pipeline.Outputs) error {
	store, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := pipeline.Record(store, res, inputDir, out); err != nil {
		return err
	}
	log.Printf("Run %s recorded in %s", res.RunID, path)
	return nil
}
