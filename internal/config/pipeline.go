package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/banshee-data/ltr.report/internal/clean"
	"github.com/banshee-data/ltr.report/internal/fsutil"
	"github.com/banshee-data/ltr.report/internal/units"
)

// Logical dataset names, in processing order.
const (
	Epics       = "epics"
	Maintenance = "maintenance"
	Utilization = "utilization"
)

// DatasetConfig overrides how one source file is found and parsed.
type DatasetConfig struct {
	// Pattern is a case-sensitive substring of the CSV file name.
	Pattern     *string  `json:"pattern,omitempty"`
	DateColumns []string `json:"date_columns,omitempty"`
	WeekColumn  *string  `json:"week_column,omitempty"`
}

// PipelineConfig is the optional JSON configuration of ltr-process.
// Every field may be omitted; the getters fall back to the defaults, which
// process the current directory into processed_data with median fill.
type PipelineConfig struct {
	InputDir  *string `json:"input_dir,omitempty"`
	OutputDir *string `json:"output_dir,omitempty"`
	Strategy  *string `json:"strategy,omitempty"`
	// DBPath enables the run history database when non-empty.
	DBPath *string `json:"db_path,omitempty"`
	// Timezone is the tz database zone report dates are taken in.
	Timezone *string `json:"timezone,omitempty"`

	Epics       *DatasetConfig `json:"epics,omitempty"`
	Maintenance *DatasetConfig `json:"maintenance,omitempty"`
	Utilization *DatasetConfig `json:"utilization,omitempty"`
}

// DatasetSpec is a fully resolved dataset configuration.
type DatasetSpec struct {
	Name        string
	Pattern     string
	DateColumns []string
	WeekColumn  string
}

var defaultDatasets = map[string]DatasetSpec{
	Epics: {
		Name:        Epics,
		Pattern:     "API_JIRA_Data_Epics",
		DateColumns: []string{"created", "updated", "duedate", "Completed Date", "Start Date"},
		WeekColumn:  "created",
	},
	Maintenance: {
		Name:        Maintenance,
		Pattern:     "API_JIRA_Data_Maintenance_Query",
		DateColumns: []string{"created", "updated", "duedate", "Updated Completed Date", "Start Date", "Completed Date"},
		WeekColumn:  "created",
	},
	Utilization: {
		Name:        Utilization,
		Pattern:     "Dataverse Desktop Machine Utilizations",
		DateColumns: []string{"Created On", "Start", "End", "Date", "Start UTC", "End UTC"},
		WeekColumn:  "Created On",
	},
}

// DefaultOutputDir is where processed files are written.
const DefaultOutputDir = "processed_data"

// DefaultTimezone is used for report dates when none is configured.
const DefaultTimezone = "UTC"

func ptrString(v string) *string { return &v }

// StringPtr returns a pointer to v, for flag overrides.
func StringPtr(v string) *string { return ptrString(v) }

// EmptyPipelineConfig returns a config with every field unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file on disk.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	return ReadPipelineConfig(fsutil.OSFileSystem{}, path)
}

// ReadPipelineConfig loads a PipelineConfig from a JSON file in fsys. The
// file must have a .json extension and be under 1MB.
func ReadPipelineConfig(fsys fsutil.FileSystem, path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	if fileInfo.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", cleanPath)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the strategy and timezone names and that each week
// column is also a date column.
func (c *PipelineConfig) Validate() error {
	if c.Strategy != nil {
		if _, err := clean.ParseStrategy(*c.Strategy); err != nil {
			return err
		}
	}
	if c.Timezone != nil && !units.IsTimezoneValid(*c.Timezone) {
		return fmt.Errorf("invalid timezone %q", *c.Timezone)
	}
	for _, spec := range c.Datasets() {
		if spec.Pattern == "" {
			return fmt.Errorf("%s: pattern must not be empty", spec.Name)
		}
		if !slices.Contains(spec.DateColumns, spec.WeekColumn) {
			return fmt.Errorf("%s: week_column %q is not one of date_columns %v", spec.Name, spec.WeekColumn, spec.DateColumns)
		}
	}
	return nil
}

// GetInputDir returns the directory searched for source CSVs.
func (c *PipelineConfig) GetInputDir() string {
	if c.InputDir == nil || *c.InputDir == "" {
		return "."
	}
	return *c.InputDir
}

func (c *PipelineConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return DefaultOutputDir
	}
	return *c.OutputDir
}

func (c *PipelineConfig) GetStrategy() string {
	if c.Strategy == nil || *c.Strategy == "" {
		return clean.DefaultStrategy().Name()
	}
	return *c.Strategy
}

// GetDBPath returns the run history database path, or "" when disabled.
func (c *PipelineConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetTimezone returns the report timezone, UTC by default.
func (c *PipelineConfig) GetTimezone() string {
	if c.Timezone == nil || *c.Timezone == "" {
		return DefaultTimezone
	}
	return *c.Timezone
}

// Dataset resolves the DatasetSpec for a logical dataset name.
func (c *PipelineConfig) Dataset(name string) (DatasetSpec, bool) {
	def, ok := defaultDatasets[name]
	if !ok {
		return DatasetSpec{}, false
	}
	spec := DatasetSpec{
		Name:        def.Name,
		Pattern:     def.Pattern,
		DateColumns: slices.Clone(def.DateColumns),
		WeekColumn:  def.WeekColumn,
	}

	var override *DatasetConfig
	switch name {
	case Epics:
		override = c.Epics
	case Maintenance:
		override = c.Maintenance
	case Utilization:
		override = c.Utilization
	}
	if override == nil {
		return spec, true
	}
	if override.Pattern != nil {
		spec.Pattern = *override.Pattern
	}
	if override.DateColumns != nil {
		spec.DateColumns = slices.Clone(override.DateColumns)
	}
	if override.WeekColumn != nil {
		spec.WeekColumn = *override.WeekColumn
	}
	return spec, true
}

// Datasets returns the three dataset specs in processing order.
func (c *PipelineConfig) Datasets() []DatasetSpec {
	out := make([]DatasetSpec, 0, 3)
	for _, name := range []string{Epics, Maintenance, Utilization} {
		spec, _ := c.Dataset(name)
		out = append(out, spec)
	}
	return out
}
