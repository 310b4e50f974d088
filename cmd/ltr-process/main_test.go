package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/db"
	"github.com/banshee-data/ltr.report/internal/fsutil"
	"github.com/banshee-data/ltr.report/internal/source"
	"github.com/banshee-data/ltr.report/internal/testutil"
	"github.com/banshee-data/ltr.report/internal/timeutil"
)

func writeInputs(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"API_JIRA_Data_Epics.csv":                    testutil.EpicsCSV,
		"API_JIRA_Data_Maintenance_Query.csv":        testutil.MaintenanceCSV,
		"Dataverse Desktop Machine Utilizations.csv": testutil.UtilizationCSV,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"input_dir": "exports", "strategy": "mean"}`), 0o644))

	cfg, err := loadConfig(path, "", "out", "drop", "runs.db")
	require.NoError(t, err)
	assert.Equal(t, "exports", cfg.GetInputDir())
	assert.Equal(t, "out", cfg.GetOutputDir())
	assert.Equal(t, "drop", cfg.GetStrategy())
	assert.Equal(t, "runs.db", cfg.GetDBPath())
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("", "", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.GetInputDir())
	assert.Equal(t, config.DefaultOutputDir, cfg.GetOutputDir())
	assert.Equal(t, "median", cfg.GetStrategy())
	assert.Empty(t, cfg.GetDBPath())
}

func TestLoadConfig_InvalidStrategy(t *testing.T) {
	_, err := loadConfig("", "", "", "mode", "")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	testutil.MuteLogs(t)
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in"), filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(in, 0o755))
	writeInputs(t, in)
	dbPath := filepath.Join(dir, "runs.db")

	cfg, err := loadConfig("", in, out, "", dbPath)
	require.NoError(t, err)
	clock := timeutil.NewMockClock(time.Date(2025, 4, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, run(fsutil.OSFileSystem{}, cfg, clock))

	for _, name := range []string{
		"processed_epics.csv", "processed_maintenance.csv", "processed_utilization.csv",
		source.CorrelationDataFile, source.CorrelationMatrixFile,
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	store, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListProcessingRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, in, runs[0].InputDir)
	assert.Equal(t, 3, runs[0].WeeklyRows)
	assert.True(t, runs[0].CorrelationAvailable)
}

func TestRun_MissingSource(t *testing.T) {
	testutil.MuteLogs(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "API_JIRA_Data_Epics.csv"), []byte(testutil.EpicsCSV), 0o644))

	cfg, err := loadConfig("", dir, filepath.Join(dir, "out"), "", "")
	require.NoError(t, err)

	err = run(fsutil.OSFileSystem{}, cfg, nil)
	var missing *source.MissingSourceError
	require.ErrorAs(t, err, &missing)
	assert.NoDirExists(t, filepath.Join(dir, "out"), "nothing is written when a source is missing")
}

func TestRun_PartialWriteFailure(t *testing.T) {
	testutil.MuteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	for name, body := range map[string]string{
		"in/API_JIRA_Data_Epics.csv":                    testutil.EpicsCSV,
		"in/API_JIRA_Data_Maintenance_Query.csv":        testutil.MaintenanceCSV,
		"in/Dataverse Desktop Machine Utilizations.csv": testutil.UtilizationCSV,
	} {
		require.NoError(t, mfs.WriteFile(name, []byte(body), 0o644))
	}
	out := t.TempDir()
	mfs.SetReadOnly(filepath.Join(out, "processed_epics.csv"))
	cfg, err := loadConfig("", "in", out, "", "")
	require.NoError(t, err)

	err = run(mfs, cfg, nil)
	assert.True(t, errors.Is(err, errWriteFailed), "got %v", err)
	assert.True(t, mfs.Exists(filepath.Join(out, "processed_maintenance.csv")))
}

func TestValidateOutputPaths_RejectsSymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.Symlink(filepath.Join(dir, "elsewhere.csv"), filepath.Join(out, "processed_epics.csv")))

	specs := config.EmptyPipelineConfig().Datasets()
	assert.Error(t, validateOutputPaths(out, specs))
	assert.NoError(t, validateOutputPaths(dir, specs))
}
