package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	reportsDir := filepath.Join(tmpDir, "reports")
	elsewhere := filepath.Join(tmpDir, "elsewhere")
	for _, dir := range []string{reportsDir, elsewhere} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	linkPath := filepath.Join(reportsDir, "linked")
	if err := os.Symlink(elsewhere, linkPath); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	danglingPath := filepath.Join(reportsDir, "dashboard.html")
	if err := os.Symlink(filepath.Join(elsewhere, "missing.html"), danglingPath); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{name: "new report file", filePath: filepath.Join(reportsDir, "ltr_report_20250115_090000.html"), safeDir: reportsDir},
		{name: "nested new file", filePath: filepath.Join(reportsDir, "2025", "dashboard.html"), safeDir: reportsDir},
		{name: "relative escape", filePath: filepath.Join(reportsDir, "..", "report.html"), safeDir: reportsDir, wantError: true},
		{name: "absolute outside", filePath: "/etc/passwd", safeDir: reportsDir, wantError: true},
		{name: "file under symlinked dir", filePath: filepath.Join(linkPath, "report.html"), safeDir: reportsDir, wantError: true},
		{name: "symlink itself", filePath: linkPath, safeDir: reportsDir, wantError: true},
		{name: "dangling symlink", filePath: danglingPath, safeDir: reportsDir, wantError: true},
		{name: "missing safe dir", filePath: filepath.Join(tmpDir, "x"), safeDir: filepath.Join(tmpDir, "missing"), wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateOutputName(t *testing.T) {
	valid := []string{"processed_epics.csv", "correlation_matrix.png", "dashboard.html", "..hidden"}
	for _, name := range valid {
		if err := ValidateOutputName(name); err != nil {
			t.Errorf("ValidateOutputName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", ".", "..", "../x.csv", "sub/x.csv", `sub\x.csv`, "/abs.csv", "nul\x00.csv"}
	for _, name := range invalid {
		err := ValidateOutputName(name)
		if !errors.Is(err, ErrInvalidOutputName) {
			t.Errorf("ValidateOutputName(%q) = %v, want ErrInvalidOutputName", name, err)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"ltr_report":         "ltr_report",
		"Weekly Report (Q1)": "Weekly_Report_Q1",
		"../../etc":          "etc",
		"":                   "unknown",
		"___":                "unknown",
		"a//b":               "a_b",
		"report-2025.01":     "report-2025.01",
		"Échéance weekly":    "ch_ance_weekly",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
