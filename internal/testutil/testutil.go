// Package testutil provides shared test fixtures for the processing
// packages: small CSV-backed datasets and a muted stage logger.
package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/monitoring"
)

// MuteLogs silences monitoring output for the duration of the test.
func MuteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

// CSV parses an inline CSV document into a dataset, failing the test on
// error.
func CSV(t *testing.T, name, doc string) *dataset.Dataset {
	t.Helper()
	d, err := dataset.ReadCSV(name, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("failed to parse %s fixture: %v", name, err)
	}
	return d
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// MaintenanceCSV is a cleaned maintenance extract: week keys are derived
// from "created".
const MaintenanceCSV = `created,Issue Type,priority,SumMaintenance_Hours,Total_Maintenance_Tickets_By_Week,Maintenance_Time_Allocation_Percentage
2025-01-06,Bug,High,4,3,0.2
2025-01-08,Task,Low,2,5,0.4
2025-01-14,Bug,Medium,6,4,0.3
2025-01-21,Bug,High,1,2,0.1
`

// UtilizationCSV is a cleaned utilization extract: week keys are derived
// from "Created On".
const UtilizationCSV = `Created On,desktop_taskstatus,Flow Machine Group,SumRuntime_duration__mins_,Machine_Utilization__,Idle_Percentage__,Desktop_Flow_Success_Rate_Goal,Desktop_Run_Percent_Success
2025-01-07 09:00:00,Succeeded,Group A,120,0.6,0.4,0.95,0.9
2025-01-15 09:00:00,Failed,Group B,60,0.3,0.7,0.95,0.5
2025-01-16 10:00:00,Succeeded,Group A,90,0.5,0.5,0.95,0.8
2025-01-22 11:00:00,Succeeded,Group B,200,0.9,0.1,0.95,0.99
`

// EpicsCSV is a cleaned epics extract.
const EpicsCSV = `created,Status,priority,Assignee,Start Date,Completed Date,Estimated Financial Impact,summary,duedate
2025-01-02,Done,High,Ana,2025-01-02,2025-01-12,1000,Invoice bot,
2025-01-09,In Progress,Medium,Ben,2025-01-10,,500,Claims intake,2025-03-15
2025-01-20,Done,Low,Ana,2025-01-20,2025-02-19,250,Payroll sync,2025-02-20
2025-02-03,To Do,High,Cy,,,,Vendor onboarding,2025-03-01
`
