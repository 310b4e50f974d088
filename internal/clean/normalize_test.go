package clean

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/testutil"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"epics qualifier", "API_JIRA_Data_Epics[Status]", "Status"},
		{"utilization qualifier", "Dataverse_Desktop Machines Utilizations[Created On]", "Created On"},
		{"maintenance qualifier", "API_JIRA_Data_Maintenance[SumMaintenance_Hours]", "SumMaintenance_Hours"},
		{"nested brackets keep last segment", "Outer[Inner[Field]]", "Field"},
		{"text after closing bracket kept", "T[Field]Suffix", "FieldSuffix"},
		{"closing bracket before opening", "A]B[C", "C"},
		{"unclosed utilization qualifier", "Dataverse_Desktop Machines Utilizations[Start UTC", "Start UTC"},
		{"unclosed maintenance qualifier", "API_JIRA_Data_Maintenance[priority", "priority"},
		{"plain name", "Machine_Utilization__", "Machine_Utilization__"},
		{"spaces kept", "Completed Date", "Completed Date"},
		{"closing bracket alone kept", "a]b", "a]b"},
		{"trailing closing bracket kept", "Flow]", "Flow]"},
		{"every closing bracket after last opening dropped", "T[C]D]", "CD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in, DefaultRenameRules))
		})
	}
}

func TestNormalizeColumns_Idempotent(t *testing.T) {
	testutil.MuteLogs(t)
	raw := testutil.CSV(t, "epics", "API_JIRA_Data_Epics[Status],API_JIRA_Data_Epics[created],Key\nDone,2025-01-01,E-1\n")

	once := NormalizeColumns(raw, nil)
	twice := NormalizeColumns(once, nil)

	assert.Equal(t, []string{"Status", "created", "Key"}, once.ColumnNames())
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second normalization changed the table (-once +twice):\n%s", diff)
	}
}

func TestNormalizeColumns_IdentityWithoutBrackets(t *testing.T) {
	testutil.MuteLogs(t)
	raw := testutil.CSV(t, "util", "Created On,Machine_Utilization__\n2025-01-01,0.5\n")

	out := NormalizeColumns(raw, nil)
	if diff := cmp.Diff(raw, out); diff != "" {
		t.Errorf("normalization of bracket-free names is not identity:\n%s", diff)
	}
}

func TestNormalizeColumns_DoesNotMutateInput(t *testing.T) {
	testutil.MuteLogs(t)
	raw := testutil.CSV(t, "epics", "T[a],T[b]\n1,2\n")

	_ = NormalizeColumns(raw, nil)
	assert.Equal(t, []string{"T[a]", "T[b]"}, raw.ColumnNames())
}

func TestNormalizeColumns_CustomRules(t *testing.T) {
	testutil.MuteLogs(t)
	d := dataset.New("x", dataset.Column{Name: "old_name", Type: dataset.Text})
	rules := []RenameRule{{Name: "prefix", Pattern: regexp.MustCompile(`^old_`), Replacement: "new_"}}

	out := NormalizeColumns(d, rules)
	assert.Equal(t, []string{"new_name"}, out.ColumnNames())
}
