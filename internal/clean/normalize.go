// Package clean implements the per-dataset cleaning stages: column name
// normalization, timestamp coercion, missing-value resolution and ISO week
// bucketing. Every stage returns a new dataset and leaves its input alone.
package clean

import (
	"regexp"
	"strings"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/monitoring"
)

// RenameRule rewrites a column name. Rules run in sequence, each one seeing
// the output of the previous rule. A rule whose Pattern does not match
// leaves the name untouched.
type RenameRule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
	// Remove lists characters deleted from the name after a match.
	Remove string
}

// DefaultRenameRules strip the table qualifiers that the Jira and Dataverse
// exports prepend to field names, e.g. "API_JIRA_Data_Epics[Status]".
//
// The first two rules keep what follows the last '[' when the name also
// contains a ']' (either after or before that '['), without any ']'. The
// last two strip known qualifiers from names that never closed their
// bracket. Names with only one kind of bracket are otherwise left alone.
var DefaultRenameRules = []RenameRule{
	{
		Name:        "qualified-field",
		Pattern:     regexp.MustCompile(`^.*\[([^\[]*\][^\[]*)$`),
		Replacement: "$1",
		Remove:      "]",
	},
	{
		Name:        "qualified-field-leading-close",
		Pattern:     regexp.MustCompile(`^.*\].*\[([^\[\]]*)$`),
		Replacement: "$1",
	},
	{
		Name:        "utilization-qualifier",
		Pattern:     regexp.MustCompile(regexp.QuoteMeta("Dataverse_Desktop Machines Utilizations[")),
		Replacement: "",
		Remove:      "]",
	},
	{
		Name:        "maintenance-qualifier",
		Pattern:     regexp.MustCompile(regexp.QuoteMeta("API_JIRA_Data_Maintenance[")),
		Replacement: "",
		Remove:      "]",
	},
}

// NormalizeName applies rules to a single column name.
func NormalizeName(name string, rules []RenameRule) string {
	for _, r := range rules {
		if !r.Pattern.MatchString(name) {
			continue
		}
		name = r.Pattern.ReplaceAllString(name, r.Replacement)
		if r.Remove != "" {
			name = strings.Map(func(c rune) rune {
				if strings.ContainsRune(r.Remove, c) {
					return -1
				}
				return c
			}, name)
		}
	}
	return name
}

// NormalizeColumns returns a copy of d whose column names have been
// rewritten by rules. A nil rules slice uses DefaultRenameRules.
func NormalizeColumns(d *dataset.Dataset, rules []RenameRule) *dataset.Dataset {
	if rules == nil {
		rules = DefaultRenameRules
	}
	out := d.Clone()
	seen := make(map[string]bool, len(out.Columns))
	for i, c := range out.Columns {
		renamed := NormalizeName(c.Name, rules)
		if seen[renamed] {
			monitoring.Warnf("%s: column %q normalizes to duplicate name %q", d.Name, c.Name, renamed)
		}
		seen[renamed] = true
		out.Columns[i].Name = renamed
	}
	return out
}
