// Package source finds and loads the raw CSV extracts and the processed
// outputs of an earlier run.
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/ltr.report/internal/clean"
	"github.com/banshee-data/ltr.report/internal/config"
	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/fsutil"
	"github.com/banshee-data/ltr.report/internal/monitoring"
)

// Output file names shared by the writer and LoadProcessed.
const (
	CorrelationDataFile   = "correlation_data.csv"
	CorrelationMatrixFile = "correlation_matrix.png"
)

// ProcessedFileName is the output file of a cleaned dataset.
func ProcessedFileName(name string) string {
	return "processed_" + name + ".csv"
}

// MissingSourceError lists every logical dataset with no matching file.
type MissingSourceError struct {
	Dir   string
	Names []string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("could not find all required data files in %s: missing %s",
		e.Dir, strings.Join(e.Names, ", "))
}

// Discover maps each dataset to the first .csv file in dir whose name
// contains its pattern. Entries are considered in name order and a file
// claimed by one dataset is not offered to the datasets after it. If any
// dataset has no match, a *MissingSourceError naming all of them is
// returned together with a nil map.
func Discover(fsys fsutil.FileSystem, dir string, specs []config.DatasetSpec) (map[string]string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	found := make(map[string]string, len(specs))
	claimed := make(map[string]bool, len(specs))
	var missing []string
	for _, spec := range specs {
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".csv" || claimed[e.Name()] {
				continue
			}
			if strings.Contains(e.Name(), spec.Pattern) {
				found[spec.Name] = filepath.Join(dir, e.Name())
				claimed[e.Name()] = true
				break
			}
		}
		if _, ok := found[spec.Name]; !ok {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingSourceError{Dir: dir, Names: missing}
	}
	return found, nil
}

// Load discovers and parses the raw extracts. Either every dataset is
// returned or none is.
func Load(fsys fsutil.FileSystem, dir string, specs []config.DatasetSpec) (map[string]*dataset.Dataset, error) {
	paths, err := Discover(fsys, dir, specs)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*dataset.Dataset, len(specs))
	for _, spec := range specs {
		d, err := ReadFile(fsys, spec.Name, paths[spec.Name])
		if err != nil {
			return nil, err
		}
		monitoring.Logf("Loaded %s from %s: %d rows, %d columns", spec.Name, paths[spec.Name], d.Len(), len(d.Columns))
		out[spec.Name] = d
	}
	return out, nil
}

// ReadFile parses one CSV file into a dataset called name.
func ReadFile(fsys fsutil.FileSystem, name, path string) (*dataset.Dataset, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	d, err := dataset.ReadCSV(name, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return d, nil
}

// Processed holds the outputs of an earlier processing run. Weekly is nil
// when that run produced no correlation data.
type Processed struct {
	Datasets map[string]*dataset.Dataset
	Weekly   *dataset.Dataset
}

// Dataset returns the processed dataset for a logical name, or nil.
func (p *Processed) Dataset(name string) *dataset.Dataset {
	if p == nil {
		return nil
	}
	return p.Datasets[name]
}

// weekKeyColumn holds ISO week keys. The CSV round trip types it as a
// number; it is restored to text.
const weekKeyColumn = "YearWeek"

// LoadProcessed reads the processed outputs in dir. The date columns of
// each spec are parsed back into timestamps.
func LoadProcessed(fsys fsutil.FileSystem, dir string, specs []config.DatasetSpec) (*Processed, error) {
	p := &Processed{Datasets: make(map[string]*dataset.Dataset, len(specs))}
	for _, spec := range specs {
		d, err := ReadFile(fsys, spec.Name, filepath.Join(dir, ProcessedFileName(spec.Name)))
		if err != nil {
			return nil, err
		}
		p.Datasets[spec.Name] = keyAsText(clean.CoerceTimestamps(d, spec.DateColumns))
	}

	path := filepath.Join(dir, CorrelationDataFile)
	if !fsys.Exists(path) {
		monitoring.Logf("%s not found in %s; correlation data unavailable", CorrelationDataFile, dir)
		return p, nil
	}
	weekly, err := ReadFile(fsys, "correlation", path)
	if err != nil {
		return nil, err
	}
	p.Weekly = keyAsText(weekly)
	return p, nil
}

func keyAsText(d *dataset.Dataset) *dataset.Dataset {
	idx := d.Index(weekKeyColumn)
	if idx < 0 || d.Columns[idx].Type == dataset.Text {
		return d
	}
	values := make([]dataset.Value, d.Len())
	for i, row := range d.Rows {
		if !row[idx].IsNull() {
			values[i] = dataset.TextValue(dataset.FormatValue(row[idx]))
		}
	}
	d.SetColumn(weekKeyColumn, dataset.Text, values)
	return d
}
