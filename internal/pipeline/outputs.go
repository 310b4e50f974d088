package pipeline

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/ltr.report/internal/dataset"
	"github.com/banshee-data/ltr.report/internal/fsutil"
	"github.com/banshee-data/ltr.report/internal/heatmap"
	"github.com/banshee-data/ltr.report/internal/monitoring"
	"github.com/banshee-data/ltr.report/internal/security"
	"github.com/banshee-data/ltr.report/internal/source"
)

// OutputFailure is one output file that could not be written.
type OutputFailure struct {
	Path string
	Err  error
}

// Outputs records what WriteOutputs wrote and what it could not.
type Outputs struct {
	Dir      string
	Written  []string
	Failures []OutputFailure
}

// Err joins the per-file failures, or returns nil.
func (o *Outputs) Err() error {
	errs := make([]error, 0, len(o.Failures))
	for _, f := range o.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
	}
	return errors.Join(errs...)
}

// WriteOutputs writes the processed datasets to dir and, when the
// correlation is available, the joined weekly table and the heatmap.
//
// Failing to create dir is returned as an error. Each file is otherwise
// written independently: a failure is logged, recorded in
// Outputs.Failures and the next file is attempted.
func WriteOutputs(fsys fsutil.FileSystem, dir string, res *Result) (*Outputs, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	out := &Outputs{Dir: dir}

	for _, name := range res.Order {
		d := res.Datasets[name]
		out.write(fsys, source.ProcessedFileName(name), func(w io.Writer) error {
			return dataset.WriteCSV(w, d)
		})
	}

	if res.Correlation == nil {
		monitoring.Logf("Correlation data unavailable; skipping %s and %s",
			source.CorrelationDataFile, source.CorrelationMatrixFile)
		return out, nil
	}
	out.write(fsys, source.CorrelationDataFile, func(w io.Writer) error {
		return dataset.WriteCSV(w, res.Correlation.Weekly)
	})
	out.write(fsys, source.CorrelationMatrixFile, func(w io.Writer) error {
		return heatmap.WritePNG(w, res.Correlation.Matrix, heatmap.DefaultOptions())
	})
	return out, nil
}

func (o *Outputs) write(fsys fsutil.FileSystem, name string, fn func(io.Writer) error) {
	path := filepath.Join(o.Dir, name)
	if err := writeFile(fsys, name, path, fn); err != nil {
		monitoring.Warnf("failed to write %s: %v", path, err)
		o.Failures = append(o.Failures, OutputFailure{Path: path, Err: err})
		return
	}
	monitoring.Logf("Saved %s", path)
	o.Written = append(o.Written, path)
}

func writeFile(fsys fsutil.FileSystem, name, path string, fn func(io.Writer) error) (err error) {
	if err := security.ValidateOutputName(name); err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()
	return fn(f)
}
