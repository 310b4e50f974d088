package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the layout timestamps are written with.
const TimeLayout = "2006-01-02 15:04:05"

// ErrNoHeader is returned when a CSV input has no header row.
var ErrNoHeader = errors.New("csv input has no header row")

// nullMarkers are the cell spellings read as null.
var nullMarkers = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
	"<NA>": true,
	"NaT":  true,
}

// IsNullMarker reports whether s is read as a missing value.
func IsNullMarker(s string) bool {
	return nullMarkers[strings.TrimSpace(s)]
}

// ReadCSV parses a CSV stream with a header row into a Dataset. A column is
// typed Number when every non-null cell parses as a float, Text otherwise.
// A column with no values at all is typed Number.
func ReadCSV(name string, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		records = append(records, rec)
	}

	d := &Dataset{Name: name, Columns: make([]Column, len(header))}
	for j, h := range header {
		d.Columns[j] = Column{Name: h, Type: inferKind(records, j)}
	}

	d.Rows = make([][]Value, len(records))
	for i, rec := range records {
		row := make([]Value, len(header))
		for j := range header {
			if j >= len(rec) || IsNullMarker(rec[j]) {
				continue
			}
			if d.Columns[j].Type == Number {
				f, _ := strconv.ParseFloat(strings.TrimSpace(rec[j]), 64)
				row[j] = NumberValue(f)
			} else {
				row[j] = TextValue(rec[j])
			}
		}
		d.Rows[i] = row
	}
	return d, nil
}

func inferKind(records [][]string, col int) Kind {
	for _, rec := range records {
		if col >= len(rec) || IsNullMarker(rec[col]) {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64); err != nil {
			return Text
		}
	}
	return Number
}

// WriteCSV writes the dataset with a header row. Nulls are written as
// empty cells.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	rec := make([]string, len(d.Columns))
	for _, row := range d.Rows {
		for j := range rec {
			rec[j] = FormatValue(row[j])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatValue renders a cell the way WriteCSV does.
func FormatValue(v Value) string {
	switch v.Kind {
	case Text:
		return v.Str
	case Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case Time:
		if v.Time.Location() == time.UTC {
			return v.Time.Format(TimeLayout)
		}
		return v.Time.Format(TimeLayout + "-07:00")
	default:
		return ""
	}
}
