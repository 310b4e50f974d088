package correlate

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ltr.report/internal/dataset"
)

// Matrix is a symmetric Pearson correlation matrix. Entries that are not
// defined (fewer than two complete observations, or a constant column)
// are NaN.
type Matrix struct {
	Labels []string
	Coef   *mat.SymDense
}

// Size returns the number of labels.
func (m *Matrix) Size() int {
	if m == nil {
		return 0
	}
	return len(m.Labels)
}

// At returns the coefficient for the i-th and j-th labels.
func (m *Matrix) At(i, j int) float64 {
	return m.Coef.At(i, j)
}

// Get returns the coefficient for two labels.
func (m *Matrix) Get(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, l := range m.Labels {
		if l == a {
			i = k
		}
		if l == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.At(i, j), true
}

// Pearson computes the correlation of every pair of Number columns in d.
// Each pair uses only the rows where both columns are non-null.
func Pearson(d *dataset.Dataset) *Matrix {
	var idx []int
	m := &Matrix{}
	for j, c := range d.Columns {
		if c.Type == dataset.Number {
			idx = append(idx, j)
			m.Labels = append(m.Labels, c.Name)
		}
	}
	if len(idx) == 0 {
		return m
	}

	m.Coef = mat.NewSymDense(len(idx), nil)
	for a := range idx {
		for b := a; b < len(idx); b++ {
			x, y := completePairs(d, idx[a], idx[b])
			m.Coef.SetSym(a, b, pairCorrelation(x, y, a == b))
		}
	}
	return m
}

func completePairs(d *dataset.Dataset, i, j int) (x, y []float64) {
	for _, row := range d.Rows {
		if row[i].Kind == dataset.Number && row[j].Kind == dataset.Number {
			x = append(x, row[i].Num)
			y = append(y, row[j].Num)
		}
	}
	return x, y
}

func pairCorrelation(x, y []float64, diagonal bool) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	if diagonal {
		return 1
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	return math.Max(-1, math.Min(1, r))
}
