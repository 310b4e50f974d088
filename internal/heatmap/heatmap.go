// Package heatmap renders a correlation matrix as an annotated PNG heatmap
// on a diverging blue-red scale fixed to [-1, 1].
package heatmap

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/ltr.report/internal/correlate"
)

// Title is the default chart title.
const Title = "Correlation Matrix: Maintenance vs. Utilization Metrics"

// ErrEmptyMatrix is returned when there is nothing to draw.
var ErrEmptyMatrix = errors.New("correlation matrix is empty")

// Options control the rendered image.
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// Colors is the number of palette steps.
	Colors int
}

// DefaultOptions returns a 12x10 inch image with the default title.
func DefaultOptions() Options {
	return Options{Title: Title, Width: 12 * vg.Inch, Height: 10 * vg.Inch, Colors: 64}
}

// grid adapts a Matrix to plotter.GridXYZ with the first label at the top.
type grid struct {
	m *correlate.Matrix
}

func (g grid) Dims() (c, r int)   { n := g.m.Size(); return n, n }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }
func (g grid) Z(c, r int) float64 { return g.m.At(g.m.Size()-1-r, c) }

// Plot builds the heatmap plot for m. Each cell is annotated with its
// coefficient to two decimals; undefined cells are drawn grey and left
// blank.
func Plot(m *correlate.Matrix, opts Options) (*plot.Plot, error) {
	if m.Size() == 0 || m.Coef == nil {
		return nil, ErrEmptyMatrix
	}
	if opts.Colors <= 0 {
		opts.Colors = DefaultOptions().Colors
	}

	g := grid{m: m}
	hm := plotter.NewHeatMap(g, divergingPalette(opts.Colors))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 200}

	p := plot.New()
	p.Title.Text = opts.Title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Add(hm)

	labels, err := annotations(g)
	if err != nil {
		return nil, err
	}
	p.Add(labels)

	n := m.Size()
	yNames := make([]string, n)
	for i, l := range m.Labels {
		yNames[n-1-i] = l
	}
	p.NominalX(m.Labels...)
	p.NominalY(yNames...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -1
	p.X.Tick.Label.YAlign = -0.5

	return p, nil
}

func annotations(g grid) (*plotter.Labels, error) {
	c, r := g.Dims()
	var xyl plotter.XYLabels
	for i := 0; i < c; i++ {
		for j := 0; j < r; j++ {
			z := g.Z(i, j)
			text := ""
			if !math.IsNaN(z) {
				text = fmt.Sprintf("%.2f", z)
			}
			xyl.XYs = append(xyl.XYs, plotter.XY{X: g.X(i), Y: g.Y(j)})
			xyl.Labels = append(xyl.Labels, text)
		}
	}
	labels, err := plotter.NewLabels(xyl)
	if err != nil {
		return nil, fmt.Errorf("failed to create cell labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = -0.5
		labels.TextStyle[i].YAlign = -0.5
	}
	return labels, nil
}

// WritePNG renders m and writes the PNG bytes to w. A zero width or
// height takes the default size.
func WritePNG(w io.Writer, m *correlate.Matrix, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		def := DefaultOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}
	p, err := Plot(m, opts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write heatmap: %w", err)
	}
	return nil
}

func divergingPalette(colors int) palette.Palette {
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	cmap.SetConvergePoint(0)
	return cmap.Palette(colors)
}
