// Package chart renders COP curves.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
)

var (
	ErrNoPoints          = errors.New("chart: no points to plot")
	ErrUnsupportedFormat = errors.New("chart: unsupported format")
)

const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 6 * vg.Inch

	// Carnot COP explodes near the indoor temperature; keep the axis readable.
	maxYAxis = 20
)

var (
	carnotColor  = color.RGBA{R: 0x00, G: 0xd9, B: 0xff, A: 0xff}
	realColor    = color.RGBA{R: 0xff, G: 0x33, B: 0x66, A: 0xff}
	idealColor   = color.RGBA{R: 0x00, G: 0xcc, B: 0x66, A: 0xff}
	defrostColor = color.NRGBA{B: 0xff, A: 0x1a}
	currentColor = color.RGBA{R: 0xff, G: 0xcc, B: 0x00, A: 0xff}
	refColor     = color.Gray{Y: 0x80}
)

// Chart is a COP vs outdoor temperature figure.
type Chart struct {
	Title   string
	Points  []heatpump.Point
	Current *heatpump.Point // highlighted operating point, optional

	// Ideal is the detailed model before parasitic loads, optional.
	Ideal      []heatpump.Point
	IdealLabel string

	// DefrostZone shades heatpump.DefrostZone where it overlaps the curve.
	DefrostZone bool
}

// IdealLegend names the ideal curve after the compressor's share of Carnot.
func IdealLegend(p heatpump.SystemParams) string {
	return fmt.Sprintf("Ideal (%.0f%%)", p.SystemEfficiency*100)
}

func Supported(format string) bool {
	switch format {
	case "png", "svg":
		return true
	default:
		return false
	}
}

// Plot builds the gonum plot without rendering it.
func (c Chart) Plot() (*plot.Plot, error) {
	if len(c.Points) == 0 {
		return nil, ErrNoPoints
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "Outdoor temperature (°C)"
	p.Y.Label.Text = "COP"
	p.Add(plotter.NewGrid())

	carnot := make(plotter.XYs, len(c.Points))
	realistic := make(plotter.XYs, len(c.Points))
	minX, maxX := math.Inf(1), math.Inf(-1)
	maxCarnot := 0.0
	for i, pt := range c.Points {
		carnot[i] = plotter.XY{X: pt.OutdoorTemperature, Y: pt.CarnotCOP}
		realistic[i] = plotter.XY{X: pt.OutdoorTemperature, Y: pt.COP}
		minX = math.Min(minX, pt.OutdoorTemperature)
		maxX = math.Max(maxX, pt.OutdoorTemperature)
		maxCarnot = math.Max(maxCarnot, pt.CarnotCOP)
	}

	carnotLine, err := plotter.NewLine(carnot)
	if err != nil {
		return nil, fmt.Errorf("chart: carnot line: %w", err)
	}
	carnotLine.Color = carnotColor
	carnotLine.Width = vg.Points(2)
	carnotLine.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	realLine, err := plotter.NewLine(realistic)
	if err != nil {
		return nil, fmt.Errorf("chart: real line: %w", err)
	}
	realLine.Color = realColor
	realLine.Width = vg.Points(3)

	ref, err := plotter.NewLine(plotter.XYs{{X: minX, Y: 1}, {X: maxX, Y: 1}})
	if err != nil {
		return nil, fmt.Errorf("chart: reference line: %w", err)
	}
	ref.Color = refColor
	ref.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}

	yMax := math.Min(maxCarnot*1.1, maxYAxis)

	if c.DefrostZone {
		lo := math.Max(heatpump.DefrostZone[0], minX)
		hi := math.Min(heatpump.DefrostZone[1], maxX)
		if lo < hi {
			zone, err := plotter.NewPolygon(plotter.XYs{{X: lo, Y: 0}, {X: hi, Y: 0}, {X: hi, Y: yMax}, {X: lo, Y: yMax}})
			if err != nil {
				return nil, fmt.Errorf("chart: defrost zone: %w", err)
			}
			zone.Color = defrostColor
			zone.LineStyle.Width = 0
			p.Add(zone)
			p.Legend.Add("Defrost zone", zone)
		}
	}

	p.Add(ref, carnotLine)
	p.Legend.Add("Carnot limit", carnotLine)

	if len(c.Ideal) > 0 {
		ideal := make(plotter.XYs, len(c.Ideal))
		for i, pt := range c.Ideal {
			ideal[i] = plotter.XY{X: pt.OutdoorTemperature, Y: pt.COP}
		}
		idealLine, err := plotter.NewLine(ideal)
		if err != nil {
			return nil, fmt.Errorf("chart: ideal line: %w", err)
		}
		idealLine.Color = idealColor
		idealLine.Width = vg.Points(2)
		idealLine.Dashes = []vg.Length{vg.Points(8), vg.Points(3), vg.Points(2), vg.Points(3)}
		label := c.IdealLabel
		if label == "" {
			label = "Ideal"
		}
		p.Add(idealLine)
		p.Legend.Add(label, idealLine)
	}

	p.Add(realLine)
	p.Legend.Add("Real-world", realLine)

	if c.Current != nil {
		cur, err := plotter.NewScatter(plotter.XYs{{X: c.Current.OutdoorTemperature, Y: c.Current.COP}})
		if err != nil {
			return nil, fmt.Errorf("chart: current point: %w", err)
		}
		cur.GlyphStyle.Color = currentColor
		cur.GlyphStyle.Radius = vg.Points(6)
		cur.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(cur)
		p.Legend.Add("Current", cur)
	}

	p.Y.Min = 0
	p.Y.Max = yMax
	return p, nil
}

// Render writes the chart as png or svg.
func (c Chart) Render(w io.Writer, format string) error {
	if !Supported(format) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	p, err := c.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, format)
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("chart: write: %w", err)
	}
	return nil
}
