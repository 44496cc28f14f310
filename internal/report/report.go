// Package report renders the sample history as PNG charts and a location
// map. Every call reads the whole log; nothing is cached.
package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"visioniq.io/visioniq/internal/store"
)

const tickFormat = "01/02/06 15:04"

var (
	chartWidth  = 10 * vg.Inch
	chartHeight = 6 * vg.Inch
)

// series describes one chart.
type series struct {
	title  string
	label  string
	yLabel string
	glyph  draw.GlyphDrawer
	value  func(store.Sample) float64
}

var (
	rangeSeries = series{
		title:  "EV Driving Range Over Time",
		label:  "EV Driving Range",
		yLabel: "Miles",
		glyph:  draw.CircleGlyph{},
		value:  func(s store.Sample) float64 { return s.DrivingRange },
	}
	chargeSeries = series{
		title:  "Charging Level Over Time",
		label:  "Charging Level",
		yLabel: "%",
		glyph:  draw.CircleGlyph{},
		value:  func(s store.Sample) float64 { return s.ChargingLevel },
	}
	mileageSeries = series{
		title:  "Total Miles",
		label:  "Mileage",
		yLabel: "Miles",
		glyph:  draw.CrossGlyph{},
		value:  func(s store.Sample) float64 { return s.Mileage },
	}
)

// Renderer produces reports from a sample log.
type Renderer struct {
	store store.Store
}

func New(s store.Store) *Renderer {
	return &Renderer{store: s}
}

// RangeChart writes a PNG of driving range over time.
func (r *Renderer) RangeChart(w io.Writer) error {
	return r.chart(w, rangeSeries)
}

// ChargeChart writes a PNG of charging level over time.
func (r *Renderer) ChargeChart(w io.Writer) error {
	return r.chart(w, chargeSeries)
}

// MileageChart writes a PNG of the odometer reading over time.
func (r *Renderer) MileageChart(w io.Writer) error {
	return r.chart(w, mileageSeries)
}

func (r *Renderer) chart(w io.Writer, s series) error {
	samples, err := r.store.ReadAll()
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	p, err := newPlot(samples, s)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", s.label, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", s.label, err)
	}
	return nil
}

func newPlot(samples []store.Sample, s series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = s.title
	p.X.Label.Text = "Timestamp"
	p.Y.Label.Text = s.yLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: tickFormat}

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid)

	pts := make(plotter.XYs, 0, len(samples))
	for _, sm := range samples {
		if sm.Timestamp.IsZero() {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(sm.Timestamp.Unix()), Y: s.value(sm)})
	}
	if len(pts) == 0 {
		return p, nil
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("build %s series: %w", s.label, err)
	}
	line.Color = color.RGBA{B: 255, A: 255}
	points.Shape = s.glyph
	points.Color = line.Color

	p.Add(line, points)
	p.Legend.Add(s.label, line, points)
	p.Legend.Top = true
	return p, nil
}
