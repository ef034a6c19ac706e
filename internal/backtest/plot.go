package backtest

import (
	"errors"
	"fmt"
	"os"

	"github.com/pplcc/plotext"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// EquityPlot renders a run as two stacked panels sharing the time axis:
// cumulative equity on top, per-day profit below.
type EquityPlot struct {
	plots   []*plot.Plot
	heights []float64
	w       int
	h       int
}

func NewEquityPlot(w, h int) *EquityPlot {
	return &EquityPlot{w: w, h: h}
}

// Render builds both panels from the run result.
func (e *EquityPlot) Render(res *Result) error {
	equity := plot.New()
	equity.Title.Text = fmt.Sprintf("%s equity", res.Symbol)
	equity.Y.Label.Text = "Cumulative profit"
	equity.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	cumulative := 0.0
	pts := make(plotter.XYs, len(res.Days))
	daily := make(plotter.XYs, len(res.Days))
	for i, day := range res.Days {
		profit, _ := day.Profit.Float64()
		cumulative += profit
		x := float64(day.Date.Unix())
		pts[i] = plotter.XY{X: x, Y: cumulative}
		daily[i] = plotter.XY{X: x, Y: profit}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to create equity graph: %w", err)
	}
	equity.Add(line)
	e.add(equity, 2)

	perDay := plot.New()
	perDay.Title.Text = "Daily profit"
	perDay.Y.Label.Text = "Profit"
	perDay.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	scatter, err := plotter.NewScatter(daily)
	if err != nil {
		return fmt.Errorf("failed to create daily profit graph: %w", err)
	}
	perDay.Add(scatter)
	e.add(perDay, 1)

	return nil
}

func (e *EquityPlot) add(p *plot.Plot, height float64) {
	e.plots = append(e.plots, p)
	e.heights = append(e.heights, height)
}

// Save aligns the panels on a shared X axis and writes a PNG.
func (e *EquityPlot) Save(path string) (err error) {
	var axis []*plot.Axis
	for _, p := range e.plots {
		axis = append(axis, &p.X)
	}
	plotext.UniteAxisRanges(axis)

	tbl := plotext.Table{
		RowHeights: e.heights,
		ColWidths:  []float64{1},
	}

	var plots2d [][]*plot.Plot
	for _, p := range e.plots {
		plots2d = append(plots2d, []*plot.Plot{p})
	}

	h := 0.0
	for _, v := range e.heights {
		h += v * float64(e.h)
	}

	img := vgimg.New(vg.Points(float64(e.w)), vg.Points(float64(h)))
	dc := draw.New(img)

	canvases := tbl.Align(plots2d, dc)
	for i, p := range e.plots {
		p.Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close plot file: %w", cerr))
		}
	}()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write plot to file: %w", err)
	}

	return nil
}
