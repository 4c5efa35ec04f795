// Package plot renders score distributions and ROC overlays.
package plot

import (
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mchmarny/rocplot/pkg/config"
	"github.com/mchmarny/rocplot/pkg/hist"
	"github.com/mchmarny/rocplot/pkg/roc"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/gonum/floats"
	gonum "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	// ROCName is the base name of the overlay plot.
	ROCName = "ROC"

	headroom  = 1.1
	lineWidth = 1.5
)

// Style controls the plot canvas and output.
type Style struct {
	Width   vg.Length
	Height  vg.Length
	Formats []string
	FloorY  float64
	LogY    bool
}

// StyleFrom returns the plot style of a run configuration.
func StyleFrom(cfg *config.Config) Style {
	return Style{
		Width:   vg.Length(cfg.Width) * vg.Inch,
		Height:  vg.Length(cfg.Height) * vg.Inch,
		Formats: cfg.Formats,
		FloorY:  cfg.FloorY,
		LogY:    cfg.LogY,
	}
}

// Name derives a plot and legend name from an input path: the base name
// with the .root suffix and the _sig marker removed.
func Name(path string) string {
	n := filepath.Base(path)
	n = strings.ReplaceAll(n, "_sig", "")
	n = strings.TrimSuffix(n, ".root")
	return n
}

// ScoreDistribution draws the unit-normalized signal and background score
// histograms of p on a log-scaled canvas and saves it as <dir>/<name>.<ext>
// for every configured format. It returns the written paths. A histogram
// with no entries is drawn as is, with a warning.
func ScoreDistribution(p *hist.Pair, dir string, s Style) ([]string, error) {
	if p == nil {
		return nil, fmt.Errorf("histogram pair required")
	}

	sig := normalized(p.Name, "signal", p.Signal, p.Edges)
	bkg := normalized(p.Name, "background", p.Background, p.Edges)

	ymin, ymax := scoreRange(sig, bkg, s.FloorY)

	plt := hplot.New()
	plt.X.Label.Text = "Output"
	plt.Y.Label.Text = "Entries"
	plt.Y.Scale = gonum.LogScale{}
	plt.Y.Tick.Marker = gonum.LogTicks{Prec: -1}
	plt.Legend.Top = true

	for _, e := range []struct {
		label string
		h     *hbook.H1D
		color int
	}{
		{"signal", sig, Blue},
		{"background", bkg, Red},
	} {
		hh := hplot.NewH1D(e.h)
		hh.LogY = true
		hh.LineStyle.Color = Color(e.color)
		hh.LineStyle.Width = vg.Points(lineWidth)
		plt.Add(hh)
		plt.Legend.Add(e.label, hh)
	}

	plt.X.Min = p.Edges[0]
	plt.X.Max = p.Edges[len(p.Edges)-1]
	plt.Y.Min = ymin
	plt.Y.Max = ymax

	return save(plt, dir, p.Name, s)
}

// scoreRange returns the y range of a score plot: from floor up to the
// larger of the two histogram maxima plus headroom. When neither histogram
// rises above floor the maximum is taken as 1.
func scoreRange(sig, bkg *hbook.H1D, floor float64) (float64, float64) {
	ymax := max(floats.Max(hist.Counts(sig)), floats.Max(hist.Counts(bkg)))
	if ymax <= floor {
		ymax = 1
	}
	return floor, ymax * headroom
}

// normalized returns a copy of h scaled to a unit integral. A histogram
// with no entries cannot be normalized and is returned unscaled.
func normalized(name, kind string, h *hbook.H1D, edges []float64) *hbook.H1D {
	counts := hist.Counts(h)
	total := floats.Sum(counts)
	scale := 1.0
	if total > 0 {
		scale = 1 / total
	} else {
		slog.Warn("skipping normalization of empty histogram", "name", name, "histogram", kind)
	}

	n := len(edges) - 1
	out := hbook.NewH1D(n, edges[0], edges[n])
	for i, c := range counts {
		if c == 0 {
			continue
		}
		out.Fill(0.5*(edges[i]+edges[i+1]), c*scale)
	}
	return out
}

// ROC draws the background efficiency against the signal efficiency of
// every curve on one canvas and saves it as <dir>/ROC.<ext>. Curves keep
// their order in the legend and get sequential colours starting at red.
func ROC(curves []*roc.Curve, dir string, s Style) ([]string, error) {
	if len(curves) == 0 {
		return nil, fmt.Errorf("at least one curve required")
	}

	plt := hplot.New()
	plt.X.Label.Text = "Signal Efficiency"
	plt.Y.Label.Text = "Background Efficiency"
	plt.Legend.Top = true
	plt.Legend.Left = true

	floor := 0.0
	if s.LogY {
		plt.Y.Scale = gonum.LogScale{}
		plt.Y.Tick.Marker = gonum.LogTicks{Prec: -1}
		floor = s.FloorY
	}

	for i, st := range curveStyles(curves) {
		c := curves[i]
		data := newCurveXY(c, floor)
		col := st.Color

		line, points, err := plotter.NewLinePoints(data)
		if err != nil {
			return nil, fmt.Errorf("error creating line for curve %s: %w", c.Name, err)
		}
		line.LineStyle.Color = col
		line.LineStyle.Width = vg.Points(lineWidth)
		points.Color = col
		points.Shape = draw.CircleGlyph{}
		points.Radius = st.Marker
		plt.Add(line, points)

		if data.hasErrors() {
			xerr, err := plotter.NewXErrorBars(data)
			if err != nil {
				return nil, fmt.Errorf("error creating x error bars for curve %s: %w", c.Name, err)
			}
			yerr, err := plotter.NewYErrorBars(data)
			if err != nil {
				return nil, fmt.Errorf("error creating y error bars for curve %s: %w", c.Name, err)
			}
			xerr.LineStyle.Color = col
			yerr.LineStyle.Color = col
			plt.Add(xerr, yerr)
		}

		plt.Legend.Add(st.Label, line)
	}

	plt.X.Min = 0
	plt.X.Max = 1
	plt.Y.Min = floor
	plt.Y.Max = 1

	return save(plt, dir, ROCName, s)
}

// curveStyle is the legend label, colour and marker size of one ROC curve.
type curveStyle struct {
	Label  string
	Color  color.Color
	Marker vg.Length
}

// curveStyles returns the style of each curve in input order. Only the
// first curve is drawn with markers.
func curveStyles(curves []*roc.Curve) []curveStyle {
	out := make([]curveStyle, len(curves))
	for i, c := range curves {
		out[i] = curveStyle{Label: c.Name, Color: Color(CurveColorIndex(i))}
		if i == 0 {
			out[i].Marker = vg.Points(1)
		}
	}
	return out
}

func save(plt *hplot.Plot, dir, name string, s Style) ([]string, error) {
	paths := make([]string, 0, len(s.Formats))
	for _, ext := range s.Formats {
		path := filepath.Join(dir, name+"."+strings.TrimPrefix(ext, "."))
		if err := plt.Save(s.Width, s.Height, path); err != nil {
			return paths, fmt.Errorf("error saving plot %s: %w", path, err)
		}
		slog.Debug("plot saved", "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}
