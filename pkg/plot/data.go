package plot

import (
	"math"

	"github.com/mchmarny/rocplot/pkg/roc"
)

// curveXY adapts a curve to the gonum plotter data interfaces. Background
// efficiencies below floor are raised to it.
type curveXY struct {
	x, y  []float64
	pts   []roc.Point
	floor float64
}

func newCurveXY(c *roc.Curve, floor float64) *curveXY {
	y := c.BkgEff()
	for i := range y {
		y[i] = math.Max(y[i], floor)
	}
	return &curveXY{x: c.SigEff(), y: y, pts: c.Points, floor: floor}
}

func (d *curveXY) Len() int { return len(d.x) }

func (d *curveXY) XY(i int) (float64, float64) {
	return d.x[i], d.y[i]
}

func (d *curveXY) XError(i int) (float64, float64) {
	return d.pts[i].SigErr, d.pts[i].SigErr
}

func (d *curveXY) YError(i int) (float64, float64) {
	y := d.y[i]
	low := d.pts[i].BkgErr
	// keep the lower bar on a log axis
	if d.floor > 0 && y-low < d.floor {
		low = y - d.floor
	}
	return low, d.pts[i].BkgErr
}

func (d *curveXY) hasErrors() bool {
	for _, p := range d.pts {
		if p.SigErr != 0 || p.BkgErr != 0 {
			return true
		}
	}
	return false
}
