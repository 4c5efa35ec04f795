// Package roc derives signal and background efficiency curves from score
// histograms.
package roc

import (
	"math"

	"github.com/mchmarny/rocplot/pkg/config"
	"github.com/mchmarny/rocplot/pkg/hist"
	"github.com/pkg/errors"
	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/integrate"
)

var (
	ErrBinningMismatch = errors.New("signal and background binning differ")
	errUnknownPolicy   = errors.New("unknown error policy")
)

// Point is one threshold of a curve: the fraction of signal and background
// with a score at or above Threshold, and their error bars.
type Point struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	SigEff    float64 `json:"sig_eff" yaml:"sig_eff"`
	BkgEff    float64 `json:"bkg_eff" yaml:"bkg_eff"`
	SigErr    float64 `json:"sig_err" yaml:"sig_err"`
	BkgErr    float64 `json:"bkg_err" yaml:"bkg_err"`
}

// Curve is the efficiency curve of one input file. Points run from the
// inclusive lower boundary (index 0) to the top bin (index Bins).
type Curve struct {
	Name   string  `json:"name" yaml:"name"`
	Source string  `json:"source" yaml:"source"`
	Bins   int     `json:"bins" yaml:"bins"`
	Points []Point `json:"points" yaml:"points"`
}

// Summary is the short form of a curve used in listings.
type Summary struct {
	Name   string  `json:"name" yaml:"name"`
	Source string  `json:"source" yaml:"source"`
	Bins   int     `json:"bins" yaml:"bins"`
	Points int     `json:"points" yaml:"points"`
	AUC    float64 `json:"auc" yaml:"auc"`
}

// Summary returns the curve summary.
func (c *Curve) Summary() Summary {
	return Summary{
		Name:   c.Name,
		Source: c.Source,
		Bins:   c.Bins,
		Points: len(c.Points),
		AUC:    AUC(c),
	}
}

// SigEff returns the signal efficiencies in point order, the x values of
// the ROC plot.
func (c *Curve) SigEff() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.SigEff
	}
	return out
}

// BkgEff returns the background efficiencies in point order, the y values
// of the ROC plot.
func (c *Curve) BkgEff() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.BkgEff
	}
	return out
}

// NewCurve computes the efficiency curve of a histogram pair.
func NewCurve(p *hist.Pair, policy string) (*Curve, error) {
	if p == nil || p.Signal == nil || p.Background == nil {
		return nil, errors.New("histogram pair required")
	}
	pts, err := Efficiency(p.Signal, p.Background, policy)
	if err != nil {
		return nil, errors.Wrapf(err, "curve: %s", p.Name)
	}
	return &Curve{
		Name:   p.Name,
		Bins:   p.Signal.Len(),
		Points: pts,
	}, nil
}

// Efficiency returns, for every addressable bin i in 0..N of the two
// histograms, the fraction of entries in bins i..N plus overflow. Bin 0 also
// holds the underflow, so the first point counts every entry. A histogram
// with a total of zero or less yields zero efficiency everywhere.
func Efficiency(sig, bkg *hbook.H1D, policy string) ([]Point, error) {
	if sig.Len() != bkg.Len() || sig.XMin() != bkg.XMin() || sig.XMax() != bkg.XMax() {
		return nil, errors.Wrapf(ErrBinningMismatch, "%d bins [%g, %g] vs %d bins [%g, %g]",
			sig.Len(), sig.XMin(), sig.XMax(), bkg.Len(), bkg.XMin(), bkg.XMax())
	}
	if policy != config.ErrorsNone && policy != config.ErrorsBinomial {
		return nil, errors.Wrapf(errUnknownPolicy, "%q", policy)
	}

	n := sig.Len()
	selS, totS := tailSums(sig)
	selB, totB := tailSums(bkg)

	edges := hist.Edges(n, sig.XMin(), sig.XMax())
	pts := make([]Point, n+1)
	for i := range pts {
		p := Point{
			Threshold: edges[max(i-1, 0)],
			SigEff:    ratio(selS[i], totS),
			BkgEff:    ratio(selB[i], totB),
		}
		if policy == config.ErrorsBinomial {
			p.SigErr = binomialError(p.SigEff, totS)
			p.BkgErr = binomialError(p.BkgEff, totB)
		}
		pts[i] = p
	}
	return pts, nil
}

// tailSums returns, for i in 0..N, the sum of weights from addressable bin
// i to the end, and the total. Addressable bin 0 is the underflow, bin i>0
// is histogram bin i-1.
func tailSums(h *hbook.H1D) ([]float64, float64) {
	counts := hist.Counts(h)
	n := len(counts)

	sel := make([]float64, n+1)
	acc := hist.Overflow(h)
	for i := n; i >= 1; i-- {
		acc += counts[i-1]
		sel[i] = acc
	}
	sel[0] = acc + hist.Underflow(h)
	return sel, sel[0]
}

func ratio(sel, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return sel / total
}

func binomialError(eff, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Sqrt(eff * (1 - eff) / total)
}

// AUC returns the area under background efficiency as a function of signal
// efficiency, closed at the origin. A random classifier scores 0.5 and a
// perfect one 0.
func AUC(c *Curve) float64 {
	if c == nil || len(c.Points) == 0 {
		return 0
	}
	x := make([]float64, 0, len(c.Points)+1)
	y := make([]float64, 0, len(c.Points)+1)
	x = append(x, 0)
	y = append(y, 0)
	for i := len(c.Points) - 1; i >= 0; i-- {
		x = append(x, c.Points[i].SigEff)
		y = append(y, c.Points[i].BkgEff)
	}
	return integrate.Trapezoidal(x, y)
}
