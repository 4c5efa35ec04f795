// Package hist splits loaded rows into signal and background and bins their
// scores into equal-width histograms.
package hist

import (
	"math"
	"sort"

	"github.com/mchmarny/rocplot/pkg/loader"
	"github.com/pkg/errors"
	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/floats"
)

const (
	labelSignal     = 1
	labelBackground = 0
)

var errInvalidBinning = errors.New("invalid binning")

// Options describes the score binning.
type Options struct {
	Bins int
	Min  float64
	Max  float64
}

func (o Options) validate() error {
	if o.Bins < 1 {
		return errors.Wrapf(errInvalidBinning, "bins must be positive: %d", o.Bins)
	}
	if o.Min >= o.Max || math.IsNaN(o.Min) || math.IsNaN(o.Max) {
		return errors.Wrapf(errInvalidBinning, "empty range [%g, %g]", o.Min, o.Max)
	}
	return nil
}

// Pair is the signal and background histogram of one input. Both share
// the same edges and are read-only once Fill returns.
type Pair struct {
	Name       string
	Edges      []float64
	Signal     *hbook.H1D
	Background *hbook.H1D

	// Skipped counts rows whose truth label is neither signal nor background.
	Skipped int
	// Invalid counts rows whose score is NaN. They fall in no bin.
	Invalid int
}

// Edges returns n+1 equally spaced bin edges over [min, max].
func Edges(n int, min, max float64) []float64 {
	return floats.Span(make([]float64, n+1), min, max)
}

// Digitize returns the index of the bin holding x. Intervals are
// left-closed and right-open, except the last which also holds the upper
// edge. Values outside the edges are clamped to the first or last bin.
// NaN has no bin and yields -1.
func Digitize(x float64, edges []float64) int {
	if math.IsNaN(x) {
		return -1
	}
	n := len(edges) - 1
	x = Clip(x, edges[0], edges[n])
	i := sort.Search(len(edges), func(i int) bool { return edges[i] > x }) - 1
	switch {
	case i < 0:
		return 0
	case i >= n:
		return n - 1
	default:
		return i
	}
}

// Clip limits x to [min, max]. NaN is returned unchanged.
func Clip(x, min, max float64) float64 {
	switch {
	case x < min:
		return min
	case x > max:
		return max
	default:
		return x
	}
}

// Fill splits the rows of tbl by the signal truth label and bins the signal
// score of each subset. Rows with a NaN score are counted in Invalid and
// left out of both histograms.
func Fill(name string, tbl *loader.Table, o Options) (*Pair, error) {
	if tbl == nil {
		return nil, errors.New("table required")
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	edges := Edges(o.Bins, o.Min, o.Max)
	sig := make([]float64, o.Bins)
	bkg := make([]float64, o.Bins)

	p := &Pair{Name: name, Edges: edges}
	for _, r := range tbl.Rows {
		var counts []float64
		switch r.Signal {
		case labelSignal:
			counts = sig
		case labelBackground:
			counts = bkg
		default:
			p.Skipped++
			continue
		}
		i := Digitize(r.SignalScore, edges)
		if i < 0 {
			p.Invalid++
			continue
		}
		counts[i]++
	}

	p.Signal = newH1D(edges, sig)
	p.Background = newH1D(edges, bkg)
	return p, nil
}

func newH1D(edges, counts []float64) *hbook.H1D {
	n := len(edges) - 1
	h := hbook.NewH1D(n, edges[0], edges[n])
	for i, c := range counts {
		if c == 0 {
			continue
		}
		h.Fill(0.5*(edges[i]+edges[i+1]), c)
	}
	return h
}

// Counts returns the per-bin sums of weights of h, without under- and overflow.
func Counts(h *hbook.H1D) []float64 {
	out := make([]float64, h.Len())
	for i := range out {
		out[i] = h.Value(i)
	}
	return out
}

// Total returns the sum of weights of h including under- and overflow.
func Total(h *hbook.H1D) float64 {
	return floats.Sum(Counts(h)) + Underflow(h) + Overflow(h)
}

// Underflow returns the sum of weights below the histogram range.
func Underflow(h *hbook.H1D) float64 {
	return h.Binning.Outflows[0].SumW()
}

// Overflow returns the sum of weights above the histogram range.
func Overflow(h *hbook.H1D) float64 {
	return h.Binning.Outflows[1].SumW()
}
