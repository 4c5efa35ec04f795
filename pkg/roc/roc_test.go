package roc

import (
	"math"
	"testing"

	"github.com/mchmarny/rocplot/pkg/config"
	"github.com/mchmarny/rocplot/pkg/hist"
	"github.com/mchmarny/rocplot/pkg/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/hbook"
)

const delta = 1e-12

func scenarioTable() *loader.Table {
	tbl := &loader.Table{}
	for i := 1; i <= 10; i++ {
		tbl.Rows = append(tbl.Rows, loader.Row{Signal: 1, SignalScore: float64(i) / 10})
	}
	for i := 0; i < 10; i++ {
		tbl.Rows = append(tbl.Rows, loader.Row{Signal: 0, SignalScore: 0.05})
	}
	return tbl
}

func scenarioCurve(t *testing.T, policy string) (*hist.Pair, *Curve) {
	t.Helper()
	p, err := hist.Fill("scenario", scenarioTable(), hist.Options{Bins: 100, Min: 0, Max: 1})
	require.NoError(t, err)
	c, err := NewCurve(p, policy)
	require.NoError(t, err)
	return p, c
}

func assertNonIncreasing(t *testing.T, v []float64) {
	t.Helper()
	for i := 1; i < len(v); i++ {
		assert.LessOrEqual(t, v[i], v[i-1], "index %d", i)
	}
}

func TestEfficiency_Scenario(t *testing.T) {
	p, c := scenarioCurve(t, config.ErrorsNone)

	require.Len(t, c.Points, 101)
	assert.Equal(t, 100, c.Bins)
	assert.Equal(t, "scenario", c.Name)

	sig := c.SigEff()
	bkg := c.BkgEff()
	assert.InDelta(t, 1.0, sig[0], delta)
	assert.InDelta(t, 0.1, sig[100], delta)
	assertNonIncreasing(t, sig)
	assertNonIncreasing(t, bkg)

	// addressable bin i>0 is histogram bin i-1
	bkgBin := hist.Digitize(0.05, p.Edges) + 1
	for i, e := range bkg {
		if i <= bkgBin {
			assert.InDelta(t, 1.0, e, delta, "index %d", i)
		} else {
			assert.InDelta(t, 0.0, e, delta, "index %d", i)
		}
	}

	for _, pt := range c.Points {
		assert.Zero(t, pt.SigErr)
		assert.Zero(t, pt.BkgErr)
	}
}

func TestEfficiency_TopBin(t *testing.T) {
	sig := hbook.NewH1D(4, 0, 1)
	bkg := hbook.NewH1D(4, 0, 1)
	sig.Fill(0.1, 2)
	sig.Fill(0.9, 3)
	bkg.Fill(0.6, 5)

	pts, err := Efficiency(sig, bkg, config.ErrorsNone)
	require.NoError(t, err)
	require.Len(t, pts, 5)

	assert.InDelta(t, 1.0, pts[0].SigEff, delta)
	assert.InDelta(t, 3.0/5.0, pts[4].SigEff, delta)
	assert.InDelta(t, 1.0, pts[3].BkgEff, delta)
	assert.InDelta(t, 0.0, pts[4].BkgEff, delta)
	assert.Equal(t, []float64{0, 0, 0.25, 0.5, 0.75}, []float64{
		pts[0].Threshold, pts[1].Threshold, pts[2].Threshold, pts[3].Threshold, pts[4].Threshold,
	})
}

func TestEfficiency_UnderAndOverflow(t *testing.T) {
	sig := hbook.NewH1D(2, 0, 1)
	bkg := hbook.NewH1D(2, 0, 1)
	sig.Fill(-1, 1)
	sig.Fill(0.25, 1)
	sig.Fill(2, 2)
	bkg.Fill(0.75, 1)

	pts, err := Efficiency(sig, bkg, config.ErrorsNone)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, pts[0].SigEff, delta)
	assert.InDelta(t, 0.75, pts[1].SigEff, delta)
	assert.InDelta(t, 0.5, pts[2].SigEff, delta)
}

func TestEfficiency_ZeroTotal(t *testing.T) {
	sig := hbook.NewH1D(10, 0, 1)
	bkg := hbook.NewH1D(10, 0, 1)
	bkg.Fill(0.5, 1)

	pts, err := Efficiency(sig, bkg, config.ErrorsBinomial)
	require.NoError(t, err)
	for _, p := range pts {
		assert.Zero(t, p.SigEff)
		assert.Zero(t, p.SigErr)
		assert.False(t, math.IsNaN(p.SigEff))
		assert.False(t, math.IsInf(p.SigEff, 0))
	}
	assert.InDelta(t, 1.0, pts[0].BkgEff, delta)
}

func TestNewCurve_NaNScoreExcluded(t *testing.T) {
	tbl := &loader.Table{Rows: []loader.Row{
		{Signal: 1, SignalScore: 0.5},
		{Signal: 1, SignalScore: math.NaN()},
		{Signal: 0, SignalScore: 0.1},
	}}
	p, err := hist.Fill("nan", tbl, hist.Options{Bins: 100, Min: 0, Max: 1})
	require.NoError(t, err)
	require.Equal(t, 1, p.Invalid)

	c, err := NewCurve(p, config.ErrorsNone)
	require.NoError(t, err)
	sig := c.SigEff()
	assert.InDelta(t, 1.0, sig[1], delta)
	assert.InDelta(t, 1.0, sig[51], delta)
	assert.InDelta(t, 0.0, sig[52], delta)
}

func TestEfficiency_BinomialErrors(t *testing.T) {
	sig := hbook.NewH1D(2, 0, 1)
	bkg := hbook.NewH1D(2, 0, 1)
	sig.Fill(0.25, 2)
	sig.Fill(0.75, 2)
	bkg.Fill(0.25, 4)

	pts, err := Efficiency(sig, bkg, config.ErrorsBinomial)
	require.NoError(t, err)

	// eff 0.5 over 4 entries
	assert.InDelta(t, 0.25, pts[2].SigErr, delta)
	// eff 1 has no spread
	assert.Zero(t, pts[0].SigErr)
	assert.Zero(t, pts[2].BkgErr)
}

func TestEfficiency_BinningMismatch(t *testing.T) {
	_, err := Efficiency(hbook.NewH1D(10, 0, 1), hbook.NewH1D(20, 0, 1), config.ErrorsNone)
	assert.ErrorIs(t, err, ErrBinningMismatch)

	_, err = Efficiency(hbook.NewH1D(10, 0, 1), hbook.NewH1D(10, 0, 2), config.ErrorsNone)
	assert.ErrorIs(t, err, ErrBinningMismatch)
}

func TestEfficiency_UnknownPolicy(t *testing.T) {
	_, err := Efficiency(hbook.NewH1D(10, 0, 1), hbook.NewH1D(10, 0, 1), "poisson")
	assert.Error(t, err)
}

func TestNewCurve_Idempotent(t *testing.T) {
	_, c1 := scenarioCurve(t, config.ErrorsNone)
	_, c2 := scenarioCurve(t, config.ErrorsNone)
	assert.Equal(t, c1, c2)
}

func TestNewCurve_NilPair(t *testing.T) {
	_, err := NewCurve(nil, config.ErrorsNone)
	assert.Error(t, err)
}

func TestAUC(t *testing.T) {
	random := &Curve{Points: []Point{
		{SigEff: 1, BkgEff: 1},
		{SigEff: 0.5, BkgEff: 0.5},
		{SigEff: 0, BkgEff: 0},
	}}
	assert.InDelta(t, 0.5, AUC(random), delta)

	perfect := &Curve{Points: []Point{
		{SigEff: 1, BkgEff: 1},
		{SigEff: 1, BkgEff: 0},
	}}
	assert.InDelta(t, 0.0, AUC(perfect), delta)

	assert.Zero(t, AUC(nil))
	assert.Zero(t, AUC(&Curve{}))
}

func TestCurve_Summary(t *testing.T) {
	_, c := scenarioCurve(t, config.ErrorsNone)
	c.Source = "scenario_sig.root"

	s := c.Summary()
	assert.Equal(t, "scenario", s.Name)
	assert.Equal(t, "scenario_sig.root", s.Source)
	assert.Equal(t, 100, s.Bins)
	assert.Equal(t, 101, s.Points)
	// every signal score is above every background score
	assert.InDelta(t, 0.0, s.AUC, delta)
}
