package loader

import (
	"github.com/mchmarny/rocplot/pkg/config"
	"github.com/pkg/errors"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

// WriteTable writes rows into a new ROOT file at path, in a tree with the
// given name. Truth labels are stored as int32 and scores as float32, the
// layout produced by the training scripts. Scores read back are the float32
// values: 0.7 becomes 0.69999998 and is binned below the 0.7 edge, so exact
// bin positions should be derived with hist.Digitize on float64(float32(x)).
func WriteTable(path, tree string, cols config.Columns, rows []Row) (err error) {
	if path == "" {
		return errNoPath
	}

	f, err := groot.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create file: %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close file: %s", path)
		}
	}()

	var (
		sig    int32
		score  float32
		bkg    int32
		bscore float32
	)
	wvars := []rtree.WriteVar{
		{Name: cols.Signal, Value: &sig},
		{Name: cols.SignalScore, Value: &score},
		{Name: cols.Background, Value: &bkg},
		{Name: cols.BackgroundScore, Value: &bscore},
	}

	w, err := rtree.NewWriter(f, tree, wvars)
	if err != nil {
		return errors.Wrapf(err, "failed to create tree %s in %s", tree, path)
	}

	for _, r := range rows {
		sig = int32(r.Signal)
		score = float32(r.SignalScore)
		bkg = int32(r.Background)
		bscore = float32(r.BackgroundScore)
		if _, err := w.Write(); err != nil {
			w.Close()
			return errors.Wrapf(err, "failed to write row to %s", path)
		}
	}

	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "failed to close tree %s in %s", tree, path)
	}
	return nil
}
