// Package loader reads the classifier output columns from ROOT files.
package loader

import (
	"log/slog"

	"github.com/mchmarny/rocplot/pkg/config"
	"github.com/pkg/errors"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

var (
	ErrTreeNotFound       = errors.New("tree not found")
	ErrColumnNotFound     = errors.New("column not found")
	ErrUnsupportedColumn  = errors.New("unsupported column type")
	errNoPath             = errors.New("file path required")
	errColumnCountInvalid = errors.New("exactly four column names required")
)

// Row is one event: the signal truth label and score, and the background
// truth label and score.
type Row struct {
	Signal          float64 `json:"signal"`
	SignalScore     float64 `json:"signal_score"`
	Background      float64 `json:"background"`
	BackgroundScore float64 `json:"background_score"`
}

// Table holds the rows read from one file.
type Table struct {
	Source string `json:"source"`
	Rows   []Row  `json:"rows"`
}

// Load opens the ROOT file at path and reads the four configured columns of
// the named tree into a Table.
func Load(path, tree string, cols config.Columns) (*Table, error) {
	if path == "" {
		return nil, errNoPath
	}

	slog.Debug("opening root file", "path", path)
	f, err := groot.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer f.Close()

	obj, err := f.Get(tree)
	if err != nil {
		return nil, errors.Wrapf(ErrTreeNotFound, "%s in %s: %v", tree, path, err)
	}
	t, ok := obj.(rtree.Tree)
	if !ok {
		return nil, errors.Wrapf(ErrTreeNotFound, "%s in %s is a %s", tree, path, obj.Class())
	}

	names := cols.Names()
	rvars, err := selectVars(t, names)
	if err != nil {
		return nil, errors.Wrapf(err, "file: %s", path)
	}

	r, err := rtree.NewReader(t, rvars)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create reader for tree %s in %s", tree, path)
	}
	defer r.Close()

	tbl := &Table{
		Source: path,
		Rows:   make([]Row, 0, t.Entries()),
	}

	var vals [4]float64
	err = r.Read(func(_ rtree.RCtx) error {
		for i, rv := range rvars {
			v, err := toFloat(rv.Value)
			if err != nil {
				return errors.Wrapf(err, "column: %s", rv.Name)
			}
			vals[i] = v
		}
		tbl.Rows = append(tbl.Rows, Row{
			Signal:          vals[0],
			SignalScore:     vals[1],
			Background:      vals[2],
			BackgroundScore: vals[3],
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tree %s in %s", tree, path)
	}

	slog.Debug("rows loaded", "path", path, "rows", len(tbl.Rows))
	return tbl, nil
}

// selectVars returns one typed read variable per requested column, in the
// order of names.
func selectVars(t rtree.Tree, names []string) ([]rtree.ReadVar, error) {
	if len(names) != 4 {
		return nil, errColumnCountInvalid
	}

	all := rtree.NewReadVars(t)
	byName := make(map[string]rtree.ReadVar, len(all))
	for _, rv := range all {
		byName[rv.Name] = rv
	}

	out := make([]rtree.ReadVar, 0, len(names))
	for _, n := range names {
		rv, ok := byName[n]
		if !ok {
			return nil, errors.Wrapf(ErrColumnNotFound, "%s", n)
		}
		if _, err := toFloat(rv.Value); err != nil {
			return nil, errors.Wrapf(err, "column: %s", n)
		}
		out = append(out, rv)
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch p := v.(type) {
	case *float64:
		return *p, nil
	case *float32:
		return float64(*p), nil
	case *bool:
		if *p {
			return 1, nil
		}
		return 0, nil
	case *int8:
		return float64(*p), nil
	case *int16:
		return float64(*p), nil
	case *int32:
		return float64(*p), nil
	case *int64:
		return float64(*p), nil
	case *uint8:
		return float64(*p), nil
	case *uint16:
		return float64(*p), nil
	case *uint32:
		return float64(*p), nil
	case *uint64:
		return float64(*p), nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedColumn, "%T", v)
	}
}
