// Package pipeline runs load, histogram, efficiency and plot for a list of
// input files and draws the combined ROC overlay.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/rocplot/pkg/config"
	"github.com/mchmarny/rocplot/pkg/hist"
	"github.com/mchmarny/rocplot/pkg/loader"
	"github.com/mchmarny/rocplot/pkg/plot"
	"github.com/mchmarny/rocplot/pkg/roc"
)

const dirMode = 0755

// ErrNoInput is returned when no input file is given.
var ErrNoInput = errors.New("no input file provided")

// CurveSaver records computed curves.
type CurveSaver interface {
	SaveCurve(ctx context.Context, c *roc.Curve) (int64, error)
}

// Result holds the curves in input order and every written plot.
type Result struct {
	Curves []*roc.Curve `json:"curves" yaml:"curves"`
	Plots  []string     `json:"plots" yaml:"plots"`
}

// Summaries returns the summary of every curve in input order.
func (r *Result) Summaries() []roc.Summary {
	out := make([]roc.Summary, 0, len(r.Curves))
	for _, c := range r.Curves {
		out = append(out, c.Summary())
	}
	return out
}

// SplitFiles splits a comma-separated list of paths, dropping blanks.
func SplitFiles(arg string) []string {
	var files []string
	for _, f := range strings.Split(arg, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}

// Run processes files in order. Each file is fully processed before the
// next one starts; the first failure aborts the run. When saver is not nil
// every curve is recorded after the overlay is written.
func Run(ctx context.Context, cfg *config.Config, files []string, saver CurveSaver) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoInput
	}

	if err := os.MkdirAll(cfg.OutputDir, dirMode); err != nil {
		return nil, fmt.Errorf("error creating output dir %s: %w", cfg.OutputDir, err)
	}

	style := plot.StyleFrom(cfg)
	opts := hist.Options{Bins: cfg.Bins, Min: cfg.Min, Max: cfg.Max}
	res := &Result{}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, paths, err := processFile(f, cfg, opts, style)
		if err != nil {
			return nil, err
		}
		res.Curves = append(res.Curves, c)
		res.Plots = append(res.Plots, paths...)
	}

	paths, err := plot.ROC(res.Curves, cfg.OutputDir, style)
	if err != nil {
		return nil, fmt.Errorf("error plotting ROC curves: %w", err)
	}
	res.Plots = append(res.Plots, paths...)
	slog.Info("roc overlay saved", "curves", len(res.Curves), "paths", strings.Join(paths, ","))

	if saver != nil {
		for _, c := range res.Curves {
			id, err := saver.SaveCurve(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("error saving curve %s: %w", c.Name, err)
			}
			slog.Debug("curve recorded", "name", c.Name, "id", id)
		}
	}

	return res, nil
}

func processFile(path string, cfg *config.Config, opts hist.Options, style plot.Style) (*roc.Curve, []string, error) {
	slog.Info("opening root file", "path", path)

	tbl, err := loader.Load(path, cfg.Tree, cfg.Columns)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading %s: %w", path, err)
	}

	pair, err := hist.Fill(plot.Name(path), tbl, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("error filling histograms for %s: %w", path, err)
	}
	if pair.Skipped > 0 {
		slog.Warn("rows with unknown truth label ignored", "path", path, "rows", pair.Skipped)
	}
	if pair.Invalid > 0 {
		slog.Warn("rows with NaN score ignored", "path", path, "rows", pair.Invalid)
	}

	paths, err := plot.ScoreDistribution(pair, cfg.OutputDir, style)
	if err != nil {
		return nil, nil, fmt.Errorf("error plotting scores for %s: %w", path, err)
	}

	c, err := roc.NewCurve(pair, cfg.Errors)
	if err != nil {
		return nil, nil, fmt.Errorf("error computing efficiency for %s: %w", path, err)
	}
	c.Source = path

	slog.Debug("curve computed", "name", c.Name, "rows", len(tbl.Rows), "points", len(c.Points))
	return c, paths, nil
}
