package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/rocplot/pkg/loader"
	urfave "github.com/urfave/cli/v3"
)

const (
	rowsFlagName       = "rows"
	sampleRowsDefault  = 10
	sampleBackgroundAt = 0.05
)

func newSampleCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "sample",
		Usage: "Write a demo input file: evenly spaced signal scores over a low-score background",
		UsageText: `rocplot sample --output demo.root
   rocplot sample --output demo.root --rows 50`,
		HideHelpCommand: true,
		Action:          cmdSample,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     outputFlagName,
				Aliases:  []string{"o"},
				Usage:    "Path of the ROOT file to write",
				Required: true,
			},
			&urfave.IntFlag{
				Name:  rowsFlagName,
				Usage: "Number of signal rows and of background rows",
				Value: sampleRowsDefault,
			},
		},
	}
}

func cmdSample(ctx context.Context, c *urfave.Command) error {
	n := c.Int(rowsFlagName)
	if n < 1 {
		return fmt.Errorf("rows must be positive: %d", n)
	}

	cfg, err := loadConfig(ctx, c)
	if err != nil {
		return err
	}

	path := c.String(outputFlagName)
	if err := loader.WriteTable(path, cfg.Tree, cfg.Columns, sampleRows(n)); err != nil {
		return fmt.Errorf("writing sample: %w", err)
	}
	slog.Info("sample written", "path", path, "tree", cfg.Tree, "rows", 2*n)
	return nil
}

// sampleRows returns n signal rows scored i/n for i in 1..n and n
// background rows at a fixed low score.
func sampleRows(n int) []loader.Row {
	rows := make([]loader.Row, 0, 2*n)
	for i := 1; i <= n; i++ {
		score := float64(i) / float64(n)
		rows = append(rows, loader.Row{Signal: 1, SignalScore: score, BackgroundScore: 1 - score})
	}
	for range n {
		rows = append(rows, loader.Row{SignalScore: sampleBackgroundAt, Background: 1, BackgroundScore: 1 - sampleBackgroundAt})
	}
	return rows
}
