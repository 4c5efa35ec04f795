package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/rocplot/pkg/config"
	urfave "github.com/urfave/cli/v3"
)

const outputFlagName = "output"

func newConfigCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "config",
		Usage: "Print or save the effective configuration (defaults, file, environment)",
		UsageText: `rocplot config
   rocplot --config base.yaml config --output rocplot.yaml`,
		HideHelpCommand: true,
		Action:          cmdConfig,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:    outputFlagName,
				Aliases: []string{"o"},
				Usage:   "Writes the config to this YAML file instead of stdout",
			},
		},
	}
}

func cmdConfig(ctx context.Context, c *urfave.Command) error {
	cfg, err := loadConfig(ctx, c)
	if err != nil {
		return err
	}

	path := c.String(outputFlagName)
	if path == "" {
		return encode(c.Root().Writer, formatYAML, cfg)
	}

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	slog.Info("config saved", "path", path)
	return nil
}
