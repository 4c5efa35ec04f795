package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mchmarny/rocplot/pkg/config"
	"github.com/mchmarny/rocplot/pkg/store"
	urfave "github.com/urfave/cli/v3"
)

const (
	listLimitDefault = 100

	nameFlagName  = "name"
	limitFlagName = "limit"
	idFlagName    = "id"
)

func storeFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:    dbFlagName,
		Usage:   "SQLite file or postgres:// DSN holding recorded curves (default: ~/" + homeDirName + "/" + store.DataFileName + ")",
		Sources: urfave.EnvVars(config.EnvPrefix + "DB"),
	}
}

// openStore opens the store named by the db flag or the default SQLite
// file in the user data directory.
func openStore(ctx context.Context, c *urfave.Command) (*store.Store, error) {
	dsn := c.String(dbFlagName)
	if dsn == "" {
		dsn = filepath.Join(getHomeDir(), store.DataFileName)
	}
	slog.Debug("opening curve store", "dsn", dsn)

	s, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening curve store: %w", err)
	}
	return s, nil
}

func outputFormatFlag() urfave.Flag {
	return &urfave.StringFlag{
		Name:  formatFlagName,
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
}

func newListCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List recorded curves, newest first",
		UsageText: `rocplot list --db curves.db
   rocplot list --db curves.db --name mlp --limit 10`,
		HideHelpCommand: true,
		Action:          cmdList,
		Flags: []urfave.Flag{
			storeFlag(),
			&urfave.StringFlag{
				Name:  nameFlagName,
				Usage: "Fuzzy curve name filter",
			},
			&urfave.IntFlag{
				Name:  limitFlagName,
				Usage: "Limits number of results returned",
				Value: listLimitDefault,
			},
			outputFormatFlag(),
		},
	}
}

func newShowCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "show",
		Usage:           "Print a recorded curve with its points",
		UsageText:       `rocplot show --db curves.db --id 3 --format yaml`,
		HideHelpCommand: true,
		Action:          cmdShow,
		Flags: []urfave.Flag{
			storeFlag(),
			&urfave.Int64Flag{
				Name:     idFlagName,
				Usage:    "Curve id",
				Required: true,
			},
			outputFormatFlag(),
		},
	}
}

func cmdList(ctx context.Context, c *urfave.Command) error {
	s, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.ListCurves(ctx, c.String(nameFlagName), c.Int(limitFlagName))
	if err != nil {
		return fmt.Errorf("listing curves: %w", err)
	}

	return encode(c.Root().Writer, c.String(formatFlagName), list)
}

func cmdShow(ctx context.Context, c *urfave.Command) error {
	s, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer s.Close()

	curve, err := s.GetCurve(ctx, c.Int64(idFlagName))
	if err != nil {
		return fmt.Errorf("getting curve: %w", err)
	}

	return encode(c.Root().Writer, c.String(formatFlagName), curve)
}
