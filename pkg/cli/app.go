package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mchmarny/rocplot/pkg/config"
	"github.com/mchmarny/rocplot/pkg/logging"
	"github.com/mchmarny/rocplot/pkg/pipeline"
	"github.com/mchmarny/rocplot/pkg/store"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatNone = "none"

	noInputMessage = "Please provide a valid input root file"

	debugFlagName     = "debug"
	noColorFlagName   = "noColor"
	configFlagName    = "config"
	outputDirFlagName = "outputDir"
	logYFlagName      = "logY"
	dbFlagName        = "db"
	formatFlagName    = "format"

	homeDirName = ".rocplot"
	dirMode     = 0700
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	logLevel           = &slog.LevelVar{}
	logOut   io.Writer = os.Stderr
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(os.Stderr, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:      "rocplot",
		Version:   fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Usage:     "Plot ROC curves and score distributions of classifier output ROOT files",
		ArgsUsage: "<file.root>[,<file.root>...]",
		UsageText: `rocplot output/mlp_predict_test.root
   rocplot --outputDir plots --logY output/mlp_predict_test.root,output/mlp_predict_ep3.root
   rocplot --db curves.db --format yaml output/mlp_predict_ep3.root`,
		HideHelpCommand: true,
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:  debugFlagName,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&urfave.BoolFlag{
				Name:    noColorFlagName,
				Usage:   "Disables colored log output (optional, default: false)",
				Sources: urfave.EnvVars("NO_COLOR"),
			},
			&urfave.StringFlag{
				Name:    configFlagName,
				Usage:   "Path to a YAML config file (optional)",
				Sources: urfave.EnvVars(config.EnvConfigFile),
			},
			&urfave.StringFlag{
				Name:  outputDirFlagName,
				Usage: "Name of the output directory",
				Value: config.New().OutputDir,
				Local: true,
			},
			&urfave.BoolFlag{
				Name:  logYFlagName,
				Usage: "Plot the ROC y-axis (background efficiency) as logarithmic",
				Local: true,
			},
			&urfave.StringFlag{
				Name:    dbFlagName,
				Usage:   "SQLite file or postgres:// DSN to record curves in (optional)",
				Sources: urfave.EnvVars(config.EnvPrefix + "DB"),
				Local:   true,
			},
			&urfave.StringFlag{
				Name:  formatFlagName,
				Usage: "Curve summary output format [json, yaml, none]",
				Value: formatNone,
				Local: true,
			},
		},
		Commands: []*urfave.Command{
			newListCmd(),
			newShowCmd(),
			newConfigCmd(),
			newSampleCmd(),
		},
		Before: func(ctx context.Context, c *urfave.Command) (context.Context, error) {
			if c.Bool(debugFlagName) {
				logLevel.Set(slog.LevelDebug)
			}
			if c.Bool(noColorFlagName) {
				initLogging(logOut, false)
			}
			return ctx, nil
		},
		Action: cmdPlot,
	}
}

func cmdPlot(ctx context.Context, c *urfave.Command) error {
	if c.NArg() < 1 {
		fmt.Fprintln(c.Root().ErrWriter, noInputMessage)
		return pipeline.ErrNoInput
	}

	cfg, err := loadConfig(ctx, c)
	if err != nil {
		return err
	}

	files := pipeline.SplitFiles(c.Args().First())

	var saver pipeline.CurveSaver
	if dsn := c.String(dbFlagName); dsn != "" {
		s, err := store.Open(ctx, dsn)
		if err != nil {
			return fmt.Errorf("opening curve store: %w", err)
		}
		defer s.Close()
		saver = s
	}

	res, err := pipeline.Run(ctx, cfg, files, saver)
	if err != nil {
		return err
	}

	return encode(c.Root().Writer, c.String(formatFlagName), res.Summaries())
}

// loadConfig layers the command line flags on top of the loaded config.
func loadConfig(ctx context.Context, c *urfave.Command) (*config.Config, error) {
	cfg, err := config.Load(ctx, c.String(configFlagName))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if c.IsSet(outputDirFlagName) || cfg.OutputDir == "" {
		cfg.OutputDir = c.String(outputDirFlagName)
	}
	if c.IsSet(logYFlagName) {
		cfg.LogY = c.Bool(logYFlagName)
	}
	if c.Bool(debugFlagName) {
		cfg.LogLevel = "debug"
	}
	logLevel.Set(logging.ParseLogLevel(cfg.LogLevel))

	slog.Debug("config loaded", "tree", cfg.Tree, "bins", cfg.Bins, "output", cfg.OutputDir, "logY", cfg.LogY)
	return cfg, nil
}

func initLogging(w io.Writer, color bool) {
	logOut = w
	logging.SetDefaultCLILogger(w, logLevel, color)
}

// getHomeDir returns the per-user data directory, creating it when needed.
// It falls back to the current directory when no home is known.
func getHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}

	dirPath := filepath.Join(home, homeDirName)
	if err := os.MkdirAll(dirPath, dirMode); err != nil {
		slog.Debug("error creating dir", "path", dirPath, "error", err)
		return home
	}
	return dirPath
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML, "yml":
		return yaml.NewEncoder(w).Encode(v)
	case formatJSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	case formatNone, "":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
