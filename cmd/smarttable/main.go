// Command smarttable serves a demo smart table and drives smart tables from
// the terminal.
//
// Usage examples:
//
//	smarttable serve --csv recipes.csv --addr :8080 --watch
//	smarttable browse "http://localhost:8080/" --search salt --check qty=multi
//	smarttable browse "http://localhost:8080/" --click "thead th:nth-child(2) a" --out out.xlsx
//
// Settings come from flags, SMARTTABLE_* environment variables and an
// optional YAML file passed with --config.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	smarttable "github.com/poku-e/smarttable"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	logFile string
	noColor bool

	cfg    smarttable.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "smarttable",
		Short:         "Keep server-rendered tables in sync with the URL",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "write JSON logs to a rotating file instead of stderr")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colors in table output")

	root.AddCommand(newServeCmd(a), newBrowseCmd(a))
	return root
}

func (a *app) init() error {
	cfg, err := loadConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(a.verbose, a.logFile)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger

	if a.noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	return nil
}

func newLogger(verbose bool, logFile string) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		level.SetLevel(zap.DebugLevel)
	}

	if logFile != "" {
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, level)
		return zap.New(core), nil
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = level
	return cfg.Build()
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
