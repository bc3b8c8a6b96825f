package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/artemis/internal/config"
	"github.com/peter-kozarec/artemis/internal/dbg"
)

// app carries the state shared by all commands after the persistent pre-run.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "artemis [data-file] [threshold]",
		Short: "Mean reversion backtester for tick data",
		Long: `Replay bid/ask tick data through a z-score mean reversion strategy
and report the resulting trades, equity curve and risk metrics.

Running artemis without a subcommand is the same as "artemis run".`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML configuration file")

	runCmd := newRunCmd(a)
	rootCmd.Args = runCmd.Args
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())

	rootCmd.AddCommand(runCmd, newGenerateCmd(a), newOptimiseCmd(a), newImportCmd(a), newRunsCmd(a))
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		logger := dbg.NewDevLogger()
		logger.Error("unable to load configuration", zap.String("path", a.configPath), zap.Error(err))
		return err
	}

	logger, err := dbg.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("unable to create logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.logger.Info(fmt.Sprintf("artemis %s", Version))
	return nil
}

// fail logs err through the configured logger and returns it to cobra,
// which turns it into a non-zero exit status.
func (a *app) fail(msg string, err error) error {
	if a.logger != nil {
		a.logger.Error(msg, zap.Error(err))
	}
	return fmt.Errorf("%s: %w", msg, err)
}
