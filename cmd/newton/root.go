package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/newtonopt/internal/config"
	"github.com/copyleftdev/newtonopt/internal/logging"
)

// app holds state shared by every subcommand after PersistentPreRunE.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "newton",
		Short: "Newton's method for smooth unconstrained minimization",
		Long: `newton minimizes registered benchmark objectives with Newton's method,
optionally safeguarded by a line search.

Settings come from the environment (NEWTON_*, LINESEARCH_*, LOG_*), an
optional YAML file given with --config, and finally command flags.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides configuration")

	cmd.AddCommand(newMinimizeCmd(a), newFunctionsCmd(a))
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logCfg := a.cfg.Logging
	if a.logLevel != "" {
		logCfg.Level = a.logLevel
	} else if a.cfg.Environment == "development" {
		// Per-iteration debug output is too noisy for a terminal.
		logCfg.Level = "info"
	}
	logCfg.Format = "console"
	logCfg.Output = "stderr"

	a.logger, err = logging.NewLogger(&logCfg)
	return err
}
