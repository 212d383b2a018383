package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coredump/schedsim/internal/config"
)

// v is the single Viper instance flags are bound into at init time
// (BindFlags registers each flag exactly once, at init()). Subcommands
// decode from it via config.Decode rather than calling config.Load, which
// would try to register the same flags a second time.
var v = viper.New()

var cfgFile string

// cfg is populated by rootCmd's PersistentPreRunE before any subcommand's
// RunE runs.
var cfg config.Config

// log is the shared logger every subcommand writes through; configureLogging
// wires its level, formatter and output once cfg is known.
var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "schedsim",
	Short: "Discrete-time CPU-scheduling simulator",
	Long: `schedsim replays a task manifest through one of seven scheduling
policies against a single simulated CPU, tick by tick, and writes the
statistics file the reference Gantt renderer expects.

Run all three components in one process with "run", or reproduce the
original three-program deployment with "clock", "emitter" and "scheduler".`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		loaded, err := config.Decode(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		configureLogging(cfg)
		return nil
	},
}

func init() {
	v.SetEnvPrefix("schedsim")
	v.AutomaticEnv()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	if err := config.BindFlags(v, rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newClockCmd(),
		newEmitterCmd(),
		newSchedulerCmd(),
	)
}

// Execute runs the root command under a context cancelled on SIGINT/SIGTERM
// (Ctrl-C triggers a graceful teardown),
// returning any error for main to map to exit 1.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
