// Command dialogbot runs declarative bots from a folder of .dialog and .lg
// resources.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hupe1980/dialogmesh/internal/config"
	"github.com/hupe1980/dialogmesh/logging"
)

type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	zap    *zap.Logger
	logger logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "dialogbot",
		Short: "Run declarative dialog bots",
		Long: `dialogbot loads a bot made of .dialog definitions and .lg language
generation templates and talks to it on the console.

Configuration is read from dialogbot.yaml (see --config) and can be
overridden with DIALOGBOT_* environment variables and flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			if err := a.applyFlags(cmd); err != nil {
				return err
			}

			return a.initLogger()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.zap != nil {
				_ = a.zap.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "dialogbot.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringP("dir", "d", "", "resource folder (overrides bot.resource_dir)")
	rootCmd.PersistentFlags().String("root", "", "root dialog id (overrides bot.root_dialog)")

	rootCmd.AddCommand(
		newChatCmd(a),
		newValidateCmd(a),
		newTranscriptCmd(a),
	)

	return rootCmd
}

func (a *app) applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("dir") {
		dir, err := flags.GetString("dir")
		if err != nil {
			return err
		}
		a.cfg.Bot.ResourceDir = dir
	}
	if flags.Changed("root") {
		root, err := flags.GetString("root")
		if err != nil {
			return err
		}
		a.cfg.Bot.RootDialog = root
	}
	if a.verbose {
		a.cfg.Logging.Level = "debug"
	}
	return nil
}

func (a *app) initLogger() error {
	level, err := zapcore.ParseLevel(a.cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	zcfg := zap.NewDevelopmentConfig()
	if a.cfg.Logging.Format == "json" {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}

	a.zap, err = zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logging.NewZapAdapter(a.zap)

	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
