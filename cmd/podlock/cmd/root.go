package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/anthr76/podlock/internal/config"
)

var (
	rootVerbose bool
	rootConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "podlock",
	Short: "Build the version-locking graph from a Podfile.lock",
	Long: `podlock reads a CocoaPods Podfile.lock and builds the locking graph a
dependency resolver starts from.

Every previously resolved pod keeps its locked version unless it is unlocked
(kept in the graph without a version) or updated (dropped from the graph so it
is resolved from scratch).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootVerbose {
			loggerFromContext(cmd.Context()).SetLevel(log.DebugLevel)
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	logger := newLogger(os.Stderr, log.InfoLevel)
	ctx := withLogger(context.Background(), logger)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		zerr.Log(ctx, slog.New(logger), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "config file (default .podlock.yaml or .podlock.toml in the project directory)")
}

// loadConfig reads the project config for dir and logs where it came from.
func loadConfig(cmd *cobra.Command, dir string) (config.Config, error) {
	cfg, err := config.Load(dir, rootConfig)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Source != "" {
		loggerFromContext(cmd.Context()).Debug("loaded config", "path", cfg.Source)
	}
	return cfg, nil
}

func projectDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
