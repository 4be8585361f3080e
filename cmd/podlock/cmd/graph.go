package cmd

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/anthr76/podlock/internal/graph"
	"github.com/anthr76/podlock/internal/lockfile"
	"github.com/anthr76/podlock/internal/locking"
	"github.com/anthr76/podlock/internal/podfile"
	"github.com/anthr76/podlock/internal/render"
)

var (
	graphUpdate         []string
	graphUnlock         []string
	graphUpdateAll      bool
	graphPodfileChanges bool
	graphFormat         string
	graphSkipMalformed  bool
)

var graphCmd = &cobra.Command{
	Use:   "graph [directory]",
	Short: "Print the version-locking graph",
	Long: `Build the version-locking graph from Podfile.lock and print it.

Pods named with --update are dropped from the graph together with every
subspec of the same pod, so the resolver picks a fresh version for them.
Pods named with --unlock stay in the graph without a version.
--podfile-changes unlocks every pod whose Podfile requirement no longer
matches the lockfile. --update-all prints the empty graph.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringSliceVar(&graphUpdate, "update", nil, "pod to re-resolve from scratch (repeatable)")
	graphCmd.Flags().StringSliceVar(&graphUnlock, "unlock", nil, "pod to keep without a locked version (repeatable)")
	graphCmd.Flags().BoolVar(&graphUpdateAll, "update-all", false, "ignore the lockfile entirely")
	graphCmd.Flags().BoolVar(&graphPodfileChanges, "podfile-changes", false, "unlock pods whose Podfile requirement changed")
	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "", "output format: text, json, yaml or dot")
	graphCmd.Flags().BoolVar(&graphSkipMalformed, "skip-malformed", false, "skip malformed PODS entries instead of failing")
}

func runGraph(cmd *cobra.Command, args []string) error {
	dir := projectDir(args)
	logger := loggerFromContext(cmd.Context())
	start := time.Now()

	cfg, err := loadConfig(cmd, dir)
	if err != nil {
		return err
	}

	format := cfg.Format
	if graphFormat != "" {
		if err := render.ValidateFormat(graphFormat); err != nil {
			return err
		}
		format = graphFormat
	}

	opts := locking.Options{Malformed: cfg.MalformedPolicy(), Logger: logger}
	if graphSkipMalformed {
		opts.Malformed = locking.SkipMalformed
	}

	var g *graph.Graph
	if graphUpdateAll {
		logger.Debug("updating all pods, lockfile ignored")
		g = locking.Unlocked()
	} else {
		lf, err := loadLockfile(cmd, cfg.LockfilePath(dir))
		if err != nil {
			return err
		}

		unlock := graphUnlock
		if graphPodfileChanges {
			pf, err := podfile.Parse(cfg.PodfilePath(dir))
			if err != nil {
				return zerr.Wrap(err, "parsing Podfile")
			}
			changed := locking.ChangedPods(pf.Pods, lf)
			if len(changed) > 0 {
				logger.Info("unlocking changed pods", "count", len(changed))
			}
			unlock = append(append([]string{}, unlock...), changed...)
		}

		g, err = locking.GenerateVersionLockingGraph(lf, graphUpdate, unlock, opts)
		if err != nil {
			return zerr.Wrap(err, "building locking graph")
		}
	}

	if err := render.Write(cmd.OutOrStdout(), g, format); err != nil {
		return err
	}

	logger.Debug("built locking graph", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// loadLockfile returns nil without error when the lockfile does not exist,
// which is the state of a project that was never installed.
func loadLockfile(cmd *cobra.Command, path string) (*lockfile.Lockfile, error) {
	lf, err := lockfile.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		loggerFromContext(cmd.Context()).Warn("no lockfile found, every pod will be resolved", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, zerr.Wrap(err, "loading lockfile")
	}
	return lf, nil
}
