package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/anthr76/podlock/internal/lockfile"
	"github.com/anthr76/podlock/internal/locking"
	"github.com/anthr76/podlock/internal/requirement"
)

// ErrPodNotFound is returned when an update names a pod the lockfile does not lock.
var ErrPodNotFound = zerr.New("pod not found in lockfile")

var updateDir string

var updateCmd = &cobra.Command{
	Use:   "update <pod>...",
	Short: "Preview which pods an update would release",
	Long: `Show which pods would be released for re-resolution if the named pods
were updated, and which would stay at their locked version.

Pod names match case-insensitively and select every subspec of the pod.
Nothing is written; the lockfile is left untouched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringVarP(&updateDir, "dir", "C", ".", "project directory")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	dir := updateDir
	if dir == "" {
		dir = "."
	}
	logger := loggerFromContext(cmd.Context())
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd, dir)
	if err != nil {
		return err
	}

	lf, err := lockfile.Load(cfg.LockfilePath(dir))
	if err != nil {
		return zerr.Wrap(err, "loading lockfile")
	}

	known := make(map[string]bool)
	for _, root := range lf.RootPods() {
		known[strings.ToLower(root)] = true
	}
	for _, name := range args {
		if !known[strings.ToLower(requirement.RootName(name))] {
			return zerr.With(zerr.Wrap(ErrPodNotFound, "cannot update"), "pod", name)
		}
	}

	g, err := locking.Build(lf, nil, locking.Options{Malformed: cfg.MalformedPolicy(), Logger: logger})
	if err != nil {
		return zerr.Wrap(err, "building locking graph")
	}
	released := locking.ApplyRemovals(g, args)

	kept := section{title: "Staying locked:", mark: "=", style: styleDim}
	for _, v := range g.Vertices() {
		if v.Payload == nil {
			continue
		}
		if version, ok := v.Payload.LockedVersion(); ok {
			kept.items = append(kept.items, fmt.Sprintf("%s %s", v.Name, version))
		}
	}

	fmt.Fprintf(out, "Updating %s would release %d pods\n", strings.Join(args, ", "), len(released))
	printSections(out,
		section{title: "Released:", mark: markChanged, style: styleChanged, items: released},
		kept,
	)
	return nil
}
