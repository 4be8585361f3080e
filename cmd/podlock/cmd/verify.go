package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/anthr76/podlock/internal/hash"
	"github.com/anthr76/podlock/internal/lockfile"
	"github.com/anthr76/podlock/internal/locking"
	"github.com/anthr76/podlock/internal/podfile"
	"github.com/anthr76/podlock/internal/requirement"
)

// ErrVerificationFailed is returned when the lockfile is out of sync.
var ErrVerificationFailed = zerr.New("lockfile verification failed")

var verifyCmd = &cobra.Command{
	Use:   "verify [directory]",
	Short: "Verify Podfile.lock matches the Podfile",
	Long: `Verify that Podfile.lock is in sync with the Podfile.

This command checks for:
- Pods declared in the Podfile but missing from DEPENDENCIES
- Pods in DEPENDENCIES no longer declared in the Podfile
- Requirements that changed since the last install
- Locked versions that do not satisfy the Podfile requirement
- Missing or malformed SPEC CHECKSUMS
- PODS entries that cannot be read`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir := projectDir(args)
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

	pf, err := podfile.Parse(cfg.PodfilePath(dir))
	if err != nil {
		return zerr.Wrap(err, "parsing Podfile")
	}

	// The lockfile must at least decode into a graph.
	if _, err := locking.Build(lf, nil, locking.Options{Malformed: cfg.MalformedPolicy(), Logger: logger}); err != nil {
		return zerr.Wrap(err, "reading lockfile")
	}

	if lf.PodfileChecksum != "" && lf.PodfileChecksum != pf.Checksum {
		logger.Warn("Podfile checksum differs from lockfile",
			"lockfile", hash.Short(lf.PodfileChecksum), "podfile", hash.Short(pf.Checksum))
	}

	missing := section{title: "Missing from lockfile:", mark: markAdded, style: styleAdded}
	extra := section{title: "Extra in lockfile:", mark: markRemoved, style: styleRemoved}
	changed := section{title: "Requirement mismatches:", mark: markChanged, style: styleChanged}
	checksums := section{title: "Checksum problems:", mark: markChanged, style: styleChanged}

	locked := make(map[string]requirement.Requirement)
	for _, dep := range lf.Dependencies {
		r, err := requirement.Parse(dep)
		if err != nil {
			return zerr.Wrap(err, "parsing DEPENDENCIES")
		}
		locked[r.Name] = r
	}
	versions := lf.LockedVersions()

	declared := make(map[string]bool)
	for _, want := range pf.Pods {
		declared[want.Name] = true

		have, ok := locked[want.Name]
		if !ok {
			missing.items = append(missing.items, want.String())
			continue
		}
		if !have.Equal(want) {
			changed.items = append(changed.items, fmt.Sprintf("%s: lockfile=%s, Podfile=%s", want.Name, have, want))
			continue
		}
		if msg := unsatisfied(want, versions); msg != "" {
			changed.items = append(changed.items, msg)
		}
	}

	for name := range locked {
		if !declared[name] {
			extra.items = append(extra.items, name)
		}
	}

	for _, root := range lf.RootPods() {
		if _, external := lf.ExternalSources[root]; external {
			continue
		}
		sum, ok := lf.SpecChecksums[root]
		if !ok {
			checksums.items = append(checksums.items, root+": no checksum")
			continue
		}
		if err := hash.ValidateChecksum(sum); err != nil {
			checksums.items = append(checksums.items, fmt.Sprintf("%s: invalid checksum %q", root, sum))
		}
	}

	sort.Strings(missing.items)
	sort.Strings(extra.items)
	sort.Strings(changed.items)
	sort.Strings(checksums.items)

	if missing.empty() && extra.empty() && changed.empty() && checksums.empty() {
		fmt.Fprintln(out, styleSuccess.Render("Podfile.lock is in sync with the Podfile"))
		return nil
	}

	fmt.Fprintln(out, "Podfile.lock is out of sync with the Podfile:")
	printSections(out, missing, extra, changed, checksums)
	return ErrVerificationFailed
}

// unsatisfied describes why the locked version of want is no longer
// acceptable, or returns "" if it is.
func unsatisfied(want requirement.Requirement, versions map[string]string) string {
	if want.External != "" || want.Head {
		return ""
	}
	v, ok := versions[want.Name]
	if !ok {
		v, ok = versions[want.RootName()]
	}
	if !ok {
		return want.Name + ": not in PODS"
	}
	sat, err := want.SatisfiedBy(v)
	if err != nil {
		return fmt.Sprintf("%s: cannot compare locked version %s", want.Name, v)
	}
	if !sat {
		return fmt.Sprintf("%s: locked %s does not satisfy %s", want.Name, v, want)
	}
	return ""
}
