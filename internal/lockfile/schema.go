// Package lockfile provides types and functions for working with Podfile.lock files.
package lockfile

import (
	"github.com/anthr76/podlock/internal/requirement"
)

// Lockfile represents the Podfile.lock file structure.
type Lockfile struct {
	Pods            []Entry                      `json:"pods,omitempty" yaml:"PODS,omitempty"`
	Dependencies    []string                     `json:"dependencies,omitempty" yaml:"DEPENDENCIES,omitempty"`
	SpecRepos       map[string][]string          `json:"spec_repos,omitempty" yaml:"SPEC REPOS,omitempty"`
	ExternalSources map[string]map[string]string `json:"external_sources,omitempty" yaml:"EXTERNAL SOURCES,omitempty"`
	CheckoutOptions map[string]map[string]string `json:"checkout_options,omitempty" yaml:"CHECKOUT OPTIONS,omitempty"`
	SpecChecksums   map[string]string            `json:"spec_checksums,omitempty" yaml:"SPEC CHECKSUMS,omitempty"`
	PodfileChecksum string                       `json:"podfile_checksum,omitempty" yaml:"PODFILE CHECKSUM,omitempty"`
	CocoaPods       string                       `json:"cocoapods,omitempty" yaml:"COCOAPODS,omitempty"`
}

// New creates an empty Lockfile stamped with the given CocoaPods version.
func New(cocoaPodsVersion string) *Lockfile {
	return &Lockfile{
		SpecChecksums: make(map[string]string),
		CocoaPods:     cocoaPodsVersion,
	}
}

// LockedVersions returns the locked version of every top-level pod, keyed by
// the pod's full name. Entries that do not parse are skipped; the builder
// reports those.
func (lf *Lockfile) LockedVersions() map[string]string {
	versions := make(map[string]string, len(lf.Pods))
	for _, e := range lf.Pods {
		if e.Kind == KindMalformed {
			continue
		}
		r, err := requirement.Parse(e.Requirement)
		if err != nil {
			continue
		}
		if v, ok := r.LockedVersion(); ok {
			versions[r.Name] = v
		}
	}
	return versions
}

// RootPods returns the distinct root names of the top-level pods, in order.
func (lf *Lockfile) RootPods() []string {
	var names []string
	seen := make(map[string]bool)
	for _, e := range lf.Pods {
		if e.Kind == KindMalformed {
			continue
		}
		r, err := requirement.Parse(e.Requirement)
		if err != nil {
			continue
		}
		if root := r.RootName(); !seen[root] {
			seen[root] = true
			names = append(names, root)
		}
	}
	return names
}
