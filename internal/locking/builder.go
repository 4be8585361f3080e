// Package locking builds the version-locking graph a resolver starts from.
//
// The graph is decoded from a Podfile.lock. Every pod that was locked keeps
// its exact locked requirement, pods in the float set keep their place in the
// graph but lose their version, and pods in the remove set are detached so
// they get resolved from scratch.
package locking

import (
	"slices"
	"strings"

	"go.trai.ch/zerr"

	"github.com/anthr76/podlock/internal/graph"
	"github.com/anthr76/podlock/internal/lockfile"
	"github.com/anthr76/podlock/internal/requirement"
)

// builder holds the state of a single Build call.
type builder struct {
	g     *graph.Graph
	float map[string]bool
	opts  Options
}

// Build decodes lf into a graph. Pods whose root name is in float are given a
// name-only payload wherever they appear. A nil lockfile yields an empty graph.
func Build(lf *lockfile.Lockfile, float []string, opts Options) (*graph.Graph, error) {
	b := &builder{
		g:     graph.New(),
		float: make(map[string]bool, len(float)),
		opts:  opts,
	}
	for _, name := range float {
		b.float[name] = true
	}

	if lf == nil {
		return b.g, nil
	}

	for _, dep := range lf.Dependencies {
		r, err := requirement.Parse(dep)
		if err != nil {
			return nil, zerr.Wrap(err, "parsing DEPENDENCIES")
		}
		b.g.AddVertex(r.Name, nil, true)
	}

	for _, e := range lf.Pods {
		if err := b.visit(e, nil); err != nil {
			return nil, err
		}
	}

	return b.g, nil
}

func (b *builder) visit(e lockfile.Entry, parents []string) error {
	switch e.Kind {
	case lockfile.KindLeaf:
		_, err := b.add(e.Requirement, parents)
		return err
	case lockfile.KindNode:
		name, err := b.add(e.Requirement, parents)
		if err != nil {
			return err
		}
		for _, child := range e.Children {
			if err := b.visit(child, []string{name}); err != nil {
				return err
			}
		}
		return nil
	default:
		if b.opts.Malformed == SkipMalformed {
			return b.skip(e, parents)
		}
		return zerr.With(zerr.Wrap(ErrMalformedLockRecord, "unexpected PODS entry"), "line", e.Line)
	}
}

// skip handles a malformed entry under SkipMalformed. A mapping of several
// requirements is read key by key; anything else is dropped.
func (b *builder) skip(e lockfile.Entry, parents []string) error {
	logger := b.opts.logger()
	if len(e.Parts) == 0 {
		logger.Warn("skipping malformed lock record", "line", e.Line)
		return nil
	}
	logger.Warn("reading multi-key lock record as separate pods", "line", e.Line, "pods", len(e.Parts))
	for _, part := range e.Parts {
		if err := b.visit(part, parents); err != nil {
			return err
		}
	}
	return nil
}

// add inserts the vertex for s under parents and returns its name. Only
// top-level occurrences set the payload; nested ones label the edge.
func (b *builder) add(s string, parents []string) (string, error) {
	r, err := requirement.Parse(s)
	if err != nil {
		return "", zerr.Wrap(err, "parsing PODS")
	}
	if b.float[r.RootName()] {
		r = requirement.NameOnly(r.Name)
	}

	var payload, extra *requirement.Requirement
	if len(parents) == 0 {
		payload = &r
	} else {
		extra = &r
	}
	if _, err := b.g.AddChildVertex(r.Name, payload, parents, extra); err != nil {
		return "", err
	}
	return r.Name, nil
}

// ApplyRemovals detaches every vertex whose root name matches the root name
// of one of names, ignoring case. Vertices that only hung off a detached one
// stay in the graph. It returns the detached vertex names in graph order.
func ApplyRemovals(g *graph.Graph, names []string) []string {
	if len(names) == 0 {
		return nil
	}
	roots := make(map[string]bool, len(names))
	for _, n := range names {
		roots[strings.ToLower(requirement.RootName(n))] = true
	}

	var detached []string
	for _, name := range g.VertexNames() {
		if roots[strings.ToLower(requirement.RootName(name))] {
			g.DetachVertex(name)
			detached = append(detached, name)
		}
	}
	return detached
}

// Unlocked returns the graph used when every pod is being updated.
func Unlocked() *graph.Graph {
	return graph.New()
}

// GenerateVersionLockingGraph builds the graph for lf with the unlock set
// floated, then detaches the update set.
func GenerateVersionLockingGraph(lf *lockfile.Lockfile, update, unlock []string, opts Options) (*graph.Graph, error) {
	g, err := Build(lf, unlock, opts)
	if err != nil {
		return nil, err
	}

	logger := opts.logger()
	logger.Debug("built locking graph", "vertices", g.Len(), "edges", g.EdgeCount())

	if released := ApplyRemovals(g, update); len(released) > 0 {
		logger.Debug("released pods", "pods", strings.Join(released, ", "))
	}

	return g, nil
}

// ChangedPods returns the root names of Podfile requirements that no longer
// match the lockfile: pods not in DEPENDENCIES, pods whose requirement
// differs from the locked one, and pods whose locked version does not
// satisfy the requirement. Names are returned in Podfile order.
func ChangedPods(podfile []requirement.Requirement, lf *lockfile.Lockfile) []string {
	locked := make(map[string]requirement.Requirement)
	versions := make(map[string]string)
	if lf != nil {
		for _, dep := range lf.Dependencies {
			if r, err := requirement.Parse(dep); err == nil {
				locked[r.Name] = r
			}
		}
		versions = lf.LockedVersions()
	}

	var changed []string
	for _, want := range podfile {
		root := want.RootName()
		if slices.Contains(changed, root) {
			continue
		}
		if !podUnchanged(want, locked, versions) {
			changed = append(changed, root)
		}
	}
	return changed
}

func podUnchanged(want requirement.Requirement, locked map[string]requirement.Requirement, versions map[string]string) bool {
	have, ok := locked[want.Name]
	if !ok || !have.Equal(want) {
		return false
	}
	if want.External != "" || want.Head {
		return true
	}
	v, ok := versions[want.Name]
	if !ok {
		v, ok = versions[want.RootName()]
	}
	if !ok {
		return false
	}
	sat, err := want.SatisfiedBy(v)
	return err == nil && sat
}
