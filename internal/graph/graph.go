// Package graph provides the dependency graph handed to a resolver: vertices
// keyed by pod name, each optionally carrying a requirement payload, connected
// by parent -> child edges recorded at lock time.
//
// Graphs are not safe for concurrent mutation. A graph is built by a single
// owner and treated as read-only once handed off.
package graph

import (
	"slices"

	"go.trai.ch/zerr"

	"github.com/anthr76/podlock/internal/requirement"
)

var (
	// ErrUnknownVertex is returned when an edge references a vertex that is not in the graph.
	ErrUnknownVertex = zerr.New("unknown vertex")

	// ErrCircularDependency is returned when adding an edge would close a cycle.
	ErrCircularDependency = zerr.New("circular dependency")
)

// Vertex is a pod in the graph.
type Vertex struct {
	Name string

	// Payload is the requirement the resolver must honor. Nil means the
	// vertex places no constraint on the pod.
	Payload *requirement.Requirement

	// Explicit marks pods named directly by the manifest.
	Explicit bool
}

// Edge records that To was a dependency of From.
type Edge struct {
	From string
	To   string

	// Requirement is what From declared on To, if known.
	Requirement *requirement.Requirement
}

// Graph is a directed graph of pod vertices.
// The zero value is not usable; use New.
type Graph struct {
	vertices map[string]*Vertex
	order    []string
	outgoing map[string][]string
	incoming map[string][]string
	edges    map[[2]string]*requirement.Requirement
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		vertices: make(map[string]*Vertex),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		edges:    make(map[[2]string]*requirement.Requirement),
	}
}

// AddVertex adds name to the graph, or updates it if already present.
// An existing payload is kept; payload only fills an empty one. Explicit is
// sticky once set.
func (g *Graph) AddVertex(name string, payload *requirement.Requirement, explicit bool) *Vertex {
	v, ok := g.vertices[name]
	if !ok {
		v = &Vertex{Name: name}
		g.vertices[name] = v
		g.order = append(g.order, name)
	}
	if v.Payload == nil {
		v.Payload = payload
	}
	v.Explicit = v.Explicit || explicit
	return v
}

// AddChildVertex adds name and an edge to it from every parent.
// Each edge carries extra as the parent's declared requirement.
func (g *Graph) AddChildVertex(name string, payload *requirement.Requirement, parents []string, extra *requirement.Requirement) (*Vertex, error) {
	for _, p := range parents {
		if _, ok := g.vertices[p]; !ok {
			return nil, zerr.With(zerr.Wrap(ErrUnknownVertex, "parent not in graph"), "vertex", p)
		}
	}
	v := g.AddVertex(name, payload, false)
	for _, p := range parents {
		if err := g.AddEdge(p, name, extra); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// AddEdge connects from -> to. Adding an edge that already exists is a no-op.
func (g *Graph) AddEdge(from, to string, req *requirement.Requirement) error {
	if _, ok := g.vertices[from]; !ok {
		return zerr.With(zerr.Wrap(ErrUnknownVertex, "edge source not in graph"), "vertex", from)
	}
	if _, ok := g.vertices[to]; !ok {
		return zerr.With(zerr.Wrap(ErrUnknownVertex, "edge target not in graph"), "vertex", to)
	}
	key := [2]string{from, to}
	if _, ok := g.edges[key]; ok {
		return nil
	}
	if from == to || g.PathTo(to, from) {
		err := zerr.With(zerr.Wrap(ErrCircularDependency, "edge would close a cycle"), "from", from)
		return zerr.With(err, "to", to)
	}
	g.edges[key] = req
	g.outgoing[from] = append(g.outgoing[from], to)
	g.incoming[to] = append(g.incoming[to], from)
	return nil
}

// DetachVertex removes name and every edge touching it. Children are left in
// place even if they lose their last parent. It reports whether the vertex
// existed.
func (g *Graph) DetachVertex(name string) bool {
	if _, ok := g.vertices[name]; !ok {
		return false
	}
	for _, child := range g.outgoing[name] {
		g.incoming[child] = slices.DeleteFunc(g.incoming[child], func(s string) bool { return s == name })
		delete(g.edges, [2]string{name, child})
	}
	for _, parent := range g.incoming[name] {
		g.outgoing[parent] = slices.DeleteFunc(g.outgoing[parent], func(s string) bool { return s == name })
		delete(g.edges, [2]string{parent, name})
	}
	delete(g.outgoing, name)
	delete(g.incoming, name)
	delete(g.vertices, name)
	g.order = slices.DeleteFunc(g.order, func(s string) bool { return s == name })
	return true
}

// Vertex returns the vertex called name.
func (g *Graph) Vertex(name string) (*Vertex, bool) {
	v, ok := g.vertices[name]
	return v, ok
}

// VertexNames returns vertex names in insertion order.
func (g *Graph) VertexNames() []string { return slices.Clone(g.order) }

// Vertices returns the vertices in insertion order.
func (g *Graph) Vertices() []*Vertex {
	out := make([]*Vertex, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.vertices[name])
	}
	return out
}

// Edges returns every edge, grouped by source in vertex insertion order.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, from := range g.order {
		for _, to := range g.outgoing[from] {
			out = append(out, Edge{From: from, To: to, Requirement: g.edges[[2]string{from, to}]})
		}
	}
	return out
}

// Children returns the names name has edges to.
func (g *Graph) Children(name string) []string { return slices.Clone(g.outgoing[name]) }

// Parents returns the names with edges to name.
func (g *Graph) Parents(name string) []string { return slices.Clone(g.incoming[name]) }

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.vertices) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// PathTo reports whether to is reachable from from.
func (g *Graph) PathTo(from, to string) bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		for _, c := range g.outgoing[n] {
			if !seen[c] {
				seen[c] = true
				stack = append(stack, c)
			}
		}
	}
	return false
}

// Clone returns a deep copy of g. Payloads are copied, so the clone can be
// pruned or modified without affecting g.
func (g *Graph) Clone() *Graph {
	c := New()
	for _, v := range g.Vertices() {
		c.AddVertex(v.Name, clonePayload(v.Payload), v.Explicit)
	}
	for _, e := range g.Edges() {
		c.edges[[2]string{e.From, e.To}] = clonePayload(e.Requirement)
		c.outgoing[e.From] = append(c.outgoing[e.From], e.To)
		c.incoming[e.To] = append(c.incoming[e.To], e.From)
	}
	return c
}

// Equal reports whether g and o have the same vertices, payloads, flags and
// edges. Insertion order is ignored.
func (g *Graph) Equal(o *Graph) bool {
	if g.Len() != o.Len() || g.EdgeCount() != o.EdgeCount() {
		return false
	}
	for name, v := range g.vertices {
		ov, ok := o.vertices[name]
		if !ok || v.Explicit != ov.Explicit || !samePayload(v.Payload, ov.Payload) {
			return false
		}
	}
	for key, req := range g.edges {
		oreq, ok := o.edges[key]
		if !ok || !samePayload(req, oreq) {
			return false
		}
	}
	return true
}

func clonePayload(p *requirement.Requirement) *requirement.Requirement {
	if p == nil {
		return nil
	}
	c := *p
	c.Constraints = slices.Clone(p.Constraints)
	c.SourceOptions = slices.Clone(p.SourceOptions)
	return &c
}

func samePayload(a, b *requirement.Requirement) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
