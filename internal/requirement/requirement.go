// Package requirement parses pod requirement strings such as
// "AFNetworking (~> 2.0)" or "Foo/Core (= 1.2.0)".
package requirement

import (
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrInvalidRequirement is returned when a requirement string cannot be parsed.
	ErrInvalidRequirement = zerr.New("invalid requirement")

	// ErrInvalidVersion is returned when a version cannot be compared.
	ErrInvalidVersion = zerr.New("invalid version")
)

// Operator is a version comparison operator.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpPessimistic  Operator = "~>"
)

// Constraint is a single operator/version pair.
type Constraint struct {
	Op      Operator `json:"op" yaml:"op"`
	Version string   `json:"version" yaml:"version"`
}

func (c Constraint) String() string {
	return string(c.Op) + " " + c.Version
}

// Requirement is a pod name plus the versions it accepts.
type Requirement struct {
	// Name is the possibly qualified pod name (e.g. "Foo/Core").
	Name string `json:"name" yaml:"name"`

	// Constraints is empty for a name-only requirement.
	Constraints []Constraint `json:"constraints,omitempty" yaml:"constraints,omitempty"`

	// External holds the source of a "(from `...`)" requirement.
	External string `json:"external,omitempty" yaml:"external,omitempty"`

	// SourceOptions are the qualifiers that follow an external source, such as
	// tag, branch or commit, in the order they were written.
	SourceOptions []SourceOption `json:"source_options,omitempty" yaml:"source_options,omitempty"`

	// Head is set for the legacy "(HEAD)" form.
	Head bool `json:"head,omitempty" yaml:"head,omitempty"`
}

// SourceOption is one "key `value`" qualifier of an external source.
type SourceOption struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

var (
	namePattern       = regexp.MustCompile(`^[^\s()]+$`)
	sourcePattern     = regexp.MustCompile("(\\w+) [`']([^`']*)[`'](?:,\\s*|$)")
	constraintPattern = regexp.MustCompile(`^(=|!=|>=|>|<=|<|~>)?\s*([0-9][0-9A-Za-z.+\-]*)$`)
)

// Parse parses a requirement string.
func Parse(s string) (Requirement, error) {
	trimmed := strings.TrimSpace(s)
	name, rest, hasRest := strings.Cut(trimmed, " ")
	if !namePattern.MatchString(name) {
		return Requirement{}, invalid(s, "missing or malformed name")
	}

	req := Requirement{Name: name}
	if !hasRest {
		return req, nil
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return Requirement{}, invalid(s, "version must be enclosed in parentheses")
	}
	body := strings.TrimSpace(rest[1 : len(rest)-1])
	if body == "" || strings.ContainsAny(body, "()") {
		return Requirement{}, invalid(s, "malformed version clause")
	}

	if strings.HasPrefix(body, "from ") {
		src, opts, ok := parseSource(body)
		if !ok {
			return Requirement{}, invalid(s, "malformed external source")
		}
		req.External = src
		req.SourceOptions = opts
		return req, nil
	}
	if body == "HEAD" {
		req.Head = true
		return req, nil
	}

	for part := range strings.SplitSeq(body, ",") {
		m := constraintPattern.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return Requirement{}, zerr.With(invalid(s, "malformed constraint"), "constraint", strings.TrimSpace(part))
		}
		op := Operator(m[1])
		if op == "" {
			op = OpEqual
		}
		req.Constraints = append(req.Constraints, Constraint{Op: op, Version: m[2]})
	}
	return req, nil
}

// parseSource splits "from `src`, tag `1.0`" into the source and its
// qualifiers. Every byte of body must belong to a "key `value`" pair.
func parseSource(body string) (string, []SourceOption, bool) {
	var (
		src  string
		opts []SourceOption
		pos  int
	)
	for i, m := range sourcePattern.FindAllStringSubmatchIndex(body, -1) {
		if m[0] != pos {
			return "", nil, false
		}
		key, value := body[m[2]:m[3]], body[m[4]:m[5]]
		if i == 0 {
			src = value
		} else {
			opts = append(opts, SourceOption{Key: key, Value: value})
		}
		pos = m[1]
	}
	if pos != len(body) || src == "" {
		return "", nil, false
	}
	return src, opts, true
}

func invalid(s, reason string) error {
	return zerr.With(zerr.Wrap(ErrInvalidRequirement, reason), "requirement", s)
}

// NameOnly returns a requirement for name that accepts any version.
func NameOnly(name string) Requirement {
	return Requirement{Name: name}
}

// RootName returns the unqualified pod name: "Foo/Core" -> "Foo".
func RootName(name string) string {
	root, _, _ := strings.Cut(name, "/")
	return root
}

// RootName returns the unqualified name of the requirement's pod.
func (r Requirement) RootName() string {
	return RootName(r.Name)
}

// HasVersion reports whether r pins or bounds the version in any way.
func (r Requirement) HasVersion() bool {
	return len(r.Constraints) > 0 || r.Head
}

// IsNameOnly reports whether r accepts any version from any source.
func (r Requirement) IsNameOnly() bool {
	return !r.HasVersion() && r.External == ""
}

// LockedVersion returns the version of a single "=" constraint, which is the
// shape every top-level lockfile entry has.
func (r Requirement) LockedVersion() (string, bool) {
	if len(r.Constraints) != 1 || r.Constraints[0].Op != OpEqual {
		return "", false
	}
	return r.Constraints[0].Version, true
}

// String formats r in the same grammar Parse accepts.
func (r Requirement) String() string {
	switch {
	case r.External != "":
		var b strings.Builder
		b.WriteString(r.Name + " (from `" + r.External + "`")
		for _, o := range r.SourceOptions {
			b.WriteString(", " + o.Key + " `" + o.Value + "`")
		}
		b.WriteString(")")
		return b.String()
	case r.Head:
		return r.Name + " (HEAD)"
	case len(r.Constraints) == 0:
		return r.Name
	}
	parts := make([]string, len(r.Constraints))
	for i, c := range r.Constraints {
		parts[i] = c.String()
	}
	return r.Name + " (" + strings.Join(parts, ", ") + ")"
}

// Equal reports whether two requirements are identical.
func (r Requirement) Equal(o Requirement) bool {
	if r.Name != o.Name || r.External != o.External || r.Head != o.Head || len(r.Constraints) != len(o.Constraints) {
		return false
	}
	for i := range r.Constraints {
		if r.Constraints[i] != o.Constraints[i] {
			return false
		}
	}
	return sameOptions(r.SourceOptions, o.SourceOptions)
}

// sameOptions compares source qualifiers regardless of order; CocoaPods and
// Podfiles do not agree on one.
func sameOptions(a, b []SourceOption) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !slices.Contains(b, x) {
			return false
		}
	}
	return true
}
