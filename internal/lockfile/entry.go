package lockfile

import (
	"gopkg.in/yaml.v3"
)

// Kind tags the shape of a PODS entry.
type Kind int

const (
	// KindLeaf is a plain requirement string.
	KindLeaf Kind = iota
	// KindNode is a requirement mapped to the entries it depended on.
	KindNode
	// KindMalformed is anything else found in the lockfile.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindNode:
		return "node"
	default:
		return "malformed"
	}
}

// Entry is one element of the PODS section.
type Entry struct {
	Kind        Kind
	Requirement string
	Children    []Entry

	// Line is the 1-based line the entry was decoded from, or 0.
	Line int

	// Parts holds one node per key when a malformed entry is a mapping of
	// several requirements to their dependencies.
	Parts []Entry

	raw *yaml.Node
}

// Leaf returns a plain requirement entry.
func Leaf(req string) Entry {
	return Entry{Kind: KindLeaf, Requirement: req}
}

// Node returns a requirement entry with nested dependencies.
func Node(req string, children ...Entry) Entry {
	return Entry{Kind: KindNode, Requirement: req, Children: children}
}

// UnmarshalYAML decodes a PODS entry. Shapes other than a string or a
// single-key mapping to a sequence decode as KindMalformed instead of failing,
// so the caller decides how strict to be. A mapping of several requirements to
// sequences is malformed too, but keeps one node per key in Parts.
func (e *Entry) UnmarshalYAML(n *yaml.Node) error {
	*e = Entry{Kind: KindMalformed, Line: n.Line, raw: n}

	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!str" {
			e.Kind = KindLeaf
			e.Requirement = n.Value
			e.raw = nil
		}
	case yaml.MappingNode:
		parts, err := decodeNodes(n)
		if err != nil || parts == nil {
			return err
		}
		if len(parts) > 1 {
			e.Parts = parts
			return nil
		}
		*e = parts[0]
	}
	return nil
}

// decodeNodes decodes each key of a mapping whose keys are strings and
// whose values are sequences. It returns nil for any other mapping.
func decodeNodes(n *yaml.Node) ([]Entry, error) {
	if len(n.Content) == 0 {
		return nil, nil
	}
	var parts []Entry
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.ShortTag() != "!!str" || value.Kind != yaml.SequenceNode {
			return nil, nil
		}
		var children []Entry
		if err := value.Decode(&children); err != nil {
			return nil, err
		}
		parts = append(parts, Entry{Kind: KindNode, Requirement: key.Value, Children: children, Line: key.Line})
	}
	return parts, nil
}

// MarshalYAML encodes leaves as strings and nodes as single-key mappings.
// Malformed entries are written back as they were read.
func (e Entry) MarshalYAML() (any, error) {
	switch e.Kind {
	case KindLeaf:
		return e.Requirement, nil
	case KindNode:
		children := e.Children
		if children == nil {
			children = []Entry{}
		}
		return map[string][]Entry{e.Requirement: children}, nil
	default:
		return e.raw, nil
	}
}
