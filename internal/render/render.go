// Package render writes a locking graph in human and machine readable forms.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/anthr76/podlock/internal/graph"
)

// ErrUnknownFormat is returned for a format name Write does not support.
var ErrUnknownFormat = zerr.New("unknown output format")

// Format names accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatDOT  = "dot"
)

// Formats lists the supported formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatDOT}

// ValidateFormat returns ErrUnknownFormat unless format is supported.
func ValidateFormat(format string) error {
	if slices.Contains(Formats, format) {
		return nil
	}
	return zerr.With(zerr.Wrap(ErrUnknownFormat, "expected one of "+strings.Join(Formats, ", ")), "format", format)
}

// Document is the serialized form of a graph.
type Document struct {
	Vertices []VertexDoc `json:"vertices" yaml:"vertices"`
	Edges    []EdgeDoc   `json:"edges" yaml:"edges"`
}

// VertexDoc describes one vertex.
type VertexDoc struct {
	Name     string `json:"name" yaml:"name"`
	Payload  string `json:"payload,omitempty" yaml:"payload,omitempty"`
	Explicit bool   `json:"explicit,omitempty" yaml:"explicit,omitempty"`
}

// EdgeDoc describes one edge.
type EdgeDoc struct {
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Requirement string `json:"requirement,omitempty" yaml:"requirement,omitempty"`
}

// NewDocument flattens g in insertion order.
func NewDocument(g *graph.Graph) Document {
	doc := Document{
		Vertices: []VertexDoc{},
		Edges:    []EdgeDoc{},
	}
	for _, v := range g.Vertices() {
		vd := VertexDoc{Name: v.Name, Explicit: v.Explicit}
		if v.Payload != nil {
			vd.Payload = v.Payload.String()
		}
		doc.Vertices = append(doc.Vertices, vd)
	}
	for _, e := range g.Edges() {
		ed := EdgeDoc{From: e.From, To: e.To}
		if e.Requirement != nil {
			ed.Requirement = e.Requirement.String()
		}
		doc.Edges = append(doc.Edges, ed)
	}
	return doc
}

// Write renders g to w in the named format.
func Write(w io.Writer, g *graph.Graph, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatText:
		data = Text(g)
	case FormatJSON:
		data, err = json.MarshalIndent(NewDocument(g), "", "  ")
		data = append(data, '\n')
	case FormatYAML:
		data, err = yaml.Marshal(NewDocument(g))
	case FormatDOT:
		data = DOT(g)
	default:
		return ValidateFormat(format)
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, "encoding graph"), "format", format)
	}

	if _, err := w.Write(data); err != nil {
		return zerr.Wrap(err, "writing graph")
	}
	return nil
}

// Text lists each vertex with its payload, followed by its children.
//
//	AFNetworking (= 2.0.0) [explicit]
//	  -> AFNetworking/Serialization
//	JSONKit (unlocked)
func Text(g *graph.Graph) []byte {
	var buf bytes.Buffer
	for _, v := range g.Vertices() {
		buf.WriteString(v.Name)
		switch {
		case v.Payload == nil:
			buf.WriteString(" (unconstrained)")
		case v.Payload.IsNameOnly():
			buf.WriteString(" (unlocked)")
		default:
			buf.WriteString(strings.TrimPrefix(v.Payload.String(), v.Name))
		}
		if v.Explicit {
			buf.WriteString(" [explicit]")
		}
		buf.WriteByte('\n')
		for _, child := range g.Children(v.Name) {
			fmt.Fprintf(&buf, "  -> %s\n", child)
		}
	}
	return buf.Bytes()
}

// DOT renders g as a Graphviz digraph. Explicit pods are drawn bold and
// unlocked pods dashed.
func DOT(g *graph.Graph) []byte {
	var buf bytes.Buffer
	buf.WriteString("digraph podlock {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded];\n")
	buf.WriteString("\n")

	for _, v := range g.Vertices() {
		label := v.Name
		if v.Payload != nil && v.Payload.HasVersion() {
			label = v.Payload.String()
		}
		attrs := []string{"label=" + dotQuote(label)}
		if v.Explicit {
			attrs = append(attrs, "penwidth=2")
		}
		if v.Payload != nil && v.Payload.IsNameOnly() {
			attrs = append(attrs, `style="rounded,dashed"`)
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", dotQuote(v.Name), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if e.Requirement != nil && e.Requirement.HasVersion() {
			fmt.Fprintf(&buf, "  %s -> %s [label=%s];\n", dotQuote(e.From), dotQuote(e.To), dotQuote(strings.TrimPrefix(e.Requirement.String(), e.To+" ")))
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s;\n", dotQuote(e.From), dotQuote(e.To))
	}

	buf.WriteString("}\n")
	return buf.Bytes()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// dotQuote returns s as a DOT double-quoted string. Only backslash and quote
// are escaped; everything else, including non-ASCII, is written as is.
func dotQuote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}
