package render_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/anthr76/podlock/internal/graph"
	"github.com/anthr76/podlock/internal/lockfile"
	"github.com/anthr76/podlock/internal/locking"
	"github.com/anthr76/podlock/internal/render"
)

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	lf := &lockfile.Lockfile{
		Pods: []lockfile.Entry{
			lockfile.Leaf("A (1.0)"),
			lockfile.Node("B (2.0)", lockfile.Leaf("C (~> 1.0)")),
		},
		Dependencies: []string{"A", "B", "D"},
	}
	g, err := locking.Build(lf, []string{"B"}, locking.Options{})
	require.NoError(t, err)
	return g
}

func TestText(t *testing.T) {
	want := `A (= 1.0) [explicit]
B (unlocked) [explicit]
  -> C
D (unconstrained) [explicit]
C (unconstrained)
`
	assert.Equal(t, want, string(render.Text(sampleGraph(t))))
}

func TestDOT(t *testing.T) {
	out := string(render.DOT(sampleGraph(t)))

	assert.Contains(t, out, "digraph podlock {")
	assert.Contains(t, out, `"A" [label="A (= 1.0)", penwidth=2];`)
	assert.Contains(t, out, `"B" [label="B", penwidth=2, style="rounded,dashed"];`)
	assert.Contains(t, out, `"C" [label="C"];`)
	assert.Contains(t, out, `"B" -> "C" [label="(~> 1.0)"];`)
	assert.True(t, bytes.HasSuffix([]byte(out), []byte("}\n")))
}

func TestDOT_Quoting(t *testing.T) {
	g := graph.New()
	g.AddVertex("Café", nil, false)
	g.AddVertex(`Odd"Name\x`, nil, false)
	require.NoError(t, g.AddEdge("Café", `Odd"Name\x`, nil))

	out := string(render.DOT(g))
	assert.Contains(t, out, `"Café" [label="Café"];`)
	assert.Contains(t, out, `"Odd\"Name\\x" [label="Odd\"Name\\x"];`)
	assert.Contains(t, out, `"Café" -> "Odd\"Name\\x";`)
	assert.NotContains(t, out, `\u00e9`)
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, sampleGraph(t), render.FormatJSON))

	var doc render.Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	require.Len(t, doc.Vertices, 4)
	assert.Equal(t, render.VertexDoc{Name: "A", Payload: "A (= 1.0)", Explicit: true}, doc.Vertices[0])
	assert.Equal(t, render.VertexDoc{Name: "B", Payload: "B", Explicit: true}, doc.Vertices[1])
	assert.Equal(t, []render.EdgeDoc{{From: "B", To: "C", Requirement: "C (~> 1.0)"}}, doc.Edges)
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, sampleGraph(t), render.FormatYAML))

	var doc render.Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, render.NewDocument(sampleGraph(t)), doc)
}

func TestWrite_EmptyGraph(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, locking.Unlocked(), render.FormatJSON))
	assert.JSONEq(t, `{"vertices": [], "edges": []}`, buf.String())

	buf.Reset()
	require.NoError(t, render.Write(&buf, locking.Unlocked(), render.FormatText))
	assert.Empty(t, buf.String())
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := render.Write(&buf, sampleGraph(t), "svg")
	assert.ErrorIs(t, err, render.ErrUnknownFormat)
	assert.Empty(t, buf.String())

	for _, f := range render.Formats {
		assert.NoError(t, render.ValidateFormat(f))
	}
}
