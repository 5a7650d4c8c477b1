package association

import (
	"testing"

	"github.com/ohowland/feedercap/internal/pkg/topology"
	"gotest.tools/v3/assert"
)

type span struct {
	n1, n2 string
	id     string
	kind   topology.Kind
}

func build(t *testing.T, spans []span) *topology.Graph {
	s := topology.Snapshot{Source: "S"}
	for _, sp := range spans {
		s.Edges = append(s.Edges, topology.SnapshotEdge{
			N1:      sp.n1,
			N2:      sp.n2,
			Devices: []topology.Device{{ID: sp.id, Name: sp.id + " name", Kind: sp.kind}},
		})
	}
	g, err := topology.FromSnapshot(s)
	assert.NilError(t, err)
	return g
}

// S -L0- A -K1- B -L1- C -T1- D
//                     C -L2- E -T2- F
//        A -K2- G -T3- H
func branched(t *testing.T) *topology.Graph {
	return build(t, []span{
		{"S", "A", "L0", topology.Line},
		{"A", "B", "K1", topology.Switch},
		{"B", "C", "L1", topology.Line},
		{"C", "D", "T1", topology.Transformer},
		{"C", "E", "L2", topology.Line},
		{"E", "F", "T2", topology.Transformer},
		{"A", "G", "K2", topology.Switch},
		{"G", "H", "T3", topology.Transformer},
	})
}

func ids(refs []Ref) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ID)
	}
	return out
}

func TestSwitchTransformer(t *testing.T) {
	table, err := Build(branched(t), "S", NewAllow([]string{"K1"}))
	assert.NilError(t, err)

	assert.DeepEqual(t, ids(table.TransformersOf("K1")), []string{"T1", "T2"})
	assert.Equal(t, len(table.TransformersOf("K2")), 0)

	sw, ok := table.SwitchOf("T2")
	assert.Assert(t, ok)
	assert.Equal(t, sw.ID, "K1")
	assert.Equal(t, sw.Name, "K1 name")

	_, ok = table.SwitchOf("T3")
	assert.Assert(t, !ok)
}

func TestTransformerLine(t *testing.T) {
	table, err := Build(branched(t), "S", NewAllow([]string{"K1"}))
	assert.NilError(t, err)

	for tf, line := range map[string]string{"T1": "L1", "T2": "L2", "T3": "L0"} {
		ref, ok := table.LineOf(tf)
		assert.Assert(t, ok, tf)
		assert.Equal(t, ref.ID, line, tf)
	}
}

func TestSwitchLineSplitsAtBranch(t *testing.T) {
	table, err := Build(branched(t), "S", NewAllow([]string{"K1"}))
	assert.NilError(t, err)

	assert.DeepEqual(t, ids(table.LinesOf("K1")), []string{"L1"})
	for _, p := range table.SwitchLine {
		assert.Assert(t, p.To.ID != "L2", "L2 guarded by %v", p.From.ID)
	}
}

func TestSwitchLineTrailingSegment(t *testing.T) {
	g := build(t, []span{
		{"S", "A", "K1", topology.Switch},
		{"A", "B", "L1", topology.Line},
		{"B", "C", "L2", topology.Line},
	})
	table, err := Build(g, "S", nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, ids(table.LinesOf("K1")), []string{"L1", "L2"})
}

func TestBuildNoSource(t *testing.T) {
	_, err := Build(branched(t), "missing", nil)
	assert.ErrorIs(t, err, topology.ErrNoSourceFound)
}
