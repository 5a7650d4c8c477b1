package warning

import (
	"testing"

	"github.com/ohowland/feedercap/internal/pkg/association"
	"github.com/ohowland/feedercap/internal/pkg/topology"
	"gotest.tools/v3/assert"
)

type meas struct {
	tfMax   map[string]float64
	tfRated map[string]float64
	devMax  map[string]float64
}

func (m meas) TransformerYearMax(id string) float64 { return m.tfMax[id] }
func (m meas) TransformerRated(id string) float64   { return m.tfRated[id] }
func (m meas) DeviceYearMax(id string) float64      { return m.devMax[id] }

func TestClassifyBands(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		max, rated float64
		want       Level
	}{
		{50, 100, Normal},
		{80, 100, Normal},
		{90, 100, Heavy},
		{100, 100, Normal},
		{150, 100, Overload},
		{200, 100, Normal},
		{350, 100, Normal},
		{10, 0, Normal},
	}
	for _, c := range cases {
		level, _ := th.Classify(c.max, c.rated)
		assert.Equal(t, level, c.want, "%v/%v", c.max, c.rated)
	}
	_, ratio := th.Classify(90, 100)
	assert.Equal(t, ratio, 0.9)
}

func ref(id string) association.Ref {
	return association.Ref{ID: id, Name: id}
}

func TestTransformerWarnings(t *testing.T) {
	table := &association.Table{
		TransformerLine: []association.Pair{{From: ref("T1"), To: ref("L1")}},
	}
	m := meas{
		tfMax:   map[string]float64{"T1": 360, "T2": 500, "T3": 100},
		tfRated: map[string]float64{"T1": 400, "T2": 400, "T3": 400},
	}
	records := DefaultThresholds().Transformers([]association.Ref{ref("T1"), ref("T2"), ref("T3")}, table, m)
	assert.Equal(t, len(records), 2)

	assert.Equal(t, records[0].Level, Heavy)
	assert.Equal(t, records[0].Related.ID, "L1")
	assert.Equal(t, records[1].Level, Overload)
	assert.Equal(t, records[1].Device.ID, "T2")
	assert.Equal(t, records[1].Related.ID, "")
}

func TestLineWarnings(t *testing.T) {
	g := topology.NewGraph()
	for _, n := range []string{"A", "B", "C"} {
		g.AddNode(n)
	}
	l1, _ := g.AddEdge("A", "B", topology.Device{ID: "L1", Kind: topology.Line})
	g.AddEdge("B", "C", topology.Device{ID: "L2", Kind: topology.Line})
	l1.LimI = 200

	table := &association.Table{
		SwitchLine: []association.Pair{
			{From: ref("K1"), To: ref("L1")},
			{From: ref("K1"), To: ref("L2")},
		},
	}
	m := meas{devMax: map[string]float64{"K1": 250}}

	records := DefaultThresholds().Lines([]association.Ref{ref("K1")}, table, g, m)
	assert.Equal(t, len(records), 1)
	assert.Equal(t, records[0].Device.ID, "L1")
	assert.Equal(t, records[0].Related.ID, "K1")
	assert.Equal(t, records[0].Level, Overload)
	assert.Equal(t, records[0].Ratio, 1.25)

	tally := Tally{}
	tally.Add(records...)
	tally.Add(Record{Kind: topology.Transformer, Level: Heavy})
	assert.Equal(t, tally.LineOverload, 1)
	assert.Equal(t, tally.TransformerHeavy, 1)
	assert.Equal(t, tally.Total(), 2)
}
