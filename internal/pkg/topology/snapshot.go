package topology

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
)

// Snapshot is the serialized form of a feeder topology handed over by the model provider.
type Snapshot struct {
	Source string         `json:"Source"`
	Nodes  []string       `json:"Nodes"`
	Edges  []SnapshotEdge `json:"Edges"`
}

type SnapshotEdge struct {
	N1      string   `json:"N1"`
	N2      string   `json:"N2"`
	Devices []Device `json:"Devices"`
}

// Load reads a snapshot file and builds its graph.
func Load(path string) (*Graph, string, error) {
	jsonFile, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	s := Snapshot{}
	if err := json.Unmarshal(jsonFile, &s); err != nil {
		return nil, "", err
	}

	g, err := FromSnapshot(s)
	if err != nil {
		return nil, "", err
	}
	return g, s.Source, nil
}

// FromSnapshot builds a graph. Nodes referenced only by edges are added on the fly.
func FromSnapshot(s Snapshot) (*Graph, error) {
	g := NewGraph()
	for _, id := range s.Nodes {
		if err := g.AddNode(id); err != nil {
			return nil, err
		}
	}
	for i, se := range s.Edges {
		for _, id := range []string{se.N1, se.N2} {
			if _, ok := g.Node(id); !ok {
				g.AddNode(id)
			}
		}
		if _, err := g.AddEdge(se.N1, se.N2, se.Devices...); err != nil {
			return nil, fmt.Errorf("snapshot edge %d: %w", i, err)
		}
	}
	if _, ok := g.Node(s.Source); !ok {
		return nil, fmt.Errorf("source %q: %w", s.Source, ErrNoSourceFound)
	}
	return g, nil
}
