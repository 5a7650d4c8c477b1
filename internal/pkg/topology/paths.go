package topology

import (
	"fmt"
	"log"

	"github.com/bits-and-blooms/bitset"
)

// Paths holds the per-node path vectors and per-edge depths of a rooted feeder.
// Bit i of a node's vector is set when edge i lies on the source-to-node path.
type Paths struct {
	Source  string
	vectors map[string]*bitset.BitSet
	depth   []int
	size    uint
}

// Index roots g at source and encodes every reachable node's path.
func Index(g *Graph, source string) (*Paths, error) {
	size := uint(g.EdgeCount())
	p := &Paths{
		Source:  source,
		vectors: make(map[string]*bitset.BitSet, g.NodeCount()),
		depth:   make([]int, g.EdgeCount()),
		size:    size,
	}
	for i := range p.depth {
		p.depth[i] = -1
	}

	p.vectors[source] = bitset.New(size)
	err := Walk(g, source, Visitor{
		Scan: func(e *Edge, depth int) bool {
			p.depth[e.Index] = depth
			return true
		},
		Descend: func(e *Edge, from *Node, path []*Edge) {
			v := bitset.New(size)
			for _, on := range path {
				v.Set(uint(on.Index))
			}
			p.vectors[e.Other(from.ID)] = v
		},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Vector returns the path vector of node id. Unreachable nodes report false.
func (p *Paths) Vector(id string) (*bitset.BitSet, bool) {
	v, ok := p.vectors[id]
	return v, ok
}

// OnPath reports whether edge index lies on the source-to-node path.
func (p *Paths) OnPath(id string, index int) bool {
	v, ok := p.vectors[id]
	if !ok {
		return false
	}
	return v.Test(uint(index))
}

// Between returns the indicator of the edges on the path joining a and b.
func (p *Paths) Between(a, b string) (*bitset.BitSet, error) {
	va, ok := p.vectors[a]
	if !ok {
		return nil, fmt.Errorf("node %v: %w", a, ErrNodeNotFound)
	}
	vb, ok := p.vectors[b]
	if !ok {
		return nil, fmt.Errorf("node %v: %w", b, ErrNodeNotFound)
	}
	return va.SymmetricDifference(vb), nil
}

// EdgesBetween lists the edge indexes on the path joining a and b in ascending order.
func (p *Paths) EdgesBetween(a, b string) ([]int, error) {
	between, err := p.Between(a, b)
	if err != nil {
		return nil, err
	}
	edges := make([]int, 0, between.Count())
	for i, ok := between.NextSet(0); ok; i, ok = between.NextSet(i + 1) {
		edges = append(edges, int(i))
	}
	return edges, nil
}

// Depth is the number of edges strictly between the source and edge index.
// Edges never scanned from the source report -1.
func (p *Paths) Depth(index int) int {
	if index < 0 || index >= len(p.depth) {
		return -1
	}
	return p.depth[index]
}

// MainLine resolves the feeder's main line edge: the first edge met during the walk
// whose limit has been rated. When nothing is rated it falls back to the source's first
// incident edge. Returns nil when the source has no incident edge.
func MainLine(g *Graph, source string) (*Edge, error) {
	if _, ok := g.nodes[source]; !ok {
		return nil, ErrNoSourceFound
	}

	var main *Edge
	err := Walk(g, source, Visitor{
		Scan: func(e *Edge, _ int) bool {
			if e.Rated() {
				main = e
				return false
			}
			return true
		},
	})
	if err != nil {
		return nil, err
	}
	if incident := g.Incident(source); main == nil && len(incident) > 0 {
		main = incident[0]
	}
	return main, nil
}

// AssignRating applies a device rating spanning nodes n1 and n2: every edge on the
// path between them takes the smaller of its limit and the device rating, plus the
// device's conductor class. It returns the number of edges updated.
func AssignRating(g *Graph, p *Paths, n1, n2 string, limit float64, class Class) (int, error) {
	edges, err := p.EdgesBetween(n1, n2)
	if err != nil {
		log.Printf("[Topology] rating span %v-%v skipped: %v", n1, n2, err)
		return 0, err
	}
	for _, i := range edges {
		e := g.edges[i]
		if limit < e.LimI {
			e.LimI = limit
		}
		e.Class = class
	}
	return len(edges), nil
}
