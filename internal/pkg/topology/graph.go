package topology

import (
	"errors"
	"fmt"
)

// Kind tags the type of device carried on an edge.
type Kind string

const (
	Line        Kind = "line"
	Switch      Kind = "switch"
	Transformer Kind = "transformer"
	Other       Kind = "other"
)

// Class is the conductor class of an edge. It selects the seasonal derating factors.
type Class int

const (
	Insulated Class = 1
	Bare      Class = 2
)

func (c Class) String() string {
	switch c {
	case Insulated:
		return "insulated"
	case Bare:
		return "bare"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Unrated is the ampacity sentinel carried by edges that no rating device covers.
// An edge is rated when its limit is strictly below it.
const Unrated = 10000.0

var (
	ErrNoSourceFound = errors.New("no source node found")
	ErrNodeNotFound  = errors.New("node does not exist in graph")
	ErrDuplicateNode = errors.New("node already exists in graph")
	ErrNoDevice      = errors.New("edge carries no device")
)

// Device is one piece of equipment bundled on an edge.
type Device struct {
	ID   string `json:"ID"`
	Name string `json:"Name"`
	Kind Kind   `json:"Kind"`
}

// Node is a connectivity point of the feeder.
type Node struct {
	ID    string
	edges []int
}

// Edges returns the indexes of the incident edges in scan order.
func (n Node) Edges() []int {
	return n.edges
}

// Degree is the number of incident edges, parallel edges counted separately.
func (n Node) Degree() int {
	return len(n.edges)
}

// Edge is a device span between two nodes. Index is stable for the lifetime of the
// graph and addresses every per-edge array built from it.
type Edge struct {
	Index   int
	N1      string
	N2      string
	Devices []Device
	Class   Class
	LimI    float64
}

// ID is the identifier of the first device on the edge.
func (e Edge) ID() string {
	return e.Devices[0].ID
}

// Name is the display name of the first device on the edge.
func (e Edge) Name() string {
	return e.Devices[0].Name
}

// Kind is the kind of the first device on the edge.
func (e Edge) Kind() Kind {
	return e.Devices[0].Kind
}

// Other returns the endpoint opposite to node id.
func (e Edge) Other(id string) string {
	if e.N1 == id {
		return e.N2
	}
	return e.N1
}

// Rated reports whether a real ampacity has been assigned.
func (e Edge) Rated() bool {
	return e.LimI < Unrated
}

// Graph is an undirected multigraph with an edge-index arena.
type Graph struct {
	nodes    map[string]*Node
	order    []string
	edges    []*Edge
	byDevice map[string]int
}

func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		order:    make([]string, 0),
		edges:    make([]*Edge, 0),
		byDevice: make(map[string]int),
	}
}

func (g *Graph) AddNode(id string) error {
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("node %v: %w", id, ErrDuplicateNode)
	}
	g.nodes[id] = &Node{ID: id, edges: make([]int, 0)}
	g.order = append(g.order, id)
	return nil
}

// AddEdge links two existing nodes. The new edge starts unrated and insulated.
func (g *Graph) AddEdge(n1, n2 string, devices ...Device) (*Edge, error) {
	start, exists := g.nodes[n1]
	if !exists {
		return nil, fmt.Errorf("start node %v: %w", n1, ErrNodeNotFound)
	}
	end, exists := g.nodes[n2]
	if !exists {
		return nil, fmt.Errorf("end node %v: %w", n2, ErrNodeNotFound)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("edge %v-%v: %w", n1, n2, ErrNoDevice)
	}

	e := &Edge{
		Index:   len(g.edges),
		N1:      n1,
		N2:      n2,
		Devices: devices,
		Class:   Insulated,
		LimI:    Unrated,
	}
	g.edges = append(g.edges, e)
	for _, d := range devices {
		if _, seen := g.byDevice[d.ID]; !seen {
			g.byDevice[d.ID] = e.Index
		}
	}

	start.edges = append(start.edges, e.Index)
	if n1 != n2 {
		end.edges = append(end.edges, e.Index)
	}
	return e, nil
}

func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns node ids in insertion order.
func (g *Graph) Nodes() []string {
	return g.order
}

func (g *Graph) Edge(index int) *Edge {
	return g.edges[index]
}

func (g *Graph) Edges() []*Edge {
	return g.edges
}

func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeOfDevice resolves the edge carrying device id.
func (g *Graph) EdgeOfDevice(id string) (*Edge, bool) {
	i, ok := g.byDevice[id]
	if !ok {
		return nil, false
	}
	return g.edges[i], true
}

// Incident returns the edges incident to node id in scan order.
func (g *Graph) Incident(id string) []*Edge {
	n, exists := g.nodes[id]
	if !exists {
		return make([]*Edge, 0)
	}
	edges := make([]*Edge, 0, len(n.edges))
	for _, i := range n.edges {
		edges = append(edges, g.edges[i])
	}
	return edges
}
