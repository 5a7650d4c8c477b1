package topology

// Visitor hooks into Walk. Any hook may be nil.
//
// Scan is called for every incident edge inspected from the node on top of the stack,
// with the current path length. Returning false stops the walk.
// Descend is called after the walk steps across e from node from; path already ends with e.
// Backtrack is called when the node reached through e is exhausted; path still ends with e.
type Visitor struct {
	Scan      func(e *Edge, depth int) bool
	Descend   func(e *Edge, from *Node, path []*Edge)
	Backtrack func(e *Edge, path []*Edge)
}

// Walk runs an iterative depth-first traversal of g from source using an explicit node
// stack and an explicit edge stack. Incident edges are rescanned from the top of the
// stack on every step, skipping the edge just arrived on. Nodes on the current path are
// never re-entered, so parallel edges and cycles in a de-energized snapshot terminate.
func Walk(g *Graph, source string, v Visitor) error {
	root, ok := g.nodes[source]
	if !ok {
		return ErrNoSourceFound
	}

	visited := make(map[string]bool, len(g.nodes))
	onStack := map[string]bool{source: true}
	nodes := []*Node{root}
	path := make([]*Edge, 0)

	for len(nodes) > 0 {
		cur := nodes[len(nodes)-1]
		pushed := false
		for _, i := range cur.edges {
			e := g.edges[i]
			if len(path) > 0 && path[len(path)-1] == e {
				continue
			}
			if v.Scan != nil && !v.Scan(e, len(path)) {
				return nil
			}
			next := e.Other(cur.ID)
			if visited[next] || onStack[next] {
				continue
			}
			nodes = append(nodes, g.nodes[next])
			onStack[next] = true
			path = append(path, e)
			if v.Descend != nil {
				v.Descend(e, cur, path)
			}
			pushed = true
			break
		}
		if pushed {
			continue
		}

		nodes = nodes[:len(nodes)-1]
		visited[cur.ID] = true
		delete(onStack, cur.ID)
		if len(path) > 0 {
			e := path[len(path)-1]
			if v.Backtrack != nil {
				v.Backtrack(e, path)
			}
			path = path[:len(path)-1]
		}
	}
	return nil
}

// Reachable returns the ids of nodes connected to source, in discovery order.
func Reachable(g *Graph, source string) ([]string, error) {
	found := []string{source}
	err := Walk(g, source, Visitor{
		Descend: func(e *Edge, from *Node, _ []*Edge) {
			found = append(found, e.Other(from.ID))
		},
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Unreachable returns the ids of nodes the source cannot reach, in insertion order.
func Unreachable(g *Graph, source string) ([]string, error) {
	found, err := Reachable(g, source)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}
	dead := make([]string, 0)
	for _, id := range g.Nodes() {
		if !seen[id] {
			dead = append(dead, id)
		}
	}
	return dead, nil
}
