// Package association relates monitored switches to the transformers and line spans
// they feed.
package association

import (
	"github.com/ohowland/feedercap/internal/pkg/topology"
)

// Ref names a device.
type Ref struct {
	ID   string `json:"ID" bson:"id"`
	Name string `json:"Name" bson:"name"`
}

func refOf(e *topology.Edge) Ref {
	return Ref{ID: e.ID(), Name: e.Name()}
}

// Pair is one association row.
type Pair struct {
	From Ref `json:"From" bson:"from"`
	To   Ref `json:"To" bson:"to"`
}

// Table holds the associations of one feeder.
type Table struct {
	SwitchTransformer []Pair
	TransformerLine   []Pair
	SwitchLine        []Pair
}

// Allow is the set of switch ids eligible as upstream switches. A nil Allow admits
// every switch.
type Allow map[string]bool

func NewAllow(ids []string) Allow {
	a := make(Allow, len(ids))
	for _, id := range ids {
		a[id] = true
	}
	return a
}

func (a Allow) admits(e *topology.Edge) bool {
	if e.Kind() != topology.Switch {
		return false
	}
	return a == nil || a[e.ID()]
}

// frame is the upstream state carried alongside each edge on the walk stack.
type frame struct {
	sw   *topology.Edge
	line *topology.Edge
}

// Build runs both association walks from source.
func Build(g *topology.Graph, source string, allow Allow) (*Table, error) {
	t := &Table{
		SwitchTransformer: make([]Pair, 0),
		TransformerLine:   make([]Pair, 0),
		SwitchLine:        make([]Pair, 0),
	}
	if err := t.transformers(g, source, allow); err != nil {
		return nil, err
	}
	if err := t.lines(g, source, allow); err != nil {
		return nil, err
	}
	return t, nil
}

// transformers links every transformer to its nearest upstream eligible switch and its
// nearest upstream line span, emitted as the walk backtracks past the transformer.
func (t *Table) transformers(g *topology.Graph, source string, allow Allow) error {
	frames := []frame{{}}
	return topology.Walk(g, source, topology.Visitor{
		Descend: func(e *topology.Edge, _ *topology.Node, _ []*topology.Edge) {
			f := frames[len(frames)-1]
			if allow.admits(e) {
				f.sw = e
			}
			if e.Kind() == topology.Line {
				f.line = e
			}
			frames = append(frames, f)
		},
		Backtrack: func(e *topology.Edge, _ []*topology.Edge) {
			f := frames[len(frames)-1]
			frames = frames[:len(frames)-1]
			if e.Kind() != topology.Transformer {
				return
			}
			tf := refOf(e)
			if f.sw != nil {
				t.SwitchTransformer = append(t.SwitchTransformer, Pair{From: refOf(f.sw), To: tf})
			}
			if f.line != nil {
				t.TransformerLine = append(t.TransformerLine, Pair{From: tf, To: refOf(f.line)})
			}
		},
	})
}

// lines groups line spans into segments split at branch points, and links each segment
// to the last eligible switch met inside it. The trailing segment is flushed when the
// walk ends.
func (t *Table) lines(g *topology.Graph, source string, allow Allow) error {
	var sw *topology.Edge
	segment := make([]*topology.Edge, 0)

	flush := func() {
		if sw != nil {
			for _, l := range segment {
				t.SwitchLine = append(t.SwitchLine, Pair{From: refOf(sw), To: refOf(l)})
			}
		}
		segment = segment[:0]
		sw = nil
	}

	err := topology.Walk(g, source, topology.Visitor{
		Descend: func(e *topology.Edge, from *topology.Node, path []*topology.Edge) {
			if len(path) >= 2 && from.Degree() > 2 {
				flush()
			}
			if e.Kind() == topology.Line {
				segment = append(segment, e)
			}
			if allow.admits(e) {
				sw = e
			}
		},
	})
	if err != nil {
		return err
	}
	flush()
	return nil
}

// TransformersOf lists the transformers fed through switch id.
func (t *Table) TransformersOf(id string) []Ref {
	return forward(t.SwitchTransformer, id)
}

// SwitchOf returns the nearest upstream switch of transformer id.
func (t *Table) SwitchOf(id string) (Ref, bool) {
	return backward(t.SwitchTransformer, id)
}

// LinesOf lists the line spans guarded by switch id.
func (t *Table) LinesOf(id string) []Ref {
	return forward(t.SwitchLine, id)
}

// LineOf returns the nearest upstream line span of transformer id.
func (t *Table) LineOf(id string) (Ref, bool) {
	refs := forward(t.TransformerLine, id)
	if len(refs) == 0 {
		return Ref{}, false
	}
	return refs[0], true
}

func forward(pairs []Pair, id string) []Ref {
	refs := make([]Ref, 0)
	for _, p := range pairs {
		if p.From.ID == id {
			refs = append(refs, p.To)
		}
	}
	return refs
}

func backward(pairs []Pair, id string) (Ref, bool) {
	for _, p := range pairs {
		if p.To.ID == id {
			return p.From, true
		}
	}
	return Ref{}, false
}
