package ch

import (
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/restriction"
)

// EdgeAdjacency is the line-graph Adjacency for the edge-based hierarchy
// (spec §4.2.5): a node is a directed traversal of an original edge, so a
// turn restriction of the common "via one vertex" shape — [in, via, out] —
// is simply an absent transition between two line-graph nodes. Longer
// restrictions can't be expressed this way (the line graph only remembers
// one trailing edge), so ExactlyRepresentable reports false when the
// restriction.Index holds any restriction the line graph cannot honor;
// callers fall back to the restriction-aware kernel (search §4.2.3) in
// that case.
type EdgeAdjacency struct {
	net          *network.Graph
	prof         profile.Profile
	restrictions *restriction.Index

	nodeOf map[network.DirectedEdgeID]uint32
	edgeOf []network.DirectedEdgeID
}

// NewEdgeAdjacency builds the line graph over every directed traversal the
// profile permits. restrictions may be nil.
func NewEdgeAdjacency(net *network.Graph, prof profile.Profile, restrictions *restriction.Index) *EdgeAdjacency {
	ea := &EdgeAdjacency{
		net:          net,
		prof:         prof,
		restrictions: restrictions,
		nodeOf:       make(map[network.DirectedEdgeID]uint32),
	}
	for e := uint32(0); e < net.NumEdges; e++ {
		factor, dir := prof.Factor(net.ProfileID[e])
		if factor == 0 {
			continue
		}
		if dir.Forward() {
			ea.add(network.EncodeDirectedEdgeID(e, true))
		}
		if dir.Backward() {
			ea.add(network.EncodeDirectedEdgeID(e, false))
		}
	}
	return ea
}

func (ea *EdgeAdjacency) add(d network.DirectedEdgeID) {
	if _, ok := ea.nodeOf[d]; ok {
		return
	}
	ea.nodeOf[d] = uint32(len(ea.edgeOf))
	ea.edgeOf = append(ea.edgeOf, d)
}

// DirectedEdge returns the directed original edge a line-graph node
// represents, for callers that need to translate a contracted path back.
func (ea *EdgeAdjacency) DirectedEdge(node uint32) network.DirectedEdgeID { return ea.edgeOf[node] }

// NodeFor returns the line-graph node for a directed original edge, if the
// profile made that traversal direction part of the graph.
func (ea *EdgeAdjacency) NodeFor(d network.DirectedEdgeID) (uint32, bool) {
	node, ok := ea.nodeOf[d]
	return node, ok
}

// ExactlyRepresentable reports whether every restriction in the index is a
// 3-vertex "via one node" restriction this line graph can honor by simply
// omitting a transition. A 2-vertex restriction forbids a whole edge
// outright (handled upstream by zeroing that edge's factor, not here); a
// restriction longer than 3 vertices needs trailing-buffer memory the line
// graph doesn't carry.
func (ea *EdgeAdjacency) ExactlyRepresentable() bool {
	if ea.restrictions == nil || ea.restrictions.Empty() {
		return true
	}
	return ea.restrictions.MaxLen() <= 3
}

func (ea *EdgeAdjacency) weight(d network.DirectedEdgeID) float64 {
	edgeID, _, _ := d.Decode()
	factor, _ := ea.prof.Factor(ea.net.ProfileID[edgeID])
	return ea.net.Distance[edgeID] * factor
}

func (ea *EdgeAdjacency) NumNodes() uint32 { return uint32(len(ea.edgeOf)) }

func (ea *EdgeAdjacency) ForEachOut(u uint32, f func(v uint32, weight float64)) {
	d := ea.edgeOf[u]
	tail := ea.tailVertex(d)
	head := ea.headVertex(d)

	ea.forEachStartingAt(head, func(next network.DirectedEdgeID) {
		if ea.forbidden(tail, head, next) {
			return
		}
		if id, ok := ea.nodeOf[next]; ok {
			f(id, ea.weight(next))
		}
	})
}

func (ea *EdgeAdjacency) ForEachIn(u uint32, f func(v uint32, weight float64)) {
	d := ea.edgeOf[u]
	tail := ea.tailVertex(d)

	ea.forEachEndingAt(tail, func(prev network.DirectedEdgeID) {
		prevTail := ea.tailVertex(prev)
		if ea.forbidden(prevTail, tail, d) {
			return
		}
		if id, ok := ea.nodeOf[prev]; ok {
			f(id, ea.weight(d))
		}
	})
}

// tailVertex returns the vertex a directed edge departs from.
func (ea *EdgeAdjacency) tailVertex(d network.DirectedEdgeID) uint32 {
	edgeID, forward, _ := d.Decode()
	if forward {
		return ea.net.EdgeFrom[edgeID]
	}
	return ea.net.EdgeTo[edgeID]
}

// headVertex returns the vertex a directed edge arrives at.
func (ea *EdgeAdjacency) headVertex(d network.DirectedEdgeID) uint32 {
	edgeID, forward, _ := d.Decode()
	if forward {
		return ea.net.EdgeTo[edgeID]
	}
	return ea.net.EdgeFrom[edgeID]
}

// forEachStartingAt invokes f for every directed edge whose tail is v.
func (ea *EdgeAdjacency) forEachStartingAt(v uint32, f func(d network.DirectedEdgeID)) {
	start, end := ea.net.EdgesFrom(v)
	for i := start; i < end; i++ {
		f(network.EncodeDirectedEdgeID(ea.net.FwdEdge[i], true))
	}
	start, end = ea.net.EdgesTo(v)
	for i := start; i < end; i++ {
		f(network.EncodeDirectedEdgeID(ea.net.BwdEdge[i], false))
	}
}

// forEachEndingAt invokes f for every directed edge whose head is v.
func (ea *EdgeAdjacency) forEachEndingAt(v uint32, f func(d network.DirectedEdgeID)) {
	start, end := ea.net.EdgesTo(v)
	for i := start; i < end; i++ {
		f(network.EncodeDirectedEdgeID(ea.net.BwdEdge[i], true))
	}
	start, end = ea.net.EdgesFrom(v)
	for i := start; i < end; i++ {
		f(network.EncodeDirectedEdgeID(ea.net.FwdEdge[i], false))
	}
}

// forbidden reports whether the 3-vertex sequence (in, via, out-of-next)
// matches a restriction starting at in.
func (ea *EdgeAdjacency) forbidden(in, via uint32, next network.DirectedEdgeID) bool {
	if ea.restrictions == nil {
		return false
	}
	out := ea.headVertex(next)
	for _, r := range ea.restrictions.StartingAt(in) {
		if r.Len() == 3 && r.Vertices[1] == via && r.Vertices[2] == out {
			return true
		}
	}
	return false
}
