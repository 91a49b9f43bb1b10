package search

import (
	"context"
	"math"

	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/restriction"
)

// RestrictedDijkstra runs a one-directional Dijkstra over directed-edge
// states rather than vertex states (spec §4.2.3): the state reached after
// traversing a directed edge remembers enough trailing vertices to decide,
// before relaxing the next edge, whether the resulting vertex sequence
// would complete a forbidden contiguous subsequence. Used when a profile's
// restrictions can't be represented by the edge-based hierarchy (more than
// a 3-vertex "via one node" pattern, see ch.EdgeAdjacency.ExactlyRepresentable)
// or when no edge-based hierarchy has been built at all.
func RestrictedDijkstra(ctx context.Context, net *network.Graph, prof profile.Profile, restrictions *restriction.Index, source, target uint32) (Result, error) {
	if restrictions.Empty() {
		adj := plainVertexAdapter{net: net, prof: prof}
		return PlainDijkstra(ctx, adj, source, target)
	}
	if source == target {
		return Result{Weight: 0, Path: []uint32{source}}, nil
	}

	numStates := int(net.NumEdges) * 2
	dist := make([]float64, numStates)
	pred := make([]network.DirectedEdgeID, numStates)
	for i := range dist {
		dist[i] = math.Inf(1)
	}

	stateIndex := func(d network.DirectedEdgeID) int {
		edgeID, forward, _ := d.Decode()
		idx := int(edgeID) * 2
		if !forward {
			idx++
		}
		return idx
	}

	var h Heap // node field repurposed to carry the dense state index
	startState := func(d network.DirectedEdgeID) {
		edgeID, forward, _ := d.Decode()
		factor, dir := prof.Factor(net.ProfileID[edgeID])
		if factor == 0 || (forward && !dir.Forward()) || (!forward && !dir.Backward()) {
			return
		}
		idx := stateIndex(d)
		w := net.Distance[edgeID] * factor
		if w < dist[idx] {
			dist[idx] = w
			h.Push(uint32(idx), w)
		}
	}

	start, end := net.EdgesFrom(source)
	for i := start; i < end; i++ {
		startState(network.EncodeDirectedEdgeID(net.FwdEdge[i], true))
	}
	start, end = net.EdgesTo(source)
	for i := start; i < end; i++ {
		startState(network.EncodeDirectedEdgeID(net.BwdEdge[i], false))
	}

	// trailing returns up to maxLen vertices ending at d's head, the vertex
	// about to be left for next — restriction.Index.Forbids matches its
	// window against that vertex plus the candidate next-vertex, so the
	// window must include it, not stop one vertex short at d's tail.
	trailing := func(d network.DirectedEdgeID, maxLen int) []uint32 {
		buf := make([]uint32, 0, maxLen)
		if _, head, ok := net.GetEdge(d); ok {
			buf = append(buf, head)
		}
		cur := d
		for len(buf) < maxLen {
			from, _, ok := net.GetEdge(cur)
			if !ok {
				break
			}
			buf = append(buf, from)
			p := pred[stateIndex(cur)]
			if p == 0 {
				break
			}
			cur = p
		}
		for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
			buf[i], buf[j] = buf[j], buf[i]
		}
		return buf
	}

	bestDist := math.Inf(1)
	var bestState network.DirectedEdgeID

	iterations := uint32(0)
	for h.Len() > 0 {
		iterations++
		if iterations&255 == 0 && ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		cur := h.Pop()
		idx := int(cur.Node)
		if cur.Dist > dist[idx] {
			continue
		}
		d := stateForIndex(idx)
		_, head, _ := net.GetEdge(d)

		if head == target && cur.Dist < bestDist {
			bestDist = cur.Dist
			bestState = d
		}

		maxLen := restrictions.MaxLen() - 1
		if maxLen < 1 {
			maxLen = 1
		}
		tb := trailing(d, maxLen)

		ea := headVertexOf(d, net)
		var next []network.DirectedEdgeID
		fs, fe := net.EdgesFrom(ea)
		for i := fs; i < fe; i++ {
			next = append(next, network.EncodeDirectedEdgeID(net.FwdEdge[i], true))
		}
		bs, be := net.EdgesTo(ea)
		for i := bs; i < be; i++ {
			next = append(next, network.EncodeDirectedEdgeID(net.BwdEdge[i], false))
		}

		for _, nd := range next {
			edgeID, nfwd, _ := nd.Decode()
			factor, dir := prof.Factor(net.ProfileID[edgeID])
			if factor == 0 || (nfwd && !dir.Forward()) || (!nfwd && !dir.Backward()) {
				continue
			}
			_, nTo, _ := net.GetEdge(nd)
			if restrictions.Forbids(tb, nTo) {
				continue
			}
			nidx := stateIndex(nd)
			ndist := cur.Dist + net.Distance[edgeID]*factor
			if ndist < dist[nidx] {
				dist[nidx] = ndist
				pred[nidx] = d
				h.Push(uint32(nidx), ndist)
			}
		}
	}

	if math.IsInf(bestDist, 1) {
		return Result{}, ErrNoRoute
	}

	var path []uint32
	cur := bestState
	for {
		from, to, ok := net.GetEdge(cur)
		if !ok {
			break
		}
		if len(path) == 0 {
			path = append(path, to)
		}
		path = append([]uint32{from}, path...)
		p := pred[stateIndex(cur)]
		if p == 0 {
			break
		}
		cur = p
	}
	return Result{Weight: bestDist, Path: path}, nil
}

func headVertexOf(d network.DirectedEdgeID, net *network.Graph) uint32 {
	_, to, _ := net.GetEdge(d)
	return to
}

// stateForIndex recovers the DirectedEdgeID a dense state index represents.
func stateForIndex(idx int) network.DirectedEdgeID {
	edgeID := uint32(idx / 2)
	forward := idx%2 == 0
	return network.EncodeDirectedEdgeID(edgeID, forward)
}

// plainVertexAdapter is a minimal ch.Adjacency over a network.Graph and
// profile, used when a profile has no restrictions at all so the cheaper
// vertex-state PlainDijkstra can run instead of the edge-state search.
type plainVertexAdapter struct {
	net  *network.Graph
	prof profile.Profile
}

func (a plainVertexAdapter) NumNodes() uint32 { return a.net.NumVertices }

func (a plainVertexAdapter) ForEachOut(u uint32, f func(v uint32, weight float64)) {
	start, end := a.net.EdgesFrom(u)
	for i := start; i < end; i++ {
		e := a.net.FwdEdge[i]
		factor, dir := a.prof.Factor(a.net.ProfileID[e])
		if factor == 0 || !dir.Forward() {
			continue
		}
		f(a.net.EdgeTo[e], a.net.Distance[e]*factor)
	}
	start, end = a.net.EdgesTo(u)
	for i := start; i < end; i++ {
		e := a.net.BwdEdge[i]
		factor, dir := a.prof.Factor(a.net.ProfileID[e])
		if factor == 0 || !dir.Backward() {
			continue
		}
		f(a.net.EdgeFrom[e], a.net.Distance[e]*factor)
	}
}

func (a plainVertexAdapter) ForEachIn(u uint32, f func(v uint32, weight float64)) {
	start, end := a.net.EdgesTo(u)
	for i := start; i < end; i++ {
		e := a.net.BwdEdge[i]
		factor, dir := a.prof.Factor(a.net.ProfileID[e])
		if factor == 0 || !dir.Forward() {
			continue
		}
		f(a.net.EdgeFrom[e], a.net.Distance[e]*factor)
	}
	start, end = a.net.EdgesFrom(u)
	for i := start; i < end; i++ {
		e := a.net.FwdEdge[i]
		factor, dir := a.prof.Factor(a.net.ProfileID[e])
		if factor == 0 || !dir.Backward() {
			continue
		}
		f(a.net.EdgeTo[e], a.net.Distance[e]*factor)
	}
}
