package network

// UnionFind is a disjoint-set structure with path halving and union by
// rank, used by LargestComponent to group vertices into weakly connected
// components.
type UnionFind struct {
	parent []uint32
	rank   []byte
	size   []uint32
}

// NewUnionFind creates a UnionFind over n elements, each its own singleton
// set.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range parent {
		parent[i] = uint32(i)
		size[i] = 1
	}
	return &UnionFind{parent: parent, rank: make([]byte, n), size: size}
}

// Find returns the representative of the set containing x, with path
// halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y, returning false if they were
// already the same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx, ry := uf.Find(x), uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the vertex ids belonging to g's largest weakly
// connected component (edges treated as undirected via FwdEdge, which
// already enumerates every edge once per endpoint pair). Real-world OSM
// extracts routinely contain many small disconnected fragments — service
// roads clipped by the bounding box, islands with no ferry link — and a
// query resolved onto one of those can never reach the rest of the graph
// regardless of what the search kernels do; cmd/preprocess filters to this
// component before contraction so the shipped network only ever contains
// mutually reachable vertices.
func LargestComponent(g *Graph) []uint32 {
	if g.NumVertices == 0 {
		return nil
	}
	uf := NewUnionFind(g.NumVertices)
	for u := uint32(0); u < g.NumVertices; u++ {
		start, end := g.EdgesFrom(u)
		for i := start; i < end; i++ {
			e := g.FwdEdge[i]
			uf.Union(g.EdgeFrom[e], g.EdgeTo[e])
		}
	}

	bestRoot, bestSize := uint32(0), uint32(0)
	for v := uint32(0); v < g.NumVertices; v++ {
		root := uf.Find(v)
		if uf.size[root] > bestSize {
			bestRoot, bestSize = root, uf.size[root]
		}
	}

	out := make([]uint32, 0, bestSize)
	for v := uint32(0); v < g.NumVertices; v++ {
		if uf.Find(v) == bestRoot {
			out = append(out, v)
		}
	}
	return out
}

// FilterToComponent rebuilds g keeping only the given vertices (and only
// the edges with both endpoints among them), returning the new graph plus
// the old-vertex-id-to-new-vertex-id mapping so a caller holding ids in the
// old space (restriction vertex sequences, in particular) can translate
// them. Vertices not present in the map were dropped.
func FilterToComponent(g *Graph, keep []uint32) (*Graph, map[uint32]uint32) {
	oldToNew := make(map[uint32]uint32, len(keep))
	for newIdx, oldIdx := range keep {
		oldToNew[oldIdx] = uint32(newIdx)
	}

	var edges []RawEdge
	for _, oldU := range keep {
		start, end := g.EdgesFrom(oldU)
		for i := start; i < end; i++ {
			e := g.FwdEdge[i]
			newTo, ok := oldToNew[g.EdgeTo[e]]
			if !ok {
				continue
			}
			lats, lons := g.Shape(e)
			edges = append(edges, RawEdge{
				FromID:       uint64(oldToNew[oldU]),
				ToID:         uint64(newTo),
				Distance:     g.Distance[e],
				ProfileID:    g.ProfileID[e],
				MetaID:       g.MetaID[e],
				DataInverted: g.DataInverted[e],
				ShapeLat:     append([]float64(nil), lats...),
				ShapeLon:     append([]float64(nil), lons...),
			})
		}
	}

	vertexLat := make(map[uint64]float64, len(keep))
	vertexLon := make(map[uint64]float64, len(keep))
	for newIdx, oldIdx := range keep {
		vertexLat[uint64(newIdx)] = float64(g.VertexLat[oldIdx])
		vertexLon[uint64(newIdx)] = float64(g.VertexLon[oldIdx])
	}

	// BuildWithIDs reassigns dense ids again (first-seen order over edges)
	// and Hilbert-sorts on top of that, so the intermediate ids assigned
	// above by oldToNew are not the final ones; compose the two maps so
	// callers see old-vertex-id directly to final-vertex-id.
	filtered, intermediateToFinal := BuildWithIDs(edges, vertexLat, vertexLon)
	oldToFinal := make(map[uint32]uint32, len(oldToNew))
	for oldIdx, intermediateIdx := range oldToNew {
		if final, ok := intermediateToFinal[uint64(intermediateIdx)]; ok {
			oldToFinal[oldIdx] = final
		}
	}
	return filtered, oldToFinal
}
