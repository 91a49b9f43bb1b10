package network

import "sort"

// RawEdge is a single directed edge as produced by an ingestion pipeline
// (e.g. internal/ingest), before vertex ids have been compacted and
// Hilbert-sorted into the dense form Graph requires.
type RawEdge struct {
	FromID       uint64
	ToID         uint64
	Distance     float64
	ProfileID    uint16
	MetaID       uint32
	DataInverted bool
	ShapeLat     []float64
	ShapeLon     []float64
}

// Build compacts raw, externally-identified edges into a dense CSR Graph.
// vertexLat/vertexLon map the same external ids referenced by RawEdge.
// Vertices are assigned dense ids in the order first seen, then reordered
// along a Hilbert space-filling curve (SortHilbert) to improve the spatial
// locality of neighborhood queries, per the graph's stated invariant.
func Build(edges []RawEdge, vertexLat, vertexLon map[uint64]float64) *Graph {
	g, _ := BuildWithIDs(edges, vertexLat, vertexLon)
	return g
}

// BuildWithIDs is Build, additionally returning the external-id-to-final-
// dense-vertex-id mapping, for callers (internal/ingest) that must resolve
// restriction vertex sequences — expressed in the same external ids as
// RawEdge.FromID/ToID — after Hilbert sorting has reassigned every vertex.
func BuildWithIDs(edges []RawEdge, vertexLat, vertexLon map[uint64]float64) (*Graph, map[uint64]uint32) {
	if len(edges) == 0 {
		return &Graph{}, nil
	}

	idIndex := make(map[uint64]uint32)
	var ids []uint64

	assign := func(id uint64) uint32 {
		if idx, ok := idIndex[id]; ok {
			return idx
		}
		idx := uint32(len(ids))
		idIndex[id] = idx
		ids = append(ids, id)
		return idx
	}

	for i := range edges {
		assign(edges[i].FromID)
		assign(edges[i].ToID)
	}

	numVertices := uint32(len(ids))
	vLat := make([]float32, numVertices)
	vLon := make([]float32, numVertices)
	for idx, id := range ids {
		vLat[idx] = float32(vertexLat[id])
		vLon[idx] = float32(vertexLon[id])
	}

	numEdges := uint32(len(edges))
	edgeFrom := make([]uint32, numEdges)
	edgeTo := make([]uint32, numEdges)
	distance := make([]float64, numEdges)
	profileID := make([]uint16, numEdges)
	metaID := make([]uint32, numEdges)
	dataInverted := make([]bool, numEdges)
	shapeFirstOut := make([]uint32, numEdges+1)
	var shapeLat, shapeLon []float64

	for i, e := range edges {
		edgeFrom[i] = idIndex[e.FromID]
		edgeTo[i] = idIndex[e.ToID]
		distance[i] = e.Distance
		profileID[i] = e.ProfileID
		metaID[i] = e.MetaID
		dataInverted[i] = e.DataInverted
		shapeFirstOut[i] = uint32(len(shapeLat))
		shapeLat = append(shapeLat, e.ShapeLat...)
		shapeLon = append(shapeLon, e.ShapeLon...)
	}
	shapeFirstOut[numEdges] = uint32(len(shapeLat))

	g := &Graph{
		NumVertices:   numVertices,
		VertexLat:     vLat,
		VertexLon:     vLon,
		NumEdges:      numEdges,
		EdgeFrom:      edgeFrom,
		EdgeTo:        edgeTo,
		Distance:      distance,
		ProfileID:     profileID,
		MetaID:        metaID,
		DataInverted:  dataInverted,
		ShapeFirstOut: shapeFirstOut,
		ShapeLat:      shapeLat,
		ShapeLon:      shapeLon,
	}
	buildAdjacency(g)
	sorted, remap := SortHilbertWithRemap(g)

	final := make(map[uint64]uint32, len(idIndex))
	for id, old := range idIndex {
		final[id] = remap[old]
	}
	return sorted, final
}

// buildAdjacency (re)builds FwdFirstOut/FwdEdge and BwdFirstOut/BwdEdge from
// EdgeFrom/EdgeTo using counting sort, the same prefix-sum CSR technique the
// teacher's graph builder uses for its single forward index.
func buildAdjacency(g *Graph) {
	n := g.NumVertices
	m := g.NumEdges

	fwdFirstOut := make([]uint32, n+1)
	for _, u := range g.EdgeFrom {
		fwdFirstOut[u+1]++
	}
	for i := uint32(1); i <= n; i++ {
		fwdFirstOut[i] += fwdFirstOut[i-1]
	}
	fwdPos := append([]uint32(nil), fwdFirstOut[:n]...)
	fwdEdge := make([]uint32, m)
	for e := uint32(0); e < m; e++ {
		u := g.EdgeFrom[e]
		fwdEdge[fwdPos[u]] = e
		fwdPos[u]++
	}

	bwdFirstOut := make([]uint32, n+1)
	for _, v := range g.EdgeTo {
		bwdFirstOut[v+1]++
	}
	for i := uint32(1); i <= n; i++ {
		bwdFirstOut[i] += bwdFirstOut[i-1]
	}
	bwdPos := append([]uint32(nil), bwdFirstOut[:n]...)
	bwdEdge := make([]uint32, m)
	for e := uint32(0); e < m; e++ {
		v := g.EdgeTo[e]
		bwdEdge[bwdPos[v]] = e
		bwdPos[v]++
	}

	g.FwdFirstOut = fwdFirstOut
	g.FwdEdge = fwdEdge
	g.BwdFirstOut = bwdFirstOut
	g.BwdEdge = bwdEdge
}

// SortHilbert returns a new Graph with vertices relabeled in Hilbert-curve
// order of their coordinates. Edge ids, shapes and attributes are carried
// over unchanged; only vertex ids (EdgeFrom/EdgeTo) and adjacency are
// remapped.
func SortHilbert(g *Graph) *Graph {
	out, _ := SortHilbertWithRemap(g)
	return out
}

// SortHilbertWithRemap is SortHilbert, additionally returning the
// old-dense-id-to-new-dense-id mapping so a caller holding ids in the
// pre-sort space (BuildWithIDs) can translate them.
func SortHilbertWithRemap(g *Graph) (*Graph, []uint32) {
	n := g.NumVertices
	if n == 0 {
		return g, nil
	}

	order := make([]uint32, n)
	keys := make([]uint64, n)
	for i := uint32(0); i < n; i++ {
		order[i] = i
		keys[i] = hilbertD(float64(g.VertexLat[i]), float64(g.VertexLon[i]))
	}
	sort.Slice(order, func(i, j int) bool {
		return keys[order[i]] < keys[order[j]]
	})

	oldToNew := make([]uint32, n)
	for newIdx, oldIdx := range order {
		oldToNew[oldIdx] = uint32(newIdx)
	}

	vLat := make([]float32, n)
	vLon := make([]float32, n)
	for newIdx, oldIdx := range order {
		vLat[newIdx] = g.VertexLat[oldIdx]
		vLon[newIdx] = g.VertexLon[oldIdx]
	}

	edgeFrom := make([]uint32, g.NumEdges)
	edgeTo := make([]uint32, g.NumEdges)
	for e := uint32(0); e < g.NumEdges; e++ {
		edgeFrom[e] = oldToNew[g.EdgeFrom[e]]
		edgeTo[e] = oldToNew[g.EdgeTo[e]]
	}

	out := &Graph{
		NumVertices:   n,
		VertexLat:     vLat,
		VertexLon:     vLon,
		NumEdges:      g.NumEdges,
		EdgeFrom:      edgeFrom,
		EdgeTo:        edgeTo,
		Distance:      g.Distance,
		ProfileID:     g.ProfileID,
		MetaID:        g.MetaID,
		DataInverted:  g.DataInverted,
		ShapeFirstOut: g.ShapeFirstOut,
		ShapeLat:      g.ShapeLat,
		ShapeLon:      g.ShapeLon,
	}
	buildAdjacency(out)
	return out, oldToNew
}

// hilbertOrder is the number of bits per axis; 16 bits gives 65536 cells
// per axis, ample resolution for lat/lon at road-network scale.
const hilbertOrder = 16

// hilbertD maps a (lat, lon) pair to its distance along a Hilbert curve of
// order hilbertOrder, using the standard xy-to-d bit-rotation algorithm.
func hilbertD(lat, lon float64) uint64 {
	side := uint32(1) << hilbertOrder
	x := latLonToGrid(lat, -90, 90, side)
	y := latLonToGrid(lon, -180, 180, side)

	var d uint64
	for s := side / 2; s > 0; s /= 2 {
		var rx, ry uint32
		if x&s > 0 {
			rx = 1
		}
		if y&s > 0 {
			ry = 1
		}
		d += uint64(s) * uint64(s) * uint64((3*rx)^ry)
		x, y = hilbertRotate(side, x, y, rx, ry)
	}
	return d
}

func latLonToGrid(v, lo, hi float64, side uint32) uint32 {
	if v <= lo {
		return 0
	}
	if v >= hi {
		return side - 1
	}
	frac := (v - lo) / (hi - lo)
	return uint32(frac * float64(side-1))
}

// hilbertRotate rotates/flips a quadrant, the standard step in converting
// (x,y) grid coordinates to a Hilbert curve index.
func hilbertRotate(side, x, y, rx, ry uint32) (uint32, uint32) {
	if ry == 0 {
		if rx == 1 {
			x = side - 1 - x
			y = side - 1 - y
		}
		x, y = y, x
	}
	return x, y
}
