// Package network holds the geometric graph and routing network: vertices
// with coordinates, edges carrying a profile id, a meta id, a distance and
// an optional shape, exposed in CSR (Compressed Sparse Row) form for cache
// friendly traversal. This is the data model the rest of the engine
// (resolver, search kernels, route builder) is built on.
package network

// LatLon is a single geographic coordinate.
type LatLon struct {
	Lat float64
	Lon float64
}

// Graph is a directed multigraph in CSR form. Vertex ids are dense,
// contiguous, non-negative integers; edge ids likewise. Both forward
// (by From) and backward (by To) adjacency are kept so searches can walk
// the graph in either logical direction without rebuilding an index.
type Graph struct {
	NumVertices uint32
	VertexLat   []float32 // len NumVertices
	VertexLon   []float32 // len NumVertices

	NumEdges uint32

	// Forward CSR: edges grouped by From vertex.
	FwdFirstOut []uint32 // len NumVertices+1
	FwdEdge     []uint32 // len NumEdges; edge id for each forward adjacency slot

	// Backward CSR: edges grouped by To vertex, used to walk the graph
	// with edge direction logically reversed (spec 4.2.1's backward
	// variant) without scanning the whole edge list.
	BwdFirstOut []uint32 // len NumVertices+1
	BwdEdge     []uint32 // len NumEdges; edge id for each backward adjacency slot

	// Per-edge attributes, indexed by edge id.
	EdgeFrom     []uint32
	EdgeTo       []uint32
	Distance     []float64 // meters
	ProfileID    []uint16
	MetaID       []uint32
	DataInverted []bool

	// Shape geometry: intermediate points between From and To, excluding
	// both endpoints, in storage (From->To) order.
	ShapeFirstOut []uint32 // len NumEdges+1
	ShapeLat      []float64
	ShapeLon      []float64
}

// EdgesFrom returns the forward adjacency slot range for vertex u: the
// edge ids in FwdEdge[start:end] all have EdgeFrom == u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.FwdFirstOut[u], g.FwdFirstOut[u+1]
}

// EdgesTo returns the backward adjacency slot range for vertex v: the
// edge ids in BwdEdge[start:end] all have EdgeTo == v.
func (g *Graph) EdgesTo(v uint32) (start, end uint32) {
	return g.BwdFirstOut[v], g.BwdFirstOut[v+1]
}

// Other returns the vertex at the far end of edge e from vertex u, i.e.
// the neighbor reached by traversing e starting at u. u must be either
// EdgeFrom[e] or EdgeTo[e].
func (g *Graph) Other(e, u uint32) uint32 {
	if g.EdgeFrom[e] == u {
		return g.EdgeTo[e]
	}
	return g.EdgeFrom[e]
}

// Shape returns the intermediate shape points of edge e in storage
// (From->To) order, excluding both endpoints.
func (g *Graph) Shape(e uint32) (lats, lons []float64) {
	start, end := g.ShapeFirstOut[e], g.ShapeFirstOut[e+1]
	return g.ShapeLat[start:end], g.ShapeLon[start:end]
}

// ShapeReversed returns the intermediate shape points of edge e in
// To->From order, as required when an edge is traversed backward (spec
// §3: "reversing the traversal reverses the shape order").
func (g *Graph) ShapeReversed(e uint32) (lats, lons []float64) {
	lats, lons = g.Shape(e)
	n := len(lats)
	rLats := make([]float64, n)
	rLons := make([]float64, n)
	for i := range lats {
		rLats[n-1-i] = lats[i]
		rLons[n-1-i] = lons[i]
	}
	return rLats, rLons
}

// FullPolyline returns the complete ordered coordinate sequence for edge e
// traversed in the given direction, including both endpoints.
func (g *Graph) FullPolyline(e uint32, forward bool) []LatLon {
	from, to := g.EdgeFrom[e], g.EdgeTo[e]
	if !forward {
		from, to = to, from
	}

	var shapeLats, shapeLons []float64
	if forward {
		shapeLats, shapeLons = g.Shape(e)
	} else {
		shapeLats, shapeLons = g.ShapeReversed(e)
	}

	out := make([]LatLon, 0, len(shapeLats)+2)
	out = append(out, LatLon{Lat: float64(g.VertexLat[from]), Lon: float64(g.VertexLon[from])})
	for i := range shapeLats {
		out = append(out, LatLon{Lat: shapeLats[i], Lon: shapeLons[i]})
	}
	out = append(out, LatLon{Lat: float64(g.VertexLat[to]), Lon: float64(g.VertexLon[to])})
	return out
}
