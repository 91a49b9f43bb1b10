// Package routebuilder assembles a Route — coordinates, per-segment
// distance/duration/attribute references, and aggregate totals — from a
// search kernel's vertex path and the two resolved endpoints (spec §4.4).
package routebuilder

import (
	"errors"

	"github.com/F0rt1s/routing/internal/geo"
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/resolver"
)

// ErrNoEdgeBetween is an internal consistency error: a search kernel
// produced consecutive vertices with no connecting edge in the network.
var ErrNoEdgeBetween = errors.New("routebuilder: no edge between consecutive path vertices")

// ErrNoRoute means source and target share an edge, the direct in-edge
// segment is not traversable in either direction for the profile, and no
// kernel-searched alternative path was available either.
var ErrNoRoute = errors.New("routebuilder: no route between the resolved points")

// Segment is one traversed edge (or partial edge, for the first/last
// segment) in a built Route.
type Segment struct {
	EdgeID          uint32
	Forward         bool
	MetaID          uint32
	Coordinates     []network.LatLon
	DistanceMeters  float64
	DurationSeconds float64
}

// Route is the full assembled trip.
type Route struct {
	Segments             []Segment
	TotalDistanceMeters   float64
	TotalDurationSeconds  float64
}

// Builder assembles Routes; the default implementation is Build below. A
// custom_route_builder hook (spec §6) can supply any type satisfying this
// interface instead.
type Builder interface {
	Build(net *network.Graph, prof profile.Profile, source, target resolver.RouterPoint, path []uint32) (*Route, error)
}

// DefaultBuilder is the straightforward walk-the-path implementation
// grounded on the teacher's pkg/routing/engine.go buildGeometry, extended
// to per-segment distance/duration/attribute refs and offset trimming.
type DefaultBuilder struct{}

func (DefaultBuilder) Build(net *network.Graph, prof profile.Profile, source, target resolver.RouterPoint, path []uint32) (*Route, error) {
	return Build(net, prof, source, target, path)
}

// Build is the default route assembly. path is the vertex sequence a
// search kernel produced (possibly empty, when source and target share an
// edge and no kernel alternative was run or found); consecutive path
// vertices are joined by the edge between them, with the first and last
// edges trimmed to the resolved offsets. When source and target resolve to
// the same edge, the direct in-edge segment (spec S4, "same-edge shortcut")
// is also tried and wins whenever it is traversable and shorter than the
// path-based route (spec §4.2.6/§9: the direct path "replaces [the search
// result] when shorter").
func Build(net *network.Graph, prof profile.Profile, source, target resolver.RouterPoint, path []uint32) (*Route, error) {
	var viaPath *Route
	if len(path) >= 2 {
		r, err := buildFromPath(net, prof, source, target, path)
		if err != nil {
			return nil, err
		}
		viaPath = r
	}

	if source.EdgeID == target.EdgeID {
		if direct, ok := buildSameEdge(net, prof, source, target); ok {
			if viaPath == nil || direct.TotalDistanceMeters < viaPath.TotalDistanceMeters {
				return direct, nil
			}
		}
	}

	if viaPath != nil {
		return viaPath, nil
	}
	return nil, ErrNoRoute
}

func buildFromPath(net *network.Graph, prof profile.Profile, source, target resolver.RouterPoint, path []uint32) (*Route, error) {
	route := &Route{}
	for i := 0; i+1 < len(path); i++ {
		u, v := path[i], path[i+1]
		e, forward, ok := findEdge(net, u, v)
		if !ok {
			return nil, ErrNoEdgeBetween
		}

		startOffset, endOffset := 0.0, 1.0
		if i == 0 && e == source.EdgeID {
			startOffset = edgeLocalOffset(net, e, forward, source.Offset)
		}
		if i == len(path)-2 && e == target.EdgeID {
			endOffset = edgeLocalOffset(net, e, forward, target.Offset)
		}

		seg := buildSegment(net, prof, e, forward, startOffset, endOffset)
		route.Segments = append(route.Segments, seg)
		route.TotalDistanceMeters += seg.DistanceMeters
		route.TotalDurationSeconds += seg.DurationSeconds
	}
	return route, nil
}

// buildSameEdge builds the direct single-segment route between source and
// target's offsets on their shared edge. ok is false when the profile
// cannot traverse the edge straight from source's offset to target's in
// either stored direction (e.g. a one-way edge where the offsets run the
// wrong way); the caller then relies solely on a kernel-searched path,
// which can route around through other edges (or via a U-turn at either
// endpoint, if the graph offers one back to the other offset) the way any
// other restricted traversal is resolved.
func buildSameEdge(net *network.Graph, prof profile.Profile, source, target resolver.RouterPoint) (*Route, bool) {
	e := source.EdgeID
	factor, dir := prof.Factor(net.ProfileID[e])
	if factor == 0 {
		return nil, false
	}

	forward := source.Offset <= target.Offset
	if forward && !dir.Forward() {
		return nil, false
	}
	if !forward && !dir.Backward() {
		return nil, false
	}

	lo := edgeLocalOffset(net, e, forward, source.Offset)
	hi := edgeLocalOffset(net, e, forward, target.Offset)
	if lo > hi {
		lo, hi = hi, lo
	}

	seg := buildSegment(net, prof, e, forward, lo, hi)
	return &Route{
		Segments:             []Segment{seg},
		TotalDistanceMeters:  seg.DistanceMeters,
		TotalDurationSeconds: seg.DurationSeconds,
	}, true
}

// buildSegment extracts the polyline between two offsets of edge e
// (traversed in the given direction) and computes distance/duration.
func buildSegment(net *network.Graph, prof profile.Profile, e uint32, forward bool, startOffset, endOffset float64) Segment {
	poly := net.FullPolyline(e, forward)
	total := polylineLength(poly)

	coords := trimPolyline(poly, total, startOffset, endOffset)
	dist := total * (endOffset - startOffset)
	if dist < 0 {
		dist = 0
	}

	factor, _ := prof.Factor(net.ProfileID[e])
	duration := dist * factor

	return Segment{
		EdgeID:          e,
		Forward:         forward,
		MetaID:          net.MetaID[e],
		Coordinates:     coords,
		DistanceMeters:  dist,
		DurationSeconds: duration,
	}
}

func polylineLength(poly []network.LatLon) float64 {
	var total float64
	for i := 0; i+1 < len(poly); i++ {
		total += geo.Haversine(poly[i].Lat, poly[i].Lon, poly[i+1].Lat, poly[i+1].Lon)
	}
	return total
}

// trimPolyline returns the sub-polyline between two fractional offsets
// [0,1] of the edge's total length, interpolating the cut points exactly.
func trimPolyline(poly []network.LatLon, total, startOffset, endOffset float64) []network.LatLon {
	if total == 0 || len(poly) == 0 {
		return poly
	}
	startDist := startOffset * total
	endDist := endOffset * total

	var out []network.LatLon
	var along float64
	for i := 0; i+1 < len(poly); i++ {
		a, b := poly[i], poly[i+1]
		segLen := geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
		segStart, segEnd := along, along+segLen

		if segEnd >= startDist && segStart <= endDist {
			lo := maxf(0, (startDist-segStart))
			hi := minf(segLen, (endDist - segStart))
			if segLen > 0 {
				if len(out) == 0 {
					t := lo / segLen
					out = append(out, lerp(a, b, t))
				}
				t := hi / segLen
				out = append(out, lerp(a, b, t))
			}
		}
		along = segEnd
	}
	if len(out) == 0 {
		return []network.LatLon{poly[0]}
	}
	return out
}

func lerp(a, b network.LatLon, t float64) network.LatLon {
	return network.LatLon{Lat: a.Lat + t*(b.Lat-a.Lat), Lon: a.Lon + t*(b.Lon-a.Lon)}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// edgeLocalOffset converts a RouterPoint's From->To offset into the local
// [0,1] offset of the edge as traversed in the given direction within this
// route (backward traversal reverses the offset).
func edgeLocalOffset(net *network.Graph, e uint32, forward bool, offset float64) float64 {
	if forward {
		return offset
	}
	return 1 - offset
}

// findEdge locates the edge joining u and v and reports the traversal
// direction (forward = From->To storage order).
func findEdge(net *network.Graph, u, v uint32) (edgeID uint32, forward bool, ok bool) {
	start, end := net.EdgesFrom(u)
	for i := start; i < end; i++ {
		e := net.FwdEdge[i]
		if net.EdgeTo[e] == v {
			return e, true, true
		}
	}
	start, end = net.EdgesTo(u)
	for i := start; i < end; i++ {
		e := net.BwdEdge[i]
		if net.EdgeFrom[e] == v {
			return e, false, true
		}
	}
	return 0, false, false
}
