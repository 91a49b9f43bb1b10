// Package resolver snaps query coordinates onto the nearest traversable
// edge of a network.Graph, producing a RouterPoint (spec §4.1): an edge id
// plus a fractional offset along that edge's full shape.
package resolver

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"github.com/F0rt1s/routing/internal/geo"
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
)

// ErrResolveFailed is returned when no acceptable edge exists within
// maxSnapDistMeters, or none matches the profile's traversability/
// stoppability requirements.
var ErrResolveFailed = errors.New("resolver: no acceptable edge near point")

const maxSnapDistMeters = 1000.0

// RouterPoint is a location resolved onto the network: the edge it sits on
// and its fractional offset from the edge's From endpoint, measured along
// the edge's full polyline (spec §4.1 "offset is a fraction of the edge's
// real-world length, not a vertex index").
type RouterPoint struct {
	EdgeID         uint32
	Offset         float64 // 0 = at EdgeFrom, 1 = at EdgeTo
	Lat, Lon       float64 // the resolved (snapped) point, not the query point
	DistanceMeters float64 // distance from the query point to the resolved point
}

// Resolver indexes a network's edges in an R-tree keyed by bounding box,
// replacing the teacher's hand-rolled grid (pkg/routing/snap.go) with
// github.com/tidwall/rtree, already present in the dependency graph but
// unused by the teacher.
type Resolver struct {
	net *network.Graph
	tr  *rtree.RTree
}

// New builds a Resolver over net. Each edge is inserted once, keyed by the
// bounding box of its full polyline (including shape points), so a query
// near any part of a curved edge finds it.
func New(net *network.Graph) *Resolver {
	tr := &rtree.RTree{}
	for e := uint32(0); e < net.NumEdges; e++ {
		minLat, minLon, maxLat, maxLon := edgeBounds(net, e)
		tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, e)
	}
	return &Resolver{net: net, tr: tr}
}

func edgeBounds(net *network.Graph, e uint32) (minLat, minLon, maxLat, maxLon float64) {
	from, to := net.EdgeFrom[e], net.EdgeTo[e]
	lats := []float64{float64(net.VertexLat[from]), float64(net.VertexLat[to])}
	lons := []float64{float64(net.VertexLon[from]), float64(net.VertexLon[to])}
	shapeLats, shapeLons := net.Shape(e)
	lats = append(lats, shapeLats...)
	lons = append(lons, shapeLons...)

	minLat, maxLat = lats[0], lats[0]
	minLon, maxLon = lons[0], lons[0]
	for i := 1; i < len(lats); i++ {
		minLat = math.Min(minLat, lats[i])
		maxLat = math.Max(maxLat, lats[i])
		minLon = math.Min(minLon, lons[i])
		maxLon = math.Max(maxLon, lons[i])
	}
	return
}

// Resolve finds the nearest edge to (lat, lon) that prof allows stopping on
// (is_acceptable, spec §4.1), expanding the search box geometrically until
// a candidate is found or the box exceeds maxSnapDistMeters. Among
// candidates within the final box, the closest by perpendicular distance
// wins (is_better).
func (r *Resolver) Resolve(lat, lon float64, prof profile.Profile) (RouterPoint, error) {
	return r.ResolveWithinRadius(lat, lon, prof, maxSnapDistMeters)
}

// ResolveWithinRadius is Resolve with an explicit search radius, matching
// the engine's try_resolve(..., max_search_distance) parameter (spec §6).
func (r *Resolver) ResolveWithinRadius(lat, lon float64, prof profile.Profile, maxDistMeters float64) (RouterPoint, error) {
	const initialMarginDeg = 0.001 // ~110m
	maxMarginDeg := maxDistMeters / 110000.0 * 2.2
	if maxMarginDeg < initialMarginDeg {
		maxMarginDeg = initialMarginDeg
	}

	var best RouterPoint
	bestDist := math.Inf(1)
	found := false

	for margin := initialMarginDeg; margin <= maxMarginDeg; margin *= 2 {
		bestDist = math.Inf(1)
		found = false

		r.tr.Search(
			[2]float64{lon - margin, lat - margin},
			[2]float64{lon + margin, lat + margin},
			func(_, _ [2]float64, value interface{}) bool {
				e := value.(uint32)
				factor, _ := prof.Factor(r.net.ProfileID[e])
				if factor == 0 || !prof.CanStopOn(r.net.ProfileID[e]) {
					return true
				}
				dist, rp := r.project(lat, lon, e)
				if dist < bestDist {
					bestDist = dist
					best = rp
					found = true
				}
				return true
			},
		)

		if found && bestDist <= maxDistMeters {
			return best, nil
		}
	}

	if found && bestDist <= maxDistMeters {
		return best, nil
	}
	return RouterPoint{}, ErrResolveFailed
}

// project finds the closest point on edge e's full polyline to (lat, lon)
// and converts its position into a [0,1] offset along the edge's real-world
// length.
func (r *Resolver) project(lat, lon float64, e uint32) (dist float64, rp RouterPoint) {
	poly := r.net.FullPolyline(e, true)

	bestDist := math.Inf(1)
	var bestLat, bestLon, bestAlong float64
	var along float64

	for i := 0; i+1 < len(poly); i++ {
		a, b := poly[i], poly[i+1]
		segLen := geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
		d, t := geo.PointToSegmentDist(lat, lon, a.Lat, a.Lon, b.Lat, b.Lon)
		if d < bestDist {
			bestDist = d
			bestLat = a.Lat + t*(b.Lat-a.Lat)
			bestLon = a.Lon + t*(b.Lon-a.Lon)
			bestAlong = along + t*segLen
		}
		along += segLen
	}

	offset := 0.0
	if along > 0 {
		offset = bestAlong / along
	}

	return bestDist, RouterPoint{
		EdgeID:         e,
		Offset:         offset,
		Lat:            bestLat,
		Lon:            bestLon,
		DistanceMeters: bestDist,
	}
}
