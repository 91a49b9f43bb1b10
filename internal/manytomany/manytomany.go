// Package manytomany computes weight and route matrices between sets of
// resolved points (spec §4.3): when a contracted graph is available it
// runs one forward search per source and one backward search per target
// over the overlay and combines their settled-distance arrays (the
// bucket/middle-set technique CH many-to-many queries are built on);
// otherwise it falls back to one bidirectional Dijkstra per source/target
// pair.
package manytomany

import (
	"context"
	"errors"
	"math"

	"github.com/F0rt1s/routing/internal/ch"
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/resolver"
	"github.com/F0rt1s/routing/internal/routebuilder"
	"github.com/F0rt1s/routing/internal/search"
)

// WeightMatrix is the result of a weights-only many-to-many query.
type WeightMatrix struct {
	Weights        [][]float64 // Weights[i][j] = weight(sources[i], targets[j]); +Inf if unreachable
	InvalidSources []int       // indices into sources with too many unreachable targets
	InvalidTargets []int       // indices into targets with too many unreachable sources
}

// RouteMatrix mirrors WeightMatrix but with built Routes (nil where
// unreachable) instead of bare weights.
type RouteMatrix struct {
	Routes         [][]*routebuilder.Route
	InvalidSources []int
	InvalidTargets []int
}

// CalculateWeights computes a full weight matrix. overlay may be nil, in
// which case every pair is computed by an independent plain Dijkstra.
func CalculateWeights(ctx context.Context, net *network.Graph, prof profile.Profile, overlay *ch.Graph, sources, targets []resolver.RouterPoint) (WeightMatrix, error) {
	weights := make([][]float64, len(sources))
	for i := range weights {
		weights[i] = make([]float64, len(targets))
	}

	if overlay != nil {
		if err := weightsViaOverlay(ctx, net, prof, overlay, sources, targets, weights); err != nil {
			return WeightMatrix{}, err
		}
	} else {
		if err := weightsViaPlain(ctx, net, prof, sources, targets, weights); err != nil {
			return WeightMatrix{}, err
		}
	}

	invSources, invTargets := markInvalid(weights)
	return WeightMatrix{Weights: weights, InvalidSources: invSources, InvalidTargets: invTargets}, nil
}

// CalculateRoutes computes a full route matrix, reusing the same search
// machinery as CalculateWeights but additionally reconstructing and
// building each reachable pair's Route.
func CalculateRoutes(ctx context.Context, net *network.Graph, prof profile.Profile, overlay *ch.Graph, sources, targets []resolver.RouterPoint) (RouteMatrix, error) {
	routes := make([][]*routebuilder.Route, len(sources))
	for i := range routes {
		routes[i] = make([]*routebuilder.Route, len(targets))
	}
	weights := make([][]float64, len(sources))
	for i := range weights {
		weights[i] = make([]float64, len(targets))
		for j := range weights[i] {
			weights[i][j] = math.Inf(1)
		}
	}

	adj := vertexAdjacency(net, prof)
	for i, s := range sources {
		for j, tgt := range targets {
			res, err := routeOne(ctx, net, prof, overlay, adj, s, tgt)
			if err != nil {
				continue
			}
			routes[i][j] = res.route
			weights[i][j] = res.route.TotalDistanceMeters
		}
	}

	invSources, invTargets := markInvalid(weights)
	return RouteMatrix{Routes: routes, InvalidSources: invSources, InvalidTargets: invTargets}, nil
}

func markInvalid(weights [][]float64) (invalidSources, invalidTargets []int) {
	numSources := len(weights)
	if numSources == 0 {
		return nil, nil
	}
	numTargets := len(weights[0])

	for i := range weights {
		unreachable := 0
		nonSelf := 0
		for j := range weights[i] {
			if i == j {
				continue
			}
			nonSelf++
			if math.IsInf(weights[i][j], 1) {
				unreachable++
			}
		}
		if nonSelf > 0 && unreachable*2 > nonSelf {
			invalidSources = append(invalidSources, i)
		}
	}

	for j := 0; j < numTargets; j++ {
		unreachable := 0
		nonSelf := 0
		for i := range weights {
			if i == j {
				continue
			}
			nonSelf++
			if math.IsInf(weights[i][j], 1) {
				unreachable++
			}
		}
		if nonSelf > 0 && unreachable*2 > nonSelf {
			invalidTargets = append(invalidTargets, j)
		}
	}
	return invalidSources, invalidTargets
}

// weightsViaOverlay runs one forward settle from each source and one
// backward settle from each target over the contracted overlay, then
// combines distFwd[s] and distBwd[t] over every overlay node to get
// weight(s,t) = min_v distFwd[s][v] + distBwd[t][v].
func weightsViaOverlay(ctx context.Context, net *network.Graph, prof profile.Profile, overlay *ch.Graph, sources, targets []resolver.RouterPoint, weights [][]float64) error {
	n := overlay.NumNodes
	fwdDist := make([][]float64, len(sources))
	for i, s := range sources {
		fwdDist[i] = settleForward(ctx, net, prof, overlay, s)
	}
	bwdDist := make([][]float64, len(targets))
	for j, t := range targets {
		bwdDist[j] = settleBackward(ctx, net, prof, overlay, t)
	}

	for i := range sources {
		for j := range targets {
			best := math.Inf(1)
			for v := uint32(0); v < n; v++ {
				if c := fwdDist[i][v] + bwdDist[j][v]; c < best {
					best = c
				}
			}
			weights[i][j] = best
		}
	}
	return nil
}

// settleForward runs a full (unbounded-target) forward Dijkstra over the
// overlay from a seeded RouterPoint, returning the settled distance array.
func settleForward(ctx context.Context, net *network.Graph, prof profile.Profile, overlay *ch.Graph, rp resolver.RouterPoint) []float64 {
	n := overlay.NumNodes
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}

	var h search.Heap
	for _, seed := range edgeEndpointSeeds(net, prof, rp, true) {
		if seed.dist < dist[seed.node] {
			dist[seed.node] = seed.dist
			h.Push(seed.node, seed.dist)
		}
	}

	iterations := 0
	for h.Len() > 0 {
		iterations++
		if iterations&255 == 0 && ctx.Err() != nil {
			break
		}
		item := h.Pop()
		u, d := item.Node, item.Dist
		if d > dist[u] {
			continue
		}
		start, end := overlay.OutEdges(u)
		for e := start; e < end; e++ {
			v := overlay.FwdHead[e]
			nd := d + overlay.FwdWeight[e]
			if nd < dist[v] {
				dist[v] = nd
				h.Push(v, nd)
			}
		}
	}
	return dist
}

func settleBackward(ctx context.Context, net *network.Graph, prof profile.Profile, overlay *ch.Graph, rp resolver.RouterPoint) []float64 {
	n := overlay.NumNodes
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}

	var h search.Heap
	for _, seed := range edgeEndpointSeeds(net, prof, rp, false) {
		if seed.dist < dist[seed.node] {
			dist[seed.node] = seed.dist
			h.Push(seed.node, seed.dist)
		}
	}

	iterations := 0
	for h.Len() > 0 {
		iterations++
		if iterations&255 == 0 && ctx.Err() != nil {
			break
		}
		item := h.Pop()
		u, d := item.Node, item.Dist
		if d > dist[u] {
			continue
		}
		start, end := overlay.InEdges(u)
		for e := start; e < end; e++ {
			v := overlay.BwdHead[e]
			nd := d + overlay.BwdWeight[e]
			if nd < dist[v] {
				dist[v] = nd
				h.Push(v, nd)
			}
		}
	}
	return dist
}

type seed struct {
	node uint32
	dist float64
}

// edgeEndpointSeeds returns the two endpoints of a RouterPoint's edge, each
// with the distance from (forward=true) or to (forward=false) the resolved
// offset, gated by the profile's allowed direction for that edge.
func edgeEndpointSeeds(net *network.Graph, prof profile.Profile, rp resolver.RouterPoint, forward bool) []seed {
	e := rp.EdgeID
	factor, dir := prof.Factor(net.ProfileID[e])
	if factor == 0 {
		return nil
	}
	total := net.Distance[e]
	from, to := net.EdgeFrom[e], net.EdgeTo[e]

	var out []seed
	if forward {
		if dir.Forward() {
			out = append(out, seed{to, total * (1 - rp.Offset) * factor})
		}
		if dir.Backward() {
			out = append(out, seed{from, total * rp.Offset * factor})
		}
	} else {
		if dir.Forward() {
			out = append(out, seed{from, total * rp.Offset * factor})
		}
		if dir.Backward() {
			out = append(out, seed{to, total * (1 - rp.Offset) * factor})
		}
	}
	return out
}

func weightsViaPlain(ctx context.Context, net *network.Graph, prof profile.Profile, sources, targets []resolver.RouterPoint, weights [][]float64) error {
	adj := vertexAdjacency(net, prof)
	for i, s := range sources {
		for j, t := range targets {
			res, err := routeOne(ctx, net, prof, nil, adj, s, t)
			if err != nil {
				weights[i][j] = math.Inf(1)
				continue
			}
			weights[i][j] = res.route.TotalDistanceMeters
		}
	}
	return nil
}

type oneResult struct {
	route *routebuilder.Route
}

// routeOne computes a single source->target route, choosing the contracted
// kernel when overlay is non-nil, matching the engine's own kernel-
// selection logic for the no-restriction case. The kernel always runs,
// same-edge pairs included, so routebuilder.Build can compare its result
// against the direct same-edge segment and take whichever is shorter
// (spec §4.2.6/§9); a same-edge pair for which the kernel finds no path at
// all (e.g. a one-way edge with no other connection back) isn't a failure
// by itself, since Build may still succeed off the direct segment alone.
func routeOne(ctx context.Context, net *network.Graph, prof profile.Profile, overlay *ch.Graph, adj ch.Adjacency, source, target resolver.RouterPoint) (oneResult, error) {
	_, _, path, err := resolvePath(ctx, net, prof, overlay, adj, source, target)
	if err != nil {
		if source.EdgeID != target.EdgeID || !errors.Is(err, search.ErrNoRoute) {
			return oneResult{}, err
		}
		path = nil
	}
	route, err := routebuilder.Build(net, prof, source, target, path)
	if err != nil {
		return oneResult{}, err
	}
	return oneResult{route: route}, nil
}

func resolvePath(ctx context.Context, net *network.Graph, prof profile.Profile, overlay *ch.Graph, adj ch.Adjacency, source, target resolver.RouterPoint) (uint32, uint32, []uint32, error) {
	sv, sSeed := nearestEndpoint(net, source)
	tv, tSeed := nearestEndpoint(net, target)

	if overlay != nil {
		qs := search.NewQueryState(overlay.NumNodes)
		qs.SeedForward(sv, sSeed)
		qs.SeedBackward(tv, tSeed)
		res, err := search.ContractedDijkstra(ctx, overlay, qs)
		if err != nil {
			return 0, 0, nil, err
		}
		return sv, tv, res.Path, nil
	}

	res, err := search.BidirectionalDijkstra(ctx, adj, sv, tv)
	if err != nil {
		return 0, 0, nil, err
	}
	return sv, tv, res.Path, nil
}

// nearestEndpoint picks whichever endpoint of a RouterPoint's edge is
// closer by offset, for seeding a vertex-based search; the fractional
// remainder to the true snap point is folded in by the route builder's
// offset trimming, so this is only used to pick the kernel's entry vertex.
func nearestEndpoint(net *network.Graph, rp resolver.RouterPoint) (uint32, float64) {
	if rp.Offset < 0.5 {
		return net.EdgeFrom[rp.EdgeID], 0
	}
	return net.EdgeTo[rp.EdgeID], 0
}

func vertexAdjacency(net *network.Graph, prof profile.Profile) ch.Adjacency {
	return ch.NewVertexAdjacency(net, prof)
}
