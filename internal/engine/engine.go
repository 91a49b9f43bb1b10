// Package engine is the routing engine's public surface: profile registry,
// resolve/calculate/connectivity operations, and kernel selection between
// the plain, node-based-CH, edge-based-CH, and restriction-aware search
// kernels (spec §4.2.6). Everything here operates over engine-owned,
// immutable graph state; per-query scratch is pooled (spec §5).
package engine

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/F0rt1s/routing/internal/ch"
	"github.com/F0rt1s/routing/internal/manytomany"
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/resolver"
	"github.com/F0rt1s/routing/internal/restriction"
	"github.com/F0rt1s/routing/internal/routebuilder"
	"github.com/F0rt1s/routing/internal/search"
)

const defaultMaxSearchDistance = 50.0

// Config wires a profile registry and its optional per-profile overlays
// into an Engine. Every map is keyed by profile name; Restrictions,
// VertexOverlay, EdgeOverlay, and EdgeAdjacency entries are all optional —
// a profile with no entry in VertexOverlay/EdgeOverlay simply always uses
// the plain graph kernels.
type Config struct {
	Profiles      map[string]profile.Profile
	Restrictions  map[string]*restriction.Index
	VertexOverlay map[string]*ch.Graph
	EdgeOverlay   map[string]*ch.Graph
	EdgeAdjacency map[string]*ch.EdgeAdjacency
	Builder       routebuilder.Builder

	// VerifyAllStoppable is carried in the configuration but TryResolve does
	// not read it: resolve checks stoppability only for the profiles named
	// in the call, and the other registered profiles are not consulted.
	VerifyAllStoppable bool
}

// Engine is the routing engine: a network, a resolver, a profile registry,
// and whatever CH overlays were built for each profile at preprocessing
// time (pooled query state included, teacher's qsPool generalized to one
// pool per overlay since node counts differ by profile).
type Engine struct {
	net      *network.Graph
	resolver *resolver.Resolver
	cfg      Config
	builder  routebuilder.Builder

	qsPools map[string]*sync.Pool
}

// New builds an Engine over net using res for point resolution and cfg for
// the profile registry and optional overlays.
func New(net *network.Graph, res *resolver.Resolver, cfg Config) *Engine {
	builder := cfg.Builder
	if builder == nil {
		builder = routebuilder.DefaultBuilder{}
	}

	e := &Engine{
		net:      net,
		resolver: res,
		cfg:      cfg,
		builder:  builder,
		qsPools:  make(map[string]*sync.Pool),
	}

	for name, overlay := range cfg.VertexOverlay {
		overlay := overlay
		e.qsPools[name] = &sync.Pool{New: func() any { return search.NewQueryState(overlay.NumNodes) }}
	}
	for name, overlay := range cfg.EdgeOverlay {
		overlay := overlay
		e.qsPools[name+"/edge"] = &sync.Pool{New: func() any { return search.NewQueryState(overlay.NumNodes) }}
	}
	return e
}

// SupportsAll reports whether every named profile is registered.
func (e *Engine) SupportsAll(profiles []string) bool {
	for _, name := range profiles {
		if _, ok := e.cfg.Profiles[name]; !ok {
			return false
		}
	}
	return true
}

// TryResolve snaps (lat, lon) onto an edge acceptable to every named
// profile (spec §6 try_resolve), within maxSearchDistance meters (0 uses
// the 50m default).
func (e *Engine) TryResolve(profiles []string, lat, lon, maxSearchDistance float64) (resolver.RouterPoint, error) {
	if len(profiles) == 0 || !e.SupportsAll(profiles) {
		return resolver.RouterPoint{}, profileUnsupportedErr(true)
	}
	if maxSearchDistance <= 0 {
		maxSearchDistance = defaultMaxSearchDistance
	}

	var prof profile.Profile
	if len(profiles) == 1 {
		prof = e.cfg.Profiles[profiles[0]]
	} else {
		profs := make([]profile.Profile, len(profiles))
		for i, name := range profiles {
			profs[i] = e.cfg.Profiles[name]
		}
		prof = newIntersectionProfile(profs)
	}

	rp, err := e.resolver.ResolveWithinRadius(lat, lon, prof, maxSearchDistance)
	if err != nil {
		return resolver.RouterPoint{}, resolveFailedErr(err)
	}
	return rp, nil
}

// TryCheckConnectivity runs a bounded one-directional Dijkstra out from
// point and reports whether it reached radiusM before exhausting the
// network's locally reachable component (spec §6).
func (e *Engine) TryCheckConnectivity(ctx context.Context, profileName string, point resolver.RouterPoint, radiusM float64) (bool, error) {
	prof, ok := e.cfg.Profiles[profileName]
	if !ok {
		return false, profileUnsupportedErr(false)
	}
	adj := ch.NewVertexAdjacency(e.net, prof)
	seeds := e.edgeSeeds(prof, point, true)
	reached, err := connectivityProbe(ctx, adj, seeds, radiusM)
	if err != nil {
		return false, cancelledErr(err)
	}
	return reached, nil
}

// TryCalculate computes the full Route between source and target for the
// named profile (spec §6 try_calculate).
func (e *Engine) TryCalculate(ctx context.Context, profileName string, source, target resolver.RouterPoint) (*routebuilder.Route, error) {
	prof, ok := e.cfg.Profiles[profileName]
	if !ok {
		return nil, profileUnsupportedErr(false)
	}

	path, err := e.route(ctx, profileName, prof, source, target)
	if err != nil {
		return nil, e.wrapSearchErr(err)
	}
	route, err := e.builder.Build(e.net, prof, source, target, path)
	if err != nil {
		return nil, err
	}
	return route, nil
}

// TryCalculateWeight returns the TotalDistanceMeters of the route that
// TryCalculate builds (spec §6 try_calculate_weight); the full route,
// geometry included, is built and then discarded.
func (e *Engine) TryCalculateWeight(ctx context.Context, profileName string, source, target resolver.RouterPoint) (float64, error) {
	route, err := e.TryCalculate(ctx, profileName, source, target)
	if err != nil {
		return 0, err
	}
	return route.TotalDistanceMeters, nil
}

// TryCalculateWeightMatrix computes weight(sources[i], targets[j]) for
// every pair at once (spec §6 try_calculate_weight, many-to-many overload),
// reusing the named profile's node-based CH overlay when one exists.
func (e *Engine) TryCalculateWeightMatrix(ctx context.Context, profileName string, sources, targets []resolver.RouterPoint) (manytomany.WeightMatrix, error) {
	prof, ok := e.cfg.Profiles[profileName]
	if !ok {
		return manytomany.WeightMatrix{}, profileUnsupportedErr(false)
	}
	wm, err := manytomany.CalculateWeights(ctx, e.net, prof, e.cfg.VertexOverlay[profileName], sources, targets)
	if err != nil {
		return manytomany.WeightMatrix{}, e.wrapSearchErr(err)
	}
	return wm, nil
}

// TryCalculateRouteMatrix is TryCalculateWeightMatrix additionally building
// a full Route for every reachable pair (spec §6 try_calculate, many-to-many
// overload).
func (e *Engine) TryCalculateRouteMatrix(ctx context.Context, profileName string, sources, targets []resolver.RouterPoint) (manytomany.RouteMatrix, error) {
	prof, ok := e.cfg.Profiles[profileName]
	if !ok {
		return manytomany.RouteMatrix{}, profileUnsupportedErr(false)
	}
	rm, err := manytomany.CalculateRoutes(ctx, e.net, prof, e.cfg.VertexOverlay[profileName], sources, targets)
	if err != nil {
		return manytomany.RouteMatrix{}, e.wrapSearchErr(err)
	}
	return rm, nil
}

func (e *Engine) wrapSearchErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelledErr(err)
	}
	return routeNotFoundErr(err)
}

// route selects and runs the appropriate kernel (spec §4.2.6): unrestricted
// profiles use the node-based CH overlay when present, else the plain
// bidirectional search; restricted profiles use the edge-based overlay when
// it exactly represents every restriction, else fall back to the
// edge-state RestrictedDijkstra kernel over the plain graph.
// route runs the normal kernel search regardless of whether source and
// target share an edge: routebuilder.Build is the one place that decides
// whether the kernel-searched path or the direct same-edge segment wins
// (spec §4.2.6/§9, "the direct path ... replaces [the search result] when
// shorter"). When the two resolve to the same edge and the kernel finds no
// path at all (e.g. a one-way edge with no other connection back), that is
// not a failure by itself — Build may still succeed off the direct
// segment alone — so ErrNoRoute is swallowed in that case and left for
// Build to resolve.
func (e *Engine) route(ctx context.Context, profileName string, prof profile.Profile, source, target resolver.RouterPoint) ([]uint32, error) {
	path, err := e.routeViaKernel(ctx, profileName, prof, source, target)
	if err != nil {
		if source.EdgeID == target.EdgeID && errors.Is(err, search.ErrNoRoute) {
			return nil, nil
		}
		return nil, err
	}
	return path, nil
}

func (e *Engine) routeViaKernel(ctx context.Context, profileName string, prof profile.Profile, source, target resolver.RouterPoint) ([]uint32, error) {
	restrictions := e.cfg.Restrictions[profileName]
	if restrictions == nil || restrictions.Empty() {
		return e.routeUnrestricted(ctx, profileName, prof, source, target)
	}

	if ea, ok := e.cfg.EdgeAdjacency[profileName]; ok && ea.ExactlyRepresentable() {
		return e.routeEdgeBased(ctx, profileName, ea, prof, source, target)
	}

	log.Printf("engine: profile %q has restrictions the edge-based hierarchy cannot represent exactly, falling back to restricted Dijkstra", profileName)
	sv := e.nearestVertex(source)
	tv := e.nearestVertex(target)
	res, err := search.RestrictedDijkstra(ctx, e.net, prof, restrictions, sv, tv)
	if err != nil {
		return nil, err
	}
	return buildForcedPath(e.net, source, target, res.Path), nil
}

func (e *Engine) routeUnrestricted(ctx context.Context, profileName string, prof profile.Profile, source, target resolver.RouterPoint) ([]uint32, error) {
	fwdSeeds := e.edgeSeeds(prof, source, true)
	bwdSeeds := e.edgeSeeds(prof, target, false)
	if len(fwdSeeds) == 0 || len(bwdSeeds) == 0 {
		return nil, search.ErrNoRoute
	}

	if overlay, ok := e.cfg.VertexOverlay[profileName]; ok {
		qs := e.acquireQueryState(profileName, overlay.NumNodes)
		defer e.releaseQueryState(profileName, qs)
		for _, s := range fwdSeeds {
			qs.SeedForward(s.Node, s.Dist)
		}
		for _, s := range bwdSeeds {
			qs.SeedBackward(s.Node, s.Dist)
		}
		res, err := search.ContractedDijkstra(ctx, overlay, qs)
		if err != nil {
			return nil, err
		}
		return res.Path, nil
	}

	adj := ch.NewVertexAdjacency(e.net, prof)
	res, err := search.BidirectionalDijkstraSeeded(ctx, adj, fwdSeeds, bwdSeeds)
	if err != nil {
		return nil, err
	}
	return res.Path, nil
}

// routeEdgeBased runs the search over the edge-based hierarchy (or its
// plain line-graph adjacency when no overlay was built), whose "nodes" are
// directed original edges; the result is converted back into the original
// vertex path routebuilder.Build expects.
func (e *Engine) routeEdgeBased(ctx context.Context, profileName string, ea *ch.EdgeAdjacency, prof profile.Profile, source, target resolver.RouterPoint) ([]uint32, error) {
	fwdSeeds := edgeNodeSeeds(e.net, ea, prof, source, true)
	bwdSeeds := edgeNodeSeeds(e.net, ea, prof, target, false)
	if len(fwdSeeds) == 0 || len(bwdSeeds) == 0 {
		return nil, search.ErrNoRoute
	}

	var nodes []uint32
	if overlay, ok := e.cfg.EdgeOverlay[profileName]; ok {
		qs := e.acquireQueryState(profileName+"/edge", overlay.NumNodes)
		defer e.releaseQueryState(profileName+"/edge", qs)
		for _, s := range fwdSeeds {
			qs.SeedForward(s.Node, s.Dist)
		}
		for _, s := range bwdSeeds {
			qs.SeedBackward(s.Node, s.Dist)
		}
		res, err := search.ContractedDijkstra(ctx, overlay, qs)
		if err != nil {
			return nil, err
		}
		nodes = res.Path
	} else {
		res, err := search.BidirectionalDijkstraSeeded(ctx, ea, fwdSeeds, bwdSeeds)
		if err != nil {
			return nil, err
		}
		nodes = res.Path
	}

	return edgeNodesToVertexPath(ea, e.net, nodes), nil
}

func (e *Engine) acquireQueryState(profileName string, n uint32) *search.QueryState {
	pool, ok := e.qsPools[profileName]
	if !ok {
		return search.NewQueryState(n)
	}
	qs := pool.Get().(*search.QueryState)
	return qs
}

func (e *Engine) releaseQueryState(profileName string, qs *search.QueryState) {
	qs.Reset()
	if pool, ok := e.qsPools[profileName]; ok {
		pool.Put(qs)
	}
}

// nearestVertex picks whichever endpoint of a RouterPoint's edge is closer
// by offset; used only by the vertex-granularity restricted-Dijkstra
// fallback, which has no seeded-distance entry point.
func (e *Engine) nearestVertex(rp resolver.RouterPoint) uint32 {
	if rp.Offset < 0.5 {
		return e.net.EdgeFrom[rp.EdgeID]
	}
	return e.net.EdgeTo[rp.EdgeID]
}

// edgeSeeds returns the weighted seeds for both endpoints of rp's edge,
// gated by the profile's allowed direction (teacher's seedForward/
// seedBackward, spec §4.1 "offset is fractional along real-world length").
func (e *Engine) edgeSeeds(prof profile.Profile, rp resolver.RouterPoint, forward bool) []search.Seed {
	edge := rp.EdgeID
	factor, dir := prof.Factor(e.net.ProfileID[edge])
	if factor == 0 {
		return nil
	}
	total := e.net.Distance[edge]
	from, to := e.net.EdgeFrom[edge], e.net.EdgeTo[edge]

	var out []search.Seed
	if forward {
		if dir.Forward() {
			out = append(out, search.Seed{Node: to, Dist: total * (1 - rp.Offset) * factor})
		}
		if dir.Backward() {
			out = append(out, search.Seed{Node: from, Dist: total * rp.Offset * factor})
		}
	} else {
		if dir.Forward() {
			out = append(out, search.Seed{Node: from, Dist: total * rp.Offset * factor})
		}
		if dir.Backward() {
			out = append(out, search.Seed{Node: to, Dist: total * (1 - rp.Offset) * factor})
		}
	}
	return out
}

// buildForcedPath prepends/appends the other endpoint of source/target's own
// edge (the one the kernel result does not already start or end on) to a
// vertex-to-vertex kernel result, so routebuilder.Build's
// first/last-segment offset trimming has the matching edge to find. Used by
// the vertex-granularity restricted fallback, which searches between
// nearestVertex(source) and nearestVertex(target) rather than seeding
// mid-edge distances directly.
func buildForcedPath(net *network.Graph, source, target resolver.RouterPoint, core []uint32) []uint32 {
	if len(core) == 0 {
		return core
	}
	out := make([]uint32, 0, len(core)+2)
	sFrom, sTo := net.EdgeFrom[source.EdgeID], net.EdgeTo[source.EdgeID]
	if core[0] == sTo {
		out = append(out, sFrom)
	} else if core[0] == sFrom {
		out = append(out, sTo)
	}
	out = append(out, core...)
	tFrom, tTo := net.EdgeFrom[target.EdgeID], net.EdgeTo[target.EdgeID]
	last := core[len(core)-1]
	if last == tFrom {
		out = append(out, tTo)
	} else if last == tTo {
		out = append(out, tFrom)
	}
	return out
}

// connectivityProbe runs a bounded single-directional Dijkstra and reports
// whether any settled distance exceeded radiusM before the frontier
// emptied (a frontier that empties first means the whole locally reachable
// component is smaller than radiusM).
func connectivityProbe(ctx context.Context, adj ch.Adjacency, seeds []search.Seed, radiusM float64) (bool, error) {
	dist := make(map[uint32]float64, 256)
	var h search.Heap
	for _, s := range seeds {
		if cur, ok := dist[s.Node]; !ok || s.Dist < cur {
			dist[s.Node] = s.Dist
			h.Push(s.Node, s.Dist)
		}
	}

	iterations := 0
	for h.Len() > 0 {
		iterations++
		if iterations&255 == 0 && ctx.Err() != nil {
			return false, ctx.Err()
		}
		item := h.Pop()
		u, d := item.Node, item.Dist
		if d > dist[u] {
			continue
		}
		if d > radiusM {
			return true, nil
		}
		adj.ForEachOut(u, func(v uint32, w float64) {
			nd := d + w
			if cur, ok := dist[v]; !ok || nd < cur {
				dist[v] = nd
				h.Push(v, nd)
			}
		})
	}
	return false, nil
}

// edgeNodeSeeds mirrors edgeSeeds but in the edge-based hierarchy's node
// space, where a node is a directed original edge rather than a vertex.
func edgeNodeSeeds(net *network.Graph, ea *ch.EdgeAdjacency, prof profile.Profile, rp resolver.RouterPoint, forward bool) []search.Seed {
	edge := rp.EdgeID
	factor, dir := prof.Factor(net.ProfileID[edge])
	if factor == 0 {
		return nil
	}
	total := net.Distance[edge]

	var out []search.Seed
	if forward {
		if dir.Forward() {
			if node, ok := ea.NodeFor(network.EncodeDirectedEdgeID(edge, true)); ok {
				out = append(out, search.Seed{Node: node, Dist: total * (1 - rp.Offset) * factor})
			}
		}
		if dir.Backward() {
			if node, ok := ea.NodeFor(network.EncodeDirectedEdgeID(edge, false)); ok {
				out = append(out, search.Seed{Node: node, Dist: total * rp.Offset * factor})
			}
		}
	} else {
		if dir.Forward() {
			if node, ok := ea.NodeFor(network.EncodeDirectedEdgeID(edge, true)); ok {
				out = append(out, search.Seed{Node: node, Dist: total * rp.Offset * factor})
			}
		}
		if dir.Backward() {
			if node, ok := ea.NodeFor(network.EncodeDirectedEdgeID(edge, false)); ok {
				out = append(out, search.Seed{Node: node, Dist: total * (1 - rp.Offset) * factor})
			}
		}
	}
	return out
}

// edgeNodesToVertexPath expands a path of edge-based hierarchy nodes
// (directed original edges) into the original vertex sequence
// routebuilder.Build expects: the tail of the first edge, then each
// subsequent edge's head.
func edgeNodesToVertexPath(ea *ch.EdgeAdjacency, net *network.Graph, nodes []uint32) []uint32 {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]uint32, 0, len(nodes)+1)
	first := ea.DirectedEdge(nodes[0])
	from, to, ok := net.GetEdge(first)
	if !ok {
		return nil
	}
	out = append(out, from, to)
	for i := 1; i < len(nodes); i++ {
		d := ea.DirectedEdge(nodes[i])
		_, head, ok := net.GetEdge(d)
		if !ok {
			continue
		}
		out = append(out, head)
	}
	return out
}
