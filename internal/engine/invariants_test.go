package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/F0rt1s/routing/internal/ch"
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/resolver"
)

// buildPentagonNetwork is a 4-vertex undirected, restriction-free road loop
// with a diagonal, used for the spec's general invariants (symmetry,
// triangle inequality, kernel equivalence): every edge is two-way so
// weight(s,t) and weight(t,s) have a meaningful identical answer to compare
// against.
//
//	0 --50-- 1
//	|  \      |
//	90  70   60
//	|      \  |
//	3 --80-- 2
func buildPentagonNetwork() *network.Graph {
	lat := map[uint64]float64{1: 1.00, 2: 1.00, 3: 1.01, 4: 1.01}
	lon := map[uint64]float64{1: 103.00, 2: 103.01, 3: 103.01, 4: 103.00}
	edges := []network.RawEdge{
		{FromID: 1, ToID: 2, Distance: 50, ProfileID: 0},
		{FromID: 2, ToID: 3, Distance: 60, ProfileID: 0},
		{FromID: 3, ToID: 4, Distance: 80, ProfileID: 0},
		{FromID: 4, ToID: 1, Distance: 90, ProfileID: 0},
		{FromID: 1, ToID: 3, Distance: 70, ProfileID: 0},
	}
	return network.Build(edges, lat, lon)
}

func undirectedProfile() *profile.VehicleProfile {
	p := profile.NewVehicleProfile("car", 0)
	p.Set(0, 3.6, profile.DirectionBoth, true)
	return p
}

func vertexPoint(t *testing.T, net *network.Graph, lat, lon float64) resolver.RouterPoint {
	t.Helper()
	for v := uint32(0); v < net.NumVertices; v++ {
		if net.VertexLat[v] == float32(lat) && net.VertexLon[v] == float32(lon) {
			start, end := net.EdgesFrom(v)
			if start < end {
				return resolver.RouterPoint{EdgeID: net.FwdEdge[start], Offset: 0, Lat: lat, Lon: lon}
			}
			start, end = net.EdgesTo(v)
			return resolver.RouterPoint{EdgeID: net.BwdEdge[start], Offset: 1, Lat: lat, Lon: lon}
		}
	}
	t.Fatalf("no vertex at (%f,%f)", lat, lon)
	return resolver.RouterPoint{}
}

// TestWeightSymmetryOnUndirectedProfile is spec §8 invariant 1.
func TestWeightSymmetryOnUndirectedProfile(t *testing.T) {
	net := buildPentagonNetwork()
	res := resolver.New(net)
	prof := undirectedProfile()
	e := New(net, res, Config{Profiles: map[string]profile.Profile{"car": prof}})

	a := vertexPoint(t, net, 1.00, 103.00)
	b := vertexPoint(t, net, 1.01, 103.01)
	ctx := context.Background()

	wAB, err := e.TryCalculateWeight(ctx, "car", a, b)
	require.NoError(t, err)
	wBA, err := e.TryCalculateWeight(ctx, "car", b, a)
	require.NoError(t, err)
	require.InDelta(t, wAB, wBA, 1e-6, "weight(a,b) must equal weight(b,a) for an undirected, restriction-free profile")
}

// TestTriangleInequality is spec §8 invariant 2.
func TestTriangleInequality(t *testing.T) {
	net := buildPentagonNetwork()
	res := resolver.New(net)
	prof := undirectedProfile()
	e := New(net, res, Config{Profiles: map[string]profile.Profile{"car": prof}})
	ctx := context.Background()

	a := vertexPoint(t, net, 1.00, 103.00)
	b := vertexPoint(t, net, 1.00, 103.01)
	c := vertexPoint(t, net, 1.01, 103.00)

	wAC, err := e.TryCalculateWeight(ctx, "car", a, c)
	require.NoError(t, err)
	wAB, err := e.TryCalculateWeight(ctx, "car", a, b)
	require.NoError(t, err)
	wBC, err := e.TryCalculateWeight(ctx, "car", b, c)
	require.NoError(t, err)

	require.LessOrEqual(t, wAC, wAB+wBC+1e-6, "direct weight must not exceed the sum through an intermediate stop")
}

// TestKernelEquivalencePlainVsContracted is spec §8 invariant 3.
func TestKernelEquivalencePlainVsContracted(t *testing.T) {
	net := buildPentagonNetwork()
	res := resolver.New(net)
	prof := undirectedProfile()

	plain := New(net, res, Config{Profiles: map[string]profile.Profile{"car": prof}})

	overlay := ch.Contract(ch.NewVertexAdjacency(net, prof))
	contracted := New(net, res, Config{
		Profiles:      map[string]profile.Profile{"car": prof},
		VertexOverlay: map[string]*ch.Graph{"car": overlay},
	})

	a := vertexPoint(t, net, 1.00, 103.00)
	c := vertexPoint(t, net, 1.01, 103.01)
	ctx := context.Background()

	wPlain, err := plain.TryCalculateWeight(ctx, "car", a, c)
	require.NoError(t, err)
	wContracted, err := contracted.TryCalculateWeight(ctx, "car", a, c)
	require.NoError(t, err)

	require.InDelta(t, wPlain, wContracted, 1e-3, "contracted and plain kernels must agree within 1e-3")
}

// TestManyToManyConsistency is spec §8 invariant 7.
func TestManyToManyConsistency(t *testing.T) {
	net := buildPentagonNetwork()
	res := resolver.New(net)
	prof := undirectedProfile()
	e := New(net, res, Config{Profiles: map[string]profile.Profile{"car": prof}})
	ctx := context.Background()

	sources := []resolver.RouterPoint{
		vertexPoint(t, net, 1.00, 103.00),
		vertexPoint(t, net, 1.00, 103.01),
	}
	targets := []resolver.RouterPoint{
		vertexPoint(t, net, 1.01, 103.01),
		vertexPoint(t, net, 1.01, 103.00),
	}

	wm, err := e.TryCalculateWeightMatrix(ctx, "car", sources, targets)
	require.NoError(t, err)

	for i, s := range sources {
		for j, tgt := range targets {
			pairwise, err := e.TryCalculateWeight(ctx, "car", s, tgt)
			require.NoError(t, err)
			require.InDelta(t, pairwise, wm.Weights[i][j], 1e-6,
				"matrix entry [%d][%d] must equal the pairwise call for the same pair", i, j)
		}
	}
}

// TestInvalidMarkingThreshold is spec §8 invariant 8: a source belongs in
// InvalidSources iff strictly more than half its non-self (index i != j)
// entries are unreachable (+Inf).
func TestInvalidMarkingThreshold(t *testing.T) {
	// Two isolated components: {10,20} and {30,40}, so a source in one
	// component is unreachable from every target in the other.
	lat := map[uint64]float64{10: 1.0, 20: 1.0, 30: 2.0, 40: 2.0}
	lon := map[uint64]float64{10: 103.0, 20: 103.01, 30: 104.0, 40: 104.01}
	edges := []network.RawEdge{
		{FromID: 10, ToID: 20, Distance: 100, ProfileID: 0},
		{FromID: 30, ToID: 40, Distance: 100, ProfileID: 0},
	}
	net := network.Build(edges, lat, lon)
	res := resolver.New(net)
	prof := undirectedProfile()
	e := New(net, res, Config{Profiles: map[string]profile.Profile{"car": prof}})

	source := vertexPoint(t, net, 1.0, 103.0) // in {10,20}
	targets := []resolver.RouterPoint{
		vertexPoint(t, net, 1.0, 103.01), // in {10,20}, reachable; index 0 == source index, excluded as self
		vertexPoint(t, net, 2.0, 104.0),  // in {30,40}, unreachable
	}

	wm, err := e.TryCalculateWeightMatrix(context.Background(), "car", []resolver.RouterPoint{source}, targets)
	require.NoError(t, err)
	require.Contains(t, wm.InvalidSources, 0, "source unreachable from its one counted non-self target must be marked invalid")
}
