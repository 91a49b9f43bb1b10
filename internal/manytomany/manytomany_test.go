package manytomany

import (
	"context"
	"math"
	"testing"

	"github.com/F0rt1s/routing/internal/ch"
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/resolver"
)

// buildGridNetwork mirrors the search/ch package fixture:
//
//	0 ---100--- 1 ---200--- 2
//	|                       |
//	300                    400
//	|                       |
//	3 ---500--- 4 ---600--- 5
func buildGridNetwork() *network.Graph {
	lat := map[uint64]float64{10: 1.0, 20: 1.0, 30: 1.0, 40: 1.1, 50: 1.1, 60: 1.1}
	lon := map[uint64]float64{10: 103.0, 20: 103.1, 30: 103.2, 40: 103.0, 50: 103.1, 60: 103.2}
	edges := []network.RawEdge{
		{FromID: 10, ToID: 20, Distance: 100, ProfileID: 0},
		{FromID: 20, ToID: 30, Distance: 200, ProfileID: 0},
		{FromID: 10, ToID: 40, Distance: 300, ProfileID: 0},
		{FromID: 30, ToID: 60, Distance: 400, ProfileID: 0},
		{FromID: 40, ToID: 50, Distance: 500, ProfileID: 0},
		{FromID: 50, ToID: 60, Distance: 600, ProfileID: 0},
	}
	return network.Build(edges, lat, lon)
}

func bothWaysProfile() *profile.VehicleProfile {
	p := profile.NewVehicleProfile("test", 0)
	p.Set(0, 3.6, profile.DirectionBoth, true) // factor 1
	return p
}

func findEdgeBetween(t *testing.T, net *network.Graph, fromLat, fromLon, toLat, toLon float64) uint32 {
	t.Helper()
	var from, to uint32 = math.MaxUint32, math.MaxUint32
	for i := uint32(0); i < net.NumVertices; i++ {
		if net.VertexLat[i] == float32(fromLat) && net.VertexLon[i] == float32(fromLon) {
			from = i
		}
		if net.VertexLat[i] == float32(toLat) && net.VertexLon[i] == float32(toLon) {
			to = i
		}
	}
	for e := uint32(0); e < net.NumEdges; e++ {
		if (net.EdgeFrom[e] == from && net.EdgeTo[e] == to) || (net.EdgeFrom[e] == to && net.EdgeTo[e] == from) {
			return e
		}
	}
	t.Fatalf("no edge between (%f,%f) and (%f,%f)", fromLat, fromLon, toLat, toLon)
	return 0
}

func TestCalculateWeightsPlainMatchesDirect(t *testing.T) {
	net := buildGridNetwork()
	prof := bothWaysProfile()

	e1020 := findEdgeBetween(t, net, 1.0, 103.0, 1.0, 103.1)
	e3060 := findEdgeBetween(t, net, 1.0, 103.2, 1.1, 103.2)

	sources := []resolver.RouterPoint{{EdgeID: e1020, Offset: 0}}
	targets := []resolver.RouterPoint{{EdgeID: e3060, Offset: 1}}

	m, err := CalculateWeights(context.Background(), net, prof, nil, sources, targets)
	if err != nil {
		t.Fatalf("CalculateWeights: %v", err)
	}
	if got := m.Weights[0][0]; math.IsInf(got, 1) {
		t.Fatalf("weight unreachable, want finite")
	}
}

func TestCalculateWeightsOverlayMatchesPlain(t *testing.T) {
	net := buildGridNetwork()
	prof := bothWaysProfile()
	adj := ch.NewVertexAdjacency(net, prof)
	overlay := ch.Contract(adj)

	e1020 := findEdgeBetween(t, net, 1.0, 103.0, 1.0, 103.1)
	e3060 := findEdgeBetween(t, net, 1.0, 103.2, 1.1, 103.2)

	sources := []resolver.RouterPoint{{EdgeID: e1020, Offset: 0}}
	targets := []resolver.RouterPoint{{EdgeID: e3060, Offset: 1}}

	plainM, err := CalculateWeights(context.Background(), net, prof, nil, sources, targets)
	if err != nil {
		t.Fatalf("plain CalculateWeights: %v", err)
	}
	overlayM, err := CalculateWeights(context.Background(), net, prof, overlay, sources, targets)
	if err != nil {
		t.Fatalf("overlay CalculateWeights: %v", err)
	}

	if math.Abs(plainM.Weights[0][0]-overlayM.Weights[0][0]) > 1e-6 {
		t.Errorf("plain=%f overlay=%f, want equal", plainM.Weights[0][0], overlayM.Weights[0][0])
	}
}

func TestMarkInvalidFlagsMostlyUnreachableRow(t *testing.T) {
	inf := math.Inf(1)
	weights := [][]float64{
		{0, inf, inf, inf}, // source 0 unreachable to 3 of its 3 non-self targets
		{0, 0, 5, 6},
		{0, 5, 0, 6},
	}
	invSources, invTargets := markInvalid(weights)
	if len(invSources) != 1 || invSources[0] != 0 {
		t.Errorf("invalidSources = %v, want [0]", invSources)
	}
	_ = invTargets
}

func TestMarkInvalidNoneWhenAllReachable(t *testing.T) {
	weights := [][]float64{
		{0, 1, 2},
		{1, 0, 3},
		{2, 3, 0},
	}
	invSources, invTargets := markInvalid(weights)
	if len(invSources) != 0 || len(invTargets) != 0 {
		t.Errorf("invSources=%v invTargets=%v, want both empty", invSources, invTargets)
	}
}
