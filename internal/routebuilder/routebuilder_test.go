package routebuilder

import (
	"math"
	"testing"

	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/resolver"
)

// buildLine creates the S1 fixture: A(0,0), B(0,1), C(0,2), edges A-B and
// B-C each 100m (approximately, at this latitude-longitude scale).
func buildLine(t *testing.T) (*network.Graph, uint32, uint32, uint32) {
	t.Helper()
	lat := map[uint64]float64{1: 0, 2: 0.0009, 3: 0.0018}
	lon := map[uint64]float64{1: 0, 2: 0, 3: 0}
	edges := []network.RawEdge{
		{FromID: 1, ToID: 2, Distance: 100, ProfileID: 0},
		{FromID: 2, ToID: 3, Distance: 100, ProfileID: 0},
	}
	net := network.Build(edges, lat, lon)

	find := func(lat0 float64) uint32 {
		for i := uint32(0); i < net.NumVertices; i++ {
			if math.Abs(float64(net.VertexLat[i])-lat0) < 1e-9 {
				return i
			}
		}
		t.Fatalf("no vertex at lat %f", lat0)
		return 0
	}
	return net, find(0), find(0.0009), find(0.0018)
}

func carProfile() *profile.VehicleProfile {
	p := profile.NewVehicleProfile("car", 0)
	p.Set(0, 36, profile.DirectionBoth, true) // factor = 0.1 s/m
	return p
}

func TestBuildStraightLine(t *testing.T) {
	net, a, b, c := buildLine(t)
	prof := carProfile()

	edgeAB, _, _ := findEdge(net, a, b)
	source := resolver.RouterPoint{EdgeID: edgeAB, Offset: 0}
	edgeBC, _, _ := findEdge(net, b, c)
	target := resolver.RouterPoint{EdgeID: edgeBC, Offset: 1}

	route, err := Build(net, prof, source, target, []uint32{a, b, c})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(route.Segments) != 2 {
		t.Fatalf("len(Segments) = %d, want 2", len(route.Segments))
	}
	if math.Abs(route.TotalDistanceMeters-200) > 1 {
		t.Errorf("TotalDistanceMeters = %f, want ~200", route.TotalDistanceMeters)
	}
}

func TestBuildSameEdgeShortcut(t *testing.T) {
	net, a, b, _ := buildLine(t)
	prof := carProfile()
	edgeAB, _, _ := findEdge(net, a, b)

	source := resolver.RouterPoint{EdgeID: edgeAB, Offset: 0.1}
	target := resolver.RouterPoint{EdgeID: edgeAB, Offset: 0.3}

	route, err := Build(net, prof, source, target, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(route.Segments) != 1 {
		t.Fatalf("len(Segments) = %d, want 1", len(route.Segments))
	}
	if math.Abs(route.TotalDistanceMeters-20) > 1 {
		t.Errorf("TotalDistanceMeters = %f, want ~20", route.TotalDistanceMeters)
	}
}
