package resolver

import (
	"math"
	"testing"

	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
)

func buildLine() *network.Graph {
	lat := map[uint64]float64{1: 1.000, 2: 1.001}
	lon := map[uint64]float64{1: 103.000, 2: 103.000}
	edges := []network.RawEdge{
		{FromID: 1, ToID: 2, Distance: 111.0, ProfileID: 0},
	}
	return network.Build(edges, lat, lon)
}

func stoppableProfile() *profile.VehicleProfile {
	p := profile.NewVehicleProfile("car", 0)
	p.Set(0, 50, profile.DirectionBoth, true)
	return p
}

func TestResolveSnapsToNearestEdge(t *testing.T) {
	net := buildLine()
	prof := stoppableProfile()
	r := New(net)

	rp, err := r.Resolve(1.0005, 103.0001, prof)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rp.Offset < 0.3 || rp.Offset > 0.7 {
		t.Errorf("Offset = %f, want roughly 0.5 (midpoint)", rp.Offset)
	}
	if rp.DistanceMeters < 0 {
		t.Errorf("DistanceMeters = %f, want >= 0", rp.DistanceMeters)
	}
}

func TestResolveTooFar(t *testing.T) {
	net := buildLine()
	prof := stoppableProfile()
	r := New(net)

	_, err := r.Resolve(10.0, 110.0, prof)
	if err != ErrResolveFailed {
		t.Errorf("err = %v, want ErrResolveFailed", err)
	}
}

func TestResolveRejectsNonStoppableProfile(t *testing.T) {
	net := buildLine()
	prof := profile.NewVehicleProfile("no-stop", 0)
	prof.Set(0, 50, profile.DirectionBoth, false) // traversable but not stoppable
	r := New(net)

	_, err := r.Resolve(1.0005, 103.0001, prof)
	if err != ErrResolveFailed {
		t.Errorf("err = %v, want ErrResolveFailed", err)
	}
}

func TestEdgeBoundsCoversEndpoints(t *testing.T) {
	net := buildLine()
	minLat, minLon, maxLat, maxLon := edgeBounds(net, 0)
	if minLat > 1.000 || maxLat < 1.001 {
		t.Errorf("lat bounds [%f,%f] don't cover [1.000,1.001]", minLat, maxLat)
	}
	if math.Abs(minLon-103.0) > 1e-9 || math.Abs(maxLon-103.0) > 1e-9 {
		t.Errorf("lon bounds [%f,%f], want both 103.0", minLon, maxLon)
	}
}
