package search

import (
	"context"
	"math"
	"testing"

	"github.com/F0rt1s/routing/internal/ch"
)

func TestBidirectionalDijkstraSeededMatchesSingleSource(t *testing.T) {
	net := buildGridNetwork()
	prof := bothWaysProfile()
	adj := ch.NewVertexAdjacency(net, prof)

	v10 := findVertex(t, net, 1.0, 103.0)
	v60 := findVertex(t, net, 1.1, 103.2)

	plain, err := BidirectionalDijkstra(context.Background(), adj, v10, v60)
	if err != nil {
		t.Fatalf("BidirectionalDijkstra: %v", err)
	}

	seeded, err := BidirectionalDijkstraSeeded(context.Background(), adj,
		[]Seed{{Node: v10, Dist: 0}},
		[]Seed{{Node: v60, Dist: 0}},
	)
	if err != nil {
		t.Fatalf("BidirectionalDijkstraSeeded: %v", err)
	}
	if math.Abs(plain.Weight-seeded.Weight) > 1e-6 {
		t.Errorf("seeded weight = %f, want %f", seeded.Weight, plain.Weight)
	}
}

func TestBidirectionalDijkstraSeededWithOffset(t *testing.T) {
	net := buildGridNetwork()
	prof := bothWaysProfile()
	adj := ch.NewVertexAdjacency(net, prof)

	v10 := findVertex(t, net, 1.0, 103.0)
	v20 := findVertex(t, net, 1.0, 103.1)
	v60 := findVertex(t, net, 1.1, 103.2)

	// Seed the 10-20 edge (length 100) as if starting 40 units along it:
	// forward remaining distance to v20 is 60, backward remaining to v10 is 40.
	seeded, err := BidirectionalDijkstraSeeded(context.Background(), adj,
		[]Seed{{Node: v20, Dist: 60}, {Node: v10, Dist: 40}},
		[]Seed{{Node: v60, Dist: 0}},
	)
	if err != nil {
		t.Fatalf("BidirectionalDijkstraSeeded: %v", err)
	}
	// Cheapest completion should prefer departing toward v20 (60) then
	// 20->30->60 (200+400=600) = 660, vs departing toward v10 (40) then
	// 10->40->50->60 (300+500+600=1400) = 1440.
	if math.Abs(seeded.Weight-660) > 1e-6 {
		t.Errorf("seeded weight = %f, want 660", seeded.Weight)
	}
}
