package network

import "testing"

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)
	for i := uint32(0); i < 5; i++ {
		if uf.Find(i) != i {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), i)
		}
	}

	uf.Union(0, 1)
	if uf.Find(0) != uf.Find(1) {
		t.Error("0 and 1 should be in the same set")
	}
	uf.Union(2, 3)
	if uf.Find(0) == uf.Find(2) {
		t.Error("0 and 2 should be in different sets")
	}
	uf.Union(1, 3)
	if uf.Find(0) != uf.Find(3) {
		t.Error("merging via 1/3 should join 0 and 2's sets")
	}
}

// buildTwoComponents is a 5-vertex graph split into a 3-vertex triangle and
// a disconnected 2-vertex edge.
func buildTwoComponents() *Graph {
	lat := map[uint64]float64{1: 1.0, 2: 1.0, 3: 1.0, 10: 5.0, 11: 5.0}
	lon := map[uint64]float64{1: 103.0, 2: 103.1, 3: 103.2, 10: 110.0, 11: 110.1}
	edges := []RawEdge{
		{FromID: 1, ToID: 2, Distance: 100},
		{FromID: 2, ToID: 3, Distance: 100},
		{FromID: 3, ToID: 1, Distance: 100},
		{FromID: 10, ToID: 11, Distance: 50},
	}
	return Build(edges, lat, lon)
}

func TestLargestComponentPicksBiggerGroup(t *testing.T) {
	g := buildTwoComponents()
	largest := LargestComponent(g)
	if len(largest) != 3 {
		t.Fatalf("len(largest) = %d, want 3", len(largest))
	}
}

func TestFilterToComponentDropsTheRest(t *testing.T) {
	g := buildTwoComponents()
	largest := LargestComponent(g)

	filtered, remap := FilterToComponent(g, largest)
	if filtered.NumVertices != 3 {
		t.Fatalf("NumVertices = %d, want 3", filtered.NumVertices)
	}
	if filtered.NumEdges != 3 {
		t.Fatalf("NumEdges = %d, want 3", filtered.NumEdges)
	}
	if len(remap) != 3 {
		t.Fatalf("len(remap) = %d, want 3", len(remap))
	}
	for _, newID := range remap {
		if newID >= filtered.NumVertices {
			t.Errorf("remapped id %d out of range for %d vertices", newID, filtered.NumVertices)
		}
	}
}

func TestLargestComponentEmptyGraph(t *testing.T) {
	g := &Graph{}
	if got := LargestComponent(g); got != nil {
		t.Errorf("LargestComponent(empty) = %v, want nil", got)
	}
}
