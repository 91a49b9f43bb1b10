package restriction

import "testing"

func TestForbidsExactSequence(t *testing.T) {
	// Forbid A,B,C (vertex ids 1,2,3).
	ix := NewIndex([]Restriction{{Vertices: []uint32{1, 2, 3}}})

	if ix.Empty() {
		t.Fatalf("index should not be empty")
	}
	if ix.MaxLen() != 3 {
		t.Fatalf("MaxLen() = %d, want 3", ix.MaxLen())
	}

	// Trailing [1,2], next 3 -> forbidden.
	if !ix.Forbids([]uint32{1, 2}, 3) {
		t.Errorf("expected A,B,C to be forbidden")
	}
	// Trailing [1,2], next 4 -> allowed (different completion).
	if ix.Forbids([]uint32{1, 2}, 4) {
		t.Errorf("A,B,D should not be forbidden")
	}
	// Trailing [9,2], next 3 -> allowed (wrong start vertex).
	if ix.Forbids([]uint32{9, 2}, 3) {
		t.Errorf("X,B,C should not be forbidden")
	}
}

func TestForbidsRespectsWindowLength(t *testing.T) {
	// Two restrictions of different lengths sharing a first vertex.
	ix := NewIndex([]Restriction{
		{Vertices: []uint32{1, 2}},
		{Vertices: []uint32{1, 5, 6}},
	})

	// Longer trailing buffer than the short restriction needs: only the
	// last 1 vertex should be compared for the length-2 restriction.
	if !ix.Forbids([]uint32{9, 1}, 2) {
		t.Errorf("expected 1,2 (length-2 restriction) to be forbidden")
	}
	if !ix.Forbids([]uint32{9, 1, 5}, 6) {
		t.Errorf("expected 1,5,6 (length-3 restriction) to be forbidden")
	}
}

func TestEmptyIndex(t *testing.T) {
	var ix *Index
	if !ix.Empty() {
		t.Errorf("nil index should report Empty")
	}
	if ix.Forbids([]uint32{1, 2}, 3) {
		t.Errorf("nil index should never forbid")
	}
	if ix.MaxLen() != 0 {
		t.Errorf("nil index MaxLen() = %d, want 0", ix.MaxLen())
	}
}

func TestNewIndexDropsMalformed(t *testing.T) {
	ix := NewIndex([]Restriction{{Vertices: []uint32{1}}})
	if !ix.Empty() {
		t.Errorf("single-vertex restriction should be dropped as malformed")
	}
}
