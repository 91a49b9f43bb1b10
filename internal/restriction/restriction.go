// Package restriction indexes turn restrictions: ordered vertex sequences
// that may not appear contiguously in any computed path.
package restriction

// Restriction is an ordered sequence of vertex ids of length >= 2, meaning
// no path may contain this exact subsequence contiguously.
type Restriction struct {
	Vertices []uint32
}

// Len returns the number of vertices in the restriction.
func (r Restriction) Len() int { return len(r.Vertices) }

// First returns the restriction's first vertex, the key it is indexed by.
func (r Restriction) First() uint32 { return r.Vertices[0] }

// Index indexes restrictions by their first vertex for efficient lookup
// during search, one Index per profile (different profiles may have
// different effective restrictions, e.g. truck-only no-entry turns).
type Index struct {
	byFirst map[uint32][]Restriction
	maxLen  int
}

// NewIndex builds an Index over the given restrictions. Restrictions with
// fewer than 2 vertices are dropped as malformed.
func NewIndex(restrictions []Restriction) *Index {
	ix := &Index{byFirst: make(map[uint32][]Restriction)}
	for _, r := range restrictions {
		if r.Len() < 2 {
			continue
		}
		ix.byFirst[r.First()] = append(ix.byFirst[r.First()], r)
		if r.Len() > ix.maxLen {
			ix.maxLen = r.Len()
		}
	}
	return ix
}

// StartingAt returns the restrictions whose first vertex is v.
func (ix *Index) StartingAt(v uint32) []Restriction {
	if ix == nil {
		return nil
	}
	return ix.byFirst[v]
}

// MaxLen returns the length of the longest restriction indexed, or 0 for an
// empty/nil index. A search kernel's rolling trailing-vertex buffer need
// only be MaxLen-1 entries long (design note §9) to disprove or confirm
// every restriction that could apply.
func (ix *Index) MaxLen() int {
	if ix == nil {
		return 0
	}
	return ix.maxLen
}

// Empty reports whether the index has no restrictions at all, letting
// callers skip the edge-based kernel entirely when a profile has none
// (kernel selection table, spec §4.2.6).
func (ix *Index) Empty() bool {
	return ix == nil || len(ix.byFirst) == 0
}

// Forbids reports whether appending next to trailing (the most recent
// vertices visited, oldest first, already ending at the vertex about to be
// left) would complete a forbidden contiguous subsequence. trailing plus
// next must line up with a restriction exactly, not just share a prefix.
func (ix *Index) Forbids(trailing []uint32, next uint32) bool {
	if ix.Empty() || len(trailing) == 0 {
		return false
	}
	// A restriction of length L needs L-1 vertices from trailing, taken as
	// the suffix ending at the vertex just before next. Try every window
	// length up to what trailing holds; the restriction's first vertex
	// must match the window's first vertex, found by indexing on it.
	maxNeed := len(trailing)
	if m := ix.MaxLen() - 1; m < maxNeed {
		maxNeed = m
	}
	for need := 1; need <= maxNeed; need++ {
		window := trailing[len(trailing)-need:]
		for _, r := range ix.StartingAt(window[0]) {
			if r.Len()-1 != need {
				continue
			}
			matched := true
			for i, v := range window {
				if r.Vertices[i] != v {
					matched = false
					break
				}
			}
			if matched && r.Vertices[len(r.Vertices)-1] == next {
				return true
			}
		}
	}
	return false
}
