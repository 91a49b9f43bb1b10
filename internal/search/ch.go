package search

import (
	"context"
	"math"

	"github.com/F0rt1s/routing/internal/ch"
)

// QueryState holds reusable per-query arrays for ContractedDijkstra, so the
// engine can pool one per profile/worker instead of allocating on every
// request (teacher's pkg/routing/dijkstra.go QueryState, generalized to
// float64 weights and to the abstract ch.Graph overlay which serves both
// the node-based and edge-based hierarchy).
type QueryState struct {
	distFwd, distBwd []float64
	predFwd, predBwd []uint32
	touched          []uint32
	fwdPQ, bwdPQ     Heap
}

// NewQueryState allocates a QueryState sized for a contracted overlay with
// n nodes.
func NewQueryState(n uint32) *QueryState {
	qs := &QueryState{
		distFwd: make([]float64, n),
		distBwd: make([]float64, n),
		predFwd: make([]uint32, n),
		predBwd: make([]uint32, n),
		touched: make([]uint32, 0, 1024),
	}
	for i := range qs.distFwd {
		qs.distFwd[i] = math.Inf(1)
		qs.distBwd[i] = math.Inf(1)
		qs.predFwd[i] = NoNode
		qs.predBwd[i] = NoNode
	}
	return qs
}

// Reset clears only the touched entries, for reuse across pooled queries.
func (qs *QueryState) Reset() {
	for _, n := range qs.touched {
		qs.distFwd[n] = math.Inf(1)
		qs.distBwd[n] = math.Inf(1)
		qs.predFwd[n] = NoNode
		qs.predBwd[n] = NoNode
	}
	qs.touched = qs.touched[:0]
	qs.fwdPQ.Reset()
	qs.bwdPQ.Reset()
}

func (qs *QueryState) touch(node uint32) {
	if math.IsInf(qs.distFwd[node], 1) && math.IsInf(qs.distBwd[node], 1) {
		qs.touched = append(qs.touched, node)
	}
}

// SeedForward adds a forward search seed at node with the given distance
// from the true source (used to seed both endpoints of a snapped edge).
func (qs *QueryState) SeedForward(node uint32, dist float64) {
	qs.touch(node)
	if dist < qs.distFwd[node] {
		qs.distFwd[node] = dist
		qs.fwdPQ.Push(node, dist)
	}
}

// SeedBackward mirrors SeedForward for the backward search.
func (qs *QueryState) SeedBackward(node uint32, dist float64) {
	qs.touch(node)
	if dist < qs.distBwd[node] {
		qs.distBwd[node] = dist
		qs.bwdPQ.Push(node, dist)
	}
}

// ContractedResult is the outcome of a bidirectional search over a
// contracted overlay: the total weight and the unpacked original-node path
// (spec §4.2.4/§4.2.5's shared shape). The meeting node is not returned.
type ContractedResult struct {
	Weight float64
	Path   []uint32
}

// ContractedDijkstra runs bidirectional Dijkstra restricted to rank-
// increasing edges over a ch.Graph overlay (teacher's runCHDijkstra,
// generalized to float64 weights), then unpacks the meeting path's
// shortcuts back to original node pairs. qs must already be seeded via
// SeedForward/SeedBackward for both directions.
func ContractedDijkstra(ctx context.Context, g *ch.Graph, qs *QueryState) (ContractedResult, error) {
	best := math.Inf(1)
	meet := NoNode

	iterations := uint32(0)
	for qs.fwdPQ.Len() > 0 || qs.bwdPQ.Len() > 0 {
		fwdMin := qs.fwdPQ.PeekDist()
		bwdMin := qs.bwdPQ.PeekDist()
		if fwdMin >= best && bwdMin >= best {
			break
		}

		iterations++
		if iterations&255 == 0 && ctx.Err() != nil {
			return ContractedResult{}, ctx.Err()
		}

		if fwdMin < best && qs.fwdPQ.Len() > 0 {
			item := qs.fwdPQ.Pop()
			u, d := item.Node, item.Dist
			if d <= qs.distFwd[u] {
				if qs.distBwd[u] < math.Inf(1) {
					if c := d + qs.distBwd[u]; c < best {
						best = c
						meet = u
					}
				}
				start, end := g.OutEdges(u)
				for e := start; e < end; e++ {
					v := g.FwdHead[e]
					nd := d + g.FwdWeight[e]
					if nd < qs.distFwd[v] {
						qs.touch(v)
						qs.distFwd[v] = nd
						qs.predFwd[v] = u
						qs.fwdPQ.Push(v, nd)
					}
				}
			}
		}

		if qs.bwdPQ.PeekDist() < best && qs.bwdPQ.Len() > 0 {
			item := qs.bwdPQ.Pop()
			u, d := item.Node, item.Dist
			if d <= qs.distBwd[u] {
				if qs.distFwd[u] < math.Inf(1) {
					if c := qs.distFwd[u] + d; c < best {
						best = c
						meet = u
					}
				}
				start, end := g.InEdges(u)
				for e := start; e < end; e++ {
					v := g.BwdHead[e]
					nd := d + g.BwdWeight[e]
					if nd < qs.distBwd[v] {
						qs.touch(v)
						qs.distBwd[v] = nd
						qs.predBwd[v] = u
						qs.bwdPQ.Push(v, nd)
					}
				}
			}
		}
	}

	if meet == NoNode {
		return ContractedResult{}, ErrNoRoute
	}

	overlayPath := reconstructOverlay(meet, qs.predFwd, qs.predBwd)
	origPath := unpackOverlayPath(g, overlayPath)
	return ContractedResult{Weight: best, Path: origPath}, nil
}

// reconstructOverlay builds the full overlay-node path from the forward
// seed through meet to the backward seed (teacher's
// reconstructOverlayPath, unchanged in shape).
func reconstructOverlay(meet uint32, predFwd, predBwd []uint32) []uint32 {
	fwdPath := make([]uint32, 0, 16)
	node := meet
	for {
		fwdPath = append(fwdPath, node)
		p := predFwd[node]
		if p == NoNode {
			break
		}
		node = p
	}
	for i, j := 0, len(fwdPath)-1; i < j; i, j = i+1, j-1 {
		fwdPath[i], fwdPath[j] = fwdPath[j], fwdPath[i]
	}

	node = meet
	for {
		p := predBwd[node]
		if p == NoNode {
			break
		}
		fwdPath = append(fwdPath, p)
		node = p
	}
	return fwdPath
}

// unpackOverlayPath expands every hop of an overlay-node path into its
// original nodes, using each hop's rank ordering to know whether to call
// ExpandForward or ExpandBackward.
func unpackOverlayPath(g *ch.Graph, overlayPath []uint32) []uint32 {
	if len(overlayPath) == 0 {
		return nil
	}
	var out []uint32
	out = append(out, overlayPath[0])

	for i := 0; i+1 < len(overlayPath); i++ {
		u, v := overlayPath[i], overlayPath[i+1]
		var pairs [][2]uint32
		if g.Rank[u] < g.Rank[v] {
			if e := findOutEdge(g, u, v); e != noEdgeSentinel {
				g.ExpandForward(e, &pairs)
			}
		} else {
			// A downward hop u->v is stored as a backward edge at v with head u.
			if e := findInEdge(g, v, u); e != noEdgeSentinel {
				g.ExpandBackward(e, &pairs)
			}
		}
		for _, p := range pairs {
			out = append(out, p[1])
		}
	}
	return out
}

const noEdgeSentinel = ^uint32(0)

func findOutEdge(g *ch.Graph, u, v uint32) uint32 {
	start, end := g.OutEdges(u)
	for e := start; e < end; e++ {
		if g.FwdHead[e] == v {
			return e
		}
	}
	return noEdgeSentinel
}

func findInEdge(g *ch.Graph, u, v uint32) uint32 {
	start, end := g.InEdges(u)
	for e := start; e < end; e++ {
		if g.BwdHead[e] == v {
			return e
		}
	}
	return noEdgeSentinel
}
