package search

import (
	"context"
	"math"

	"github.com/F0rt1s/routing/internal/ch"
)

// Result is a shortest-path query outcome: the total weight and the vertex
// sequence from source to target (inclusive), in the Adjacency's own node
// numbering.
type Result struct {
	Weight float64
	Path   []uint32
}

// PlainDijkstra runs a single-directional Dijkstra from source to target
// over an abstract weighted graph (spec §4.2.1), used for the backward
// variant too by passing an Adjacency whose ForEachOut already walks
// reversed arcs. Context is checked for cancellation every 256 pops,
// matching the teacher's bitmask pattern.
func PlainDijkstra(ctx context.Context, adj ch.Adjacency, source, target uint32) (Result, error) {
	n := adj.NumNodes()
	dist := make([]float64, n)
	pred := make([]uint32, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		pred[i] = NoNode
	}
	dist[source] = 0

	var h Heap
	h.Push(source, 0)

	iterations := uint32(0)
	for h.Len() > 0 {
		iterations++
		if iterations&255 == 0 && ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		cur := h.Pop()
		if cur.Dist > dist[cur.Node] {
			continue
		}
		if cur.Node == target {
			return Result{Weight: cur.Dist, Path: reconstruct(pred, source, target)}, nil
		}

		adj.ForEachOut(cur.Node, func(v uint32, w float64) {
			nd := cur.Dist + w
			if nd < dist[v] {
				dist[v] = nd
				pred[v] = cur.Node
				h.Push(v, nd)
			}
		})
	}

	if dist[target] == math.Inf(1) {
		return Result{}, ErrNoRoute
	}
	return Result{Weight: dist[target], Path: reconstruct(pred, source, target)}, nil
}

// BidirectionalDijkstra runs a classic bidirectional Dijkstra (spec
// §4.2.2): forward search walks ForEachOut from source, backward search
// walks ForEachIn from target (arcs read in reverse), stopping once
// neither queue's minimum is below the best meeting distance found so far.
func BidirectionalDijkstra(ctx context.Context, adj ch.Adjacency, source, target uint32) (Result, error) {
	n := adj.NumNodes()
	distFwd := make([]float64, n)
	distBwd := make([]float64, n)
	predFwd := make([]uint32, n)
	predBwd := make([]uint32, n)
	for i := range distFwd {
		distFwd[i] = math.Inf(1)
		distBwd[i] = math.Inf(1)
		predFwd[i] = NoNode
		predBwd[i] = NoNode
	}
	distFwd[source] = 0
	distBwd[target] = 0

	var fwdPQ, bwdPQ Heap
	fwdPQ.Push(source, 0)
	bwdPQ.Push(target, 0)

	best := math.Inf(1)
	meet := NoNode

	iterations := uint32(0)
	for fwdPQ.Len() > 0 || bwdPQ.Len() > 0 {
		fwdMin := fwdPQ.PeekDist()
		bwdMin := bwdPQ.PeekDist()
		if fwdMin >= best && bwdMin >= best {
			break
		}

		iterations++
		if iterations&255 == 0 && ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		if fwdMin < best && fwdPQ.Len() > 0 {
			cur := fwdPQ.Pop()
			if cur.Dist <= distFwd[cur.Node] {
				if distBwd[cur.Node] < math.Inf(1) {
					if c := cur.Dist + distBwd[cur.Node]; c < best {
						best = c
						meet = cur.Node
					}
				}
				adj.ForEachOut(cur.Node, func(v uint32, w float64) {
					nd := cur.Dist + w
					if nd < distFwd[v] {
						distFwd[v] = nd
						predFwd[v] = cur.Node
						fwdPQ.Push(v, nd)
					}
				})
			}
		}

		if bwdPQ.PeekDist() < best && bwdPQ.Len() > 0 {
			cur := bwdPQ.Pop()
			if cur.Dist <= distBwd[cur.Node] {
				if distFwd[cur.Node] < math.Inf(1) {
					if c := distFwd[cur.Node] + cur.Dist; c < best {
						best = c
						meet = cur.Node
					}
				}
				adj.ForEachIn(cur.Node, func(v uint32, w float64) {
					nd := cur.Dist + w
					if nd < distBwd[v] {
						distBwd[v] = nd
						predBwd[v] = cur.Node
						bwdPQ.Push(v, nd)
					}
				})
			}
		}
	}

	if meet == NoNode {
		return Result{}, ErrNoRoute
	}

	path := reconstruct(predFwd, source, meet)
	node := meet
	for predBwd[node] != NoNode {
		node = predBwd[node]
		path = append(path, node)
	}
	return Result{Weight: best, Path: path}, nil
}

func reconstruct(pred []uint32, source, target uint32) []uint32 {
	var rev []uint32
	node := target
	for {
		rev = append(rev, node)
		if node == source {
			break
		}
		p := pred[node]
		if p == NoNode {
			break
		}
		node = p
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}
