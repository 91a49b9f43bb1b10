package search

import (
	"context"
	"math"

	"github.com/F0rt1s/routing/internal/ch"
)

// Seed is a weighted search start: a node plus the distance already
// travelled to reach it (teacher's seedForward/seedBackward push both
// endpoints of a snapped edge with their respective remaining distances,
// rather than starting from a single vertex).
type Seed struct {
	Node uint32
	Dist float64
}

// BidirectionalDijkstraSeeded is BidirectionalDijkstra generalized to start
// from multiple weighted seeds per direction instead of a single source and
// target vertex, so a query whose endpoints sit mid-edge can seed both of
// that edge's endpoints with the correct remaining distance (teacher's
// pkg/routing/engine.go seedForward/seedBackward).
func BidirectionalDijkstraSeeded(ctx context.Context, adj ch.Adjacency, fwdSeeds, bwdSeeds []Seed) (Result, error) {
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

	var fwdPQ, bwdPQ Heap
	for _, s := range fwdSeeds {
		if s.Dist < distFwd[s.Node] {
			distFwd[s.Node] = s.Dist
			fwdPQ.Push(s.Node, s.Dist)
		}
	}
	for _, s := range bwdSeeds {
		if s.Dist < distBwd[s.Node] {
			distBwd[s.Node] = s.Dist
			bwdPQ.Push(s.Node, s.Dist)
		}
	}

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

	path := reconstructFromSeed(predFwd, meet)
	node := meet
	for predBwd[node] != NoNode {
		node = predBwd[node]
		path = append(path, node)
	}
	return Result{Weight: best, Path: path}, nil
}

// reconstructFromSeed walks predFwd back from meet until it hits a node with
// no recorded predecessor — one of the original seed nodes — then reverses.
func reconstructFromSeed(pred []uint32, meet uint32) []uint32 {
	var rev []uint32
	node := meet
	for {
		rev = append(rev, node)
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
