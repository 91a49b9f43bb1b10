// Package search implements the shortest-path kernels the engine chooses
// between (spec §4.2): plain one- and bidirectional Dijkstra over the raw
// network, a restriction-aware Dijkstra for edge-based state, and
// bidirectional searches over a contracted (ch.Graph) overlay, both
// node-based and edge-based.
package search

import "math"

// HeapItem is a priority queue entry: a node id and its tentative distance.
type HeapItem struct {
	Node uint32
	Dist float64
}

// Heap is a concrete-typed binary min-heap, avoiding container/heap's
// interface boxing on the query hot path (teacher's pkg/routing/dijkstra.go
// pattern, generalized from uint32 to float64 distances). Every kernel in
// this package shares this one type; internal/manytomany's settle loops and
// internal/engine's connectivity probe reuse it too rather than hand-rolling
// their own. internal/ch keeps its own queues for contraction: a witness
// search heap and a container/heap node-ordering queue.
type Heap struct {
	items []HeapItem
}

func (h *Heap) Len() int { return len(h.items) }

func (h *Heap) Push(node uint32, dist float64) {
	h.items = append(h.items, HeapItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *Heap) Pop() HeapItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *Heap) PeekDist() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].Dist
}

func (h *Heap) Reset() { h.items = h.items[:0] }

func (h *Heap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// NoNode marks an absent predecessor/node slot in the dense arrays the
// Dijkstra variants in this package index by node or edge-state id.
const NoNode = ^uint32(0)
