package ch

import (
	"container/heap"
	"log"
)

// maxShortcutsPerNode bounds the shortcuts a single contraction can create.
// Nodes exceeding this form an uncontracted "core" at the top of the
// hierarchy, exactly the teacher's strategy for avoiding worst-case blowup
// on pathological graphs.
const maxShortcutsPerNode = 1000

type adjEntry struct {
	to     uint32
	weight float64
	middle int32 // -1 for original edges, else the contracted node id
}

// Contract runs Contraction Hierarchies preprocessing over an abstract
// Adjacency, producing a Graph overlay. Used both for the node-based
// hierarchy (Adjacency = a network.Graph under one profile's weights) and
// the edge-based hierarchy (Adjacency = a line graph over directed edges,
// see edgeadj.go), since the contraction algorithm itself does not care
// what a "node" represents.
func Contract(adj Adjacency) *Graph {
	n := adj.NumNodes()
	if n == 0 {
		return &Graph{}
	}

	outAdj := make([][]adjEntry, n)
	inAdj := make([][]adjEntry, n)
	for u := uint32(0); u < n; u++ {
		adj.ForEachOut(u, func(v uint32, w float64) {
			outAdj[u] = append(outAdj[u], adjEntry{to: v, weight: w, middle: -1})
		})
		adj.ForEachIn(u, func(v uint32, w float64) {
			inAdj[u] = append(inAdj[u], adjEntry{to: v, weight: w, middle: -1})
		})
	}

	contracted := make([]bool, n)
	rank := make([]uint32, n)
	contractedNeighbors := make([]int, n)
	level := make([]int, n)

	pq := make(priorityQueue, n)
	for i := uint32(0); i < n; i++ {
		pq[i] = &pqEntry{
			node:     i,
			priority: computePriority(outAdj, inAdj, i, contracted, 0, 0),
			index:    int(i),
		}
	}
	heap.Init(&pq)

	ws := newWitnessState(n)

	log.Printf("ch: contracting %d nodes", n)

	var totalShortcuts int
	order := uint32(0)
	logInterval := uint32(50000)

	for pq.Len() > 0 {
		entry := heap.Pop(&pq).(*pqEntry)
		node := entry.node

		if contracted[node] {
			continue
		}

		newPriority := computePriority(outAdj, inAdj, node, contracted, contractedNeighbors[node], level[node])
		if newPriority > entry.priority && pq.Len() > 0 && newPriority > pq[0].priority {
			entry.priority = newPriority
			heap.Push(&pq, entry)
			continue
		}

		shortcuts := findShortcuts(ws, outAdj, inAdj, node, contracted)

		if len(shortcuts) > maxShortcutsPerNode {
			log.Printf("ch: stopping contraction at node %d (%d shortcuts > limit %d); %d nodes remain in core",
				node, len(shortcuts), maxShortcutsPerNode, n-order)
			break
		}

		contracted[node] = true
		rank[node] = order
		order++
		totalShortcuts += len(shortcuts)

		for _, sc := range shortcuts {
			outAdj[sc.from] = append(outAdj[sc.from], adjEntry{to: sc.to, weight: sc.weight, middle: int32(node)})
			inAdj[sc.to] = append(inAdj[sc.to], adjEntry{to: sc.from, weight: sc.weight, middle: int32(node)})
		}

		for _, e := range outAdj[node] {
			if !contracted[e.to] {
				contractedNeighbors[e.to]++
				if level[node]+1 > level[e.to] {
					level[e.to] = level[node] + 1
				}
			}
		}
		for _, e := range inAdj[node] {
			if !contracted[e.to] {
				contractedNeighbors[e.to]++
				if level[node]+1 > level[e.to] {
					level[e.to] = level[node] + 1
				}
			}
		}

		remaining := n - order
		switch {
		case remaining < 1000:
			logInterval = 100
		case remaining < 10000:
			logInterval = 1000
		case remaining < 100000:
			logInterval = 10000
		default:
			logInterval = 50000
		}
		if order%logInterval == 0 {
			log.Printf("ch: contracted %d/%d nodes, %d shortcuts so far", order, n, totalShortcuts)
		}
	}

	coreSize := uint32(0)
	for i := uint32(0); i < n; i++ {
		if !contracted[i] {
			contracted[i] = true
			rank[i] = order
			order++
			coreSize++
		}
	}

	log.Printf("ch: contraction complete: %d shortcuts, %d core nodes", totalShortcuts, coreSize)

	return buildOverlay(n, outAdj, inAdj, rank)
}

type shortcut struct {
	from, to uint32
	weight   float64
}

// findShortcuts determines the shortcuts needed when contracting node,
// using one witness-search Dijkstra per incoming neighbor instead of one
// per (incoming, outgoing) pair (teacher's batch witness search), cutting
// search count from O(|in|*|out|) to O(|in|).
func findShortcuts(ws *witnessState, outAdj, inAdj [][]adjEntry, node uint32, contracted []bool) []shortcut {
	var incoming, outgoing []adjEntry
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			incoming = append(incoming, e)
		}
	}
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			outgoing = append(outgoing, e)
		}
	}
	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil
	}

	var shortcuts []shortcut

	for _, in := range incoming {
		var maxOut float64
		for _, out := range outgoing {
			if out.to != in.to && out.weight > maxOut {
				maxOut = out.weight
			}
		}
		if maxOut == 0 {
			continue
		}

		maxWeight := in.weight + maxOut
		batchWitnessSearch(ws, outAdj, in.to, node, maxWeight, contracted)

		for _, out := range outgoing {
			if out.to == in.to {
				continue
			}
			scWeight := in.weight + out.weight
			if ws.dist[out.to] > scWeight {
				shortcuts = append(shortcuts, shortcut{from: in.to, to: out.to, weight: scWeight})
			}
		}
	}

	return shortcuts
}

// computePriority returns a node's contraction priority (lower = first).
func computePriority(outAdj, inAdj [][]adjEntry, node uint32, contracted []bool, contractedNeighbors, level int) int {
	activeIn := 0
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			activeIn++
		}
	}
	activeOut := 0
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			activeOut++
		}
	}
	edgeDifference := activeIn*activeOut - (activeIn + activeOut)
	return edgeDifference + 2*contractedNeighbors + level
}

// buildOverlay builds the forward/backward upward CSR overlay from the
// contracted adjacency lists and node ranks.
func buildOverlay(n uint32, outAdj, inAdj [][]adjEntry, rank []uint32) *Graph {
	type csrEdge struct {
		from, to uint32
		weight   float64
		middle   int32
	}

	var fwdEdges, bwdEdges []csrEdge
	for u := uint32(0); u < n; u++ {
		for _, e := range outAdj[u] {
			if rank[u] < rank[e.to] {
				fwdEdges = append(fwdEdges, csrEdge{from: u, to: e.to, weight: e.weight, middle: e.middle})
			}
		}
		for _, e := range inAdj[u] {
			if rank[u] < rank[e.to] {
				bwdEdges = append(bwdEdges, csrEdge{from: u, to: e.to, weight: e.weight, middle: e.middle})
			}
		}
	}

	log.Printf("ch: overlay has %d forward upward edges, %d backward upward edges", len(fwdEdges), len(bwdEdges))

	build := func(edges []csrEdge) (firstOut, head []uint32, weight []float64, middle []int32) {
		numEdges := uint32(len(edges))
		firstOut = make([]uint32, n+1)
		head = make([]uint32, numEdges)
		weight = make([]float64, numEdges)
		middle = make([]int32, numEdges)

		for _, e := range edges {
			firstOut[e.from+1]++
		}
		for i := uint32(1); i <= n; i++ {
			firstOut[i] += firstOut[i-1]
		}
		pos := append([]uint32(nil), firstOut[:n]...)
		for _, e := range edges {
			idx := pos[e.from]
			head[idx] = e.to
			weight[idx] = e.weight
			middle[idx] = e.middle
			pos[e.from]++
		}
		return
	}

	fwdFirstOut, fwdHead, fwdWeight, fwdMiddle := build(fwdEdges)
	bwdFirstOut, bwdHead, bwdWeight, bwdMiddle := build(bwdEdges)

	return &Graph{
		NumNodes:    n,
		Rank:        rank,
		FwdFirstOut: fwdFirstOut,
		FwdHead:     fwdHead,
		FwdWeight:   fwdWeight,
		FwdMiddle:   fwdMiddle,
		BwdFirstOut: bwdFirstOut,
		BwdHead:     bwdHead,
		BwdWeight:   bwdWeight,
		BwdMiddle:   bwdMiddle,
	}
}

// Priority queue.

type pqEntry struct {
	node     uint32
	priority int
	index    int
}

type priorityQueue []*pqEntry

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	entry := x.(*pqEntry)
	entry.index = len(*pq)
	*pq = append(*pq, entry)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*pq = old[:n-1]
	return entry
}
