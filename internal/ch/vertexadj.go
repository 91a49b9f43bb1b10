package ch

import (
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
)

// VertexAdjacency adapts a network.Graph plus a single profile's factor
// function into the Adjacency Contract consumes, for the node-based
// hierarchy (spec §4.2.4): nodes are original graph vertices, weight is
// distance*factor, and direction flags gate which way an edge may be
// walked.
type VertexAdjacency struct {
	net  *network.Graph
	prof profile.Profile
}

// NewVertexAdjacency builds the adapter. prof is typically a
// profile.Cache for query-time speed, but any Profile works.
func NewVertexAdjacency(net *network.Graph, prof profile.Profile) *VertexAdjacency {
	return &VertexAdjacency{net: net, prof: prof}
}

func (a *VertexAdjacency) NumNodes() uint32 { return a.net.NumVertices }

func (a *VertexAdjacency) ForEachOut(u uint32, f func(v uint32, weight float64)) {
	start, end := a.net.EdgesFrom(u)
	for i := start; i < end; i++ {
		e := a.net.FwdEdge[i]
		factor, dir := a.prof.Factor(a.net.ProfileID[e])
		if factor == 0 || !dir.Forward() {
			continue
		}
		f(a.net.EdgeTo[e], a.net.Distance[e]*factor)
	}

	start, end = a.net.EdgesTo(u)
	for i := start; i < end; i++ {
		e := a.net.BwdEdge[i]
		factor, dir := a.prof.Factor(a.net.ProfileID[e])
		if factor == 0 || !dir.Backward() {
			continue
		}
		f(a.net.EdgeFrom[e], a.net.Distance[e]*factor)
	}
}

func (a *VertexAdjacency) ForEachIn(u uint32, f func(v uint32, weight float64)) {
	start, end := a.net.EdgesTo(u)
	for i := start; i < end; i++ {
		e := a.net.BwdEdge[i]
		factor, dir := a.prof.Factor(a.net.ProfileID[e])
		if factor == 0 || !dir.Forward() {
			continue
		}
		f(a.net.EdgeFrom[e], a.net.Distance[e]*factor)
	}

	start, end = a.net.EdgesFrom(u)
	for i := start; i < end; i++ {
		e := a.net.FwdEdge[i]
		factor, dir := a.prof.Factor(a.net.ProfileID[e])
		if factor == 0 || !dir.Backward() {
			continue
		}
		f(a.net.EdgeTo[e], a.net.Distance[e]*factor)
	}
}
