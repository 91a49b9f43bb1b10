// Package ingest parses OSM PBF extracts into internal/network's raw edge
// form, plus the turn restrictions and road-attribute metadata a
// multi-profile routing engine needs. Generalized from the teacher's
// single-profile car-only pkg/osm: every way is now tagged with a road
// class shared across profiles (see ProfileID) instead of assuming "car"
// universally, and restriction relations are resolved into vertex
// sequences alongside the edges.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/F0rt1s/routing/internal/geo"
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/restriction"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
)

// EdgeMeta is one entry of the attribute dictionary network.RawEdge.MetaID
// indexes into: the road name/reference a UI or route summary would show,
// kept out of the hot per-edge arrays since most edges share the same
// (often empty) attributes.
type EdgeMeta struct {
	Name string
	Ref  string
}

// RawRestriction is a turn restriction still expressed in external OSM
// node ids, awaiting translation into the dense vertex ids Build assigns.
type RawRestriction struct {
	NodeIDs []uint64 // [in, via, out], via is the shared intersection node
}

// ParseResult holds the output of parsing an OSM PBF extract.
type ParseResult struct {
	Edges        []network.RawEdge
	VertexLat    map[uint64]float64
	VertexLon    map[uint64]float64
	Restrictions []RawRestriction
	Meta         []EdgeMeta // index by network.RawEdge.MetaID
}

// ResolveRestrictions translates every RawRestriction's external node ids
// through idMap (as returned by network.BuildWithIDs) into a
// restriction.Restriction. A restriction referencing a node id Build
// never assigned (disconnected from the routable graph) is dropped.
func (p *ParseResult) ResolveRestrictions(idMap map[uint64]uint32) []restriction.Restriction {
	out := make([]restriction.Restriction, 0, len(p.Restrictions))
	for _, r := range p.Restrictions {
		verts := make([]uint32, 0, len(r.NodeIDs))
		ok := true
		for _, id := range r.NodeIDs {
			v, found := idMap[id]
			if !found {
				ok = false
				break
			}
			verts = append(verts, v)
		}
		if ok {
			out = append(out, restriction.Restriction{Vertices: verts})
		}
	}
	return out
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, filter edges to this bounding box
}

// directionFlags returns (forward, backward) based on highway type and
// oneway tags. forward/backward both false means the way is time-dependent
// (oneway=reversible) and should be skipped entirely.
func directionFlags(class RoadClass, tags osm.Tags) (forward, backward bool) {
	forward = true
	backward = true

	if class == ClassMotorway || class == ClassMotorwayLink || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		forward, backward = false, false
	}

	return forward, backward
}

func carBlocked(class RoadClass, tags osm.Tags) bool {
	switch class {
	case ClassFootway, ClassCycleway, ClassSteps, ClassPedestrian, ClassBridleway, ClassPath, ClassTrack:
		return true
	}
	if tags.Find("area") == "yes" {
		return true
	}
	switch tags.Find("access") {
	case "no", "private":
		return true
	}
	return tags.Find("motor_vehicle") == "no"
}

func bikeBlocked(class RoadClass, tags osm.Tags) bool {
	if tags.Find("bicycle") == "no" {
		return true
	}
	switch class {
	case ClassMotorway, ClassMotorwayLink, ClassSteps:
		return true
	}
	return false
}

func footBlocked(class RoadClass, tags osm.Tags) bool {
	if tags.Find("foot") == "no" {
		return true
	}
	switch class {
	case ClassMotorway, ClassMotorwayLink, ClassTrunk, ClassTrunkLink, ClassCycleway:
		return true
	}
	return false
}

// routableWay is the subset of a way's data retained after pass 1 that
// edges are built from.
type routableWay struct {
	NodeIDs                              []osm.NodeID
	Class                                RoadClass
	Forward, Backward                    bool
	CarBlocked, BikeBlocked, FootBlocked bool
	Name, Ref                            string
}

// pendingRestriction is a type=restriction relation not yet resolved to
// node ids, collected during pass 1.
type pendingRestriction struct {
	fromWay osm.WayID
	viaNode osm.NodeID
	toWay   osm.WayID
}

// Parse reads an OSM PBF file and returns multi-profile routable edges,
// turn restrictions and road metadata. The reader is consumed twice (seeks
// back to start for the node pass), so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: ways (routable + the full node-id list every way needs, for
	// resolving restriction from/to references) and restriction relations.
	referencedNodes := make(map[osm.NodeID]struct{})
	wayNodeIDs := make(map[osm.WayID][]osm.NodeID)
	var ways []routableWay
	var pending []pendingRestriction

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true

	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Way:
			wayNodeIDs[obj.ID] = nodeIDsOf(obj)

			class, ok := classFromHighway(obj.Tags.Find("highway"))
			if !ok {
				continue
			}
			if len(obj.Nodes) < 2 {
				continue
			}
			fwd, bwd := directionFlags(class, obj.Tags)
			if !fwd && !bwd {
				continue
			}

			for _, wn := range obj.Nodes {
				referencedNodes[wn.ID] = struct{}{}
			}

			ways = append(ways, routableWay{
				NodeIDs:     wayNodeIDs[obj.ID],
				Class:       class,
				Forward:     fwd,
				Backward:    bwd,
				CarBlocked:  carBlocked(class, obj.Tags),
				BikeBlocked: bikeBlocked(class, obj.Tags),
				FootBlocked: footBlocked(class, obj.Tags),
				Name:        obj.Tags.Find("name"),
				Ref:         obj.Tags.Find("ref"),
			})
		case *osm.Relation:
			if r, ok := parseRestrictionRelation(obj); ok {
				pending = append(pending, r)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways/relations): %w", err)
	}
	scanner.Close()

	log.Printf("ingest: pass 1 complete: %d routable ways, %d restriction relations, %d referenced nodes",
		len(ways), len(pending), len(referencedNodes))

	// Pass 2: node coordinates, for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[uint64]float64, len(referencedNodes))
	nodeLon := make(map[uint64]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[uint64(n.ID)] = n.Lat
		nodeLon[uint64(n.ID)] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("ingest: pass 2 complete: %d node coordinates collected", len(nodeLat))

	edges, meta, skipped, bboxFiltered := buildEdges(ways, nodeLat, nodeLon, opt.BBox, useBBox)
	if skipped > 0 {
		log.Printf("ingest: skipped %d edges due to missing node coordinates", skipped)
	}
	if bboxFiltered > 0 {
		log.Printf("ingest: filtered %d edges outside bounding box", bboxFiltered)
	}
	log.Printf("ingest: built %d directed edges", len(edges))

	restrictions := resolveRelations(pending, wayNodeIDs)
	log.Printf("ingest: resolved %d of %d restriction relations", len(restrictions), len(pending))

	return &ParseResult{
		Edges:        edges,
		VertexLat:    nodeLat,
		VertexLon:    nodeLon,
		Restrictions: restrictions,
		Meta:         meta,
	}, nil
}

func nodeIDsOf(w *osm.Way) []osm.NodeID {
	ids := make([]osm.NodeID, len(w.Nodes))
	for i, wn := range w.Nodes {
		ids[i] = wn.ID
	}
	return ids
}

// buildEdges turns each way's consecutive node pairs into directed edges,
// one graph vertex per OSM node along the way (no shape-point merging of
// pass-through vertices, matching the teacher's own per-segment approach).
func buildEdges(ways []routableWay, nodeLat, nodeLon map[uint64]float64, bbox BBox, useBBox bool) (edges []network.RawEdge, meta []EdgeMeta, skipped, bboxFiltered int) {
	metaIndex := map[EdgeMeta]uint32{}
	internMeta := func(m EdgeMeta) uint32 {
		if id, ok := metaIndex[m]; ok {
			return id
		}
		id := uint32(len(meta))
		metaIndex[m] = id
		meta = append(meta, m)
		return id
	}
	// Reserve id 0 for the common empty-attribute case.
	internMeta(EdgeMeta{})

	for _, w := range ways {
		metaID := internMeta(EdgeMeta{Name: w.Name, Ref: w.Ref})

		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := uint64(w.NodeIDs[i])
			toID := uint64(w.NodeIDs[i+1])

			fromLat, fromOk := nodeLat[fromID]
			fromLon := nodeLon[fromID]
			toLat, toOk := nodeLat[toID]
			toLon := nodeLon[toID]
			if !fromOk || !toOk {
				skipped++
				continue
			}

			if useBBox && (!bbox.Contains(fromLat, fromLon) || !bbox.Contains(toLat, toLon)) {
				bboxFiltered++
				continue
			}

			dist := geo.Haversine(fromLat, fromLon, toLat, toLon)
			if dist <= 0 {
				dist = 0.1
			}

			// A bidirectional way needs just one stored edge: the profile's
			// Direction (gated by the oneway bit below) lets the forward and
			// backward CSR both walk it. A oneway way still needs just one,
			// oriented in its legal travel direction — reversed relative to
			// the way's own node order for oneway=-1, hence DataInverted.
			oneway := w.Forward != w.Backward
			profileID := ProfileID(w.Class, oneway, w.CarBlocked, w.BikeBlocked, w.FootBlocked)

			storedFrom, storedTo, inverted := fromID, toID, false
			if oneway && !w.Forward {
				storedFrom, storedTo, inverted = toID, fromID, true
			}

			edges = append(edges, network.RawEdge{
				FromID: storedFrom, ToID: storedTo, Distance: dist,
				ProfileID: profileID, MetaID: metaID, DataInverted: inverted,
			})
		}
	}
	return edges, meta, skipped, bboxFiltered
}

// parseRestrictionRelation extracts a from/via(node)/to triple from a
// type=restriction relation. Only the "no_*" (negative) restriction kinds
// are representable as a single forbidden subsequence; "only_*" (mandatory
// turn) relations would require forbidding every alternative and are left
// unhandled.
func parseRestrictionRelation(rel *osm.Relation) (pendingRestriction, bool) {
	if rel.Tags.Find("type") != "restriction" {
		return pendingRestriction{}, false
	}
	kind := rel.Tags.Find("restriction")
	if !strings.HasPrefix(kind, "no_") {
		return pendingRestriction{}, false
	}

	var r pendingRestriction
	var haveFrom, haveVia, haveTo bool
	for _, m := range rel.Members {
		switch m.Role {
		case "from":
			if m.Type == osm.TypeWay {
				r.fromWay = osm.WayID(m.Ref)
				haveFrom = true
			}
		case "via":
			if m.Type == osm.TypeNode {
				r.viaNode = osm.NodeID(m.Ref)
				haveVia = true
			}
		case "to":
			if m.Type == osm.TypeWay {
				r.toWay = osm.WayID(m.Ref)
				haveTo = true
			}
		}
	}
	if !haveFrom || !haveVia || !haveTo {
		return pendingRestriction{}, false
	}
	return r, true
}

// resolveRelations turns each pendingRestriction into a 3-node [in, via,
// out] RawRestriction by finding, on the from/to ways, the neighbor node
// adjacent to the via node. Handles the overwhelmingly common case where
// via sits at an endpoint of both ways; relations where it doesn't
// (via-way restrictions, or via in the interior of a way) are dropped.
func resolveRelations(pending []pendingRestriction, wayNodeIDs map[osm.WayID][]osm.NodeID) []RawRestriction {
	out := make([]RawRestriction, 0, len(pending))
	for _, p := range pending {
		in, ok := neighborOfEndpoint(wayNodeIDs[p.fromWay], p.viaNode)
		if !ok {
			continue
		}
		out2, ok := neighborOfEndpoint(wayNodeIDs[p.toWay], p.viaNode)
		if !ok {
			continue
		}
		out = append(out, RawRestriction{NodeIDs: []uint64{uint64(in), uint64(p.viaNode), uint64(out2)}})
	}
	return out
}

// neighborOfEndpoint returns the node adjacent to via when via is the
// first or last node of nodeIDs.
func neighborOfEndpoint(nodeIDs []osm.NodeID, via osm.NodeID) (osm.NodeID, bool) {
	n := len(nodeIDs)
	if n < 2 {
		return 0, false
	}
	if nodeIDs[0] == via {
		return nodeIDs[1], true
	}
	if nodeIDs[n-1] == via {
		return nodeIDs[n-2], true
	}
	return 0, false
}
