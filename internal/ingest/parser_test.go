package ingest

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestClassFromHighway(t *testing.T) {
	tests := []struct {
		hw      string
		want    RoadClass
		wantOk  bool
	}{
		{"residential", ClassResidential, true},
		{"motorway", ClassMotorway, true},
		{"footway", ClassFootway, true},
		{"cycleway", ClassCycleway, true},
		{"proposed", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := classFromHighway(tt.hw)
		if ok != tt.wantOk {
			t.Errorf("classFromHighway(%q) ok = %v, want %v", tt.hw, ok, tt.wantOk)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("classFromHighway(%q) = %v, want %v", tt.hw, got, tt.want)
		}
	}
}

func TestDirectionFlags(t *testing.T) {
	tests := []struct {
		name         string
		class        RoadClass
		tags         osm.Tags
		wantForward  bool
		wantBackward bool
	}{
		{"default bidirectional", ClassResidential, nil, true, true},
		{"motorway implied oneway", ClassMotorway, nil, true, false},
		{
			"roundabout implied oneway", ClassResidential,
			osm.Tags{{Key: "junction", Value: "roundabout"}},
			true, false,
		},
		{
			"explicit oneway=yes", ClassPrimary,
			osm.Tags{{Key: "oneway", Value: "yes"}},
			true, false,
		},
		{
			"explicit oneway=-1", ClassPrimary,
			osm.Tags{{Key: "oneway", Value: "-1"}},
			false, true,
		},
		{
			"oneway=no overrides implied", ClassMotorway,
			osm.Tags{{Key: "oneway", Value: "no"}},
			true, true,
		},
		{
			"oneway=reversible skips entirely", ClassPrimary,
			osm.Tags{{Key: "oneway", Value: "reversible"}},
			false, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, bwd := directionFlags(tt.class, tt.tags)
			if fwd != tt.wantForward || bwd != tt.wantBackward {
				t.Errorf("directionFlags() = (%v, %v), want (%v, %v)", fwd, bwd, tt.wantForward, tt.wantBackward)
			}
		})
	}
}

func TestCarBlocked(t *testing.T) {
	if carBlocked(ClassFootway, nil) != true {
		t.Errorf("footway should be car blocked")
	}
	if carBlocked(ClassResidential, nil) != false {
		t.Errorf("plain residential should not be car blocked")
	}
	if !carBlocked(ClassResidential, osm.Tags{{Key: "access", Value: "private"}}) {
		t.Errorf("access=private should be car blocked")
	}
	if !carBlocked(ClassService, osm.Tags{{Key: "motor_vehicle", Value: "no"}}) {
		t.Errorf("motor_vehicle=no should be car blocked")
	}
}

func TestBikeAndFootBlocked(t *testing.T) {
	if !bikeBlocked(ClassMotorway, nil) {
		t.Errorf("motorway should be bike blocked")
	}
	if bikeBlocked(ClassResidential, nil) {
		t.Errorf("residential should not be bike blocked by default")
	}
	if !bikeBlocked(ClassResidential, osm.Tags{{Key: "bicycle", Value: "no"}}) {
		t.Errorf("bicycle=no should be bike blocked")
	}
	if !footBlocked(ClassMotorway, nil) {
		t.Errorf("motorway should be foot blocked")
	}
	if footBlocked(ClassResidential, nil) {
		t.Errorf("residential should not be foot blocked by default")
	}
}

func TestProfileIDRoundTripsDistinctCombinations(t *testing.T) {
	a := ProfileID(ClassResidential, false, false, false, false)
	b := ProfileID(ClassResidential, true, false, false, false)
	c := ProfileID(ClassMotorway, false, false, false, false)
	d := ProfileID(ClassResidential, false, true, false, false)
	if a == b || a == c || a == d || b == c || b == d || c == d {
		t.Errorf("expected distinct profile ids, got a=%d b=%d c=%d d=%d", a, b, c, d)
	}
	if max := MaxProfileID(); a > max || b > max || c > max || d > max {
		t.Errorf("MaxProfileID() = %d smaller than an emitted id", max)
	}
}

func TestBuildEdgesSingleEdgePerBidirectionalSegment(t *testing.T) {
	ways := []routableWay{
		{
			NodeIDs: []osm.NodeID{1, 2},
			Class:   ClassResidential,
			Forward: true, Backward: true,
		},
	}
	nodeLat := map[uint64]float64{1: 1.0, 2: 1.001}
	nodeLon := map[uint64]float64{1: 103.0, 2: 103.0}

	edges, meta, skipped, filtered := buildEdges(ways, nodeLat, nodeLon, BBox{}, false)
	if len(edges) != 1 {
		t.Fatalf("len(edges) = %d, want 1 (single stored edge covers both directions via profile Direction)", len(edges))
	}
	if skipped != 0 || filtered != 0 {
		t.Errorf("skipped=%d filtered=%d, want 0,0", skipped, filtered)
	}
	if edges[0].DataInverted {
		t.Errorf("bidirectional edge should not be marked DataInverted")
	}
	if len(meta) != 1 {
		t.Fatalf("len(meta) = %d, want 1 (only the empty-attribute entry)", len(meta))
	}
}

func TestBuildEdgesObeysOnewayReverse(t *testing.T) {
	ways := []routableWay{
		{
			NodeIDs: []osm.NodeID{1, 2},
			Class:   ClassPrimary,
			Forward: false, Backward: true,
		},
	}
	nodeLat := map[uint64]float64{1: 1.0, 2: 1.001}
	nodeLon := map[uint64]float64{1: 103.0, 2: 103.0}

	edges, _, _, _ := buildEdges(ways, nodeLat, nodeLon, BBox{}, false)
	if len(edges) != 1 {
		t.Fatalf("len(edges) = %d, want 1", len(edges))
	}
	e := edges[0]
	if e.FromID != 2 || e.ToID != 1 {
		t.Errorf("oneway=-1 edge stored as (%d,%d), want (2,1) — oriented in its legal travel direction", e.FromID, e.ToID)
	}
	if !e.DataInverted {
		t.Errorf("reverse-oneway edge should be marked DataInverted")
	}
}

func TestBuildEdgesSkipsMissingCoordinates(t *testing.T) {
	ways := []routableWay{
		{NodeIDs: []osm.NodeID{1, 2}, Class: ClassResidential, Forward: true, Backward: true},
	}
	edges, _, skipped, _ := buildEdges(ways, map[uint64]float64{}, map[uint64]float64{}, BBox{}, false)
	if len(edges) != 0 || skipped != 1 {
		t.Errorf("edges=%d skipped=%d, want 0,1", len(edges), skipped)
	}
}

func TestParseRestrictionRelation(t *testing.T) {
	rel := &osm.Relation{
		Tags: osm.Tags{
			{Key: "type", Value: "restriction"},
			{Key: "restriction", Value: "no_left_turn"},
		},
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 100, Role: "from"},
			{Type: osm.TypeNode, Ref: 5, Role: "via"},
			{Type: osm.TypeWay, Role: "to", Ref: 200},
		},
	}
	r, ok := parseRestrictionRelation(rel)
	if !ok {
		t.Fatal("parseRestrictionRelation() ok = false, want true")
	}
	if r.fromWay != 100 || r.toWay != 200 || r.viaNode != 5 {
		t.Errorf("parsed relation = %+v, want fromWay=100 viaNode=5 toWay=200", r)
	}
}

func TestParseRestrictionRelationIgnoresOnlyKind(t *testing.T) {
	rel := &osm.Relation{
		Tags: osm.Tags{
			{Key: "type", Value: "restriction"},
			{Key: "restriction", Value: "only_straight_on"},
		},
	}
	if _, ok := parseRestrictionRelation(rel); ok {
		t.Errorf("only_straight_on should not parse as a negative restriction")
	}
}

func TestResolveRelationsFindsEndpointNeighbors(t *testing.T) {
	wayNodeIDs := map[osm.WayID][]osm.NodeID{
		100: {1, 2, 5},   // via (5) is the last node of the from-way
		200: {5, 8, 9},   // via (5) is the first node of the to-way
	}
	pending := []pendingRestriction{{fromWay: 100, viaNode: 5, toWay: 200}}

	got := resolveRelations(pending, wayNodeIDs)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	want := []uint64{2, 5, 8}
	for i, v := range want {
		if got[0].NodeIDs[i] != v {
			t.Errorf("NodeIDs = %v, want %v", got[0].NodeIDs, want)
			break
		}
	}
}

func TestResolveRelationsDropsInteriorVia(t *testing.T) {
	wayNodeIDs := map[osm.WayID][]osm.NodeID{
		100: {1, 2, 5},
		200: {6, 5, 9}, // via is in the middle of the to-way, not an endpoint
	}
	pending := []pendingRestriction{{fromWay: 100, viaNode: 5, toWay: 200}}

	got := resolveRelations(pending, wayNodeIDs)
	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0 (interior via is unsupported)", len(got))
	}
}

func TestResolveRestrictionsDropsUnmappedNodes(t *testing.T) {
	p := &ParseResult{
		Restrictions: []RawRestriction{
			{NodeIDs: []uint64{1, 2, 3}},
			{NodeIDs: []uint64{1, 2, 999}}, // 999 never made it into the graph
		},
	}
	idMap := map[uint64]uint32{1: 10, 2: 20, 3: 30}
	got := p.ResolveRestrictions(idMap)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	want := []uint32{10, 20, 30}
	for i, v := range want {
		if got[0].Vertices[i] != v {
			t.Errorf("Vertices = %v, want %v", got[0].Vertices, want)
			break
		}
	}
}
