package ingest

// RoadClass is a coarse OSM highway classification, shared across every
// vehicle profile; per-profile accessibility and physical one-way-ness are
// folded into the edge profile id alongside it (see ProfileID).
type RoadClass uint8

const (
	ClassMotorway RoadClass = iota
	ClassMotorwayLink
	ClassTrunk
	ClassTrunkLink
	ClassPrimary
	ClassPrimaryLink
	ClassSecondary
	ClassSecondaryLink
	ClassTertiary
	ClassTertiaryLink
	ClassUnclassified
	ClassResidential
	ClassLivingStreet
	ClassService
	ClassTrack
	ClassPath
	ClassFootway
	ClassCycleway
	ClassSteps
	ClassPedestrian
	ClassBridleway
	numClasses
)

var classByHighwayTag = map[string]RoadClass{
	"motorway":       ClassMotorway,
	"motorway_link":  ClassMotorwayLink,
	"trunk":          ClassTrunk,
	"trunk_link":     ClassTrunkLink,
	"primary":        ClassPrimary,
	"primary_link":   ClassPrimaryLink,
	"secondary":      ClassSecondary,
	"secondary_link": ClassSecondaryLink,
	"tertiary":       ClassTertiary,
	"tertiary_link":  ClassTertiaryLink,
	"unclassified":   ClassUnclassified,
	"residential":    ClassResidential,
	"living_street":  ClassLivingStreet,
	"service":        ClassService,
	"track":          ClassTrack,
	"path":           ClassPath,
	"footway":        ClassFootway,
	"cycleway":       ClassCycleway,
	"steps":          ClassSteps,
	"pedestrian":     ClassPedestrian,
	"bridleway":      ClassBridleway,
}

var classNames = map[RoadClass]string{
	ClassMotorway:      "motorway",
	ClassMotorwayLink:  "motorway_link",
	ClassTrunk:         "trunk",
	ClassTrunkLink:     "trunk_link",
	ClassPrimary:       "primary",
	ClassPrimaryLink:   "primary_link",
	ClassSecondary:     "secondary",
	ClassSecondaryLink: "secondary_link",
	ClassTertiary:      "tertiary",
	ClassTertiaryLink:  "tertiary_link",
	ClassUnclassified:  "unclassified",
	ClassResidential:   "residential",
	ClassLivingStreet:  "living_street",
	ClassService:       "service",
	ClassTrack:         "track",
	ClassPath:          "path",
	ClassFootway:       "footway",
	ClassCycleway:      "cycleway",
	ClassSteps:         "steps",
	ClassPedestrian:    "pedestrian",
	ClassBridleway:     "bridleway",
}

func (c RoadClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// Classes returns every recognized road class, for callers building
// profile tables that need to iterate the whole class space (cmd/preprocess).
func Classes() []RoadClass {
	out := make([]RoadClass, 0, int(numClasses))
	for c := RoadClass(0); c < numClasses; c++ {
		out = append(out, c)
	}
	return out
}

// classFromHighway resolves a way's highway tag to a RoadClass, reporting
// false for tag values this importer doesn't route (e.g. "proposed",
// "construction", or no highway tag at all).
func classFromHighway(hw string) (RoadClass, bool) {
	c, ok := classByHighwayTag[hw]
	return c, ok
}

// ProfileID packs a road class and the per-profile traversal bits an edge
// carries into the dense id space internal/profile.VehicleProfile tables
// index by: bit 0 marks an edge stored only in its single legal travel
// direction (the oneway case — see directionFlags), bits 1-3 mark the edge
// as categorically inaccessible to car/bike/foot regardless of speed
// configured for the class. A profile that never calls Set for a given id
// leaves it at the zero value, i.e. not traversable, so a profile doesn't
// need to enumerate every combination — only the ones its own Set calls
// configure away from that default need the blocked bit honored by the
// caller building the table.
func ProfileID(class RoadClass, oneway, carBlocked, bikeBlocked, footBlocked bool) uint16 {
	id := uint16(class) << 4
	if oneway {
		id |= 1
	}
	if carBlocked {
		id |= 2
	}
	if bikeBlocked {
		id |= 4
	}
	if footBlocked {
		id |= 8
	}
	return id
}

// MaxProfileID is the highest edge profile id Parse can emit, for sizing a
// profile.VehicleProfile table (NewVehicleProfile's maxProfileID argument).
func MaxProfileID() uint16 {
	return ProfileID(numClasses-1, true, true, true, true)
}
