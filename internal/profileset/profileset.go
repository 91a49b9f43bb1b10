// Package profileset defines the car/bike/foot VehicleProfile tables shared
// between cmd/preprocess (which contracts a CH overlay per profile) and
// cmd/server (which must rebuild the identical factor/direction rules at
// load time, since only the contracted overlays are persisted to the
// binary snapshot, not the rules that produced them).
package profileset

import "github.com/F0rt1s/routing/internal/ingest"
import "github.com/F0rt1s/routing/internal/profile"

// carSpeedKPH, bikeSpeedKPH and footSpeedKPH are the free-flow speeds each
// profile assumes per road class. A class
// absent from a table (e.g. motorway for foot) is simply never Set and
// stays not-traversable.
var carSpeedKPH = map[ingest.RoadClass]float64{
	ingest.ClassMotorway:      100,
	ingest.ClassMotorwayLink:  60,
	ingest.ClassTrunk:         80,
	ingest.ClassTrunkLink:     50,
	ingest.ClassPrimary:       60,
	ingest.ClassPrimaryLink:   40,
	ingest.ClassSecondary:     50,
	ingest.ClassSecondaryLink: 35,
	ingest.ClassTertiary:      40,
	ingest.ClassTertiaryLink:  30,
	ingest.ClassUnclassified:  30,
	ingest.ClassResidential:   25,
	ingest.ClassLivingStreet:  15,
	ingest.ClassService:       15,
	ingest.ClassTrack:         15,
}

var bikeSpeedKPH = map[ingest.RoadClass]float64{
	ingest.ClassTrunk:         18,
	ingest.ClassTrunkLink:     18,
	ingest.ClassPrimary:       18,
	ingest.ClassPrimaryLink:   18,
	ingest.ClassSecondary:     18,
	ingest.ClassSecondaryLink: 18,
	ingest.ClassTertiary:      18,
	ingest.ClassTertiaryLink:  18,
	ingest.ClassUnclassified:  16,
	ingest.ClassResidential:   16,
	ingest.ClassLivingStreet:  14,
	ingest.ClassService:       14,
	ingest.ClassTrack:         12,
	ingest.ClassPath:          12,
	ingest.ClassCycleway:      20,
	ingest.ClassBridleway:     10,
}

var footSpeedKPH = map[ingest.RoadClass]float64{
	ingest.ClassPrimary:      4.5,
	ingest.ClassSecondary:    4.5,
	ingest.ClassTertiary:     4.5,
	ingest.ClassUnclassified: 4.5,
	ingest.ClassResidential:  4.5,
	ingest.ClassLivingStreet: 4.5,
	ingest.ClassService:      4.5,
	ingest.ClassTrack:        4,
	ingest.ClassPath:         4,
	ingest.ClassFootway:      5,
	ingest.ClassSteps:        2,
	ingest.ClassPedestrian:   4.5,
	ingest.ClassBridleway:    4,
}

// Build constructs the car/bike/foot VehicleProfile tables over every edge
// profile id ingest.Parse can emit, by re-deriving each id from its (class,
// oneway, blocked-bits) components the same way ingest.ProfileID packs
// them.
func Build() []*profile.VehicleProfile {
	car := profile.NewVehicleProfile("car", ingest.MaxProfileID())
	bike := profile.NewVehicleProfile("bike", ingest.MaxProfileID())
	foot := profile.NewVehicleProfile("foot", ingest.MaxProfileID())

	for _, class := range ingest.Classes() {
		for _, oneway := range [2]bool{false, true} {
			for _, carBlocked := range [2]bool{false, true} {
				for _, bikeBlocked := range [2]bool{false, true} {
					for _, footBlocked := range [2]bool{false, true} {
						id := ingest.ProfileID(class, oneway, carBlocked, bikeBlocked, footBlocked)
						dir := profile.DirectionBoth
						if oneway {
							dir = profile.DirectionForward
						}

						if !carBlocked {
							if speed, ok := carSpeedKPH[class]; ok {
								car.Set(id, speed, dir, true)
							}
						}
						if !bikeBlocked {
							if speed, ok := bikeSpeedKPH[class]; ok {
								bike.Set(id, speed, dir, true)
							}
						}
						if !footBlocked {
							// Walking has no directionality: foot traffic
							// ignores a oneway tag meant for vehicles.
							if speed, ok := footSpeedKPH[class]; ok {
								foot.Set(id, speed, profile.DirectionBoth, true)
							}
						}
					}
				}
			}
		}
	}

	return []*profile.VehicleProfile{car, bike, foot}
}

// Names lists every profile Build produces, in the same order.
func Names() []string {
	return []string{"car", "bike", "foot"}
}
