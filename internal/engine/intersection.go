package engine

import "github.com/F0rt1s/routing/internal/profile"

// intersectionProfile combines several named profiles into one for the
// multi-profile resolve operation (spec §6 try_resolve(profiles, ...)):
// an edge is acceptable only when every constituent profile allows
// traversing and, if required, stopping on it. Factor returns the largest
// (most conservative) per-meter cost among the constituents, since a
// multi-profile resolve has to pick a point usable by all of them, not
// fastest for any one.
type intersectionProfile struct {
	profiles []profile.Profile
}

func newIntersectionProfile(profiles []profile.Profile) intersectionProfile {
	return intersectionProfile{profiles: profiles}
}

func (p intersectionProfile) Name() string { return "intersection" }

func (p intersectionProfile) Factor(edgeProfileID uint16) (float64, profile.Direction) {
	fwd, bwd := true, true
	var maxFactor float64
	for _, prof := range p.profiles {
		f, dir := prof.Factor(edgeProfileID)
		if f == 0 {
			return 0, profile.DirectionNone
		}
		fwd = fwd && dir.Forward()
		bwd = bwd && dir.Backward()
		if f > maxFactor {
			maxFactor = f
		}
	}
	if !fwd && !bwd {
		return 0, profile.DirectionNone
	}
	return maxFactor, combineDirection(fwd, bwd)
}

func (p intersectionProfile) CanStopOn(edgeProfileID uint16) bool {
	for _, prof := range p.profiles {
		if !prof.CanStopOn(edgeProfileID) {
			return false
		}
	}
	return true
}

func combineDirection(fwd, bwd bool) profile.Direction {
	switch {
	case fwd && bwd:
		return profile.DirectionBoth
	case fwd:
		return profile.DirectionForward
	case bwd:
		return profile.DirectionBackward
	default:
		return profile.DirectionNone
	}
}
