// Package profile models a routing profile: a pure mapping from an edge's
// profile id (a small integer encoding a distinct combination of OSM-style
// tags) to a traversal factor, a direction, and whether the profile allows
// stopping on that edge.
package profile

// Direction encodes which logical directions an edge profile permits.
type Direction uint8

const (
	// DirectionNone marks an edge profile as not traversable in either
	// direction (factor value of zero per spec §3).
	DirectionNone Direction = iota
	DirectionForward
	DirectionBackward
	DirectionBoth
)

// Forward reports whether traversal in the From->To direction is allowed.
func (d Direction) Forward() bool { return d == DirectionForward || d == DirectionBoth }

// Backward reports whether traversal in the To->From direction is allowed.
func (d Direction) Backward() bool { return d == DirectionBackward || d == DirectionBoth }

// Profile provides the two pure functions the spec calls out in §3: a
// traversal factor/direction pair and a stoppability predicate, both
// indexed by edge profile id.
type Profile interface {
	// Name identifies the profile for registry lookups and API selection.
	Name() string

	// Factor returns the cost multiplier and allowed direction for edges
	// tagged with the given profile id. A zero value means not traversable.
	Factor(edgeProfileID uint16) (value float64, dir Direction)

	// CanStopOn reports whether a route may start, end, or make a U-turn
	// on an edge tagged with the given profile id.
	CanStopOn(edgeProfileID uint16) bool
}
