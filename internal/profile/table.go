package profile

// entry is one profile id's resolved (factor, direction, stoppability).
type entry struct {
	factor    float64
	dir       Direction
	stoppable bool
}

// VehicleProfile is a concrete, table-driven Profile: each edge profile id
// is resolved to a pre-decided speed factor, direction and stoppability at
// construction time (typically by the ingestion pipeline from OSM tags),
// then looked up by array index at query time. This is the straightforward
// data-parallel transformation the design calls for: no per-call tag
// evaluation happens inside Factor/CanStopOn.
type VehicleProfile struct {
	name    string
	entries []entry
}

// NewVehicleProfile creates a profile with capacity for profile ids
// [0, maxProfileID]. Unset ids default to not-traversable.
func NewVehicleProfile(name string, maxProfileID uint16) *VehicleProfile {
	return &VehicleProfile{
		name:    name,
		entries: make([]entry, int(maxProfileID)+1),
	}
}

// Set assigns the resolved factor/direction/stoppability for a profile id.
// speedKPH of zero (or DirectionNone) makes the id not traversable.
func (p *VehicleProfile) Set(edgeProfileID uint16, speedKPH float64, dir Direction, stoppable bool) {
	if int(edgeProfileID) >= len(p.entries) {
		grown := make([]entry, int(edgeProfileID)+1)
		copy(grown, p.entries)
		p.entries = grown
	}
	factor := 0.0
	if speedKPH > 0 && dir != DirectionNone {
		// Factor is a cost multiplier: seconds per meter at this speed.
		factor = 3.6 / speedKPH
	} else {
		dir = DirectionNone
	}
	p.entries[edgeProfileID] = entry{factor: factor, dir: dir, stoppable: stoppable}
}

func (p *VehicleProfile) Name() string { return p.name }

func (p *VehicleProfile) Factor(edgeProfileID uint16) (float64, Direction) {
	if int(edgeProfileID) >= len(p.entries) {
		return 0, DirectionNone
	}
	e := p.entries[edgeProfileID]
	return e.factor, e.dir
}

func (p *VehicleProfile) CanStopOn(edgeProfileID uint16) bool {
	if int(edgeProfileID) >= len(p.entries) {
		return false
	}
	return p.entries[edgeProfileID].stoppable
}

// Cache is a precomputed factor cache built from any Profile implementation.
// When present and covering every profile id the network uses, the resolver
// and search kernels index it directly instead of calling through the
// Profile interface on every edge visit — the
// "profile_factor_cache (optional)" configuration knob from the external
// interface section.
type Cache struct {
	profileName string
	factor      []float64
	dir         []Direction
	stoppable   []bool
}

// BuildCache evaluates p over every profile id in [0, maxProfileID] once
// and stores the results in dense arrays.
func BuildCache(p Profile, maxProfileID uint16) *Cache {
	n := int(maxProfileID) + 1
	c := &Cache{
		profileName: p.Name(),
		factor:      make([]float64, n),
		dir:         make([]Direction, n),
		stoppable:   make([]bool, n),
	}
	for id := 0; id < n; id++ {
		f, d := p.Factor(uint16(id))
		c.factor[id] = f
		c.dir[id] = d
		c.stoppable[id] = p.CanStopOn(uint16(id))
	}
	return c
}

func (c *Cache) Name() string { return c.profileName }

func (c *Cache) Factor(edgeProfileID uint16) (float64, Direction) {
	if int(edgeProfileID) >= len(c.factor) {
		return 0, DirectionNone
	}
	return c.factor[edgeProfileID], c.dir[edgeProfileID]
}

func (c *Cache) CanStopOn(edgeProfileID uint16) bool {
	if int(edgeProfileID) >= len(c.stoppable) {
		return false
	}
	return c.stoppable[edgeProfileID]
}

// Covers reports whether the cache has an entry for every id in
// [0, maxProfileID], i.e. it is safe to use in place of the live Profile
// without falling back for out-of-range ids.
func (c *Cache) Covers(maxProfileID uint16) bool {
	return len(c.factor) >= int(maxProfileID)+1
}
