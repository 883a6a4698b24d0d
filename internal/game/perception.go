package game

import (
	"math/rand"
	"sort"

	"arena/internal/config"
	"arena/internal/game/spatial"
	"arena/internal/physics"

	"github.com/go-gl/mathgl/mgl64"
)

// ScanEntry is one sensed entity, expressed in the scanner's heading frame:
// +X points where the ship is facing.
type ScanEntry struct {
	Type             string      `json:"type" msgpack:"type"`
	RelativePosition mgl64.Vec2  `json:"relative_position" msgpack:"relative_position"`
	RelativeVelocity *mgl64.Vec2 `json:"relative_velocity,omitempty" msgpack:"relative_velocity,omitempty"`
	Distance         float64     `json:"distance" msgpack:"distance"`
	Color            string      `json:"color,omitempty" msgpack:"color,omitempty"`
}

// ScanResult is the answer to a scan request.
type ScanResult struct {
	NearbyObjects []ScanEntry `json:"nearby_objects" msgpack:"nearby_objects"`
}

// scanType maps an entity kind to its tag as seen by another ship.
func scanType(k Kind) string {
	if k == KindShip {
		return "other_player"
	}
	return k.String()
}

// Perception computes noisy relative views of the world.
// The broad phase is a uniform grid over circle bodies, rebuilt at most
// once per tick on first use.
type Perception struct {
	cfg  config.ScanConfig
	rng  *rand.Rand
	grid *spatial.SpatialGrid

	indexed   []Entity
	maxRadius float64
	dirty     bool
}

// NewPerception creates a perception service for an arena.
func NewPerception(cfg config.ScanConfig, arena config.ArenaConfig, capacity int, seed int64) *Perception {
	cell := cfg.GridCellSize
	if cell <= 0 {
		cell = cfg.Radius
	}
	return &Perception{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
		grid:  spatial.NewSpatialGrid(arena.Width, arena.Height, cell, capacity),
		dirty: true,
	}
}

// Invalidate marks the broad-phase index stale.
func (p *Perception) Invalidate() {
	p.dirty = true
}

func (p *Perception) rebuild(sim physics.Simulation, circles []Entity) {
	p.grid.Clear()
	p.indexed = append(p.indexed[:0], circles...)
	p.maxRadius = 0
	for i, e := range p.indexed {
		pos := sim.Position(e.Handle())
		p.grid.Insert(uint32(i), pos.X(), pos.Y())
		if e.Radius() > p.maxRadius {
			p.maxRadius = e.Radius()
		}
	}
	p.dirty = false
}

// Scan returns every entity whose exact surface distance from self is
// within the scan radius. Noise is applied to reported values only.
func (p *Perception) Scan(sim physics.Simulation, self *Ship, circles []Entity, borders []*Border) ScanResult {
	if p.dirty {
		p.rebuild(sim, circles)
	}

	origin := sim.Position(self.handle)
	ownVel := sim.Velocity(self.handle)
	frame := mgl64.Rotate2D(-sim.Angle(self.handle))

	reach := p.cfg.Radius + self.radius + p.maxRadius
	candidates := append([]uint32(nil), p.grid.QueryRadius(origin.X(), origin.Y(), reach)...)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	result := ScanResult{NearbyObjects: make([]ScanEntry, 0, len(candidates)+len(borders))}

	for _, idx := range candidates {
		e := p.indexed[idx]
		if e.Handle() == self.handle {
			continue
		}

		rel := sim.Position(e.Handle()).Sub(origin)
		dist := rel.Len() - self.radius - e.Radius()
		if dist > p.cfg.Radius {
			continue
		}

		relVel := frame.Mul2x1(sim.Velocity(e.Handle()).Sub(ownVel)).Add(p.jitter(p.cfg.VelocityNoise))
		result.NearbyObjects = append(result.NearbyObjects, ScanEntry{
			Type:             scanType(e.Kind()),
			RelativePosition: frame.Mul2x1(rel).Add(p.jitter(p.cfg.PositionNoise)),
			RelativeVelocity: &relVel,
			Distance:         p.noisyDistance(dist),
			Color:            e.Tag(),
		})
	}

	for _, b := range borders {
		point, d := sim.NearestPointOnSegment(origin, b.A, b.B)
		dist := d - self.radius - b.radius
		if dist > p.cfg.Radius {
			continue
		}
		result.NearbyObjects = append(result.NearbyObjects, ScanEntry{
			Type:             scanType(KindBorder),
			RelativePosition: frame.Mul2x1(point.Sub(origin)).Add(p.jitter(p.cfg.PositionNoise)),
			Distance:         p.noisyDistance(dist),
		})
	}

	return result
}

// jitter returns a vector with each component uniform in [-bound, bound].
func (p *Perception) jitter(bound float64) mgl64.Vec2 {
	return mgl64.Vec2{p.uniform(bound), p.uniform(bound)}
}

func (p *Perception) uniform(bound float64) float64 {
	return (p.rng.Float64()*2 - 1) * bound
}

// noisyDistance clamps overlap to zero and applies percentage jitter.
func (p *Perception) noisyDistance(d float64) float64 {
	if d < 0 {
		d = 0
	}
	return d * (1 + p.uniform(p.cfg.DistanceJitter))
}
