package game

import (
	"arena/internal/config"
	"arena/internal/physics"
)

// Projectile is a short-lived shot. Owner is only consulted for the
// friendly-fire check; the projectile outlives its owner if need be.
type Projectile struct {
	Owner     string
	Color     string
	Remaining float64 // seconds of lifetime left

	handle physics.Handle
	radius float64
}

func (p *Projectile) Kind() Kind             { return KindProjectile }
func (p *Projectile) Handle() physics.Handle { return p.handle }
func (p *Projectile) Radius() float64        { return p.radius }
func (p *Projectile) Tag() string            { return p.Color }

// Expired reports whether the lifetime has run out.
func (p *Projectile) Expired() bool {
	return p.Remaining <= 0
}

// fireFrom spawns a projectile just ahead of the ship so it does not
// start out overlapping its firer.
func fireFrom(sim physics.Simulation, s *Ship, cfg config.ProjectileConfig) *Projectile {
	angle := sim.Angle(s.handle)
	facing := heading(angle)
	offset := s.radius + cfg.Radius + cfg.SpawnMargin

	p := &Projectile{
		Owner:     s.ID,
		Color:     s.Color,
		Remaining: cfg.Lifetime,
		radius:    cfg.Radius,
	}
	p.handle = sim.AddCircle(physics.CircleSpec{
		Category:   KindProjectile.category(),
		Position:   sim.Position(s.handle).Add(facing.Mul(offset)),
		Angle:      angle,
		Velocity:   facing.Mul(cfg.Speed),
		Radius:     cfg.Radius,
		Mass:       cfg.Mass,
		Elasticity: cfg.Elasticity,
	})
	return p
}
