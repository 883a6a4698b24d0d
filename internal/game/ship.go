package game

import (
	"math"

	"arena/internal/physics"
)

// shipColors is the display palette, assigned round-robin on connect
var shipColors = []string{
	"#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4",
	"#ffeaa7", "#dfe6e9", "#fd79a8", "#00b894",
	"#6c5ce7", "#fdcb6e", "#e17055", "#00cec9",
}

// Ship is a player-controlled body. Motion state lives in the simulation;
// the struct keeps game bookkeeping only.
type Ship struct {
	ID             string
	Color          string
	Health         int
	Ready          bool
	ProtectedUntil float64 // simulated seconds

	handle physics.Handle
	radius float64
}

func (s *Ship) Kind() Kind             { return KindShip }
func (s *Ship) Handle() physics.Handle { return s.handle }
func (s *Ship) Radius() float64        { return s.radius }
func (s *Ship) Tag() string            { return s.Color }

// Protected reports whether the ship is inside its spawn protection window.
func (s *Ship) Protected(now float64) bool {
	return now < s.ProtectedUntil
}

// TakeDamage subtracts amount from health unless the ship is protected.
// Health is clamped at zero; destroyed is true once it gets there.
func (s *Ship) TakeDamage(amount int, now float64) (applied, destroyed bool) {
	if amount <= 0 || s.Protected(now) {
		return false, false
	}
	s.Health -= amount
	if s.Health < 0 {
		s.Health = 0
	}
	return true, s.Health == 0
}

// thrust changes linear velocity by dv along the ship's facing.
// A negative dv pushes backwards.
func (s *Ship) thrust(sim physics.Simulation, dv float64) {
	facing := heading(sim.Angle(s.handle))
	sim.ApplyImpulse(s.handle, facing.Mul(dv*sim.Mass(s.handle)))
}

// spin adds delta to angular velocity. Orientation follows during Step.
func (s *Ship) spin(sim physics.Simulation, delta float64) {
	sim.SetAngularVelocity(s.handle, sim.AngularVelocity(s.handle)+delta)
}

// dampSpin decays angular velocity by (1 - k*dt), snapping tiny values to zero.
func (s *Ship) dampSpin(sim physics.Simulation, k, dt, epsilon float64) {
	w := sim.AngularVelocity(s.handle)
	if w == 0 {
		return
	}
	w *= 1 - k*dt
	if math.Abs(w) < epsilon {
		w = 0
	}
	sim.SetAngularVelocity(s.handle, w)
}
